package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// HistoryRepo defines the persistence operations for the append-only
// mileage and value histories. Entries are never updated or deleted
// individually — they only go away when their vehicle cascades.
type HistoryRepo interface {
	// CreateMileage appends one mileage reading.
	CreateMileage(ctx context.Context, e domain.MileageEntry) (domain.MileageEntry, error)

	// CreateValue appends one estimated-value reading.
	CreateValue(ctx context.Context, e domain.ValueEntry) (domain.ValueEntry, error)

	// ListMileage returns a vehicle's mileage history ordered by recorded_at.
	ListMileage(ctx context.Context, vehicleID uuid.UUID) ([]domain.MileageEntry, error)

	// ListValues returns a vehicle's value history ordered by recorded_at.
	ListValues(ctx context.Context, vehicleID uuid.UUID) ([]domain.ValueEntry, error)
}

// pgHistoryRepo is the Postgres implementation of HistoryRepo.
type pgHistoryRepo struct {
	db db
}

// NewHistoryRepo constructs a HistoryRepo backed by the provided db connection.
func NewHistoryRepo(db db) HistoryRepo {
	return &pgHistoryRepo{db: db}
}

// CreateMileage appends one mileage reading.
func (r *pgHistoryRepo) CreateMileage(ctx context.Context, e domain.MileageEntry) (domain.MileageEntry, error) {
	const q = `
		INSERT INTO mileage_entries (vehicle_id, mileage, recorded_at, notes)
		VALUES (@vehicle_id, @mileage, @recorded_at, @notes)
		RETURNING id, vehicle_id, mileage, recorded_at, notes, created_at`

	args := pgx.NamedArgs{
		"vehicle_id":  e.VehicleID,
		"mileage":     e.Mileage,
		"recorded_at": e.RecordedAt,
		"notes":       e.Notes,
	}

	var (
		out       domain.MileageEntry
		id        pgtype.UUID
		vehicleID pgtype.UUID
		recorded  pgtype.Date
	)
	err := r.db.QueryRow(ctx, q, args).Scan(&id, &vehicleID, &out.Mileage,
		&recorded, &out.Notes, &out.CreatedAt)
	if err != nil {
		return domain.MileageEntry{}, fmt.Errorf("repo.HistoryRepo.CreateMileage: %w", err)
	}
	out.ID = uuid.UUID(id.Bytes)
	out.VehicleID = uuid.UUID(vehicleID.Bytes)
	out.RecordedAt = recorded.Time
	return out, nil
}

// CreateValue appends one estimated-value reading.
func (r *pgHistoryRepo) CreateValue(ctx context.Context, e domain.ValueEntry) (domain.ValueEntry, error) {
	const q = `
		INSERT INTO value_entries (vehicle_id, value, recorded_at, notes)
		VALUES (@vehicle_id, @value, @recorded_at, @notes)
		RETURNING id, vehicle_id, value, recorded_at, notes, created_at`

	args := pgx.NamedArgs{
		"vehicle_id":  e.VehicleID,
		"value":       e.Value,
		"recorded_at": e.RecordedAt,
		"notes":       e.Notes,
	}

	var (
		out       domain.ValueEntry
		id        pgtype.UUID
		vehicleID pgtype.UUID
		recorded  pgtype.Date
	)
	err := r.db.QueryRow(ctx, q, args).Scan(&id, &vehicleID, &out.Value,
		&recorded, &out.Notes, &out.CreatedAt)
	if err != nil {
		return domain.ValueEntry{}, fmt.Errorf("repo.HistoryRepo.CreateValue: %w", err)
	}
	out.ID = uuid.UUID(id.Bytes)
	out.VehicleID = uuid.UUID(vehicleID.Bytes)
	out.RecordedAt = recorded.Time
	return out, nil
}

// ListMileage returns a vehicle's mileage history, oldest first.
func (r *pgHistoryRepo) ListMileage(ctx context.Context, vehicleID uuid.UUID) ([]domain.MileageEntry, error) {
	const q = `
		SELECT id, vehicle_id, mileage, recorded_at, notes, created_at
		FROM mileage_entries
		WHERE vehicle_id = @vehicle_id
		ORDER BY recorded_at, created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.HistoryRepo.ListMileage: %w", err)
	}
	defer rows.Close()

	var entries []domain.MileageEntry
	for rows.Next() {
		var (
			e        domain.MileageEntry
			id       pgtype.UUID
			vid      pgtype.UUID
			recorded pgtype.Date
		)
		if err := rows.Scan(&id, &vid, &e.Mileage, &recorded, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo.HistoryRepo.ListMileage: scan: %w", err)
		}
		e.ID = uuid.UUID(id.Bytes)
		e.VehicleID = uuid.UUID(vid.Bytes)
		e.RecordedAt = recorded.Time
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.HistoryRepo.ListMileage: rows: %w", err)
	}
	return entries, nil
}

// ListValues returns a vehicle's value history, oldest first.
func (r *pgHistoryRepo) ListValues(ctx context.Context, vehicleID uuid.UUID) ([]domain.ValueEntry, error) {
	const q = `
		SELECT id, vehicle_id, value, recorded_at, notes, created_at
		FROM value_entries
		WHERE vehicle_id = @vehicle_id
		ORDER BY recorded_at, created_at`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.HistoryRepo.ListValues: %w", err)
	}
	defer rows.Close()

	var entries []domain.ValueEntry
	for rows.Next() {
		var (
			e        domain.ValueEntry
			id       pgtype.UUID
			vid      pgtype.UUID
			recorded pgtype.Date
		)
		if err := rows.Scan(&id, &vid, &e.Value, &recorded, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo.HistoryRepo.ListValues: scan: %w", err)
		}
		e.ID = uuid.UUID(id.Bytes)
		e.VehicleID = uuid.UUID(vid.Bytes)
		e.RecordedAt = recorded.Time
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.HistoryRepo.ListValues: rows: %w", err)
	}
	return entries, nil
}
