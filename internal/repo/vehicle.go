package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// VehicleRepo defines the persistence operations for Vehicles.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the pipelines to be unit-tested with mocks.
type VehicleRepo interface {
	// Create inserts a new vehicle and returns the persisted record (with
	// DB-generated id, created_at, and updated_at populated).
	Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)

	// GetByID retrieves a single vehicle by its UUID primary key.
	// Returns domain.ErrNotFound if no vehicle with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)

	// List returns all vehicles ordered by name.
	List(ctx context.Context) ([]domain.Vehicle, error)

	// Count returns the total number of vehicles in the collection.
	Count(ctx context.Context) (int, error)

	// Delete removes a vehicle by ID. Child rows (photos, documents,
	// service records, history) cascade at the database level.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgVehicleRepo is the Postgres implementation of VehicleRepo.
type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

const vehicleColumns = `
	id, name, make, model, year, vehicle_type, vin, plate_number, mileage,
	tab_expiration, status, notes, purchase_price, purchase_date, nickname,
	maintenance_notes, estimated_value, sale_info, created_at, updated_at`

// Create inserts a new vehicle row and returns the full persisted record.
func (r *pgVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	const q = `
		INSERT INTO vehicles (
			name, make, model, year, vehicle_type, vin, plate_number, mileage,
			tab_expiration, status, notes, purchase_price, purchase_date,
			nickname, maintenance_notes, estimated_value, sale_info)
		VALUES (
			@name, @make, @model, @year, @vehicle_type, @vin, @plate_number,
			@mileage, @tab_expiration, @status, @notes, @purchase_price,
			@purchase_date, @nickname, @maintenance_notes, @estimated_value,
			@sale_info)
		RETURNING` + vehicleColumns

	args := pgx.NamedArgs{
		"name":              v.Name,
		"make":              v.Make,
		"model":             v.Model,
		"year":              v.Year,
		"vehicle_type":      string(v.Type),
		"vin":               v.VIN,
		"plate_number":      v.PlateNumber,
		"mileage":           v.Mileage,
		"tab_expiration":    v.TabExpiration, // nil becomes NULL
		"status":            string(v.Status),
		"notes":             v.Notes,
		"purchase_price":    v.PurchasePrice,
		"purchase_date":     v.PurchaseDate,
		"nickname":          v.Nickname,
		"maintenance_notes": v.MaintenanceNotes,
		"estimated_value":   v.EstimatedValue,
		"sale_info":         saleInfoToJSON(v.SaleInfo),
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanVehicle(row)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a vehicle by primary key.
func (r *pgVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `SELECT` + vehicleColumns + `
		FROM vehicles WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanVehicle(row)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetByID: %w", err)
	}
	return result, nil
}

// List returns all vehicles ordered by name, which is also the order the
// export pipeline and the import candidate set use.
func (r *pgVehicleRepo) List(ctx context.Context) ([]domain.Vehicle, error) {
	const q = `SELECT` + vehicleColumns + `
		FROM vehicles ORDER BY name, created_at`

	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.List: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.VehicleRepo.List: scan: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.VehicleRepo.List: rows: %w", err)
	}
	return vehicles, nil
}

// Count returns the number of vehicle rows.
func (r *pgVehicleRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM vehicles`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repo.VehicleRepo.Count: %w", err)
	}
	return n, nil
}

// Delete removes a vehicle by primary key.
func (r *pgVehicleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM vehicles WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.VehicleRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.VehicleRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// scanVehicle maps a single database row into a domain.Vehicle.
// It handles the UUID, nullable date/numeric, and jsonb sale_info conversions.
func scanVehicle(s scanner) (domain.Vehicle, error) {
	var (
		v             domain.Vehicle
		id            pgtype.UUID
		vehicleType   string
		status        string
		tabExpiration pgtype.Date
		purchaseDate  pgtype.Date
		purchasePrice pgtype.Float8
		estValue      pgtype.Float8
		saleInfo      []byte
	)

	err := s.Scan(&id, &v.Name, &v.Make, &v.Model, &v.Year, &vehicleType,
		&v.VIN, &v.PlateNumber, &v.Mileage, &tabExpiration, &status, &v.Notes,
		&purchasePrice, &purchaseDate, &v.Nickname, &v.MaintenanceNotes,
		&estValue, &saleInfo, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vehicle{}, domain.ErrNotFound
		}
		return domain.Vehicle{}, err
	}

	v.ID = uuid.UUID(id.Bytes)
	v.Type = domain.VehicleType(vehicleType)
	v.Status = domain.VehicleStatus(status)
	v.TabExpiration = datePtr(tabExpiration)
	v.PurchaseDate = datePtr(purchaseDate)
	v.PurchasePrice = floatPtr(purchasePrice)
	v.EstimatedValue = floatPtr(estValue)
	v.SaleInfo = saleInfoFromJSON(saleInfo)
	return v, nil
}
