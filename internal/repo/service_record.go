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

// ServiceRecordRepo defines the persistence operations for service records
// and their receipt attachments. Receipts never exist without a parent
// record, so they live behind the same interface.
type ServiceRecordRepo interface {
	// Create inserts a new service record and returns the persisted record.
	Create(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error)

	// ListByVehicle returns all service records for a vehicle ordered by
	// title — the candidate ordering the import matcher relies on.
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.ServiceRecord, error)

	// CreateReceipt inserts a receipt row linked to a service record.
	CreateReceipt(ctx context.Context, rcpt domain.Receipt) (domain.Receipt, error)

	// ListReceipts returns all receipts on a service record ordered by file name.
	ListReceipts(ctx context.Context, recordID uuid.UUID) ([]domain.Receipt, error)
}

// pgServiceRecordRepo is the Postgres implementation of ServiceRecordRepo.
type pgServiceRecordRepo struct {
	db db
}

// NewServiceRecordRepo constructs a ServiceRecordRepo backed by the provided
// db connection.
func NewServiceRecordRepo(db db) ServiceRecordRepo {
	return &pgServiceRecordRepo{db: db}
}

// Create inserts a new service record row and returns the persisted record.
func (r *pgServiceRecordRepo) Create(ctx context.Context, rec domain.ServiceRecord) (domain.ServiceRecord, error) {
	const q = `
		INSERT INTO service_records (vehicle_id, title, category, service_date,
			cost, odometer, shop, description)
		VALUES (@vehicle_id, @title, @category, @service_date,
			@cost, @odometer, @shop, @description)
		RETURNING id, vehicle_id, title, category, service_date, cost, odometer,
			shop, description, created_at`

	args := pgx.NamedArgs{
		"vehicle_id":   rec.VehicleID,
		"title":        rec.Title,
		"category":     string(rec.Category),
		"service_date": rec.Date,
		"cost":         rec.Cost,     // nil becomes NULL
		"odometer":     rec.Odometer, // nil becomes NULL
		"shop":         rec.Shop,
		"description":  rec.Description,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanServiceRecord(row)
	if err != nil {
		return domain.ServiceRecord{}, fmt.Errorf("repo.ServiceRecordRepo.Create: %w", err)
	}
	return result, nil
}

// ListByVehicle returns all service records for a vehicle ordered by title.
func (r *pgServiceRecordRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.ServiceRecord, error) {
	const q = `
		SELECT id, vehicle_id, title, category, service_date, cost, odometer,
			shop, description, created_at
		FROM service_records
		WHERE vehicle_id = @vehicle_id
		ORDER BY title, service_date`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.ServiceRecordRepo.ListByVehicle: %w", err)
	}
	defer rows.Close()

	var records []domain.ServiceRecord
	for rows.Next() {
		rec, err := scanServiceRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.ServiceRecordRepo.ListByVehicle: scan: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ServiceRecordRepo.ListByVehicle: rows: %w", err)
	}
	return records, nil
}

// CreateReceipt inserts a receipt row and returns the persisted record.
func (r *pgServiceRecordRepo) CreateReceipt(ctx context.Context, rcpt domain.Receipt) (domain.Receipt, error) {
	const q = `
		INSERT INTO receipts (service_record_id, storage_path, file_name)
		VALUES (@service_record_id, @storage_path, @file_name)
		RETURNING id, service_record_id, storage_path, file_name, created_at`

	args := pgx.NamedArgs{
		"service_record_id": rcpt.ServiceRecordID,
		"storage_path":      rcpt.StoragePath,
		"file_name":         rcpt.FileName,
	}

	var (
		out      domain.Receipt
		id       pgtype.UUID
		recordID pgtype.UUID
	)
	err := r.db.QueryRow(ctx, q, args).Scan(&id, &recordID, &out.StoragePath,
		&out.FileName, &out.CreatedAt)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("repo.ServiceRecordRepo.CreateReceipt: %w", err)
	}
	out.ID = uuid.UUID(id.Bytes)
	out.ServiceRecordID = uuid.UUID(recordID.Bytes)
	return out, nil
}

// ListReceipts returns all receipts on one service record.
func (r *pgServiceRecordRepo) ListReceipts(ctx context.Context, recordID uuid.UUID) ([]domain.Receipt, error) {
	const q = `
		SELECT id, service_record_id, storage_path, file_name, created_at
		FROM receipts
		WHERE service_record_id = @service_record_id
		ORDER BY file_name`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"service_record_id": recordID})
	if err != nil {
		return nil, fmt.Errorf("repo.ServiceRecordRepo.ListReceipts: %w", err)
	}
	defer rows.Close()

	var receipts []domain.Receipt
	for rows.Next() {
		var (
			rcpt domain.Receipt
			id   pgtype.UUID
			rid  pgtype.UUID
		)
		if err := rows.Scan(&id, &rid, &rcpt.StoragePath, &rcpt.FileName, &rcpt.CreatedAt); err != nil {
			return nil, fmt.Errorf("repo.ServiceRecordRepo.ListReceipts: scan: %w", err)
		}
		rcpt.ID = uuid.UUID(id.Bytes)
		rcpt.ServiceRecordID = uuid.UUID(rid.Bytes)
		receipts = append(receipts, rcpt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.ServiceRecordRepo.ListReceipts: rows: %w", err)
	}
	return receipts, nil
}

// scanServiceRecord maps a single database row into a domain.ServiceRecord.
func scanServiceRecord(s scanner) (domain.ServiceRecord, error) {
	var (
		rec       domain.ServiceRecord
		id        pgtype.UUID
		vehicleID pgtype.UUID
		category  string
		date      pgtype.Date
		cost      pgtype.Float8
		odometer  pgtype.Int8
	)

	err := s.Scan(&id, &vehicleID, &rec.Title, &category, &date, &cost,
		&odometer, &rec.Shop, &rec.Description, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ServiceRecord{}, domain.ErrNotFound
		}
		return domain.ServiceRecord{}, err
	}

	rec.ID = uuid.UUID(id.Bytes)
	rec.VehicleID = uuid.UUID(vehicleID.Bytes)
	rec.Category = domain.ServiceCategory(category)
	rec.Date = date.Time
	rec.Cost = floatPtr(cost)
	rec.Odometer = intPtr(odometer)
	return rec, nil
}
