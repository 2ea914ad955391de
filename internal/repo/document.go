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

// DocumentRepo defines the persistence operations for vehicle documents.
type DocumentRepo interface {
	// Create inserts a new document row and returns the persisted record.
	Create(ctx context.Context, d domain.Document) (domain.Document, error)

	// ListByVehicle returns all documents for a vehicle ordered by title.
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Document, error)
}

// pgDocumentRepo is the Postgres implementation of DocumentRepo.
type pgDocumentRepo struct {
	db db
}

// NewDocumentRepo constructs a DocumentRepo backed by the provided db connection.
func NewDocumentRepo(db db) DocumentRepo {
	return &pgDocumentRepo{db: db}
}

// Create inserts a new document row and returns the full persisted record.
func (r *pgDocumentRepo) Create(ctx context.Context, d domain.Document) (domain.Document, error) {
	const q = `
		INSERT INTO documents (vehicle_id, title, document_type, expiration, cost,
			storage_path, file_name, mime_type, notes)
		VALUES (@vehicle_id, @title, @document_type, @expiration, @cost,
			@storage_path, @file_name, @mime_type, @notes)
		RETURNING id, vehicle_id, title, document_type, expiration, cost,
			storage_path, file_name, mime_type, notes, created_at`

	args := pgx.NamedArgs{
		"vehicle_id":    d.VehicleID,
		"title":         d.Title,
		"document_type": string(d.Type),
		"expiration":    d.Expiration, // nil becomes NULL
		"cost":          d.Cost,
		"storage_path":  d.StoragePath,
		"file_name":     d.FileName,
		"mime_type":     d.MimeType,
		"notes":         d.Notes,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanDocument(row)
	if err != nil {
		return domain.Document{}, fmt.Errorf("repo.DocumentRepo.Create: %w", err)
	}
	return result, nil
}

// ListByVehicle returns the vehicle's documents ordered by title, which is
// the candidate ordering the import matcher relies on for stable ties.
func (r *pgDocumentRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Document, error) {
	const q = `
		SELECT id, vehicle_id, title, document_type, expiration, cost,
			storage_path, file_name, mime_type, notes, created_at
		FROM documents
		WHERE vehicle_id = @vehicle_id
		ORDER BY title`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.DocumentRepo.ListByVehicle: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.DocumentRepo.ListByVehicle: scan: %w", err)
		}
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.DocumentRepo.ListByVehicle: rows: %w", err)
	}
	return docs, nil
}

// scanDocument maps a single database row into a domain.Document.
func scanDocument(s scanner) (domain.Document, error) {
	var (
		d          domain.Document
		id         pgtype.UUID
		vehicleID  pgtype.UUID
		docType    string
		expiration pgtype.Date
		cost       pgtype.Float8
	)

	err := s.Scan(&id, &vehicleID, &d.Title, &docType, &expiration, &cost,
		&d.StoragePath, &d.FileName, &d.MimeType, &d.Notes, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Document{}, domain.ErrNotFound
		}
		return domain.Document{}, err
	}

	d.ID = uuid.UUID(id.Bytes)
	d.VehicleID = uuid.UUID(vehicleID.Bytes)
	d.Type = domain.DocumentType(docType)
	d.Expiration = datePtr(expiration)
	d.Cost = floatPtr(cost)
	return d, nil
}
