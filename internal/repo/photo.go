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

// PhotoRepo defines the persistence operations for vehicle photos.
type PhotoRepo interface {
	// Create inserts a new photo row and returns the persisted record.
	Create(ctx context.Context, p domain.Photo) (domain.Photo, error)

	// ListByVehicle returns all photos for a vehicle ordered by display_order.
	ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Photo, error)

	// NextDisplayOrder returns max(display_order)+1 for the vehicle, or 0
	// when it has no photos. Import assigns orders sequentially from here.
	NextDisplayOrder(ctx context.Context, vehicleID uuid.UUID) (int, error)

	// HasShowcase reports whether the vehicle already has a showcase photo.
	HasShowcase(ctx context.Context, vehicleID uuid.UUID) (bool, error)
}

// pgPhotoRepo is the Postgres implementation of PhotoRepo.
type pgPhotoRepo struct {
	db db
}

// NewPhotoRepo constructs a PhotoRepo backed by the provided db connection.
func NewPhotoRepo(db db) PhotoRepo {
	return &pgPhotoRepo{db: db}
}

// Create inserts a new photo row and returns the full persisted record.
func (r *pgPhotoRepo) Create(ctx context.Context, p domain.Photo) (domain.Photo, error) {
	const q = `
		INSERT INTO photos (vehicle_id, storage_path, file_name, caption, display_order, is_showcase)
		VALUES (@vehicle_id, @storage_path, @file_name, @caption, @display_order, @is_showcase)
		RETURNING id, vehicle_id, storage_path, file_name, caption, display_order, is_showcase, created_at`

	args := pgx.NamedArgs{
		"vehicle_id":    p.VehicleID,
		"storage_path":  p.StoragePath,
		"file_name":     p.FileName,
		"caption":       p.Caption,
		"display_order": p.DisplayOrder,
		"is_showcase":   p.IsShowcase,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanPhoto(row)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("repo.PhotoRepo.Create: %w", err)
	}
	return result, nil
}

// ListByVehicle returns the vehicle's gallery in display order.
func (r *pgPhotoRepo) ListByVehicle(ctx context.Context, vehicleID uuid.UUID) ([]domain.Photo, error) {
	const q = `
		SELECT id, vehicle_id, storage_path, file_name, caption, display_order, is_showcase, created_at
		FROM photos
		WHERE vehicle_id = @vehicle_id
		ORDER BY display_order`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID})
	if err != nil {
		return nil, fmt.Errorf("repo.PhotoRepo.ListByVehicle: %w", err)
	}
	defer rows.Close()

	var photos []domain.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.PhotoRepo.ListByVehicle: scan: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.PhotoRepo.ListByVehicle: rows: %w", err)
	}
	return photos, nil
}

// NextDisplayOrder returns the next free gallery slot for a vehicle.
func (r *pgPhotoRepo) NextDisplayOrder(ctx context.Context, vehicleID uuid.UUID) (int, error) {
	const q = `
		SELECT coalesce(max(display_order) + 1, 0)
		FROM photos
		WHERE vehicle_id = @vehicle_id`

	var next int
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID}).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("repo.PhotoRepo.NextDisplayOrder: %w", err)
	}
	return next, nil
}

// HasShowcase reports whether the vehicle has a showcase photo.
func (r *pgPhotoRepo) HasShowcase(ctx context.Context, vehicleID uuid.UUID) (bool, error) {
	const q = `
		SELECT exists(
			SELECT 1 FROM photos
			WHERE vehicle_id = @vehicle_id AND is_showcase)`

	var has bool
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID}).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("repo.PhotoRepo.HasShowcase: %w", err)
	}
	return has, nil
}

// scanPhoto maps a single database row into a domain.Photo.
func scanPhoto(s scanner) (domain.Photo, error) {
	var (
		p         domain.Photo
		id        pgtype.UUID
		vehicleID pgtype.UUID
	)

	err := s.Scan(&id, &vehicleID, &p.StoragePath, &p.FileName, &p.Caption,
		&p.DisplayOrder, &p.IsShowcase, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Photo{}, domain.ErrNotFound
		}
		return domain.Photo{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.VehicleID = uuid.UUID(vehicleID.Bytes)
	return p, nil
}
