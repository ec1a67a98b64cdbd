package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ImageID names one encoded variant blob.
type ImageID struct {
	Image   int64 `json:"image_id"`
	Variant int64 `json:"variant_id"`
}

// ResourcePath is the stable public path of the variant.
func (id ImageID) ResourcePath() string {
	return fmt.Sprintf("/images/%d/%d", id.Image, id.Variant)
}

func (id ImageID) String() string {
	return fmt.Sprintf("%d/%d", id.Image, id.Variant)
}

// ObjectKey derives the durable store key for id.
func ObjectKey(id ImageID) string {
	return fmt.Sprintf("%d-%d.jpeg", id.Image, id.Variant)
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type Variant struct {
	ID     int64 `json:"id"`
	Width  int   `json:"width"`
	Height int   `json:"height"`
}

type Image struct {
	ID        int64     `json:"id"`
	AvgColor  string    `json:"avg_color"`
	Variants  []Variant `json:"variants"`
	CreatedAt string    `json:"created_at"`
}

type ImageStore struct {
	db *sql.DB
}

// Create stores the average color and the variant dimensions in one
// transaction. The returned ids follow the order of dims.
func (s *ImageStore) Create(ctx context.Context, avgColor string, dims []Dimensions) ([]ImageID, error) {
	if len(dims) == 0 {
		return nil, errors.New("no variants to insert")
	}

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	ids := make([]ImageID, 0, len(dims))

	err := withTx(s.db, ctx, func(tx *sql.Tx) error {
		var imageID int64
		query := `
				INSERT INTO images (avg_color)
				VALUES ($1)
				RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query, avgColor).Scan(&imageID); err != nil {
			return err
		}

		query = `
				INSERT INTO image_variants (image_id, width, height)
				VALUES ($1, $2, $3)
				RETURNING id
		`
		for _, d := range dims {
			var variantID int64
			err := tx.QueryRowContext(ctx, query, imageID, d.Width, d.Height).Scan(&variantID)
			if err != nil {
				return err
			}
			ids = append(ids, ImageID{Image: imageID, Variant: variantID})
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}

func (s *ImageStore) GetByID(ctx context.Context, id int64) (*Image, error) {
	query := `
			SELECT id, avg_color, created_at
			FROM images
			WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	image := &Image{}

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&image.ID,
		&image.AvgColor,
		&image.CreatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrNotFound
		default:
			return nil, err
		}
	}

	variants, err := s.queryVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	image.Variants = variants

	return image, nil
}

// GetVariants lists the variants of an image in insertion order, which is
// ascending target size.
func (s *ImageStore) GetVariants(ctx context.Context, imageID int64) ([]Variant, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	variants, err := s.queryVariants(ctx, imageID)
	if err != nil {
		return nil, err
	}

	if len(variants) == 0 {
		return nil, ErrNotFound
	}

	return variants, nil
}

func (s *ImageStore) queryVariants(ctx context.Context, imageID int64) ([]Variant, error) {
	query := `
			SELECT id, width, height
			FROM image_variants
			WHERE image_id = $1
			ORDER BY id
	`

	rows, err := s.db.QueryContext(ctx, query, imageID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var variants []Variant
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.Width, &v.Height); err != nil {
			return nil, err
		}

		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return variants, nil
}
