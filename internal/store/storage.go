package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	ErrTransport         = errors.New("object store unreachable")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Images interface {
		Create(context.Context, string, []Dimensions) ([]ImageID, error)
		GetByID(context.Context, int64) (*Image, error)
		GetVariants(context.Context, int64) ([]Variant, error)
	}
}

// Objects is a durable blob store holding encoded variant bytes.
// Init must succeed once before any Get or Put.
type Objects interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, id ImageID) ([]byte, error)
	Put(ctx context.Context, id ImageID, data []byte) error
}

func NewStorage(db *sql.DB) Storage {
	return Storage{
		Images: &ImageStore{db},
	}
}

func withTx(db *sql.DB, ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
