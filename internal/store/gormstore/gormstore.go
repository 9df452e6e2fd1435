// Package gormstore implements store.Store on postgres through gorm.
// Counters are only ever changed with single UPDATE statements of the form
// col = col + 1, never read-modify-write in Go.
package gormstore

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"titanhub/internal/store"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return store.ErrDuplicate
		case pgerrcode.ForeignKeyViolation:
			return store.ErrNotFound
		}
	}
	return err
}

// bump runs UPDATE table SET col = col + 1 WHERE id = ? RETURNING * into dest.
func bump(tx *gorm.DB, dest interface{}, col string, id uint) error {
	res := tx.Model(dest).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		UpdateColumn(col, gorm.Expr(col+" + ?", 1))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}
