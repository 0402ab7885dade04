package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Store groups the repositories over one database handle. A Store obtained
// inside Transaction shares the transaction across all of its repositories.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn in a unit of work. The transaction commits when fn
// returns nil and rolls back on error or panic.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{db: s.db}
}

func (s *Store) OTPs() *OTPRepository {
	return &OTPRepository{db: s.db}
}

func (s *Store) Projects() *ProjectRepository {
	return &ProjectRepository{db: s.db}
}

func (s *Store) Tokens() *TokenRepository {
	return &TokenRepository{db: s.db}
}

func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{db: s.db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
