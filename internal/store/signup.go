// Package store persists waitlist signups. The database enforces email
// uniqueness; callers rely on ErrDuplicateEmail instead of checking first.
package store

import (
	"bridge/waitlist-api/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	ErrDuplicateEmail = errors.New("email is already on the waitlist")
	ErrNotFound       = errors.New("signup not found")
	// ErrNotConfirmable is returned by Confirm when the record was confirmed
	// or its token replaced between the read and the write
	ErrNotConfirmable = errors.New("signup is no longer confirmable")
)

// SignupStore is the persistence contract of both waitlist workflows
type SignupStore interface {
	// Insert creates s and returns ErrDuplicateEmail when the email exists
	Insert(ctx context.Context, s *model.Signup) error
	FindByID(ctx context.Context, id string) (*model.Signup, error)
	FindByEmail(ctx context.Context, email string) (*model.Signup, error)
	// FindByTokenHash matches the outstanding token as well as the token
	// that already confirmed the record
	FindByTokenHash(ctx context.Context, hash string) (*model.Signup, error)
	AttachToken(ctx context.Context, id, hash string, expiresAt, sentAt time.Time) error
	// Confirm sets confirmed_at and clears the token only if the record is
	// still unconfirmed and hash is its outstanding token
	Confirm(ctx context.Context, id, hash string, at time.Time) error
	Ping(ctx context.Context) error
}

type GormStore struct {
	db *gorm.DB
}

var _ SignupStore = (*GormStore)(nil)

// NewGormStore expects db to be opened with TranslateError enabled so that
// unique violations surface as gorm.ErrDuplicatedKey
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Insert(ctx context.Context, su *model.Signup) error {
	err := s.db.WithContext(ctx).Create(su).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}

		return fmt.Errorf("failed to insert signup, %w", err)
	}

	return nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*model.Signup, error) {
	return s.first(ctx, "id = ?", id)
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*model.Signup, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *GormStore) FindByTokenHash(ctx context.Context, hash string) (*model.Signup, error) {
	return s.first(ctx, "token_hash = ? OR consumed_token_hash = ?", hash, hash)
}

func (s *GormStore) first(ctx context.Context, query string, args ...any) (*model.Signup, error) {
	var su model.Signup

	err := s.db.WithContext(ctx).
		Where(query, args...).
		First(&su).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to query signup, %w", err)
	}

	return &su, nil
}

func (s *GormStore) AttachToken(ctx context.Context, id, hash string, expiresAt, sentAt time.Time) error {
	r := s.db.WithContext(ctx).
		Model(&model.Signup{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"token_hash":           hash,
			"token_expires_at":     expiresAt,
			"confirmation_sent_at": sentAt,
		})
	if r.Error != nil {
		return fmt.Errorf("failed to attach token, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore) Confirm(ctx context.Context, id, hash string, at time.Time) error {
	r := s.db.WithContext(ctx).
		Model(&model.Signup{}).
		Where("id = ? AND confirmed_at IS NULL AND token_hash = ?", id, hash).
		Updates(map[string]any{
			"confirmed_at":        at,
			"token_hash":          nil,
			"consumed_token_hash": hash,
		})
	if r.Error != nil {
		return fmt.Errorf("failed to confirm signup, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotConfirmable
	}

	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
