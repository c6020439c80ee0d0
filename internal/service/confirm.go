package service

import (
	"bridge/waitlist-api/internal/model"
	"bridge/waitlist-api/internal/store"
	"bridge/waitlist-api/pkg/security"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrTokenMissing       = errors.New("confirmation token missing")
	ErrTokenInvalid       = errors.New("confirmation token invalid")
	ErrTokenAlreadyUsed   = errors.New("confirmation token already used")
	ErrTokenExpired       = errors.New("confirmation token expired")
	ErrConfirmationFailed = errors.New("failed to confirm signup")
)

type Confirmer struct {
	store store.SignupStore
	now   func() time.Time
}

func NewConfirmer(s store.SignupStore) *Confirmer {
	return &Confirmer{
		store: s,
		now:   time.Now,
	}
}

// Confirm consumes a raw confirmation token. Every failure is one of the
// ErrToken* values or ErrConfirmationFailed.
func (c *Confirmer) Confirm(ctx context.Context, token, requestID string) (*model.Signup, error) {
	log := zap.L().With(zap.String("request_id", requestID))

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenMissing
	}

	hash := security.HashToken(token)

	signup, err := c.store.FindByTokenHash(ctx, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("Confirmation token not found", zap.String("token_hash", hash))
		} else {
			log.Error("Failed to look up confirmation token", zap.Error(err), zap.String("token_hash", hash))
		}

		return nil, ErrTokenInvalid
	}

	log = log.With(zap.String("record_id", signup.ID))
	now := c.now()

	if err := checkConfirmable(signup, hash, now); err != nil {
		log.Info("Confirmation rejected", zap.Error(err))
		return nil, err
	}

	err = c.store.Confirm(ctx, signup.ID, hash, now)
	if errors.Is(err, store.ErrNotConfirmable) {
		// Lost a race with another write, report what the record looks like now
		return nil, c.explainConflict(ctx, log, signup.ID, hash, now)
	}

	if err != nil {
		log.Error("Failed to confirm signup", zap.Error(err))
		return nil, ErrConfirmationFailed
	}

	signup.ConfirmedAt = &now
	signup.TokenHash = nil
	signup.ConsumedTokenHash = &hash

	log.Info("Waitlist signup confirmed")
	return signup, nil
}

func (c *Confirmer) explainConflict(ctx context.Context, log *zap.Logger, id, hash string, now time.Time) error {
	fresh, err := c.store.FindByID(ctx, id)
	if err != nil {
		log.Error("Failed to reload signup after confirmation conflict", zap.Error(err))
		return ErrTokenInvalid
	}

	if err := checkConfirmable(fresh, hash, now); err != nil {
		log.Info("Confirmation conflict", zap.Error(err))
		return err
	}

	// Still looks confirmable, the row changed under us in some other way
	log.Warn("Confirmation update matched no rows")
	return ErrTokenInvalid
}

// checkConfirmable applies the token state rules in order: already used
// wins over expired.
func checkConfirmable(s *model.Signup, hash string, now time.Time) error {
	if s.Confirmed() {
		return ErrTokenAlreadyUsed
	}

	if s.TokenHash == nil || *s.TokenHash != hash {
		return ErrTokenInvalid
	}

	if s.TokenExpiresAt == nil || security.IsTokenExpired(*s.TokenExpiresAt, now) {
		return ErrTokenExpired
	}

	return nil
}
