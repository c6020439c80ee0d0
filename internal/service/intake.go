// Package service contains the waitlist workflows and the mail delivery
// they trigger
package service

import (
	"bridge/waitlist-api/internal/model"
	"bridge/waitlist-api/internal/store"
	"bridge/waitlist-api/pkg/security"
	"bridge/waitlist-api/pkg/util"
	"bridge/waitlist-api/pkg/validators"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrStoreInsertFailed = errors.New("failed to store signup")

// ValidationError carries the per-field messages of a rejected submission
type ValidationError struct {
	Fields validators.FieldErrors
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	return "invalid signup fields: " + strings.Join(fields, ", ")
}

type SignupRequest struct {
	Input     validators.WaitlistInput
	IP        string
	UserAgent string
	RequestID string
}

// SignupResult is returned for both new and already known emails.
// ID is empty only if a duplicate's record couldn't be read back.
type SignupResult struct {
	ID        string
	Duplicate bool
}

type IntakeConfig struct {
	// Sources is the accepted "how did you hear about us" enumeration
	Sources       []string
	TokenValidity time.Duration
	// BaseURL is prepended to the confirmation path in emails
	BaseURL string
}

type Intake struct {
	store store.SignupStore
	mail  MailDispatcher
	cfg   IntakeConfig

	newID func() string
	now   func() time.Time
}

func NewIntake(s store.SignupStore, mail MailDispatcher, cfg IntakeConfig) *Intake {
	if cfg.TokenValidity <= 0 {
		cfg.TokenValidity = security.DefaultTokenValidity
	}

	return &Intake{
		store: s,
		mail:  mail,
		cfg:   cfg,
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// Submit validates and stores a waitlist signup, attaches a confirmation
// token and queues the confirmation email. A known email is reported as a
// duplicate result, not as an error.
func (in *Intake) Submit(ctx context.Context, req *SignupRequest) (*SignupResult, error) {
	log := zap.L().With(zap.String("request_id", req.RequestID))

	data, fieldErrs := validators.ValidateWaitlist(req.Input, in.cfg.Sources)
	if len(fieldErrs) > 0 {
		log.Debug("Invalid waitlist submission", zap.Any("field_errors", fieldErrs))
		return nil, &ValidationError{Fields: fieldErrs}
	}

	signup := &model.Signup{
		ID:        in.newID(),
		Email:     data.Email,
		FirstName: data.FirstName,
		LastName:  optional(data.LastName),
		Phone:     optional(util.NormalizePhone(data.Phone)),
		Location:  optional(data.Location),
		Source:    data.Source,
		Consent:   true,
		UserAgent: optional(req.UserAgent),
		IP:        optional(req.IP),
	}

	err := in.store.Insert(ctx, signup)
	if errors.Is(err, store.ErrDuplicateEmail) {
		return in.duplicate(ctx, log, data.Email), nil
	}

	if err != nil {
		log.Error("Failed to insert waitlist signup", zap.Error(err))
		return nil, fmt.Errorf("%w, %w", ErrStoreInsertFailed, err)
	}

	log = log.With(zap.String("record_id", signup.ID))
	log.Info("Waitlist signup created", zap.String("source", signup.Source))

	var confirmURL string
	var expiresAt time.Time

	pair, err := security.GenerateConfirmationToken(in.cfg.TokenValidity)
	if err != nil {
		log.Error("Failed to generate confirmation token", zap.Error(err))
	} else if err := in.store.AttachToken(ctx, signup.ID, pair.Hash, pair.ExpiresAt, in.now()); err != nil {
		// The record stays without a usable confirmation link
		log.Error("Failed to store confirmation token", zap.Error(err))
	} else {
		confirmURL = in.confirmURL(pair.Token)
		expiresAt = pair.ExpiresAt
	}

	err = in.mail.Enqueue(&ConfirmationMail{
		To:         signup.Email,
		FirstName:  signup.FirstName,
		ConfirmURL: confirmURL,
		ExpiresAt:  expiresAt,
		RecordID:   signup.ID,
		RequestID:  req.RequestID,
	})
	if err != nil {
		log.Error("Failed to queue confirmation email", zap.Error(err))
	}

	return &SignupResult{ID: signup.ID}, nil
}

func (in *Intake) duplicate(ctx context.Context, log *zap.Logger, email string) *SignupResult {
	existing, err := in.store.FindByEmail(ctx, email)
	if err != nil {
		log.Error("Failed to fetch existing waitlist signup", zap.Error(err))
		return &SignupResult{Duplicate: true}
	}

	log.Info("Duplicate waitlist signup",
		zap.String("record_id", existing.ID),
		zap.Bool("confirmed", existing.Confirmed()))

	return &SignupResult{ID: existing.ID, Duplicate: true}
}

func (in *Intake) confirmURL(token string) string {
	base := strings.TrimRight(in.cfg.BaseURL, "/")
	return base + "/api/confirm?token=" + url.QueryEscape(token)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
