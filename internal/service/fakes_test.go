package service

import (
	"bridge/waitlist-api/internal/model"
	"bridge/waitlist-api/internal/store"
	"context"
	"errors"
	"sync"
	"time"
)

// memStore is a SignupStore with the same conflict semantics as the
// database implementation
type memStore struct {
	mu      sync.Mutex
	records map[string]*model.Signup

	insertErr  error
	attachErr  error
	confirmErr error
	lookupErr  error

	tokenLookups int
	// beforeConfirm runs inside Confirm before the conditional update
	beforeConfirm func()
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*model.Signup{}}
}

func (m *memStore) Insert(_ context.Context, s *model.Signup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insertErr != nil {
		return m.insertErr
	}

	for _, r := range m.records {
		if r.Email == s.Email {
			return store.ErrDuplicateEmail
		}
	}

	cp := *s
	cp.CreatedAt = time.Now()
	m.records[s.ID] = &cp
	return nil
}

func (m *memStore) FindByID(_ context.Context, id string) (*model.Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}

	cp := *r
	return &cp, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*model.Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lookupErr != nil {
		return nil, m.lookupErr
	}

	for _, r := range m.records {
		if r.Email == email {
			cp := *r
			return &cp, nil
		}
	}

	return nil, store.ErrNotFound
}

func (m *memStore) FindByTokenHash(_ context.Context, hash string) (*model.Signup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokenLookups++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}

	for _, r := range m.records {
		if (r.TokenHash != nil && *r.TokenHash == hash) ||
			(r.ConsumedTokenHash != nil && *r.ConsumedTokenHash == hash) {
			cp := *r
			return &cp, nil
		}
	}

	return nil, store.ErrNotFound
}

func (m *memStore) AttachToken(_ context.Context, id, hash string, expiresAt, sentAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.attachErr != nil {
		return m.attachErr
	}

	r, ok := m.records[id]
	if !ok {
		return store.ErrNotFound
	}

	r.TokenHash = &hash
	r.TokenExpiresAt = &expiresAt
	r.ConfirmationSentAt = &sentAt
	return nil
}

func (m *memStore) Confirm(_ context.Context, id, hash string, at time.Time) error {
	if m.beforeConfirm != nil {
		m.beforeConfirm()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.confirmErr != nil {
		return m.confirmErr
	}

	r, ok := m.records[id]
	if !ok || r.ConfirmedAt != nil || r.TokenHash == nil || *r.TokenHash != hash {
		return store.ErrNotConfirmable
	}

	r.ConfirmedAt = &at
	r.TokenHash = nil
	r.ConsumedTokenHash = &hash
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// put stores a record directly, bypassing the workflows
func (m *memStore) put(s *model.Signup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.records[s.ID] = &cp
}

type fakeDispatcher struct {
	mu    sync.Mutex
	mails []*ConfirmationMail
	err   error
}

func (f *fakeDispatcher) Enqueue(m *ConfirmationMail) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}

	f.mails = append(f.mails, m)
	return nil
}

func (f *fakeDispatcher) sent() []*ConfirmationMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*ConfirmationMail(nil), f.mails...)
}

type fakeMailer struct {
	mu    sync.Mutex
	mails []*ConfirmationMail
	err   error
	block chan struct{}
}

func (f *fakeMailer) Provider() string { return "fake" }

func (f *fakeMailer) SendConfirmation(_ context.Context, m *ConfirmationMail) error {
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.mails = append(f.mails, m)
	return f.err
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.mails)
}

var errBoom = errors.New("boom")
