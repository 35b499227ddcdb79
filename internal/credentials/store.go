package credentials

import (
	"context"
	"errors"
	"sync"

	"MailBlast/internal/models"
)

// Keys under which the sender identity and secret are persisted.
const (
	KeyIdentity = "smtpEmail"
	KeySecret   = "smtpPass"
)

// ErrAbsent is returned by Load when either half of the pair is missing.
var ErrAbsent = errors.New("credentials: not authenticated")

// Store holds the sender identity and secret for one session. Save and
// Clear always touch both fields together.
type Store interface {
	Save(ctx context.Context, c models.Credentials) error
	Load(ctx context.Context) (models.Credentials, error)
	Clear(ctx context.Context) error
}

// Memory is a process-local Store.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{values: make(map[string]string, 2)}
}

func (m *Memory) Save(_ context.Context, c models.Credentials) error {
	if !c.Complete() {
		return errors.New("credentials: identity and secret are required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[KeyIdentity] = c.Identity
	m.values[KeySecret] = c.Secret
	return nil
}

func (m *Memory) Load(_ context.Context) (models.Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return fromValues(m.values)
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, KeyIdentity)
	delete(m.values, KeySecret)
	return nil
}

// set writes a single key. Used by tests to simulate a half-written store.
func (m *Memory) set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func fromValues(values map[string]string) (models.Credentials, error) {
	c := models.Credentials{
		Identity: values[KeyIdentity],
		Secret:   values[KeySecret],
	}
	if !c.Complete() {
		return models.Credentials{}, ErrAbsent
	}
	return c, nil
}
