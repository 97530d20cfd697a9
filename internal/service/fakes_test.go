package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/intake-service/internal/domain"
	"github.com/spec-kit/intake-service/internal/events"
	"github.com/spec-kit/intake-service/internal/repository"
)

type memoryAccountRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]domain.Account
	err      error
	// createErr, when set, is returned by Create instead of inserting.
	createErr error
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: map[int64]domain.Account{}}
}

func (m *memoryAccountRepo) Create(_ context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return repository.ErrDuplicate
		}
	}
	m.nextID++
	account.ID = m.nextID
	account.CreatedAt = time.Now()
	m.accounts[account.ID] = *account
	return nil
}

func (m *memoryAccountRepo) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, account := range m.accounts {
		if account.Username == username {
			a := account
			return &a, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryAccountRepo) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	for _, account := range m.accounts {
		if account.Username == username || account.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAccountRepo) List(_ context.Context) ([]domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	result := make([]domain.Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type memoryRequestRepo struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]domain.Request
	err      error
}

func newMemoryRequestRepo() *memoryRequestRepo {
	return &memoryRequestRepo{requests: map[int64]domain.Request{}}
}

func (m *memoryRequestRepo) Create(_ context.Context, request *domain.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	request.ID = m.nextID
	request.CreatedAt = time.Now()
	request.UpdatedAt = request.CreatedAt
	m.requests[request.ID] = *request
	return nil
}

func (m *memoryRequestRepo) List(_ context.Context) ([]domain.Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	result := make([]domain.Request, 0, len(m.requests))
	for _, request := range m.requests {
		result = append(result, request)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *memoryRequestRepo) UpdateStatus(_ context.Context, id int64, status domain.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	request, ok := m.requests[id]
	if !ok {
		return pgx.ErrNoRows
	}
	request.Status = status
	request.UpdatedAt = time.Now()
	m.requests[id] = request
	return nil
}

func (m *memoryRequestRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.requests, id)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}
