package store

import (
	"context"
	"sync"
	"time"
)

// Memory keeps all three collaborators in maps. Used by tests and by local
// development without a database.
type Memory struct {
	mu       sync.Mutex
	config   map[string]string
	hostKeys map[string]*HostKey
	records  map[string]*MemoryRecord
}

// MemoryRecord is a stored audit record plus its attempt counter.
type MemoryRecord struct {
	Record
	Attempts int
}

func NewMemory() *Memory {
	return &Memory{
		config:   map[string]string{},
		hostKeys: map[string]*HostKey{},
		records:  map[string]*MemoryRecord{},
	}
}

func (m *Memory) SetConfig(name, value string) {
	m.mu.Lock()
	m.config[name] = value
	m.mu.Unlock()
}

func (m *Memory) AddHostKey(key HostKey) {
	m.mu.Lock()
	copied := key
	m.hostKeys[key.HostID] = &copied
	m.mu.Unlock()
}

func (m *Memory) Value(ctx context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.config[name]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *Memory) Find(ctx context.Context, hostID string) (*HostKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.hostKeys[hostID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *key
	return &copied, nil
}

func (m *Memory) UpdatePaymentOption(ctx context.Context, hostID, option string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key, ok := m.hostKeys[hostID]
	if !ok {
		return ErrNotFound
	}
	key.PaymentOption = option
	at = at.UTC()
	key.LastUpdatePayment = &at
	key.ClearPaymentOption = false
	return nil
}

func (m *Memory) Upsert(ctx context.Context, record Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[record.ExternalReference]
	if !ok {
		m.records[record.ExternalReference] = &MemoryRecord{Record: record}
		return nil
	}

	existing.Record = record
	existing.Attempts++
	return nil
}

// AuditRecord returns a copy of the stored record for assertions.
func (m *Memory) AuditRecord(externalReference string) (MemoryRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[externalReference]
	if !ok {
		return MemoryRecord{}, false
	}
	return *record, true
}
