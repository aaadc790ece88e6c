/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/carverauto/storagesync/pkg/models"
)

// MemoryStore is an in-process Store with the same expiry semantics as the
// NATS-backed one. It backs tests and local dry runs.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]memoryRecord
	leaseOwner string
	leaseUntil time.Time
	retention  time.Duration
	leaseTTL   time.Duration
	now        func() time.Time
}

type memoryRecord struct {
	value   []byte
	expires time.Time
}

// NewMemoryStore creates an empty store. A zero retention disables expiry.
// The now function may be nil, in which case time.Now is used.
func NewMemoryStore(retention, leaseTTL time.Duration, now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}

	if leaseTTL == 0 {
		leaseTTL = 30 * time.Minute
	}

	return &MemoryStore{
		records:   make(map[string]memoryRecord),
		retention: retention,
		leaseTTL:  leaseTTL,
		now:       now,
	}
}

func (m *MemoryStore) GetHost(_ context.Context, sourceID string) (*models.TrackedHost, bool, error) {
	m.mu.RLock()
	rec, ok := m.records[sourceID]
	m.mu.RUnlock()

	if !ok || m.expired(rec) {
		return nil, false, nil
	}

	var host models.TrackedHost
	if err := json.Unmarshal(rec.value, &host); err != nil {
		return nil, false, err
	}

	return &host, true, nil
}

func (m *MemoryStore) PutHost(_ context.Context, host *models.TrackedHost) error {
	value, err := json.Marshal(host)
	if err != nil {
		return err
	}

	var expires time.Time
	if m.retention > 0 {
		expires = m.now().Add(m.retention)
	}

	m.mu.Lock()
	m.records[host.SourceID] = memoryRecord{value: value, expires: expires}
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string

	for id, rec := range m.records {
		if !m.expired(rec) {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (m *MemoryStore) DeleteHost(_ context.Context, sourceID string) error {
	m.mu.Lock()
	delete(m.records, sourceID)
	m.mu.Unlock()

	return nil
}

func (m *MemoryStore) AcquireLease(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.leaseOwner != "" && m.now().Before(m.leaseUntil) {
		return ErrLeaseHeld
	}

	m.leaseOwner = owner
	m.leaseUntil = m.now().Add(m.leaseTTL)

	return nil
}

func (m *MemoryStore) ReleaseLease(_ context.Context, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.leaseOwner == "" || m.now().After(m.leaseUntil) {
		return nil
	}

	if m.leaseOwner != owner {
		return ErrNotLeaseOwner
	}

	m.leaseOwner = ""

	return nil
}

func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) expired(rec memoryRecord) bool {
	return !rec.expires.IsZero() && m.now().After(rec.expires)
}

var _ Store = (*MemoryStore)(nil)
