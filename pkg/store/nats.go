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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/storagesync/pkg/models"
)

const hostKeyPrefix = "hosts."

const leaseKey = "reconciler"

// NatsStore persists tracked-host records in a NATS JetStream KV bucket.
// Record expiry is bucket-level TTL; a Put rewrites the entry and thereby
// refreshes it. The advisory pass lease lives in a second bucket with its
// own, much shorter TTL.
type NatsStore struct {
	nc    *nats.Conn
	state jetstream.KeyValue
	lease jetstream.KeyValue
}

// NewNatsStore connects to NATS and creates (or binds to) the state and
// lease buckets.
func NewNatsStore(ctx context.Context, cfg *models.StoreConfig) (*NatsStore, error) {
	opts, err := natsOptions(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}

	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to NATS: %w", models.ErrStoreUnavailable, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("%w: failed to create JetStream context: %w", models.ErrStoreUnavailable, err)
	}

	stateCfg := jetstream.KeyValueConfig{Bucket: cfg.Bucket}
	if time.Duration(cfg.Retention) > 0 {
		stateCfg.TTL = time.Duration(cfg.Retention) // TTL is bucket-level
	}

	state, err := js.CreateKeyValue(ctx, stateCfg)
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("%w: failed to create state bucket: %w", models.ErrStoreUnavailable, err)
	}

	leaseTTL := time.Duration(cfg.LeaseTTL)
	if leaseTTL == 0 {
		leaseTTL = 30 * time.Minute
	}

	lease, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket: cfg.Bucket + "-lease",
		TTL:    leaseTTL,
	})
	if err != nil {
		nc.Close()

		return nil, fmt.Errorf("%w: failed to create lease bucket: %w", models.ErrStoreUnavailable, err)
	}

	return &NatsStore{nc: nc, state: state, lease: lease}, nil
}

func hostKey(sourceID string) string {
	return hostKeyPrefix + sourceID
}

func (n *NatsStore) GetHost(ctx context.Context, sourceID string) (*models.TrackedHost, bool, error) {
	entry, err := n.state.Get(ctx, hostKey(sourceID))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, fmt.Errorf("%w: failed to get host %s: %w", models.ErrStoreUnavailable, sourceID, err)
	}

	var host models.TrackedHost
	if err := json.Unmarshal(entry.Value(), &host); err != nil {
		return nil, false, fmt.Errorf("failed to decode host %s: %w", sourceID, err)
	}

	return &host, true, nil
}

func (n *NatsStore) PutHost(ctx context.Context, host *models.TrackedHost) error {
	value, err := json.Marshal(host)
	if err != nil {
		return fmt.Errorf("failed to encode host %s: %w", host.SourceID, err)
	}

	if _, err := n.state.Put(ctx, hostKey(host.SourceID), value); err != nil {
		return fmt.Errorf("%w: failed to put host %s: %w", models.ErrStoreUnavailable, host.SourceID, err)
	}

	return nil
}

func (n *NatsStore) ListActive(ctx context.Context) ([]string, error) {
	lister, err := n.state.ListKeysFiltered(ctx, hostKeyPrefix+"*")
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: failed to list hosts: %w", models.ErrStoreUnavailable, err)
	}

	var ids []string

	for key := range lister.Keys() {
		ids = append(ids, strings.TrimPrefix(key, hostKeyPrefix))
	}

	return ids, nil
}

func (n *NatsStore) DeleteHost(ctx context.Context, sourceID string) error {
	err := n.state.Delete(ctx, hostKey(sourceID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: failed to delete host %s: %w", models.ErrStoreUnavailable, sourceID, err)
	}

	return nil
}

func (n *NatsStore) AcquireLease(ctx context.Context, owner string) error {
	_, err := n.lease.Create(ctx, leaseKey, []byte(owner))
	if err == nil {
		return nil
	}

	if errors.Is(err, jetstream.ErrKeyExists) {
		return ErrLeaseHeld
	}

	return fmt.Errorf("%w: failed to acquire lease: %w", models.ErrStoreUnavailable, err)
}

func (n *NatsStore) ReleaseLease(ctx context.Context, owner string) error {
	entry, err := n.lease.Get(ctx, leaseKey)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil // already expired
	}

	if err != nil {
		return fmt.Errorf("%w: failed to read lease: %w", models.ErrStoreUnavailable, err)
	}

	if string(entry.Value()) != owner {
		return ErrNotLeaseOwner
	}

	if err := n.lease.Delete(ctx, leaseKey); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%w: failed to release lease: %w", models.ErrStoreUnavailable, err)
	}

	return nil
}

func (n *NatsStore) Ping(ctx context.Context) error {
	if _, err := n.state.Status(ctx); err != nil {
		return fmt.Errorf("%w: %w", models.ErrStoreUnavailable, err)
	}

	return nil
}

func (n *NatsStore) Close() error {
	n.nc.Close()

	return nil
}

var _ Store = (*NatsStore)(nil)
