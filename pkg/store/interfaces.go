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

//go:generate mockgen -destination=mock_store.go -package=store github.com/carverauto/storagesync/pkg/store Store

// Package store persists per-host reconciliation state in a key-value
// backend with a retention window.
package store

import (
	"context"

	"github.com/carverauto/storagesync/pkg/models"
)

// Store is the persistent state backing the reconciler. Records expire
// after the configured retention window unless refreshed; every PutHost
// refreshes the record's expiry so absence tracking survives as long as the
// reconciler keeps touching the record.
type Store interface {
	// GetHost retrieves the tracked state for a source host id. The
	// boolean reports whether the record was found.
	GetHost(ctx context.Context, sourceID string) (*models.TrackedHost, bool, error)

	// PutHost upserts the record and resets its expiry.
	PutHost(ctx context.Context, host *models.TrackedHost) error

	// ListActive returns the source ids of all non-expired records.
	ListActive(ctx context.Context) ([]string, error)

	// DeleteHost removes a record. The reconciler never calls this in
	// normal flow; it exists for manual remediation.
	DeleteHost(ctx context.Context, sourceID string) error

	// AcquireLease takes the advisory pass lock. Returns ErrLeaseHeld if
	// another pass currently holds it. The lease expires on its own after
	// the configured TTL, so an abandoned pass does not wedge the next
	// scheduled one.
	AcquireLease(ctx context.Context, owner string) error

	// ReleaseLease drops the advisory lock if the owner still holds it.
	ReleaseLease(ctx context.Context, owner string) error

	// Ping verifies connectivity to the backend.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
