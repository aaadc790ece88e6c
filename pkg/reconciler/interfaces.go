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

//go:generate mockgen -destination=mock_reconciler.go -package=reconciler github.com/carverauto/storagesync/pkg/reconciler SourceClient,TargetClient,Notifier

package reconciler

import (
	"context"
	"time"

	"github.com/carverauto/storagesync/pkg/models"
)

// SourceClient reads the live host set from the monitoring system that acts
// as the source of truth.
type SourceClient interface {
	// ListHosts returns every host belonging to the given groups. Failures
	// wrap models.ErrSourceUnavailable.
	ListHosts(ctx context.Context, groups []string) ([]models.RawHost, error)

	// Ping verifies API reachability and credentials.
	Ping(ctx context.Context) error
}

// TargetRecord is the minimal view of an existing target-inventory record.
type TargetRecord struct {
	ID   string
	Name string
}

// TargetClient writes device records to the downstream asset inventory.
type TargetClient interface {
	// FindByExternalID looks up a record by source host id. Returns nil
	// when no record exists.
	FindByExternalID(ctx context.Context, sourceID string) (*TargetRecord, error)

	// CreateRecord creates a record (and any missing manufacturer /
	// device-type / role dependencies) keyed by the source host id, and
	// returns its id.
	CreateRecord(ctx context.Context, sourceID string, fields models.FieldMap) (string, error)

	// UpdateRecord applies the given fields to an existing record.
	UpdateRecord(ctx context.Context, targetID string, fields models.FieldMap) error

	// Ping verifies API reachability and credentials.
	Ping(ctx context.Context) error
}

// Notifier delivers pre-formatted reconciliation events to operators.
// Failures are logged by the caller and never block reconciliation.
type Notifier interface {
	Send(ctx context.Context, event *models.Event) error
}

// HealthChecker is implemented by notifiers that can verify connectivity
// for the pre-flight check.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Clock abstracts wall-clock reads so escalation timing is testable.
type Clock interface {
	Now() time.Time
}
