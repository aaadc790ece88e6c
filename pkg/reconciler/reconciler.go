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

// Package reconciler keeps the target device inventory consistent with the
// host set reported by the source monitoring system. One Run is a single
// linear sweep: fetch, per-host reconcile, missing-host detection, summary.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/storagesync/pkg/fingerprint"
	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
	"github.com/carverauto/storagesync/pkg/store"
)

// Reconciler orchestrates one reconciliation pass at a time. Concurrent
// passes are prevented by an advisory lease in the state store.
type Reconciler struct {
	config   *Config
	schedule Schedule
	store    store.Store
	source   SourceClient
	target   TargetClient
	notifier Notifier
	clock    Clock
	retry    RetryPolicy

	sourceBreaker *CircuitBreaker
	targetBreaker *CircuitBreaker

	logger logger.Logger
}

// New creates a Reconciler with explicit dependencies. A nil clock selects
// the wall clock.
func New(
	config *Config,
	st store.Store,
	source SourceClient,
	target TargetClient,
	notifier Notifier,
	clock Clock,
	log logger.Logger,
) (*Reconciler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if clock == nil {
		clock = realClock{}
	}

	return &Reconciler{
		config:        config,
		schedule:      config.Schedule(),
		store:         st,
		source:        source,
		target:        target,
		notifier:      notifier,
		clock:         clock,
		retry:         DefaultRetryPolicy(),
		sourceBreaker: NewCircuitBreaker("source", DefaultCircuitBreakerConfig(), log),
		targetBreaker: NewCircuitBreaker("target", DefaultCircuitBreakerConfig(), log),
		logger:        log,
	}, nil
}

// Run executes one reconciliation pass. A fetch failure aborts the pass
// with no state mutation; per-host target failures are counted and the pass
// continues. Returns store.ErrLeaseHeld when another pass is running.
func (r *Reconciler) Run(ctx context.Context) (*models.PassSummary, error) {
	now := r.clock.Now()
	summary := &models.PassSummary{
		PassID:    uuid.NewString(),
		StartedAt: now,
		DryRun:    r.config.DryRun,
	}

	if err := r.store.AcquireLease(ctx, summary.PassID); err != nil {
		if errors.Is(err, store.ErrLeaseHeld) {
			r.logger.Warn().Str("pass_id", summary.PassID).Msg("Previous pass still running, refusing to start")
		}

		return nil, err
	}

	defer func() {
		if err := r.store.ReleaseLease(ctx, summary.PassID); err != nil {
			r.logger.Error().Err(err).Msg("Failed to release pass lease")
		}
	}()

	if r.config.DryRun {
		r.logger.Warn().Msg("Dry run: target inventory writes will be skipped")
	}

	hosts, err := r.fetchHosts(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("Source fetch failed, aborting pass")
		r.emitPassFailure(ctx, err, now)

		return nil, err
	}

	summary.Total = len(hosts)

	fetched := make(map[string]struct{}, len(hosts))
	for i := range hosts {
		fetched[hosts[i].ID] = struct{}{}
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Workers)

	for i := range hosts {
		h := &hosts[i]

		g.Go(func() error {
			return r.reconcileHost(gctx, h, now, summary, &mu)
		})
	}

	// Worker errors are store failures; everything else is absorbed into
	// the summary.
	if err := g.Wait(); err != nil {
		r.logger.Error().Err(err).Msg("Pass aborted by store failure")
		r.emitPassFailure(ctx, err, now)

		return summary, err
	}

	if err := r.detectMissing(ctx, fetched, now, summary, &mu); err != nil {
		r.logger.Error().Err(err).Msg("Missing-host detection aborted by store failure")
		r.emitPassFailure(ctx, err, now)

		return summary, err
	}

	summary.FinishedAt = r.clock.Now()

	r.logger.Info().
		Str("pass_id", summary.PassID).
		Int("total", summary.Total).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("unchanged", summary.Unchanged).
		Int("returned", summary.Returned).
		Int("newly_missing", summary.NewlyMissing).
		Int("escalated", summary.Escalated).
		Int("errors", summary.Errors).
		Dur("duration", summary.Duration()).
		Msg("Reconciliation pass completed")

	return summary, nil
}

// reconcileHost processes a single fetched host. Only store failures are
// returned; target failures are recorded on the summary so one bad record
// cannot stall the fleet.
func (r *Reconciler) reconcileHost(
	ctx context.Context,
	raw *models.RawHost,
	now time.Time,
	summary *models.PassSummary,
	mu *sync.Mutex,
) error {
	fields := models.NormalizeFields(raw)
	digest := fingerprint.Compute(fields)

	state, found, err := r.store.GetHost(ctx, raw.ID)
	if err != nil {
		return err
	}

	if !found {
		return r.handleNewHost(ctx, raw, fields, digest, now, summary, mu)
	}

	return r.handleKnownHost(ctx, raw, state, fields, digest, now, summary, mu)
}

// handleNewHost creates the target record for a never-seen host. An
// existing target record with the same external id is adopted instead of
// duplicated, so concurrent first sightings and pre-provisioned records
// stay idempotent.
func (r *Reconciler) handleNewHost(
	ctx context.Context,
	raw *models.RawHost,
	fields models.FieldMap,
	digest string,
	now time.Time,
	summary *models.PassSummary,
	mu *sync.Mutex,
) error {
	existing, err := r.findTarget(ctx, raw.ID)
	if err != nil {
		r.recordHostError(ctx, raw.ID, fields, err, summary, mu)
		return nil
	}

	var targetID string

	switch {
	case existing != nil:
		targetID = existing.ID

		if !r.config.DryRun {
			if err := r.updateTarget(ctx, targetID, fields); err != nil {
				r.recordHostError(ctx, raw.ID, fields, err, summary, mu)
				return nil
			}
		}
	case r.config.DryRun:
		r.logger.Info().
			Str("host_id", raw.ID).
			Str("name", raw.Name).
			Msg("Dry run: would create target record")
	default:
		targetID, err = r.createTarget(ctx, raw.ID, fields)
		if err != nil {
			r.recordHostError(ctx, raw.ID, fields, err, summary, mu)
			return nil
		}
	}

	host := &models.TrackedHost{
		SourceID:    raw.ID,
		TargetID:    targetID,
		Fields:      fields,
		Fingerprint: digest,
		SchemaVer:   models.FieldSchemaVersion,
		LastSeen:    now,
	}

	if err := r.store.PutHost(ctx, host); err != nil {
		return err
	}

	r.emit(ctx, &models.Event{
		Kind:     models.EventNewHost,
		Level:    models.LevelInfo,
		HostID:   raw.ID,
		HostName: raw.Name,
		Details: map[string]any{
			"ip":       fields[models.FieldIP],
			"hardware": fields[models.FieldHardware],
			"site":     fields[models.FieldSiteGroup],
		},
		Timestamp: now,
	})

	mu.Lock()
	summary.Created++
	mu.Unlock()

	return nil
}

// handleKnownHost clears absence tracking when the host has returned and
// pushes field changes to the target inventory. The stored fingerprint is
// only advanced after the target write succeeded (or in dry run), so a
// failed update is retried on the next pass.
func (r *Reconciler) handleKnownHost(
	ctx context.Context,
	raw *models.RawHost,
	state *models.TrackedHost,
	fields models.FieldMap,
	digest string,
	now time.Time,
	summary *models.PassSummary,
	mu *sync.Mutex,
) error {
	st := *state

	if st.IsMissing() {
		absence := now.Sub(*st.MissingSince)
		st.MissingSince = nil
		st.LastNotifiedMissing = nil

		r.emit(ctx, &models.Event{
			Kind:     models.EventHostReturned,
			Level:    models.LevelInfo,
			HostID:   st.SourceID,
			HostName: raw.Name,
			Details: map[string]any{
				"absent_hours": absence.Hours(),
			},
			Timestamp: now,
		})

		mu.Lock()
		summary.Returned++
		mu.Unlock()
	}

	// A host tracked without a target record (earlier dry run or failed
	// create) must reach the target even when its fields are unchanged.
	changed := !fingerprint.Equal(st.Fingerprint, digest) ||
		st.SchemaVer != models.FieldSchemaVersion ||
		(st.TargetID == "" && !r.config.DryRun)

	if changed {
		changes := Diff(st.Fields, fields)
		wrote := true

		switch {
		case r.config.DryRun:
			r.logger.Info().
				Str("host_id", st.SourceID).
				Strs("fields", changedFieldNames(changes)).
				Msg("Dry run: would update target record")
		case st.TargetID == "":
			// Tracked but never created in the target (earlier dry
			// run or failed create).
			id, err := r.createTarget(ctx, st.SourceID, fields)
			if err != nil {
				wrote = false

				r.recordHostError(ctx, st.SourceID, fields, err, summary, mu)
			} else {
				st.TargetID = id
			}
		default:
			if err := r.updateTarget(ctx, st.TargetID, fields); err != nil {
				wrote = false

				r.recordHostError(ctx, st.SourceID, fields, err, summary, mu)
			}
		}

		if wrote {
			st.Fields = fields
			st.Fingerprint = digest
			st.SchemaVer = models.FieldSchemaVersion

			if len(changes) > 0 {
				details := map[string]any{"fields": changedFieldNames(changes)}
				for _, c := range changes {
					details[c.Field] = map[string]string{"old": c.Old, "new": c.New}
				}

				r.emit(ctx, &models.Event{
					Kind:      models.EventFieldsChanged,
					Level:     models.LevelInfo,
					HostID:    st.SourceID,
					HostName:  raw.Name,
					Details:   details,
					Timestamp: now,
				})
			}

			mu.Lock()
			summary.Updated++
			mu.Unlock()
		}
	} else {
		mu.Lock()
		summary.Unchanged++
		mu.Unlock()
	}

	st.LastSeen = now

	return r.store.PutHost(ctx, &st)
}

// detectMissing walks all tracked hosts that did not appear in this fetch
// and manages absence notifications. Hosts removed from the configured
// groups are treated as missing; there is no group-membership carve-out.
func (r *Reconciler) detectMissing(
	ctx context.Context,
	fetched map[string]struct{},
	now time.Time,
	summary *models.PassSummary,
	mu *sync.Mutex,
) error {
	active, err := r.store.ListActive(ctx)
	if err != nil {
		return err
	}

	for _, id := range active {
		if _, ok := fetched[id]; ok {
			continue
		}

		st, found, err := r.store.GetHost(ctx, id)
		if err != nil {
			return err
		}

		if !found { // expired between list and get
			continue
		}

		if !st.IsMissing() {
			st.MissingSince = &now
			st.LastNotifiedMissing = &now

			r.emit(ctx, &models.Event{
				Kind:     models.EventHostMissing,
				Level:    models.LevelWarning,
				HostID:   id,
				HostName: st.Fields[models.FieldName],
				Details: map[string]any{
					"last_seen": st.LastSeen,
				},
				Timestamp: now,
			})

			mu.Lock()
			summary.NewlyMissing++
			mu.Unlock()
		} else {
			lastNotified := *st.MissingSince
			if st.LastNotifiedMissing != nil {
				lastNotified = *st.LastNotifiedMissing
			}

			if r.schedule.Due(*st.MissingSince, lastNotified, now) {
				st.LastNotifiedMissing = &now

				r.emit(ctx, &models.Event{
					Kind:     models.EventHostMissing,
					Level:    models.LevelWarning,
					HostID:   id,
					HostName: st.Fields[models.FieldName],
					Details: map[string]any{
						"missing_hours": now.Sub(*st.MissingSince).Hours(),
						"last_seen":     st.LastSeen,
					},
					Timestamp: now,
				})

				mu.Lock()
				summary.Escalated++
				mu.Unlock()
			}
		}

		// Rewrite even when nothing changed so the record's expiry is
		// refreshed; a missing host must not fall out of the store
		// while it is still being escalated.
		if err := r.store.PutHost(ctx, st); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reconciler) fetchHosts(ctx context.Context) ([]models.RawHost, error) {
	return retryCall(ctx, r.retry, func() ([]models.RawHost, error) {
		var hosts []models.RawHost

		err := r.sourceBreaker.Execute(ctx, func() error {
			var err error
			hosts, err = r.source.ListHosts(ctx, r.config.Groups)

			return err
		})

		return hosts, err
	})
}

func (r *Reconciler) findTarget(ctx context.Context, sourceID string) (*TargetRecord, error) {
	return retryCall(ctx, r.retry, func() (*TargetRecord, error) {
		var rec *TargetRecord

		err := r.targetBreaker.Execute(ctx, func() error {
			var err error
			rec, err = r.target.FindByExternalID(ctx, sourceID)

			return err
		})

		return rec, err
	})
}

func (r *Reconciler) createTarget(ctx context.Context, sourceID string, fields models.FieldMap) (string, error) {
	return retryCall(ctx, r.retry, func() (string, error) {
		var id string

		err := r.targetBreaker.Execute(ctx, func() error {
			var err error
			id, err = r.target.CreateRecord(ctx, sourceID, fields)

			return err
		})

		return id, err
	})
}

func (r *Reconciler) updateTarget(ctx context.Context, targetID string, fields models.FieldMap) error {
	_, err := retryCall(ctx, r.retry, func() (struct{}, error) {
		return struct{}{}, r.targetBreaker.Execute(ctx, func() error {
			return r.target.UpdateRecord(ctx, targetID, fields)
		})
	})

	return err
}

// recordHostError counts a per-host failure and reports it without
// aborting the pass.
func (r *Reconciler) recordHostError(
	ctx context.Context,
	sourceID string,
	fields models.FieldMap,
	err error,
	summary *models.PassSummary,
	mu *sync.Mutex,
) {
	r.logger.Error().
		Err(err).
		Str("host_id", sourceID).
		Str("name", fields[models.FieldName]).
		Msg("Host reconciliation failed")

	r.emit(ctx, &models.Event{
		Kind:     models.EventSyncError,
		Level:    models.LevelError,
		HostID:   sourceID,
		HostName: fields[models.FieldName],
		Details: map[string]any{
			"error": err.Error(),
		},
		Timestamp: r.clock.Now(),
	})

	mu.Lock()
	summary.Errors++
	mu.Unlock()
}

// emitPassFailure sends the best-effort alert for a pass-level abort.
func (r *Reconciler) emitPassFailure(ctx context.Context, err error, now time.Time) {
	r.emit(ctx, &models.Event{
		Kind:      models.EventPassFailure,
		Level:     models.LevelError,
		Details:   map[string]any{"error": err.Error()},
		Timestamp: now,
	})
}

// emit delivers an event, swallowing notifier failures: notifications never
// block reconciliation.
func (r *Reconciler) emit(ctx context.Context, event *models.Event) {
	if r.notifier == nil {
		return
	}

	if err := r.notifier.Send(ctx, event); err != nil {
		r.logger.Error().
			Err(err).
			Str("kind", string(event.Kind)).
			Str("host_id", event.HostID).
			Msg("Failed to send notification")
	}
}

var errPreflightFailed = fmt.Errorf("pre-flight check failed")

// Preflight verifies connectivity to every dependency before a pass.
func (r *Reconciler) Preflight(ctx context.Context) error {
	var failed []string

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"store", r.store.Ping},
		{"source", r.source.Ping},
		{"target", r.target.Ping},
	}

	if hc, ok := r.notifier.(HealthChecker); ok {
		checks = append(checks, struct {
			name string
			fn   func(context.Context) error
		}{"notifier", hc.Ping})
	}

	for _, c := range checks {
		if err := c.fn(ctx); err != nil {
			r.logger.Error().Err(err).Str("dependency", c.name).Msg("Pre-flight check failed")
			failed = append(failed, c.name)

			continue
		}

		r.logger.Info().Str("dependency", c.name).Msg("Pre-flight check passed")
	}

	if len(failed) > 0 {
		return fmt.Errorf("%w: %v", errPreflightFailed, failed)
	}

	return nil
}
