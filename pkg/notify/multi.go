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

package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
	"github.com/carverauto/storagesync/pkg/reconciler"
)

var errDeliveryFailed = errors.New("failed to deliver to some sinks")

// Multi fans an event out to every configured sink. A cooldown suppression
// is not a failure; real failures are logged per sink and aggregated.
type Multi struct {
	sinks  []reconciler.Notifier
	logger logger.Logger
}

var _ reconciler.Notifier = (*Multi)(nil)

// NewMulti builds a fan-out notifier over the given sinks.
func NewMulti(log logger.Logger, sinks ...reconciler.Notifier) *Multi {
	return &Multi{sinks: sinks, logger: log}
}

// FromConfig assembles the sink set from the notification configuration.
func FromConfig(config models.NotifyConfig, log logger.Logger) *Multi {
	var sinks []reconciler.Notifier

	for _, wh := range config.Webhooks {
		if wh.Enabled {
			sinks = append(sinks, NewWebhook(wh, log))
		}
	}

	if config.Telegram != nil && config.Telegram.Enabled {
		sinks = append(sinks, NewTelegram(*config.Telegram, log))
	}

	return NewMulti(log, sinks...)
}

// Send delivers the event to every sink.
func (m *Multi) Send(ctx context.Context, event *models.Event) error {
	var errs []error

	for _, sink := range m.sinks {
		err := sink.Send(ctx, event)

		switch {
		case err == nil:
		case errors.Is(err, ErrCooldown):
			m.logger.Debug().
				Str("kind", string(event.Kind)).
				Str("host_id", event.HostID).
				Msg("Alert suppressed by cooldown")
		default:
			m.logger.Error().Err(err).
				Str("kind", string(event.Kind)).
				Str("host_id", event.HostID).
				Msg("Alert delivery failed")

			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", errDeliveryFailed, errs)
	}

	return nil
}

// Ping verifies every sink that supports a connectivity check.
func (m *Multi) Ping(ctx context.Context) error {
	var errs []error

	for _, sink := range m.sinks {
		if checker, ok := sink.(reconciler.HealthChecker); ok {
			if err := checker.Ping(ctx); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", errDeliveryFailed, errs)
	}

	return nil
}
