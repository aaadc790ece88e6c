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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
)

const defaultHTTPTimeout = 30 * time.Second

var (
	// ErrCooldown marks a delivery skipped because the same host and event
	// kind fired within the cooldown window. Callers treat it as success.
	ErrCooldown = errors.New("alert suppressed by cooldown")

	errWebhookStatus = errors.New("webhook returned error status")
)

// Webhook posts alerts to a single HTTP endpoint with a per-host, per-kind
// cooldown so a flapping host cannot flood the sink.
type Webhook struct {
	config     models.WebhookConfig
	httpClient *http.Client
	logger     logger.Logger

	mu       sync.Mutex
	lastSent map[string]time.Time

	now func() time.Time
}

// NewWebhook creates a webhook notifier. Disabled configs still produce a
// notifier; Send is then a no-op.
func NewWebhook(config models.WebhookConfig, log logger.Logger) *Webhook {
	return &Webhook{
		config:     config,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     log,
		lastSent:   make(map[string]time.Time),
		now:        time.Now,
	}
}

// Send posts the event as an Alert. Deliveries inside the cooldown window
// return ErrCooldown.
func (w *Webhook) Send(ctx context.Context, event *models.Event) error {
	if !w.config.Enabled {
		return nil
	}

	if err := w.checkCooldown(event); err != nil {
		return err
	}

	payload, err := json.Marshal(FromEvent(event))
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	for _, header := range w.config.Headers {
		req.Header.Set(header.Key, header.Value)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			w.logger.Warn().Err(cerr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %d", errWebhookStatus, resp.StatusCode)
	}

	w.markSent(event)

	return nil
}

// checkCooldown suppresses repeats of the same kind for the same host inside
// the window. Escalating absence notifications are exempt: their cadence is
// governed by the escalation schedule, not the sink cooldown.
func (w *Webhook) checkCooldown(event *models.Event) error {
	cooldown := time.Duration(w.config.Cooldown)
	if cooldown <= 0 || event.Kind == models.EventHostMissing || event.Kind == models.EventDailyReport {
		return nil
	}

	key := string(event.Kind) + "|" + event.HostID

	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.lastSent[key]; ok && w.now().Sub(last) < cooldown {
		return fmt.Errorf("%w: %s", ErrCooldown, key)
	}

	return nil
}

func (w *Webhook) markSent(event *models.Event) {
	key := string(event.Kind) + "|" + event.HostID

	w.mu.Lock()
	w.lastSent[key] = w.now()
	w.mu.Unlock()
}
