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
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
)

func missingEvent(hours float64) *models.Event {
	return &models.Event{
		Kind:     models.EventHostMissing,
		Level:    models.LevelWarning,
		HostID:   "10501",
		HostName: "SAN Almaty 01",
		Details: map[string]any{
			"missing_hours": hours,
			"last_seen":     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFromEvent(t *testing.T) {
	alert := FromEvent(missingEvent(6.0))

	assert.Equal(t, models.LevelWarning, alert.Level)
	assert.Equal(t, "Storage host not responding", alert.Title)
	assert.Equal(t, "SAN Almaty 01 has been missing for 6.0h", alert.Message)
	assert.Equal(t, "10501", alert.HostID)
	assert.Equal(t, "2026-03-01T12:00:00Z", alert.Timestamp)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "30m", formatDuration(0.5))
	assert.Equal(t, "6.0h", formatDuration(6))
	assert.Equal(t, "1d 2h", formatDuration(26))
	assert.Equal(t, "2d", formatDuration(48.5))
}

func TestWebhookSend(t *testing.T) {
	var got Alert

	var header string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("X-Auth")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wh := NewWebhook(models.WebhookConfig{
		Enabled: true,
		URL:     server.URL,
		Headers: []models.Header{{Key: "X-Auth", Value: "Bearer secret"}},
	}, logger.NewTestLogger())

	require.NoError(t, wh.Send(context.Background(), missingEvent(6.0)))

	assert.Equal(t, "Bearer secret", header)
	assert.Equal(t, "Storage host not responding", got.Title)
	assert.Equal(t, models.LevelWarning, got.Level)
}

func TestWebhookDisabled(t *testing.T) {
	wh := NewWebhook(models.WebhookConfig{Enabled: false, URL: "http://unreachable.invalid"}, logger.NewTestLogger())

	// Never dials out.
	require.NoError(t, wh.Send(context.Background(), missingEvent(1)))
}

func TestWebhookCooldown(t *testing.T) {
	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wh := NewWebhook(models.WebhookConfig{
		Enabled:  true,
		URL:      server.URL,
		Cooldown: models.Duration(time.Hour),
	}, logger.NewTestLogger())

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	wh.now = func() time.Time { return now }

	event := &models.Event{
		Kind:      models.EventNewHost,
		Level:     models.LevelInfo,
		HostID:    "10501",
		HostName:  "SAN Almaty 01",
		Timestamp: now,
	}

	require.NoError(t, wh.Send(context.Background(), event))
	assert.ErrorIs(t, wh.Send(context.Background(), event), ErrCooldown)

	// A different host is not suppressed.
	other := *event
	other.HostID = "10502"
	require.NoError(t, wh.Send(context.Background(), &other))

	// After the window the same host goes through again.
	now = now.Add(2 * time.Hour)
	require.NoError(t, wh.Send(context.Background(), event))

	assert.Equal(t, 3, calls)
}

func TestWebhookCooldownExemptsEscalations(t *testing.T) {
	var calls int

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	wh := NewWebhook(models.WebhookConfig{
		Enabled:  true,
		URL:      server.URL,
		Cooldown: models.Duration(24 * time.Hour),
	}, logger.NewTestLogger())

	require.NoError(t, wh.Send(context.Background(), missingEvent(1)))
	require.NoError(t, wh.Send(context.Background(), missingEvent(6)))

	assert.Equal(t, 2, calls)
}

func TestWebhookErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	wh := NewWebhook(models.WebhookConfig{Enabled: true, URL: server.URL}, logger.NewTestLogger())

	assert.Error(t, wh.Send(context.Background(), missingEvent(1)))
}

func TestTelegramSend(t *testing.T) {
	var body map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottest-token/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeOK(t, w)
	}))
	defer server.Close()

	tg := NewTelegram(models.TelegramConfig{
		Enabled:  true,
		BotToken: "test-token",
		ChatID:   "-100200300",
	}, logger.NewTestLogger())
	tg.baseURL = server.URL

	event := &models.Event{
		Kind:     models.EventFieldsChanged,
		Level:    models.LevelInfo,
		HostID:   "10501",
		HostName: "SAN <Almaty> 01",
		Details: map[string]any{
			"fields": []string{"os"},
			"os":     map[string]string{"old": "ONTAP 9.12", "new": "ONTAP 9.13"},
		},
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, tg.Send(context.Background(), event))

	assert.Equal(t, "-100200300", body["chat_id"])
	assert.Equal(t, "HTML", body["parse_mode"])
	assert.Contains(t, body["text"], "Storage host changed")
	assert.Contains(t, body["text"], "SAN &lt;Almaty&gt; 01") // names are escaped
	assert.Contains(t, body["text"], "ONTAP 9.12")
	assert.Contains(t, body["text"], "ONTAP 9.13")
}

func TestTelegramAPIRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(telegramResponse{OK: false, Description: "chat not found"}))
	}))
	defer server.Close()

	tg := NewTelegram(models.TelegramConfig{Enabled: true, BotToken: "t", ChatID: "c"}, logger.NewTestLogger())
	tg.baseURL = server.URL

	err := tg.Send(context.Background(), missingEvent(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestTelegramPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottest-token/getMe", r.URL.Path)
		writeOK(t, w)
	}))
	defer server.Close()

	tg := NewTelegram(models.TelegramConfig{Enabled: true, BotToken: "test-token", ChatID: "c"}, logger.NewTestLogger())
	tg.baseURL = server.URL

	require.NoError(t, tg.Ping(context.Background()))
}

func writeOK(t *testing.T, w http.ResponseWriter) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(telegramResponse{OK: true}))
}

type stubNotifier struct {
	err   error
	calls int
}

func (s *stubNotifier) Send(context.Context, *models.Event) error {
	s.calls++
	return s.err
}

func TestMultiFanOut(t *testing.T) {
	healthy := &stubNotifier{}
	cooled := &stubNotifier{err: ErrCooldown}

	multi := NewMulti(logger.NewTestLogger(), healthy, cooled)

	// Cooldown suppression is not a delivery failure.
	require.NoError(t, multi.Send(context.Background(), missingEvent(1)))
	assert.Equal(t, 1, healthy.calls)
	assert.Equal(t, 1, cooled.calls)
}

func TestMultiAggregatesFailures(t *testing.T) {
	healthy := &stubNotifier{}
	broken := &stubNotifier{err: assert.AnError}

	multi := NewMulti(logger.NewTestLogger(), healthy, broken)

	err := multi.Send(context.Background(), missingEvent(1))
	require.Error(t, err)

	// The healthy sink still received the event.
	assert.Equal(t, 1, healthy.calls)
}

func TestFromConfigSkipsDisabledSinks(t *testing.T) {
	multi := FromConfig(models.NotifyConfig{
		Webhooks: []models.WebhookConfig{
			{Enabled: true, URL: "http://one"},
			{Enabled: false, URL: "http://two"},
		},
		Telegram: &models.TelegramConfig{Enabled: false},
	}, logger.NewTestLogger())

	assert.Len(t, multi.sinks, 1)
}
