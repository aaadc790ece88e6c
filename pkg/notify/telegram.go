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
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
)

const telegramAPIBase = "https://api.telegram.org"

var (
	errTelegramNotOK    = errors.New("telegram api rejected request")
	errTelegramStatus   = errors.New("telegram returned error status")
	errTelegramNoConfig = errors.New("telegram bot token or chat id not set")
)

// Telegram sends HTML-formatted event messages through a bot.
type Telegram struct {
	config     models.TelegramConfig
	httpClient *http.Client
	logger     logger.Logger

	// baseURL is overridable in tests.
	baseURL string
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(config models.TelegramConfig, log logger.Logger) *Telegram {
	return &Telegram{
		config:     config,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     log,
		baseURL:    telegramAPIBase,
	}
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send renders the event as an HTML message and delivers it via sendMessage.
func (t *Telegram) Send(ctx context.Context, event *models.Event) error {
	if !t.config.Enabled {
		return nil
	}

	if t.config.BotToken == "" || t.config.ChatID == "" {
		return errTelegramNoConfig
	}

	payload := map[string]string{
		"chat_id":    t.config.ChatID,
		"text":       renderHTML(event),
		"parse_mode": "HTML",
	}

	return t.call(ctx, "sendMessage", payload)
}

// Ping verifies the bot token with getMe.
func (t *Telegram) Ping(ctx context.Context) error {
	if !t.config.Enabled {
		return nil
	}

	if t.config.BotToken == "" || t.config.ChatID == "" {
		return errTelegramNoConfig
	}

	return t.call(ctx, "getMe", nil)
}

func (t *Telegram) call(ctx context.Context, method string, payload map[string]string) error {
	url := fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.config.BotToken, method)

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			t.logger.Warn().Err(cerr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", errTelegramStatus, resp.StatusCode)
	}

	var apiResp telegramResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return err
	}

	if !apiResp.OK {
		return fmt.Errorf("%w: %s", errTelegramNotOK, apiResp.Description)
	}

	return nil
}

// renderHTML builds the message body. Field values are escaped; everything
// else is our own markup.
func renderHTML(event *models.Event) string {
	alert := FromEvent(event)

	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s %s</b>\n", levelBadge(event.Level), html.EscapeString(alert.Title))

	if event.HostName != "" {
		fmt.Fprintf(&b, "<b>Host:</b> %s\n", html.EscapeString(event.HostName))
	}

	b.WriteString(html.EscapeString(alert.Message))

	if event.Kind == models.EventFieldsChanged {
		writeFieldChanges(&b, event)
	}

	fmt.Fprintf(&b, "\n<i>%s</i>", event.Timestamp.UTC().Format(time.RFC3339))

	return b.String()
}

func writeFieldChanges(b *strings.Builder, event *models.Event) {
	fields, ok := event.Details["fields"].([]string)
	if !ok {
		return
	}

	b.WriteString("\n")

	for _, field := range fields {
		change, ok := event.Details[field].(map[string]string)
		if !ok {
			continue
		}

		fmt.Fprintf(b, "\n• <b>%s:</b> %s → %s",
			html.EscapeString(field),
			html.EscapeString(change["old"]),
			html.EscapeString(change["new"]))
	}
}

func levelBadge(level models.EventLevel) string {
	switch level {
	case models.LevelWarning:
		return "⚠️"
	case models.LevelError:
		return "🔴"
	default:
		return "ℹ️"
	}
}
