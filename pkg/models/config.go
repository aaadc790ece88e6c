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

package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var errInvalidDuration = errors.New("invalid duration")

// Duration is a time.Duration that unmarshals from either a duration string
// ("30m") or a numeric nanosecond count.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errInvalidDuration, err)
		}

		*d = Duration(dur)

		return nil
	default:
		return errInvalidDuration
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// SourceConfig describes the monitoring system that acts as the source of
// truth for which storage hosts exist.
type SourceConfig struct {
	Endpoint           string            `json:"endpoint"`
	Credentials        map[string]string `json:"credentials"` // e.g. {"api_token": "..."}
	Groups             []string          `json:"groups"`      // host groups to track
	Timeout            Duration          `json:"timeout,omitempty"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify,omitempty"`
}

// TargetConfig describes the downstream asset-management system.
type TargetConfig struct {
	Endpoint           string            `json:"endpoint"`
	Credentials        map[string]string `json:"credentials"`
	ExternalIDField    string            `json:"external_id_field,omitempty"` // custom field holding the source host id
	RoleName           string            `json:"role_name,omitempty"`
	SiteMap            map[string]string `json:"site_map,omitempty"` // source group -> target site
	Timeout            Duration          `json:"timeout,omitempty"`
	InsecureSkipVerify bool              `json:"insecure_skip_verify,omitempty"`
}

// StoreConfig describes the NATS JetStream KV buckets backing the state
// store.
type StoreConfig struct {
	NATSURL   string   `json:"nats_url"`
	Bucket    string   `json:"bucket"`
	Retention Duration `json:"retention"` // per-record expiry, refreshed on write
	LeaseTTL  Duration `json:"lease_ttl"` // advisory pass-lock expiry

	// TLS enables mutual TLS to the NATS server when set.
	TLS *TLSConfig `json:"tls,omitempty"`
}

// TLSConfig holds certificate paths for mutual TLS.
type TLSConfig struct {
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	CAFile     string `json:"ca_file"`
	ServerName string `json:"server_name,omitempty"`
}

// WebhookConfig represents a webhook notification sink.
type WebhookConfig struct {
	Enabled  bool     `json:"enabled"`
	URL      string   `json:"url"`
	Cooldown Duration `json:"cooldown"`
	Headers  []Header `json:"headers,omitempty"`
}

// Header represents a custom HTTP header.
type Header struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TelegramConfig represents the Telegram bot notification sink.
type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// NotifyConfig groups all notification sinks.
type NotifyConfig struct {
	Webhooks []WebhookConfig `json:"webhooks,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
}
