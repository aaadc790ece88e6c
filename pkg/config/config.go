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

package config

import (
	"context"
	"os"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/reconciler"
)

// Config holds the configuration loading dependencies.
type Config struct {
	defaultLoader ConfigLoader
	logger        logger.Logger
}

// NewConfig initializes a Config with the default file loader.
func NewConfig(log logger.Logger) *Config {
	return &Config{
		defaultLoader: &FileConfigLoader{},
		logger:        log,
	}
}

// ValidateConfig validates a configuration if it implements Validator.
func ValidateConfig(cfg interface{}) error {
	v, ok := cfg.(Validator)
	if !ok {
		return nil
	}

	return v.Validate()
}

// LoadAndValidate loads a configuration file and validates it.
func (c *Config) LoadAndValidate(ctx context.Context, path string, cfg interface{}) error {
	if err := c.defaultLoader.Load(ctx, path, cfg); err != nil {
		return err
	}

	if rc, ok := cfg.(*reconciler.Config); ok {
		applySecretOverrides(rc)
	}

	return ValidateConfig(cfg)
}

// secretOverrides maps environment variables onto credential fields so
// secrets can stay out of the config file.
var secretOverrides = []struct {
	env   string
	apply func(*reconciler.Config, string)
}{
	{"SOURCE_API_TOKEN", func(c *reconciler.Config, v string) { setCredential(&c.Source.Credentials, "api_token", v) }},
	{"SOURCE_USERNAME", func(c *reconciler.Config, v string) { setCredential(&c.Source.Credentials, "username", v) }},
	{"SOURCE_PASSWORD", func(c *reconciler.Config, v string) { setCredential(&c.Source.Credentials, "password", v) }},
	{"TARGET_API_TOKEN", func(c *reconciler.Config, v string) { setCredential(&c.Target.Credentials, "api_token", v) }},
	{"NATS_URL", func(c *reconciler.Config, v string) { c.Store.NATSURL = v }},
	{"TELEGRAM_BOT_TOKEN", func(c *reconciler.Config, v string) {
		if c.Notify.Telegram != nil {
			c.Notify.Telegram.BotToken = v
		}
	}},
	{"TELEGRAM_CHAT_ID", func(c *reconciler.Config, v string) {
		if c.Notify.Telegram != nil {
			c.Notify.Telegram.ChatID = v
		}
	}},
}

func applySecretOverrides(cfg *reconciler.Config) {
	for _, o := range secretOverrides {
		if v := os.Getenv(o.env); v != "" {
			o.apply(cfg, v)
		}
	}
}

func setCredential(creds *map[string]string, key, value string) {
	if *creds == nil {
		*creds = make(map[string]string)
	}

	(*creds)[key] = value
}
