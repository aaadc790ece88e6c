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

package reconciler

import (
	"errors"
	"time"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
)

const (
	defaultPollInterval = 30 * time.Minute
	defaultWorkers      = 8
	defaultRetention    = 14 * 24 * time.Hour
)

var (
	errMissingGroups         = errors.New("at least one source host group must be configured")
	errMissingSourceEndpoint = errors.New("source endpoint is required")
	errMissingTargetEndpoint = errors.New("target endpoint is required")
	errMissingNATS           = errors.New("store nats_url is required")
)

// Config is the full service configuration, loaded from JSON.
type Config struct {
	Groups       []string        `json:"groups"`
	PollInterval models.Duration `json:"poll_interval,omitempty"`
	DryRun       bool            `json:"dry_run,omitempty"`
	Workers      int             `json:"workers,omitempty"`

	// EscalationThresholds overrides the default absence notification
	// schedule; EscalationRepeat the repeat interval past the last
	// threshold.
	EscalationThresholds []models.Duration `json:"escalation_thresholds,omitempty"`
	EscalationRepeat     models.Duration   `json:"escalation_repeat,omitempty"`

	Source models.SourceConfig `json:"source"`
	Target models.TargetConfig `json:"target"`
	Store  models.StoreConfig  `json:"store"`
	Notify models.NotifyConfig `json:"notify,omitempty"`

	Logging *logger.Config `json:"logging,omitempty"`
}

func (c *Config) Validate() error {
	if len(c.Groups) == 0 {
		return errMissingGroups
	}

	if c.Source.Endpoint == "" {
		return errMissingSourceEndpoint
	}

	if c.Target.Endpoint == "" {
		return errMissingTargetEndpoint
	}

	if c.Store.NATSURL == "" {
		return errMissingNATS
	}

	if c.Store.Bucket == "" {
		c.Store.Bucket = "storagesync"
	}

	if time.Duration(c.Store.Retention) == 0 {
		c.Store.Retention = models.Duration(defaultRetention)
	}

	if time.Duration(c.PollInterval) == 0 {
		c.PollInterval = models.Duration(defaultPollInterval)
	}

	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}

	return nil
}

// Schedule builds the escalation schedule from the config, falling back to
// the default one.
func (c *Config) Schedule() Schedule {
	if len(c.EscalationThresholds) == 0 {
		return DefaultSchedule()
	}

	s := Schedule{
		Thresholds: make([]time.Duration, len(c.EscalationThresholds)),
		Repeat:     time.Duration(c.EscalationRepeat),
	}

	for i, t := range c.EscalationThresholds {
		s.Thresholds[i] = time.Duration(t)
	}

	return s.Normalize()
}
