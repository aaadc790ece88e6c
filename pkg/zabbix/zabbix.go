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

// Package zabbix is a JSON-RPC 2.0 client for the Zabbix API, scoped to the
// host inventory reads the reconciler needs.
package zabbix

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
	"github.com/carverauto/storagesync/pkg/reconciler"
)

const (
	apiPath        = "/api_jsonrpc.php"
	defaultTimeout = 30 * time.Second

	// interfaceTypeAgent is the Zabbix agent interface type. Primary IP
	// selection prefers the main agent interface, then any main
	// interface, then the first one reported.
	interfaceTypeAgent = "1"
	interfaceMain      = "1"
)

var (
	errAPIError     = errors.New("zabbix api error")
	errGroupsAbsent = errors.New("no matching host groups")
)

// Client talks to one Zabbix server. It authenticates lazily with either a
// pre-issued API token or a username/password login, and is safe for
// concurrent use.
type Client struct {
	config     *models.SourceConfig
	httpClient *http.Client
	logger     logger.Logger

	mu        sync.Mutex
	authToken string

	rpcID atomic.Int64
}

var _ reconciler.SourceClient = (*Client)(nil)

// NewClient creates a Zabbix API client from the source configuration.
func NewClient(config *models.SourceConfig, log logger.Logger) *Client {
	timeout := time.Duration(config.Timeout)
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	//nolint:gosec // InsecureSkipVerify is operator-controlled for lab setups
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: config.InsecureSkipVerify,
				},
			},
		},
		logger: log,
	}
}

// ListHosts returns every host in the given groups, normalized to RawHost.
// Hosts without any interface still appear, with an empty IP.
func (c *Client) ListHosts(ctx context.Context, groups []string) ([]models.RawHost, error) {
	if err := c.ensureAuth(ctx); err != nil {
		return nil, err
	}

	groupList, err := c.getHostGroups(ctx, groups)
	if err != nil {
		return nil, err
	}

	if len(groupList) == 0 {
		return nil, fmt.Errorf("%w: %v: %w", models.ErrSourceUnavailable, groups, errGroupsAbsent)
	}

	groupIDs := make([]string, 0, len(groupList))
	tracked := make(map[string]bool, len(groupList))

	for _, g := range groupList {
		groupIDs = append(groupIDs, g.GroupID)
		tracked[g.Name] = true
	}

	var hosts []host

	params := map[string]interface{}{
		"output":           []string{"hostid", "host", "name", "status"},
		"groupids":         groupIDs,
		"selectGroups":     []string{"groupid", "name"},
		"selectInterfaces": []string{"ip", "main", "type"},
		"selectInventory":  []string{"name", "os", "serialno_a", "serialno_b", "hardware"},
	}

	if err := c.call(ctx, "host.get", params, &hosts); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("groups", len(groupList)).
		Int("hosts", len(hosts)).
		Msg("Fetched hosts from Zabbix")

	out := make([]models.RawHost, 0, len(hosts))
	for i := range hosts {
		out = append(out, normalizeHost(&hosts[i], tracked))
	}

	return out, nil
}

// Ping verifies the API is reachable. apiinfo.version requires no auth.
func (c *Client) Ping(ctx context.Context) error {
	var version string
	if err := c.call(ctx, "apiinfo.version", map[string]interface{}{}, &version); err != nil {
		return err
	}

	c.logger.Debug().Str("version", version).Msg("Zabbix API reachable")

	return nil
}

func (c *Client) getHostGroups(ctx context.Context, names []string) ([]hostGroup, error) {
	var groups []hostGroup

	params := map[string]interface{}{
		"output": []string{"groupid", "name"},
		"filter": map[string]interface{}{"name": names},
	}

	if err := c.call(ctx, "hostgroup.get", params, &groups); err != nil {
		return nil, err
	}

	return groups, nil
}

// ensureAuth makes sure a token is available for authenticated calls. A
// pre-issued api_token credential is used as-is; otherwise the client logs
// in once with username/password and caches the session token.
func (c *Client) ensureAuth(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.authToken != "" {
		return nil
	}

	if token := c.config.Credentials["api_token"]; token != "" {
		c.authToken = token
		return nil
	}

	var token string

	params := map[string]interface{}{
		"username": c.config.Credentials["username"],
		"password": c.config.Credentials["password"],
	}

	if err := c.callUnlocked(ctx, "user.login", params, &token); err != nil {
		return err
	}

	c.authToken = token

	c.logger.Info().Msg("Authenticated with Zabbix")

	return nil
}

func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.callUnlocked(ctx, method, params, out)
}

func (c *Client) callUnlocked(ctx context.Context, method string, params, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.rpcID.Add(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint+apiPath, bytes.NewReader(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json-rpc")

	// Zabbix 7.0+ takes the token as a bearer header; apiinfo.version and
	// user.login are the unauthenticated methods.
	if c.authToken != "" && method != "apiinfo.version" && method != "user.login" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status code %d", models.ErrSourceUnavailable, resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("%w: %w: %s - %s",
			models.ErrSourceUnavailable, errAPIError, rpcResp.Error.Message, rpcResp.Error.Data)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return fmt.Errorf("%w: %w", models.ErrSourceUnavailable, err)
		}
	}

	return nil
}

// normalizeHost flattens a Zabbix host into the recognized field schema.
// site group is the first of the host's groups that we were asked to track.
func normalizeHost(h *host, tracked map[string]bool) models.RawHost {
	siteGroup := ""

	for _, g := range h.Groups {
		if tracked[g.Name] {
			siteGroup = g.Name
			break
		}
	}

	return models.RawHost{
		ID:        h.HostID,
		Name:      h.Name,
		Status:    h.Status,
		IP:        primaryIP(h.Interfaces),
		OS:        h.Inventory.OS,
		SerialA:   h.Inventory.SerialNoA,
		SerialB:   h.Inventory.SerialNoB,
		Hardware:  h.Inventory.Hardware,
		SiteGroup: siteGroup,
	}
}

func primaryIP(interfaces []hostInterface) string {
	for _, iface := range interfaces {
		if iface.Main == interfaceMain && iface.Type == interfaceTypeAgent {
			return iface.IP
		}
	}

	for _, iface := range interfaces {
		if iface.Main == interfaceMain {
			return iface.IP
		}
	}

	if len(interfaces) > 0 {
		return interfaces[0].IP
	}

	return ""
}
