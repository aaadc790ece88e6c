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

// Package netbox writes storage-device records to a NetBox inventory. The
// client is idempotent around record dependencies: manufacturers, device
// types, the device role and management IPs are looked up and created on
// demand, then cached for the life of the client.
package netbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
	"github.com/carverauto/storagesync/pkg/reconciler"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultExternalIDField = "zabbix_hostid"
	defaultRoleName        = "Storage"

	mgmtInterfaceName = "mgmt"

	cfLastSync  = "last_sync"
	cfOSVersion = "os_version"
	cfSerialA   = "serial_a"
	cfSerialB   = "serial_b"
	cfHardware  = "hardware_info"
)

var (
	errNoSite      = errors.New("no site for group")
	errEmptyCreate = errors.New("create returned no id")
)

// Client talks to one NetBox instance. Safe for concurrent use; dependency
// lookups are cached under a single mutex.
type Client struct {
	config     *models.TargetConfig
	httpClient *http.Client
	logger     logger.Logger

	mu            sync.Mutex
	roleID        int
	sites         map[string]int
	manufacturers map[string]int
	deviceTypes   map[string]int
}

var _ reconciler.TargetClient = (*Client)(nil)

// NewClient creates a NetBox API client from the target configuration.
func NewClient(config *models.TargetConfig, log logger.Logger) *Client {
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
		logger:        log,
		sites:         make(map[string]int),
		manufacturers: make(map[string]int),
		deviceTypes:   make(map[string]int),
	}
}

func (c *Client) externalIDField() string {
	if c.config.ExternalIDField != "" {
		return c.config.ExternalIDField
	}

	return defaultExternalIDField
}

func (c *Client) roleName() string {
	if c.config.RoleName != "" {
		return c.config.RoleName
	}

	return defaultRoleName
}

// FindByExternalID looks a device up by the source host id custom field.
// Returns nil when no device carries that id.
func (c *Client) FindByExternalID(ctx context.Context, sourceID string) (*reconciler.TargetRecord, error) {
	query := url.Values{"cf_" + c.externalIDField(): {sourceID}}

	devices, err := list[device](ctx, c, "/api/dcim/devices/?"+query.Encode())
	if err != nil {
		return nil, err
	}

	if len(devices) == 0 {
		return nil, nil
	}

	return &reconciler.TargetRecord{
		ID:   strconv.Itoa(devices[0].ID),
		Name: devices[0].Name,
	}, nil
}

// CreateRecord creates a device for the host, resolving its site from the
// site map and creating any missing manufacturer, device type and role on
// the way. The management IP is assigned best-effort after the device
// exists; an IP failure does not fail the create.
func (c *Client) CreateRecord(ctx context.Context, sourceID string, fields models.FieldMap) (string, error) {
	hardware := fields[models.FieldHardware]

	siteID, err := c.siteForGroup(ctx, fields[models.FieldSiteGroup])
	if err != nil {
		return "", err
	}

	typeID, err := c.ensureDeviceType(ctx, ModelFromHardware(hardware), ManufacturerFromHardware(hardware))
	if err != nil {
		return "", err
	}

	roleID, err := c.ensureRole(ctx)
	if err != nil {
		return "", err
	}

	var created device

	payload := map[string]interface{}{
		"name":        fields[models.FieldName],
		"device_type": typeID,
		"site":        siteID,
		"role":        roleID,
		"status":      "active",
		"custom_fields": map[string]interface{}{
			c.externalIDField(): sourceID,
			cfLastSync:          time.Now().UTC().Format(time.RFC3339),
			cfOSVersion:         fields[models.FieldOS],
			cfSerialA:           fields[models.FieldSerialA],
			cfSerialB:           fields[models.FieldSerialB],
			cfHardware:          hardware,
		},
	}

	if err := c.do(ctx, http.MethodPost, "/api/dcim/devices/", payload, &created); err != nil {
		return "", err
	}

	if created.ID == 0 {
		return "", fmt.Errorf("%w: %w", models.ErrTargetUnavailable, errEmptyCreate)
	}

	if ip := fields[models.FieldIP]; ip != "" {
		if err := c.assignPrimaryIP(ctx, created.ID, ip); err != nil {
			c.logger.Warn().Err(err).
				Int("device_id", created.ID).
				Str("ip", ip).
				Msg("Failed to assign primary IP")
		}
	}

	c.logger.Info().
		Str("name", fields[models.FieldName]).
		Int("device_id", created.ID).
		Msg("Created device in NetBox")

	return strconv.Itoa(created.ID), nil
}

// UpdateRecord patches an existing device with the current field values and
// refreshes the last_sync custom field.
func (c *Client) UpdateRecord(ctx context.Context, targetID string, fields models.FieldMap) error {
	id, err := strconv.Atoi(targetID)
	if err != nil {
		return fmt.Errorf("%w: bad target id %q", models.ErrTargetRejected, targetID)
	}

	payload := map[string]interface{}{
		"name": fields[models.FieldName],
		"custom_fields": map[string]interface{}{
			cfLastSync:  time.Now().UTC().Format(time.RFC3339),
			cfOSVersion: fields[models.FieldOS],
			cfSerialA:   fields[models.FieldSerialA],
			cfSerialB:   fields[models.FieldSerialB],
			cfHardware:  fields[models.FieldHardware],
		},
	}

	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/dcim/devices/%d/", id), payload, nil); err != nil {
		return err
	}

	if ip := fields[models.FieldIP]; ip != "" {
		if err := c.assignPrimaryIP(ctx, id, ip); err != nil {
			c.logger.Warn().Err(err).
				Int("device_id", id).
				Str("ip", ip).
				Msg("Failed to assign primary IP")
		}
	}

	return nil
}

// Ping verifies the API is reachable and the token is accepted.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/status/", nil, nil)
}

// siteForGroup resolves a source host group to a NetBox site id via the
// configured site map. Groups missing from the map are tried as literal
// site names.
func (c *Client) siteForGroup(ctx context.Context, group string) (int, error) {
	siteName := c.config.SiteMap[group]
	if siteName == "" {
		siteName = group
	}

	if siteName == "" {
		return 0, fmt.Errorf("%w: %w: host reported no group", models.ErrTargetRejected, errNoSite)
	}

	c.mu.Lock()
	id, ok := c.sites[siteName]
	c.mu.Unlock()

	if ok {
		return id, nil
	}

	query := url.Values{"name": {siteName}}

	sites, err := list[site](ctx, c, "/api/dcim/sites/?"+query.Encode())
	if err != nil {
		return 0, err
	}

	if len(sites) == 0 {
		return 0, fmt.Errorf("%w: %w %q (site %q)", models.ErrTargetRejected, errNoSite, group, siteName)
	}

	c.mu.Lock()
	c.sites[siteName] = sites[0].ID
	c.mu.Unlock()

	return sites[0].ID, nil
}

func (c *Client) ensureRole(ctx context.Context) (int, error) {
	c.mu.Lock()
	id := c.roleID
	c.mu.Unlock()

	if id != 0 {
		return id, nil
	}

	name := c.roleName()
	slug := slugify(name)
	query := url.Values{"slug": {slug}}

	roles, err := list[deviceRole](ctx, c, "/api/dcim/device-roles/?"+query.Encode())
	if err != nil {
		return 0, err
	}

	if len(roles) > 0 {
		id = roles[0].ID
	} else {
		var created deviceRole

		payload := map[string]interface{}{
			"name":  name,
			"slug":  slug,
			"color": "9c27b0",
		}

		if err := c.do(ctx, http.MethodPost, "/api/dcim/device-roles/", payload, &created); err != nil {
			return 0, err
		}

		c.logger.Info().Str("role", name).Int("id", created.ID).Msg("Created device role")

		id = created.ID
	}

	c.mu.Lock()
	c.roleID = id
	c.mu.Unlock()

	return id, nil
}

func (c *Client) ensureManufacturer(ctx context.Context, name string) (int, error) {
	if name == "" {
		name = unknownManufacturer
	}

	name = strings.TrimSpace(name)
	slug := slugify(name)

	c.mu.Lock()
	id, ok := c.manufacturers[slug]
	c.mu.Unlock()

	if ok {
		return id, nil
	}

	query := url.Values{"slug": {slug}}

	found, err := list[manufacturer](ctx, c, "/api/dcim/manufacturers/?"+query.Encode())
	if err != nil {
		return 0, err
	}

	if len(found) > 0 {
		id = found[0].ID
	} else {
		var created manufacturer

		payload := map[string]interface{}{"name": name, "slug": slug}
		if err := c.do(ctx, http.MethodPost, "/api/dcim/manufacturers/", payload, &created); err != nil {
			return 0, err
		}

		c.logger.Info().Str("manufacturer", name).Int("id", created.ID).Msg("Created manufacturer")

		id = created.ID
	}

	c.mu.Lock()
	c.manufacturers[slug] = id
	c.mu.Unlock()

	return id, nil
}

func (c *Client) ensureDeviceType(ctx context.Context, model, manufacturerName string) (int, error) {
	slug := slugify(model)
	cacheKey := manufacturerName + ":" + slug

	c.mu.Lock()
	id, ok := c.deviceTypes[cacheKey]
	c.mu.Unlock()

	if ok {
		return id, nil
	}

	manufacturerID, err := c.ensureManufacturer(ctx, manufacturerName)
	if err != nil {
		return 0, err
	}

	query := url.Values{
		"slug":            {slug},
		"manufacturer_id": {strconv.Itoa(manufacturerID)},
	}

	found, err := list[deviceType](ctx, c, "/api/dcim/device-types/?"+query.Encode())
	if err != nil {
		return 0, err
	}

	if len(found) > 0 {
		id = found[0].ID
	} else {
		var created deviceType

		payload := map[string]interface{}{
			"manufacturer": manufacturerID,
			"model":        model,
			"slug":         slug,
		}

		if err := c.do(ctx, http.MethodPost, "/api/dcim/device-types/", payload, &created); err != nil {
			return 0, err
		}

		c.logger.Info().Str("model", model).Int("id", created.ID).Msg("Created device type")

		id = created.ID
	}

	c.mu.Lock()
	c.deviceTypes[cacheKey] = id
	c.mu.Unlock()

	return id, nil
}

// assignPrimaryIP binds the management IP to the device's mgmt interface and
// marks it primary.
func (c *Client) assignPrimaryIP(ctx context.Context, deviceID int, ip string) error {
	if !strings.Contains(ip, "/") {
		ip += "/32"
	}

	ifaceID, err := c.ensureInterface(ctx, deviceID)
	if err != nil {
		return err
	}

	query := url.Values{"address": {ip}}

	addrs, err := list[ipAddress](ctx, c, "/api/ipam/ip-addresses/?"+query.Encode())
	if err != nil {
		return err
	}

	var ipID int

	if len(addrs) > 0 {
		ipID = addrs[0].ID

		if addrs[0].AssignedObjectID == nil || *addrs[0].AssignedObjectID != ifaceID {
			payload := map[string]interface{}{
				"assigned_object_type": "dcim.interface",
				"assigned_object_id":   ifaceID,
			}

			if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/ipam/ip-addresses/%d/", ipID), payload, nil); err != nil {
				return err
			}
		}
	} else {
		var created ipAddress

		payload := map[string]interface{}{
			"address":              ip,
			"status":               "active",
			"assigned_object_type": "dcim.interface",
			"assigned_object_id":   ifaceID,
		}

		if err := c.do(ctx, http.MethodPost, "/api/ipam/ip-addresses/", payload, &created); err != nil {
			return err
		}

		ipID = created.ID
	}

	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/dcim/devices/%d/", deviceID),
		map[string]interface{}{"primary_ip4": ipID}, nil)
}

func (c *Client) ensureInterface(ctx context.Context, deviceID int) (int, error) {
	query := url.Values{
		"device_id": {strconv.Itoa(deviceID)},
		"name":      {mgmtInterfaceName},
	}

	found, err := list[deviceInterface](ctx, c, "/api/dcim/interfaces/?"+query.Encode())
	if err != nil {
		return 0, err
	}

	if len(found) > 0 {
		return found[0].ID, nil
	}

	var created deviceInterface

	payload := map[string]interface{}{
		"device": deviceID,
		"name":   mgmtInterfaceName,
		"type":   "other",
	}

	if err := c.do(ctx, http.MethodPost, "/api/dcim/interfaces/", payload, &created); err != nil {
		return 0, err
	}

	return created.ID, nil
}

// list fetches a paginated collection and returns the first page's results.
// Collections touched here (filtered lookups) fit one page.
func list[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var resp listResponse[T]
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}

	return resp.Results, nil
}

// do performs one API call. Transport failures and 5xx map to
// ErrTargetUnavailable, 4xx to ErrTargetRejected.
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader = http.NoBody

	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.Endpoint+path, body)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Token "+c.config.Credentials["api_token"])
	req.Header.Set("Accept", "application/json")

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrTargetUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Warn().Err(cerr).Msg("Failed to close response body")
		}
	}()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d on %s %s", models.ErrTargetUnavailable, resp.StatusCode, method, path)
	case resp.StatusCode >= http.StatusBadRequest:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: status %d on %s %s: %s",
			models.ErrTargetRejected, resp.StatusCode, method, path, strings.TrimSpace(string(detail)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %w", models.ErrTargetUnavailable, err)
		}
	}

	return nil
}
