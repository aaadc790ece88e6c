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

package netbox

import (
	"context"
	"net/http"
	"net/url"
)

type customFieldSpec struct {
	Name        string
	Label       string
	Description string
}

// Bootstrap prepares a NetBox instance for syncing: it ensures the device
// role and every custom field the sync writes exist. Run once before the
// first pass; reruns are no-ops.
func (c *Client) Bootstrap(ctx context.Context) error {
	if _, err := c.ensureRole(ctx); err != nil {
		return err
	}

	specs := []customFieldSpec{
		{c.externalIDField(), "Source Host ID", "Host id in the upstream monitoring system (link key)"},
		{cfLastSync, "Last Sync", "Time of the last inventory sync"},
		{cfOSVersion, "OS/Firmware Version", "Storage array firmware version"},
		{cfSerialA, "Serial Number A", "Controller A serial number"},
		{cfSerialB, "Serial Number B", "Controller B serial number"},
		{cfHardware, "Hardware Info", "Raw hardware description from the source inventory"},
	}

	for _, spec := range specs {
		if err := c.ensureCustomField(ctx, spec); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) ensureCustomField(ctx context.Context, spec customFieldSpec) error {
	query := url.Values{"name": {spec.Name}}

	existing, err := list[customFieldDef](ctx, c, "/api/extras/custom-fields/?"+query.Encode())
	if err != nil {
		return err
	}

	if len(existing) > 0 {
		c.logger.Debug().Str("field", spec.Name).Msg("Custom field already exists")
		return nil
	}

	payload := map[string]interface{}{
		"name":         spec.Name,
		"type":         "text",
		"label":        spec.Label,
		"description":  spec.Description,
		"required":     false,
		"object_types": []string{"dcim.device"},
	}

	if err := c.do(ctx, http.MethodPost, "/api/extras/custom-fields/", payload, nil); err != nil {
		return err
	}

	c.logger.Info().Str("field", spec.Name).Msg("Created custom field")

	return nil
}
