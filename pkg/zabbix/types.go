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

package zabbix

import "encoding/json"

// rpcRequest is a JSON-RPC 2.0 envelope for the Zabbix API.
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
	ID      int64       `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
	ID      int64           `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

// hostGroup is the subset of hostgroup.get output we request.
type hostGroup struct {
	GroupID string `json:"groupid"`
	Name    string `json:"name"`
}

// hostInterface is a host interface entry. Zabbix reports main and type as
// string-encoded integers.
type hostInterface struct {
	IP   string `json:"ip"`
	Main string `json:"main"`
	Type string `json:"type"`
}

// hostInventory is the subset of inventory fields we request.
type hostInventory struct {
	Name      string `json:"name"`
	OS        string `json:"os"`
	SerialNoA string `json:"serialno_a"`
	SerialNoB string `json:"serialno_b"`
	Hardware  string `json:"hardware"`
}

// host is the host.get output shape. Inventory arrives as [] when a host has
// no inventory enabled, so it needs a lenient decoder.
type host struct {
	HostID     string            `json:"hostid"`
	Host       string            `json:"host"`
	Name       string            `json:"name"`
	Status     string            `json:"status"`
	Groups     []hostGroup       `json:"groups"`
	Interfaces []hostInterface   `json:"interfaces"`
	Inventory  optionalInventory `json:"inventory"`
}

// optionalInventory tolerates the Zabbix quirk of returning an empty array
// instead of an object when inventory is disabled for a host.
type optionalInventory struct {
	hostInventory
}

func (o *optionalInventory) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		return nil
	}

	return json.Unmarshal(b, &o.hostInventory)
}
