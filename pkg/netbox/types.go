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

// listResponse is the NetBox paginated list envelope.
type listResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

type site struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type manufacturer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type deviceType struct {
	ID    int    `json:"id"`
	Model string `json:"model"`
	Slug  string `json:"slug"`
}

type deviceRole struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type device struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type deviceInterface struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ipAddress struct {
	ID               int    `json:"id"`
	Address          string `json:"address"`
	AssignedObjectID *int   `json:"assigned_object_id"`
}

type customFieldDef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
