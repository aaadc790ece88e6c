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
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/models"
)

// fakeNetbox is a minimal in-memory NetBox API for exercising the client's
// lookup-then-create flows.
type fakeNetbox struct {
	t *testing.T

	mux *http.ServeMux

	devices       []map[string]interface{}
	manufacturers map[string]int
	deviceTypes   map[string]int
	interfaces    map[string]int
	ipAddresses   map[string]int
	patches       []string

	nextID int
}

func newFakeNetbox(t *testing.T) *fakeNetbox {
	t.Helper()

	f := &fakeNetbox{
		t:             t,
		mux:           http.NewServeMux(),
		manufacturers: make(map[string]int),
		deviceTypes:   make(map[string]int),
		interfaces:    make(map[string]int),
		ipAddresses:   make(map[string]int),
		nextID:        100,
	}

	f.mux.HandleFunc("/api/status/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]string{"netbox-version": "4.1.0"})
	})

	f.mux.HandleFunc("/api/dcim/sites/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") == "DC Almaty" {
			writeJSON(t, w, listResponse[site]{Count: 1, Results: []site{{ID: 7, Name: "DC Almaty"}}})
			return
		}

		writeJSON(t, w, listResponse[site]{})
	})

	f.mux.HandleFunc("/api/dcim/device-roles/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(t, w, deviceRole{ID: 3, Name: "Storage", Slug: "storage"})
			return
		}

		writeJSON(t, w, listResponse[deviceRole]{})
	})

	f.mux.HandleFunc("/api/dcim/manufacturers/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body := decodeBody(t, r)
			id := f.id()
			f.manufacturers[body["slug"].(string)] = id
			writeJSON(t, w, manufacturer{ID: id})

			return
		}

		slug := r.URL.Query().Get("slug")
		if id, ok := f.manufacturers[slug]; ok {
			writeJSON(t, w, listResponse[manufacturer]{Count: 1, Results: []manufacturer{{ID: id, Slug: slug}}})
			return
		}

		writeJSON(t, w, listResponse[manufacturer]{})
	})

	f.mux.HandleFunc("/api/dcim/device-types/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body := decodeBody(t, r)
			id := f.id()
			f.deviceTypes[body["slug"].(string)] = id
			writeJSON(t, w, deviceType{ID: id})

			return
		}

		slug := r.URL.Query().Get("slug")
		if id, ok := f.deviceTypes[slug]; ok {
			writeJSON(t, w, listResponse[deviceType]{Count: 1, Results: []deviceType{{ID: id, Slug: slug}}})
			return
		}

		writeJSON(t, w, listResponse[deviceType]{})
	})

	f.mux.HandleFunc("/api/dcim/devices/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			body := decodeBody(t, r)
			body["id"] = float64(f.id())
			f.devices = append(f.devices, body)
			writeJSON(t, w, map[string]interface{}{"id": body["id"], "name": body["name"]})
		default:
			writeJSON(t, w, listResponse[device]{})
		}
	})

	f.mux.HandleFunc("/api/dcim/interfaces/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			id := f.id()
			f.interfaces["mgmt"] = id
			writeJSON(t, w, deviceInterface{ID: id, Name: "mgmt"})

			return
		}

		writeJSON(t, w, listResponse[deviceInterface]{})
	})

	f.mux.HandleFunc("/api/ipam/ip-addresses/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body := decodeBody(t, r)
			id := f.id()
			f.ipAddresses[body["address"].(string)] = id
			writeJSON(t, w, ipAddress{ID: id})

			return
		}

		writeJSON(t, w, listResponse[ipAddress]{})
	})

	return f
}

func (f *fakeNetbox) handlePatches() {
	// Item-level PATCH endpoints register per-path, so catch them with a
	// wildcard on the fake's mux.
	f.mux.HandleFunc("PATCH /api/dcim/devices/{id}/", func(w http.ResponseWriter, r *http.Request) {
		f.patches = append(f.patches, r.URL.Path)
		writeJSON(f.t, w, map[string]int{"id": 0})
	})
	f.mux.HandleFunc("PATCH /api/ipam/ip-addresses/{id}/", func(w http.ResponseWriter, r *http.Request) {
		f.patches = append(f.patches, r.URL.Path)
		writeJSON(f.t, w, map[string]int{"id": 0})
	})
}

func (f *fakeNetbox) id() int {
	f.nextID++
	return f.nextID
}

func writeJSON(t *testing.T, w http.ResponseWriter, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

	return body
}

func testClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()

	return NewClient(&models.TargetConfig{
		Endpoint:    server.URL,
		Credentials: map[string]string{"api_token": "nb-token"},
		SiteMap:     map[string]string{"Almaty": "DC Almaty"},
	}, logger.NewTestLogger())
}

func storageFields() models.FieldMap {
	return models.FieldMap{
		models.FieldName:      "SAN Almaty 01",
		models.FieldIP:        "10.0.0.5",
		models.FieldStatus:    "0",
		models.FieldOS:        "ONTAP 9.13",
		models.FieldSerialA:   "SN-A1",
		models.FieldSerialB:   "SN-B1",
		models.FieldHardware:  "NetApp FAS8300",
		models.FieldSiteGroup: "Almaty",
	}
}

func TestFindByExternalID(t *testing.T) {
	var query string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/dcim/devices/", r.URL.Path)
		require.Equal(t, "Token nb-token", r.Header.Get("Authorization"))

		query = r.URL.RawQuery
		writeJSON(t, w, listResponse[device]{Count: 1, Results: []device{{ID: 42, Name: "SAN Almaty 01"}}})
	}))
	defer server.Close()

	client := testClient(t, server)

	rec, err := client.FindByExternalID(context.Background(), "10501")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "42", rec.ID)
	assert.Equal(t, "SAN Almaty 01", rec.Name)
	assert.Equal(t, "cf_zabbix_hostid=10501", query)
}

func TestFindByExternalIDAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, listResponse[device]{})
	}))
	defer server.Close()

	client := testClient(t, server)

	rec, err := client.FindByExternalID(context.Background(), "10501")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCreateRecord(t *testing.T) {
	fake := newFakeNetbox(t)
	fake.handlePatches()

	server := httptest.NewServer(fake.mux)
	defer server.Close()

	client := testClient(t, server)

	id, err := client.CreateRecord(context.Background(), "10501", storageFields())
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, fake.devices, 1)
	created := fake.devices[0]
	assert.Equal(t, "SAN Almaty 01", created["name"])
	assert.Equal(t, float64(7), created["site"])
	assert.Equal(t, float64(3), created["role"])
	assert.Equal(t, "active", created["status"])

	cf, ok := created["custom_fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "10501", cf["zabbix_hostid"])
	assert.Equal(t, "ONTAP 9.13", cf["os_version"])
	assert.Equal(t, "SN-A1", cf["serial_a"])
	assert.Equal(t, "SN-B1", cf["serial_b"])
	assert.Equal(t, "NetApp FAS8300", cf["hardware_info"])
	assert.NotEmpty(t, cf["last_sync"])

	// Manufacturer and device type were created on the way.
	assert.Contains(t, fake.manufacturers, "netapp")
	assert.Contains(t, fake.deviceTypes, "netapp-fas8300")

	// IP got created, bound to the mgmt interface, and the device was
	// patched to make it primary.
	assert.Contains(t, fake.ipAddresses, "10.0.0.5/32")
	assert.NotEmpty(t, fake.patches)
}

func TestCreateRecordDependenciesCached(t *testing.T) {
	fake := newFakeNetbox(t)
	fake.handlePatches()

	server := httptest.NewServer(fake.mux)
	defer server.Close()

	client := testClient(t, server)

	_, err := client.CreateRecord(context.Background(), "10501", storageFields())
	require.NoError(t, err)

	fields := storageFields()
	fields[models.FieldName] = "SAN Almaty 02"

	_, err = client.CreateRecord(context.Background(), "10502", fields)
	require.NoError(t, err)

	// Second create reuses the cached manufacturer and device type rather
	// than re-creating them.
	assert.Len(t, fake.manufacturers, 1)
	assert.Len(t, fake.deviceTypes, 1)
	assert.Len(t, fake.devices, 2)
}

func TestCreateRecordNoSiteMapping(t *testing.T) {
	fake := newFakeNetbox(t)

	server := httptest.NewServer(fake.mux)
	defer server.Close()

	client := testClient(t, server)

	fields := storageFields()
	fields[models.FieldSiteGroup] = "Mars"

	_, err := client.CreateRecord(context.Background(), "10501", fields)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTargetRejected)
}

func TestUpdateRecord(t *testing.T) {
	var patched []map[string]interface{}

	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/dcim/devices/42/", func(w http.ResponseWriter, r *http.Request) {
		patched = append(patched, decodeBody(t, r))
		writeJSON(t, w, map[string]int{"id": 42})
	})
	mux.HandleFunc("/api/dcim/interfaces/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(t, w, deviceInterface{ID: 9, Name: "mgmt"})
			return
		}
		writeJSON(t, w, listResponse[deviceInterface]{})
	})
	mux.HandleFunc("/api/ipam/ip-addresses/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeJSON(t, w, ipAddress{ID: 11})
			return
		}
		writeJSON(t, w, listResponse[ipAddress]{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	err := client.UpdateRecord(context.Background(), "42", storageFields())
	require.NoError(t, err)

	// First patch carries the field update, the second marks the IP primary.
	require.Len(t, patched, 2)
	assert.Equal(t, "SAN Almaty 01", patched[0]["name"])

	cf, ok := patched[0]["custom_fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ONTAP 9.13", cf["os_version"])
	assert.NotEmpty(t, cf["last_sync"])
	assert.Equal(t, float64(11), patched[1]["primary_ip4"])
}

func TestUpdateRecordBadTargetID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer server.Close()

	client := testClient(t, server)

	err := client.UpdateRecord(context.Background(), "not-a-number", storageFields())
	assert.ErrorIs(t, err, models.ErrTargetRejected)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, models.ErrTargetRejected},
		{http.StatusForbidden, models.ErrTargetRejected},
		{http.StatusInternalServerError, models.ErrTargetUnavailable},
		{http.StatusBadGateway, models.ErrTargetUnavailable},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := testClient(t, server)

			_, err := client.FindByExternalID(context.Background(), "1")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPingUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := testClient(t, server)

	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, models.ErrTargetUnavailable)
}

func TestBootstrap(t *testing.T) {
	var createdFields []string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/dcim/device-roles/", func(w http.ResponseWriter, _ *http.Request) {
		// Role already exists.
		writeJSON(t, w, listResponse[deviceRole]{Count: 1, Results: []deviceRole{{ID: 3, Slug: "storage"}}})
	})
	mux.HandleFunc("/api/extras/custom-fields/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			body := decodeBody(t, r)
			createdFields = append(createdFields, body["name"].(string))
			writeJSON(t, w, customFieldDef{ID: 1})

			return
		}

		// last_sync already exists, everything else is missing.
		if r.URL.Query().Get("name") == "last_sync" {
			writeJSON(t, w, listResponse[customFieldDef]{Count: 1, Results: []customFieldDef{{ID: 5, Name: "last_sync"}}})
			return
		}

		writeJSON(t, w, listResponse[customFieldDef]{})
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	client := testClient(t, server)

	require.NoError(t, client.Bootstrap(context.Background()))
	assert.ElementsMatch(t,
		[]string{"zabbix_hostid", "os_version", "serial_a", "serial_b", "hardware_info"},
		createdFields)
}
