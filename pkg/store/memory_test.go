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

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/storagesync/pkg/models"
)

func trackedHost(id string) *models.TrackedHost {
	return &models.TrackedHost{
		SourceID:    id,
		TargetID:    "42",
		Fields:      models.FieldMap{models.FieldName: "SAN " + id},
		Fingerprint: "abc",
		SchemaVer:   models.FieldSchemaVersion,
		LastSeen:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStorePutGet(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0, 0, nil)

	_, found, err := st.GetHost(ctx, "10501")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, st.PutHost(ctx, trackedHost("10501")))

	got, found, err := st.GetHost(ctx, "10501")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "42", got.TargetID)
	assert.Equal(t, "SAN 10501", got.Fields[models.FieldName])
}

func TestMemoryStoreRetention(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore(14*24*time.Hour, 0, func() time.Time { return now })

	require.NoError(t, st.PutHost(ctx, trackedHost("10501")))
	require.NoError(t, st.PutHost(ctx, trackedHost("10502")))

	// Refresh one record a week in; the other keeps its original expiry.
	now = now.Add(7 * 24 * time.Hour)
	require.NoError(t, st.PutHost(ctx, trackedHost("10502")))

	// Past the first record's window only the refreshed one survives.
	now = now.Add(8 * 24 * time.Hour)

	ids, err := st.ListActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10502"}, ids)

	_, found, err := st.GetHost(ctx, "10501")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0, 0, nil)

	require.NoError(t, st.PutHost(ctx, trackedHost("10501")))
	require.NoError(t, st.DeleteHost(ctx, "10501"))

	_, found, err := st.GetHost(ctx, "10501")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreLease(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore(0, 30*time.Minute, func() time.Time { return now })

	require.NoError(t, st.AcquireLease(ctx, "pass-1"))
	assert.ErrorIs(t, st.AcquireLease(ctx, "pass-2"), ErrLeaseHeld)

	// Only the owner can release.
	assert.ErrorIs(t, st.ReleaseLease(ctx, "pass-2"), ErrNotLeaseOwner)
	require.NoError(t, st.ReleaseLease(ctx, "pass-1"))

	require.NoError(t, st.AcquireLease(ctx, "pass-2"))
}

func TestMemoryStoreLeaseExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewMemoryStore(0, 30*time.Minute, func() time.Time { return now })

	require.NoError(t, st.AcquireLease(ctx, "abandoned"))

	// An abandoned pass does not wedge the next one past the TTL.
	now = now.Add(31 * time.Minute)
	require.NoError(t, st.AcquireLease(ctx, "pass-2"))
}
