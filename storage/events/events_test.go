// Copyright 2026 readnext Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package events

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	store, err := Open(filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	require.NoError(t, store.Init())
	t.Cleanup(func() {
		assert.NoError(t, store.Close())
	})
	return store
}

func newReadingEvents() []Event {
	timestamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []Event{
		{UserId: "alice", ItemId: "go-generics", Value: 1, Timestamp: timestamp},
		{UserId: "alice", ItemId: "io-uring", Value: 1, Timestamp: timestamp.Add(time.Minute)},
		{UserId: "bob", ItemId: "io-uring", Value: 1, Timestamp: timestamp.Add(2 * time.Minute)},
		{UserId: "carol", ItemId: "raft", Value: 1, Timestamp: timestamp.Add(3 * time.Minute)},
		{UserId: "dave", ItemId: "go-generics", Value: 1, Timestamp: timestamp.Add(4 * time.Minute)},
	}
}

func TestStore_InsertScan(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	inserted := newReadingEvents()
	require.NoError(t, store.Insert(ctx, inserted))

	var scanned []Event
	err := store.Scan(ctx, func(event Event) error {
		scanned = append(scanned, event)
		return nil
	})
	assert.NoError(t, err)
	require.Len(t, scanned, len(inserted))
	for i, event := range scanned {
		assert.Equal(t, inserted[i].UserId, event.UserId)
		assert.Equal(t, inserted[i].ItemId, event.ItemId)
		assert.Equal(t, inserted[i].Value, event.Value)
		assert.True(t, inserted[i].Timestamp.Equal(event.Timestamp))
	}
}

func TestStore_Counts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Insert(ctx, newReadingEvents()))

	count, err := store.CountEvents(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 5, count)
	count, err = store.CountUsers(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 4, count)
	count, err = store.CountItems(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestStore_Dataset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Insert(ctx, newReadingEvents()))

	data, err := store.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, data.CountUsers())
	assert.Equal(t, 3, data.CountItems())
	assert.Equal(t, 5, data.CountFeedback())
	// ids are remapped in first-seen order
	assert.Equal(t, int32(0), data.GetUserDict().Id("alice"))
	assert.Equal(t, int32(1), data.GetItemDict().Id("io-uring"))
	// alice read go-generics (0) and io-uring (1)
	assert.Equal(t, []int32{0, 1}, data.GetUserFeedback()[0].Indices)
}

func TestStore_DatasetMergesDuplicates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	timestamp := time.Now()
	require.NoError(t, store.Insert(ctx, []Event{
		{UserId: "alice", ItemId: "raft", Value: 1, Timestamp: timestamp},
		{UserId: "alice", ItemId: "raft", Value: 2, Timestamp: timestamp.Add(time.Hour)},
	}))
	data, err := store.Dataset(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, data.CountFeedback())
	assert.Equal(t, []float64{3}, data.GetUserFeedback()[0].Values)
}

func TestStore_EmptyDataset(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	data, err := store.Dataset(ctx)
	require.NoError(t, err)
	assert.Zero(t, data.CountUsers())
	assert.Zero(t, data.CountItems())
	assert.Zero(t, data.CountFeedback())
}
