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

// Package events stores raw reading events in a SQLite database. Events keep
// the raw string ids, remapping to dense indices happens when a dataset is
// built from the store.
package events

import (
	"context"
	"database/sql"
	"time"

	"github.com/juju/errors"
	_ "modernc.org/sqlite"

	"github.com/readnext-io/readnext/dataset"
)

// Event is one "user read article" record.
type Event struct {
	UserId    string
	ItemId    string
	Value     float64
	Timestamp time.Time
}

// Store wraps a SQLite database holding the events table.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", "file:"+path+
		"?_pragma=busy_timeout(10000)&_pragma=journal_mode(wal)")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Init creates the schema.
func (s *Store) Init() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS events (
	user_id TEXT NOT NULL,
	item_id TEXT NOT NULL,
	value REAL NOT NULL,
	timestamp DATETIME NOT NULL
);`)
	return errors.Trace(err)
}

// Insert appends events to the store in batches inside one transaction.
func (s *Store) Insert(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Trace(err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO events (user_id, item_id, value, timestamp) VALUES (?, ?, ?, ?)
`)
	if err != nil {
		_ = tx.Rollback()
		return errors.Trace(err)
	}
	for _, event := range events {
		if _, err = stmt.ExecContext(ctx, event.UserId, event.ItemId, event.Value, event.Timestamp.UTC()); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return errors.Trace(err)
		}
	}
	if err = stmt.Close(); err != nil {
		_ = tx.Rollback()
		return errors.Trace(err)
	}
	return errors.Trace(tx.Commit())
}

// Scan streams every event in insertion order.
func (s *Store) Scan(ctx context.Context, fn func(event Event) error) error {
	rs, err := s.db.QueryContext(ctx, `
SELECT user_id, item_id, value, timestamp FROM events ORDER BY rowid
`)
	if err != nil {
		return errors.Trace(err)
	}
	defer rs.Close()
	for rs.Next() {
		var event Event
		if err = rs.Scan(&event.UserId, &event.ItemId, &event.Value, &event.Timestamp); err != nil {
			return errors.Trace(err)
		}
		if err = fn(event); err != nil {
			return errors.Trace(err)
		}
	}
	return errors.Trace(rs.Err())
}

// CountEvents returns the number of stored events.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM events`)
}

// CountUsers returns the number of distinct users.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(DISTINCT user_id) FROM events`)
}

// CountItems returns the number of distinct items.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	return s.count(ctx, `SELECT COUNT(DISTINCT item_id) FROM events`)
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, errors.Trace(err)
	}
	return count, nil
}

// Dataset builds an interaction dataset from the stored events. Raw ids are
// remapped to dense indices in first-seen order and repeated (user, item)
// pairs are summed.
func (s *Store) Dataset(ctx context.Context) (*dataset.Dataset, error) {
	userDict, itemDict := dataset.NewFreqDict(), dataset.NewFreqDict()
	var feedback []dataset.Feedback
	err := s.Scan(ctx, func(event Event) error {
		feedback = append(feedback, dataset.Feedback{
			UserIndex: userDict.Add(event.UserId),
			ItemIndex: itemDict.Add(event.ItemId),
			Value:     event.Value,
		})
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return dataset.NewDatasetWithIndex(feedback, userDict, itemDict)
}
