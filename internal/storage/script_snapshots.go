/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertScriptSnapshotSQL = `INSERT INTO script_snapshots(script, ts, text) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestScriptSnapshotSQL = `SELECT ts, text FROM script_snapshots WHERE script = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listScriptSnapshotsSQL = `SELECT ts, text FROM script_snapshots WHERE script = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldScriptSnapshotsSQL = `DELETE FROM script_snapshots WHERE script = ? AND id NOT IN (
	SELECT id FROM script_snapshots WHERE script = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// snapshotTimeLayout is fixed width so timestamps sort as text.
const snapshotTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ScriptSnapshot is one saved version of a script.
type ScriptSnapshot struct {
	TS   time.Time
	Text string
}

// SaveScriptSnapshot stores the full text of a script version.
// The index is derived data; snapshots are an editing aid, not canonical storage.
func SaveScriptSnapshot(ctx context.Context, ph *ProjectHandle, name, text string, ts time.Time) error {
	if ph == nil {
		return errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	_, err = db.ExecContext(ctx, insertScriptSnapshotSQL, name, ts.UTC().Format(snapshotTimeLayout), text)
	return err
}

// GetLatestScriptSnapshot returns the newest snapshot of a script, or empty if none.
func GetLatestScriptSnapshot(ctx context.Context, ph *ProjectHandle, name string) (ScriptSnapshot, error) {
	if ph == nil {
		return ScriptSnapshot{}, errors.New("nil ProjectHandle")
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return ScriptSnapshot{}, err
	}
	defer func() { _ = db.Close() }()
	var tsStr, txt string
	err = db.QueryRowContext(ctx, selectLatestScriptSnapshotSQL, name).Scan(&tsStr, &txt)
	if errors.Is(err, sql.ErrNoRows) {
		return ScriptSnapshot{}, nil
	}
	if err != nil {
		return ScriptSnapshot{}, err
	}
	ts, _ := time.Parse(snapshotTimeLayout, tsStr)
	return ScriptSnapshot{TS: ts, Text: txt}, nil
}

// ListScriptSnapshots returns up to limit most recent snapshots of a script.
func ListScriptSnapshots(ctx context.Context, ph *ProjectHandle, name string, limit int) ([]ScriptSnapshot, error) {
	if ph == nil {
		return nil, errors.New("nil ProjectHandle")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listScriptSnapshotsSQL, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ScriptSnapshot
	for rows.Next() {
		var tsStr, txt string
		if err := rows.Scan(&tsStr, &txt); err != nil {
			return nil, err
		}
		ts, _ := time.Parse(snapshotTimeLayout, tsStr)
		out = append(out, ScriptSnapshot{TS: ts, Text: txt})
	}
	return out, rows.Err()
}

// PruneOldScriptSnapshots keeps at most keepLast snapshots of a script.
func PruneOldScriptSnapshots(ctx context.Context, ph *ProjectHandle, name string, keepLast int) (int64, error) {
	if ph == nil {
		return 0, errors.New("nil ProjectHandle")
	}
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneOldScriptSnapshotsSQL, name, name, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
