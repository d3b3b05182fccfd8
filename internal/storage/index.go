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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonovel/internal/asset"
	"gonovel/internal/character"
	applog "gonovel/internal/log"
	"gonovel/internal/script"
	"gonovel/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName stores all per-project derived data under the project root.
	IndexDirName  = ".gnv"
	IndexFileName = "index.sqlite"

	// baseSchema is what a fresh database is created with; migrations bring it
	// up to schemaVersion.
	baseSchema    = 1
	schemaVersion = 3
)

// ftsDocumentsDDL creates the FTS5 index over documents.text. It reads its
// column text from documents, so snippet() can quote the match.
const ftsDocumentsDDL = `CREATE VIRTUAL TABLE IF NOT EXISTS fts_documents USING fts5(
	text,
	content='documents',
	content_rowid='doc_id',
	tokenize = 'unicode61'
);`

// Document types stored in the index.
const (
	DocNovel     = "novel"
	DocLine      = "line"
	DocCommand   = "command"
	DocAsset     = "asset"
	DocCharacter = "character"
)

// IndexPath returns the full path to the project's embedded index database file.
func IndexPath(projectRoot string) string {
	return filepath.Join(projectRoot, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the per-project SQLite index exists at .gnv/index.sqlite,
// opens the database, enables WAL mode, and ensures the schema is current.
// Callers close the returned *sql.DB.
func InitOrOpenIndex(projectRoot string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", projectRoot),
	)
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	if err := os.MkdirAll(filepath.Join(projectRoot, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", IndexDirName, err)
	}

	path := IndexPath(projectRoot)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		l.Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, baseSchema, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the stored schema; migrations move it forward.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migrations[n] upgrades schema n-1 to n.
var migrations = map[int][]string{
	2: {
		`CREATE INDEX IF NOT EXISTS idx_command_uses_name ON command_uses(name);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_script ON documents(script, line_no);`,
	},
	// Version 2 indexes were contentless and could not produce snippets.
	3: {
		`DROP TABLE IF EXISTS fts_documents;`,
		ftsDocumentsDDL,
		`INSERT INTO fts_documents(fts_documents) VALUES('rebuild');`,
	},
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range migrations[next] {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	// Best-effort FTS optimize.
	_, _ = db.ExecContext(ctx, `INSERT INTO fts_documents(fts_documents) VALUES('optimize')`)
	return nil
}

// ensureIndexSchema creates core index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// One row per indexed item: script lines, commands, assets, characters.
		`CREATE TABLE IF NOT EXISTS documents (
			doc_id   INTEGER PRIMARY KEY,
			type     TEXT    NOT NULL,
			path     TEXT    NOT NULL,
			script   TEXT,
			line_no  INTEGER,
			speaker  TEXT,
			text     TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_documents_path ON documents(path);`,

		ftsDocumentsDDL,

		// Command names used by command documents.
		`CREATE TABLE IF NOT EXISTS command_uses (
			doc_id INTEGER NOT NULL,
			name   TEXT    NOT NULL,
			PRIMARY KEY(doc_id, name),
			FOREIGN KEY(doc_id) REFERENCES documents(doc_id) ON DELETE CASCADE
		);`,

		`CREATE TABLE IF NOT EXISTS assets (
			path TEXT PRIMARY KEY,
			kind TEXT NOT NULL
		);`,

		`CREATE TABLE IF NOT EXISTS script_snapshots (
			id     INTEGER PRIMARY KEY,
			script TEXT    NOT NULL,
			ts     TEXT    NOT NULL,
			text   TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_script_snapshots_ts ON script_snapshots(script, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE OF text ON documents BEGIN
			INSERT INTO fts_documents(fts_documents, rowid, text) VALUES ('delete', old.doc_id, old.text);
			INSERT INTO fts_documents(rowid, text) VALUES (new.doc_id, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks for corruption or missing schema and rebuilds the index if needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildIndex(ctx context.Context, ph *ProjectHandle) (bool, error) {
	path := IndexPath(ph.Root)
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, ph); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM documents LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, ph); err != nil {
		return false, err
	}
	return true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in .gnv/backups.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(indexPath string) {
	for _, p := range []string{indexPath, indexPath + "-wal", indexPath + "-shm"} {
		_ = os.Remove(p)
	}
}

// BuildIndexIfEmpty populates the index when it holds no documents yet.
func BuildIndexIfEmpty(ctx context.Context, ph *ProjectHandle) error {
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	var cnt int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents;").Scan(&cnt); err != nil {
		return fmt.Errorf("check documents count: %w", err)
	}
	if cnt > 0 {
		return nil
	}
	return rebuildDocuments(ctx, db, ph)
}

// RebuildIndex drops and recreates the derived tables and indexes the project
// again. Meta, version and script snapshots are kept.
func RebuildIndex(ctx context.Context, ph *ProjectHandle) error {
	db, err := InitOrOpenIndex(ph.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TABLE IF EXISTS command_uses;",
		"DROP TABLE IF EXISTS assets;",
		"DROP TRIGGER IF EXISTS documents_ai;",
		"DROP TRIGGER IF EXISTS documents_ad;",
		"DROP TRIGGER IF EXISTS documents_au;",
		"DROP TABLE IF EXISTS documents;",
		"DROP TABLE IF EXISTS fts_documents;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	for _, q := range migrations[schemaVersion] {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("recreate indexes: %w", err)
		}
	}
	return rebuildDocuments(ctx, db, ph)
}

type document struct {
	typ      string
	path     string
	script   sql.NullString
	lineNo   sql.NullInt64
	speaker  sql.NullString
	text     string
	commands []string
}

type assetRow struct{ path, kind string }

// collectDocuments reads the manifest, scripts, character configs and resources.
// Script parse errors do not stop indexing; the parsable part of a line is kept.
func collectDocuments(ph *ProjectHandle) ([]document, []assetRow, error) {
	var docs []document
	if s := strings.TrimSpace(ph.Novel.Name); s != "" {
		docs = append(docs, document{typ: DocNovel, path: "novel:name", text: s})
	}
	if s := strings.TrimSpace(ph.Novel.Metadata.Description); s != "" {
		docs = append(docs, document{typ: DocNovel, path: "novel:description", text: s})
	}

	names, err := ListScripts(ph)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range names {
		text, err := ReadScript(ph, name)
		if err != nil {
			return nil, nil, err
		}
		conv := script.Load(name, text)
		for i, src := range conv.Lines {
			line, _ := script.ParseLine(i+1, src)
			if line.Empty() {
				continue
			}
			docs = append(docs, lineDocuments(name, line)...)
		}
	}

	if db, err := character.LoadConfigDB(ph.CharactersPath()); err == nil {
		for _, n := range db.Names() {
			cfg := db.GetConfig(n)
			docs = append(docs, document{typ: DocCharacter, path: "character:" + cfg.Name, text: strings.TrimSpace(cfg.Name + " " + cfg.Alias)})
		}
	} else {
		applog.WithComponent("storage").Warn("character configs not indexed", slog.Any("err", err))
	}

	var assets []assetRow
	if fi, err := os.Stat(ph.ResourcesDir()); err == nil && fi.IsDir() {
		err := asset.NewFSStore(ph.ResourcesDir()).Walk(func(logical, kind string) error {
			assets = append(assets, assetRow{path: logical, kind: kind})
			docs = append(docs, document{typ: DocAsset, path: "asset:" + logical, text: strings.ReplaceAll(logical, "/", " ")})
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walk resources: %w", err)
		}
	}
	return docs, assets, nil
}

func lineDocuments(name string, line script.Line) []document {
	path := fmt.Sprintf("script:%s/line:%d", name, line.LineNo)
	base := document{
		path:   path,
		script: sql.NullString{String: name, Valid: true},
		lineNo: sql.NullInt64{Int64: int64(line.LineNo), Valid: true},
	}
	if line.Speaker != nil {
		display, _ := character.ParseCasting(line.Speaker.Name)
		base.speaker = sql.NullString{String: display, Valid: true}
	}
	var out []document
	if line.HasDialogue() || line.Speaker != nil {
		d := base
		d.typ = DocLine
		d.text = strings.TrimSpace(line.Dialogue())
		out = append(out, d)
	}
	for _, cmd := range line.Commands() {
		d := base
		d.typ = DocCommand
		d.path = fmt.Sprintf("%s/col:%d", path, cmd.Column)
		d.text = cmd.String()
		d.commands = []string{cmd.Name}
		out = append(out, d)
	}
	return out
}

// rebuildDocuments replaces the documents and assets tables from the project on disk.
func rebuildDocuments(ctx context.Context, db *sql.DB, ph *ProjectHandle) error {
	docs, assets, err := collectDocuments(ph)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, q := range []string{"DELETE FROM command_uses;", "DELETE FROM documents;", "DELETE FROM assets;"} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("clear index: %w", err)
		}
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO documents(type, path, script, line_no, speaker, text) VALUES(?,?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, d := range docs {
		res, err := ins.ExecContext(ctx, d.typ, d.path, d.script, d.lineNo, d.speaker, d.text)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert document: %w", err)
		}
		if len(d.commands) == 0 {
			continue
		}
		id, err := res.LastInsertId()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("document id: %w", err)
		}
		for _, name := range d.commands {
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO command_uses(doc_id, name) VALUES(?,?);", id, name); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("insert command use: %w", err)
			}
		}
	}
	for _, a := range assets {
		if _, err := tx.ExecContext(ctx, "INSERT OR REPLACE INTO assets(path, kind) VALUES(?,?);", a.path, a.kind); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert asset: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	applog.WithComponent("storage").Debug("index rebuilt", slog.Int("documents", len(docs)), slog.Int("assets", len(assets)))
	return nil
}
