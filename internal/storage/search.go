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
	"strings"
)

// SearchQuery describes a search over the index.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT). Text
// that is not valid FTS syntax is matched as a plain substring instead.
// Types restricts results to document types (line, command, asset, character, novel).
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text    string
	Speaker string
	Script  string
	Types   []string
	Limit   int
	Offset  int
}

// SearchResult is a single match. Snippet carries [ ] markers around FTS hits.
// Line is 0 for documents that are not script lines.
type SearchResult struct {
	DocID   int64
	Type    string
	Path    string
	Script  string
	Line    int
	Speaker string
	Snippet string
}

// Search performs full-text search with optional filters over the embedded index.
func Search(ctx context.Context, projectRoot string, q SearchQuery) ([]SearchResult, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return nil, errors.New("project root is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	res, err := searchDB(ctx, db, q, strings.TrimSpace(q.Text) != "")
	if err != nil && strings.TrimSpace(q.Text) != "" {
		// Retry as a substring scan when the text is not a valid FTS query.
		return searchDB(ctx, db, q, false)
	}
	return res, err
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery, useFTS bool) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if useFTS {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, d.script, d.line_no, d.speaker, snippet(fts_documents, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_documents JOIN documents d ON fts_documents.rowid = d.doc_id\n")
		sb.WriteString("WHERE fts_documents MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT d.doc_id, d.type, d.path, d.script, d.line_no, d.speaker, ''\n")
		sb.WriteString("FROM documents d\nWHERE 1=1\n")
		if s := strings.TrimSpace(q.Text); s != "" {
			sb.WriteString(" AND lower(d.text) LIKE ?\n")
			args = append(args, likeContains(strings.ToLower(s)))
		}
	}
	if len(q.Types) > 0 {
		sb.WriteString(" AND d.type IN (" + placeholders(len(q.Types)) + ")\n")
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if s := strings.TrimSpace(q.Speaker); s != "" {
		sb.WriteString(" AND lower(d.speaker) = ?\n")
		args = append(args, strings.ToLower(s))
	}
	if s := strings.TrimSpace(q.Script); s != "" {
		sb.WriteString(" AND d.script = ?\n")
		args = append(args, s)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY d.script NULLS LAST, d.line_no NULLS LAST, d.doc_id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// CommandUsage lists the command documents that invoke the named command, in
// script order. The name match is exact, as command lookup is.
func CommandUsage(ctx context.Context, projectRoot, name string, limit, offset int) ([]SearchResult, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("command name is required")
	}
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	q := `SELECT d.doc_id, d.type, d.path, d.script, d.line_no, d.speaker, d.text
		FROM command_uses u
		JOIN documents d ON d.doc_id = u.doc_id
		WHERE u.name = ?
		ORDER BY d.script, d.line_no, d.doc_id
		LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, q, name, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("command usage query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// Assets lists indexed resources of a kind ("image", "video", "prefab"); an empty
// kind lists all of them.
func Assets(ctx context.Context, projectRoot, kind string) ([]string, error) {
	db, err := InitOrOpenIndex(projectRoot)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT path FROM assets WHERE ? = '' OR kind = ? ORDER BY path`, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("assets query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var scriptName, speaker, snippet sql.NullString
		var line sql.NullInt64
		if err := rows.Scan(&r.DocID, &r.Type, &r.Path, &scriptName, &line, &speaker, &snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Script, r.Speaker, r.Snippet = scriptName.String, speaker.String, snippet.String
		r.Line = int(line.Int64)
		out = append(out, r)
	}
	return out, rows.Err()
}

func likeContains(s string) string { return "%" + s + "%" }

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
