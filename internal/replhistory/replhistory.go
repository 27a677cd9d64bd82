// Package replhistory persists the interactive prompt's submitted lines
// and their printed results across process restarts. Adapted from the
// sibling interpreter codebase's internal/database/db_manager.go
// connection wrapper, trimmed to the one schema and one pure-Go driver
// this needs: modernc.org/sqlite keeps the compiler/VM core cgo-free,
// unlike that wrapper's mysql/postgres/mattn-sqlite trio, which this tree
// drops entirely since the language has no module system to expose
// network database drivers through.
package replhistory

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one REPL submission: the line the user typed and the result
// text stored with it. cmd/sentra's prompt stores a failing line's
// rendered error message and an empty string for a line that ran
// cleanly; output written by print is not captured.
type Entry struct {
	Line      string
	Result    string
	CreatedAt time.Time
}

// History wraps a single sqlite file holding the REPL transcript.
type History struct {
	db *sql.DB
}

// Open creates (if needed) and opens the history database at path.
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	line       TEXT NOT NULL,
	result     TEXT NOT NULL,
	created_at DATETIME NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &History{db: db}, nil
}

// Append records one submitted line and the result text given for it.
func (h *History) Append(line, result string) error {
	_, err := h.db.Exec(
		`INSERT INTO history (line, result, created_at) VALUES (?, ?, ?)`,
		line, result, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Recent returns the last n entries, oldest first.
func (h *History) Recent(n int) ([]Entry, error) {
	rows, err := h.db.Query(
		`SELECT line, result, created_at FROM history ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Line, &e.Result, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (h *History) Close() error { return h.db.Close() }
