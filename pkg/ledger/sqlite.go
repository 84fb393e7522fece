package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/poltergeist/callcenter/pkg/logger"
	"github.com/poltergeist/callcenter/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps the snapshot in a SQLite database.
// Each save replaces the previous snapshot inside one transaction.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger logger.Logger
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLiteStore opens or creates the database at path and applies the schema
func OpenSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if path == "" {
		path = types.DefaultStorePath
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storageError("create ledger directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, storageError("open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageError("connect to database", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, storageError(fmt.Sprintf("execute %q", pragma), err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, storageError("apply schema", err)
	}

	return &SQLiteStore{db: db, path: path, logger: log}, nil
}

// Path returns the database location
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save replaces the stored snapshot. A failed save rolls back and keeps the previous one.
func (s *SQLiteStore) Save(ctx context.Context, snapshot *Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin transaction", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("Rollback failed", logger.WithField("error", rbErr))
			}
		}
	}()

	for _, stmt := range []string{"DELETE FROM calls", "DELETE FROM agents", "DELETE FROM meta"} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return storageError("clear snapshot", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		"INSERT INTO meta (id, version, next_id, saved_at) VALUES (1, ?, ?, ?)",
		int(formatVersion), snapshot.NextID, time.Now().UnixNano()); err != nil {
		return storageError("write meta", err)
	}

	for pos, c := range snapshot.Calls {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO calls (position, id, priority, duration, caller_name, phone_number, enqueued_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			pos, c.ID, int(c.Priority), c.Duration, c.CallerName, c.PhoneNumber, encodeTime(c.EnqueuedAt)); err != nil {
			return storageError(fmt.Sprintf("write call %d", c.ID), err)
		}
	}

	for _, a := range snapshot.Agents {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO agents (id, status, current_call_id, current_caller, calls_handled, time_spent)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, string(a.Status), a.CurrentCallID, a.CurrentCaller, a.CallsHandled, a.TimeSpent); err != nil {
			return storageError(fmt.Sprintf("write agent %d", a.ID), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return storageError("commit snapshot", err)
	}

	logger.WithContext(ctx, s.logger).Debug("Ledger committed",
		logger.WithField("path", s.path),
		logger.WithField("calls", len(snapshot.Calls)),
		logger.WithField("agents", len(snapshot.Agents)))

	return nil
}

// Load reads the stored snapshot. A database without a meta row reports found=false.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, bool, error) {
	var (
		version int
		nextID  int64
	)
	err := s.db.QueryRowContext(ctx, "SELECT version, next_id FROM meta WHERE id = 1").Scan(&version, &nextID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageError("read meta", err)
	}
	if version != int(formatVersion) {
		return nil, false, storageError("read meta", corrupt("unsupported version %d", version))
	}

	snapshot := &Snapshot{NextID: nextID}

	if snapshot.Calls, err = s.loadCalls(ctx); err != nil {
		return nil, false, err
	}
	if snapshot.Agents, err = s.loadAgents(ctx); err != nil {
		return nil, false, err
	}

	return snapshot, true, nil
}

func (s *SQLiteStore) loadCalls(ctx context.Context) ([]types.Call, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, priority, duration, caller_name, phone_number, enqueued_at
		 FROM calls ORDER BY position`)
	if err != nil {
		return nil, storageError("read calls", err)
	}
	defer rows.Close()

	var calls []types.Call
	for rows.Next() {
		var (
			c        types.Call
			priority int
			enqueued int64
		)
		if err := rows.Scan(&c.ID, &priority, &c.Duration, &c.CallerName, &c.PhoneNumber, &enqueued); err != nil {
			return nil, storageError("scan call", err)
		}
		c.Priority = types.Priority(priority)
		if !c.Priority.IsValid() {
			return nil, storageError("read calls", corrupt("call %d has unknown priority %d", c.ID, priority))
		}
		c.EnqueuedAt = decodeTime(enqueued)
		calls = append(calls, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("read calls", err)
	}
	return calls, nil
}

func (s *SQLiteStore) loadAgents(ctx context.Context) ([]types.AgentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, current_call_id, current_caller, calls_handled, time_spent
		 FROM agents ORDER BY id`)
	if err != nil {
		return nil, storageError("read agents", err)
	}
	defer rows.Close()

	var agents []types.AgentRecord
	for rows.Next() {
		var (
			a      types.AgentRecord
			status string
		)
		if err := rows.Scan(&a.ID, &status, &a.CurrentCallID, &a.CurrentCaller, &a.CallsHandled, &a.TimeSpent); err != nil {
			return nil, storageError("scan agent", err)
		}
		a.Status = types.AgentStatus(status)
		if a.Status != types.AgentStatusAvailable && a.Status != types.AgentStatusBusy {
			return nil, storageError("read agents", corrupt("agent %d has unknown status %q", a.ID, status))
		}
		agents = append(agents, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("read agents", err)
	}
	return agents, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
