package persist

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EntryKind says whether a ledger entry opens or closes a play session.
type EntryKind int

const (
	EntryOpen EntryKind = iota
	EntryClose
)

// LedgerEntry is one session lifecycle event queued for persistence.
type LedgerEntry struct {
	Kind      EntryKind
	SessionID string
	LocalPort uint16
	Name      string
	Entity    uint64
	Reason    string
	At        time.Time
}

// SessionRow is one play session as stored.
type SessionRow struct {
	ID          int64      `json:"id"`
	SessionID   string     `json:"session_id"`
	LocalPort   int        `json:"local_port"`
	PlayerName  string     `json:"player_name"`
	Entity      int64      `json:"entity"`
	OpenedAt    time.Time  `json:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty"`
	CloseReason string     `json:"close_reason,omitempty"`
}

// SessionRepo persists the session ledger.
type SessionRepo interface {
	// Apply writes a batch of entries in a single transaction.
	Apply(ctx context.Context, entries []LedgerEntry) error
	// Recent returns the newest sessions first.
	Recent(ctx context.Context, limit int) ([]SessionRow, error)
	Close()
}

// PGSessionRepo stores the ledger in PostgreSQL.
type PGSessionRepo struct {
	db *DB
}

func NewPGSessionRepo(db *DB) *PGSessionRepo {
	return &PGSessionRepo{db: db}
}

func (r *PGSessionRepo) Apply(ctx context.Context, entries []LedgerEntry) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		switch e.Kind {
		case EntryOpen:
			_, err = tx.Exec(ctx,
				`INSERT INTO session_log (session_id, local_port, player_name, entity, opened_at)
				 VALUES ($1, $2, $3, $4, $5)`,
				e.SessionID, int32(e.LocalPort), e.Name, int64(e.Entity), e.At,
			)
		case EntryClose:
			_, err = tx.Exec(ctx,
				`UPDATE session_log SET closed_at = $2, close_reason = $3
				 WHERE id = (SELECT id FROM session_log
				             WHERE session_id = $1 AND closed_at IS NULL
				             ORDER BY id DESC LIMIT 1)`,
				e.SessionID, e.At, e.Reason,
			)
		}
		if err != nil {
			return fmt.Errorf("ledger write %s: %w", e.SessionID, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PGSessionRepo) Recent(ctx context.Context, limit int) ([]SessionRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, session_id, local_port, player_name, entity, opened_at, closed_at, close_reason
		 FROM session_log ORDER BY id DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(
			&row.ID, &row.SessionID, &row.LocalPort, &row.PlayerName, &row.Entity,
			&row.OpenedAt, &row.ClosedAt, &row.CloseReason,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *PGSessionRepo) Close() {
	r.db.Close()
}

// SQLiteSessionRepo stores the ledger in SQLite. Timestamps are unix nanos.
type SQLiteSessionRepo struct {
	db *sql.DB
}

func NewSQLiteSessionRepo(db *sql.DB) *SQLiteSessionRepo {
	return &SQLiteSessionRepo{db: db}
}

func (r *SQLiteSessionRepo) Apply(ctx context.Context, entries []LedgerEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		switch e.Kind {
		case EntryOpen:
			_, err = tx.ExecContext(ctx,
				`INSERT INTO session_log (session_id, local_port, player_name, entity, opened_at)
				 VALUES (?, ?, ?, ?, ?)`,
				e.SessionID, int(e.LocalPort), e.Name, int64(e.Entity), e.At.UnixNano(),
			)
		case EntryClose:
			_, err = tx.ExecContext(ctx,
				`UPDATE session_log SET closed_at = ?, close_reason = ?
				 WHERE id = (SELECT id FROM session_log
				             WHERE session_id = ? AND closed_at IS NULL
				             ORDER BY id DESC LIMIT 1)`,
				e.At.UnixNano(), e.Reason, e.SessionID,
			)
		}
		if err != nil {
			return fmt.Errorf("ledger write %s: %w", e.SessionID, err)
		}
	}

	return tx.Commit()
}

func (r *SQLiteSessionRepo) Recent(ctx context.Context, limit int) ([]SessionRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, local_port, player_name, entity, opened_at, closed_at, close_reason
		 FROM session_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var (
			row      SessionRow
			openedAt int64
			closedAt sql.NullInt64
		)
		if err := rows.Scan(
			&row.ID, &row.SessionID, &row.LocalPort, &row.PlayerName, &row.Entity,
			&openedAt, &closedAt, &row.CloseReason,
		); err != nil {
			return nil, err
		}
		row.OpenedAt = time.Unix(0, openedAt)
		if closedAt.Valid {
			t := time.Unix(0, closedAt.Int64)
			row.ClosedAt = &t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *SQLiteSessionRepo) Close() {
	r.db.Close()
}

// OpenSessionRepo connects the configured ledger backend and migrates it.
// An empty driver disables the ledger and returns a nil repo.
func OpenSessionRepo(ctx context.Context, driver string, db *DB, sqlite *sql.DB) (SessionRepo, error) {
	switch driver {
	case "":
		return nil, nil
	case "postgres":
		if err := RunMigrations(ctx, db.Pool); err != nil {
			return nil, err
		}
		return NewPGSessionRepo(db), nil
	case "sqlite":
		if err := RunSQLiteMigrations(ctx, sqlite); err != nil {
			return nil, err
		}
		return NewSQLiteSessionRepo(sqlite), nil
	default:
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}
}
