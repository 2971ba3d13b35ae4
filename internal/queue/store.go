package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/codepulse/codepulse/internal/model"
)

// Store is the durable queue. One connection, WAL journal: mutations are
// serialized at the database so a crash loses at most the heartbeat
// whose insert had not committed.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create queue dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("chmod queue path: %w", err)
	}
	if err := ApplyMigrations(ctx, db); err != nil {
		db.Close() //nolint:errcheck
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Enqueue(ctx context.Context, hb model.Heartbeat) error {
	payload, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO heartbeats(heartbeat_id, payload, enqueued_at)
VALUES (?, ?, datetime('now'))
ON CONFLICT(heartbeat_id) DO NOTHING`, hb.ID, string(payload))
	if err != nil {
		return fmt.Errorf("enqueue heartbeat: %w", err)
	}
	return nil
}

func (s *Store) NextBatch(ctx context.Context, limit int) ([]model.Heartbeat, error) {
	if limit <= 0 {
		return nil, nil
	}
	hbs, bad, err := s.selectHeartbeats(ctx, limit)
	if err != nil {
		return nil, err
	}
	// Rows that no longer decode can never be delivered or removed by
	// ID; purge them here so they cannot wedge the flush loop.
	if len(bad) > 0 {
		if err := s.deleteSeqs(ctx, bad); err != nil {
			return nil, err
		}
	}
	return hbs, nil
}

func (s *Store) Remove(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM heartbeats WHERE heartbeat_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return fmt.Errorf("remove batch: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM heartbeats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count heartbeats: %w", err)
	}
	return n, nil
}

func (s *Store) List(ctx context.Context) ([]model.Heartbeat, error) {
	hbs, _, err := s.selectHeartbeats(ctx, -1)
	return hbs, err
}

func (s *Store) selectHeartbeats(ctx context.Context, limit int) ([]model.Heartbeat, []int64, error) {
	q := `SELECT seq, payload FROM heartbeats ORDER BY seq ASC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("select heartbeats: %w", err)
	}
	defer rows.Close()

	hbs := make([]model.Heartbeat, 0)
	var bad []int64
	for rows.Next() {
		var seq int64
		var payload string
		if err := rows.Scan(&seq, &payload); err != nil {
			return nil, nil, fmt.Errorf("scan heartbeat: %w", err)
		}
		var hb model.Heartbeat
		if err := json.Unmarshal([]byte(payload), &hb); err != nil {
			bad = append(bad, seq)
			continue
		}
		hbs = append(hbs, hb)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate heartbeats: %w", err)
	}
	return hbs, bad, nil
}

func (s *Store) deleteSeqs(ctx context.Context, seqs []int64) error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(seqs)), ",")
	args := make([]any, len(seqs))
	for i, seq := range seqs {
		args[i] = seq
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM heartbeats WHERE seq IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("purge undecodable rows: %w", err)
	}
	return nil
}
