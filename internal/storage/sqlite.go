package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"travelcrm/internal/crm"
	"travelcrm/internal/logger"
)

const (
	driverName = "sqlite3"
	// fixed width so that stamps order correctly as text inside json_extract
	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// SQLiteStore keeps documents as JSON in a local SQLite file and fans out
// changes to in-process subscribers.
type SQLiteStore struct {
	db   *sqlx.DB
	path string
	log  logger.Logger

	mu   sync.Mutex
	subs map[crm.Collection][]*subscriber
}

type subscriber struct {
	order  Order
	push   func(Snapshot)
	notify chan struct{}
}

type docRow struct {
	ID   string `db:"id"`
	Body string `db:"body"`
}

// OpenSQLite bootstraps the store at path, or at the default data path when empty.
func OpenSQLite(ctx context.Context, path string, log logger.Logger) (*SQLiteStore, error) {
	if path == "" {
		resolved, err := resolveDBPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	db, err := sqlx.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer keeps read-modify-write updates serialized
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:   db,
		path: path,
		log:  log.With("store", "sqlite"),
		subs: make(map[crm.Collection][]*subscriber),
	}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	store.log.Info("sqlite store opened", "path", path)
	return store, nil
}

// Close releases DB resources.
func (s *SQLiteStore) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func resolveDBPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = os.Getenv("HOME")
		if base == "" {
			return "", fmt.Errorf("cannot resolve data dir: %w", err)
		}
	}
	dir := filepath.Join(base, "travelcrm")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create db dir: %w", err)
	}
	return filepath.Join(dir, "travelcrm.db"), nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            id TEXT NOT NULL,
            body TEXT NOT NULL,
            created_at TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            PRIMARY KEY (collection, id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents(collection, created_at);`,
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migrations: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// Create inserts a new document with a generated id.
func (s *SQLiteStore) Create(ctx context.Context, coll crm.Collection, fields Fields) (string, error) {
	now := clock().Format(sqliteTimeLayout)
	body, err := json.Marshal(fields.stamped(now))
	if err != nil {
		return "", fmt.Errorf("marshal %s document: %w", coll, err)
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents (collection, id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(coll), id, string(body), now, now)
	if err != nil {
		return "", fmt.Errorf("insert %s document: %w", coll, err)
	}
	s.changed(coll)
	return id, nil
}

// Update merges fields into an existing document.
func (s *SQLiteStore) Update(ctx context.Context, coll crm.Collection, id string, fields Fields) error {
	now := clock().Format(sqliteTimeLayout)
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.GetContext(ctx, &body, `SELECT body FROM documents WHERE collection = ? AND id = ?`, string(coll), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return crm.ErrNotFound
		}
		return fmt.Errorf("get %s document: %w", coll, err)
	}

	doc := map[string]json.RawMessage{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("parse %s document %s: %w", coll, id, err)
	}
	for k, v := range fields.stamped(now) {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal field %s: %w", k, err)
		}
		doc[k] = raw
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", coll, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(merged), now, string(coll), id); err != nil {
		return fmt.Errorf("update %s document: %w", coll, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	s.changed(coll)
	return nil
}

// Subscribe pushes the ordered collection now and after every committed write to it.
func (s *SQLiteStore) Subscribe(ctx context.Context, coll crm.Collection, order Order, push func(Snapshot)) error {
	sub := &subscriber{order: order, push: push, notify: make(chan struct{}, 1)}

	// registered before the first load so no write can slip between the two
	s.mu.Lock()
	s.subs[coll] = append(s.subs[coll], sub)
	s.mu.Unlock()

	snap, err := s.load(ctx, coll, order)
	if err != nil {
		s.unsubscribe(coll, sub)
		return err
	}
	push(snap)

	go s.deliver(ctx, coll, sub)
	return nil
}

func (s *SQLiteStore) deliver(ctx context.Context, coll crm.Collection, sub *subscriber) {
	defer s.unsubscribe(coll, sub)
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.notify:
			snap, err := s.load(ctx, coll, sub.order)
			if err != nil {
				if ctx.Err() == nil {
					s.log.Error("reload collection", "collection", coll, "error", err)
				}
				continue
			}
			sub.push(snap)
		}
	}
}

func (s *SQLiteStore) unsubscribe(coll crm.Collection, sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.subs[coll]
	for i := range list {
		if list[i] == sub {
			s.subs[coll] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// changed wakes every subscriber of coll. Pending wake-ups are coalesced.
func (s *SQLiteStore) changed(coll crm.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs[coll] {
		select {
		case sub.notify <- struct{}{}:
		default:
		}
	}
}

func (s *SQLiteStore) load(ctx context.Context, coll crm.Collection, order Order) (Snapshot, error) {
	dir := "ASC"
	if order.Desc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT id, body FROM documents WHERE collection = ?
        ORDER BY json_extract(body, ?) %s, created_at %s, id`, dir, dir)
	var rows []docRow
	if err := s.db.SelectContext(ctx, &rows, query, string(coll), "$."+order.Field); err != nil {
		return Snapshot{}, fmt.Errorf("query %s: %w", coll, err)
	}
	snap := Snapshot{Collection: coll, Docs: make([]Document, 0, len(rows))}
	for _, r := range rows {
		snap.Docs = append(snap.Docs, JSONDocument(r.ID, []byte(r.Body)))
	}
	return snap, nil
}
