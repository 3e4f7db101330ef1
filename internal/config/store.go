package config

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/foliodev/folio/internal/model"
)

// Store persists contact messages and admin bindings. SQLite is the default
// backend; any driver listed by Drivers can be selected with Open.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// NewStore creates a SQLite-backed store under dataDir. Pass empty string for
// in-memory.
func NewStore(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "folio.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	return Open("sqlite", dsn, model.DefaultPoolConfig())
}

// Open connects to the database identified by driver and dsn and applies the
// schema for that dialect.
func Open(driver, dsn string, pool model.PoolConfig) (*Store, error) {
	d, ok := lookupDialect(driver)
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedDriver, driver, strings.Join(Drivers(), ", "))
	}

	db, err := sqlx.Connect(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", d.name, err)
	}

	if d.name == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	} else {
		db.SetMaxOpenConns(pool.MaxOpenConns)
		db.SetMaxIdleConns(pool.MaxIdleConns)
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s store: %w", d.name, err)
	}
	return s, nil
}

// Driver returns the canonical driver name of the store.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// CreateMessage inserts a contact message. ID and TimestampNanos are assigned
// when empty and written back to msg.
func (s *Store) CreateMessage(ctx context.Context, msg *model.ContactMessage) error {
	if msg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate message id: %w", err)
		}
		msg.ID = id.String()
	}
	if msg.TimestampNanos == 0 {
		msg.TimestampNanos = time.Now().UnixNano()
	}

	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO messages (id, name, email, message, timestamp_nanos)
		VALUES (?, ?, ?, ?, ?)`),
		msg.ID, msg.Name, msg.Email, msg.Message, msg.TimestampNanos)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListMessages returns all messages, oldest first.
func (s *Store) ListMessages(ctx context.Context) ([]model.ContactMessage, error) {
	var msgs []model.ContactMessage
	err := s.db.SelectContext(ctx, &msgs, `
		SELECT id, name, email, message, timestamp_nanos
		FROM messages ORDER BY timestamp_nanos, id`)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.ContactMessage{}
	}
	return msgs, nil
}

// GetMessage returns a single message by ID.
func (s *Store) GetMessage(ctx context.Context, id string) (*model.ContactMessage, error) {
	var msg model.ContactMessage
	err := s.db.GetContext(ctx, &msg, s.db.Rebind(`
		SELECT id, name, email, message, timestamp_nanos
		FROM messages WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &msg, nil
}

// CountMessages returns the number of stored messages.
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM messages`); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Admin bindings
// ---------------------------------------------------------------------------

type adminBindingRow struct {
	Principal string `db:"principal"`
	BoundAt   int64  `db:"bound_at"`
}

func (r adminBindingRow) toModel() model.AdminBinding {
	return model.AdminBinding{
		Principal: r.Principal,
		BoundAt:   time.Unix(0, r.BoundAt).UTC(),
	}
}

// BindAdmin records principal as an administrator. It reports whether a new
// binding was created; binding an existing admin again is not an error.
func (s *Store) BindAdmin(ctx context.Context, principal string) (bool, error) {
	ok, err := s.IsAdmin(ctx, principal)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO admin_bindings (principal, bound_at) VALUES (?, ?)`),
		principal, time.Now().UnixNano())
	if err != nil {
		// Lost a race with a concurrent bind for the same principal.
		if ok, checkErr := s.IsAdmin(ctx, principal); checkErr == nil && ok {
			return false, nil
		}
		return false, fmt.Errorf("insert admin binding: %w", err)
	}
	return true, nil
}

// IsAdmin reports whether principal has an admin binding.
func (s *Store) IsAdmin(ctx context.Context, principal string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`
		SELECT COUNT(*) FROM admin_bindings WHERE principal = ?`), principal)
	if err != nil {
		return false, fmt.Errorf("check admin binding: %w", err)
	}
	return n > 0, nil
}

// ListAdminBindings returns every admin binding ordered by bind time.
func (s *Store) ListAdminBindings(ctx context.Context) ([]model.AdminBinding, error) {
	var rows []adminBindingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT principal, bound_at FROM admin_bindings ORDER BY bound_at, principal`)
	if err != nil {
		return nil, fmt.Errorf("list admin bindings: %w", err)
	}
	out := make([]model.AdminBinding, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// RevokeAdmin removes the admin binding for principal.
func (s *Store) RevokeAdmin(ctx context.Context, principal string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM admin_bindings WHERE principal = ?`), principal)
	if err != nil {
		return fmt.Errorf("delete admin binding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete admin binding: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("admin %q: %w", principal, ErrNotFound)
	}
	return nil
}
