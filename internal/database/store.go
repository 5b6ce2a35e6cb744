package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficientCoin is returned by ChargeCoin when the balance is too low.
var ErrInsufficientCoin = errors.New("insufficient coin balance")

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// Get decodes the document at path into dst. It reports false when the
	// document does not exist.
	Get(ctx context.Context, path string, dst any) (bool, error)

	// Set replaces the document at path.
	Set(ctx context.Context, path string, value any) error

	// Update merges partial into the document at path, creating it if
	// missing. Keys set to nil are removed.
	Update(ctx context.Context, path string, partial map[string]any) error

	// Delete removes the document at path.
	Delete(ctx context.Context, path string) error

	// List returns every document path starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// EnsureUser creates the user document with defaults on first sight and
	// returns the stored user.
	EnsureUser(ctx context.Context, id string, defaults User) (User, error)

	// Group returns the group document, or the zero Group if missing.
	Group(ctx context.Context, id string) (Group, error)

	// Bot returns the bot document, or the zero BotState if missing.
	Bot(ctx context.Context) (BotState, error)

	// ChargeCoin atomically debits amount from the user's balance and
	// returns the new balance.
	ChargeCoin(ctx context.Context, userID string, amount int64) (int64, error)

	// AddCoin atomically credits amount (which may be negative) and returns
	// the new balance.
	AddCoin(ctx context.Context, userID string, amount int64) (int64, error)

	// ExpirePremium clears premium for every user whose expiration passed.
	ExpirePremium(ctx context.Context, now time.Time) (int64, error)

	// IncrementWarning atomically adds one warning and returns the new count.
	IncrementWarning(ctx context.Context, groupID, userID string) (int, error)

	// Warnings returns the current warning count.
	Warnings(ctx context.Context, groupID, userID string) (int, error)

	// ResetWarnings clears the warning count.
	ResetWarnings(ctx context.Context, groupID, userID string) error

	// SaveAudit appends a row to the audit log.
	SaveAudit(ctx context.Context, entry *AuditEntry) error

	// RecentAudit returns the newest audit rows, newest first.
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) Get(ctx context.Context, path string, dst any) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("document path cannot be empty")
	}

	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT data FROM documents WHERE path = ?;`, path)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to get document", "path", path, "error", err)
		return false, fmt.Errorf("failed to get document %s: %w", path, err)
	}
	if dst == nil {
		return true, nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return true, fmt.Errorf("failed to decode document %s: %w", path, err)
	}
	return true, nil
}

func (s *sqlxStore) Set(ctx context.Context, path string, value any) error {
	if path == "" {
		return fmt.Errorf("document path cannot be empty")
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", path, err)
	}

	now := s.now()
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO documents (path, data, created_at, updated_at)
        VALUES (?, json(?), ?, ?)
        ON CONFLICT(path) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at;
    `, path, string(data), now, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to set document", "path", path, "error", err)
		return fmt.Errorf("failed to set document %s: %w", path, err)
	}
	return nil
}

func (s *sqlxStore) Update(ctx context.Context, path string, partial map[string]any) error {
	if path == "" {
		return fmt.Errorf("document path cannot be empty")
	}
	patch, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("failed to encode patch for %s: %w", path, err)
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.now()
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO documents (path, data, created_at, updated_at)
            VALUES (?, '{}', ?, ?)
            ON CONFLICT(path) DO NOTHING;
        `, path, now, now); err != nil {
			return fmt.Errorf("failed to create document %s: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx, `
            UPDATE documents SET data = json_patch(data, ?), updated_at = ? WHERE path = ?;
        `, string(patch), now, path); err != nil {
			return fmt.Errorf("failed to patch document %s: %w", path, err)
		}
		return nil
	})
}

func (s *sqlxStore) Delete(ctx context.Context, path string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?;`, path); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}
	return nil
}

func (s *sqlxStore) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := s.db.SelectContext(ctx, &paths, `
        SELECT path FROM documents WHERE substr(path, 1, length(?)) = ? ORDER BY path;
    `, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents under %q: %w", prefix, err)
	}
	return paths, nil
}

func (s *sqlxStore) EnsureUser(ctx context.Context, id string, defaults User) (User, error) {
	if id == "" {
		return User{}, fmt.Errorf("user id cannot be empty")
	}
	data, err := json.Marshal(defaults)
	if err != nil {
		return User{}, fmt.Errorf("failed to encode default user: %w", err)
	}

	now := s.now()
	if _, err := s.db.ExecContext(ctx, `
        INSERT INTO documents (path, data, created_at, updated_at)
        VALUES (?, json(?), ?, ?)
        ON CONFLICT(path) DO NOTHING;
    `, UserPath(id), string(data), now, now); err != nil {
		return User{}, fmt.Errorf("failed to create user %s: %w", id, err)
	}

	var u User
	if _, err := s.Get(ctx, UserPath(id), &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *sqlxStore) Group(ctx context.Context, id string) (Group, error) {
	var g Group
	if _, err := s.Get(ctx, GroupPath(id), &g); err != nil {
		return Group{}, err
	}
	return g, nil
}

func (s *sqlxStore) Bot(ctx context.Context) (BotState, error) {
	var b BotState
	if _, err := s.Get(ctx, BotPath, &b); err != nil {
		return BotState{}, err
	}
	return b, nil
}

func (s *sqlxStore) ChargeCoin(ctx context.Context, userID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("charge amount cannot be negative")
	}

	var balance int64
	err := s.db.GetContext(ctx, &balance, `
        UPDATE documents
        SET data = json_set(data, '$.coin', json_extract(data, '$.coin') - ?), updated_at = ?
        WHERE path = ? AND json_extract(data, '$.coin') >= ?
        RETURNING json_extract(data, '$.coin');
    `, amount, s.now(), UserPath(userID), amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrInsufficientCoin
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to charge coin", "user_id", userID, "amount", amount, "error", err)
		return 0, fmt.Errorf("failed to charge coin for %s: %w", userID, err)
	}
	return balance, nil
}

func (s *sqlxStore) AddCoin(ctx context.Context, userID string, amount int64) (int64, error) {
	var balance int64
	err := s.db.GetContext(ctx, &balance, `
        UPDATE documents
        SET data = json_set(data, '$.coin', MAX(0, coalesce(json_extract(data, '$.coin'), 0) + ?)), updated_at = ?
        WHERE path = ?
        RETURNING json_extract(data, '$.coin');
    `, amount, s.now(), UserPath(userID))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("user %s not found", userID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to add coin for %s: %w", userID, err)
	}
	return balance, nil
}

func (s *sqlxStore) ExpirePremium(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
        UPDATE documents
        SET data = json_set(data, '$.premium', json('false'), '$.premiumExpiration', 0), updated_at = ?
        WHERE substr(path, 1, 5) = 'user.'
          AND json_extract(data, '$.premium') = 1
          AND coalesce(json_extract(data, '$.premiumExpiration'), 0) > 0
          AND json_extract(data, '$.premiumExpiration') <= ?;
    `, s.now(), now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to expire premium users: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired premium users: %w", err)
	}
	return n, nil
}

func (s *sqlxStore) IncrementWarning(ctx context.Context, groupID, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
        INSERT INTO warnings (group_id, user_id, count, updated_at)
        VALUES (?, ?, 1, ?)
        ON CONFLICT(group_id, user_id) DO UPDATE SET count = count + 1, updated_at = excluded.updated_at
        RETURNING count;
    `, groupID, userID, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to increment warning", "group_id", groupID, "user_id", userID, "error", err)
		return 0, fmt.Errorf("failed to increment warning: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) Warnings(ctx context.Context, groupID, userID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
        SELECT count FROM warnings WHERE group_id = ? AND user_id = ?;
    `, groupID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read warnings: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) ResetWarnings(ctx context.Context, groupID, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM warnings WHERE group_id = ? AND user_id = ?;`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to reset warnings: %w", err)
	}
	return nil
}

func (s *sqlxStore) SaveAudit(ctx context.Context, entry *AuditEntry) error {
	if entry == nil {
		return fmt.Errorf("cannot save nil audit entry")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	res, err := s.db.NamedExecContext(ctx, `
        INSERT INTO audit_log (actor_id, chat_id, command, args, outcome, created_at)
        VALUES (:actor_id, :chat_id, :command, :args, :outcome, :created_at);
    `, entry)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to save audit entry", "actor_id", entry.ActorID, "command", entry.Command, "error", err)
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

func (s *sqlxStore) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var entries []AuditEntry
	err := s.db.SelectContext(ctx, &entries, `
        SELECT id, actor_id, chat_id, command, args, outcome, created_at
        FROM audit_log ORDER BY id DESC LIMIT ?;
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return entries, nil
}

// RunSQLMaintenance executes ANALYZE and VACUUM on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	if _, err := s.db.ExecContext(ctx, "ANALYZE;"); err != nil {
		s.logger.WarnContext(ctx, "ANALYZE failed, continuing with VACUUM", "error", err)
	}

	// VACUUM must run outside a transaction in SQLite
	_, err := s.db.ExecContext(ctx, "VACUUM;")
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Failed to execute VACUUM", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully.")
	return nil
}

func (s *sqlxStore) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
