/*
Package sqlite provides a SQLite-backed implementation of generic.TxStore.

PURPOSE:

	Persists the ledger, requests, approval records and the audit trail.
	In production, the same patterns apply to PostgreSQL - only minor SQL
	dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on transactions or audit tables
  - No DELETE statements anywhere
  - Corrections via refund transactions only

KEY TABLES:

	transactions:       Immutable ledger of all wallet changes
	requests:           Leave / trip / expense requests (versioned)
	approval_requests:  Centralized approval records (versioned)
	audit:              One row per committed transition

INDEXES:
  - idx_transactions_wallet_seq: Balance fold and snapshot catch-up (hot path)
  - transactions.idempotency_key UNIQUE: one transaction per (wallet, cause, kind)
  - idx_requests_owner_status: Reserved amount scan

CONCURRENCY:

	The pool holds a single connection, so units of work serialize on it.
	Every append still checks the wallet's transaction count and the
	UNIQUE idempotency key inside the SQL transaction.

WAL MODE:

	SQLite is opened with WAL (Write-Ahead Logging) for better crash recovery.

USAGE:

	store, err := sqlite.New("./data/approvals.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	engine := generic.NewEngine(generic.EngineConfig{Store: store, ...})

MIGRATION:

	Schema is auto-migrated on New(). For production, use a proper
	migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/approval-ledger/generic"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements generic.TxStore using SQLite.
type Store struct {
	db *sql.DB
	conn
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, conn: conn{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		wallet_id TEXT NOT NULL,
		wallet_kind TEXT NOT NULL,
		amount_value TEXT NOT NULL,
		amount_unit TEXT NOT NULL,
		kind TEXT NOT NULL,
		cause_id TEXT NOT NULL,
		reason TEXT,
		idempotency_key TEXT NOT NULL UNIQUE,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_wallet_seq
		ON transactions(wallet_id, seq);

	-- Requests (leave, trip, expense)
	CREATE TABLE IF NOT EXISTS requests (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		status TEXT NOT NULL,
		amount_value TEXT NOT NULL,
		amount_unit TEXT NOT NULL,
		approved_value TEXT,
		wallet_id TEXT NOT NULL,
		approval_id TEXT,
		type TEXT,
		start_date TEXT,
		end_date TEXT,
		items_json TEXT,
		attributes_json TEXT,
		created_at TEXT NOT NULL,
		transitioned_at TEXT NOT NULL,
		transitioned_by TEXT,
		reason TEXT,
		notes TEXT,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_requests_owner_status
		ON requests(owner_id, domain, status);
	CREATE INDEX IF NOT EXISTS idx_requests_wallet
		ON requests(wallet_id);

	-- Centralized approval records
	CREATE TABLE IF NOT EXISTS approval_requests (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL,
		approver_id TEXT NOT NULL,
		decision TEXT NOT NULL DEFAULT 'pending',
		notes TEXT,
		reason TEXT,
		created_at TEXT NOT NULL,
		decided_at TEXT,
		decided_by TEXT,
		version INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_approval_requests_request
		ON approval_requests(request_id);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS audit (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		request_id TEXT NOT NULL,
		actor_id TEXT,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL,
		trigger_name TEXT NOT NULL,
		at TEXT NOT NULL,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_request
		ON audit(request_id, seq);
	`
	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn within a SQL transaction.
func (s *Store) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&conn{q: sqlTx, inTx: true}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// AppendTransaction outside a unit of work runs in its own transaction so
// the count check and the insert are atomic.
func (s *Store) AppendTransaction(ctx context.Context, tx generic.Transaction, expectedCount int) (generic.Transaction, error) {
	var out generic.Transaction
	err := s.WithTx(ctx, func(st generic.Store) error {
		var err error
		out, err = st.AppendTransaction(ctx, tx, expectedCount)
		return err
	})
	return out, err
}

// =============================================================================
// CONN - generic.Store over a DB or a running transaction
// =============================================================================

type conn struct {
	q    queryer
	inTx bool
}

// WithTx on a transaction-bound conn joins the running transaction.
func (c *conn) WithTx(_ context.Context, fn func(generic.Store) error) error {
	if !c.inTx {
		return errors.New("sqlite: WithTx called on a non-transactional conn")
	}
	return fn(c)
}

// ===== Transactions =====

const transactionColumns = `seq, id, wallet_id, wallet_kind, amount_value, amount_unit,
	kind, cause_id, reason, created_by, created_at`

func (c *conn) AppendTransaction(ctx context.Context, tx generic.Transaction, expectedCount int) (generic.Transaction, error) {
	var count int
	if err := c.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE wallet_id = ?`, tx.WalletID,
	).Scan(&count); err != nil {
		return generic.Transaction{}, fmt.Errorf("failed to count transactions: %w", err)
	}
	if count != expectedCount {
		return generic.Transaction{}, generic.ErrConcurrencyConflict
	}

	res, err := c.q.ExecContext(ctx, `
		INSERT INTO transactions
		(id, wallet_id, wallet_kind, amount_value, amount_unit, kind, cause_id,
		 reason, idempotency_key, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID,
		tx.WalletID,
		tx.WalletKind,
		tx.Amount.Value.String(),
		tx.Amount.Unit,
		tx.Kind,
		tx.CauseID,
		nullString(tx.Reason),
		tx.IdempotencyKey(),
		nullString(tx.CreatedBy),
		formatTime(tx.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Transaction{}, generic.ErrDuplicateTransaction
		}
		return generic.Transaction{}, fmt.Errorf("failed to append transaction: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return generic.Transaction{}, fmt.Errorf("failed to read sequence: %w", err)
	}
	tx.Seq = seq
	return tx, nil
}

func (c *conn) FindTransaction(ctx context.Context, key string) (*generic.Transaction, error) {
	txs, err := c.queryTransactions(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = ?`, key)
	if err != nil {
		return nil, err
	}
	if len(txs) == 0 {
		return nil, nil
	}
	return &txs[0], nil
}

func (c *conn) LoadTransactions(ctx context.Context, walletID generic.WalletID) ([]generic.Transaction, error) {
	return c.LoadTransactionsAfter(ctx, walletID, 0)
}

func (c *conn) LoadTransactionsAfter(ctx context.Context, walletID generic.WalletID, afterSeq int64) ([]generic.Transaction, error) {
	return c.queryTransactions(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE wallet_id = ? AND seq > ?
		ORDER BY seq ASC`, walletID, afterSeq)
}

func (c *conn) queryTransactions(ctx context.Context, query string, args ...any) ([]generic.Transaction, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []generic.Transaction
	for rows.Next() {
		var (
			tx        generic.Transaction
			value     string
			unit      string
			reason    sql.NullString
			createdBy sql.NullString
			createdAt string
		)
		if err := rows.Scan(&tx.Seq, &tx.ID, &tx.WalletID, &tx.WalletKind, &value, &unit,
			&tx.Kind, &tx.CauseID, &reason, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		amount, err := parseAmount(value, unit)
		if err != nil {
			return nil, err
		}
		tx.Amount = amount
		tx.Reason = reason.String
		tx.CreatedBy = createdBy.String
		tx.CreatedAt = parseTime(createdAt)
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// ===== Requests =====

const requestColumns = `id, owner_id, domain, status, amount_value, amount_unit, approved_value,
	wallet_id, approval_id, type, start_date, end_date, items_json, attributes_json,
	created_at, transitioned_at, transitioned_by, reason, notes, version`

func (c *conn) CreateRequest(ctx context.Context, req *generic.Request) error {
	args, err := requestArgs(req)
	if err != nil {
		return err
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO requests (`+requestColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`, args...)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.NewValidationError("id", fmt.Sprintf("request %s already exists", req.ID))
		}
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Version = 1
	return nil
}

func (c *conn) UpdateRequest(ctx context.Context, req *generic.Request) error {
	args, err := requestArgs(req)
	if err != nil {
		return err
	}
	// args[0] is the id; the rest line up with the SET list.
	res, err := c.q.ExecContext(ctx, `
		UPDATE requests SET
			owner_id = ?, domain = ?, status = ?, amount_value = ?, amount_unit = ?,
			approved_value = ?, wallet_id = ?, approval_id = ?, type = ?, start_date = ?,
			end_date = ?, items_json = ?, attributes_json = ?, created_at = ?,
			transitioned_at = ?, transitioned_by = ?, reason = ?, notes = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		append(args[1:], req.ID, req.Version)...)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if err := c.checkVersioned(ctx, res, "requests", string(req.ID), generic.ErrRequestNotFound); err != nil {
		return err
	}
	req.Version++
	return nil
}

func (c *conn) GetRequest(ctx context.Context, id generic.RequestID) (*generic.Request, error) {
	reqs, err := c.queryRequests(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: %s", generic.ErrRequestNotFound, id)
	}
	return &reqs[0], nil
}

func (c *conn) ListRequests(ctx context.Context, filter generic.RequestFilter) ([]generic.Request, error) {
	var (
		where []string
		args  []any
	)
	if filter.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, filter.OwnerID)
	}
	if filter.Domain != "" {
		where = append(where, "domain = ?")
		args = append(args, filter.Domain)
	}
	if filter.WalletID != "" {
		where = append(where, "wallet_id = ?")
		args = append(args, filter.WalletID)
	}
	if len(filter.Statuses) > 0 {
		marks := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			marks[i] = "?"
			args = append(args, s)
		}
		where = append(where, "status IN ("+strings.Join(marks, ", ")+")")
	}

	query := `SELECT ` + requestColumns + ` FROM requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return c.queryRequests(ctx, query, args...)
}

func requestArgs(req *generic.Request) ([]any, error) {
	var approved sql.NullString
	if req.ApprovedAmount != nil {
		approved = sql.NullString{String: req.ApprovedAmount.Value.String(), Valid: true}
	}
	var approvalID sql.NullString
	if req.ApprovalID != nil {
		approvalID = nullString(string(*req.ApprovalID))
	}
	itemsJSON, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}
	attrsJSON, err := json.Marshal(req.Attributes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return []any{
		req.ID,
		req.OwnerID,
		req.Domain,
		req.Status,
		req.Amount.Value.String(),
		req.Amount.Unit,
		approved,
		req.WalletID,
		approvalID,
		nullString(req.Type),
		nullString(formatTime(req.StartDate)),
		nullString(formatTime(req.EndDate)),
		string(itemsJSON),
		string(attrsJSON),
		formatTime(req.CreatedAt),
		formatTime(req.TransitionedAt),
		nullString(req.TransitionedBy),
		nullString(req.Reason),
		nullString(req.Notes),
	}, nil
}

func (c *conn) queryRequests(ctx context.Context, query string, args ...any) ([]generic.Request, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []generic.Request
	for rows.Next() {
		var (
			r              generic.Request
			value, unit    string
			approved       sql.NullString
			approvalID     sql.NullString
			typ            sql.NullString
			start, end     sql.NullString
			itemsJSON      sql.NullString
			attrsJSON      sql.NullString
			createdAt      string
			transitionedAt string
			transitionedBy sql.NullString
			reason, notes  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Domain, &r.Status, &value, &unit, &approved,
			&r.WalletID, &approvalID, &typ, &start, &end, &itemsJSON, &attrsJSON,
			&createdAt, &transitionedAt, &transitionedBy, &reason, &notes, &r.Version); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		if r.Amount, err = parseAmount(value, unit); err != nil {
			return nil, err
		}
		if approved.Valid {
			a, err := parseAmount(approved.String, unit)
			if err != nil {
				return nil, err
			}
			r.ApprovedAmount = &a
		}
		if approvalID.Valid {
			id := generic.ApprovalID(approvalID.String)
			r.ApprovalID = &id
		}
		if itemsJSON.Valid && itemsJSON.String != "" && itemsJSON.String != "null" {
			if err := json.Unmarshal([]byte(itemsJSON.String), &r.Items); err != nil {
				return nil, fmt.Errorf("failed to decode items of %s: %w", r.ID, err)
			}
		}
		if attrsJSON.Valid && attrsJSON.String != "" && attrsJSON.String != "null" {
			if err := json.Unmarshal([]byte(attrsJSON.String), &r.Attributes); err != nil {
				return nil, fmt.Errorf("failed to decode attributes of %s: %w", r.ID, err)
			}
		}
		r.Type = typ.String
		r.StartDate = parseTime(start.String)
		r.EndDate = parseTime(end.String)
		r.CreatedAt = parseTime(createdAt)
		r.TransitionedAt = parseTime(transitionedAt)
		r.TransitionedBy = transitionedBy.String
		r.Reason = reason.String
		r.Notes = notes.String
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// ===== Approval records =====

const approvalColumns = `id, request_id, approver_id, decision, notes, reason,
	created_at, decided_at, decided_by, version`

func (c *conn) CreateApproval(ctx context.Context, a *generic.ApprovalRequest) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO approval_requests (`+approvalColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		a.ID, a.RequestID, a.ApproverID, a.Decision,
		nullString(a.Notes), nullString(a.Reason), formatTime(a.CreatedAt),
		nullTime(a.DecidedAt), nullString(a.DecidedBy),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.NewValidationError("id", fmt.Sprintf("approval %s already exists", a.ID))
		}
		return fmt.Errorf("failed to create approval: %w", err)
	}
	a.Version = 1
	return nil
}

func (c *conn) UpdateApproval(ctx context.Context, a *generic.ApprovalRequest) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE approval_requests SET
			decision = ?, notes = ?, reason = ?, decided_at = ?, decided_by = ?,
			version = version + 1
		WHERE id = ? AND version = ?`,
		a.Decision, nullString(a.Notes), nullString(a.Reason),
		nullTime(a.DecidedAt), nullString(a.DecidedBy), a.ID, a.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update approval: %w", err)
	}
	if err := c.checkVersioned(ctx, res, "approval_requests", string(a.ID), generic.ErrApprovalNotFound); err != nil {
		return err
	}
	a.Version++
	return nil
}

func (c *conn) GetApproval(ctx context.Context, id generic.ApprovalID) (*generic.ApprovalRequest, error) {
	var (
		a         generic.ApprovalRequest
		notes     sql.NullString
		reason    sql.NullString
		createdAt string
		decidedAt sql.NullString
		decidedBy sql.NullString
	)
	err := c.q.QueryRowContext(ctx,
		`SELECT `+approvalColumns+` FROM approval_requests WHERE id = ?`, id,
	).Scan(&a.ID, &a.RequestID, &a.ApproverID, &a.Decision, &notes, &reason,
		&createdAt, &decidedAt, &decidedBy, &a.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", generic.ErrApprovalNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval: %w", err)
	}
	a.Notes = notes.String
	a.Reason = reason.String
	a.CreatedAt = parseTime(createdAt)
	if decidedAt.Valid {
		t := parseTime(decidedAt.String)
		a.DecidedAt = &t
	}
	a.DecidedBy = decidedBy.String
	return &a, nil
}

// ===== Audit =====

func (c *conn) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO audit (id, request_id, actor_id, from_status, to_status, trigger_name, at, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.RequestID, nullString(e.ActorID), e.From, e.To, e.Trigger,
		formatTime(e.At), string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

func (c *conn) ListAudit(ctx context.Context, requestID generic.RequestID) ([]generic.AuditEntry, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, request_id, actor_id, from_status, to_status, trigger_name, at, payload_json
		FROM audit WHERE request_id = ? ORDER BY seq ASC`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit: %w", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			e       generic.AuditEntry
			actor   sql.NullString
			at      string
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &actor, &e.From, &e.To, &e.Trigger, &at, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.ActorID = actor.String
		e.At = parseTime(at)
		if payload.Valid && payload.String != "" && payload.String != "null" {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode audit payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// checkVersioned turns a zero-row versioned UPDATE into not-found or conflict.
func (c *conn) checkVersioned(ctx context.Context, res sql.Result, table, id string, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	if err := c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE id = ?`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check %s: %w", table, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", notFound, id)
	}
	return generic.ErrConcurrencyConflict
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return nullString(formatTime(*t))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseAmount(value, unit string) (generic.Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("failed to parse amount %q: %w", value, err)
	}
	return generic.Amount{Value: d, Unit: generic.Unit(unit)}, nil
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
