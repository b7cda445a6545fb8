package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradedesk/api/internal/quote"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveQuote upserts the full document. The payload column is the source of
// truth; the extracted columns exist for listing and search. Repeated calls
// with the same identity are idempotent.
func (s *PostgresStore) SaveQuote(ctx context.Context, q *quote.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("marshal quote %s: %w", q.ID, err)
	}
	totals := quote.ComputeTotals(q)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO quotes (id, doc_type, status, title, customer_id, job_id, grand_total, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, NOW())
		ON CONFLICT (id) DO UPDATE SET
			doc_type=EXCLUDED.doc_type,
			status=EXCLUDED.status,
			title=EXCLUDED.title,
			customer_id=EXCLUDED.customer_id,
			job_id=EXCLUDED.job_id,
			grand_total=EXCLUDED.grand_total,
			payload=EXCLUDED.payload,
			updated_at=NOW()
	`, q.ID, string(q.Type), string(q.Status), q.Title, q.CustomerID, q.JobID, totals.GrandTotal, payload, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("save quote %s: %w", q.ID, err)
	}
	return nil
}

// GetQuote loads one document from its stored payload, migrating legacy
// shapes as needed.
func (s *PostgresStore) GetQuote(ctx context.Context, id string) (*quote.Quote, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM quotes WHERE id=$1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quote %s: %w", id, err)
	}
	q, err := quote.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode quote %s: %w", id, err)
	}
	return q, nil
}

// ListQuotes returns summaries ordered by recency, optionally filtered by
// customer.
func (s *PostgresStore) ListQuotes(ctx context.Context, customerID string) ([]QuoteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.doc_type, q.status, q.title, COALESCE(q.customer_id, ''), COALESCE(c.name, ''), COALESCE(q.job_id, ''), q.grand_total, q.updated_at
		FROM quotes q
		LEFT JOIN customers c ON c.id = q.customer_id
		WHERE $1 = '' OR q.customer_id = $1
		ORDER BY q.updated_at DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list quotes: %w", err)
	}
	defer rows.Close()

	items := make([]QuoteSummary, 0)
	for rows.Next() {
		var item QuoteSummary
		if err := rows.Scan(&item.ID, &item.Type, &item.Status, &item.Title, &item.CustomerID, &item.CustomerName, &item.JobID, &item.GrandTotal, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}
	return items, nil
}

// DeleteQuote removes a document and its milestones. Documents are only
// ever destroyed by explicit user deletion.
func (s *PostgresStore) DeleteQuote(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM quotes WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete quote %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("quote %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetMilestones loads the milestone sub-resource in display order.
func (s *PostgresStore) GetMilestones(ctx context.Context, quoteID string) ([]quote.Milestone, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, percent, amount, due_date
		FROM milestones
		WHERE quote_id=$1
		ORDER BY position
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("get milestones %s: %w", quoteID, err)
	}
	defer rows.Close()

	items := make([]quote.Milestone, 0)
	for rows.Next() {
		var item quote.Milestone
		if err := rows.Scan(&item.ID, &item.Label, &item.Percent, &item.Amount, &item.DueDate); err != nil {
			return nil, fmt.Errorf("scan milestone: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return items, nil
}

// SaveMilestonesBatch replaces the milestone set for a quote in one
// transaction, called once per explicit save.
func (s *PostgresStore) SaveMilestonesBatch(ctx context.Context, quoteID string, milestones []quote.Milestone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin milestones tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM milestones WHERE quote_id=$1`, quoteID); err != nil {
		return fmt.Errorf("clear milestones %s: %w", quoteID, err)
	}
	for position, milestone := range milestones {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO milestones (id, quote_id, label, percent, amount, due_date, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, milestone.ID, quoteID, milestone.Label, milestone.Percent, milestone.Amount, milestone.DueDate, position)
		if err != nil {
			return fmt.Errorf("insert milestone %s: %w", milestone.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit milestones %s: %w", quoteID, err)
	}
	return nil
}

func (s *PostgresStore) InsertCustomer(ctx context.Context, customer Customer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, customer.ID, customer.Name, customer.Email, customer.Phone, customer.Address)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCustomer(ctx context.Context, id string) (Customer, error) {
	var customer Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_at, updated_at
		FROM customers WHERE id=$1
	`, id).Scan(&customer.ID, &customer.Name, &customer.Email, &customer.Phone, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Customer{}, fmt.Errorf("get customer %s: %w", id, err)
	}
	return customer, nil
}

func (s *PostgresStore) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(email, ''), COALESCE(phone, ''), COALESCE(address, ''), created_at, updated_at
		FROM customers ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	items := make([]Customer, 0)
	for rows.Next() {
		var customer Customer
		if err := rows.Scan(&customer.ID, &customer.Name, &customer.Email, &customer.Phone, &customer.Address, &customer.CreatedAt, &customer.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		items = append(items, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertAttachment(ctx context.Context, attachment Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, quote_id, object_key, name, mime_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, attachment.ID, attachment.QuoteID, attachment.Key, attachment.Name, attachment.MimeType, attachment.Size)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAttachments(ctx context.Context, quoteID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, quote_id, object_key, name, mime_type, size_bytes, created_at
		FROM attachments WHERE quote_id=$1 ORDER BY created_at
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		var item Attachment
		if err := rows.Scan(&item.ID, &item.QuoteID, &item.Key, &item.Name, &item.MimeType, &item.Size, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, display_name, email, password_hash)
		VALUES ($1, $2, $3, $4)
	`, user.ID, user.DisplayName, user.Email, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash FROM users WHERE email=$1
	`, email).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, email, password_hash FROM users WHERE id=$1
	`, id).Scan(&user.ID, &user.DisplayName, &user.Email, &user.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.display_name, u.email
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`, tokenHash).Scan(&user.ID, &user.DisplayName, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("refresh session: %w", ErrNotFound)
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}
