package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across quotes and customers using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Quotes sub-query
	if q.FilterType == "" || q.FilterType == ResultQuote {
		quoteWhere := "q.search_tsv @@ " + tsQuery
		if q.FilterCustomerID != "" {
			quoteWhere += fmt.Sprintf(" AND q.customer_id = $%d", argN)
			args = append(args, q.FilterCustomerID)
			argN++
		}
		if q.FilterStatus != "" {
			quoteWhere += fmt.Sprintf(" AND q.status = $%d", argN)
			args = append(args, q.FilterStatus)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'quote'::text AS type, q.id, q.title,
				ts_headline('english', coalesce(q.payload->>'notes', ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				coalesce(q.customer_id, '') AS customer_id,
				coalesce(c.name, '') AS customer_name,
				q.status, q.doc_type,
				ts_rank(q.search_tsv, %s) AS rank
			FROM quotes q
			LEFT JOIN customers c ON c.id = q.customer_id
			WHERE %s`, tsQuery, tsQuery, quoteWhere))
	}

	// Customers sub-query. No tsvector column on customers; a trigram
	// index would be overkill at this table size, so ILIKE it is.
	if q.FilterType == "" || q.FilterType == ResultCustomer {
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'customer'::text AS type, c.id, c.name AS title,
				coalesce(c.address, '') AS snippet,
				c.id AS customer_id,
				c.name AS customer_name,
				''::text AS status, ''::text AS doc_type,
				0.1::real AS rank
			FROM customers c
			WHERE c.name ILIKE '%%' || $1 || '%%'
				OR coalesce(c.email, '') ILIKE '%%' || $1 || '%%'
				OR coalesce(c.phone, '') ILIKE '%%' || $1 || '%%'`))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, customer_id, customer_name, status, doc_type
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.CustomerID, &r.CustomerName, &r.Status, &r.DocType); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]QuoteRecord, []CustomerRecord, error) {
	quoteRows, err := p.db.QueryContext(ctx, `
		SELECT q.id, q.title, coalesce(q.payload->>'notes', ''),
			coalesce(q.customer_id, ''), coalesce(c.name, ''),
			q.status, q.doc_type
		FROM quotes q
		LEFT JOIN customers c ON c.id = q.customer_id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load quotes: %w", err)
	}
	defer quoteRows.Close()

	quotes := make([]QuoteRecord, 0)
	for quoteRows.Next() {
		var q QuoteRecord
		if err := quoteRows.Scan(&q.ID, &q.Title, &q.Notes, &q.CustomerID, &q.CustomerName, &q.Status, &q.DocType); err != nil {
			return nil, nil, fmt.Errorf("scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := quoteRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate quotes: %w", err)
	}

	custRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, coalesce(email, ''), coalesce(phone, ''), coalesce(address, '')
		FROM customers
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load customers: %w", err)
	}
	defer custRows.Close()

	customers := make([]CustomerRecord, 0)
	for custRows.Next() {
		var c CustomerRecord
		if err := custRows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address); err != nil {
			return nil, nil, fmt.Errorf("scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	if err := custRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate customers: %w", err)
	}

	return quotes, customers, nil
}
