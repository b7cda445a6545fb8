package store

import "time"

type User struct {
	ID           string
	DisplayName  string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Customer is a CRM record; quotes reference customers by ID only.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuoteSummary is the list-view projection of a stored quote: the indexed
// columns without the document payload.
type QuoteSummary struct {
	ID           string
	Type         string
	Status       string
	Title        string
	CustomerID   string
	CustomerName string
	JobID        string
	GrandTotal   float64
	UpdatedAt    time.Time
}

// MilestoneRow is the persisted form of a payment milestone, a sub-resource
// of a quote loaded once on open and written once on explicit save.
type MilestoneRow struct {
	ID       string
	QuoteID  string
	Label    string
	Percent  float64
	Amount   float64
	DueDate  *time.Time
	Position int
}

// Attachment records an uploaded photo or file linked to a quote; the
// object itself lives in object storage under Key.
type Attachment struct {
	ID        string
	QuoteID   string
	Key       string
	Name      string
	MimeType  string
	Size      int64
	CreatedAt time.Time
}
