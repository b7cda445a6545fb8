package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultQuote    ResultType = "quote"
	ResultCustomer ResultType = "customer"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type         ResultType `json:"type"`
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Snippet      string     `json:"snippet"`
	CustomerID   string     `json:"customerId,omitempty"`
	CustomerName string     `json:"customerName,omitempty"`
	Status       string     `json:"status,omitempty"`
	DocType      string     `json:"docType,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text             string
	FilterType       ResultType // empty = all types
	FilterCustomerID string
	FilterStatus     string
	Limit            int
	Offset           int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexQuote(q QuoteRecord) error
	IndexCustomer(c CustomerRecord) error
	DeleteQuote(id string) error
	DeleteCustomer(id string) error
}

// QuoteRecord is the data we index for a quote or invoice.
type QuoteRecord struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Notes        string `json:"notes"`
	CustomerID   string `json:"customerId"`
	CustomerName string `json:"customerName"`
	Status       string `json:"status"`
	DocType      string `json:"docType"`
}

// CustomerRecord is the data we index for a customer.
type CustomerRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}
