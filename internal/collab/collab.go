// Package collab defines the contracts for external collaborators the core
// calls but does not implement: AI requirement analysis, voice item
// extraction, and customer creation. Callers treat a nil collaborator as
// the feature being unavailable, not as an error.
package collab

import "context"

// ProposedMaterial is a material line suggested by the analysis service.
type ProposedMaterial struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
}

// ProposedLabour is a labour line suggested by the analysis service.
type ProposedLabour struct {
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate,omitempty"`
}

// Analysis is the structured extraction returned for free text, a photo,
// or a voice transcript.
type Analysis struct {
	SuggestedTitle string             `json:"suggestedTitle,omitempty"`
	Materials      []ProposedMaterial `json:"materials"`
	Labour         []ProposedLabour   `json:"labour"`
}

// AnalyzeRequest carries the inputs for a full requirements analysis.
// ImageKey references an uploaded attachment in object storage.
type AnalyzeRequest struct {
	Text     string
	ImageKey string
	Context  string
}

// Analyzer is the AI extraction collaborator.
type Analyzer interface {
	AnalyzeRequirements(ctx context.Context, req AnalyzeRequest) (Analysis, error)
	ParseVoiceItems(ctx context.Context, transcript string) ([]ProposedMaterial, error)
}

// Customer is the shape returned by the customer-creation collaborator.
// The core stores only the confirmed ID as a foreign reference.
type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// CustomerDirectory confirms customer identities. Absent a directory the
// core assigns identities itself.
type CustomerDirectory interface {
	AddCustomer(ctx context.Context, customer Customer) (Customer, error)
}
