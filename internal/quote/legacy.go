package quote

import (
	"encoding/json"
	"time"
)

// legacyQuote is the pre-section document shape: a single flat item list
// with document-wide hours. Still present in older remote records.
type legacyQuote struct {
	ID          string         `json:"id"`
	Type        DocumentType   `json:"type"`
	Status      Status         `json:"status"`
	CustomerID  string         `json:"customerId"`
	JobID       string         `json:"jobId"`
	Title       string         `json:"title"`
	Notes       string         `json:"notes"`
	Items       []MaterialItem `json:"items"`
	LabourHours float64        `json:"labourHours"`
	LabourRate  float64        `json:"labourRate"`
	Markup      float64        `json:"markupPercent"`
	Tax         float64        `json:"taxPercent"`
	CIS         float64        `json:"cisPercent"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Decode unmarshals a stored document snapshot, migrating the legacy
// flat-item shape into the sectioned schema when needed. A shape mismatch
// is a one-time migration, never an error surfaced to the caller.
func Decode(payload []byte) (*Quote, error) {
	var probe struct {
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, err
	}

	if len(probe.Sections) > 0 && string(probe.Sections) != "null" {
		var q Quote
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, err
		}
		q.normalizeLoaded()
		return &q, nil
	}

	var old legacyQuote
	if err := json.Unmarshal(payload, &old); err != nil {
		return nil, err
	}
	return migrateLegacy(old), nil
}

// migrateLegacy wraps a flat-item document in a single untitled section.
func migrateLegacy(old legacyQuote) *Quote {
	section := Section{
		ID:          newItemID(),
		Materials:   old.Items,
		LabourHours: old.LabourHours,
	}
	if section.Materials == nil {
		section.Materials = []MaterialItem{}
	}
	q := &Quote{
		ID:            old.ID,
		Type:          old.Type,
		Status:        old.Status,
		CustomerID:    old.CustomerID,
		JobID:         old.JobID,
		Title:         old.Title,
		Notes:         old.Notes,
		Sections:      []Section{section},
		LabourRate:    old.LabourRate,
		MarkupPercent: old.Markup,
		TaxPercent:    old.Tax,
		CISPercent:    old.CIS,
		Display: DisplayOptions{
			ShowMaterials: true,
			ShowLabour:    true,
			ShowTax:       true,
		},
		CreatedAt: old.CreatedAt,
		UpdatedAt: old.UpdatedAt,
	}
	q.normalizeLoaded()
	return q
}

// normalizeLoaded re-derives every stored line total and guarantees the
// one-section minimum. Stored totals are never trusted.
func (q *Quote) normalizeLoaded() {
	if len(q.Sections) == 0 {
		q.Sections = []Section{{ID: newItemID(), Materials: []MaterialItem{}}}
	}
	for i := range q.Sections {
		if q.Sections[i].ID == "" {
			q.Sections[i].ID = newItemID()
		}
		if q.Sections[i].Materials == nil {
			q.Sections[i].Materials = []MaterialItem{}
		}
		q.Sections[i].recomputeMaterials()
	}
	if q.Status == "" {
		q.Status = StatusDraft
	}
	if q.Type == "" {
		q.Type = TypeQuotation
	}
}
