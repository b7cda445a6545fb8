// Package quote holds the priced-document model and its pricing pipeline.
// Quotes, estimates and invoices share one shape; the document type only
// changes presentation and lifecycle, never the arithmetic.
package quote

import "time"

type DocumentType string

const (
	TypeEstimate  DocumentType = "estimate"
	TypeQuotation DocumentType = "quotation"
	TypeInvoice   DocumentType = "invoice"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusInvoiced Status = "invoiced"
	StatusPaid     Status = "paid"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount is applied after markup and before tax.
type Discount struct {
	Type        DiscountType `json:"type"`
	Value       float64      `json:"value"`
	Description string       `json:"description,omitempty"`
}

// PartPayment describes an up-front deposit request shown on the document.
type PartPayment struct {
	Type  DiscountType `json:"type"`
	Value float64      `json:"value"`
	Label string       `json:"label,omitempty"`
}

// Milestone is a scheduled partial payment against the grand total.
// Percent and Amount are mutually exclusive per milestone; a milestone set
// may mix both modes.
type Milestone struct {
	ID      string     `json:"id"`
	Label   string     `json:"label"`
	Percent float64    `json:"percent,omitempty"`
	Amount  float64    `json:"amount,omitempty"`
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// DisplayOptions selects which breakdown rows the rendered document shows.
// Irrelevant to pricing.
type DisplayOptions struct {
	ShowMaterials bool `json:"showMaterials"`
	ShowLabour    bool `json:"showLabour"`
	ShowMarkup    bool `json:"showMarkup"`
	ShowDiscount  bool `json:"showDiscount"`
	ShowTax       bool `json:"showTax"`
	ShowCIS       bool `json:"showCis"`
}

// MaterialItem is one material line within a section. TotalPrice is derived
// from Quantity and UnitPrice and is recomputed on every mutation; it is
// never independently settable.
type MaterialItem struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
	TotalPrice  float64 `json:"totalPrice"`
	AIProposed  bool    `json:"aiProposed,omitempty"`
	Heading     bool    `json:"heading,omitempty"`
}

// LabourItem is one labour line within a section. Rate falls back to the
// section rate, then the document rate, when zero.
type LabourItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Hours       float64 `json:"hours"`
	Rate        float64 `json:"rate,omitempty"`
	AIProposed  bool    `json:"aiProposed,omitempty"`
}

// Section groups materials and labour under one named block. Labour is
// either the flat LabourHours figure or the itemized LabourItems list;
// any labour item supersedes the flat hours for calculation.
type Section struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Materials   []MaterialItem `json:"materials"`
	LabourHours float64        `json:"labourHours,omitempty"`
	LabourItems []LabourItem   `json:"labourItems,omitempty"`
	// LabourRate overrides the document rate for this section when > 0.
	LabourRate float64 `json:"labourRate,omitempty"`
	// LabourCost, when set, replaces the computed hours×rate figure.
	LabourCost *float64 `json:"labourCost,omitempty"`
	// SubsectionPrice, when set, replaces the section's materials+labour
	// subtotal entirely.
	SubsectionPrice *float64 `json:"subsectionPrice,omitempty"`
}

// Quote is the priced document. The ID is client-generated before any
// remote write; Confirmed flips (one way) once the remote store has
// acknowledged it.
type Quote struct {
	ID         string       `json:"id"`
	Type       DocumentType `json:"type"`
	Status     Status       `json:"status"`
	Confirmed  bool         `json:"confirmed,omitempty"`
	CustomerID string       `json:"customerId,omitempty"`
	JobID      string       `json:"jobId,omitempty"`
	Title      string       `json:"title"`
	Notes      string       `json:"notes,omitempty"`

	Sections []Section `json:"sections"`

	LabourRate    float64      `json:"labourRate"`
	MarkupPercent float64      `json:"markupPercent"`
	TaxPercent    float64      `json:"taxPercent"`
	CISPercent    float64      `json:"cisPercent"`
	Discount      *Discount    `json:"discount,omitempty"`
	PartPayment   *PartPayment `json:"partPayment,omitempty"`
	Milestones    []Milestone  `json:"milestones,omitempty"`

	Display DisplayOptions `json:"display"`

	IssueDate time.Time  `json:"issueDate"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Settings seeds a fresh document with account-level defaults.
type Settings struct {
	LabourRate    float64
	MarkupPercent float64
	TaxPercent    float64
	CISPercent    float64
	DefaultNotes  string
}

// New constructs a fresh draft with one empty section, seeded from the
// caller's settings.
func New(id string, docType DocumentType, settings Settings) *Quote {
	now := time.Now()
	return &Quote{
		ID:            id,
		Type:          docType,
		Status:        StatusDraft,
		Sections:      []Section{{ID: newItemID(), Title: "", Materials: []MaterialItem{}}},
		LabourRate:    settings.LabourRate,
		MarkupPercent: settings.MarkupPercent,
		TaxPercent:    settings.TaxPercent,
		CISPercent:    settings.CISPercent,
		Notes:         settings.DefaultNotes,
		Display: DisplayOptions{
			ShowMaterials: true,
			ShowLabour:    true,
			ShowTax:       true,
		},
		IssueDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Empty reports whether the document carries nothing worth persisting:
// no title, no customer, and no section with a named material, labour
// line, or flat hours.
func (q *Quote) Empty() bool {
	if q.Title != "" || q.CustomerID != "" {
		return false
	}
	for _, section := range q.Sections {
		if section.Title != "" || section.LabourHours > 0 || len(section.LabourItems) > 0 {
			return false
		}
		for _, item := range section.Materials {
			if item.Name != "" {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy, safe to hand to background writers while the
// editing session keeps mutating the original.
func (q *Quote) Clone() *Quote {
	copied := *q
	copied.Sections = make([]Section, len(q.Sections))
	for i, section := range q.Sections {
		copied.Sections[i] = cloneSection(section)
	}
	if q.Discount != nil {
		discount := *q.Discount
		copied.Discount = &discount
	}
	if q.PartPayment != nil {
		part := *q.PartPayment
		copied.PartPayment = &part
	}
	if q.Milestones != nil {
		copied.Milestones = make([]Milestone, len(q.Milestones))
		copy(copied.Milestones, q.Milestones)
	}
	if q.DueDate != nil {
		due := *q.DueDate
		copied.DueDate = &due
	}
	return &copied
}

func cloneSection(section Section) Section {
	copied := section
	copied.Materials = make([]MaterialItem, len(section.Materials))
	copy(copied.Materials, section.Materials)
	if section.LabourItems != nil {
		copied.LabourItems = make([]LabourItem, len(section.LabourItems))
		copy(copied.LabourItems, section.LabourItems)
	}
	if section.LabourCost != nil {
		cost := *section.LabourCost
		copied.LabourCost = &cost
	}
	if section.SubsectionPrice != nil {
		price := *section.SubsectionPrice
		copied.SubsectionPrice = &price
	}
	return copied
}
