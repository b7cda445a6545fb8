package quote

import (
	"errors"
	"fmt"
	"time"

	"tradedesk/api/internal/util"
)

var (
	ErrLastSection     = errors.New("a document must keep at least one section")
	ErrSectionNotFound = errors.New("section not found")
	ErrItemNotFound    = errors.New("item not found")
)

func newItemID() string {
	return util.NewID("it")
}

func (q *Quote) touch() {
	q.UpdatedAt = time.Now()
}

func (q *Quote) section(sectionID string) (*Section, error) {
	for i := range q.Sections {
		if q.Sections[i].ID == sectionID {
			return &q.Sections[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
}

// AddSection appends a new named section and returns its id.
func (q *Quote) AddSection(title string) string {
	section := Section{ID: newItemID(), Title: title, Materials: []MaterialItem{}}
	q.Sections = append(q.Sections, section)
	q.touch()
	return section.ID
}

// RemoveSection deletes a section. Removing the last remaining section is
// rejected: every document keeps at least one.
func (q *Quote) RemoveSection(sectionID string) error {
	if len(q.Sections) <= 1 {
		return ErrLastSection
	}
	for i := range q.Sections {
		if q.Sections[i].ID == sectionID {
			q.Sections = append(q.Sections[:i], q.Sections[i+1:]...)
			q.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
}

// MoveSection shifts a section to a new position, clamping the target index
// into range.
func (q *Quote) MoveSection(sectionID string, toIndex int) error {
	from := -1
	for i := range q.Sections {
		if q.Sections[i].ID == sectionID {
			from = i
			break
		}
	}
	if from == -1 {
		return fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID)
	}
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex >= len(q.Sections) {
		toIndex = len(q.Sections) - 1
	}
	section := q.Sections[from]
	q.Sections = append(q.Sections[:from], q.Sections[from+1:]...)
	q.Sections = append(q.Sections[:toIndex], append([]Section{section}, q.Sections[toIndex:]...)...)
	q.touch()
	return nil
}

// UpdateSection applies title/description/rate edits to a section.
func (q *Quote) UpdateSection(sectionID string, apply func(*Section)) error {
	section, err := q.section(sectionID)
	if err != nil {
		return err
	}
	apply(section)
	section.recomputeMaterials()
	q.touch()
	return nil
}

// AddMaterial appends a material line to a section and returns its id.
// The line's total is derived immediately.
func (q *Quote) AddMaterial(sectionID string, item MaterialItem) (string, error) {
	section, err := q.section(sectionID)
	if err != nil {
		return "", err
	}
	if item.ID == "" {
		item.ID = newItemID()
	}
	item.normalize()
	section.Materials = append(section.Materials, item)
	q.touch()
	return item.ID, nil
}

// UpdateMaterial mutates one material line. Whatever the edit touched,
// TotalPrice is recomputed from quantity and unit price afterwards.
func (q *Quote) UpdateMaterial(sectionID, itemID string, apply func(*MaterialItem)) error {
	section, err := q.section(sectionID)
	if err != nil {
		return err
	}
	for i := range section.Materials {
		if section.Materials[i].ID == itemID {
			apply(&section.Materials[i])
			section.Materials[i].normalize()
			q.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
}

// RemoveMaterial deletes one material line.
func (q *Quote) RemoveMaterial(sectionID, itemID string) error {
	section, err := q.section(sectionID)
	if err != nil {
		return err
	}
	for i := range section.Materials {
		if section.Materials[i].ID == itemID {
			section.Materials = append(section.Materials[:i], section.Materials[i+1:]...)
			q.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
}

// RemoveAIProposed strips every AI-proposed material and labour line from a
// section in one pass. Returns how many lines were removed.
func (q *Quote) RemoveAIProposed(sectionID string) (int, error) {
	section, err := q.section(sectionID)
	if err != nil {
		return 0, err
	}
	removed := 0
	materials := section.Materials[:0]
	for _, item := range section.Materials {
		if item.AIProposed {
			removed++
			continue
		}
		materials = append(materials, item)
	}
	section.Materials = materials

	labour := section.LabourItems[:0]
	for _, item := range section.LabourItems {
		if item.AIProposed {
			removed++
			continue
		}
		labour = append(labour, item)
	}
	if len(labour) == 0 {
		section.LabourItems = nil
	} else {
		section.LabourItems = labour
	}
	if removed > 0 {
		q.touch()
	}
	return removed, nil
}

// AddLabourItem appends an itemized labour line. Any labour item supersedes
// the section's flat hours for calculation.
func (q *Quote) AddLabourItem(sectionID string, item LabourItem) (string, error) {
	section, err := q.section(sectionID)
	if err != nil {
		return "", err
	}
	if item.ID == "" {
		item.ID = newItemID()
	}
	if item.Hours < 0 {
		item.Hours = 0
	}
	section.LabourItems = append(section.LabourItems, item)
	q.touch()
	return item.ID, nil
}

// UpdateLabourItem mutates one labour line.
func (q *Quote) UpdateLabourItem(sectionID, itemID string, apply func(*LabourItem)) error {
	section, err := q.section(sectionID)
	if err != nil {
		return err
	}
	for i := range section.LabourItems {
		if section.LabourItems[i].ID == itemID {
			apply(&section.LabourItems[i])
			if section.LabourItems[i].Hours < 0 {
				section.LabourItems[i].Hours = 0
			}
			q.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
}

// RemoveLabourItem deletes one labour line. When the last one goes, the
// section falls back to its flat hours figure.
func (q *Quote) RemoveLabourItem(sectionID, itemID string) error {
	section, err := q.section(sectionID)
	if err != nil {
		return err
	}
	for i := range section.LabourItems {
		if section.LabourItems[i].ID == itemID {
			section.LabourItems = append(section.LabourItems[:i], section.LabourItems[i+1:]...)
			if len(section.LabourItems) == 0 {
				section.LabourItems = nil
			}
			q.touch()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
}

// SetMilestones replaces the milestone set, assigning ids to new entries.
func (q *Quote) SetMilestones(milestones []Milestone) {
	for i := range milestones {
		if milestones[i].ID == "" {
			milestones[i].ID = newItemID()
		}
	}
	q.Milestones = milestones
	q.touch()
}

// SetDiscount replaces the document discount; nil clears it.
func (q *Quote) SetDiscount(discount *Discount) {
	q.Discount = discount
	q.touch()
}

// SetPartPayment replaces the part-payment specification; nil clears it.
func (q *Quote) SetPartPayment(part *PartPayment) {
	q.PartPayment = part
	q.touch()
}

// normalize clamps quantity and re-derives the line total. Heading rows are
// zero-price dividers and carry no amounts at all.
func (m *MaterialItem) normalize() {
	if m.Heading {
		m.Quantity = 0
		m.UnitPrice = 0
		m.TotalPrice = 0
		return
	}
	if m.Quantity < 0 {
		m.Quantity = 0
	}
	m.TotalPrice = m.Quantity * m.UnitPrice
}

func (s *Section) recomputeMaterials() {
	for i := range s.Materials {
		s.Materials[i].normalize()
	}
}
