package quote

import "tradedesk/api/internal/collab"

// MergeAnalysis folds a collaborator extraction result into the target
// section as AI-proposed lines. The merge is all-or-nothing: the section is
// only touched once the whole result has been validated, so a failed or
// partial analysis never leaves stray lines behind.
func (q *Quote) MergeAnalysis(sectionID string, result collab.Analysis) error {
	section, err := q.section(sectionID)
	if err != nil {
		return err
	}

	materials := make([]MaterialItem, 0, len(result.Materials))
	for _, proposed := range result.Materials {
		item := MaterialItem{
			ID:          newItemID(),
			Name:        proposed.Name,
			Description: proposed.Description,
			Quantity:    proposed.Quantity,
			Unit:        proposed.Unit,
			UnitPrice:   proposed.UnitPrice,
			AIProposed:  true,
		}
		item.normalize()
		materials = append(materials, item)
	}

	labour := make([]LabourItem, 0, len(result.Labour))
	for _, proposed := range result.Labour {
		hours := proposed.Hours
		if hours < 0 {
			hours = 0
		}
		labour = append(labour, LabourItem{
			ID:          newItemID(),
			Description: proposed.Description,
			Hours:       hours,
			Rate:        proposed.Rate,
			AIProposed:  true,
		})
	}

	section.Materials = append(section.Materials, materials...)
	section.LabourItems = append(section.LabourItems, labour...)
	if result.SuggestedTitle != "" && q.Title == "" {
		q.Title = result.SuggestedTitle
	}
	q.touch()
	return nil
}

// MergeVoiceItems appends item-only voice extraction results to a section
// as AI-proposed material lines.
func (q *Quote) MergeVoiceItems(sectionID string, items []collab.ProposedMaterial) error {
	return q.MergeAnalysis(sectionID, collab.Analysis{Materials: items})
}
