package quote

// Totals is the full pricing breakdown for one document snapshot.
type Totals struct {
	Sections []SectionTotals `json:"sections"`

	MaterialsTotal float64 `json:"materialsTotal"`
	LabourTotal    float64 `json:"labourTotal"`
	RawSubtotal    float64 `json:"rawSubtotal"`
	MarkupAmount   float64 `json:"markupAmount"`
	ClientSubtotal float64 `json:"clientSubtotal"`
	DiscountAmount float64 `json:"discountAmount"`
	TaxableAmount  float64 `json:"taxableAmount"`
	TaxAmount      float64 `json:"taxAmount"`
	CISAmount      float64 `json:"cisAmount"`
	GrandTotal     float64 `json:"grandTotal"`

	PartPaymentAmount float64           `json:"partPaymentAmount,omitempty"`
	Milestones        []MilestoneAmount `json:"milestones,omitempty"`
}

// SectionTotals is the per-section slice of the breakdown. Materials and
// Labour are always the raw computed figures, even when Price comes from a
// subsection override; the CIS base needs them undistorted.
type SectionTotals struct {
	SectionID string  `json:"sectionId"`
	Materials float64 `json:"materials"`
	Labour    float64 `json:"labour"`
	Price     float64 `json:"price"`
}

// MilestoneAmount resolves one milestone against the grand total.
type MilestoneAmount struct {
	MilestoneID string  `json:"milestoneId"`
	Amount      float64 `json:"amount"`
}

// ComputeTotals runs the pricing pipeline over a document snapshot. It is
// pure and cheap enough to call on every keystroke. Stage order matters:
// materials and labour feed markup, discount applies after markup and
// before tax, and CIS is a labour-only deduction taken after tax from the
// pre-markup labour figure.
func ComputeTotals(q *Quote) Totals {
	totals := Totals{Sections: make([]SectionTotals, 0, len(q.Sections))}

	for _, section := range q.Sections {
		materials := materialsSubtotal(section)
		labour := labourSubtotal(section, q.LabourRate)

		price := materials + labour
		if section.SubsectionPrice != nil {
			price = *section.SubsectionPrice
		}

		totals.Sections = append(totals.Sections, SectionTotals{
			SectionID: section.ID,
			Materials: materials,
			Labour:    labour,
			Price:     price,
		})
		totals.MaterialsTotal += materials
		totals.LabourTotal += labour
		totals.RawSubtotal += price
	}

	totals.MarkupAmount = totals.RawSubtotal * q.MarkupPercent / 100
	totals.ClientSubtotal = totals.RawSubtotal + totals.MarkupAmount

	if q.Discount != nil {
		switch q.Discount.Type {
		case DiscountPercentage:
			totals.DiscountAmount = totals.ClientSubtotal * q.Discount.Value / 100
		case DiscountFixed:
			totals.DiscountAmount = q.Discount.Value
		}
		// Clamp here, not downstream: nothing after this stage may go negative.
		if totals.DiscountAmount > totals.ClientSubtotal {
			totals.DiscountAmount = totals.ClientSubtotal
		}
		if totals.DiscountAmount < 0 {
			totals.DiscountAmount = 0
		}
	}

	totals.TaxableAmount = totals.ClientSubtotal - totals.DiscountAmount
	totals.TaxAmount = totals.TaxableAmount * q.TaxPercent / 100
	totals.CISAmount = totals.LabourTotal * q.CISPercent / 100
	totals.GrandTotal = totals.TaxableAmount + totals.TaxAmount - totals.CISAmount

	if q.PartPayment != nil {
		switch q.PartPayment.Type {
		case DiscountPercentage:
			totals.PartPaymentAmount = totals.GrandTotal * q.PartPayment.Value / 100
		case DiscountFixed:
			totals.PartPaymentAmount = q.PartPayment.Value
		}
	}

	for _, milestone := range q.Milestones {
		amount := milestone.Amount
		if milestone.Percent > 0 {
			amount = totals.GrandTotal * milestone.Percent / 100
		}
		totals.Milestones = append(totals.Milestones, MilestoneAmount{
			MilestoneID: milestone.ID,
			Amount:      amount,
		})
	}

	return totals
}

func materialsSubtotal(section Section) float64 {
	var sum float64
	for _, item := range section.Materials {
		if item.Heading {
			continue
		}
		sum += item.TotalPrice
	}
	return sum
}

// labourSubtotal resolves the section's labour cost through exactly one
// path: flat cost override, then itemized labour, then flat hours.
func labourSubtotal(section Section, documentRate float64) float64 {
	if section.LabourCost != nil {
		return *section.LabourCost
	}

	sectionRate := documentRate
	if section.LabourRate > 0 {
		sectionRate = section.LabourRate
	}

	if len(section.LabourItems) > 0 {
		var sum float64
		for _, item := range section.LabourItems {
			rate := sectionRate
			if item.Rate > 0 {
				rate = item.Rate
			}
			sum += item.Hours * rate
		}
		return sum
	}

	return section.LabourHours * sectionRate
}
