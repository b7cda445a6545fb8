package quote

import "math"

// milestoneTolerance absorbs float drift when checking milestone sums.
const milestoneTolerance = 0.01

// ValidationResult separates blocking problems from advisory warnings.
// Errors block an explicit save; warnings never do.
type ValidationResult struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r ValidationResult) OK() bool {
	return len(r.Errors) == 0
}

// ValidateForSave checks the document ahead of an explicit save. Editing is
// never blocked by validation; only the save action is.
func (q *Quote) ValidateForSave() ValidationResult {
	var result ValidationResult

	if q.Title == "" {
		result.Errors = append(result.Errors, "title is required")
	}
	if q.CustomerID == "" {
		result.Errors = append(result.Errors, "customer is required")
	}

	if warning := q.milestoneWarning(); warning != "" {
		result.Warnings = append(result.Warnings, warning)
	}
	return result
}

// milestoneWarning checks the soft invariant on the milestone set:
// percentages should sum to 100, fixed amounts should sum to the grand
// total, and a mixed set should cover the grand total between them.
func (q *Quote) milestoneWarning() string {
	if len(q.Milestones) == 0 {
		return ""
	}

	totals := ComputeTotals(q)
	var percent, fixed float64
	for _, milestone := range q.Milestones {
		if milestone.Percent > 0 {
			percent += milestone.Percent
		} else {
			fixed += milestone.Amount
		}
	}

	covered := totals.GrandTotal*percent/100 + fixed
	if math.Abs(covered-totals.GrandTotal) > milestoneTolerance {
		return "payment milestones do not add up to the document total"
	}
	return ""
}
