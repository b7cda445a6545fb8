package quote

import (
	"math"
	"testing"
)

func almostEqual(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s: got %v, want %v", label, got, want)
	}
}

func fixedDocument() *Quote {
	q := New("q_test", TypeQuotation, Settings{LabourRate: 50, TaxPercent: 20})
	q.MarkupPercent = 10
	q.CISPercent = 20
	q.Discount = &Discount{Type: DiscountPercentage, Value: 5}

	sectionID := q.Sections[0].ID
	if _, err := q.AddMaterial(sectionID, MaterialItem{Name: "Copper pipe", Quantity: 10, UnitPrice: 5}); err != nil {
		panic(err)
	}
	if _, err := q.AddLabourItem(sectionID, LabourItem{Description: "First fix", Hours: 8}); err != nil {
		panic(err)
	}
	return q
}

func TestComputeTotalsWorkedScenario(t *testing.T) {
	q := fixedDocument()
	totals := ComputeTotals(q)

	almostEqual(t, "materialsTotal", totals.MaterialsTotal, 50)
	almostEqual(t, "labourTotal", totals.LabourTotal, 400)
	almostEqual(t, "rawSubtotal", totals.RawSubtotal, 450)
	almostEqual(t, "markupAmount", totals.MarkupAmount, 45)
	almostEqual(t, "clientSubtotal", totals.ClientSubtotal, 495)
	almostEqual(t, "discountAmount", totals.DiscountAmount, 24.75)
	almostEqual(t, "taxableAmount", totals.TaxableAmount, 470.25)
	almostEqual(t, "taxAmount", totals.TaxAmount, 94.05)
	almostEqual(t, "cisAmount", totals.CISAmount, 80)
	almostEqual(t, "grandTotal", totals.GrandTotal, 484.30)
}

func TestComputeTotalsIsPure(t *testing.T) {
	q := fixedDocument()
	first := ComputeTotals(q)
	second := ComputeTotals(q)
	almostEqual(t, "grandTotal", second.GrandTotal, first.GrandTotal)
	almostEqual(t, "discountAmount", second.DiscountAmount, first.DiscountAmount)
	if len(first.Sections) != len(second.Sections) {
		t.Errorf("section count changed between calls: %d vs %d", len(first.Sections), len(second.Sections))
	}
}

func TestComputeTotalsEmptyDocument(t *testing.T) {
	q := New("q_empty", TypeEstimate, Settings{})
	totals := ComputeTotals(q)
	almostEqual(t, "rawSubtotal", totals.RawSubtotal, 0)
	almostEqual(t, "taxAmount", totals.TaxAmount, 0)
	almostEqual(t, "grandTotal", totals.GrandTotal, 0)
}

func TestHeadingRowsContributeNothing(t *testing.T) {
	q := fixedDocument()
	before := ComputeTotals(q)

	if _, err := q.AddMaterial(q.Sections[0].ID, MaterialItem{Name: "Plumbing", Heading: true, Quantity: 3, UnitPrice: 99}); err != nil {
		t.Fatalf("add heading: %v", err)
	}
	after := ComputeTotals(q)
	almostEqual(t, "materialsTotal", after.MaterialsTotal, before.MaterialsTotal)
	almostEqual(t, "grandTotal", after.GrandTotal, before.GrandTotal)
}

func TestCISIgnoresMarkupAndDiscount(t *testing.T) {
	q := fixedDocument()
	base := ComputeTotals(q)

	q.MarkupPercent = 35
	q.Discount = &Discount{Type: DiscountFixed, Value: 120}
	changed := ComputeTotals(q)

	almostEqual(t, "cisAmount", changed.CISAmount, base.CISAmount)
}

func TestDiscountClampedToClientSubtotal(t *testing.T) {
	q := fixedDocument()
	q.Discount = &Discount{Type: DiscountFixed, Value: 10000}
	totals := ComputeTotals(q)

	almostEqual(t, "discountAmount", totals.DiscountAmount, totals.ClientSubtotal)
	almostEqual(t, "taxableAmount", totals.TaxableAmount, 0)
	almostEqual(t, "taxAmount", totals.TaxAmount, 0)
	// CIS still applies: it is a withholding, not a price component.
	almostEqual(t, "grandTotal", totals.GrandTotal, -totals.CISAmount)
}

func TestNegativeDiscountClampedToZero(t *testing.T) {
	q := fixedDocument()
	q.Discount = &Discount{Type: DiscountFixed, Value: -50}
	totals := ComputeTotals(q)
	almostEqual(t, "discountAmount", totals.DiscountAmount, 0)
}

func TestSubsectionPriceOverridesSectionButNotCISBase(t *testing.T) {
	q := fixedDocument()
	override := 1000.0
	q.Sections[0].SubsectionPrice = &override

	totals := ComputeTotals(q)
	almostEqual(t, "rawSubtotal", totals.RawSubtotal, 1000)
	almostEqual(t, "materialsTotal", totals.MaterialsTotal, 50)
	almostEqual(t, "labourTotal", totals.LabourTotal, 400)
	almostEqual(t, "cisAmount", totals.CISAmount, 80)
}

func TestLabourResolutionPriority(t *testing.T) {
	q := New("q_labour", TypeQuotation, Settings{LabourRate: 40})
	sectionID := q.Sections[0].ID

	// Flat hours at the document rate.
	if err := q.UpdateSection(sectionID, func(s *Section) { s.LabourHours = 10 }); err != nil {
		t.Fatalf("update section: %v", err)
	}
	almostEqual(t, "flat hours", ComputeTotals(q).LabourTotal, 400)

	// Section rate overrides the document rate.
	if err := q.UpdateSection(sectionID, func(s *Section) { s.LabourRate = 60 }); err != nil {
		t.Fatalf("update section: %v", err)
	}
	almostEqual(t, "section rate", ComputeTotals(q).LabourTotal, 600)

	// Itemized labour supersedes flat hours; item rate wins over section rate.
	if _, err := q.AddLabourItem(sectionID, LabourItem{Description: "Fit boiler", Hours: 2}); err != nil {
		t.Fatalf("add labour: %v", err)
	}
	if _, err := q.AddLabourItem(sectionID, LabourItem{Description: "Commission", Hours: 1, Rate: 90}); err != nil {
		t.Fatalf("add labour: %v", err)
	}
	almostEqual(t, "itemized", ComputeTotals(q).LabourTotal, 2*60+90)

	// Flat labour cost override beats everything.
	if err := q.UpdateSection(sectionID, func(s *Section) { cost := 150.0; s.LabourCost = &cost }); err != nil {
		t.Fatalf("update section: %v", err)
	}
	almostEqual(t, "cost override", ComputeTotals(q).LabourTotal, 150)
}

func TestMilestoneAmountsResolveAgainstGrandTotal(t *testing.T) {
	q := fixedDocument()
	q.SetMilestones([]Milestone{
		{Label: "Deposit", Percent: 50},
		{Label: "Completion", Amount: 200},
	})

	totals := ComputeTotals(q)
	if len(totals.Milestones) != 2 {
		t.Fatalf("expected 2 milestone amounts, got %d", len(totals.Milestones))
	}
	almostEqual(t, "deposit", totals.Milestones[0].Amount, totals.GrandTotal/2)
	almostEqual(t, "completion", totals.Milestones[1].Amount, 200)
}

func TestPartPaymentAmount(t *testing.T) {
	q := fixedDocument()
	q.SetPartPayment(&PartPayment{Type: DiscountPercentage, Value: 25, Label: "Deposit"})
	totals := ComputeTotals(q)
	almostEqual(t, "partPayment", totals.PartPaymentAmount, totals.GrandTotal/4)
}
