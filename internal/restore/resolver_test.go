package restore

import (
	"context"
	"errors"
	"testing"

	"tradedesk/api/internal/quote"
)

type fakeDrafts struct {
	entries map[string]*quote.Quote
}

func (f *fakeDrafts) Load(ctx context.Context, key string) (*quote.Quote, bool) {
	q, ok := f.entries[key]
	return q, ok
}

type fakeRemote struct {
	getQuoteFn      func(context.Context, string) (*quote.Quote, error)
	getMilestonesFn func(context.Context, string) ([]quote.Milestone, error)
}

func (f *fakeRemote) GetQuote(ctx context.Context, id string) (*quote.Quote, error) {
	if f.getQuoteFn != nil {
		return f.getQuoteFn(ctx, id)
	}
	return nil, errors.New("not found")
}

func (f *fakeRemote) GetMilestones(ctx context.Context, quoteID string) ([]quote.Milestone, error) {
	if f.getMilestonesFn != nil {
		return f.getMilestonesFn(ctx, quoteID)
	}
	return nil, nil
}

func TestResolveRecoversCreationDraftWithPrompt(t *testing.T) {
	recovered := quote.New("q_rec", quote.TypeQuotation, quote.Settings{})
	recovered.Title = "Half-finished"
	drafts := &fakeDrafts{entries: map[string]*quote.Quote{"create:job_1": recovered}}
	resolver := New(drafts, &fakeRemote{})

	res, err := resolver.Resolve(context.Background(), Request{ProjectID: "job_1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceRecoveredDraft {
		t.Fatalf("expected recovered-draft, got %s", res.Source)
	}
	if !res.PromptRecovery {
		t.Errorf("creation-draft recovery must prompt the user")
	}
	if res.Document.Title != "Half-finished" {
		t.Errorf("wrong document hydrated: %q", res.Document.Title)
	}
}

func TestResolveRecoversEditDraftSilently(t *testing.T) {
	recovered := quote.New("q_5", quote.TypeInvoice, quote.Settings{})
	drafts := &fakeDrafts{entries: map[string]*quote.Quote{"edit:q_5": recovered}}
	resolver := New(drafts, &fakeRemote{})

	res, err := resolver.Resolve(context.Background(), Request{DocumentID: "q_5"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceRecoveredDraft {
		t.Fatalf("expected recovered-draft, got %s", res.Source)
	}
	if res.PromptRecovery {
		t.Errorf("edit-draft recovery is silent; the remote record is the fallback")
	}
}

func TestResolveLoadsExistingRemoteWithMilestones(t *testing.T) {
	stored := quote.New("q_7", quote.TypeQuotation, quote.Settings{LabourRate: 55})
	stored.Title = "Stored"
	remote := &fakeRemote{
		getQuoteFn: func(ctx context.Context, id string) (*quote.Quote, error) {
			if id != "q_7" {
				return nil, errors.New("not found")
			}
			return stored, nil
		},
		getMilestonesFn: func(ctx context.Context, quoteID string) ([]quote.Milestone, error) {
			return []quote.Milestone{{ID: "m_1", Label: "Deposit", Percent: 100}}, nil
		},
	}
	resolver := New(&fakeDrafts{}, remote)

	res, err := resolver.Resolve(context.Background(), Request{DocumentID: "q_7"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceExistingRemote {
		t.Fatalf("expected existing-remote, got %s", res.Source)
	}
	if len(res.Document.Milestones) != 1 {
		t.Errorf("milestone sub-resource not hydrated")
	}
	if !res.Document.Confirmed {
		t.Errorf("a stored document's identity is already confirmed")
	}
}

func TestResolveRemoteFailureSurfaces(t *testing.T) {
	resolver := New(&fakeDrafts{}, &fakeRemote{})
	if _, err := resolver.Resolve(context.Background(), Request{DocumentID: "q_missing"}); err == nil {
		t.Fatalf("expected error for missing remote document")
	}
}

func TestResolveFreshDefaults(t *testing.T) {
	resolver := New(&fakeDrafts{}, &fakeRemote{})
	res, err := resolver.Resolve(context.Background(), Request{
		ProjectID: "job_9",
		Settings:  quote.Settings{LabourRate: 48, TaxPercent: 20, DefaultNotes: "30 day terms"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Source != SourceFreshDefault {
		t.Fatalf("expected fresh-default, got %s", res.Source)
	}
	doc := res.Document
	if doc.ID == "" || doc.Confirmed {
		t.Errorf("fresh documents get a local, unconfirmed identity")
	}
	if len(doc.Sections) != 1 {
		t.Errorf("fresh documents start with one empty section")
	}
	if doc.LabourRate != 48 || doc.TaxPercent != 20 || doc.Notes != "30 day terms" {
		t.Errorf("settings not seeded: %+v", doc)
	}
	if doc.JobID != "job_9" {
		t.Errorf("project reference not carried: %q", doc.JobID)
	}
	if res.DraftKey != "create:job_9" {
		t.Errorf("unexpected draft key %q", res.DraftKey)
	}
}
