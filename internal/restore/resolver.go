// Package restore decides how a document editing session is hydrated at
// open time: from a recovered local draft, from the remote record, or from
// fresh defaults.
package restore

import (
	"context"
	"fmt"

	"tradedesk/api/internal/draft"
	"tradedesk/api/internal/quote"
	"tradedesk/api/internal/util"
)

// Source names where the opened document came from.
type Source string

const (
	SourceRecoveredDraft Source = "recovered-draft"
	SourceExistingRemote Source = "existing-remote"
	SourceFreshDefault   Source = "fresh-default"
)

// DraftStore is the recovery cache the resolver consults first.
type DraftStore interface {
	Load(ctx context.Context, key string) (*quote.Quote, bool)
}

// RemoteStore is the durable record the resolver falls back to when
// editing an existing document.
type RemoteStore interface {
	GetQuote(ctx context.Context, id string) (*quote.Quote, error)
	GetMilestones(ctx context.Context, quoteID string) ([]quote.Milestone, error)
}

// Request describes the document being opened. DocumentID is empty for new
// documents; ProjectID scopes creation drafts.
type Request struct {
	DocumentID string
	ProjectID  string
	Type       quote.DocumentType
	Settings   quote.Settings
}

// Resolution is the hydration decision. PromptRecovery is set only when a
// creation draft was recovered: the caller should offer keep-or-discard.
// Recovery over an existing document is silent, since the remote record is
// the fallback rather than a competing source of truth.
type Resolution struct {
	Document       *quote.Quote
	Source         Source
	DraftKey       string
	PromptRecovery bool
}

// Resolver implements the open-time hydration decision.
type Resolver struct {
	drafts DraftStore
	remote RemoteStore
}

func New(drafts DraftStore, remote RemoteStore) *Resolver {
	return &Resolver{drafts: drafts, remote: remote}
}

// Resolve hydrates a document in decision order: unexpired draft, then
// existing remote record, then fresh defaults.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Resolution, error) {
	mode := draft.ModeCreate
	if req.DocumentID != "" {
		mode = draft.ModeEdit
	}
	key := draft.Key(mode, req.ProjectID, req.DocumentID)

	if recovered, ok := r.drafts.Load(ctx, key); ok {
		return Resolution{
			Document:       recovered,
			Source:         SourceRecoveredDraft,
			DraftKey:       key,
			PromptRecovery: mode == draft.ModeCreate,
		}, nil
	}

	if req.DocumentID != "" {
		remote, err := r.remote.GetQuote(ctx, req.DocumentID)
		if err != nil {
			return Resolution{}, fmt.Errorf("load document %s: %w", req.DocumentID, err)
		}
		milestones, err := r.remote.GetMilestones(ctx, req.DocumentID)
		if err != nil {
			return Resolution{}, fmt.Errorf("load milestones %s: %w", req.DocumentID, err)
		}
		remote.Milestones = milestones
		// The record exists remotely, so its identity is already confirmed.
		remote.Confirmed = true
		return Resolution{Document: remote, Source: SourceExistingRemote, DraftKey: key}, nil
	}

	return Resolution{
		Document: r.Fresh(req),
		Source:   SourceFreshDefault,
		DraftKey: key,
	}, nil
}

// Fresh constructs the default document for a new editing session. Also
// used when the caller discards a recovered creation draft.
func (r *Resolver) Fresh(req Request) *quote.Quote {
	docType := req.Type
	if docType == "" {
		docType = quote.TypeQuotation
	}
	q := quote.New(util.NewID("q"), docType, req.Settings)
	q.JobID = req.ProjectID
	return q
}
