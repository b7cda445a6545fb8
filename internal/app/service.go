package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"tradedesk/api/internal/auth"
	"tradedesk/api/internal/authpw"
	"tradedesk/api/internal/collab"
	"tradedesk/api/internal/config"
	"tradedesk/api/internal/draft"
	"tradedesk/api/internal/quote"
	"tradedesk/api/internal/restore"
	"tradedesk/api/internal/revision"
	"tradedesk/api/internal/sched"
	"tradedesk/api/internal/search"
	"tradedesk/api/internal/store"
	"tradedesk/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	Ping(ctx context.Context) error
	SaveQuote(ctx context.Context, q *quote.Quote) error
	GetQuote(ctx context.Context, id string) (*quote.Quote, error)
	ListQuotes(ctx context.Context, customerID string) ([]store.QuoteSummary, error)
	DeleteQuote(ctx context.Context, id string) error
	GetMilestones(ctx context.Context, quoteID string) ([]quote.Milestone, error)
	SaveMilestonesBatch(ctx context.Context, quoteID string, milestones []quote.Milestone) error
	InsertCustomer(ctx context.Context, customer store.Customer) error
	GetCustomer(ctx context.Context, id string) (store.Customer, error)
	ListCustomers(ctx context.Context) ([]store.Customer, error)
	InsertAttachment(ctx context.Context, attachment store.Attachment) error
	ListAttachments(ctx context.Context, quoteID string) ([]store.Attachment, error)
	CreateUser(ctx context.Context, user store.User) error
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (store.User, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type draftCache interface {
	Save(ctx context.Context, key string, snapshot *quote.Quote)
	Load(ctx context.Context, key string) (*quote.Quote, bool)
	Clear(ctx context.Context, key string)
}

type revisionStore interface {
	CommitSnapshot(doc *quote.Quote, author, message string) (revision.CommitInfo, error)
	History(documentID string, limit int) ([]revision.CommitInfo, error)
	SnapshotByHash(documentID, hash string) (*quote.Quote, error)
	RemoveRepo(documentID string) error
}

type searchIndex interface {
	Search(q search.Query) search.Response
	IndexQuote(q search.QuoteRecord)
	IndexCustomer(c search.CustomerRecord)
	DeleteQuote(id string)
}

type BlobStore interface {
	Upload(ctx context.Context, data []byte, originalFilename string) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

// editSession is one open document. The document pointer is owned by the
// session and only touched under its lock; background writers get clones.
type editSession struct {
	id     string
	user   string
	req    restore.Request
	source restore.Source
	prompt bool

	mu       sync.Mutex
	doc      *quote.Quote
	draftKey string

	drafts *sched.Debouncer[*quote.Quote]
	remote *sched.RemoteSyncer

	// guarded by Service.sessMu
	expiresAt time.Time
}

type Service struct {
	cfg       config.Config
	store     dataStore
	drafts    draftCache
	revisions revisionStore
	search    searchIndex
	blobs     BlobStore
	analyzer  collab.Analyzer
	customers collab.CustomerDirectory
	authpw    *authpw.Service
	resolver  *restore.Resolver

	sessionTTL time.Duration
	sessMu     sync.Mutex
	sessions   map[string]*editSession
}

func New(cfg config.Config, dataStore *store.PostgresStore, drafts *draft.RedisCache, revisions *revision.Service, searchSvc *search.Service, blobs BlobStore, analyzer collab.Analyzer, customers collab.CustomerDirectory) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		drafts:    drafts,
		revisions: revisions,
		search:    searchSvc,
		blobs:     blobs,
		analyzer:  analyzer,
		customers: customers,
		authpw:    authpw.NewService(dataStore),
		resolver:  restore.New(drafts, dataStore),

		sessionTTL: 30 * time.Minute,
		sessions:   make(map[string]*editSession),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ----- editing sessions -----

type OpenRequest struct {
	DocumentID string             `json:"documentId"`
	JobID      string             `json:"jobId"`
	Type       quote.DocumentType `json:"type"`
	Settings   quote.Settings     `json:"settings"`
}

type OpenResult struct {
	SessionID      string         `json:"sessionId"`
	Document       *quote.Quote   `json:"document"`
	Totals         quote.Totals   `json:"totals"`
	Source         restore.Source `json:"source"`
	PromptRecovery bool           `json:"promptRecovery"`
}

// OpenDocument starts an editing session, hydrating the document from a
// recovered draft, the remote record, or fresh defaults, in that order.
func (s *Service) OpenDocument(ctx context.Context, userName string, req OpenRequest) (OpenResult, error) {
	resolution, err := s.resolver.Resolve(ctx, restore.Request{
		DocumentID: req.DocumentID,
		ProjectID:  req.JobID,
		Type:       req.Type,
		Settings:   req.Settings,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return OpenResult{}, domainError(http.StatusNotFound, "NOT_FOUND", "Document not found", nil)
		}
		return OpenResult{}, err
	}

	sess := &editSession{
		id:       util.NewID("sess"),
		user:     userName,
		req:      restore.Request{DocumentID: req.DocumentID, ProjectID: req.JobID, Type: req.Type, Settings: req.Settings},
		source:   resolution.Source,
		prompt:   resolution.PromptRecovery,
		doc:      resolution.Document,
		draftKey: resolution.DraftKey,
	}
	sess.drafts = sched.NewDebouncer(s.cfg.DraftDebounce, func(snapshot *quote.Quote) {
		s.drafts.Save(context.Background(), sess.draftKey, snapshot)
	})
	sess.remote = sched.NewRemoteSyncer(s.store, s.cfg.RemoteDebounce, func(id string) {
		sess.mu.Lock()
		if sess.doc.ID == id {
			sess.doc.Confirmed = true
		}
		sess.mu.Unlock()
	})
	if resolution.Document.Confirmed {
		sess.remote.MarkConfirmed()
	}

	s.sessMu.Lock()
	s.evictExpired(time.Now())
	sess.expiresAt = time.Now().Add(s.sessionTTL)
	s.sessions[sess.id] = sess
	s.sessMu.Unlock()

	return OpenResult{
		SessionID:      sess.id,
		Document:       resolution.Document.Clone(),
		Totals:         quote.ComputeTotals(resolution.Document),
		Source:         resolution.Source,
		PromptRecovery: resolution.PromptRecovery,
	}, nil
}

func (s *Service) session(sessionID string) (*editSession, error) {
	now := time.Now()
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	s.evictExpired(now)
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Editing session not found", nil)
	}
	sess.expiresAt = now.Add(s.sessionTTL)
	return sess, nil
}

// evictExpired drops idle sessions. Their recovery drafts stay in the
// cache, so an evicted session surfaces later as a recovered draft.
func (s *Service) evictExpired(now time.Time) {
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			sess.drafts.Stop()
			sess.remote.Stop()
			delete(s.sessions, id)
		}
	}
}

// mutate applies one change under the session lock, then hands fresh
// clones to the draft writer and the remote syncer.
func (s *Service) mutate(sessionID string, apply func(*quote.Quote) error) (quote.Totals, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return quote.Totals{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := apply(sess.doc); err != nil {
		return quote.Totals{}, mapMutationError(err)
	}
	sess.drafts.Trigger(sess.doc.Clone())
	sess.remote.Schedule(sess.doc.Clone())
	return quote.ComputeTotals(sess.doc), nil
}

func mapMutationError(err error) error {
	switch {
	case errors.Is(err, quote.ErrLastSection):
		return domainError(http.StatusUnprocessableEntity, "LAST_SECTION", "A document must keep at least one section", nil)
	case errors.Is(err, quote.ErrSectionNotFound):
		return domainError(http.StatusNotFound, "SECTION_NOT_FOUND", "Section not found", nil)
	case errors.Is(err, quote.ErrItemNotFound):
		return domainError(http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found", nil)
	default:
		return err
	}
}

// Document returns the current state of an open session.
func (s *Service) Document(sessionID string) (*quote.Quote, quote.Totals, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, quote.Totals{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.doc.Clone(), quote.ComputeTotals(sess.doc), nil
}

func (s *Service) Totals(sessionID string) (quote.Totals, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return quote.Totals{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return quote.ComputeTotals(sess.doc), nil
}

// DiscardRecovered throws away a recovered creation draft and restarts the
// session from fresh defaults.
func (s *Service) DiscardRecovered(ctx context.Context, sessionID string) (*quote.Quote, quote.Totals, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, quote.Totals{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.prompt {
		return nil, quote.Totals{}, domainError(http.StatusConflict, "NOTHING_TO_DISCARD", "No recovered draft pending a decision", nil)
	}
	// Drop any writes queued for the recovered snapshot before purging it.
	sess.drafts.Cancel()
	sess.remote.Cancel()
	s.drafts.Clear(ctx, sess.draftKey)
	sess.doc = s.resolver.Fresh(sess.req)
	sess.prompt = false
	sess.source = restore.SourceFreshDefault
	return sess.doc.Clone(), quote.ComputeTotals(sess.doc), nil
}

// KeepRecovered accepts a recovered creation draft as the working document.
func (s *Service) KeepRecovered(sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	sess.prompt = false
	sess.mu.Unlock()
	return nil
}

// ----- document mutations -----

type SectionPatch struct {
	Title                *string  `json:"title"`
	Description          *string  `json:"description"`
	LabourHours          *float64 `json:"labourHours"`
	LabourRate           *float64 `json:"labourRate"`
	LabourCost           *float64 `json:"labourCost"`
	SubsectionPrice      *float64 `json:"subsectionPrice"`
	ClearLabourCost      bool     `json:"clearLabourCost"`
	ClearSubsectionPrice bool     `json:"clearSubsectionPrice"`
}

type MaterialPatch struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	UnitPrice   *float64 `json:"unitPrice"`
	Heading     *bool    `json:"heading"`
}

type LabourPatch struct {
	Description *string  `json:"description"`
	Hours       *float64 `json:"hours"`
	Rate        *float64 `json:"rate"`
}

type DocumentPatch struct {
	Title         *string               `json:"title"`
	CustomerID    *string               `json:"customerId"`
	JobID         *string               `json:"jobId"`
	Notes         *string               `json:"notes"`
	Status        *quote.Status         `json:"status"`
	Type          *quote.DocumentType   `json:"type"`
	LabourRate    *float64              `json:"labourRate"`
	MarkupPercent *float64              `json:"markupPercent"`
	TaxPercent    *float64              `json:"taxPercent"`
	CISPercent    *float64              `json:"cisPercent"`
	Display       *quote.DisplayOptions `json:"display"`
	IssueDate     *time.Time            `json:"issueDate"`
	DueDate       *time.Time            `json:"dueDate"`
	ClearDueDate  bool                  `json:"clearDueDate"`
}

func (s *Service) UpdateDocument(sessionID string, patch DocumentPatch) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		if patch.Title != nil {
			q.Title = *patch.Title
		}
		if patch.CustomerID != nil {
			q.CustomerID = *patch.CustomerID
		}
		if patch.JobID != nil {
			q.JobID = *patch.JobID
		}
		if patch.Notes != nil {
			q.Notes = *patch.Notes
		}
		if patch.Status != nil {
			q.Status = *patch.Status
		}
		if patch.Type != nil {
			q.Type = *patch.Type
		}
		if patch.LabourRate != nil {
			q.LabourRate = *patch.LabourRate
		}
		if patch.MarkupPercent != nil {
			q.MarkupPercent = *patch.MarkupPercent
		}
		if patch.TaxPercent != nil {
			q.TaxPercent = *patch.TaxPercent
		}
		if patch.CISPercent != nil {
			q.CISPercent = *patch.CISPercent
		}
		if patch.Display != nil {
			q.Display = *patch.Display
		}
		if patch.IssueDate != nil {
			q.IssueDate = *patch.IssueDate
		}
		if patch.ClearDueDate {
			q.DueDate = nil
		} else if patch.DueDate != nil {
			due := *patch.DueDate
			q.DueDate = &due
		}
		return nil
	})
}

func (s *Service) AddSection(sessionID, title string) (string, quote.Totals, error) {
	var sectionID string
	totals, err := s.mutate(sessionID, func(q *quote.Quote) error {
		sectionID = q.AddSection(title)
		return nil
	})
	return sectionID, totals, err
}

func (s *Service) RemoveSection(sessionID, sectionID string) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.RemoveSection(sectionID)
	})
}

func (s *Service) MoveSection(sessionID, sectionID string, toIndex int) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.MoveSection(sectionID, toIndex)
	})
}

func (s *Service) UpdateSection(sessionID, sectionID string, patch SectionPatch) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.UpdateSection(sectionID, func(section *quote.Section) {
			if patch.Title != nil {
				section.Title = *patch.Title
			}
			if patch.Description != nil {
				section.Description = *patch.Description
			}
			if patch.LabourHours != nil {
				section.LabourHours = *patch.LabourHours
			}
			if patch.LabourRate != nil {
				section.LabourRate = *patch.LabourRate
			}
			if patch.ClearLabourCost {
				section.LabourCost = nil
			} else if patch.LabourCost != nil {
				cost := *patch.LabourCost
				section.LabourCost = &cost
			}
			if patch.ClearSubsectionPrice {
				section.SubsectionPrice = nil
			} else if patch.SubsectionPrice != nil {
				price := *patch.SubsectionPrice
				section.SubsectionPrice = &price
			}
		})
	})
}

func (s *Service) AddMaterial(sessionID, sectionID string, item quote.MaterialItem) (string, quote.Totals, error) {
	var itemID string
	totals, err := s.mutate(sessionID, func(q *quote.Quote) error {
		id, err := q.AddMaterial(sectionID, item)
		itemID = id
		return err
	})
	return itemID, totals, err
}

func (s *Service) UpdateMaterial(sessionID, sectionID, itemID string, patch MaterialPatch) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.UpdateMaterial(sectionID, itemID, func(item *quote.MaterialItem) {
			if patch.Name != nil {
				item.Name = *patch.Name
			}
			if patch.Description != nil {
				item.Description = *patch.Description
			}
			if patch.Quantity != nil {
				item.Quantity = *patch.Quantity
			}
			if patch.Unit != nil {
				item.Unit = *patch.Unit
			}
			if patch.UnitPrice != nil {
				item.UnitPrice = *patch.UnitPrice
			}
			if patch.Heading != nil {
				item.Heading = *patch.Heading
			}
		})
	})
}

func (s *Service) RemoveMaterial(sessionID, sectionID, itemID string) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.RemoveMaterial(sectionID, itemID)
	})
}

func (s *Service) AddLabour(sessionID, sectionID string, item quote.LabourItem) (string, quote.Totals, error) {
	var itemID string
	totals, err := s.mutate(sessionID, func(q *quote.Quote) error {
		id, err := q.AddLabourItem(sectionID, item)
		itemID = id
		return err
	})
	return itemID, totals, err
}

func (s *Service) UpdateLabour(sessionID, sectionID, itemID string, patch LabourPatch) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.UpdateLabourItem(sectionID, itemID, func(item *quote.LabourItem) {
			if patch.Description != nil {
				item.Description = *patch.Description
			}
			if patch.Hours != nil {
				item.Hours = *patch.Hours
			}
			if patch.Rate != nil {
				item.Rate = *patch.Rate
			}
		})
	})
}

func (s *Service) RemoveLabour(sessionID, sectionID, itemID string) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.RemoveLabourItem(sectionID, itemID)
	})
}

func (s *Service) RemoveAIProposed(sessionID, sectionID string) (int, quote.Totals, error) {
	var removed int
	totals, err := s.mutate(sessionID, func(q *quote.Quote) error {
		n, err := q.RemoveAIProposed(sectionID)
		removed = n
		return err
	})
	return removed, totals, err
}

func (s *Service) SetMilestones(sessionID string, milestones []quote.Milestone) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		q.SetMilestones(milestones)
		return nil
	})
}

func (s *Service) SetDiscount(sessionID string, discount *quote.Discount) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		q.SetDiscount(discount)
		return nil
	})
}

func (s *Service) SetPartPayment(sessionID string, part *quote.PartPayment) (quote.Totals, error) {
	return s.mutate(sessionID, func(q *quote.Quote) error {
		q.SetPartPayment(part)
		return nil
	})
}

// ----- AI collaborator -----

// AnalyzeIntoSection runs requirements analysis and merges the proposal
// into one section, all-or-nothing.
func (s *Service) AnalyzeIntoSection(ctx context.Context, sessionID, sectionID string, req collab.AnalyzeRequest) (quote.Totals, error) {
	if s.analyzer == nil {
		return quote.Totals{}, domainError(http.StatusServiceUnavailable, "ANALYZER_UNAVAILABLE", "Analysis is not configured", nil)
	}
	result, err := s.analyzer.AnalyzeRequirements(ctx, req)
	if err != nil {
		return quote.Totals{}, domainError(http.StatusBadGateway, "ANALYSIS_FAILED", "Analysis failed", nil)
	}
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.MergeAnalysis(sectionID, result)
	})
}

// VoiceIntoSection parses a voice transcript into material lines and
// merges them into one section.
func (s *Service) VoiceIntoSection(ctx context.Context, sessionID, sectionID, transcript string) (quote.Totals, error) {
	if s.analyzer == nil {
		return quote.Totals{}, domainError(http.StatusServiceUnavailable, "ANALYZER_UNAVAILABLE", "Analysis is not configured", nil)
	}
	items, err := s.analyzer.ParseVoiceItems(ctx, transcript)
	if err != nil {
		return quote.Totals{}, domainError(http.StatusBadGateway, "ANALYSIS_FAILED", "Transcript parsing failed", nil)
	}
	return s.mutate(sessionID, func(q *quote.Quote) error {
		return q.MergeVoiceItems(sectionID, items)
	})
}

// ----- explicit save and session end -----

type SaveResult struct {
	Document *quote.Quote        `json:"document"`
	Totals   quote.Totals        `json:"totals"`
	Warnings []string            `json:"warnings,omitempty"`
	Revision revision.CommitInfo `json:"revision"`
}

// SaveDocument is the explicit save: validate, write the document and its
// milestones, record a revision, refresh the search index, and drop the
// recovery draft.
func (s *Service) SaveDocument(ctx context.Context, sessionID string) (SaveResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return SaveResult{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	validation := sess.doc.ValidateForSave()
	if !validation.OK() {
		return SaveResult{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Document is not ready to save", validation.Errors)
	}

	// Explicit save bypasses the debounce and writes directly. The draft
	// writer is cancelled too, or a pending write would resurrect the
	// recovery draft right after it is purged below.
	sess.remote.Cancel()
	sess.drafts.Cancel()
	if err := s.store.SaveQuote(ctx, sess.doc); err != nil {
		return SaveResult{}, fmt.Errorf("save document: %w", err)
	}
	sess.doc.Confirmed = true
	sess.remote.MarkConfirmed()

	if err := s.store.SaveMilestonesBatch(ctx, sess.doc.ID, sess.doc.Milestones); err != nil {
		return SaveResult{}, fmt.Errorf("save milestones: %w", err)
	}

	commit, err := s.revisions.CommitSnapshot(sess.doc, sess.user, "Save "+string(sess.doc.Type))
	if err != nil {
		// History is best effort; the durable record is already written.
		log.Printf("app: revision commit for %s: %v", sess.doc.ID, err)
	}

	s.indexQuote(ctx, sess.doc)
	s.drafts.Clear(ctx, sess.draftKey)

	return SaveResult{
		Document: sess.doc.Clone(),
		Totals:   quote.ComputeTotals(sess.doc),
		Warnings: validation.Warnings,
		Revision: commit,
	}, nil
}

func (s *Service) indexQuote(ctx context.Context, doc *quote.Quote) {
	if s.search == nil {
		return
	}
	record := search.QuoteRecord{
		ID:         doc.ID,
		Title:      doc.Title,
		Notes:      doc.Notes,
		CustomerID: doc.CustomerID,
		Status:     string(doc.Status),
		DocType:    string(doc.Type),
	}
	if doc.CustomerID != "" {
		if customer, err := s.store.GetCustomer(ctx, doc.CustomerID); err == nil {
			record.CustomerName = customer.Name
		}
	}
	s.search.IndexQuote(record)
}

// CloseSession ends a session normally: pending background writes are
// flushed so nothing typed in the last debounce window is lost.
func (s *Service) CloseSession(sessionID string) error {
	sess, err := s.takeSession(sessionID)
	if err != nil {
		return err
	}
	sess.drafts.Flush()
	sess.remote.Flush()
	sess.drafts.Stop()
	sess.remote.Stop()
	return nil
}

// CancelSession ends a session discarding everything: pending writes are
// dropped and the recovery draft is removed.
func (s *Service) CancelSession(ctx context.Context, sessionID string) error {
	sess, err := s.takeSession(sessionID)
	if err != nil {
		return err
	}
	sess.drafts.Stop()
	sess.remote.Stop()
	s.drafts.Clear(ctx, sess.draftKey)
	return nil
}

func (s *Service) takeSession(sessionID string) (*editSession, error) {
	s.sessMu.Lock()
	defer s.sessMu.Unlock()
	s.evictExpired(time.Now())
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Editing session not found", nil)
	}
	delete(s.sessions, sessionID)
	return sess, nil
}

// ----- documents at rest -----

func (s *Service) ListQuotes(ctx context.Context, customerID string) ([]store.QuoteSummary, error) {
	return s.store.ListQuotes(ctx, customerID)
}

func (s *Service) GetQuote(ctx context.Context, id string) (*quote.Quote, quote.Totals, error) {
	doc, err := s.store.GetQuote(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, quote.Totals{}, domainError(http.StatusNotFound, "NOT_FOUND", "Document not found", nil)
		}
		return nil, quote.Totals{}, err
	}
	milestones, err := s.store.GetMilestones(ctx, id)
	if err != nil {
		return nil, quote.Totals{}, err
	}
	doc.Milestones = milestones
	return doc, quote.ComputeTotals(doc), nil
}

func (s *Service) DeleteQuote(ctx context.Context, id string) error {
	if err := s.store.DeleteQuote(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "Document not found", nil)
		}
		return err
	}
	if s.search != nil {
		s.search.DeleteQuote(id)
	}
	if s.drafts != nil {
		s.drafts.Clear(ctx, draft.Key(draft.ModeEdit, "", id))
	}
	if s.revisions != nil {
		if err := s.revisions.RemoveRepo(id); err != nil {
			log.Printf("app: remove revision history for %s: %v", id, err)
		}
	}
	return nil
}

func (s *Service) History(documentID string, limit int) ([]revision.CommitInfo, error) {
	return s.revisions.History(documentID, limit)
}

func (s *Service) RevisionSnapshot(documentID, hash string) (*quote.Quote, quote.Totals, error) {
	doc, err := s.revisions.SnapshotByHash(documentID, hash)
	if err != nil {
		return nil, quote.Totals{}, domainError(http.StatusNotFound, "REVISION_NOT_FOUND", "Revision not found", nil)
	}
	return doc, quote.ComputeTotals(doc), nil
}

// ----- customers -----

// AddCustomer records a customer. When a directory collaborator is wired
// it confirms the identity and only the returned ID is stored; without one
// the identity is assigned locally.
func (s *Service) AddCustomer(ctx context.Context, customer store.Customer) (store.Customer, error) {
	if customer.Name == "" {
		return store.Customer{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Customer name is required", nil)
	}
	if s.customers != nil {
		confirmed, err := s.customers.AddCustomer(ctx, collab.Customer{
			Name:  customer.Name,
			Email: customer.Email,
			Phone: customer.Phone,
		})
		if err != nil {
			return store.Customer{}, domainError(http.StatusBadGateway, "CUSTOMER_CREATE_FAILED", "Customer creation failed", nil)
		}
		customer.ID = confirmed.ID
	} else {
		customer.ID = util.NewID("cust")
	}
	if err := s.store.InsertCustomer(ctx, customer); err != nil {
		return store.Customer{}, fmt.Errorf("insert customer: %w", err)
	}
	if s.search != nil {
		s.search.IndexCustomer(search.CustomerRecord{
			ID:      customer.ID,
			Name:    customer.Name,
			Email:   customer.Email,
			Phone:   customer.Phone,
			Address: customer.Address,
		})
	}
	return customer, nil
}

func (s *Service) GetCustomer(ctx context.Context, id string) (store.Customer, error) {
	customer, err := s.store.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Customer{}, domainError(http.StatusNotFound, "NOT_FOUND", "Customer not found", nil)
		}
		return store.Customer{}, err
	}
	return customer, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]store.Customer, error) {
	return s.store.ListCustomers(ctx)
}

// ----- attachments -----

func (s *Service) AddAttachment(ctx context.Context, quoteID, filename string, data []byte) (store.Attachment, error) {
	if s.blobs == nil {
		return store.Attachment{}, domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is not configured", nil)
	}
	key, err := s.blobs.Upload(ctx, data, filename)
	if err != nil {
		return store.Attachment{}, fmt.Errorf("upload attachment: %w", err)
	}
	attachment := store.Attachment{
		ID:      util.NewID("att"),
		QuoteID: quoteID,
		Key:     key,
		Name:    filename,
		Size:    int64(len(data)),
	}
	if err := s.store.InsertAttachment(ctx, attachment); err != nil {
		return store.Attachment{}, fmt.Errorf("record attachment: %w", err)
	}
	return attachment, nil
}

func (s *Service) ListAttachments(ctx context.Context, quoteID string) ([]store.Attachment, error) {
	return s.store.ListAttachments(ctx, quoteID)
}

func (s *Service) AttachmentURL(ctx context.Context, key string) (string, error) {
	if s.blobs == nil {
		return "", domainError(http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Object storage is not configured", nil)
	}
	return s.blobs.PresignedURL(ctx, key, time.Hour)
}

// ----- search -----

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// ----- auth -----

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	user, err := s.authpw.SignUp(ctx, req)
	if err != nil {
		return Session{}, domainError(http.StatusUnprocessableEntity, "SIGNUP_FAILED", err.Error(), nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, req authpw.SignInRequest) (Session, error) {
	user, err := s.authpw.SignIn(ctx, req)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	user, err := s.store.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
	}
	if err := s.store.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Logout(ctx context.Context, refreshToken string) {
	if refreshToken != "" {
		_ = s.store.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.TokenSecret), token)
	if err != nil {
		return Session{}, err
	}
	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, auth.ErrInvalidToken
	}
	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.TokenSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewToken()
	if err := s.store.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}
