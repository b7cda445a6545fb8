package app

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradedesk/api/internal/auth"
	"tradedesk/api/internal/authpw"
	"tradedesk/api/internal/collab"
	"tradedesk/api/internal/quote"
	"tradedesk/api/internal/search"
	"tradedesk/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes, no session required
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		var body struct {
			Email       string `json:"email"`
			Password    string `json:"password"`
			DisplayName string `json:"displayName"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.SignUp(r.Context(), authpw.SignUpRequest{
			Email:       body.Email,
			Password:    body.Password,
			DisplayName: body.DisplayName,
		})
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeSession(w, session)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.SignIn(r.Context(), authpw.SignInRequest{
			Email:    body.Email,
			Password: body.Password,
		})
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeSession(w, session)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeSession(w, session)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		s.service.Logout(r.Context(), body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "userName": session.UserName, "userId": session.UserID})
		return
	}

	// Everything below requires a session
	session, err := s.requireSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 2 && parts[0] == "api" {
		switch parts[1] {
		case "quotes":
			s.handleQuotes(w, r, parts[2:])
			return
		case "customers":
			s.handleCustomers(w, r, parts[2:])
			return
		case "attachments":
			s.handleAttachments(w, r, parts[2:])
			return
		case "editor":
			s.handleEditor(w, r, session, parts[2:])
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) requireSession(r *http.Request) (Session, error) {
	token := bearerToken(r)
	if token == "" {
		return Session{}, auth.ErrInvalidToken
	}
	return s.service.SessionFromToken(r.Context(), token)
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))
	response := s.service.Search(search.Query{
		Text:             query.Get("q"),
		FilterType:       search.ResultType(query.Get("type")),
		FilterCustomerID: query.Get("customerId"),
		FilterStatus:     query.Get("status"),
		Limit:            limit,
		Offset:           offset,
	})
	writeJSON(w, http.StatusOK, response)
}

// handleQuotes serves documents at rest: list, fetch, delete, history.
func (s *HTTPServer) handleQuotes(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		summaries, err := s.service.ListQuotes(r.Context(), r.URL.Query().Get("customerId"))
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"quotes": summariesPayload(summaries)})

	case len(rest) == 1 && r.Method == http.MethodGet:
		doc, totals, err := s.service.GetQuote(r.Context(), rest[0])
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": doc, "totals": totals})

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeleteQuote(r.Context(), rest[0]); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[1] == "history" && r.Method == http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		history, err := s.service.History(rest[0], limit)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": history})

	case len(rest) == 3 && rest[1] == "history" && r.Method == http.MethodGet:
		doc, totals, err := s.service.RevisionSnapshot(rest[0], rest[2])
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": doc, "totals": totals})

	case len(rest) == 2 && rest[1] == "attachments" && r.Method == http.MethodGet:
		attachments, err := s.service.ListAttachments(r.Context(), rest[0])
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"attachments": attachmentsPayload(attachments)})

	case len(rest) == 2 && rest[1] == "attachments" && r.Method == http.MethodPost:
		var body struct {
			Filename string `json:"filename"`
			Data     string `json:"data"` // base64
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		data, err := base64.StdEncoding.DecodeString(body.Data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "data must be base64", nil)
			return
		}
		attachment, err := s.service.AddAttachment(r.Context(), rest[0], body.Filename, data)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, attachmentPayload(attachment))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleCustomers(w http.ResponseWriter, r *http.Request, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		customers, err := s.service.ListCustomers(r.Context())
		if err != nil {
			writeMapped(w, err)
			return
		}
		payload := make([]map[string]any, 0, len(customers))
		for _, customer := range customers {
			payload = append(payload, customerPayload(customer))
		}
		writeJSON(w, http.StatusOK, map[string]any{"customers": payload})

	case len(rest) == 0 && r.Method == http.MethodPost:
		var body struct {
			Name    string `json:"name"`
			Email   string `json:"email"`
			Phone   string `json:"phone"`
			Address string `json:"address"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		customer, err := s.service.AddCustomer(r.Context(), store.Customer{
			Name:    body.Name,
			Email:   body.Email,
			Phone:   body.Phone,
			Address: body.Address,
		})
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, customerPayload(customer))

	case len(rest) == 1 && r.Method == http.MethodGet:
		customer, err := s.service.GetCustomer(r.Context(), rest[0])
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, customerPayload(customer))

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleAttachments(w http.ResponseWriter, r *http.Request, rest []string) {
	if len(rest) == 2 && rest[1] == "url" && r.Method == http.MethodGet {
		url, err := s.service.AttachmentURL(r.Context(), rest[0])
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"url": url})
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleEditor serves the live editing session routes.
func (s *HTTPServer) handleEditor(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	if len(rest) == 1 && rest[0] == "open" && r.Method == http.MethodPost {
		var body OpenRequest
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.OpenDocument(r.Context(), session.UserName, body)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if len(rest) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	sessionID := rest[0]
	rest = rest[1:]

	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		doc, totals, err := s.service.Document(sessionID)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": doc, "totals": totals})

	case len(rest) == 0 && r.Method == http.MethodPatch:
		var patch DocumentPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.UpdateDocument(sessionID, patch)
		s.respondTotals(w, totals, err)

	case len(rest) == 1 && rest[0] == "totals" && r.Method == http.MethodGet:
		totals, err := s.service.Totals(sessionID)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"totals": totals})

	case len(rest) == 1 && rest[0] == "save" && r.Method == http.MethodPost:
		result, err := s.service.SaveDocument(r.Context(), sessionID)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case len(rest) == 1 && rest[0] == "close" && r.Method == http.MethodPost:
		if err := s.service.CloseSession(sessionID); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 1 && rest[0] == "cancel" && r.Method == http.MethodPost:
		if err := s.service.CancelSession(r.Context(), sessionID); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[0] == "recovery" && rest[1] == "keep" && r.Method == http.MethodPost:
		if err := s.service.KeepRecovered(sessionID); err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 2 && rest[0] == "recovery" && rest[1] == "discard" && r.Method == http.MethodPost:
		doc, totals, err := s.service.DiscardRecovered(r.Context(), sessionID)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": doc, "totals": totals})

	case len(rest) == 1 && rest[0] == "milestones" && r.Method == http.MethodPut:
		var body struct {
			Milestones []quote.Milestone `json:"milestones"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.SetMilestones(sessionID, body.Milestones)
		s.respondTotals(w, totals, err)

	case len(rest) == 1 && rest[0] == "discount" && r.Method == http.MethodPut:
		var body struct {
			Discount *quote.Discount `json:"discount"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.SetDiscount(sessionID, body.Discount)
		s.respondTotals(w, totals, err)

	case len(rest) == 1 && rest[0] == "part-payment" && r.Method == http.MethodPut:
		var body struct {
			PartPayment *quote.PartPayment `json:"partPayment"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.SetPartPayment(sessionID, body.PartPayment)
		s.respondTotals(w, totals, err)

	case len(rest) >= 1 && rest[0] == "sections":
		s.handleSections(w, r, sessionID, rest[1:])

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSections(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodPost:
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		sectionID, totals, err := s.service.AddSection(sessionID, body.Title)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sectionId": sectionID, "totals": totals})

	case len(rest) == 1 && r.Method == http.MethodPatch:
		var patch SectionPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.UpdateSection(sessionID, rest[0], patch)
		s.respondTotals(w, totals, err)

	case len(rest) == 1 && r.Method == http.MethodDelete:
		totals, err := s.service.RemoveSection(sessionID, rest[0])
		s.respondTotals(w, totals, err)

	case len(rest) == 2 && rest[1] == "move" && r.Method == http.MethodPost:
		var body struct {
			ToIndex int `json:"toIndex"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.MoveSection(sessionID, rest[0], body.ToIndex)
		s.respondTotals(w, totals, err)

	case len(rest) == 2 && rest[1] == "materials" && r.Method == http.MethodPost:
		var item quote.MaterialItem
		if err := decodeBody(r, &item); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		itemID, totals, err := s.service.AddMaterial(sessionID, rest[0], item)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"itemId": itemID, "totals": totals})

	case len(rest) == 3 && rest[1] == "materials" && r.Method == http.MethodPatch:
		var patch MaterialPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.UpdateMaterial(sessionID, rest[0], rest[2], patch)
		s.respondTotals(w, totals, err)

	case len(rest) == 3 && rest[1] == "materials" && r.Method == http.MethodDelete:
		totals, err := s.service.RemoveMaterial(sessionID, rest[0], rest[2])
		s.respondTotals(w, totals, err)

	case len(rest) == 2 && rest[1] == "labour" && r.Method == http.MethodPost:
		var item quote.LabourItem
		if err := decodeBody(r, &item); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		itemID, totals, err := s.service.AddLabour(sessionID, rest[0], item)
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"itemId": itemID, "totals": totals})

	case len(rest) == 3 && rest[1] == "labour" && r.Method == http.MethodPatch:
		var patch LabourPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.UpdateLabour(sessionID, rest[0], rest[2], patch)
		s.respondTotals(w, totals, err)

	case len(rest) == 3 && rest[1] == "labour" && r.Method == http.MethodDelete:
		totals, err := s.service.RemoveLabour(sessionID, rest[0], rest[2])
		s.respondTotals(w, totals, err)

	case len(rest) == 2 && rest[1] == "ai-proposed" && r.Method == http.MethodDelete:
		removed, totals, err := s.service.RemoveAIProposed(sessionID, rest[0])
		if err != nil {
			writeMapped(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "totals": totals})

	case len(rest) == 2 && rest[1] == "analyze" && r.Method == http.MethodPost:
		var body struct {
			Text     string `json:"text"`
			ImageKey string `json:"imageKey"`
			Context  string `json:"context"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.AnalyzeIntoSection(r.Context(), sessionID, rest[0], collab.AnalyzeRequest{
			Text:     body.Text,
			ImageKey: body.ImageKey,
			Context:  body.Context,
		})
		s.respondTotals(w, totals, err)

	case len(rest) == 2 && rest[1] == "voice" && r.Method == http.MethodPost:
		var body struct {
			Transcript string `json:"transcript"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		totals, err := s.service.VoiceIntoSection(r.Context(), sessionID, rest[0], body.Transcript)
		s.respondTotals(w, totals, err)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) respondTotals(w http.ResponseWriter, totals quote.Totals, err error) {
	if err != nil {
		writeMapped(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

// ----- payloads -----

func writeSession(w http.ResponseWriter, session Session) {
	writeJSON(w, http.StatusOK, map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userName":     session.UserName,
		"userId":       session.UserID,
		"expiresAt":    session.ExpiresAt,
	})
}

func summariesPayload(summaries []store.QuoteSummary) []map[string]any {
	payload := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, map[string]any{
			"id":           summary.ID,
			"type":         summary.Type,
			"status":       summary.Status,
			"title":        summary.Title,
			"customerId":   summary.CustomerID,
			"customerName": summary.CustomerName,
			"jobId":        summary.JobID,
			"grandTotal":   summary.GrandTotal,
			"updatedAt":    summary.UpdatedAt,
		})
	}
	return payload
}

func customerPayload(customer store.Customer) map[string]any {
	return map[string]any{
		"id":      customer.ID,
		"name":    customer.Name,
		"email":   customer.Email,
		"phone":   customer.Phone,
		"address": customer.Address,
	}
}

func attachmentPayload(attachment store.Attachment) map[string]any {
	return map[string]any{
		"id":      attachment.ID,
		"quoteId": attachment.QuoteID,
		"key":     attachment.Key,
		"name":    attachment.Name,
		"size":    attachment.Size,
	}
}

func attachmentsPayload(attachments []store.Attachment) []map[string]any {
	payload := make([]map[string]any, 0, len(attachments))
	for _, attachment := range attachments {
		payload = append(payload, attachmentPayload(attachment))
	}
	return payload
}

// ----- middleware and helpers -----

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeMapped(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
