package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlens/backend/internal/assistant"
	"github.com/spendlens/backend/internal/auth"
	"github.com/spendlens/backend/internal/daterange"
	"github.com/spendlens/backend/internal/model"
)

const maxReceiptBytes = 10 << 20 // 10MB

type interactRequest struct {
	Message string `json:"message"`
}

type interactResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleInteract is the conversational entrypoint: one message in, one
// reply out. Validation problems from the pipeline come back as 400 with
// the user-facing message; internal failures as 500 with the stable
// apology text.
func (s *Server) handleInteract(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	var req interactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}

	reply, err := s.orchestrator.HandleTurn(r.Context(), claims.UID, req.Message)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
			return
		}
		var ierr *assistant.InternalError
		if errors.As(err, &ierr) {
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: ierr.Error()})
			return
		}
		s.logger.Error("unexpected turn failure", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, interactResponse{Success: true, Message: reply})
}

type createExpenseRequest struct {
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Title    string  `json:"title"`
}

type expenseResponse struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Category model.Category  `json:"category"`
	Date     string          `json:"date"`
	Title    string          `json:"title"`
}

// handleCreateExpense records an expense directly, bypassing the
// assistant. The category must be one of the fixed set.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	var req createExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	category, ok := model.ParseCategory(strings.TrimSpace(req.Category))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "category must be one of the fixed category set"})
		return
	}

	date := s.now()
	if req.Date != "" {
		parsed, err := time.Parse(model.DateLayout, req.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be formatted YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	expense, err := model.NewExpense(claims.UID, decimal.NewFromFloat(req.Amount), category, date, req.Title)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
			return
		}
		s.logger.Error("create expense failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	if err := s.store.CreateExpense(r.Context(), expense); err != nil {
		s.logger.Error("store expense failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusCreated, expenseResponse{
		ID:       expense.ID,
		Amount:   expense.Amount,
		Category: expense.Category,
		Date:     expense.DateString(),
		Title:    expense.Title,
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	summary, err := s.analytics.Summarize(r.Context(), claims.UID, r.URL.Query().Get("period"), s.now())
	if err != nil {
		s.logger.Error("summary failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	granularity := daterange.ParseGranularity(r.URL.Query().Get("granularity"))

	periods := 0
	if p := r.URL.Query().Get("periods"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 24 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "periods must be an integer between 1 and 24"})
			return
		}
		periods = n
	}

	trend, err := s.analytics.Trends(r.Context(), claims.UID, granularity, periods, s.now())
	if err != nil {
		s.logger.Error("trends failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, trend)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}

	granularity := daterange.ParseGranularity(r.URL.Query().Get("granularity"))

	comparisons, err := s.analytics.CompareCategories(r.Context(), claims.UID, r.URL.Query().Get("period"), granularity, s.now())
	if err != nil {
		s.logger.Error("category comparison failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, comparisons)
}

// handleReceipt accepts a multipart upload under the "file" field and
// returns a draft expense for confirmation via POST /expenses.
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.UserFromContext(r.Context()); !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return
	}
	if s.receipts == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "receipt processing is not configured"})
		return
	}

	if err := r.ParseMultipartForm(maxReceiptBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "expected a multipart upload under 10MB"})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file field is required"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "could not read upload"})
		return
	}

	draft, err := s.receipts.Parse(r.Context(), data)
	if err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Error()})
			return
		}
		s.logger.Error("receipt parse failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, draft)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
