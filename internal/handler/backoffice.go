package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/lendstack/backoffice-server-go/internal/errors"
	"github.com/lendstack/backoffice-server-go/internal/middleware"
	"github.com/lendstack/backoffice-server-go/internal/model"
	"github.com/lendstack/backoffice-server-go/internal/repository"
	"github.com/lendstack/backoffice-server-go/internal/service"
	"github.com/lendstack/backoffice-server-go/internal/util"
)

// BackofficeHandler serves the authenticated operator API: loans and their
// transactions, support tickets and the admin directory.
type BackofficeHandler struct {
	loanService    *service.LoanService
	ticketService  *service.TicketService
	adminRepo      repository.AdminRepository
	backupCodeRepo repository.BackupCodeRepository
	authMiddleware func(http.Handler) http.Handler
	rateLimiter    func(http.Handler) http.Handler
}

func NewBackofficeHandler(
	loanService *service.LoanService,
	ticketService *service.TicketService,
	adminRepo repository.AdminRepository,
	backupCodeRepo repository.BackupCodeRepository,
	authMiddleware func(http.Handler) http.Handler,
	rateLimiter func(http.Handler) http.Handler,
) *BackofficeHandler {
	return &BackofficeHandler{
		loanService:    loanService,
		ticketService:  ticketService,
		adminRepo:      adminRepo,
		backupCodeRepo: backupCodeRepo,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
	}
}

func (h *BackofficeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(h.authMiddleware)
	if h.rateLimiter != nil {
		r.Use(h.rateLimiter)
	}

	// Loans
	r.Get("/loans", h.ListLoans)
	r.Get("/loans/{id}", h.GetLoan)
	r.Post("/loans/{id}/decision", h.DecideLoan)
	r.Get("/loans/{id}/transactions", h.ListTransactions)
	r.Post("/loans/{id}/transactions", h.RecordTransaction)

	// Tickets
	r.Get("/tickets", h.ListTickets)
	r.Get("/tickets/{id}", h.GetTicket)
	r.Patch("/tickets/{id}/status", h.UpdateTicketStatus)
	r.Patch("/tickets/{id}/assignee", h.AssignTicket)
	r.Get("/tickets/{id}/notes", h.ListTicketNotes)
	r.Post("/tickets/{id}/notes", h.AddTicketNote)

	// Admin directory
	r.Get("/admins", h.ListAdmins)
	r.Get("/admins/{id}", h.GetAdmin)
	r.Get("/me", h.Me)

	return r
}

// Loans

var validLoanStatuses = []string{"pending", "approved", "rejected", "disbursed", "repaid", "defaulted"}

func (h *BackofficeHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	status := r.URL.Query().Get("status")
	borrower := r.URL.Query().Get("borrower")

	if !util.IsValidEnum(status, validLoanStatuses) {
		writeError(w, apperrors.InvalidInput("status", "unknown value"))
		return
	}

	loans, total, err := h.loanService.List(r.Context(), p.Limit, p.Offset, status, borrower)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": loans,
		"total": total,
	})
}

func (h *BackofficeHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !util.IsValidUUID(id) {
		writeError(w, apperrors.InvalidInput("id", "must be a UUID"))
		return
	}

	loan, err := h.loanService.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if loan == nil {
		writeError(w, apperrors.NotFound("Loan"))
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (h *BackofficeHandler) DecideLoan(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, apperrors.MissingRequired("status"))
		return
	}

	loan, err := h.loanService.Decide(r.Context(), id, model.LoanStatus(req.Status), admin.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loan)
}

func (h *BackofficeHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	id := chi.URLParam(r, "id")

	txns, total, err := h.loanService.ListTransactions(r.Context(), id, p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": txns,
		"total": total,
	})
}

var validTransactionTypes = []string{"disbursement", "repayment", "fee"}

func (h *BackofficeHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Type        string  `json:"type"`
		AmountCents int64   `json:"amountCents"`
		Note        *string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}
	if req.Type == "" || !util.IsValidEnum(req.Type, validTransactionTypes) {
		writeError(w, apperrors.InvalidInput("type", "must be disbursement, repayment or fee"))
		return
	}

	txn, err := h.loanService.RecordTransaction(r.Context(), model.CreateTransactionParams{
		LoanID:      id,
		Type:        model.TransactionType(req.Type),
		AmountCents: req.AmountCents,
		RecordedBy:  admin.ID,
		Note:        req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, txn)
}

// Tickets

var validTicketStatuses = []string{"open", "in_progress", "resolved", "closed"}

func (h *BackofficeHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)
	status := r.URL.Query().Get("status")

	if !util.IsValidEnum(status, validTicketStatuses) {
		writeError(w, apperrors.InvalidInput("status", "unknown value"))
		return
	}

	tickets, total, err := h.ticketService.List(r.Context(), p.Limit, p.Offset, status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": tickets,
		"total": total,
	})
}

func (h *BackofficeHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ticket, err := h.ticketService.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if ticket == nil {
		writeError(w, apperrors.NotFound("Ticket"))
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *BackofficeHandler) UpdateTicketStatus(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		writeError(w, apperrors.MissingRequired("status"))
		return
	}
	if !util.IsValidEnum(req.Status, validTicketStatuses) {
		writeError(w, apperrors.InvalidInput("status", "unknown value"))
		return
	}

	ticket, err := h.ticketService.UpdateStatus(r.Context(), id, model.TicketStatus(req.Status), admin.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *BackofficeHandler) AssignTicket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		AssigneeID *string `json:"assigneeId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	ticket, err := h.ticketService.Assign(r.Context(), id, req.AssigneeID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ticket)
}

func (h *BackofficeHandler) ListTicketNotes(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	notes, err := h.ticketService.ListNotes(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": notes,
		"total": len(notes),
	})
}

func (h *BackofficeHandler) AddTicketNote(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	id := chi.URLParam(r, "id")

	var req struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Body == "" {
		writeError(w, apperrors.MissingRequired("body"))
		return
	}

	note, err := h.ticketService.AddNote(r.Context(), id, admin.ID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, note)
}

// Admin directory

func (h *BackofficeHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	p := ParsePagination(r)

	admins, total, err := h.adminRepo.List(r.Context(), p.Limit, p.Offset)
	if err != nil {
		writeError(w, err)
		return
	}

	summaries := make([]model.AdminSummary, 0, len(admins))
	for i := range admins {
		summaries = append(summaries, admins[i].Summary())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"items": summaries,
		"total": total,
	})
}

func (h *BackofficeHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	admin, err := h.adminRepo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if admin == nil {
		writeError(w, apperrors.NotFound("Admin"))
		return
	}

	writeJSON(w, http.StatusOK, admin.Summary())
}

func (h *BackofficeHandler) Me(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r.Context())
	if admin == nil {
		writeError(w, apperrors.Unauthorized("Authentication required"))
		return
	}

	remaining := 0
	if admin.TwoFactorEnabled {
		count, err := h.backupCodeRepo.CountUnusedByAdmin(r.Context(), admin.ID)
		if err != nil {
			writeError(w, err)
			return
		}
		remaining = count
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":                 admin.Summary(),
		"twoFactorEnabled":     admin.TwoFactorEnabled,
		"backupCodesRemaining": remaining,
		"lastLoginAt":          admin.LastLoginAt,
	})
}
