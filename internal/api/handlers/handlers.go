// Package handlers exposes the ledger over HTTP. Handlers decode and
// validate the wire shapes, call the service, and map its errors onto status
// codes; no ledger rules live here.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/chronicle-app/chronicle/internal/api/middleware"
	"github.com/chronicle-app/chronicle/internal/domain"
	"github.com/chronicle-app/chronicle/internal/replay"
	"github.com/chronicle-app/chronicle/internal/reporting"
	"github.com/chronicle-app/chronicle/internal/service"
	"github.com/chronicle-app/chronicle/internal/store"
)

// Handler owns the HTTP routes.
type Handler struct {
	svc *service.Service
	log zerolog.Logger

	scribe *ScribeHandler
}

// New builds the handler set. scribe may be nil when no model is configured;
// its routes then answer 503.
func New(svc *service.Service, scribe *ScribeHandler, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log, scribe: scribe}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)

	mux.HandleFunc("GET /api/accounts", h.listAccounts)
	mux.HandleFunc("POST /api/accounts", h.createAccount)
	mux.HandleFunc("GET /api/accounts/{id}", h.getAccount)
	mux.HandleFunc("PUT /api/accounts/{id}/balance", h.setAccountBalance)
	mux.HandleFunc("DELETE /api/accounts/{id}", h.deleteAccount)
	mux.HandleFunc("POST /api/accounts/{id}/reconcile", h.reconcile)
	mux.HandleFunc("GET /api/accounts/{id}/history", h.accountHistory)

	mux.HandleFunc("GET /api/transactions", h.listTransactions)
	mux.HandleFunc("POST /api/transactions", h.saveTransaction)
	mux.HandleFunc("GET /api/transactions/{id}", h.getTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", h.saveTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", h.deleteTransaction)

	mux.HandleFunc("GET /api/transfers", h.listTransfers)
	mux.HandleFunc("POST /api/transfers", h.createTransfer)

	mux.HandleFunc("GET /api/debts", h.debtBook)
	mux.HandleFunc("POST /api/transactions/{id}/splits/{splitID}/resolve", h.resolveDebt)

	mux.HandleFunc("GET /api/subscriptions", h.listSubscriptions)
	mux.HandleFunc("POST /api/subscriptions", h.saveSubscription)
	mux.HandleFunc("DELETE /api/subscriptions/{id}", h.deleteSubscription)

	mux.HandleFunc("GET /api/categories", h.listCategories)
	mux.HandleFunc("POST /api/categories", h.createCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.renameCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.deleteCategory)
	mux.HandleFunc("PUT /api/categories/{id}/budget", h.setBudget)

	mux.HandleFunc("GET /api/budgets", h.effectiveBudgets)

	mux.HandleFunc("GET /api/history", h.listSnapshots)
	mux.HandleFunc("POST /api/history", h.recordSnapshot)
	mux.HandleFunc("PUT /api/history/{id}", h.updateSnapshot)
	mux.HandleFunc("DELETE /api/history/{id}", h.deleteSnapshot)
	mux.HandleFunc("DELETE /api/history/{id}/accounts/{accountID}", h.removeSnapshotAccount)

	mux.HandleFunc("GET /api/dashboard", h.dashboard)

	mux.HandleFunc("POST /api/scribe", h.scribeInterpret)
	mux.HandleFunc("GET /api/scribe/queue", h.scribeQueue)
	mux.HandleFunc("POST /api/scribe/queue/drain", h.scribeDrain)
	mux.HandleFunc("DELETE /api/scribe/queue/{id}", h.scribeDequeue)

	return mux
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail maps service and store errors to HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrPermission):
		middleware.WriteError(w, http.StatusForbidden, err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		middleware.WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %s", service.ErrValidation, err)
	}
	return nil
}

// --- accounts ---

type accountRequest struct {
	Name    string          `json:"name"`
	Type    string          `json:"type"`
	Subtype string          `json:"subtype"`
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.Accounts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, accounts)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	acct, err := h.svc.CreateAccount(r.Context(), req.Name, domain.AccountType(req.Type), req.Subtype, req.Balance)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, acct)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	acct, err := h.svc.Account(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acct)
}

func (h *Handler) setAccountBalance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	acct, err := h.svc.SetAccountBalance(r.Context(), r.PathValue("id"), req.Balance)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acct)
}

func (h *Handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActualBalance decimal.Decimal `json:"actualBalance"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	acct, err := h.svc.Reconcile(r.Context(), r.PathValue("id"), req.ActualBalance)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, acct)
}

func (h *Handler) accountHistory(w http.ResponseWriter, r *http.Request) {
	window := replay.Window(r.URL.Query().Get("window"))
	if window == "" {
		window = replay.WindowAll
	}
	points, err := h.svc.BalanceHistory(r.Context(), r.PathValue("id"), window)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, points)
}

// --- transactions ---

type transactionRequest struct {
	Date            string          `json:"date"`
	Description     string          `json:"description"`
	Amount          decimal.Decimal `json:"amount"`
	Type            string          `json:"type"`
	Category        string          `json:"category"`
	AccountID       string          `json:"accountId"`
	Tags            []string        `json:"tags"`
	IsRecurring     bool            `json:"isRecurring"`
	Splits          []domain.Split  `json:"splits"`
	SubscriptionDay int             `json:"subscriptionDay"`
}

func (h *Handler) saveTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	in := service.TransactionInput{
		ID:              r.PathValue("id"),
		Description:     req.Description,
		Amount:          req.Amount,
		Type:            domain.TransactionType(req.Type),
		Category:        req.Category,
		AccountID:       req.AccountID,
		Tags:            req.Tags,
		IsRecurring:     req.IsRecurring,
		Splits:          req.Splits,
		SubscriptionDay: req.SubscriptionDay,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: bad date %q", service.ErrValidation, req.Date))
			return
		}
		in.Date = date
	}

	status := http.StatusCreated
	if in.ID != "" {
		status = http.StatusOK
	}
	tx, err := h.svc.SaveTransaction(r.Context(), in)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, status, tx)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.Transactions(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}

	q := r.URL.Query()
	filter := reporting.Filter{
		Category:  q.Get("category"),
		AccountID: q.Get("account"),
		Type:      domain.TransactionType(q.Get("type")),
		Tag:       q.Get("tag"),
		Search:    q.Get("search"),
		Sort:      q.Get("sort"),
	}
	if v := q.Get("min"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: bad min amount %q", service.ErrValidation, v))
			return
		}
		filter.MinAmount = d
	}
	if v := q.Get("max"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: bad max amount %q", service.ErrValidation, v))
			return
		}
		filter.MaxAmount = d
	}
	if v := q.Get("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: bad from date %q", service.ErrValidation, v))
			return
		}
		filter.From = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: bad to date %q", service.ErrValidation, v))
			return
		}
		filter.To = t
	}
	filtered := filter.Apply(txs)
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": filtered,
		"totals":       reporting.Totals(filtered),
	})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Transaction(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

func (h *Handler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- transfers ---

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.svc.Transfers(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, transfers)
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		From        string          `json:"from"`
		To          string          `json:"to"`
		Amount      decimal.Decimal `json:"amount"`
		Date        string          `json:"date"`
		Description string          `json:"description"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: bad date %q", service.ErrValidation, req.Date))
			return
		}
	}
	tr, err := h.svc.Transfer(r.Context(), req.From, req.To, req.Amount, date, req.Description)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, tr)
}

// --- debts ---

func (h *Handler) debtBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.svc.DebtBook(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, book)
}

func (h *Handler) resolveDebt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status    string `json:"status"`
		AccountID string `json:"accountId"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	tx, err := h.svc.ResolveDebt(r.Context(), r.PathValue("id"), r.PathValue("splitID"), domain.SplitStatus(req.Status), req.AccountID)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// --- subscriptions ---

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.Subscriptions(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, subs)
}

func (h *Handler) saveSubscription(w http.ResponseWriter, r *http.Request) {
	var req domain.Subscription
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sub, err := h.svc.SaveSubscription(r.Context(), req)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, sub)
}

func (h *Handler) deleteSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSubscription(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- categories and budgets ---

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Categories(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cats)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string          `json:"name"`
		Budget decimal.Decimal `json:"budget"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	cat, err := h.svc.CreateCategory(r.Context(), req.Name, req.Budget)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, cat)
}

func (h *Handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	cat, err := h.svc.RenameCategory(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Budget decimal.Decimal `json:"budget"`
		Month  string          `json:"month"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	id := r.PathValue("id")
	if req.Month != "" {
		if err := h.svc.SetMonthBudget(r.Context(), id, req.Month, req.Budget); err != nil {
			h.fail(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"category": id, "month": req.Month})
		return
	}
	cat, err := h.svc.SetBaseBudget(r.Context(), id, req.Budget)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, cat)
}

func (h *Handler) effectiveBudgets(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	budgets, err := h.svc.EffectiveBudgets(r.Context(), month)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, budgets)
}

// --- history ---

func (h *Handler) listSnapshots(w http.ResponseWriter, r *http.Request) {
	snaps, err := h.svc.HistorySnapshots(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snaps)
}

func (h *Handler) recordSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.RecordSnapshot(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, snap)
}

func (h *Handler) updateSnapshot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID string          `json:"accountId"`
		Balance   decimal.Decimal `json:"balance"`
		Date      string          `json:"date"`
	}
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	var date time.Time
	if req.Date != "" {
		var err error
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.fail(w, fmt.Errorf("%w: bad date %q", service.ErrValidation, req.Date))
			return
		}
	}
	snap, err := h.svc.UpdateSnapshot(r.Context(), r.PathValue("id"), req.AccountID, req.Balance, date)
	if err != nil {
		h.fail(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) removeSnapshotAccount(w http.ResponseWriter, r *http.Request) {
	snap, kept, err := h.svc.RemoveSnapshotAccount(r.Context(), r.PathValue("id"), r.PathValue("accountID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	if !kept {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) deleteSnapshot(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteSnapshot(r.Context(), r.PathValue("id")); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- dashboard ---

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	month := r.URL.Query().Get("month")
	if month == "" {
		month = time.Now().Format("2006-01")
	}
	txs, err := h.svc.Transactions(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	accounts, err := h.svc.Accounts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	budgets, err := h.svc.EffectiveBudgets(r.Context(), month)
	if err != nil {
		h.fail(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"month":         month,
		"summary":       reporting.MonthSummary(txs, month),
		"categorySpend": reporting.CategorySpend(txs, month),
		"budgets":       budgets,
		"savingsRate":   reporting.SavingsRate(txs, month),
		"netWorth":      reporting.CurrentNetWorth(accounts),
		"trend":         reporting.Trend(txs, 6, time.Now()),
		"weeklyTrend":   reporting.WeeklyTrend(txs, 8, time.Now()),
	})
}
