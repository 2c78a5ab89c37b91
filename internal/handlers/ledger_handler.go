package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ruralpay/atmledger/internal/ledgererr"
	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/services"
)

// IdempotencyKeyHeader carries the optional client-supplied key of a movement.
const IdempotencyKeyHeader = "Idempotency-Key"

type LedgerHandler struct {
	service *services.LedgerService
	log     *zap.Logger
}

func NewLedgerHandler(service *services.LedgerService, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{service: service, log: logger.Named("http")}
}

// Routes mounts the ledger API on r.
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccount)
		r.Get("/", h.ListAccounts)
		r.Get("/number/{number}", h.GetAccountByNumber)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetAccount)
			r.Put("/", h.UpdateAccount)
			r.Get("/summary", h.AccountSummary)
			r.Get("/transactions", h.ListAccountTransactions)
			r.Post("/deposits", h.Deposit)
			r.Get("/deposits", h.ListAccountDeposits)
			r.Post("/withdrawals", h.Withdraw)
			r.Get("/withdrawals", h.ListAccountWithdrawals)
		})
	})
	r.Get("/atms/{id}/movements", h.AtmMovements)
	r.Post("/transfers", h.Transfer)
	r.Get("/transactions", h.ListTransactions)
	r.Get("/transactions/{id}", h.GetTransaction)
}

type movementBody struct {
	AtmID     int64                 `json:"atm_id" validate:"required,gt=0"`
	Amount    models.Money          `json:"amount"`
	Currency  string                `json:"currency" validate:"required"`
	Banknotes []models.BanknoteLine `json:"banknotes,omitempty"`
}

type movementResponse struct {
	Account     *models.Account     `json:"account"`
	Transaction *models.Transaction `json:"transaction"`
}

type transferBody struct {
	FromAccountID int64        `json:"from_account_id" validate:"required"`
	ToAccountID   int64        `json:"to_account_id" validate:"required"`
	Amount        models.Money `json:"amount"`
	Currency      string       `json:"currency" validate:"required"`
}

type transferResponse struct {
	FromAccount *models.Account     `json:"from_account"`
	ToAccount   *models.Account     `json:"to_account"`
	Transaction *models.Transaction `json:"transaction"`
}

// Deposit credits cash accepted by an ATM to the account in the path.
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	var body movementBody
	if !decodeBody(w, r, &body) {
		return
	}

	account, tx, err := h.service.Deposit(r.Context(), services.DepositRequest{
		AccountID:      accountID,
		AtmID:          body.AtmID,
		Amount:         body.Amount,
		Currency:       models.Currency(body.Currency),
		Banknotes:      body.Banknotes,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, movementResponse{Account: account, Transaction: tx})
}

// Withdraw debits cash dispensed by an ATM from the account in the path.
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	var body movementBody
	if !decodeBody(w, r, &body) {
		return
	}

	account, tx, err := h.service.Withdraw(r.Context(), services.WithdrawalRequest{
		AccountID:      accountID,
		AtmID:          body.AtmID,
		Amount:         body.Amount,
		Currency:       models.Currency(body.Currency),
		Banknotes:      body.Banknotes,
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, movementResponse{Account: account, Transaction: tx})
}

func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var body transferBody
	if !decodeBody(w, r, &body) {
		return
	}

	from, to, tx, err := h.service.Transfer(r.Context(), services.TransferRequest{
		FromAccountID:  body.FromAccountID,
		ToAccountID:    body.ToAccountID,
		Amount:         body.Amount,
		Currency:       models.Currency(body.Currency),
		IdempotencyKey: r.Header.Get(IdempotencyKeyHeader),
	})
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, transferResponse{FromAccount: from, ToAccount: to, Transaction: tx})
}

func (h *LedgerHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "transaction")
	if !ok {
		return
	}
	detail, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// ListTransactions accepts the optional query parameters account_id, type,
// status and limit.
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := transactionFilter(r)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	if raw := r.URL.Query().Get("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			sendLedgerError(w, h.log, ledgererr.Validation("transaction", "account_id", ledgererr.ReasonInvalidFormat, "account_id must be an integer"))
			return
		}
		filter.AccountID = id
	}
	h.listTransactions(w, r, filter)
}

func (h *LedgerHandler) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	filter, err := transactionFilter(r)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	filter.AccountID = accountID
	h.listTransactions(w, r, filter)
}

func (h *LedgerHandler) listTransactions(w http.ResponseWriter, r *http.Request, filter models.TransactionFilter) {
	txs, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs, "count": len(txs)})
}

func transactionFilter(r *http.Request) (models.TransactionFilter, error) {
	q := r.URL.Query()
	filter := models.TransactionFilter{
		Type:   models.TransactionType(q.Get("type")),
		Status: models.TransactionStatus(q.Get("status")),
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, ledgererr.Validation("transaction", "limit", ledgererr.ReasonInvalidFormat, "limit must be an integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// AtmMovements accepts the optional query parameter limit, applied to the
// deposits and the withdrawals separately.
func (h *LedgerHandler) AtmMovements(w http.ResponseWriter, r *http.Request) {
	atmID, ok := h.pathID(w, r, "atm")
	if !ok {
		return
	}
	filter, err := movementFilter(r, "atm")
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	movements, err := h.service.AtmMovements(r.Context(), atmID, filter.Limit)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, movements)
}

// ListAccountDeposits accepts the optional query parameters atm_id and limit.
func (h *LedgerHandler) ListAccountDeposits(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	filter, err := movementFilter(r, "deposit")
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	filter.AccountID = accountID
	deposits, err := h.service.ListDeposits(r.Context(), filter)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deposits": deposits, "count": len(deposits)})
}

// ListAccountWithdrawals accepts the optional query parameters atm_id and limit.
func (h *LedgerHandler) ListAccountWithdrawals(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	filter, err := movementFilter(r, "withdrawal")
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	filter.AccountID = accountID
	withdrawals, err := h.service.ListWithdrawals(r.Context(), filter)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"withdrawals": withdrawals, "count": len(withdrawals)})
}

func movementFilter(r *http.Request, entity string) (models.MovementFilter, error) {
	q := r.URL.Query()
	var filter models.MovementFilter
	if raw := q.Get("atm_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return filter, ledgererr.Validation(entity, "atm_id", ledgererr.ReasonInvalidFormat, "atm_id must be an integer")
		}
		filter.AtmID = id
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return filter, ledgererr.Validation(entity, "limit", ledgererr.ReasonInvalidFormat, "limit must be an integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

// pathID parses the {id} URL parameter.
func (h *LedgerHandler) pathID(w http.ResponseWriter, r *http.Request, entity string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		sendLedgerError(w, h.log, ledgererr.Validation(entity, "id", ledgererr.ReasonInvalidFormat, "id must be a positive integer"))
		return 0, false
	}
	return id, true
}
