package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ruralpay/atmledger/internal/models"
	"github.com/ruralpay/atmledger/internal/services"
)

type createAccountBody struct {
	AccountNumber  string       `json:"account_number" validate:"required"`
	Currency       string       `json:"currency" validate:"required"`
	OpeningBalance models.Money `json:"opening_balance"`
}

type updateAccountBody struct {
	AccountNumber string `json:"account_number,omitempty"`
	Currency      string `json:"currency,omitempty"`
}

func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body createAccountBody
	if !decodeBody(w, r, &body) {
		return
	}

	account, err := h.service.CreateAccount(r.Context(), services.CreateAccountRequest{
		AccountNumber:  body.AccountNumber,
		Currency:       models.Currency(body.Currency),
		OpeningBalance: body.OpeningBalance,
	})
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (h *LedgerHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	var body updateAccountBody
	if !decodeBody(w, r, &body) {
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), id, services.AccountUpdate{
		AccountNumber: body.AccountNumber,
		Currency:      models.Currency(body.Currency),
	})
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *LedgerHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *LedgerHandler) GetAccountByNumber(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccountByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *LedgerHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": accounts, "count": len(accounts)})
}

func (h *LedgerHandler) AccountSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "account")
	if !ok {
		return
	}
	summary, err := h.service.AccountSummary(r.Context(), id)
	if err != nil {
		sendLedgerError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
