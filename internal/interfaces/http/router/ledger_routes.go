package router

import (
	"net/http"

	"github.com/erp/ledger/internal/infrastructure/auth"
	"github.com/erp/ledger/internal/interfaces/http/handler"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
)

// LedgerResources returns the account and entry resources. Reads need
// ledger:read, mutations ledger:write.
func LedgerResources(h *handler.LedgerHandler) []Resource {
	read := middleware.RequireScope(auth.ScopeLedgerRead)
	write := middleware.RequireScope(auth.ScopeLedgerWrite)

	return []Resource{
		{
			Name:   "accounts",
			Prefix: "/accounts",
			Routes: []Route{
				{http.MethodPost, "", write, h.OpenAccount},
				{http.MethodGet, "", read, h.ListAccounts},
				{http.MethodGet, "/:id", read, h.GetAccount},
				{http.MethodPost, "/:id/close", write, h.CloseAccount},
				{http.MethodPost, "/:id/reopen", write, h.ReopenAccount},
				{http.MethodPost, "/:id/entries", write, h.PostEntry},
				{http.MethodGet, "/:id/entries", read, h.ListEntries},
				{http.MethodGet, "/:id/balance", read, h.GetBalance},
				{http.MethodGet, "/:id/statement", read, h.GetStatement},
				{http.MethodPost, "/:id/recompute", write, h.RecomputeAccount},
			},
		},
		{
			Name:   "entries",
			Prefix: "/entries",
			Routes: []Route{
				{http.MethodGet, "/:id", read, h.GetEntry},
				{http.MethodPatch, "/:id", write, h.UpdateEntry},
				{http.MethodDelete, "/:id", write, h.DeleteEntry},
			},
		},
	}
}
