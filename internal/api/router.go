/**
 * @description
 * This file sets up the HTTP router for the settlement-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 * - github.com/go-chi/cors: CORS middleware for browser clients.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SettlementRoutes creates and returns a new router for the settlement service.
func SettlementRoutes(h *SettlementHandlers, jwtSecret string, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/transfers", h.ExecuteTransferHandler)

		r.Get("/transactions", h.ListTransactionsHandler)
		r.Get("/transactions/{id}", h.GetTransactionHandler)

		r.Post("/accounts/resolve", h.ResolveAccountHandler)

		r.Post("/money-requests", h.CreateMoneyRequestHandler)
		r.Get("/money-requests", h.ListOutgoingMoneyRequestsHandler)
		r.Get("/money-requests/incoming", h.ListIncomingMoneyRequestsHandler)
		r.Get("/money-requests/{id}", h.GetMoneyRequestHandler)
		r.Post("/money-requests/{id}/accept", h.AcceptMoneyRequestHandler)
		r.Post("/money-requests/{id}/decline", h.DeclineMoneyRequestHandler)
	})

	return r
}
