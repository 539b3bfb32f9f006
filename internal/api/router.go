/**
 * @description
 * This file sets up the HTTP router for the transfer-service. It defines the
 * API endpoints, associates them with their corresponding handlers, and
 * applies middleware for logging, panic recovery, CORS and authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RouterOptions carries the cross-cutting settings the router needs.
type RouterOptions struct {
	// JWTSecret enables bearer-token auth on the transfer endpoints when set.
	JWTSecret string
	// AllowedOrigins configures CORS; empty allows any origin.
	AllowedOrigins []string
}

// TransferRoutes creates and returns the router for the transfer service.
func TransferRoutes(h *TransferHandlers, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Group(func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(BearerAuthMiddleware(opts.JWTSecret))
		}

		r.Post("/api/transactions/", h.CreateTransferHandler)
		r.Get("/api/transactions/{userID}/", h.GetParticipantTransfersHandler)
		r.Get("/api/transaction/{transactionID}", h.GetTransferHandler)
	})

	return r
}
