package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"daisychain/internal/middleware"
)

// NewRouter builds the HTTP route table.
func NewRouter(h *Handlers) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)

	webhooks := r.PathPrefix("/webhooks").Subrouter()
	webhooks.HandleFunc("/github", h.HandleGithubWebhook).Methods(http.MethodPost)
	webhooks.HandleFunc("/instagram", h.HandleInstagramVerify).Methods(http.MethodGet)
	webhooks.HandleFunc("/instagram", h.HandleInstagramWebhook).Methods(http.MethodPost)
	webhooks.HandleFunc("/facebook", h.HandleFacebookVerify).Methods(http.MethodGet)
	webhooks.HandleFunc("/facebook", h.HandleFacebookWebhook).Methods(http.MethodPost)
	webhooks.HandleFunc("/dropbox", h.HandleDropboxVerify).Methods(http.MethodGet)
	webhooks.HandleFunc("/dropbox", h.HandleDropboxWebhook).Methods(http.MethodPost)

	return middleware.LoggingMiddleware(r)
}
