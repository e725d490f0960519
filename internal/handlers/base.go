// Package handlers implements the HTTP surface: webhook callbacks from the
// trigger providers and a health endpoint.
package handlers

import (
	"context"

	"daisychain/internal/channels/dropbox"
	"daisychain/internal/channels/facebook"
	"daisychain/internal/channels/instagram"
	"daisychain/internal/config"
	"daisychain/internal/storage"
)

// TriggerDispatcher hands an incoming trigger to the dispatch pipeline.
type TriggerDispatcher interface {
	HandleTrigger(ctx context.Context, channelName string, triggerType int, userID int64, payload map[string]interface{}) error
}

// HealthChecker is anything whose liveness the health endpoint reports.
type HealthChecker interface {
	Health() error
}

// Handlers bundles the dependencies of all HTTP handlers.
type Handlers struct {
	store      storage.Storage
	dispatcher TriggerDispatcher
	instagram  *instagram.Channel
	facebook   *facebook.Channel
	dropbox    *dropbox.Channel

	githubSecret        string
	instagramSecret     string
	facebookSecret      string
	facebookVerifyToken string
	dropboxSecret       string

	broker HealthChecker
}

// New creates the handler set.
func New(store storage.Storage, dispatcher TriggerDispatcher,
	instagramChannel *instagram.Channel, facebookChannel *facebook.Channel,
	dropboxChannel *dropbox.Channel, cfg *config.Config, broker HealthChecker) *Handlers {
	return &Handlers{
		store:               store,
		dispatcher:          dispatcher,
		instagram:           instagramChannel,
		facebook:            facebookChannel,
		dropbox:             dropboxChannel,
		githubSecret:        cfg.Github.WebhookSecret,
		instagramSecret:     cfg.Instagram.ClientSecret,
		facebookSecret:      cfg.Facebook.AppSecret,
		facebookVerifyToken: cfg.Facebook.VerifyToken,
		dropboxSecret:       cfg.Dropbox.AppSecret,
		broker:              broker,
	}
}
