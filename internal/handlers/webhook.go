package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"daisychain/internal/channels/dropbox"
	"daisychain/internal/channels/facebook"
	"daisychain/internal/channels/github"
	"daisychain/internal/channels/instagram"
	"daisychain/internal/common/logging"
	"daisychain/internal/signature"
)

// maxWebhookBody caps webhook payload size.
const maxWebhookBody = 1 << 20

// HandleGithubWebhook receives push event deliveries. A delivery for an
// unknown repository owner or a non-push event is acknowledged and dropped.
func (h *Handlers) HandleGithubWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	if h.githubSecret != "" {
		header := r.Header.Get("X-Hub-Signature-256")
		if err := signature.VerifyGithub(h.githubSecret, body, header); err != nil {
			logging.Warn("rejected github delivery",
				logging.Field{Key: "remote_addr", Value: r.RemoteAddr})
			http.Error(w, "signature mismatch", http.StatusBadRequest)
			return
		}
	}

	var event github.PushEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}
	if !event.IsPush() {
		w.WriteHeader(http.StatusOK)
		return
	}

	account, err := event.OwnerAccount(h.store)
	if err != nil {
		logging.Warn("github delivery for unknown repository owner",
			logging.Field{Key: "repository", Value: event.Repository.FullName})
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.dispatcher.HandleTrigger(r.Context(), github.ChannelName,
		github.TriggerPush, account.UserID, event.TriggerPayload()); err != nil {
		logging.Error("failed to dispatch github trigger", err)
		http.Error(w, "dispatch failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// HandleInstagramVerify answers the subscription handshake by echoing the
// challenge.
func (h *Handlers) HandleInstagramVerify(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	challenge := r.URL.Query().Get("hub.challenge")
	if mode != "subscribe" || challenge == "" {
		http.Error(w, "verification failed", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(challenge))
}

// HandleInstagramWebhook receives subscription deliveries. The request body
// must carry a valid X-Hub-Signature digest.
func (h *Handlers) HandleInstagramWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	header := r.Header.Get("X-Hub-Signature")
	if err := signature.VerifyInstagram(h.instagramSecret, body, header); err != nil {
		logging.Warn("rejected instagram delivery",
			logging.Field{Key: "remote_addr", Value: r.RemoteAddr})
		http.Error(w, "signature mismatch", http.StatusBadRequest)
		return
	}

	events, err := instagram.DecodeSubscriptionEvents(body)
	if err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	for _, event := range events {
		h.fireInstagramEvent(r, &event)
	}
	w.WriteHeader(http.StatusOK)
}

// fireInstagramEvent resolves one subscription event and fires the photo
// triggers. Failures are logged and swallowed so one bad event does not
// reject the whole delivery.
func (h *Handlers) fireInstagramEvent(r *http.Request, event *instagram.SubscriptionEvent) {
	account, err := event.Account(h.store)
	if err != nil {
		logging.Warn("instagram delivery for unknown account",
			logging.Field{Key: "object_id", Value: event.ObjectID})
		return
	}

	payload, tagged, err := h.instagram.MediaPayload(r.Context(), account, event.Data.MediaID)
	if err != nil {
		logging.Error("failed to fetch instagram media", err,
			logging.Field{Key: "media_id", Value: event.Data.MediaID})
		return
	}
	if payload == nil {
		return
	}

	if err := h.dispatcher.HandleTrigger(r.Context(), instagram.ChannelName,
		instagram.TriggerNewPhoto, account.UserID, payload); err != nil {
		logging.Error("failed to dispatch instagram trigger", err)
		return
	}
	if tagged {
		if err := h.dispatcher.HandleTrigger(r.Context(), instagram.ChannelName,
			instagram.TriggerNewPhotoWithTags, account.UserID, payload); err != nil {
			logging.Error("failed to dispatch instagram tag trigger", err)
		}
	}
}

// HandleFacebookVerify answers the real-time-update handshake. The verify
// token must match the configured one before the challenge is echoed.
func (h *Handlers) HandleFacebookVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")
	if h.facebookVerifyToken == "" || token != h.facebookVerifyToken || challenge == "" {
		http.Error(w, "verification failed", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(challenge))
}

// HandleFacebookWebhook receives real-time-update deliveries. Each entry
// with a statuses change pulls the fresh feed posts and fires their
// triggers.
func (h *Handlers) HandleFacebookWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	header := r.Header.Get("X-Hub-Signature")
	if err := signature.VerifyFacebook(h.facebookSecret, body, header); err != nil {
		logging.Warn("rejected facebook delivery",
			logging.Field{Key: "remote_addr", Value: r.RemoteAddr})
		http.Error(w, "signature mismatch", http.StatusBadRequest)
		return
	}

	events, err := facebook.DecodeUpdateEvents(body)
	if err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	for _, event := range events {
		h.fireFacebookEvent(r, &event)
	}
	w.WriteHeader(http.StatusOK)
}

// fireFacebookEvent resolves one update entry and fires the feed triggers
// for every post newer than the account's marker. Failures are logged and
// swallowed so one bad entry does not reject the whole delivery.
func (h *Handlers) fireFacebookEvent(r *http.Request, event *facebook.UpdateEvent) {
	if !event.HasStatusChange() {
		return
	}

	account, err := event.Account(h.store)
	if err != nil {
		logging.Warn("facebook delivery for unknown account",
			logging.Field{Key: "uid", Value: event.UID.String()})
		return
	}

	entries, err := h.facebook.NewFeedEntries(r.Context(), account)
	if err != nil {
		logging.Error("failed to fetch facebook feed", err,
			logging.Field{Key: "uid", Value: event.UID.String()})
		return
	}

	for _, entry := range entries {
		payload := entry.TriggerPayload()
		for _, triggerType := range facebook.TriggerTypesForFeedType(entry.Type, entry.Message) {
			if err := h.dispatcher.HandleTrigger(r.Context(), facebook.ChannelName,
				triggerType, account.UserID, payload); err != nil {
				logging.Error("failed to dispatch facebook trigger", err,
					logging.Field{Key: "trigger_type", Value: triggerType})
			}
		}
	}
}

// HandleDropboxVerify answers the webhook handshake by echoing the
// challenge.
func (h *Handlers) HandleDropboxVerify(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("challenge")
	if challenge == "" {
		http.Error(w, "verification failed", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(challenge))
}

// HandleDropboxWebhook receives change notifications. Each listed user
// gets a delta sync; every changed file fires its triggers.
func (h *Handlers) HandleDropboxWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	header := r.Header.Get("X-Dropbox-Signature")
	if err := signature.VerifyDropbox(h.dropboxSecret, body, header); err != nil {
		logging.Warn("rejected dropbox delivery",
			logging.Field{Key: "remote_addr", Value: r.RemoteAddr})
		http.Error(w, "signature mismatch", http.StatusBadRequest)
		return
	}

	users, err := dropbox.DecodeWebhookUsers(body)
	if err != nil {
		http.Error(w, "malformed payload", http.StatusBadRequest)
		return
	}

	for _, userID := range users {
		h.fireDropboxChanges(r, userID)
	}
	w.WriteHeader(http.StatusOK)
}

// fireDropboxChanges syncs one notified user and fires the account info
// and file change triggers. Failures are logged and swallowed.
func (h *Handlers) fireDropboxChanges(r *http.Request, dropboxUserID string) {
	account, err := h.store.GetAccountByIdentifier(dropbox.ChannelName, dropboxUserID)
	if err != nil {
		logging.Warn("dropbox delivery for unknown account",
			logging.Field{Key: "dropbox_user_id", Value: dropboxUserID})
		return
	}

	if payload, err := h.dropbox.UserInfoChange(r.Context(), account); err != nil {
		logging.Error("failed to check dropbox account info", err,
			logging.Field{Key: "dropbox_user_id", Value: dropboxUserID})
	} else if payload != nil {
		if err := h.dispatcher.HandleTrigger(r.Context(), dropbox.ChannelName,
			dropbox.TriggerUserInfoChanged, account.UserID, payload); err != nil {
			logging.Error("failed to dispatch dropbox account info trigger", err)
		}
	}

	changes, err := h.dropbox.SyncChanges(r.Context(), account)
	if err != nil {
		logging.Error("failed to sync dropbox changes", err,
			logging.Field{Key: "dropbox_user_id", Value: dropboxUserID})
		return
	}

	for _, change := range changes {
		payload := change.TriggerPayload()
		for _, triggerType := range change.TriggerTypes() {
			if err := h.dispatcher.HandleTrigger(r.Context(), dropbox.ChannelName,
				triggerType, account.UserID, payload); err != nil {
				logging.Error("failed to dispatch dropbox trigger", err,
					logging.Field{Key: "trigger_type", Value: triggerType})
			}
		}
	}
}
