// Package github implements the Github trigger channel. Push events arrive
// through the webhook endpoint; the channel evaluates recipes against them
// and manages repository webhooks via the Github API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Github"

// Trigger types.
const (
	TriggerPush   = 100
	TriggerIssues = 101
)

const repoHooksURL = "https://api.github.com/repos/%s/hooks"

// Channel implements channels.Channel for Github. It has no actions; the
// issues trigger is catalogued but not implemented yet.
type Channel struct {
	channels.BaseChannel
	store      storage.Storage
	client     *http.Client
	logger     logging.Logger
	webhookURL string
}

// NewChannel creates the Github channel. webhookURL is the public callback
// address registered on repositories.
func NewChannel(store storage.Storage, client *http.Client, webhookURL string) *Channel {
	return &Channel{
		BaseChannel: channels.BaseChannel{ChannelName: ChannelName},
		store:       store,
		client:      client,
		logger:      logging.GetGlobalLogger().WithFields(logging.Field{Key: "channel", Value: "github"}),
		webhookURL:  webhookURL,
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {

	switch triggerType {
	case TriggerPush:
		fullName, _ := payload["repository_full_name"].(string)
		if conditions["repository_name"] != fullName {
			return nil, channels.ErrConditionNotMet
		}

		outputs := map[string]string{}
		for _, field := range []string{"repository_name", "repository_url",
			"head_commit_message", "head_commit_author"} {
			if value, ok := payload[field].(string); ok {
				outputs[field] = value
			}
		}
		return channels.ReplaceTextMappings(mappings, outputs), nil

	default:
		// The issues trigger is catalogued but resolution for it is
		// not implemented.
		return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
	}
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {
	return channels.NotSupportedAction(ChannelName, actionType)
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetAccount(userID, ChannelName); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

// CreateWebhook subscribes the callback URL to push events on the given
// repository, unless a matching hook already exists. It returns the full
// repository name.
func (c *Channel) CreateWebhook(ctx context.Context, userID int64, owner, repository string, events []string) (string, error) {
	account, err := c.store.GetAccount(userID, ChannelName)
	if err != nil {
		return "", errors.NotFoundError("github account")
	}
	if owner == "" {
		owner = account.Identifier
	}
	repoName := owner + "/" + repository

	exists, err := c.webhookExists(ctx, repoName, account.AccessToken)
	if err != nil {
		return "", err
	}
	if exists {
		return repoName, nil
	}

	body, err := json.Marshal(map[string]interface{}{
		"name":   "web",
		"active": true,
		"events": events,
		"config": map[string]string{
			"url":          c.webhookURL,
			"content_type": "json",
		},
	})
	if err != nil {
		return "", errors.InternalError("failed to encode webhook request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf(repoHooksURL, repoName), bytes.NewReader(body))
	if err != nil {
		return "", errors.InternalError("failed to build webhook request", err)
	}
	req.Header.Set("Authorization", "token "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.ConnectionError("github webhook creation failed", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.ProviderError("github",
			fmt.Sprintf("webhook creation returned status %d", resp.StatusCode), nil)
	}
	return repoName, nil
}

func (c *Channel) webhookExists(ctx context.Context, repoName, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf(repoHooksURL, repoName), nil)
	if err != nil {
		return false, errors.InternalError("failed to build hooks request", err)
	}
	req.Header.Set("Authorization", "token "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, errors.ConnectionError("github hooks lookup failed", err)
	}
	defer resp.Body.Close()

	var hooks []struct {
		Config struct {
			URL string `json:"url"`
		} `json:"config"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hooks); err != nil {
		return false, errors.ProviderError("github", "unexpected hooks response", err)
	}

	for _, hook := range hooks {
		if hook.Config.URL == c.webhookURL {
			return true, nil
		}
	}
	return false, nil
}

// PushEvent is the subset of Github's push payload the channel consumes.
type PushEvent struct {
	Repository struct {
		Name     string `json:"name"`
		FullName string `json:"full_name"`
		URL      string `json:"url"`
		Owner    struct {
			Name string `json:"name"`
		} `json:"owner"`
	} `json:"repository"`
	HeadCommit struct {
		Message string `json:"message"`
		Author  struct {
			Name string `json:"name"`
		} `json:"author"`
	} `json:"head_commit"`
	Pusher *struct {
		Name string `json:"name"`
	} `json:"pusher"`
	Commits []json.RawMessage `json:"commits"`
}

// IsPush reports whether the decoded event is a push event.
func (e *PushEvent) IsPush() bool {
	return e.Pusher != nil && e.Commits != nil
}

// TriggerPayload converts the event into the channel's trigger payload.
func (e *PushEvent) TriggerPayload() map[string]interface{} {
	return map[string]interface{}{
		"repository_name":      e.Repository.Name,
		"repository_url":       e.Repository.URL,
		"repository_full_name": e.Repository.FullName,
		"head_commit_message":  e.HeadCommit.Message,
		"head_commit_author":   e.HeadCommit.Author.Name,
	}
}

// OwnerAccount resolves the platform user who connected the repository
// owner's Github account.
func (e *PushEvent) OwnerAccount(store storage.Storage) (*storage.Account, error) {
	return store.GetAccountByIdentifier(ChannelName, e.Repository.Owner.Name)
}
