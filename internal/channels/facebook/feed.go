package facebook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"daisychain/internal/common/errors"
	"daisychain/internal/storage"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v2.8"

// feedFields are what the Graph API is asked to return per post.
const feedFields = "message,full_picture,picture,created_time,link,permalink_url,type,description"

// createdTimeLayout is the Graph API timestamp format.
const createdTimeLayout = "2006-01-02T15:04:05-0700"

// UpdateEvent is one entry of a real-time update delivery.
type UpdateEvent struct {
	UID           json.Number `json:"uid"`
	Time          int64       `json:"time"`
	ChangedFields []string    `json:"changed_fields"`
}

type updateDelivery struct {
	Object string        `json:"object"`
	Entry  []UpdateEvent `json:"entry"`
}

// DecodeUpdateEvents parses a real-time update delivery. Deliveries about
// objects other than users carry no feed changes and decode to nil.
func DecodeUpdateEvents(body []byte) ([]UpdateEvent, error) {
	var delivery updateDelivery
	if err := json.Unmarshal(body, &delivery); err != nil {
		return nil, errors.ValidationError("malformed facebook update payload")
	}
	if !strings.Contains(delivery.Object, "user") {
		return nil, nil
	}
	return delivery.Entry, nil
}

// HasStatusChange reports whether the entry notifies a statuses change,
// the only field the feed triggers react to.
func (e *UpdateEvent) HasStatusChange() bool {
	for _, field := range e.ChangedFields {
		if field == "statuses" {
			return true
		}
	}
	return false
}

// Account resolves the notifying Facebook user to a connected account.
func (e *UpdateEvent) Account(store storage.Storage) (*storage.Account, error) {
	if e.UID.String() == "" {
		return nil, errors.ValidationError("facebook update event carries no uid")
	}
	return store.GetAccountByIdentifier(ChannelName, e.UID.String())
}

// FeedEntry is one post from the user's feed.
type FeedEntry struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Message      string `json:"message"`
	Link         string `json:"link"`
	PermalinkURL string `json:"permalink_url"`
	Description  string `json:"description"`
	FullPicture  string `json:"full_picture"`
	Picture      string `json:"picture"`
	CreatedTime  string `json:"created_time"`
}

// TriggerPayload converts the entry into the trigger payload the recipe
// mappings draw from.
func (e *FeedEntry) TriggerPayload() map[string]interface{} {
	return map[string]interface{}{
		"message":       e.Message,
		"link":          e.Link,
		"permalink_url": e.PermalinkURL,
		"description":   e.Description,
		"full_picture":  e.FullPicture,
		"picture":       e.Picture,
	}
}

// feedMarker is the newest post already processed, kept in Account.Extra
// so repeated deliveries do not refire old posts.
type feedMarker struct {
	LastPostID   string    `json:"last_post_id"`
	LastPostTime time.Time `json:"last_post_time"`
}

// NewFeedEntries fetches the user's feed and returns the posts newer than
// the account's stored marker, newest first. The marker advances to the
// newest returned post.
func (c *Channel) NewFeedEntries(ctx context.Context, account *storage.Account) ([]FeedEntry, error) {
	var marker feedMarker
	if account.Extra != "" {
		if err := json.Unmarshal([]byte(account.Extra), &marker); err != nil {
			return nil, errors.InternalError("corrupt facebook feed marker", err)
		}
	}

	params := url.Values{
		"access_token": {account.AccessToken},
		"fields":       {feedFields},
		"limit":        {"25"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.graphBaseURL+"/me/feed?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.InternalError("failed to build facebook feed request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.ConnectionError("facebook feed fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.ProviderError("facebook",
			"feed fetch returned status "+resp.Status, nil)
	}

	var feed struct {
		Data []FeedEntry `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, errors.ProviderError("facebook", "unreadable feed response", err)
	}

	stored := marker
	var fresh []FeedEntry
	for _, entry := range feed.Data {
		created, parseErr := time.Parse(createdTimeLayout, entry.CreatedTime)
		if entry.ID == stored.LastPostID ||
			(parseErr == nil && !created.After(stored.LastPostTime)) {
			break
		}
		fresh = append(fresh, entry)
		if parseErr == nil && created.After(marker.LastPostTime) {
			marker.LastPostID = entry.ID
			marker.LastPostTime = created
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	raw, err := json.Marshal(marker)
	if err != nil {
		return nil, errors.InternalError("failed to encode facebook feed marker", err)
	}
	account.Extra = string(raw)
	if err := c.store.SaveAccount(account); err != nil {
		return nil, err
	}
	return fresh, nil
}
