package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

const bytesPerMegabyte = 1000000

// mediaExtensions maps file extensions to the type-specific trigger that
// fires alongside the generic files change trigger.
var mediaExtensions = map[string]int{
	"jpg":   TriggerNewMedia,
	"png":   TriggerNewMedia,
	"mp4":   TriggerNewMedia,
	"movie": TriggerNewMedia,
	"mp3":   TriggerNewAudio,
}

// DecodeWebhookUsers parses a webhook delivery into the Dropbox user IDs
// with pending changes.
func DecodeWebhookUsers(body []byte) ([]string, error) {
	var delivery struct {
		Delta struct {
			Users []json.Number `json:"users"`
		} `json:"delta"`
	}
	if err := json.Unmarshal(body, &delivery); err != nil {
		return nil, errors.ValidationError("malformed dropbox webhook payload")
	}

	users := make([]string, 0, len(delivery.Delta.Users))
	for _, user := range delivery.Delta.Users {
		users = append(users, user.String())
	}
	return users, nil
}

// FileChange describes one changed file found during a delta sync.
type FileChange struct {
	Filename  string
	Extension string
	Path      string
	URL       string
	SizeMB    float64
}

// TriggerTypes returns the triggers the change fires. The generic files
// change trigger always fires; media and audio extensions add their own.
func (f *FileChange) TriggerTypes() []int {
	if extra, ok := mediaExtensions[f.Extension]; ok {
		return []int{extra, TriggerFilesChange}
	}
	return []int{TriggerFilesChange}
}

// TriggerPayload converts the change into the trigger payload the recipe
// mappings draw from.
func (f *FileChange) TriggerPayload() map[string]interface{} {
	return map[string]interface{}{
		"filename":       f.Filename,
		"file_extension": f.Extension,
		"path":           f.Path,
		"url":            f.URL,
		"size":           f.SizeMB,
	}
}

// accountExtra is the per-account sync state kept in Account.Extra: the
// folder cursor plus the last seen profile fields.
type accountExtra struct {
	Cursor          string `json:"cursor,omitempty"`
	DisplayName     string `json:"display_name,omitempty"`
	Email           string `json:"email,omitempty"`
	ProfilePhotoURL string `json:"profile_photo_url,omitempty"`
}

func loadExtra(account *storage.Account) (*accountExtra, error) {
	extra := &accountExtra{}
	if account.Extra == "" {
		return extra, nil
	}
	if err := json.Unmarshal([]byte(account.Extra), extra); err != nil {
		return nil, errors.InternalError("corrupt dropbox sync state", err)
	}
	return extra, nil
}

func (c *Channel) saveExtra(account *storage.Account, extra *accountExtra) error {
	raw, err := json.Marshal(extra)
	if err != nil {
		return errors.InternalError("failed to encode dropbox sync state", err)
	}
	account.Extra = string(raw)
	return c.store.SaveAccount(account)
}

// SyncChanges lists the files changed since the account's stored cursor
// and advances the cursor. The first sync walks the whole folder.
func (c *Channel) SyncChanges(ctx context.Context, account *storage.Account) ([]FileChange, error) {
	extra, err := loadExtra(account)
	if err != nil {
		return nil, err
	}

	var changes []FileChange
	for {
		page, err := c.listFolderPage(ctx, account, extra.Cursor)
		if err != nil {
			return nil, err
		}

		for _, entry := range page.Entries {
			if entry.Tag != "file" {
				continue
			}
			link, err := c.temporaryLink(ctx, account, entry.PathDisplay)
			if err != nil {
				c.logger.Error("failed to fetch temporary link", err,
					logging.Field{Key: "path", Value: entry.PathDisplay})
				link = ""
			}
			extension := strings.TrimPrefix(path.Ext(entry.Name), ".")
			changes = append(changes, FileChange{
				Filename:  entry.Name,
				Extension: extension,
				Path:      entry.PathDisplay,
				URL:       link,
				SizeMB:    float64(entry.Size) / bytesPerMegabyte,
			})
		}

		extra.Cursor = page.Cursor
		if !page.HasMore {
			break
		}
	}

	if err := c.saveExtra(account, extra); err != nil {
		return nil, err
	}
	return changes, nil
}

// UserInfoChange fetches the account's profile and returns the trigger
// payload when it differs from the last sync. The first sync records the
// profile without firing.
func (c *Channel) UserInfoChange(ctx context.Context, account *storage.Account) (channels.Payload, error) {
	extra, err := loadExtra(account)
	if err != nil {
		return nil, err
	}

	var profile struct {
		Name struct {
			DisplayName string `json:"display_name"`
		} `json:"name"`
		Email           string `json:"email"`
		ProfilePhotoURL string `json:"profile_photo_url"`
	}
	if err := c.rpc(ctx, account, "/users/get_current_account", nil, &profile); err != nil {
		return nil, err
	}

	firstSync := extra.DisplayName == "" && extra.Email == ""
	changed := profile.Name.DisplayName != extra.DisplayName ||
		profile.Email != extra.Email ||
		profile.ProfilePhotoURL != extra.ProfilePhotoURL
	if !changed {
		return nil, nil
	}

	extra.DisplayName = profile.Name.DisplayName
	extra.Email = profile.Email
	extra.ProfilePhotoURL = profile.ProfilePhotoURL
	if err := c.saveExtra(account, extra); err != nil {
		return nil, err
	}
	if firstSync {
		return nil, nil
	}

	return channels.Payload{
		"display_name":      extra.DisplayName,
		"email":             extra.Email,
		"profile_photo_url": extra.ProfilePhotoURL,
	}, nil
}

type folderPage struct {
	Entries []struct {
		Tag         string `json:".tag"`
		Name        string `json:"name"`
		PathDisplay string `json:"path_display"`
		Size        int64  `json:"size"`
	} `json:"entries"`
	Cursor  string `json:"cursor"`
	HasMore bool   `json:"has_more"`
}

func (c *Channel) listFolderPage(ctx context.Context, account *storage.Account,
	cursor string) (*folderPage, error) {

	endpoint := "/files/list_folder"
	arg := map[string]interface{}{
		"path":               "",
		"recursive":          true,
		"include_media_info": true,
		"include_deleted":    false,
	}
	if cursor != "" {
		endpoint = "/files/list_folder/continue"
		arg = map[string]interface{}{"cursor": cursor}
	}

	page := &folderPage{}
	if err := c.rpc(ctx, account, endpoint, arg, page); err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Channel) temporaryLink(ctx context.Context, account *storage.Account,
	filePath string) (string, error) {

	var result struct {
		Link string `json:"link"`
	}
	err := c.rpc(ctx, account, "/files/get_temporary_link",
		map[string]interface{}{"path": filePath}, &result)
	if err != nil {
		return "", err
	}
	return result.Link, nil
}

// rpc posts a JSON argument to the RPC-style API and decodes the response.
func (c *Channel) rpc(ctx context.Context, account *storage.Account, endpoint string,
	arg interface{}, result interface{}) error {

	var body *bytes.Reader
	if arg == nil {
		body = bytes.NewReader([]byte("null"))
	} else {
		encoded, err := json.Marshal(arg)
		if err != nil {
			return errors.InternalError("failed to encode dropbox api arg", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+endpoint, body)
	if err != nil {
		return errors.InternalError("failed to build dropbox request", err)
	}
	req.Header.Set("Authorization", "Bearer "+account.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.ConnectionError("dropbox api call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.ProviderError("dropbox",
			fmt.Sprintf("%s returned status %d", endpoint, resp.StatusCode), nil)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
