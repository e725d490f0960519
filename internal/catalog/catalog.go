// Package catalog seeds the channel catalog: the channels, their triggers
// with inputs and outputs, and their actions with inputs. The trigger
// resolution worker refuses events for channels missing from the catalog,
// so seeding runs at startup, right after the schema migration.
package catalog

import (
	"fmt"

	"daisychain/internal/channels/clock"
	"daisychain/internal/channels/dropbox"
	"daisychain/internal/channels/facebook"
	"daisychain/internal/channels/github"
	"daisychain/internal/channels/gmail"
	"daisychain/internal/channels/hue"
	"daisychain/internal/channels/instagram"
	"daisychain/internal/channels/mail"
	"daisychain/internal/channels/rss"
	"daisychain/internal/channels/twitter"
	"daisychain/internal/storage"
)

type triggerEntry struct {
	Type    int
	Name    string
	Inputs  []string
	Outputs []string
}

type actionEntry struct {
	Type   int
	Name   string
	Inputs []string
}

type channelEntry struct {
	Name      string
	Color     string
	FontColor string
	Triggers  []triggerEntry
	Actions   []actionEntry
}

// dropboxFileOutputs are shared by every file-event trigger.
var dropboxFileOutputs = []string{"filename", "file_extension", "path", "url", "size"}

func entries() []channelEntry {
	return []channelEntry{
		{
			Name: clock.ChannelName, Color: "#ffffff", FontColor: "#000000",
			Triggers: []triggerEntry{
				{Type: clock.TriggerEveryDay, Name: "every_day",
					Inputs: []string{"Time"}, Outputs: []string{"date", "time"}},
				{Type: clock.TriggerEveryHour, Name: "every_hour",
					Inputs: []string{"Minutes"}, Outputs: []string{"date", "time"}},
				{Type: clock.TriggerEveryWeekday, Name: "every_weekday",
					Inputs: []string{"Time", "Weekdays"}, Outputs: []string{"date", "time"}},
				{Type: clock.TriggerEveryMonth, Name: "every_month",
					Inputs: []string{"Time", "Day"}, Outputs: []string{"date", "time"}},
				{Type: clock.TriggerEveryYear, Name: "every_year",
					Inputs: []string{"Time", "Date"}, Outputs: []string{"date", "time"}},
			},
		},
		{
			Name: rss.ChannelName, Color: "#f26522", FontColor: "#ffffff",
			Triggers: []triggerEntry{
				{Type: rss.TriggerNewEntries, Name: "new_entries",
					Inputs:  []string{"feed_url"},
					Outputs: []string{"summaries", "summaries_and_links"}},
				{Type: rss.TriggerEntriesKeyword, Name: "entries_keyword",
					Inputs:  []string{"feed_url", "keyword"},
					Outputs: []string{"summaries", "summaries_and_links"}},
			},
		},
		{
			Name: github.ChannelName, Color: "#333333", FontColor: "#ffffff",
			Triggers: []triggerEntry{
				{Type: github.TriggerPush, Name: "push",
					Inputs: []string{"repository_name"},
					Outputs: []string{"repository_name", "repository_url",
						"head_commit_message", "head_commit_author"}},
				{Type: github.TriggerIssues, Name: "issues",
					Inputs:  []string{"repository_name"},
					Outputs: []string{"repository_name", "repository_url"}},
			},
		},
		{
			Name: instagram.ChannelName, Color: "#e4405f", FontColor: "#ffffff",
			Triggers: []triggerEntry{
				{Type: instagram.TriggerNewPhoto, Name: "new_photo",
					Outputs: []string{"url", "caption", "caption_without_hashtags",
						"image_standard", "image_low", "thumbnail"}},
				{Type: instagram.TriggerNewPhotoWithTags, Name: "new_photo_with_tags",
					Inputs: []string{"hashtag"},
					Outputs: []string{"url", "caption", "caption_without_hashtags",
						"image_standard", "image_low", "thumbnail"}},
			},
		},
		{
			Name: facebook.ChannelName, Color: "#3b5998", FontColor: "#ffffff",
			Triggers: []triggerEntry{
				{Type: facebook.TriggerNewPost, Name: "new_post",
					Outputs: []string{"message", "permalink_url", "description"}},
				{Type: facebook.TriggerNewPhoto, Name: "new_photo",
					Outputs: []string{"message", "permalink_url", "image_standard", "image_low"}},
				{Type: facebook.TriggerNewPhotoWithHashtag, Name: "new_photo_with_hashtag",
					Inputs:  []string{"hashtag"},
					Outputs: []string{"message", "permalink_url", "image_standard", "image_low"}},
				{Type: facebook.TriggerNewLink, Name: "new_link",
					Outputs: []string{"message", "link", "permalink_url", "description"}},
				{Type: facebook.TriggerNewVideo, Name: "new_video",
					Outputs: []string{"message", "link", "permalink_url", "description"}},
			},
		},
		{
			Name: twitter.ChannelName, Color: "#55acee", FontColor: "#ffffff",
			Actions: []actionEntry{
				{Type: twitter.ActionPostStatus, Name: "post_status",
					Inputs: []string{"status"}},
				{Type: twitter.ActionPostImage, Name: "post_image",
					Inputs: []string{"status", "image"}},
				{Type: twitter.ActionUpdateProfileImage, Name: "update_profile_image",
					Inputs: []string{"image"}},
				{Type: twitter.ActionSendMessage, Name: "send_message",
					Inputs: []string{"screen_name", "text"}},
			},
		},
		{
			Name: dropbox.ChannelName, Color: "#007ee5", FontColor: "#ffffff",
			Triggers: []triggerEntry{
				{Type: dropbox.TriggerFilesChange, Name: "files_change",
					Inputs:  []string{"path", "filename", "file_extension"},
					Outputs: dropboxFileOutputs},
				{Type: dropbox.TriggerNewMedia, Name: "new_media",
					Inputs:  []string{"path", "filename", "file_extension"},
					Outputs: dropboxFileOutputs},
				{Type: dropbox.TriggerNewAudio, Name: "new_audio",
					Inputs:  []string{"path", "filename", "file_extension"},
					Outputs: dropboxFileOutputs},
				{Type: dropbox.TriggerNewShared, Name: "new_shared",
					Inputs:  []string{"path", "filename", "file_extension"},
					Outputs: dropboxFileOutputs},
				{Type: dropbox.TriggerUserInfoChanged, Name: "user_info_changed",
					Outputs: []string{"display_name", "email", "profile_photo_url"}},
			},
			Actions: []actionEntry{
				{Type: dropbox.ActionUpload, Name: "upload",
					Inputs: []string{"data", "path", "overwrite"}},
				{Type: dropbox.ActionDownload, Name: "download",
					Inputs: []string{"path"}},
				{Type: dropbox.ActionDownloadToDestination, Name: "download_to_destination",
					Inputs: []string{"path_from", "path_to"}},
			},
		},
		{
			Name: hue.ChannelName, Color: "#00a8e2", FontColor: "#ffffff",
			Actions: []actionEntry{
				{Type: hue.ActionLight, Name: "light",
					Inputs: []string{"light_id", "state"}},
			},
		},
		{
			Name: mail.ChannelName, Color: "#888888", FontColor: "#ffffff",
			Actions: []actionEntry{
				{Type: mail.ActionSendEmail, Name: "send_email",
					Inputs: []string{"subject", "body"}},
			},
		},
		{
			Name: gmail.ChannelName, Color: "#d44638", FontColor: "#ffffff",
			Actions: []actionEntry{
				{Type: gmail.ActionSendEmail, Name: "send_email",
					Inputs: []string{"sender", "to", "subject", "message"}},
			},
		},
	}
}

// Seed inserts missing catalog rows. Existing rows are left untouched, so
// repeated startups are safe.
func Seed(store storage.Storage) error {
	for _, entry := range entries() {
		if err := seedChannel(store, entry); err != nil {
			return err
		}
	}
	return nil
}

func seedChannel(store storage.Storage, entry channelEntry) error {
	channel, err := store.GetChannelByName(entry.Name)
	if err != nil {
		channel = &storage.Channel{
			Name:      entry.Name,
			Color:     entry.Color,
			FontColor: entry.FontColor,
		}
		if err := store.CreateChannel(channel); err != nil {
			return fmt.Errorf("seed channel %s: %w", entry.Name, err)
		}
	}

	for _, t := range entry.Triggers {
		if _, err := store.GetTriggerByType(channel.ID, t.Type); err == nil {
			continue
		}
		trigger := &storage.Trigger{ChannelID: channel.ID, TriggerType: t.Type, Name: t.Name}
		if err := store.CreateTrigger(trigger); err != nil {
			return fmt.Errorf("seed trigger %s/%s: %w", entry.Name, t.Name, err)
		}
		for _, name := range t.Inputs {
			input := &storage.TriggerInput{TriggerID: trigger.ID, Name: name}
			if err := store.CreateTriggerInput(input); err != nil {
				return fmt.Errorf("seed trigger input %s/%s/%s: %w", entry.Name, t.Name, name, err)
			}
		}
		for _, name := range t.Outputs {
			output := &storage.TriggerOutput{TriggerID: trigger.ID, Name: name, MimeType: mimeFor(name)}
			if err := store.CreateTriggerOutput(output); err != nil {
				return fmt.Errorf("seed trigger output %s/%s/%s: %w", entry.Name, t.Name, name, err)
			}
		}
	}

	for _, a := range entry.Actions {
		if _, err := store.GetActionByType(channel.ID, a.Type); err == nil {
			continue
		}
		action := &storage.Action{ChannelID: channel.ID, ActionType: a.Type, Name: a.Name}
		if err := store.CreateAction(action); err != nil {
			return fmt.Errorf("seed action %s/%s: %w", entry.Name, a.Name, err)
		}
		for _, name := range a.Inputs {
			input := &storage.ActionInput{ActionID: action.ID, Name: name}
			if err := store.CreateActionInput(input); err != nil {
				return fmt.Errorf("seed action input %s/%s/%s: %w", entry.Name, a.Name, name, err)
			}
		}
	}
	return nil
}

func mimeFor(output string) string {
	switch output {
	case "image_standard", "image_low", "thumbnail":
		return "image/jpeg"
	default:
		return "text/plain"
	}
}
