// Package scheduler runs the periodic trigger sources. A cron beat fires
// clock triggers once a minute and a poller watches RSS feeds for updates.
package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/robfig/cron/v3"

	"daisychain/internal/channels/clock"
	"daisychain/internal/channels/rss"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

const (
	clockBeatSpec = "* * * * *"
	rssPollSpec   = "*/5 * * * *"
)

// TriggerDispatcher hands a fired trigger to the dispatch pipeline.
type TriggerDispatcher interface {
	HandleTrigger(ctx context.Context, channelName string, triggerType int, userID int64, payload map[string]interface{}) error
}

// Scheduler owns the cron entries for time and feed driven triggers.
type Scheduler struct {
	store      storage.Storage
	dispatcher TriggerDispatcher
	cron       *cron.Cron
	logger     logging.Logger

	// parseFeed is swapped in tests.
	parseFeed func(ctx context.Context, url string) (*gofeed.Feed, error)
}

// NewScheduler creates a scheduler bound to the given store and dispatcher.
func NewScheduler(store storage.Storage, dispatcher TriggerDispatcher) *Scheduler {
	parser := gofeed.NewParser()
	return &Scheduler{
		store:      store,
		dispatcher: dispatcher,
		cron:       cron.New(),
		logger:     logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "scheduler"}),
		parseFeed: func(ctx context.Context, url string) (*gofeed.Feed, error) {
			return parser.ParseURLWithContext(url, ctx)
		},
	}
}

// Start registers the cron entries and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(clockBeatSpec, func() {
		if err := s.ClockBeat(ctx); err != nil {
			s.logger.Error("clock beat failed", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule clock beat: %w", err)
	}
	if _, err := s.cron.AddFunc(rssPollSpec, func() {
		if err := s.PollFeeds(ctx); err != nil {
			s.logger.Error("rss poll failed", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule rss poll: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started")
	return nil
}

// Stop halts the cron runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// ClockBeat fires every clock recipe's trigger once. Recipes sharing a
// (trigger type, user) pair produce a single trigger event.
func (s *Scheduler) ClockBeat(ctx context.Context) error {
	recipes, err := s.store.GetRecipesByTriggerChannel(clock.ChannelName)
	if err != nil {
		return fmt.Errorf("failed to load clock recipes: %w", err)
	}

	type pair struct {
		triggerType int
		userID      int64
	}
	fired := make(map[pair]struct{})

	for _, recipe := range recipes {
		key := pair{recipe.TriggerType, recipe.UserID}
		if _, done := fired[key]; done {
			continue
		}
		if err := s.dispatcher.HandleTrigger(ctx, clock.ChannelName,
			recipe.TriggerType, recipe.UserID, nil); err != nil {
			s.logger.Error("clock trigger dispatch failed", err,
				logging.Field{Key: "user_id", Value: recipe.UserID},
				logging.Field{Key: "trigger_type", Value: recipe.TriggerType})
			continue
		}
		fired[key] = struct{}{}
	}
	return nil
}

// PollFeeds checks every watched feed and fires RSS triggers for feeds that
// gained entries since the previous poll.
func (s *Scheduler) PollFeeds(ctx context.Context) error {
	if err := s.registerWatchedFeeds(); err != nil {
		return err
	}

	feeds, err := s.store.GetRSSFeeds()
	if err != nil {
		return fmt.Errorf("failed to load rss feeds: %w", err)
	}

	for _, feed := range feeds {
		if err := s.pollFeed(ctx, feed); err != nil {
			s.logger.Error("feed poll failed", err,
				logging.Field{Key: "feed_url", Value: feed.FeedURL})
		}
	}
	return nil
}

// registerWatchedFeeds creates a tracking row for every feed URL named by an
// RSS recipe condition.
func (s *Scheduler) registerWatchedFeeds() error {
	recipes, err := s.store.GetRecipesByTriggerChannel(rss.ChannelName)
	if err != nil {
		return fmt.Errorf("failed to load rss recipes: %w", err)
	}

	seen := make(map[string]struct{})
	for _, recipe := range recipes {
		conditions, err := s.store.GetRecipeConditions(recipe.ID)
		if err != nil {
			return fmt.Errorf("failed to load conditions of recipe %d: %w", recipe.ID, err)
		}
		for _, condition := range conditions {
			if condition.TriggerInputName != "feed_url" || condition.Value == "" {
				continue
			}
			if _, dup := seen[condition.Value]; dup {
				continue
			}
			seen[condition.Value] = struct{}{}

			if _, err := s.store.GetRSSFeed(condition.Value); err == nil {
				continue
			}
			if err := s.store.SaveRSSFeed(&storage.RSSFeed{FeedURL: condition.Value}); err != nil {
				return fmt.Errorf("failed to register feed %s: %w", condition.Value, err)
			}
		}
	}
	return nil
}

func (s *Scheduler) pollFeed(ctx context.Context, feed *storage.RSSFeed) error {
	parsed, err := s.parseFeed(ctx, feed.FeedURL)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	latest, ok := latestUpdate(parsed)
	if !ok {
		return nil
	}

	// A feed seen for the first time only records its modification time.
	if feed.LastModified == nil {
		feed.LastModified = &latest
		return s.store.SaveRSSFeed(feed)
	}

	previous := *feed.LastModified
	if !latest.After(previous) {
		return nil
	}

	feed.LastModified = &latest
	if err := s.store.SaveRSSFeed(feed); err != nil {
		return err
	}

	payload := map[string]interface{}{
		"summaries":           joinEntries(parsed, previous, false),
		"summaries_and_links": joinEntries(parsed, previous, true),
		"feed_url":            feed.FeedURL,
	}

	subscribers, err := s.store.GetConditionSubscribers(feed.FeedURL)
	if err != nil {
		return fmt.Errorf("failed to load subscribers: %w", err)
	}
	for _, subscriber := range subscribers {
		if err := s.dispatcher.HandleTrigger(ctx, rss.ChannelName,
			subscriber.TriggerType, subscriber.UserID, payload); err != nil {
			s.logger.Error("rss trigger dispatch failed", err,
				logging.Field{Key: "user_id", Value: subscriber.UserID},
				logging.Field{Key: "feed_url", Value: feed.FeedURL})
		}
	}
	return nil
}

// latestUpdate returns the newest entry timestamp in the feed.
func latestUpdate(feed *gofeed.Feed) (time.Time, bool) {
	var latest time.Time
	var found bool
	for _, item := range feed.Items {
		when := itemTime(item)
		if when == nil {
			continue
		}
		if !found || when.After(latest) {
			latest = *when
			found = true
		}
	}
	return latest, found
}

func itemTime(item *gofeed.Item) *time.Time {
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}
	return item.PublishedParsed
}

// joinEntries concatenates the summaries of entries newer than since, each
// block separated by a blank line.
func joinEntries(feed *gofeed.Feed, since time.Time, withLinks bool) string {
	var b strings.Builder
	for _, item := range feed.Items {
		when := itemTime(item)
		if when == nil || !when.After(since) {
			continue
		}
		b.WriteString(item.Description)
		b.WriteString("\n")
		if withLinks {
			b.WriteString(item.Link)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
