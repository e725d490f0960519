// Package testutil provides in-memory fakes shared by package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"daisychain/internal/common/errors"
	"daisychain/internal/storage"
)

// MemoryStorage is an in-memory storage.Storage for tests. It is safe for
// concurrent use and mirrors the adapters' join semantics (resolved input
// names, action type and channel on recipes).
type MemoryStorage struct {
	mu sync.RWMutex

	nextID int64

	users          map[int64]*storage.User
	channels       map[int64]*storage.Channel
	triggers       map[int64]*storage.Trigger
	triggerInputs  map[int64]*storage.TriggerInput
	triggerOutputs map[int64]*storage.TriggerOutput
	actions        map[int64]*storage.Action
	actionInputs   map[int64]*storage.ActionInput
	recipes        map[int64]*storage.Recipe
	conditions     map[int64]*storage.RecipeCondition
	mappings       map[int64]*storage.RecipeMapping
	accounts       map[string]*storage.Account
	clockSettings  map[int64]*storage.ClockSettings
	rssFeeds       map[string]*storage.RSSFeed
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:          make(map[int64]*storage.User),
		channels:       make(map[int64]*storage.Channel),
		triggers:       make(map[int64]*storage.Trigger),
		triggerInputs:  make(map[int64]*storage.TriggerInput),
		triggerOutputs: make(map[int64]*storage.TriggerOutput),
		actions:        make(map[int64]*storage.Action),
		actionInputs:   make(map[int64]*storage.ActionInput),
		recipes:        make(map[int64]*storage.Recipe),
		conditions:     make(map[int64]*storage.RecipeCondition),
		mappings:       make(map[int64]*storage.RecipeMapping),
		accounts:       make(map[string]*storage.Account),
		clockSettings:  make(map[int64]*storage.ClockSettings),
		rssFeeds:       make(map[string]*storage.RSSFeed),
	}
}

func (m *MemoryStorage) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *MemoryStorage) Close() error  { return nil }
func (m *MemoryStorage) Health() error { return nil }

// Users

func (m *MemoryStorage) CreateUser(user *storage.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.ID = m.id()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	m.users[user.ID] = user
	return nil
}

func (m *MemoryStorage) GetUser(id int64) (*storage.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, exists := m.users[id]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("user %d", id))
	}
	return user, nil
}

func (m *MemoryStorage) GetUserByUsername(username string) (*storage.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, errors.NotFoundError(fmt.Sprintf("user %q", username))
}

// Channel catalog

func (m *MemoryStorage) CreateChannel(channel *storage.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	channel.ID = m.id()
	m.channels[channel.ID] = channel
	return nil
}

func (m *MemoryStorage) GetChannel(id int64) (*storage.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, exists := m.channels[id]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("channel %d", id))
	}
	return channel, nil
}

func (m *MemoryStorage) GetChannelByName(name string) (*storage.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, channel := range m.channels {
		if strings.EqualFold(channel.Name, name) {
			return channel, nil
		}
	}
	return nil, errors.NotFoundError(fmt.Sprintf("channel %q", name))
}

func (m *MemoryStorage) GetChannels() ([]*storage.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channels := make([]*storage.Channel, 0, len(m.channels))
	for _, channel := range m.channels {
		channels = append(channels, channel)
	}
	return channels, nil
}

// Triggers

func (m *MemoryStorage) CreateTrigger(trigger *storage.Trigger) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	trigger.ID = m.id()
	m.triggers[trigger.ID] = trigger
	return nil
}

func (m *MemoryStorage) GetTrigger(id int64) (*storage.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trigger, exists := m.triggers[id]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("trigger %d", id))
	}
	return trigger, nil
}

func (m *MemoryStorage) GetTriggerByType(channelID int64, triggerType int) (*storage.Trigger, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, trigger := range m.triggers {
		if trigger.ChannelID == channelID && trigger.TriggerType == triggerType {
			return trigger, nil
		}
	}
	return nil, errors.NotFoundError(fmt.Sprintf("trigger type %d on channel %d", triggerType, channelID))
}

func (m *MemoryStorage) CreateTriggerInput(input *storage.TriggerInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	input.ID = m.id()
	m.triggerInputs[input.ID] = input
	return nil
}

func (m *MemoryStorage) GetTriggerInputs(triggerID int64) ([]*storage.TriggerInput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var inputs []*storage.TriggerInput
	for _, input := range m.triggerInputs {
		if input.TriggerID == triggerID {
			inputs = append(inputs, input)
		}
	}
	return inputs, nil
}

func (m *MemoryStorage) CreateTriggerOutput(output *storage.TriggerOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	output.ID = m.id()
	m.triggerOutputs[output.ID] = output
	return nil
}

func (m *MemoryStorage) GetTriggerOutputs(triggerID int64) ([]*storage.TriggerOutput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var outputs []*storage.TriggerOutput
	for _, output := range m.triggerOutputs {
		if output.TriggerID == triggerID {
			outputs = append(outputs, output)
		}
	}
	return outputs, nil
}

// Actions

func (m *MemoryStorage) CreateAction(action *storage.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	action.ID = m.id()
	m.actions[action.ID] = action
	return nil
}

func (m *MemoryStorage) GetAction(id int64) (*storage.Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	action, exists := m.actions[id]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("action %d", id))
	}
	return action, nil
}

func (m *MemoryStorage) GetActionByType(channelID int64, actionType int) (*storage.Action, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, action := range m.actions {
		if action.ChannelID == channelID && action.ActionType == actionType {
			return action, nil
		}
	}
	return nil, errors.NotFoundError(fmt.Sprintf("action type %d on channel %d", actionType, channelID))
}

func (m *MemoryStorage) CreateActionInput(input *storage.ActionInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	input.ID = m.id()
	m.actionInputs[input.ID] = input
	return nil
}

func (m *MemoryStorage) GetActionInputs(actionID int64) ([]*storage.ActionInput, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var inputs []*storage.ActionInput
	for _, input := range m.actionInputs {
		if input.ActionID == actionID {
			inputs = append(inputs, input)
		}
	}
	return inputs, nil
}

// Recipes

func (m *MemoryStorage) CreateRecipe(recipe *storage.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe.ID = m.id()
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}
	m.recipes[recipe.ID] = recipe
	return nil
}

// resolveRecipe fills the join fields the SQL adapters provide.
func (m *MemoryStorage) resolveRecipe(recipe *storage.Recipe) *storage.Recipe {
	resolved := *recipe
	if trigger, exists := m.triggers[recipe.TriggerID]; exists {
		resolved.TriggerType = trigger.TriggerType
	}
	if action, exists := m.actions[recipe.ActionID]; exists {
		resolved.ActionType = action.ActionType
		if channel, exists := m.channels[action.ChannelID]; exists {
			resolved.ActionChannel = channel.Name
		}
	}
	return &resolved
}

func (m *MemoryStorage) GetRecipe(id int64) (*storage.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recipe, exists := m.recipes[id]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("recipe %d", id))
	}
	return m.resolveRecipe(recipe), nil
}

func (m *MemoryStorage) GetMatchingRecipes(userID, channelID int64, triggerType int) ([]*storage.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []*storage.Recipe
	for _, recipe := range m.recipes {
		if recipe.UserID != userID {
			continue
		}
		trigger, exists := m.triggers[recipe.TriggerID]
		if !exists || trigger.ChannelID != channelID || trigger.TriggerType != triggerType {
			continue
		}
		matches = append(matches, m.resolveRecipe(recipe))
	}
	return matches, nil
}

func (m *MemoryStorage) GetRecipesByTriggerChannel(channelName string) ([]*storage.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []*storage.Recipe
	for _, recipe := range m.recipes {
		trigger, exists := m.triggers[recipe.TriggerID]
		if !exists {
			continue
		}
		channel, exists := m.channels[trigger.ChannelID]
		if !exists || !strings.EqualFold(channel.Name, channelName) {
			continue
		}
		matches = append(matches, m.resolveRecipe(recipe))
	}
	return matches, nil
}

func (m *MemoryStorage) CreateRecipeCondition(condition *storage.RecipeCondition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	condition.ID = m.id()
	m.conditions[condition.ID] = condition
	return nil
}

func (m *MemoryStorage) GetRecipeConditions(recipeID int64) ([]*storage.RecipeCondition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var conditions []*storage.RecipeCondition
	for _, condition := range m.conditions {
		if condition.RecipeID != recipeID {
			continue
		}
		resolved := *condition
		if input, exists := m.triggerInputs[condition.TriggerInputID]; exists {
			resolved.TriggerInputName = input.Name
		}
		conditions = append(conditions, &resolved)
	}
	return conditions, nil
}

func (m *MemoryStorage) GetConditionSubscribers(value string) ([]*storage.ConditionSubscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var subscribers []*storage.ConditionSubscriber
	for _, condition := range m.conditions {
		if condition.Value != value {
			continue
		}
		recipe, exists := m.recipes[condition.RecipeID]
		if !exists {
			continue
		}
		trigger, exists := m.triggers[recipe.TriggerID]
		if !exists {
			continue
		}
		subscribers = append(subscribers, &storage.ConditionSubscriber{
			UserID:      recipe.UserID,
			TriggerType: trigger.TriggerType,
		})
	}
	return subscribers, nil
}

func (m *MemoryStorage) CreateRecipeMapping(mapping *storage.RecipeMapping) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mapping.ID = m.id()
	m.mappings[mapping.ID] = mapping
	return nil
}

func (m *MemoryStorage) GetRecipeMappings(recipeID int64) ([]*storage.RecipeMapping, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var mappings []*storage.RecipeMapping
	for _, mapping := range m.mappings {
		if mapping.RecipeID != recipeID {
			continue
		}
		resolved := *mapping
		if input, exists := m.actionInputs[mapping.ActionInputID]; exists {
			resolved.ActionInputName = input.Name
		}
		mappings = append(mappings, &resolved)
	}
	return mappings, nil
}

// Accounts

func accountKey(userID int64, channelName string) string {
	return fmt.Sprintf("%d/%s", userID, strings.ToLower(channelName))
}

func (m *MemoryStorage) SaveAccount(account *storage.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if account.ID == 0 {
		account.ID = m.id()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	m.accounts[accountKey(account.UserID, account.ChannelName)] = account
	return nil
}

func (m *MemoryStorage) GetAccount(userID int64, channelName string) (*storage.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	account, exists := m.accounts[accountKey(userID, channelName)]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("account for user %d on %s", userID, channelName))
	}
	return account, nil
}

func (m *MemoryStorage) GetAccountByIdentifier(channelName, identifier string) (*storage.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, account := range m.accounts {
		if strings.EqualFold(account.ChannelName, channelName) && account.Identifier == identifier {
			return account, nil
		}
	}
	return nil, errors.NotFoundError(fmt.Sprintf("account %q on %s", identifier, channelName))
}

func (m *MemoryStorage) DeleteAccount(userID int64, channelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.accounts, accountKey(userID, channelName))
	return nil
}

// Clock settings

func (m *MemoryStorage) SaveClockSettings(settings *storage.ClockSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clockSettings[settings.UserID] = settings
	return nil
}

func (m *MemoryStorage) GetClockSettings(userID int64) (*storage.ClockSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	settings, exists := m.clockSettings[userID]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("clock settings for user %d", userID))
	}
	return settings, nil
}

// RSS feeds

func (m *MemoryStorage) SaveRSSFeed(feed *storage.RSSFeed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, exists := m.rssFeeds[feed.FeedURL]; exists {
		existing.LastModified = feed.LastModified
		feed.ID = existing.ID
		return nil
	}
	if feed.ID == 0 {
		feed.ID = m.id()
	}
	m.rssFeeds[feed.FeedURL] = feed
	return nil
}

func (m *MemoryStorage) GetRSSFeed(feedURL string) (*storage.RSSFeed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	feed, exists := m.rssFeeds[feedURL]
	if !exists {
		return nil, errors.NotFoundError(fmt.Sprintf("rss feed %s", feedURL))
	}
	return feed, nil
}

func (m *MemoryStorage) GetRSSFeeds() ([]*storage.RSSFeed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	feeds := make([]*storage.RSSFeed, 0, len(m.rssFeeds))
	for _, feed := range m.rssFeeds {
		feeds = append(feeds, feed)
	}
	return feeds, nil
}
