// Package storage defines the persistence contract for the recipe store.
//
// The catalog entities (channels, triggers, actions and their inputs and
// outputs) are seeded at setup time and read-only afterwards. Recipes and
// their conditions and mappings are authored by users; the trigger
// resolution worker only ever reads them.
package storage

import "time"

// Storage is the persistence interface backed by SQLite or PostgreSQL.
type Storage interface {
	// Connection management
	Close() error
	Health() error

	// Users
	CreateUser(user *User) error
	GetUser(id int64) (*User, error)
	GetUserByUsername(username string) (*User, error)

	// Channel catalog (seeded once, read thereafter)
	CreateChannel(channel *Channel) error
	GetChannel(id int64) (*Channel, error)
	// GetChannelByName resolves a channel by name, case-insensitively.
	GetChannelByName(name string) (*Channel, error)
	GetChannels() ([]*Channel, error)

	CreateTrigger(trigger *Trigger) error
	GetTrigger(id int64) (*Trigger, error)
	GetTriggerByType(channelID int64, triggerType int) (*Trigger, error)
	CreateTriggerInput(input *TriggerInput) error
	GetTriggerInputs(triggerID int64) ([]*TriggerInput, error)
	CreateTriggerOutput(output *TriggerOutput) error
	GetTriggerOutputs(triggerID int64) ([]*TriggerOutput, error)

	CreateAction(action *Action) error
	GetAction(id int64) (*Action, error)
	GetActionByType(channelID int64, actionType int) (*Action, error)
	CreateActionInput(input *ActionInput) error
	GetActionInputs(actionID int64) ([]*ActionInput, error)

	// Recipes
	CreateRecipe(recipe *Recipe) error
	GetRecipe(id int64) (*Recipe, error)
	// GetMatchingRecipes returns every recipe of the given user whose
	// trigger belongs to the given channel and has the given trigger type.
	// The returned recipes carry their resolved action type and action
	// channel name.
	GetMatchingRecipes(userID, channelID int64, triggerType int) ([]*Recipe, error)
	// GetRecipesByTriggerChannel returns all recipes whose trigger belongs
	// to the named channel, across all users. Used by scheduled beats.
	GetRecipesByTriggerChannel(channelName string) ([]*Recipe, error)
	CreateRecipeCondition(condition *RecipeCondition) error
	// GetRecipeConditions returns the conditions of a recipe with the
	// owning trigger input's name resolved.
	GetRecipeConditions(recipeID int64) ([]*RecipeCondition, error)
	// GetConditionSubscribers returns, for every recipe condition whose
	// value equals the given value, the recipe's user and trigger type.
	// The RSS poller uses this to find the recipes watching a feed URL.
	GetConditionSubscribers(value string) ([]*ConditionSubscriber, error)
	CreateRecipeMapping(mapping *RecipeMapping) error
	// GetRecipeMappings returns the mappings of a recipe with the target
	// action input's name resolved.
	GetRecipeMappings(recipeID int64) ([]*RecipeMapping, error)

	// Connected accounts (one row per user and channel)
	SaveAccount(account *Account) error
	GetAccount(userID int64, channelName string) (*Account, error)
	GetAccountByIdentifier(channelName, identifier string) (*Account, error)
	DeleteAccount(userID int64, channelName string) error

	// Clock channel settings
	SaveClockSettings(settings *ClockSettings) error
	GetClockSettings(userID int64) (*ClockSettings, error)

	// RSS feed bookkeeping
	SaveRSSFeed(feed *RSSFeed) error
	GetRSSFeed(feedURL string) (*RSSFeed, error)
	GetRSSFeeds() ([]*RSSFeed, error)
}

// Config is the adapter-specific configuration contract.
type Config interface {
	Validate() error
	GetType() string
}

// User is a registered account on the platform.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Channel identifies one integration (e.g. "Twitter"). Name lookups are
// case-insensitive; the remaining fields are display attributes.
type Channel struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Image     string `json:"image"`
	FontColor string `json:"font_color"`
}

// Trigger is an event type offered by a channel. TriggerType is a
// channel-local enumeration, unique per (channel, trigger_type).
type Trigger struct {
	ID          int64  `json:"id"`
	ChannelID   int64  `json:"channel_id"`
	TriggerType int    `json:"trigger_type"`
	Name        string `json:"name"`
}

// TriggerInput is a named condition slot a recipe author fills with a value.
type TriggerInput struct {
	ID        int64  `json:"id"`
	TriggerID int64  `json:"trigger_id"`
	Name      string `json:"name"`
}

// TriggerOutput is a named, typed data field a trigger produces at fire time.
type TriggerOutput struct {
	ID           int64  `json:"id"`
	TriggerID    int64  `json:"trigger_id"`
	Name         string `json:"name"`
	MimeType     string `json:"mime_type"`
	ExampleValue string `json:"example_value"`
}

// Action is an operation offered by a channel, unique per (channel, action_type).
type Action struct {
	ID         int64  `json:"id"`
	ChannelID  int64  `json:"channel_id"`
	ActionType int    `json:"action_type"`
	Name       string `json:"name"`
}

// ActionInput is a named, typed input slot an action consumes.
type ActionInput struct {
	ID       int64  `json:"id"`
	ActionID int64  `json:"action_id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
}

// Recipe binds one trigger (with conditions) to one action (with mappings)
// for one user. ActionType and ActionChannel are resolved by the store when
// recipes are loaded for dispatch so the worker needs no further lookups.
type Recipe struct {
	ID        int64     `json:"id"`
	TriggerID int64     `json:"trigger_id"`
	ActionID  int64     `json:"action_id"`
	UserID    int64     `json:"user_id"`
	Synopsis  string    `json:"synopsis"`
	CreatedAt time.Time `json:"created_at"`

	// Resolved via joins on load; not stored on the recipe row.
	TriggerType   int    `json:"trigger_type,omitempty"`
	ActionType    int    `json:"action_type,omitempty"`
	ActionChannel string `json:"action_channel,omitempty"`
}

// RecipeCondition is one author-chosen value for one trigger input slot.
// TriggerInputName is resolved via a join on load.
type RecipeCondition struct {
	ID               int64  `json:"id"`
	RecipeID         int64  `json:"recipe_id"`
	TriggerInputID   int64  `json:"trigger_input_id"`
	Value            string `json:"value"`
	TriggerInputName string `json:"trigger_input_name,omitempty"`
}

// RecipeMapping wires a trigger output template into one action input slot.
// The template may contain %field% placeholders. ActionInputName is
// resolved via a join on load.
type RecipeMapping struct {
	ID              int64  `json:"id"`
	RecipeID        int64  `json:"recipe_id"`
	ActionInputID   int64  `json:"action_input_id"`
	Template        string `json:"template"`
	ActionInputName string `json:"action_input_name,omitempty"`
}

// ConditionSubscriber identifies a recipe watching a condition value.
type ConditionSubscriber struct {
	UserID      int64 `json:"user_id"`
	TriggerType int   `json:"trigger_type"`
}

// Account holds a user's connection to one channel. AccessToken and
// AccessSecret are encrypted at rest by the caller. Identifier is the
// provider-side account id or username used to route incoming webhooks.
type Account struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ChannelName  string    `json:"channel_name"`
	Identifier   string    `json:"identifier"`
	AccessToken  string    `json:"-"`
	AccessSecret string    `json:"-"`
	Extra        string    `json:"extra"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClockSettings stores the clock channel's per-user UTC offset in minutes.
type ClockSettings struct {
	UserID    int64 `json:"user_id"`
	UTCOffset int   `json:"utc_offset"`
}

// RSSFeed tracks the last known modification time of a polled feed.
type RSSFeed struct {
	ID           int64      `json:"id"`
	FeedURL      string     `json:"feed_url"`
	LastModified *time.Time `json:"last_modified"`
}
