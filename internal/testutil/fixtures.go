package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"daisychain/internal/channels"
	"daisychain/internal/storage"
)

// RecipeSpec describes one recipe to seed.
type RecipeSpec struct {
	TriggerChannel string
	TriggerType    int
	ActionChannel  string
	ActionType     int
	// Conditions maps trigger input names to the recipe's values.
	Conditions map[string]string
	// Mappings maps action input names to templates.
	Mappings map[string]string
}

// SeedRecipes populates the store with a user and the given recipes,
// creating catalog rows (channels, triggers, actions and their inputs) on
// demand. It returns the user.
func SeedRecipes(t *testing.T, store *MemoryStorage, username string, specs ...RecipeSpec) *storage.User {
	t.Helper()

	user := &storage.User{Username: username}
	require.NoError(t, store.CreateUser(user))

	channelIDs := map[string]int64{}
	channelID := func(name string) int64 {
		if id, exists := channelIDs[name]; exists {
			return id
		}
		channel := &storage.Channel{Name: name}
		require.NoError(t, store.CreateChannel(channel))
		channelIDs[name] = channel.ID
		return channel.ID
	}

	triggerIDs := map[[2]int64]int64{}
	actionIDs := map[[2]int64]int64{}

	for _, spec := range specs {
		tcID := channelID(spec.TriggerChannel)
		acID := channelID(spec.ActionChannel)

		triggerKey := [2]int64{tcID, int64(spec.TriggerType)}
		triggerID, exists := triggerIDs[triggerKey]
		if !exists {
			trigger := &storage.Trigger{ChannelID: tcID, TriggerType: spec.TriggerType}
			require.NoError(t, store.CreateTrigger(trigger))
			triggerID = trigger.ID
			triggerIDs[triggerKey] = triggerID
		}

		actionKey := [2]int64{acID, int64(spec.ActionType)}
		actionID, exists := actionIDs[actionKey]
		if !exists {
			action := &storage.Action{ChannelID: acID, ActionType: spec.ActionType}
			require.NoError(t, store.CreateAction(action))
			actionID = action.ID
			actionIDs[actionKey] = actionID
		}

		recipe := &storage.Recipe{TriggerID: triggerID, ActionID: actionID, UserID: user.ID}
		require.NoError(t, store.CreateRecipe(recipe))

		for name, value := range spec.Conditions {
			input := &storage.TriggerInput{TriggerID: triggerID, Name: name}
			require.NoError(t, store.CreateTriggerInput(input))
			require.NoError(t, store.CreateRecipeCondition(&storage.RecipeCondition{
				RecipeID:       recipe.ID,
				TriggerInputID: input.ID,
				Value:          value,
			}))
		}
		for name, template := range spec.Mappings {
			input := &storage.ActionInput{ActionID: actionID, Name: name}
			require.NoError(t, store.CreateActionInput(input))
			require.NoError(t, store.CreateRecipeMapping(&storage.RecipeMapping{
				RecipeID:      recipe.ID,
				ActionInputID: input.ID,
				Template:      template,
			}))
		}
	}

	return user
}

// FiredAction records one HandleAction call observed by a StubChannel.
type FiredAction struct {
	ActionType int
	UserID     int64
	Inputs     map[string]interface{}
}

// StubChannel is a scriptable channel for pipeline tests.
type StubChannel struct {
	channels.BaseChannel

	// FillFunc overrides FillRecipeMappings. The default returns the
	// mappings unchanged.
	FillFunc func(ctx context.Context, triggerType int, userID int64,
		payload channels.Payload, conditions map[string]string,
		mappings map[string]interface{}) (map[string]interface{}, error)

	// ActionErr is returned by HandleAction when set.
	ActionErr error

	mu    sync.Mutex
	fired []FiredAction
}

// NewStubChannel creates a stub channel with the given name.
func NewStubChannel(name string) *StubChannel {
	return &StubChannel{BaseChannel: channels.BaseChannel{ChannelName: name}}
}

func (s *StubChannel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {
	if s.FillFunc != nil {
		return s.FillFunc(ctx, triggerType, userID, payload, conditions, mappings)
	}
	return mappings, nil
}

func (s *StubChannel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {
	if s.ActionErr != nil {
		return s.ActionErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired = append(s.fired, FiredAction{ActionType: actionType, UserID: userID, Inputs: inputs})
	return nil
}

func (s *StubChannel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	return channels.ConnectionUnnecessary, nil
}

// Fired returns the recorded actions.
func (s *StubChannel) Fired() []FiredAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	fired := make([]FiredAction, len(s.fired))
	copy(fired, s.fired)
	return fired
}
