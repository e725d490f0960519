package core

import (
	"context"
	"errors"

	"daisychain/internal/brokers"
	"daisychain/internal/channels"
	"daisychain/internal/common/logging"
	"daisychain/internal/storage"
)

// Worker consumes trigger events from the queue and resolves each one
// against the owning user's recipes.
//
// Resolution policy:
//   - unknown user or unregistered channel ends the invocation; the event
//     cannot be resolved and is not retried
//   - a recipe whose conditions reject the occurrence is skipped, the
//     remaining recipes still run
//   - an unsupported trigger type aborts the invocation, the dispatch
//     itself is malformed
//   - an action failure aborts the invocation; there is no retry and no
//     partial rollback of actions already fired
type Worker struct {
	store    storage.Storage
	registry *channels.Registry
	logger   logging.Logger
}

// NewWorker creates a resolution worker.
func NewWorker(store storage.Storage, registry *channels.Registry) *Worker {
	return &Worker{
		store:    store,
		registry: registry,
		logger:   logging.GetGlobalLogger().WithFields(logging.Field{Key: "component", Value: "worker"}),
	}
}

// Start subscribes count consumers to the queue. Consumption stops when the
// context is cancelled.
func (w *Worker) Start(ctx context.Context, broker brokers.Broker, queue string, count int) error {
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		if err := broker.Subscribe(ctx, queue, w.handleMessage); err != nil {
			return err
		}
	}
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, message *brokers.Message) error {
	event, err := DecodeTriggerEvent(message.Body)
	if err != nil {
		w.logger.Error("discarding undecodable trigger event", err,
			logging.Field{Key: "message_id", Value: message.MessageID})
		return nil
	}
	return w.Resolve(ctx, event)
}

// Resolve runs one trigger event through the user's matching recipes.
// Errors are logged, never returned to the queue: an event is processed at
// most once per delivery regardless of outcome.
func (w *Worker) Resolve(ctx context.Context, event *TriggerEvent) error {
	log := w.logger.WithFields(
		logging.Field{Key: "channel", Value: event.ChannelName},
		logging.Field{Key: "trigger_type", Value: event.TriggerType},
		logging.Field{Key: "user_id", Value: event.UserID})

	user, err := w.store.GetUser(event.UserID)
	if err != nil {
		log.Error("trigger event references unknown user", err)
		return nil
	}

	triggerChannel, err := w.registry.Get(event.ChannelName)
	if err != nil {
		log.Error("trigger event references unregistered channel", err)
		return nil
	}

	channelRow, err := w.store.GetChannelByName(event.ChannelName)
	if err != nil {
		log.Error("trigger channel missing from catalog", err)
		return nil
	}

	recipes, err := w.store.GetMatchingRecipes(user.ID, channelRow.ID, event.TriggerType)
	if err != nil {
		log.Error("failed to load matching recipes", err)
		return nil
	}
	if len(recipes) == 0 {
		log.Debug("no recipes match trigger event")
		return nil
	}

	for _, recipe := range recipes {
		done, err := w.resolveRecipe(ctx, triggerChannel, event, recipe)
		if err != nil {
			// The invocation aborts; recipes already resolved keep
			// their fired actions.
			log.Error("aborting trigger resolution", err,
				logging.Field{Key: "recipe_id", Value: recipe.ID})
			return nil
		}
		if done {
			log.Info("recipe resolved",
				logging.Field{Key: "recipe_id", Value: recipe.ID},
				logging.Field{Key: "action_channel", Value: recipe.ActionChannel},
				logging.Field{Key: "action_type", Value: recipe.ActionType})
		}
	}

	return nil
}

// resolveRecipe evaluates one recipe. It returns (false, nil) when the
// recipe was skipped, (true, nil) when its action fired, and a non-nil
// error when the whole invocation must abort.
func (w *Worker) resolveRecipe(ctx context.Context, triggerChannel channels.Channel, event *TriggerEvent, recipe *storage.Recipe) (bool, error) {
	conditions, err := w.loadConditions(recipe.ID)
	if err != nil {
		return false, err
	}
	mappings, err := w.loadMappings(recipe.ID)
	if err != nil {
		return false, err
	}

	inputs, err := triggerChannel.FillRecipeMappings(ctx, event.TriggerType,
		event.UserID, event.Payload, conditions, mappings)
	if err != nil {
		if errors.Is(err, channels.ErrConditionNotMet) {
			w.logger.Debug("recipe conditions not met, skipping",
				logging.Field{Key: "recipe_id", Value: recipe.ID})
			return false, nil
		}
		return false, err
	}

	actionChannel, err := w.registry.Get(recipe.ActionChannel)
	if err != nil {
		return false, err
	}

	if err := actionChannel.HandleAction(ctx, recipe.ActionType, event.UserID, inputs); err != nil {
		return false, err
	}

	return true, nil
}

func (w *Worker) loadConditions(recipeID int64) (map[string]string, error) {
	rows, err := w.store.GetRecipeConditions(recipeID)
	if err != nil {
		return nil, err
	}
	conditions := make(map[string]string, len(rows))
	for _, row := range rows {
		conditions[row.TriggerInputName] = row.Value
	}
	return conditions, nil
}

func (w *Worker) loadMappings(recipeID int64) (map[string]interface{}, error) {
	rows, err := w.store.GetRecipeMappings(recipeID)
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]interface{}, len(rows))
	for _, row := range rows {
		mappings[row.ActionInputName] = row.Template
	}
	return mappings, nil
}
