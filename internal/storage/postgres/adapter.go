package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"daisychain/internal/storage"
)

// Adapter implements storage.Storage on top of PostgreSQL via pgx.
type Adapter struct {
	db     *sql.DB
	config *Config
}

// NewAdapter connects to the database, runs migrations and returns the
// adapter.
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.Database, sslMode)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{
		db:     db,
		config: config,
	}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

// Close closes the underlying connection pool.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Health pings the database.
func (a *Adapter) Health() error {
	return a.db.Ping()
}

func (a *Adapter) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS channels (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL DEFAULT '',
			image TEXT NOT NULL DEFAULT '',
			font_color TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_channels_name ON channels(LOWER(name))`,
		`CREATE TABLE IF NOT EXISTS triggers (
			id BIGSERIAL PRIMARY KEY,
			channel_id BIGINT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
			trigger_type INTEGER NOT NULL,
			name TEXT NOT NULL,
			UNIQUE(channel_id, trigger_type)
		)`,
		`CREATE TABLE IF NOT EXISTS trigger_inputs (
			id BIGSERIAL PRIMARY KEY,
			trigger_id BIGINT NOT NULL REFERENCES triggers(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			UNIQUE(trigger_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS trigger_outputs (
			id BIGSERIAL PRIMARY KEY,
			trigger_id BIGINT NOT NULL REFERENCES triggers(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL DEFAULT 'text/plain',
			example_value TEXT NOT NULL DEFAULT '',
			UNIQUE(trigger_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS actions (
			id BIGSERIAL PRIMARY KEY,
			channel_id BIGINT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
			action_type INTEGER NOT NULL,
			name TEXT NOT NULL,
			UNIQUE(channel_id, action_type)
		)`,
		`CREATE TABLE IF NOT EXISTS action_inputs (
			id BIGSERIAL PRIMARY KEY,
			action_id BIGINT NOT NULL REFERENCES actions(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			mime_type TEXT NOT NULL DEFAULT 'text/plain',
			UNIQUE(action_id, name)
		)`,
		`CREATE TABLE IF NOT EXISTS recipes (
			id BIGSERIAL PRIMARY KEY,
			trigger_id BIGINT NOT NULL REFERENCES triggers(id) ON DELETE CASCADE,
			action_id BIGINT NOT NULL REFERENCES actions(id) ON DELETE CASCADE,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			synopsis TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS recipe_conditions (
			id BIGSERIAL PRIMARY KEY,
			recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
			trigger_input_id BIGINT NOT NULL REFERENCES trigger_inputs(id) ON DELETE CASCADE,
			value TEXT NOT NULL,
			UNIQUE(recipe_id, trigger_input_id)
		)`,
		`CREATE TABLE IF NOT EXISTS recipe_mappings (
			id BIGSERIAL PRIMARY KEY,
			recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
			action_input_id BIGINT NOT NULL REFERENCES action_inputs(id) ON DELETE CASCADE,
			template TEXT NOT NULL DEFAULT '',
			UNIQUE(recipe_id, action_input_id)
		)`,
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			channel_name TEXT NOT NULL,
			identifier TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL DEFAULT '',
			access_secret TEXT NOT NULL DEFAULT '',
			extra TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT NOW(),
			UNIQUE(user_id, channel_name)
		)`,
		`CREATE TABLE IF NOT EXISTS clock_settings (
			user_id BIGINT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			utc_offset INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS rss_feeds (
			id BIGSERIAL PRIMARY KEY,
			feed_url TEXT NOT NULL UNIQUE,
			last_modified TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recipes_user ON recipes(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_recipes_trigger ON recipes(trigger_id)`,
		`CREATE INDEX IF NOT EXISTS idx_conditions_value ON recipe_conditions(value)`,
	}

	for _, query := range queries {
		if _, err := a.db.Exec(query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Users

func (a *Adapter) CreateUser(user *storage.User) error {
	err := a.db.QueryRow(
		`INSERT INTO users (username, email) VALUES ($1, $2) RETURNING id`,
		user.Username, user.Email).Scan(&user.ID)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (a *Adapter) GetUser(id int64) (*storage.User, error) {
	user := &storage.User{}
	err := a.db.QueryRow(
		`SELECT id, username, email, created_at FROM users WHERE id = $1`, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (a *Adapter) GetUserByUsername(username string) (*storage.User, error) {
	user := &storage.User{}
	err := a.db.QueryRow(
		`SELECT id, username, email, created_at FROM users WHERE username = $1`, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Channel catalog

func (a *Adapter) CreateChannel(channel *storage.Channel) error {
	err := a.db.QueryRow(
		`INSERT INTO channels (name, color, image, font_color)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		channel.Name, channel.Color, channel.Image, channel.FontColor).Scan(&channel.ID)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

func (a *Adapter) GetChannel(id int64) (*storage.Channel, error) {
	return a.scanChannel(a.db.QueryRow(
		`SELECT id, name, color, image, font_color FROM channels WHERE id = $1`, id))
}

func (a *Adapter) GetChannelByName(name string) (*storage.Channel, error) {
	return a.scanChannel(a.db.QueryRow(
		`SELECT id, name, color, image, font_color FROM channels
		 WHERE LOWER(name) = LOWER($1)`, name))
}

func (a *Adapter) GetChannels() ([]*storage.Channel, error) {
	rows, err := a.db.Query(`SELECT id, name, color, image, font_color FROM channels ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*storage.Channel
	for rows.Next() {
		channel := &storage.Channel{}
		if err := rows.Scan(&channel.ID, &channel.Name, &channel.Color,
			&channel.Image, &channel.FontColor); err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

func (a *Adapter) scanChannel(row *sql.Row) (*storage.Channel, error) {
	channel := &storage.Channel{}
	err := row.Scan(&channel.ID, &channel.Name, &channel.Color,
		&channel.Image, &channel.FontColor)
	if err != nil {
		return nil, err
	}
	return channel, nil
}

// Triggers

func (a *Adapter) CreateTrigger(trigger *storage.Trigger) error {
	err := a.db.QueryRow(
		`INSERT INTO triggers (channel_id, trigger_type, name)
		 VALUES ($1, $2, $3) RETURNING id`,
		trigger.ChannelID, trigger.TriggerType, trigger.Name).Scan(&trigger.ID)
	if err != nil {
		return fmt.Errorf("failed to create trigger: %w", err)
	}
	return nil
}

func (a *Adapter) GetTrigger(id int64) (*storage.Trigger, error) {
	trigger := &storage.Trigger{}
	err := a.db.QueryRow(
		`SELECT id, channel_id, trigger_type, name FROM triggers WHERE id = $1`, id).
		Scan(&trigger.ID, &trigger.ChannelID, &trigger.TriggerType, &trigger.Name)
	if err != nil {
		return nil, err
	}
	return trigger, nil
}

func (a *Adapter) GetTriggerByType(channelID int64, triggerType int) (*storage.Trigger, error) {
	trigger := &storage.Trigger{}
	err := a.db.QueryRow(
		`SELECT id, channel_id, trigger_type, name FROM triggers
		 WHERE channel_id = $1 AND trigger_type = $2`, channelID, triggerType).
		Scan(&trigger.ID, &trigger.ChannelID, &trigger.TriggerType, &trigger.Name)
	if err != nil {
		return nil, err
	}
	return trigger, nil
}

func (a *Adapter) CreateTriggerInput(input *storage.TriggerInput) error {
	err := a.db.QueryRow(
		`INSERT INTO trigger_inputs (trigger_id, name) VALUES ($1, $2) RETURNING id`,
		input.TriggerID, input.Name).Scan(&input.ID)
	if err != nil {
		return fmt.Errorf("failed to create trigger input: %w", err)
	}
	return nil
}

func (a *Adapter) GetTriggerInputs(triggerID int64) ([]*storage.TriggerInput, error) {
	rows, err := a.db.Query(
		`SELECT id, trigger_id, name FROM trigger_inputs WHERE trigger_id = $1 ORDER BY id`,
		triggerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inputs []*storage.TriggerInput
	for rows.Next() {
		input := &storage.TriggerInput{}
		if err := rows.Scan(&input.ID, &input.TriggerID, &input.Name); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, rows.Err()
}

func (a *Adapter) CreateTriggerOutput(output *storage.TriggerOutput) error {
	err := a.db.QueryRow(
		`INSERT INTO trigger_outputs (trigger_id, name, mime_type, example_value)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		output.TriggerID, output.Name, output.MimeType, output.ExampleValue).Scan(&output.ID)
	if err != nil {
		return fmt.Errorf("failed to create trigger output: %w", err)
	}
	return nil
}

func (a *Adapter) GetTriggerOutputs(triggerID int64) ([]*storage.TriggerOutput, error) {
	rows, err := a.db.Query(
		`SELECT id, trigger_id, name, mime_type, example_value
		 FROM trigger_outputs WHERE trigger_id = $1 ORDER BY id`, triggerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outputs []*storage.TriggerOutput
	for rows.Next() {
		output := &storage.TriggerOutput{}
		if err := rows.Scan(&output.ID, &output.TriggerID, &output.Name,
			&output.MimeType, &output.ExampleValue); err != nil {
			return nil, err
		}
		outputs = append(outputs, output)
	}
	return outputs, rows.Err()
}

// Actions

func (a *Adapter) CreateAction(action *storage.Action) error {
	err := a.db.QueryRow(
		`INSERT INTO actions (channel_id, action_type, name)
		 VALUES ($1, $2, $3) RETURNING id`,
		action.ChannelID, action.ActionType, action.Name).Scan(&action.ID)
	if err != nil {
		return fmt.Errorf("failed to create action: %w", err)
	}
	return nil
}

func (a *Adapter) GetAction(id int64) (*storage.Action, error) {
	action := &storage.Action{}
	err := a.db.QueryRow(
		`SELECT id, channel_id, action_type, name FROM actions WHERE id = $1`, id).
		Scan(&action.ID, &action.ChannelID, &action.ActionType, &action.Name)
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (a *Adapter) GetActionByType(channelID int64, actionType int) (*storage.Action, error) {
	action := &storage.Action{}
	err := a.db.QueryRow(
		`SELECT id, channel_id, action_type, name FROM actions
		 WHERE channel_id = $1 AND action_type = $2`, channelID, actionType).
		Scan(&action.ID, &action.ChannelID, &action.ActionType, &action.Name)
	if err != nil {
		return nil, err
	}
	return action, nil
}

func (a *Adapter) CreateActionInput(input *storage.ActionInput) error {
	err := a.db.QueryRow(
		`INSERT INTO action_inputs (action_id, name, mime_type)
		 VALUES ($1, $2, $3) RETURNING id`,
		input.ActionID, input.Name, input.MimeType).Scan(&input.ID)
	if err != nil {
		return fmt.Errorf("failed to create action input: %w", err)
	}
	return nil
}

func (a *Adapter) GetActionInputs(actionID int64) ([]*storage.ActionInput, error) {
	rows, err := a.db.Query(
		`SELECT id, action_id, name, mime_type FROM action_inputs
		 WHERE action_id = $1 ORDER BY id`, actionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var inputs []*storage.ActionInput
	for rows.Next() {
		input := &storage.ActionInput{}
		if err := rows.Scan(&input.ID, &input.ActionID, &input.Name, &input.MimeType); err != nil {
			return nil, err
		}
		inputs = append(inputs, input)
	}
	return inputs, rows.Err()
}

// Recipes

func (a *Adapter) CreateRecipe(recipe *storage.Recipe) error {
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}
	err := a.db.QueryRow(
		`INSERT INTO recipes (trigger_id, action_id, user_id, synopsis, created_at)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		recipe.TriggerID, recipe.ActionID, recipe.UserID, recipe.Synopsis,
		recipe.CreatedAt).Scan(&recipe.ID)
	if err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

func (a *Adapter) GetRecipe(id int64) (*storage.Recipe, error) {
	recipe := &storage.Recipe{}
	err := a.db.QueryRow(
		`SELECT r.id, r.trigger_id, r.action_id, r.user_id, r.synopsis, r.created_at,
		        a.action_type, c.name
		 FROM recipes r
		 JOIN actions a ON a.id = r.action_id
		 JOIN channels c ON c.id = a.channel_id
		 WHERE r.id = $1`, id).
		Scan(&recipe.ID, &recipe.TriggerID, &recipe.ActionID, &recipe.UserID,
			&recipe.Synopsis, &recipe.CreatedAt, &recipe.ActionType, &recipe.ActionChannel)
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func (a *Adapter) GetMatchingRecipes(userID, channelID int64, triggerType int) ([]*storage.Recipe, error) {
	rows, err := a.db.Query(
		`SELECT r.id, r.trigger_id, r.action_id, r.user_id, r.synopsis, r.created_at,
		        t.trigger_type, a.action_type, c.name
		 FROM recipes r
		 JOIN triggers t ON t.id = r.trigger_id
		 JOIN actions a ON a.id = r.action_id
		 JOIN channels c ON c.id = a.channel_id
		 WHERE r.user_id = $1 AND t.channel_id = $2 AND t.trigger_type = $3`,
		userID, channelID, triggerType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecipes(rows)
}

func (a *Adapter) GetRecipesByTriggerChannel(channelName string) ([]*storage.Recipe, error) {
	rows, err := a.db.Query(
		`SELECT r.id, r.trigger_id, r.action_id, r.user_id, r.synopsis, r.created_at,
		        t.trigger_type, a.action_type, ac.name
		 FROM recipes r
		 JOIN triggers t ON t.id = r.trigger_id
		 JOIN channels tc ON tc.id = t.channel_id
		 JOIN actions a ON a.id = r.action_id
		 JOIN channels ac ON ac.id = a.channel_id
		 WHERE LOWER(tc.name) = LOWER($1)`, channelName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecipes(rows)
}

func scanRecipes(rows *sql.Rows) ([]*storage.Recipe, error) {
	var recipes []*storage.Recipe
	for rows.Next() {
		recipe := &storage.Recipe{}
		if err := rows.Scan(&recipe.ID, &recipe.TriggerID, &recipe.ActionID,
			&recipe.UserID, &recipe.Synopsis, &recipe.CreatedAt,
			&recipe.TriggerType, &recipe.ActionType, &recipe.ActionChannel); err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

func (a *Adapter) CreateRecipeCondition(condition *storage.RecipeCondition) error {
	err := a.db.QueryRow(
		`INSERT INTO recipe_conditions (recipe_id, trigger_input_id, value)
		 VALUES ($1, $2, $3) RETURNING id`,
		condition.RecipeID, condition.TriggerInputID, condition.Value).Scan(&condition.ID)
	if err != nil {
		return fmt.Errorf("failed to create recipe condition: %w", err)
	}
	return nil
}

func (a *Adapter) GetRecipeConditions(recipeID int64) ([]*storage.RecipeCondition, error) {
	rows, err := a.db.Query(
		`SELECT rc.id, rc.recipe_id, rc.trigger_input_id, rc.value, ti.name
		 FROM recipe_conditions rc
		 JOIN trigger_inputs ti ON ti.id = rc.trigger_input_id
		 WHERE rc.recipe_id = $1`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conditions []*storage.RecipeCondition
	for rows.Next() {
		condition := &storage.RecipeCondition{}
		if err := rows.Scan(&condition.ID, &condition.RecipeID,
			&condition.TriggerInputID, &condition.Value,
			&condition.TriggerInputName); err != nil {
			return nil, err
		}
		conditions = append(conditions, condition)
	}
	return conditions, rows.Err()
}

func (a *Adapter) GetConditionSubscribers(value string) ([]*storage.ConditionSubscriber, error) {
	rows, err := a.db.Query(
		`SELECT r.user_id, t.trigger_type
		 FROM recipe_conditions rc
		 JOIN recipes r ON r.id = rc.recipe_id
		 JOIN triggers t ON t.id = r.trigger_id
		 WHERE rc.value = $1`, value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subscribers []*storage.ConditionSubscriber
	for rows.Next() {
		subscriber := &storage.ConditionSubscriber{}
		if err := rows.Scan(&subscriber.UserID, &subscriber.TriggerType); err != nil {
			return nil, err
		}
		subscribers = append(subscribers, subscriber)
	}
	return subscribers, rows.Err()
}

func (a *Adapter) CreateRecipeMapping(mapping *storage.RecipeMapping) error {
	err := a.db.QueryRow(
		`INSERT INTO recipe_mappings (recipe_id, action_input_id, template)
		 VALUES ($1, $2, $3) RETURNING id`,
		mapping.RecipeID, mapping.ActionInputID, mapping.Template).Scan(&mapping.ID)
	if err != nil {
		return fmt.Errorf("failed to create recipe mapping: %w", err)
	}
	return nil
}

func (a *Adapter) GetRecipeMappings(recipeID int64) ([]*storage.RecipeMapping, error) {
	rows, err := a.db.Query(
		`SELECT rm.id, rm.recipe_id, rm.action_input_id, rm.template, ai.name
		 FROM recipe_mappings rm
		 JOIN action_inputs ai ON ai.id = rm.action_input_id
		 WHERE rm.recipe_id = $1`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var mappings []*storage.RecipeMapping
	for rows.Next() {
		mapping := &storage.RecipeMapping{}
		if err := rows.Scan(&mapping.ID, &mapping.RecipeID,
			&mapping.ActionInputID, &mapping.Template,
			&mapping.ActionInputName); err != nil {
			return nil, err
		}
		mappings = append(mappings, mapping)
	}
	return mappings, rows.Err()
}

// Accounts

func (a *Adapter) SaveAccount(account *storage.Account) error {
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	err := a.db.QueryRow(
		`INSERT INTO accounts (user_id, channel_name, identifier, access_token, access_secret, extra, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, channel_name) DO UPDATE SET
		   identifier = EXCLUDED.identifier,
		   access_token = EXCLUDED.access_token,
		   access_secret = EXCLUDED.access_secret,
		   extra = EXCLUDED.extra
		 RETURNING id`,
		account.UserID, account.ChannelName, account.Identifier,
		account.AccessToken, account.AccessSecret, account.Extra,
		account.CreatedAt).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (a *Adapter) GetAccount(userID int64, channelName string) (*storage.Account, error) {
	return a.scanAccount(a.db.QueryRow(
		`SELECT id, user_id, channel_name, identifier, access_token, access_secret, extra, created_at
		 FROM accounts WHERE user_id = $1 AND channel_name = $2`, userID, channelName))
}

func (a *Adapter) GetAccountByIdentifier(channelName, identifier string) (*storage.Account, error) {
	return a.scanAccount(a.db.QueryRow(
		`SELECT id, user_id, channel_name, identifier, access_token, access_secret, extra, created_at
		 FROM accounts WHERE channel_name = $1 AND identifier = $2`, channelName, identifier))
}

func (a *Adapter) DeleteAccount(userID int64, channelName string) error {
	_, err := a.db.Exec(
		`DELETE FROM accounts WHERE user_id = $1 AND channel_name = $2`, userID, channelName)
	return err
}

func (a *Adapter) scanAccount(row *sql.Row) (*storage.Account, error) {
	account := &storage.Account{}
	err := row.Scan(&account.ID, &account.UserID, &account.ChannelName,
		&account.Identifier, &account.AccessToken, &account.AccessSecret,
		&account.Extra, &account.CreatedAt)
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Clock settings

func (a *Adapter) SaveClockSettings(settings *storage.ClockSettings) error {
	_, err := a.db.Exec(
		`INSERT INTO clock_settings (user_id, utc_offset) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET utc_offset = EXCLUDED.utc_offset`,
		settings.UserID, settings.UTCOffset)
	if err != nil {
		return fmt.Errorf("failed to save clock settings: %w", err)
	}
	return nil
}

func (a *Adapter) GetClockSettings(userID int64) (*storage.ClockSettings, error) {
	settings := &storage.ClockSettings{}
	err := a.db.QueryRow(
		`SELECT user_id, utc_offset FROM clock_settings WHERE user_id = $1`, userID).
		Scan(&settings.UserID, &settings.UTCOffset)
	if err != nil {
		return nil, err
	}
	return settings, nil
}

// RSS feeds

func (a *Adapter) SaveRSSFeed(feed *storage.RSSFeed) error {
	err := a.db.QueryRow(
		`INSERT INTO rss_feeds (feed_url, last_modified) VALUES ($1, $2)
		 ON CONFLICT (feed_url) DO UPDATE SET last_modified = EXCLUDED.last_modified
		 RETURNING id`,
		feed.FeedURL, feed.LastModified).Scan(&feed.ID)
	if err != nil {
		return fmt.Errorf("failed to save rss feed: %w", err)
	}
	return nil
}

func (a *Adapter) GetRSSFeed(feedURL string) (*storage.RSSFeed, error) {
	feed := &storage.RSSFeed{}
	err := a.db.QueryRow(
		`SELECT id, feed_url, last_modified FROM rss_feeds WHERE feed_url = $1`, feedURL).
		Scan(&feed.ID, &feed.FeedURL, &feed.LastModified)
	if err != nil {
		return nil, err
	}
	return feed, nil
}

func (a *Adapter) GetRSSFeeds() ([]*storage.RSSFeed, error) {
	rows, err := a.db.Query(`SELECT id, feed_url, last_modified FROM rss_feeds ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feeds []*storage.RSSFeed
	for rows.Next() {
		feed := &storage.RSSFeed{}
		if err := rows.Scan(&feed.ID, &feed.FeedURL, &feed.LastModified); err != nil {
			return nil, err
		}
		feeds = append(feeds, feed)
	}
	return feeds, rows.Err()
}
