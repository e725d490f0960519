package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daisychain/internal/channels"
	"daisychain/internal/storage"
	"daisychain/internal/testutil"
)

// Wednesday, 21 September 2016, 15:30:00 UTC.
var wednesdayAfternoon = time.Date(2016, 9, 21, 15, 30, 0, 0, time.UTC)

func newTestChannel(t *testing.T, utcOffset int, now time.Time) (*Channel, int64) {
	t.Helper()

	store := testutil.NewMemoryStorage()
	user := &storage.User{Username: "alice"}
	require.NoError(t, store.CreateUser(user))
	require.NoError(t, store.SaveClockSettings(&storage.ClockSettings{
		UserID:    user.ID,
		UTCOffset: utcOffset,
	}))

	channel := NewChannel(store)
	channel.now = func() time.Time { return now }
	return channel, user.ID
}

func TestFillRecipeMappingsEveryWeekday(t *testing.T) {
	tests := []struct {
		name       string
		conditions map[string]string
		wantErr    error
	}{
		{
			name:       "matching weekday and time",
			conditions: map[string]string{"Time": "15:30", "Weekdays": "1,2"},
		},
		{
			name:       "weekday not in list",
			conditions: map[string]string{"Time": "15:30", "Weekdays": "1,3,5"},
			wantErr:    channels.ErrConditionNotMet,
		},
		{
			name:       "wrong time",
			conditions: map[string]string{"Time": "15:31", "Weekdays": "1,2"},
			wantErr:    channels.ErrConditionNotMet,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			channel, userID := newTestChannel(t, 0, wednesdayAfternoon)

			result, err := channel.FillRecipeMappings(context.Background(),
				TriggerEveryWeekday, userID, nil, tt.conditions,
				map[string]interface{}{"status": "it happened at %time%"})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "it happened at 15:30:00", result["status"])
		})
	}
}

func TestFillRecipeMappingsEveryHour(t *testing.T) {
	channel, userID := newTestChannel(t, 0, wednesdayAfternoon)

	result, err := channel.FillRecipeMappings(context.Background(),
		TriggerEveryHour, userID, nil,
		map[string]string{"Minutes": "30"},
		map[string]interface{}{"body": "%date%"})
	require.NoError(t, err)
	assert.Equal(t, "09/21/16", result["body"])

	_, err = channel.FillRecipeMappings(context.Background(),
		TriggerEveryHour, userID, nil,
		map[string]string{"Minutes": "45"}, nil)
	assert.ErrorIs(t, err, channels.ErrConditionNotMet)
}

func TestFillRecipeMappingsEveryDay(t *testing.T) {
	channel, userID := newTestChannel(t, 0, wednesdayAfternoon)

	result, err := channel.FillRecipeMappings(context.Background(),
		TriggerEveryDay, userID, nil,
		map[string]string{"Time": "15:30"},
		map[string]interface{}{"text": "%date% %time%", "n": 1})
	require.NoError(t, err)
	assert.Equal(t, "09/21/16 15:30:00", result["text"])
	assert.Equal(t, 1, result["n"])
}

func TestFillRecipeMappingsEveryMonthAndYear(t *testing.T) {
	channel, userID := newTestChannel(t, 0, wednesdayAfternoon)

	_, err := channel.FillRecipeMappings(context.Background(),
		TriggerEveryMonth, userID, nil,
		map[string]string{"Time": "15:30", "Day": "21"}, nil)
	assert.NoError(t, err)

	_, err = channel.FillRecipeMappings(context.Background(),
		TriggerEveryMonth, userID, nil,
		map[string]string{"Time": "15:30", "Day": "22"}, nil)
	assert.ErrorIs(t, err, channels.ErrConditionNotMet)

	_, err = channel.FillRecipeMappings(context.Background(),
		TriggerEveryYear, userID, nil,
		map[string]string{"Time": "15:30", "Date": "09-21"}, nil)
	assert.NoError(t, err)

	_, err = channel.FillRecipeMappings(context.Background(),
		TriggerEveryYear, userID, nil,
		map[string]string{"Time": "15:30", "Date": "12-24"}, nil)
	assert.ErrorIs(t, err, channels.ErrConditionNotMet)
}

func TestFillRecipeMappingsHonorsUTCOffset(t *testing.T) {
	// Offset +120 minutes shifts the user's clock to 17:30.
	channel, userID := newTestChannel(t, 120, wednesdayAfternoon)

	_, err := channel.FillRecipeMappings(context.Background(),
		TriggerEveryDay, userID, nil,
		map[string]string{"Time": "17:30"}, nil)
	assert.NoError(t, err)

	_, err = channel.FillRecipeMappings(context.Background(),
		TriggerEveryDay, userID, nil,
		map[string]string{"Time": "15:30"}, nil)
	assert.ErrorIs(t, err, channels.ErrConditionNotMet)
}

func TestFillRecipeMappingsUnknownTrigger(t *testing.T) {
	channel, userID := newTestChannel(t, 0, wednesdayAfternoon)

	_, err := channel.FillRecipeMappings(context.Background(),
		42, userID, nil, map[string]string{}, nil)
	assert.ErrorIs(t, err, channels.ErrNotSupportedTrigger)
}

func TestHandleActionUnsupported(t *testing.T) {
	channel, userID := newTestChannel(t, 0, wednesdayAfternoon)

	err := channel.HandleAction(context.Background(), 1, userID, nil)
	assert.ErrorIs(t, err, channels.ErrNotSupportedAction)
}

func TestUserIsConnected(t *testing.T) {
	channel, userID := newTestChannel(t, 0, wednesdayAfternoon)

	state, err := channel.UserIsConnected(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionConnected, state)

	state, err = channel.UserIsConnected(context.Background(), userID+1)
	require.NoError(t, err)
	assert.Equal(t, channels.ConnectionInitial, state)
}

func TestTriggerSynopsis(t *testing.T) {
	channel := NewChannel(testutil.NewMemoryStorage())

	tests := []struct {
		triggerType int
		conditions  map[string]string
		want        string
	}{
		{TriggerEveryHour, map[string]string{"Minutes": "15"},
			"it is 15 minutes after the full hour"},
		{TriggerEveryDay, map[string]string{"Time": "8:00"},
			"it is 8:00 on any day"},
		{TriggerEveryWeekday, map[string]string{"Time": "8:00", "Weekdays": "0"},
			"it is 8:00 on Monday"},
		{TriggerEveryWeekday, map[string]string{"Time": "8:00", "Weekdays": "0,2,4"},
			"it is 8:00 on Monday, Wednesday or Friday"},
		{TriggerEveryMonth, map[string]string{"Time": "8:00", "Day": "3"},
			"it is 8:00 on the 3rd of the month"},
		{TriggerEveryYear, map[string]string{"Time": "8:00", "Date": "12-24"},
			"it is 8:00 on 12-24"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, channel.TriggerSynopsis(tt.triggerType, tt.conditions))
	}
}
