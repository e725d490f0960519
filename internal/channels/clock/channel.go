// Package clock implements the time-based trigger channel. A scheduler
// beat fires its triggers every minute; conditions narrow them down to the
// user's configured times, interpreted in the user's UTC offset.
package clock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"daisychain/internal/channels"
	"daisychain/internal/common/errors"
	"daisychain/internal/storage"
)

// ChannelName is the catalog name of this channel.
const ChannelName = "Clock"

// Trigger types.
const (
	TriggerEveryDay = iota + 1
	TriggerEveryHour
	TriggerEveryWeekday
	TriggerEveryMonth
	TriggerEveryYear
)

// Channel implements channels.Channel for Clock. It has no actions.
type Channel struct {
	channels.BaseChannel
	store storage.Storage

	// now is swapped in tests.
	now func() time.Time
}

// NewChannel creates the clock channel.
func NewChannel(store storage.Storage) *Channel {
	return &Channel{
		BaseChannel: channels.BaseChannel{ChannelName: ChannelName},
		store:       store,
		now:         time.Now,
	}
}

func (c *Channel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload channels.Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {

	settings, err := c.store.GetClockSettings(userID)
	if err != nil {
		return nil, errors.InternalError("clock settings missing for user", err)
	}

	userZone := time.FixedZone("user", settings.UTCOffset*60)
	now := c.now().In(userZone)

	// Hour is unpadded, minute is zero-padded ("9:05", "15:30").
	timeForCondition := fmt.Sprintf("%d:%02d", now.Hour(), now.Minute())

	switch triggerType {
	case TriggerEveryHour:
		minutes, err := strconv.Atoi(conditions["Minutes"])
		if err != nil || minutes != now.Minute() {
			return nil, channels.ErrConditionNotMet
		}

	case TriggerEveryDay, TriggerEveryWeekday, TriggerEveryMonth, TriggerEveryYear:
		if conditions["Time"] != timeForCondition {
			return nil, channels.ErrConditionNotMet
		}

		switch triggerType {
		case TriggerEveryWeekday:
			if !containsWeekday(conditions["Weekdays"], now.Weekday()) {
				return nil, channels.ErrConditionNotMet
			}
		case TriggerEveryMonth:
			if conditions["Day"] != strconv.Itoa(now.Day()) {
				return nil, channels.ErrConditionNotMet
			}
		case TriggerEveryYear:
			if conditions["Date"] != now.Format("01-02") {
				return nil, channels.ErrConditionNotMet
			}
		}

	default:
		return nil, channels.NotSupportedTrigger(ChannelName, triggerType)
	}

	outputs := map[string]string{
		"date": now.Format("01/02/06"),
		"time": now.Format("15:04:05"),
	}
	return channels.ReplaceTextMappings(mappings, outputs), nil
}

// containsWeekday checks a comma-separated weekday list. Days are numbered
// Monday=0 through Sunday=6.
func containsWeekday(list string, weekday time.Weekday) bool {
	day := strconv.Itoa((int(weekday) + 6) % 7)
	for _, entry := range strings.Split(list, ",") {
		if strings.TrimSpace(entry) == day {
			return true
		}
	}
	return false
}

func (c *Channel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {
	return channels.NotSupportedAction(ChannelName, actionType)
}

func (c *Channel) UserIsConnected(ctx context.Context, userID int64) (channels.ConnectionState, error) {
	if _, err := c.store.GetClockSettings(userID); err != nil {
		return channels.ConnectionInitial, nil
	}
	return channels.ConnectionConnected, nil
}

func (c *Channel) TriggerSynopsis(triggerType int, conditions map[string]string) string {
	switch triggerType {
	case TriggerEveryHour:
		return fmt.Sprintf("it is %s minutes after the full hour", conditions["Minutes"])
	case TriggerEveryDay:
		return fmt.Sprintf("it is %s on any day", conditions["Time"])
	case TriggerEveryWeekday:
		return fmt.Sprintf("it is %s on %s", conditions["Time"],
			weekdayListPhrase(conditions["Weekdays"]))
	case TriggerEveryMonth:
		return fmt.Sprintf("it is %s on the %s of the month", conditions["Time"],
			ordinal(conditions["Day"]))
	case TriggerEveryYear:
		return fmt.Sprintf("it is %s on %s", conditions["Time"], conditions["Date"])
	default:
		return c.BaseChannel.TriggerSynopsis(triggerType, conditions)
	}
}

// weekdayListPhrase turns "0,2,4" into "Monday, Wednesday or Friday".
func weekdayListPhrase(list string) string {
	var names []string
	for _, entry := range strings.Split(list, ",") {
		day, err := strconv.Atoi(strings.TrimSpace(entry))
		if err != nil {
			continue
		}
		names = append(names, weekdayName(day))
	}
	if len(names) == 0 {
		return ""
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}

// weekdayName maps Monday=0 through Sunday=6 to English names.
func weekdayName(day int) string {
	return time.Weekday((day + 1) % 7).String()
}

// ordinal renders "1" as "1st", "2" as "2nd" and so on.
func ordinal(value string) string {
	n, err := strconv.Atoi(value)
	if err != nil {
		return value
	}
	suffix := "th"
	if n%100 < 11 || n%100 > 13 {
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
