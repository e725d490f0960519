package channels

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	BaseChannel
}

func (s *stubChannel) FillRecipeMappings(ctx context.Context, triggerType int, userID int64,
	payload Payload, conditions map[string]string,
	mappings map[string]interface{}) (map[string]interface{}, error) {
	return mappings, nil
}

func (s *stubChannel) HandleAction(ctx context.Context, actionType int, userID int64,
	inputs map[string]interface{}) error {
	return nil
}

func (s *stubChannel) UserIsConnected(ctx context.Context, userID int64) (ConnectionState, error) {
	return ConnectionUnnecessary, nil
}

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubChannel{BaseChannel{ChannelName: "Github"}}))

	for _, name := range []string{"Github", "github", "GITHUB", "gItHuB"} {
		channel, err := registry.Get(name)
		require.NoError(t, err, name)
		assert.Equal(t, "Github", channel.Name())
	}
}

func TestRegistryUnknownChannel(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("hue")
	assert.Error(t, err)
	assert.False(t, registry.IsRegistered("hue"))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubChannel{BaseChannel{ChannelName: "Clock"}}))

	err := registry.Register(&stubChannel{BaseChannel{ChannelName: "clock"}})
	assert.Error(t, err)
	assert.Equal(t, 1, registry.Count())
}

func TestBaseChannelSynopses(t *testing.T) {
	base := &BaseChannel{ChannelName: "Clock"}

	assert.Equal(t, "If trigger of channel Clock fires", base.TriggerSynopsis(1, nil))
	assert.Equal(t, "then perform action of channel Clock", base.ActionSynopsis(1, nil))
}

func TestConnectionStateString(t *testing.T) {
	assert.Equal(t, "unnecessary", ConnectionUnnecessary.String())
	assert.Equal(t, "initial", ConnectionInitial.String())
	assert.Equal(t, "connected", ConnectionConnected.String())
	assert.Equal(t, "expired", ConnectionExpired.String())
	assert.Equal(t, "unknown", ConnectionState(99).String())
}
