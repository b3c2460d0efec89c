package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"nexus/internal/bus"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSubscriber records which topics the router attached to.
type fakeSubscriber struct {
	topics []bus.Topic
}

func (f *fakeSubscriber) Subscribe(_ context.Context, topic bus.Topic, _ bus.Handler) error {
	f.topics = append(f.topics, topic)
	return nil
}

func decodeFrame(t *testing.T, raw []byte) clientFrame {
	t.Helper()
	var frame clientFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	return frame
}

func TestRouterStartSubscribesEveryTopic(t *testing.T) {
	sub := &fakeSubscriber{}
	router := NewRouter(NewRegistry(nil))

	require.NoError(t, router.Start(context.Background(), sub))
	assert.ElementsMatch(t, bus.AllTopics(), sub.topics)
}

func TestRouteUserScope(t *testing.T) {
	reg := NewRegistry(nil)
	router := NewRouter(reg)

	target, err := reg.Register(5, nil)
	require.NoError(t, err)
	bystander, err := reg.Register(6, nil)
	require.NoError(t, err)

	require.NoError(t, router.Route(context.Background(), bus.Event{
		Type:    bus.EventRoleUpdate,
		Scope:   bus.ScopeUser,
		UserID:  5,
		Title:   "Role Updated",
		Message: "You are now a moderator",
	}))

	frame := decodeFrame(t, recvFrame(t, target))
	assert.Equal(t, bus.EventRoleUpdate, frame.Type)
	assertNoFrame(t, bystander)
}

func TestRouteNetworkScope(t *testing.T) {
	reg := NewRegistry(nil)
	router := NewRouter(reg)

	inRoom, err := reg.Register(1, nil)
	require.NoError(t, err)
	outside, err := reg.Register(2, nil)
	require.NoError(t, err)
	reg.JoinNetworks(context.Background(), inRoom, []uint{30})

	require.NoError(t, router.Route(context.Background(), bus.Event{
		Type:      bus.EventMemberJoined,
		Scope:     bus.ScopeNetwork,
		NetworkID: 30,
		Data:      map[string]interface{}{"user_id": float64(9)},
	}))

	frame := decodeFrame(t, recvFrame(t, inRoom))
	assert.Equal(t, bus.EventMemberJoined, frame.Type)
	assertNoFrame(t, outside)
}

func TestRouteAdminScope(t *testing.T) {
	reg := NewRegistry(func(_ context.Context, _, userID uint) (bool, error) {
		return userID == 100, nil
	})
	router := NewRouter(reg)

	admin, err := reg.Register(100, nil)
	require.NoError(t, err)
	member, err := reg.Register(200, nil)
	require.NoError(t, err)

	ctx := context.Background()
	reg.JoinNetworks(ctx, admin, []uint{44})
	reg.JoinNetworks(ctx, member, []uint{44})

	require.NoError(t, router.Route(ctx, bus.Event{
		Type:      bus.EventJoinRequestCreated,
		Scope:     bus.ScopeNetworkAdmins,
		NetworkID: 44,
	}))

	frame := decodeFrame(t, recvFrame(t, admin))
	assert.Equal(t, bus.EventJoinRequestCreated, frame.Type)
	assertNoFrame(t, member)
}

func TestRouteBroadcastScope(t *testing.T) {
	reg := NewRegistry(nil)
	router := NewRouter(reg)

	c1, err := reg.Register(1, nil)
	require.NoError(t, err)
	c2, err := reg.Register(2, nil)
	require.NoError(t, err)

	require.NoError(t, router.Route(context.Background(), bus.Event{
		Type:   bus.EventUserStatus,
		Scope:  bus.ScopeBroadcast,
		UserID: 1,
		Data:   map[string]interface{}{"status": "online"},
	}))

	assert.Equal(t, bus.EventUserStatus, decodeFrame(t, recvFrame(t, c1)).Type)
	assert.Equal(t, bus.EventUserStatus, decodeFrame(t, recvFrame(t, c2)).Type)
}

func TestRouteUnknownScopeIsDropped(t *testing.T) {
	reg := NewRegistry(nil)
	router := NewRouter(reg)

	c, err := reg.Register(1, nil)
	require.NoError(t, err)

	require.NoError(t, router.Route(context.Background(), bus.Event{
		Type:  "mystery",
		Scope: "galaxy",
	}))
	assertNoFrame(t, c)
}
