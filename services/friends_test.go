package services

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ratingsite/models"
)

func TestMutualFriendsRequireBothEdges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	env.addFriend(t, bob, alice)

	friends, err := env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, friends)
	friends, err = env.friends.MutualFriendsOf(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, friends)

	env.addFriend(t, alice, bob)

	friends, err = env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, nicknames(friends))
	friends, err = env.friends.MutualFriendsOf(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, nicknames(friends))
}

func TestMutualFriendsIntersection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	dave := env.register(t, "dave")

	// alice <-> bob, alice <-> carol, alice -> dave only
	env.addFriend(t, alice, bob)
	env.addFriend(t, bob, alice)
	env.addFriend(t, alice, carol)
	env.addFriend(t, carol, alice)
	env.addFriend(t, alice, dave)
	env.addFriend(t, carol, dave)

	friends, err := env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	got := nicknames(friends)
	sort.Strings(got)
	assert.Equal(t, []string{"bob", "carol"}, got)

	friends, err = env.friends.MutualFriendsOf(ctx, dave)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestMutualFriendsArePublic(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.addFriend(t, alice, bob)
	env.addFriend(t, bob, alice)

	friends, err := env.friends.MutualFriendsOfNickname(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, models.PublicUser{ID: bob, Nickname: "bob", FirstName: "Test", LastName: "User"}, friends[0])
}

func TestAddFriendNoOps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	require.NoError(t, env.friends.AddFriend(ctx, alice, &alice))
	require.NoError(t, env.friends.AddFriend(ctx, alice, nil))

	var count int64
	require.NoError(t, env.store.ReadOnly(ctx).Model(&models.FriendEdge{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, env.events.events)
}

func TestAddFriendErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	env.addFriend(t, alice, bob)
	assert.ErrorIs(t, env.friends.AddFriend(ctx, alice, &bob), ErrFriendAlreadyAdded)

	missing := bob + 100
	err := env.friends.AddFriend(ctx, alice, &missing)
	assert.ErrorIs(t, err, ErrFriendNotExists)
	assert.True(t, IsClientError(err))
}

func TestMutualFriendsOfUnknownNickname(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.friends.MutualFriendsOfNickname(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddFriendInvalidatesCacheAndPublishes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.friends.reinvalidateDelay = 0
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	friends, err := env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, friends)
	_, cached := env.cache.Get(ctx, alice)
	require.True(t, cached)

	env.addFriend(t, alice, bob)
	env.addFriend(t, bob, alice)
	assert.ElementsMatch(t, []int64{alice, bob, bob, alice}, env.cache.invalidated)

	friends, err = env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, nicknames(friends))

	require.Len(t, env.events.events, 2)
	first := env.events.events[0]
	assert.Equal(t, EventFriendAdded, first.Event)
	assert.Equal(t, alice, first.FromID)
	assert.Equal(t, bob, first.ToID)
}

func TestMutualFriendsExcludeDisabled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.addFriend(t, alice, bob)
	env.addFriend(t, bob, alice)
	require.NoError(t, env.store.Write(ctx).Model(&models.User{}).Where("id = ?", bob).Update("disabled", true).Error)
	env.cache.Invalidate(ctx, alice)

	friends, err := env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, friends)
}

func TestAddFriendClearsListCachedDuringInsert(t *testing.T) {
	env := newTestEnv(t)
	env.friends.reinvalidateDelay = 20 * time.Millisecond
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	env.addFriend(t, bob, alice)

	// чтение до вставки кладет старый список уже после первой очистки
	stale, err := env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	env.addFriend(t, alice, bob)
	env.cache.Set(ctx, alice, stale)

	assert.Eventually(t, func() bool {
		_, cached := env.cache.Get(ctx, alice)
		return !cached
	}, time.Second, 5*time.Millisecond)

	friends, err := env.friends.MutualFriendsOf(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, nicknames(friends))
}

func TestAddFriendWithDeletedOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	require.NoError(t, env.store.Write(ctx).Delete(&models.User{}, alice).Error)

	err := env.friends.AddFriend(ctx, alice, &bob)
	assert.ErrorIs(t, err, ErrUserNotFound)

	missing := int64(9999)
	err = env.friends.AddFriend(ctx, bob, &missing)
	assert.ErrorIs(t, err, ErrFriendNotExists)
}
