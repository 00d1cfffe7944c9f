package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ratingsite/db"
	"ratingsite/models"
)

const testPassword = "Abcdef1!"

type testEnv struct {
	store   *db.Store
	creds   *Credentials
	users   *UserService
	friends *FriendService
	ratings *RatingService
	info    *InfoService
	cache   *memoryFriendCache
	events  *recordingPublisher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := db.OpenSQLite("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := zap.NewNop()
	env := &testEnv{
		store:  store,
		creds:  NewCredentials("test-secret", time.Hour),
		cache:  newMemoryFriendCache(),
		events: &recordingPublisher{},
	}
	env.users = NewUserService(store, env.creds, log)
	env.friends = NewFriendService(store, env.users, env.cache, env.events, log)
	env.ratings = NewRatingService(store, env.users, log)
	env.info = NewInfoService(env.users, env.friends, env.ratings)
	return env
}

func registrationFor(nickname string) RegistrationData {
	return RegistrationData{
		Nickname:  nickname,
		Email:     nickname + "@x.com",
		Password1: testPassword,
		Password2: testPassword,
		FirstName: "Test",
		LastName:  "User",
	}
}

// register регистрирует пользователя и возвращает его id
func (e *testEnv) register(t *testing.T, nickname string) int64 {
	t.Helper()
	_, err := e.users.Register(context.Background(), registrationFor(nickname))
	require.NoError(t, err)
	user, err := e.users.GetByNickname(context.Background(), nickname)
	require.NoError(t, err)
	return user.ID
}

func (e *testEnv) addFriend(t *testing.T, owner, target int64) {
	t.Helper()
	require.NoError(t, e.friends.AddFriend(context.Background(), owner, &target))
}

func nicknames(users []models.PublicUser) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Nickname)
	}
	return out
}

func randomNickname() string {
	return fmt.Sprintf("%s_%s", strings.ToLower(gofakeit.Letter()+gofakeit.Letter()), gofakeit.Numerify("######"))
}

type memoryFriendCache struct {
	mu          sync.Mutex
	entries     map[int64][]models.PublicUser
	invalidated []int64
}

func newMemoryFriendCache() *memoryFriendCache {
	return &memoryFriendCache{entries: make(map[int64][]models.PublicUser)}
}

func (c *memoryFriendCache) Get(_ context.Context, userID int64) ([]models.PublicUser, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	friends, ok := c.entries[userID]
	return friends, ok
}

func (c *memoryFriendCache) Set(_ context.Context, userID int64, friends []models.PublicUser) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = friends
}

func (c *memoryFriendCache) Invalidate(_ context.Context, userIDs ...int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range userIDs {
		delete(c.entries, id)
		c.invalidated = append(c.invalidated, id)
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []FriendEvent
}

func (p *recordingPublisher) PublishFriendEvent(_ context.Context, event FriendEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}
