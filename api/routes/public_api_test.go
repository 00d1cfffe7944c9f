package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ratingsite/api/handlers"
	"ratingsite/db"
	"ratingsite/services"
)

type testAPI struct {
	router *gin.Engine
	creds  *services.Credentials
	conns  *services.WSConnManager
}

func setupRouter(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := db.OpenSQLite("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := zap.NewNop()
	creds := services.NewCredentials("test-secret", time.Hour)
	conns := services.NewWSConnManager()
	notifier := services.NewNotifier(conns, log)
	users := services.NewUserService(store, creds, log)
	friends := services.NewFriendService(store, users, nil, services.LocalPublisher{Handle: notifier.HandleFriendEvent}, log)
	ratings := services.NewRatingService(store, users, log)

	router := gin.New()
	PublicApi(router, &handlers.Handlers{
		Users:   users,
		Friends: friends,
		Ratings: ratings,
		Info:    services.NewInfoService(users, friends, ratings),
		Conns:   conns,
		Log:     log,
	}, creds)
	return &testAPI{router: router, creds: creds, conns: conns}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testAPI) register(t *testing.T, nickname string) (string, int64) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/v1/registration/", "", map[string]string{
		"nickname":   nickname,
		"email":      nickname + "@x.com",
		"password1":  "Abcdef1!",
		"password2":  "Abcdef1!",
		"first_name": strings.ToUpper(nickname[:1]) + nickname[1:],
		"last_name":  "Tester",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handlers.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, ok := a.creds.VerifyToken(resp.JWTToken)
	require.True(t, ok)
	assert.Equal(t, nickname, claims.Nickname)
	return resp.JWTToken, claims.ID
}

type friendsResponse struct {
	Friends []struct {
		ID       int64  `json:"id"`
		Nickname string `json:"nickname"`
	} `json:"friends"`
}

func (a *testAPI) friendsOf(t *testing.T, nickname string) []string {
	t.Helper()
	w := a.do(t, http.MethodGet, "/api/v1/friends/"+nickname+"/", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp friendsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	out := make([]string, 0, len(resp.Friends))
	for _, f := range resp.Friends {
		out = append(out, f.Nickname)
	}
	sort.Strings(out)
	return out
}

func TestFriendshipFlow(t *testing.T) {
	api := setupRouter(t)
	aliceToken, aliceID := api.register(t, "alice")
	bobToken, bobID := api.register(t, "bob")

	w := api.do(t, http.MethodPost, "/api/v1/friends/add/", bobToken, map[string]int64{"friend_id": aliceID})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Empty(t, w.Body.String())

	assert.Empty(t, api.friendsOf(t, "bob"))
	assert.Empty(t, api.friendsOf(t, "alice"))

	w = api.do(t, http.MethodPost, "/api/v1/friends/add/", aliceToken, map[string]int64{"friend_id": bobID})
	require.Equal(t, http.StatusNoContent, w.Code)

	assert.Equal(t, []string{"bob"}, api.friendsOf(t, "alice"))
	assert.Equal(t, []string{"alice"}, api.friendsOf(t, "bob"))

	w = api.do(t, http.MethodPost, "/api/v1/friends/add/", aliceToken, map[string]int64{"friend_id": bobID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already")

	w = api.do(t, http.MethodPost, "/api/v1/friends/add/", aliceToken, map[string]int64{"friend_id": 9999})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "does not exist")

	w = api.do(t, http.MethodPost, "/api/v1/friends/add/", aliceToken, map[string]int64{"friend_id": aliceID})
	assert.Equal(t, http.StatusNoContent, w.Code, "self friend is a no-op")

	w = api.do(t, http.MethodPost, "/api/v1/friends/add/", aliceToken, map[string]string{})
	assert.Equal(t, http.StatusNoContent, w.Code, "missing friend_id is a no-op")

	w = api.do(t, http.MethodGet, "/api/v1/friends/nobody/", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationErrors(t *testing.T) {
	api := setupRouter(t)
	api.register(t, "alice")

	w := api.do(t, http.MethodPost, "/api/v1/registration/", "", map[string]string{
		"nickname": "alice", "email": "other@x.com", "password1": "Abcdef1!", "password2": "Abcdef1!",
		"first_name": "A", "last_name": "B",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"user already exists"}`, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/v1/registration/", "", map[string]string{
		"nickname": "carol", "email": "not-an-email", "password1": "Ab1!", "password2": "Ab1!",
		"first_name": "C", "last_name": "D",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var fields map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fields))
	assert.Equal(t, "incorrect email", fields["email"])
	assert.Contains(t, fields, "password1")

	w = api.do(t, http.MethodPost, "/api/v1/registration/", "", map[string]string{
		"nickname": "search", "email": "s@x.com", "password1": "Abcdef1!", "password2": "Abcdef1!",
		"first_name": "S", "last_name": "T",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "reserved")

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/registration/", strings.NewReader("{broken"))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	api := setupRouter(t)
	_, id := api.register(t, "alice")

	w := api.do(t, http.MethodPost, "/api/v1/login/", "", map[string]string{"email": "alice@x.com", "password": "Abcdef1!"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp handlers.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	claims, ok := api.creds.VerifyToken(resp.JWTToken)
	require.True(t, ok)
	assert.Equal(t, id, claims.ID)

	wrong := api.do(t, http.MethodPost, "/api/v1/login/", "", map[string]string{"email": "alice@x.com", "password": "Wrong1!!"})
	unknown := api.do(t, http.MethodPost, "/api/v1/login/", "", map[string]string{"email": "bob@x.com", "password": "Abcdef1!"})
	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
}

func TestProtectedRoutesForbidAnonymous(t *testing.T) {
	api := setupRouter(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/v1/friends/add/"},
		{http.MethodGet, "/api/v1/users/current/"},
		{http.MethodPost, "/api/v1/ratings/"},
		{http.MethodGet, "/api/v1/ws/"},
	} {
		w := api.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.path)

		w = api.do(t, tc.method, tc.path, "forged.token.value", nil)
		assert.Equal(t, http.StatusForbidden, w.Code, tc.path)
	}
}

type userInfoResponse struct {
	ID          int64  `json:"id"`
	Nickname    string `json:"nickname"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	IsSuperuser bool   `json:"is_superuser"`
	Friends     []struct {
		Nickname string `json:"nickname"`
	} `json:"friends"`
	Rating *struct {
		RatingValue int    `json:"rating_value"`
		Improve     string `json:"improve"`
	} `json:"rating"`
}

func TestUserInfoAndRating(t *testing.T) {
	api := setupRouter(t)
	aliceToken, _ := api.register(t, "alice")
	_, bobID := api.register(t, "bob")

	w := api.do(t, http.MethodGet, "/api/v1/users/bob/", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info userInfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, bobID, info.ID)
	assert.Nil(t, info.Rating)
	assert.NotNil(t, info.Friends)
	assert.Contains(t, w.Body.String(), `"rating":null`)
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(t, http.MethodPost, "/api/v1/ratings/", aliceToken, map[string]interface{}{
		"nickname": "bob", "rating_value": 42, "improve": "call back",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = api.do(t, http.MethodPost, "/api/v1/ratings/", aliceToken, map[string]interface{}{
		"nickname": "bob", "rating_value": 5000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/api/v1/users/bob/", aliceToken, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	require.NotNil(t, info.Rating)
	assert.Equal(t, 42, info.Rating.RatingValue)
	assert.Equal(t, "call back", info.Rating.Improve)

	w = api.do(t, http.MethodGet, "/api/v1/users/bob/", "", nil)
	info = userInfoResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Nil(t, info.Rating, "anonymous viewer never sees a rating")

	w = api.do(t, http.MethodGet, "/api/v1/users/nobody/", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"user not found"}`, w.Body.String())

	w = api.do(t, http.MethodGet, "/api/v1/users/current/", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	info = userInfoResponse{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "alice", info.Nickname)
}

func TestListAndSearchUsers(t *testing.T) {
	api := setupRouter(t)
	api.register(t, "alice")
	api.register(t, "bob")
	api.register(t, "alina")

	w := api.do(t, http.MethodGet, "/api/v1/users/?limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Users []struct {
			Nickname string `json:"nickname"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Users, 2)
	assert.Equal(t, "alice", list.Users[0].Nickname)

	w = api.do(t, http.MethodGet, "/api/v1/users/search/ali/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	got := []string{}
	for _, u := range list.Users {
		got = append(got, u.Nickname)
	}
	assert.ElementsMatch(t, []string{"alice", "alina"}, got)
}

func TestFriendNotificationOverWebsocket(t *testing.T) {
	api := setupRouter(t)
	aliceToken, aliceID := api.register(t, "alice")
	bobToken, _ := api.register(t, "bob")

	ts := httptest.NewServer(api.router)
	defer ts.Close()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+aliceToken)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, greeting, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(greeting), "connected")

	w := api.do(t, http.MethodPost, "/api/v1/friends/add/", bobToken, map[string]int64{"friend_id": aliceID})
	require.Equal(t, http.StatusNoContent, w.Code)

	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var event services.FriendEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	assert.Equal(t, services.EventFriendAdded, event.Event)
	assert.Equal(t, aliceID, event.ToID)
}

func TestWebsocketGreetingWhileEventsFlow(t *testing.T) {
	api := setupRouter(t)
	token, id := api.register(t, "alice")

	ts := httptest.NewServer(api.router)
	defer ts.Close()

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
				api.conns.Send(id, []byte(`{"event":"friend_added"}`))
			}
		}
	}()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/"
	for i := 0; i < 100; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, greeting, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(greeting), "connected")
		_ = conn.Close()
	}

	close(stop)
	<-done
}
