package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/events"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/repository"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/service"
	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/store"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testOrigin = "http://localhost:8081"

// testApp 全内存装配：seeded jane(1, impaired) / phil(2, caretaker)
type testApp struct {
	router *Router
	mem    *repository.MemoryStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	logger := zap.NewNop()
	mem := repository.NewMemoryStore()
	require.NoError(t, repository.Seed(context.Background(), mem, service.HashPassword, repository.DefaultSeedUsers, logger))

	sessions := store.NewMemorySessionStore(store.DefaultSessionTTL)
	publisher := events.NopPublisher{}
	users := repository.NewUsersRepo(mem)
	pairings := repository.NewPairingsRepo(mem)

	authSvc := service.NewAuthService(users, sessions, logger)
	pairingSvc := service.NewPairingService(users, pairings, publisher, logger)
	userSvc := service.NewUserService(users, logger)
	tripSvc := service.NewTripService(repository.NewTripsRepo(mem), users, pairings, publisher, logger)
	contactSvc := service.NewContactService(repository.NewContactsRepo(mem), logger)
	activitySvc := service.NewActivityService(repository.NewActivitiesRepo(mem), pairings, publisher, logger)
	conversationSvc := service.NewConversationService(repository.NewConversationsRepo(mem), publisher, logger)

	guards := NewGuards(sessions, pairingSvc, pairingSvc)
	router := NewRouter([]string{testOrigin}, logger)
	router.RegisterHealthRoutes()
	router.RegisterAuthRoutes(NewAuthHandler(authSvc, logger), guards)
	router.RegisterUserRoutes(NewUserHandler(userSvc, pairingSvc, tripSvc, sessions, logger), guards)
	router.RegisterTrackingRoutes(NewTrackingHandler(contactSvc, tripSvc, activitySvc, logger), guards)
	router.RegisterConversationRoutes(NewConversationHandler(conversationSvc, logger), guards)

	return &testApp{router: router, mem: mem}
}

type response struct {
	Status  int
	Header  http.Header
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	resp := response{Status: rec.Code, Header: rec.Header()}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return resp
}

func (a *testApp) login(t *testing.T, email string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "password"})
	require.Equal(t, http.StatusOK, resp.Status, resp.Message)
	var out sessionResult
	require.NoError(t, json.Unmarshal(resp.Result, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
