package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nrednav/cuid2"
	"github.com/stretchr/testify/require"

	"uk.co.dudmesh.socialgraph/internal/service/auth"
	"uk.co.dudmesh.socialgraph/internal/service/graph"
	"uk.co.dudmesh.socialgraph/internal/store"
	"uk.co.dudmesh.socialgraph/pkg/crypt"
)

type testConfig struct{}

func (testConfig) TokenTTL() time.Duration {
	return time.Hour
}

func (testConfig) PageSize() int {
	return 10
}

func newTestServer(t *testing.T, authRateLimit float64) *echo.Echo {
	t.Helper()

	db, err := store.Open("file:handlers-" + cuid2.Generate() + "?mode=memory&cache=shared&_foreign_keys=on")
	require.Nil(t, err)
	t.Cleanup(func() { db.Close() })

	clock := store.SystemClock
	directory := store.NewDirectory(db, clock)
	ledger, err := store.NewLedger(context.Background(), db, clock, store.NewWindow(time.Minute, 3))
	require.Nil(t, err)

	revocations, err := store.NewRevocationCache(clock)
	require.Nil(t, err)
	t.Cleanup(func() { revocations.Close() })

	key, err := crypt.GenerateSigningKey()
	require.Nil(t, err)

	server := echo.New()
	Routes(server,
		auth.New(testConfig{}, directory, revocations, clock, key),
		graph.New(testConfig{}, db, directory, ledger),
		authRateLimit)
	return server
}

func do(server *echo.Echo, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func register(t *testing.T, server *echo.Echo, username string) string {
	t.Helper()

	rec := do(server, http.MethodPost, "/auth/signup",
		`{"username":"`+username+`","email":"`+username+`@example.com","password":"password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(server, http.MethodPost, "/auth/login", `{"username":"`+username+`","password":"password"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login LoginResponse
	decode(t, rec, &login)
	return login.Token
}
