package service

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackerlabs/rse/internal/pkg/service/api"
)

type fakeHealth struct {
	err error
}

func (f *fakeHealth) Healthy(context.Context) error {
	return f.err
}

type fakeStore struct {
	posted  []*api.Event
	postErr error
	events  []api.Event
	listErr error

	channel       string
	lastID, limit int64
}

func (f *fakeStore) Post(_ context.Context, ev *api.Event) error {
	if f.postErr != nil {
		return f.postErr
	}
	ev.ID = int64(len(f.posted) + 1)
	f.posted = append(f.posted, ev)
	return nil
}

func (f *fakeStore) ListAfter(_ context.Context, channel string, lastID, limit int64) ([]api.Event, error) {
	f.channel, f.lastID, f.limit = channel, lastID, limit
	return f.events, f.listErr
}

type fakeAuth struct {
	valid  bool
	err    error
	tokens []string
}

func (f *fakeAuth) ValidToken(_ context.Context, token string) (bool, error) {
	f.tokens = append(f.tokens, token)
	return f.valid, f.err
}

var (
	tHealth *fakeHealth
	tStore  *fakeStore
	tAuth   *fakeAuth
	tData   *Data
)

func initTest(t *testing.T) {
	tHealth = &fakeHealth{}
	tStore = &fakeStore{events: []api.Event{}}
	tAuth = &fakeAuth{valid: true}
	tData = &Data{Port: 8000, Health: tHealth, Events: tStore, Auth: tAuth}
}

func testCode(t *testing.T, req *http.Request, code int) *httptest.ResponseRecorder {
	t.Helper()
	e, err := initRoutes(tData)
	require.Nil(t, err)
	resp := httptest.NewRecorder()
	e.ServeHTTP(resp, req)
	assert.Equal(t, code, resp.Code)
	return resp
}

func postReq(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/ch1", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(authHeader, "token1")
	return req
}

func TestHealth(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp := testCode(t, req, http.StatusOK)
	bytes, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(bytes), `"status":"OK"`)
}

func TestHealth_Fail(t *testing.T) {
	initTest(t)
	tHealth.err = errors.New("olia")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	testCode(t, req, http.StatusServiceUnavailable)
}

func TestHealth_NoAuthRequired(t *testing.T) {
	initTest(t)
	tAuth.valid = false
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	testCode(t, req, http.StatusOK)
	assert.Empty(t, tAuth.tokens)
}

func TestPost(t *testing.T) {
	initTest(t)
	resp := testCode(t, postReq(`{"data":"olia"}`), http.StatusCreated)
	require.Equal(t, 1, len(tStore.posted))
	assert.Equal(t, "ch1", tStore.posted[0].Channel)
	assert.Equal(t, "olia", tStore.posted[0].Data)
	assert.Equal(t, []string{"token1"}, tAuth.tokens)
	bytes, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(bytes), `"id":1`)
}

func TestPost_NoToken(t *testing.T) {
	initTest(t)
	req := postReq(`{"data":"olia"}`)
	req.Header.Del(authHeader)
	testCode(t, req, http.StatusUnauthorized)
	assert.Empty(t, tStore.posted)
}

func TestPost_InvalidToken(t *testing.T) {
	initTest(t)
	tAuth.valid = false
	testCode(t, postReq(`{"data":"olia"}`), http.StatusUnauthorized)
	assert.Empty(t, tStore.posted)
}

func TestPost_AuthFails(t *testing.T) {
	initTest(t)
	tAuth.err = errors.New("olia")
	testCode(t, postReq(`{"data":"olia"}`), http.StatusInternalServerError)
}

func TestPost_TestModeBypassesAuth(t *testing.T) {
	initTest(t)
	tData.TestMode = true
	tAuth.valid = false
	req := postReq(`{"data":"olia"}`)
	req.Header.Del(authHeader)
	testCode(t, req, http.StatusCreated)
	assert.Empty(t, tAuth.tokens)
	assert.Equal(t, 1, len(tStore.posted))
}

func TestPost_WrongContentType(t *testing.T) {
	initTest(t)
	req := postReq(`{"data":"olia"}`)
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	testCode(t, req, http.StatusBadRequest)
}

func TestPost_NoData(t *testing.T) {
	initTest(t)
	testCode(t, postReq(`{}`), http.StatusBadRequest)
}

func TestPost_StoreFails(t *testing.T) {
	initTest(t)
	tStore.postErr = errors.New("olia")
	testCode(t, postReq(`{"data":"olia"}`), http.StatusInternalServerError)
}

func TestList(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ch1?last-known-id=5&max=10", nil)
	req.Header.Set(authHeader, "token1")
	resp := testCode(t, req, http.StatusOK)
	assert.Equal(t, "ch1", tStore.channel)
	assert.Equal(t, int64(5), tStore.lastID)
	assert.Equal(t, int64(10), tStore.limit)
	bytes, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "[]\n", string(bytes))
}

func TestList_Defaults(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ch1", nil)
	req.Header.Set(authHeader, "token1")
	testCode(t, req, http.StatusOK)
	assert.Equal(t, int64(0), tStore.lastID)
	assert.Equal(t, int64(defaultListLimit), tStore.limit)
}

func TestList_CapsLimit(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ch1?max=100000", nil)
	req.Header.Set(authHeader, "token1")
	testCode(t, req, http.StatusOK)
	assert.Equal(t, int64(maxListLimit), tStore.limit)
}

func TestList_WrongLastID(t *testing.T) {
	initTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ch1?last-known-id=olia", nil)
	req.Header.Set(authHeader, "token1")
	testCode(t, req, http.StatusBadRequest)
}

func TestList_Fails(t *testing.T) {
	initTest(t)
	tStore.listErr = errors.New("olia")
	req := httptest.NewRequest(http.MethodGet, "/ch1", nil)
	req.Header.Set(authHeader, "token1")
	testCode(t, req, http.StatusInternalServerError)
}

func TestInitRoutes_Fail(t *testing.T) {
	initTest(t)
	for _, d := range []*Data{
		{Events: tStore, Auth: tAuth},
		{Health: tHealth, Auth: tAuth},
		{Health: tHealth, Events: tStore},
	} {
		_, err := initRoutes(d)
		assert.NotNil(t, err)
	}
}
