//go:build integration
// +build integration

package rse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rackerlabs/rse/internal/pkg/service/api"
	"github.com/rackerlabs/rse/internal/pkg/test"
	"github.com/rackerlabs/rse/testing/integration"
)

type config struct {
	url        string
	token      string
	httpClient *http.Client
}

var cfg config

func TestMain(m *testing.M) {
	_ = godotenv.Load("../../../.env")
	cfg.url = os.Getenv("RSE_URL")
	if cfg.url == "" {
		log.Fatal("FAIL: no RSE_URL set")
	}
	cfg.token = os.Getenv("RSE_AUTH_TOKEN")
	cfg.httpClient = &http.Client{Timeout: time.Second * 60} // use bigger for debug

	tCtx, cf := context.WithTimeout(context.Background(), time.Second*10)
	defer cf()
	test.WaitForOpenOrFail(tCtx, cfg.url)

	os.Exit(m.Run())
}

func TestLive(t *testing.T) {
	t.Parallel()
	resp := invoke(t, newRequest(t, http.MethodGet, "/health", nil))
	checkCode(t, resp, http.StatusOK)
	res := api.Health{}
	decode(t, resp, &res)
	assert.Equal(t, "OK", res.Status)
}

func TestPostAndList(t *testing.T) {
	channel := ulid.Make().String()

	in := api.Event{Data: `{"msg":"olia"}`}
	resp := invoke(t, newRequest(t, http.MethodPost, "/"+channel, in))
	checkCode(t, resp, http.StatusCreated)
	posted := api.Event{}
	decode(t, resp, &posted)
	assert.Greater(t, posted.ID, int64(0))
	assert.NotEmpty(t, posted.UUID)

	resp = invoke(t, newRequest(t, http.MethodGet, fmt.Sprintf("/%s?last-known-id=%d", channel, posted.ID-1), nil))
	checkCode(t, resp, http.StatusOK)
	var events []api.Event
	decode(t, resp, &events)
	require.Equal(t, 1, len(events))
	assert.Equal(t, posted.ID, events[0].ID)
	assert.Equal(t, posted.UUID, events[0].UUID)
}

func TestIDsIncrease(t *testing.T) {
	channel := ulid.Make().String()
	var last int64
	for i := 0; i < 3; i++ {
		resp := invoke(t, newRequest(t, http.MethodPost, "/"+channel, api.Event{Data: "{}"}))
		checkCode(t, resp, http.StatusCreated)
		res := api.Event{}
		decode(t, resp, &res)
		assert.Greater(t, res.ID, last)
		last = res.ID
	}
}

func newRequest(t *testing.T, method, urlSuffix string, body interface{}) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		bs, err := json.Marshal(body)
		require.Nil(t, err)
		reader = bytes.NewReader(bs)
	}
	req, err := http.NewRequest(method, cfg.url+urlSuffix, reader)
	require.Nil(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cfg.token != "" {
		integration.AddAuth(req, cfg.token)
	}
	return req
}

func invoke(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := cfg.httpClient.Do(req)
	require.Nil(t, err, "can't invoke %s", req.URL.String())
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func checkCode(t *testing.T, resp *http.Response, code int) {
	t.Helper()
	if resp.StatusCode != code {
		b, _ := io.ReadAll(resp.Body)
		require.Failf(t, "wrong response code", "expected %d, got %d (%s)", code, resp.StatusCode, string(b))
	}
}

func decode(t *testing.T, resp *http.Response, to interface{}) {
	t.Helper()
	require.Nil(t, json.NewDecoder(resp.Body).Decode(to))
}
