package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/seedsindex/internal/identity"
	"github.com/roach88/seedsindex/internal/ledger/memledger"
	"github.com/roach88/seedsindex/internal/node"
	"github.com/roach88/seedsindex/internal/testutil"
	"github.com/roach88/seedsindex/internal/topic"
)

const devKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

type participant struct {
	ID         string   `json:"id"`
	Location   string   `json:"location"`
	Categories []string `json:"categories"`
}

func setup(t *testing.T, withID bool) (http.Handler, *memledger.Ledger, *node.Node) {
	t.Helper()
	l := memledger.New()
	l.Seed(testutil.Key(1), testutil.Payload("https://edu.example/", topic.Education))
	l.Seed(testutil.Key(2), testutil.Payload("https://health.example/", topic.Health, topic.Education))
	l.Seed(testutil.Key(3), testutil.Payload("https://bare.example/"))

	var id *identity.Identity
	if withID {
		var err error
		id, err = identity.FromHex(devKey)
		require.NoError(t, err)
	}
	n, err := node.Open(context.Background(), l, id)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Shutdown() })
	return NewRouter(NewHandler(n)), l, n
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestHealthAndReady(t *testing.T) {
	h, _, _ := setup(t, false)

	rec, env := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec, env = do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	var ready readyResponse
	require.NoError(t, json.Unmarshal(env.Data, &ready))
	assert.Equal(t, "LIVE", ready.State)
	assert.Equal(t, uint64(3), ready.Stats.Applied)
}

func TestReady_AfterShutdown(t *testing.T) {
	h, _, n := setup(t, false)
	require.NoError(t, n.Shutdown())

	rec, env := do(t, h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not_ready", env.Error.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	h, _, _ := setup(t, false)

	req := httptest.NewRequest(http.MethodGet, "/v1/participants/0x01", nil)
	req.Header.Set("X-Request-Id", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-Id"))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "req-123", env.Error.RequestID)
}

func TestListTopics(t *testing.T) {
	h, _, _ := setup(t, false)

	_, env := do(t, h, http.MethodGet, "/v1/topics", "")
	var entries []topic.Entry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	assert.Len(t, entries, len(topic.All()))
	assert.Equal(t, "Agriculture", entries[0].Label)
}

func TestFindParticipants(t *testing.T) {
	h, _, _ := setup(t, false)

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{testutil.Key(1).Hex(), testutil.Key(2).Hex()}},
		{"?topic=education", []string{testutil.Key(1).Hex(), testutil.Key(2).Hex()}},
		{"?topic=HEALTH", []string{testutil.Key(2).Hex()}},
		{"?topic=Justice", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec, env := do(t, h, http.MethodGet, "/v1/participants"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var got []participant
			require.NoError(t, json.Unmarshal(env.Data, &got))
			ids := make([]string, len(got))
			for i, p := range got {
				ids[i] = p.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestFindParticipants_UnknownTopic(t *testing.T) {
	h, _, _ := setup(t, false)

	rec, env := do(t, h, http.MethodGet, "/v1/participants?topic=astrology", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_topic", env.Error.Code)
}

func TestGetParticipant(t *testing.T) {
	h, _, _ := setup(t, false)

	rec, env := do(t, h, http.MethodGet, "/v1/participants/"+testutil.Key(2).Hex(), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p participant
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "https://health.example/", p.Location)
	assert.Equal(t, []string{"Health", "Education"}, p.Categories)

	rec, env = do(t, h, http.MethodGet, "/v1/participants/"+testutil.Key(99).Hex(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error.Code)
}

func TestSelf_ReadOnly(t *testing.T) {
	h, _, _ := setup(t, false)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec, env := do(t, h, method, "/v1/self", "")
		assert.Equal(t, http.StatusForbidden, rec.Code, method)
		assert.Equal(t, "read_only", env.Error.Code)
	}
	rec, _ := do(t, h, http.MethodPut, "/v1/self", `{"location":"https://me.example/","categories":[]}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSelf_PublishAndRetract(t *testing.T) {
	h, _, n := setup(t, true)
	myID, err := n.MyNodeID()
	require.NoError(t, err)

	rec, env := do(t, h, http.MethodGet, "/v1/self", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, h, http.MethodPut, "/v1/self", `{"location":"https://me.example/","categories":["science","society"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rc receiptResponse
	require.NoError(t, json.Unmarshal(env.Data, &rc))
	assert.Equal(t, myID, rc.ID)
	assert.NotEmpty(t, rc.TxHash)

	rec, env = do(t, h, http.MethodGet, "/v1/self", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p participant
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, []string{"Science", "society"}, p.Categories)

	rec, _ = do(t, h, http.MethodDelete, "/v1/self", "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Eventually(t, func() bool {
		rec, _ := do(t, h, http.MethodGet, "/v1/self", "")
		return rec.Code == http.StatusNotFound
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPutSelf_Invalid(t *testing.T) {
	h, _, _ := setup(t, true)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"bad json", `{`, "invalid_json"},
		{"unknown topic", `{"location":"https://me.example/","categories":["astrology"]}`, "unknown_topic"},
		{"empty location", `{"location":"","categories":[]}`, "invalid_record"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPut, "/v1/self", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestPutSelf_BodyTooLarge(t *testing.T) {
	h, _, _ := setup(t, true)

	body := `{"location":"https://me.example/` + strings.Repeat("a", maxSelfBody) + `"}`
	rec, env := do(t, h, http.MethodPut, "/v1/self", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "body_too_large", env.Error.Code)

	rec, _ = do(t, h, http.MethodGet, "/v1/self", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutSelf_LedgerFailure(t *testing.T) {
	h, l, _ := setup(t, true)
	l.FailWrites(errors.New("out of gas"))

	rec, env := do(t, h, http.MethodPut, "/v1/self", `{"location":"https://me.example/"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "ledger_write_failed", env.Error.Code)
}

func TestServeListener_StopsOnCancel(t *testing.T) {
	_, _, n := setup(t, false)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ServeListener(ctx, ln, n) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
