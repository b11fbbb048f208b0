package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveydesk/surveydesk/internal/auth/session"
	"github.com/surveydesk/surveydesk/internal/auth/token"
	"github.com/surveydesk/surveydesk/internal/common/errorx"
	"go.uber.org/zap"
)

// testBackend bundles an API server whose auth endpoints accept a known
// refresh token and whose data endpoint requires a given access token.
type testBackend struct {
	srv          *httptest.Server
	validAccess  atomic.Value // string
	refreshHits  atomic.Int32
	dataHits     atomic.Int32
	refreshFails atomic.Bool
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{}
	b.validAccess.Store("acc-1")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		b.refreshHits.Add(1)
		if b.refreshFails.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "token is blacklisted"})
			return
		}
		b.validAccess.Store("acc-2")
		json.NewEncoder(w).Encode(map[string]string{"access": "acc-2"})
	})
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		b.dataHits.Add(1)
		if r.Header.Get("Authorization") != "Bearer "+b.validAccess.Load().(string) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"detail": "token expired"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/echo-content-type/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"content_type": r.Header.Get("Content-Type")})
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func newTestGateway(t *testing.T, b *testBackend, access string) (*Gateway, *token.MemoryStore) {
	t.Helper()
	store := token.NewMemoryStore()
	require.NoError(t, store.SetSession(token.Pair{Access: access, Refresh: "ref-1"}, nil))
	sess := session.NewManager(zap.NewNop(), store, b.srv.URL, b.srv.Client())
	return New(zap.NewNop(), store, sess, b.srv.Client()), store
}

func TestDo_AttachesBearer(t *testing.T) {
	b := newTestBackend(t)
	g, _ := newTestGateway(t, b, "acc-1")

	resp, err := g.Do(context.Background(), &Request{Method: http.MethodGet, URL: b.srv.URL + "/api/projects/"})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), b.dataHits.Load())
	assert.Equal(t, int32(0), b.refreshHits.Load())
}

func TestDo_RefreshAndRetryOnce(t *testing.T) {
	b := newTestBackend(t)
	b.validAccess.Store("acc-2") // the stored acc-1 is already stale
	g, store := newTestGateway(t, b, "acc-1")

	resp, err := g.Do(context.Background(), &Request{Method: http.MethodGet, URL: b.srv.URL + "/api/projects/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	// the retry's 200 is what the caller receives
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "ok")

	assert.Equal(t, int32(1), b.refreshHits.Load())
	assert.Equal(t, int32(2), b.dataHits.Load())
	assert.Equal(t, "acc-2", store.Access())
}

func TestDo_RefreshFailureReturnsOriginal401(t *testing.T) {
	b := newTestBackend(t)
	b.validAccess.Store("acc-2")
	b.refreshFails.Store(true)
	g, store := newTestGateway(t, b, "acc-1")

	resp, err := g.Do(context.Background(), &Request{Method: http.MethodGet, URL: b.srv.URL + "/api/projects/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "token expired")

	// no retry of the data call, session cleared by the rejected refresh
	assert.Equal(t, int32(1), b.dataHits.Load())
	_, ok := store.Pair()
	assert.False(t, ok)
}

func TestDo_RetryThat401sIsFinal(t *testing.T) {
	// refresh succeeds but the server keeps rejecting: the retry's 401 is
	// returned as-is and no second refresh is attempted
	var refreshHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/refresh/", func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access": "acc-2"})
	})
	mux.HandleFunc("/api/projects/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store := token.NewMemoryStore()
	require.NoError(t, store.SetSession(token.Pair{Access: "acc-1", Refresh: "ref-1"}, nil))
	sess := session.NewManager(zap.NewNop(), store, srv.URL, srv.Client())
	g := New(zap.NewNop(), store, sess, srv.Client())

	resp, err := g.Do(context.Background(), &Request{Method: http.MethodGet, URL: srv.URL + "/api/projects/"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), refreshHits.Load())
}

func TestDo_JSONContentTypeDefault(t *testing.T) {
	b := newTestBackend(t)
	g, _ := newTestGateway(t, b, "acc-1")

	resp, err := g.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    b.srv.URL + "/api/echo-content-type/",
		JSON:   map[string]string{"name": "Acme"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	var echoed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&echoed))
	assert.Equal(t, "application/json", echoed["content_type"])
}

func TestDo_MultipartKeepsWriterContentType(t *testing.T) {
	b := newTestBackend(t)
	g, _ := newTestGateway(t, b, "acc-1")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "cases.mdd")
	require.NoError(t, err)
	fw.Write([]byte("payload"))
	require.NoError(t, mw.Close())

	resp, err := g.Do(context.Background(), &Request{
		Method:      http.MethodPost,
		URL:         b.srv.URL + "/api/echo-content-type/",
		Body:        buf.Bytes(),
		ContentType: mw.FormDataContentType(),
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	var echoed map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&echoed))
	assert.Contains(t, echoed["content_type"], "multipart/form-data; boundary=")
}

func TestDo_Validation(t *testing.T) {
	b := newTestBackend(t)
	g, _ := newTestGateway(t, b, "acc-1")

	_, err := g.Do(context.Background(), nil)
	assert.True(t, errorx.Is(err, errorx.CategoryValidation))

	_, err = g.Do(context.Background(), &Request{Method: http.MethodGet})
	assert.True(t, errorx.Is(err, errorx.CategoryValidation))

	_, err = g.Do(context.Background(), &Request{
		Method: http.MethodPost,
		URL:    b.srv.URL,
		JSON:   map[string]string{"a": "b"},
		Body:   []byte("raw"),
	})
	assert.True(t, errorx.Is(err, errorx.CategoryValidation))
}
