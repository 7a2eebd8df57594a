package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facility/internal/session"
	"facility/internal/wire"
)

type recorded struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   string
}

func recordingServer(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var mu sync.Mutex
	var got []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, recorded{method: r.Method, path: r.URL.Path, query: r.URL.Query(), header: r.Header.Clone(), body: string(body)})
		mu.Unlock()
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error)  { return nil, errors.New("disk gone") }
func (failingStore) Set(context.Context, string, []byte) error    { return nil }
func (failingStore) Delete(context.Context, string) error         { return nil }

type observation struct {
	op, method string
	status     int
}

type fakeObserver struct {
	mu  sync.Mutex
	obs []observation
}

func (f *fakeObserver) Observe(op, method string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, observation{op, method, status})
}

func TestAuthorize_SetsBearerOnClone(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/inmates/", nil)

	out := Authorize(r, "abc")

	assert.Equal(t, "Bearer abc", out.Header.Get("Authorization"))
	assert.Empty(t, r.Header.Get("Authorization"), "input request must not be mutated")
}

func TestAuthorize_EmptyTokenLeavesRequestAlone(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/inmates/", nil)

	out := Authorize(r, "")

	assert.Same(t, r, out)
	_, present := out.Header["Authorization"]
	assert.False(t, present)
}

func TestDo_InjectsTokenWhenSessionHasOne(t *testing.T) {
	srv, got := recordingServer(t, http.StatusOK, `[]`)
	sess := session.NewMemory()
	require.NoError(t, sess.Save(context.Background(), "tok-1"))

	c := New(srv.URL, sess)
	_, err := c.Do(context.Background(), Request{Op: "inmates.list", Method: http.MethodGet, Path: "/inmates/"})
	require.NoError(t, err)

	require.Len(t, *got, 1)
	assert.Equal(t, "Bearer tok-1", (*got)[0].header.Get("Authorization"))
	assert.NotEmpty(t, (*got)[0].header.Get(RequestIDHeader))
}

func TestDo_AnonymousWithoutToken(t *testing.T) {
	srv, got := recordingServer(t, http.StatusOK, `{}`)

	for _, sess := range []*session.Session{nil, session.NewMemory()} {
		c := New(srv.URL, sess)
		_, err := c.Do(context.Background(), Request{Op: "x", Method: http.MethodGet, Path: "/"})
		require.NoError(t, err)
	}

	require.Len(t, *got, 2)
	for _, r := range *got {
		_, present := r.header["Authorization"]
		assert.False(t, present)
	}
}

func TestDo_TokenReadPerRequest(t *testing.T) {
	srv, got := recordingServer(t, http.StatusOK, `{}`)
	ctx := context.Background()
	sess := session.NewMemory()
	c := New(srv.URL, sess)

	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/a"})
	require.NoError(t, err)
	require.NoError(t, sess.Save(ctx, "fresh"))
	_, err = c.Do(ctx, Request{Method: http.MethodGet, Path: "/b"})
	require.NoError(t, err)
	require.NoError(t, sess.Clear(ctx))
	_, err = c.Do(ctx, Request{Method: http.MethodGet, Path: "/c"})
	require.NoError(t, err)

	require.Len(t, *got, 3)
	assert.Empty(t, (*got)[0].header.Get("Authorization"))
	assert.Equal(t, "Bearer fresh", (*got)[1].header.Get("Authorization"))
	assert.Empty(t, (*got)[2].header.Get("Authorization"))
}

func TestDo_PayloadQueryAndHeaders(t *testing.T) {
	srv, got := recordingServer(t, http.StatusCreated, `{"ok":true}`)
	c := New(srv.URL+"/", nil)

	resp, err := c.Do(context.Background(), Request{
		Op:      "auth.login",
		Method:  http.MethodPost,
		Path:    "/auth/login",
		Query:   url.Values{"debug": {"true"}},
		Payload: wire.Form([]wire.Field{{Name: "username", Value: "u"}}),
		Header:  http.Header{"X-Extra": {"1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body))

	r := (*got)[0]
	assert.Equal(t, "/auth/login", r.path)
	assert.Equal(t, "true", r.query.Get("debug"))
	assert.Equal(t, wire.ContentTypeForm, r.header.Get("Content-Type"))
	assert.Equal(t, "1", r.header.Get("X-Extra"))
	assert.Equal(t, "username=u", r.body)
}

func TestDo_Non2xxIsTransportErrorWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	_, err := c.Do(context.Background(), Request{Op: "inmates.list", Method: http.MethodGet, Path: "/inmates/"})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, string(te.Body))
	assert.Equal(t, "Could not validate credentials", te.Message())
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.EqualValues(t, 1, calls.Load())
}

func TestDo_UnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := New(addr, nil)
	_, err := c.Do(context.Background(), Request{Op: "inmates.list", Method: http.MethodGet, Path: "/inmates/"})

	var ne *NetworkError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, "inmates.list", ne.Op)
	assert.True(t, IsNetwork(err))
	assert.False(t, IsStatus(err, 0))
}

func TestDo_CancelledContextIsNetworkError(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL, nil).Do(ctx, Request{Method: http.MethodGet, Path: "/"})

	require.True(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_SessionReadFailureStopsBeforeSend(t *testing.T) {
	srv, got := recordingServer(t, http.StatusOK, `{}`)

	_, err := New(srv.URL, session.New(failingStore{})).Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Empty(t, *got)
}

func TestDo_ObserverSeesEveryExchange(t *testing.T) {
	srv, _ := recordingServer(t, http.StatusNotFound, `{"detail":"Inmate not found"}`)
	obs := &fakeObserver{}

	_, err := New(srv.URL, nil, WithObserver(obs)).Do(context.Background(), Request{Op: "inmates.get", Method: http.MethodGet, Path: "/inmates/x"})
	require.Error(t, err)

	require.Len(t, obs.obs, 1)
	assert.Equal(t, observation{"inmates.get", http.MethodGet, http.StatusNotFound}, obs.obs[0])
}

func TestWithTimeout(t *testing.T) {
	assert.Equal(t, time.Duration(0), New("http://x", nil, WithTimeout(0)).httpClient.Timeout)
	assert.Equal(t, 3*time.Second, New("http://x", nil, WithTimeout(3*time.Second)).httpClient.Timeout)
}

func TestTransportError_Message(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"detail":"Inmate not found"}`, "Inmate not found"},
		{`{"detail":[{"loc":["body","name"]}]}`, `[{"loc":["body","name"]}]`},
		{`{"error":"rate limit"}`, "rate limit"},
		{`Internal Server Error`, "Internal Server Error"},
	}
	for _, tc := range cases {
		e := &TransportError{StatusCode: 400, Body: []byte(tc.body)}
		assert.Equal(t, tc.want, e.Message())
		assert.Contains(t, e.Error(), "HTTP 400")
	}
}
