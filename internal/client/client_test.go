package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"money42/internal/auth"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer is a minimal money42 API: one user, one deposit code
type fakeServer struct {
	mu       sync.Mutex
	balance  int64
	used     map[string]bool
	redeems  atomic.Int32
	requests atomic.Int32
	revoked  bool
	failBal  bool
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()
	fs := &fakeServer{balance: 1000, used: map[string]bool{}}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (fs *fakeServer) session() auth.Session {
	return auth.Session{AccessToken: "tok", TokenType: "bearer", ExpiresAt: time.Now().Add(time.Hour).Unix(),
		User: auth.SessionUser{ID: "u1", Email: "u1@example.com"}}
}

func (fs *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	fs.requests.Add(1)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	authed := r.Header.Get("Authorization") == "Bearer tok" && !fs.revoked
	switch r.URL.Path {
	case "/auth/login":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "pw" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid login credentials"})
			return
		}
		fs.revoked = false
		writeJSON(w, http.StatusOK, fs.session())
		return
	case "/auth/signup":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "User already registered"})
		return
	}
	if !authed {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		return
	}
	switch r.URL.Path {
	case "/auth/session":
		writeJSON(w, http.StatusOK, fs.session())
	case "/auth/logout":
		fs.revoked = true
		writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
	case "/wallet":
		if fs.failBal {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch balance"})
			return
		}
		writeJSON(w, http.StatusOK, Balance{UserID: "u1", Balance: fs.balance})
	case "/wallet/redeem":
		fs.redeems.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch {
		case body["code"] == "ABC-500" && !fs.used["ABC-500"]:
			fs.used["ABC-500"] = true
			fs.balance += 500
			writeJSON(w, http.StatusOK, Redemption{Message: "deposit success: ¥500", Type: "deposit", Amount: 500, Balance: fs.balance})
		case body["code"] == "XYZ-5000":
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": "insufficient balance"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "invalid or used code"})
		}
	default:
		http.NotFound(w, r)
	}
}

type harness struct {
	fs       *fakeServer
	api      *Client
	state    *AppState
	tokens   *FileTokenStore
	sessions *SessionManager
	workflow *Workflow
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fs, srv := newFakeServer(t)
	log, _ := test.NewNullLogger()
	h := &harness{
		fs:     fs,
		api:    New(srv.URL, WithTimeout(2*time.Second)),
		state:  NewAppState(),
		tokens: &FileTokenStore{Path: filepath.Join(t.TempDir(), "session.json")},
	}
	h.sessions = NewSessionManager(h.api, h.state, h.tokens, log)
	h.workflow = NewWorkflow(h.api, h.state, h.sessions, log)
	require.NoError(t, h.sessions.Start(context.Background()))
	t.Cleanup(h.sessions.Close)
	return h
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	_, err := h.sessions.SignIn(context.Background(), "u1@example.com", "pw")
	require.NoError(t, err)
}

func TestStart_WithoutStoredSession(t *testing.T) {
	h := newHarness(t)

	assert.Nil(t, h.state.User())
	assert.Equal(t, int32(0), h.fs.requests.Load())
}

func TestSignIn_SetsIdentityFetchesBalanceAndPersists(t *testing.T) {
	h := newHarness(t)
	var events []AuthEvent
	unsub := h.sessions.OnAuthStateChange(func(e AuthEvent, _ *auth.Session) { events = append(events, e) })
	defer unsub()

	h.signIn(t)

	require.NotNil(t, h.state.User())
	assert.Equal(t, "u1", h.state.User().ID)
	assert.Equal(t, int64(1000), h.state.Balance())
	assert.Equal(t, []AuthEvent{SignedIn}, events)

	stored, err := h.tokens.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", stored.AccessToken)
}

func TestSignIn_ProviderErrorVerbatim(t *testing.T) {
	h := newHarness(t)

	_, err := h.sessions.SignIn(context.Background(), "u1@example.com", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid login credentials", apiErr.Message)
	assert.Nil(t, h.state.User())

	_, err = h.sessions.SignUp(context.Background(), "u1@example.com", "pw")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "User already registered", apiErr.Message)
}

func TestSignIn_BlankFieldsMakeNoCall(t *testing.T) {
	h := newHarness(t)

	_, err := h.sessions.SignIn(context.Background(), " ", "pw")

	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, int32(0), h.fs.requests.Load())
}

func TestStart_RestoresStoredSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	state := NewAppState()
	sm := NewSessionManager(New(h.api.baseURL), state, h.tokens, nil)
	require.NoError(t, sm.Start(context.Background()))
	defer sm.Close()

	require.NotNil(t, state.User())
	assert.Equal(t, int64(1000), state.Balance())
}

func TestStart_DiscardsRejectedToken(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.tokens.Save(&StoredSession{AccessToken: "stale"}))

	state := NewAppState()
	sm := NewSessionManager(New(h.api.baseURL), state, h.tokens, nil)
	require.NoError(t, sm.Start(context.Background()))
	defer sm.Close()

	assert.Nil(t, state.User())
	stored, err := h.tokens.Load()
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestSignOut_ClearsIdentity(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	require.NoError(t, h.sessions.SignOut(context.Background()))

	assert.Nil(t, h.state.User())
	assert.Equal(t, int64(0), h.state.Balance())
	assert.Empty(t, h.api.Token())
	assert.True(t, h.fs.revoked)
}

func TestClose_UnsubscribesManager(t *testing.T) {
	h := newHarness(t)
	h.sessions.Close()

	h.signIn(t)

	assert.Nil(t, h.state.User())
}

func TestRefreshBalance_FailureKeepsPrevious(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.fs.mu.Lock()
	h.fs.failBal = true
	h.fs.balance = 42
	h.fs.mu.Unlock()

	h.sessions.RefreshBalance(context.Background())

	assert.Equal(t, int64(1000), h.state.Balance())
}

func TestWorkflow_EmptyInputIsNoOp(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	before := h.fs.requests.Load()
	h.state.SetInput("   ")

	res, err := h.workflow.Redeem(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, before, h.fs.requests.Load())
	assert.Equal(t, "   ", h.state.Input())
	assert.Nil(t, h.state.Snapshot().Result)
}

func TestWorkflow_DepositScenario(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)
	h.state.SetInput("ABC-500")

	res, err := h.workflow.Redeem(context.Background())

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.OK)
	assert.Equal(t, "deposit success: ¥500", res.Message)
	assert.Equal(t, int64(1500), h.state.Balance())
	assert.Empty(t, h.state.Input())
	assert.False(t, h.state.Busy())
}

func TestWorkflow_Failures(t *testing.T) {
	h := newHarness(t)
	h.signIn(t)

	h.state.SetInput("XYZ-5000")
	res, err := h.workflow.Redeem(context.Background())
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "insufficient balance", res.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, res.Status)
	assert.Equal(t, "XYZ-5000", h.state.Input())
	assert.Equal(t, int64(1000), h.state.Balance())

	h.state.SetInput("USED-1")
	res, err = h.workflow.Redeem(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "invalid or used code", res.Message)
	assert.Equal(t, int64(1000), h.state.Balance())
}

func TestWorkflow_BusyAndSignedOut(t *testing.T) {
	h := newHarness(t)
	h.state.SetInput("ABC-500")

	_, err := h.workflow.Redeem(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)

	h.signIn(t)
	require.True(t, h.state.SetBusy(true))
	_, err = h.workflow.Redeem(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, int32(0), h.fs.redeems.Load())
}

func TestLoopback_DeliversToken(t *testing.T) {
	l, err := ListenLoopback()
	require.NoError(t, err)
	defer l.Close()

	resp, err := http.Get(l.RedirectURL() + "?access_token=tok&token_type=bearer")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	token, err := l.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
}

func TestLoopback_CompleteOAuth(t *testing.T) {
	h := newHarness(t)

	s, err := h.sessions.CompleteOAuth(context.Background(), "tok")

	require.NoError(t, err)
	assert.Equal(t, "u1", s.User.ID)
	assert.Equal(t, int64(1000), h.state.Balance())
}

func TestFileTokenStore_MissingFile(t *testing.T) {
	st := &FileTokenStore{Path: filepath.Join(t.TempDir(), "nested", "session.json")}

	s, err := st.Load()
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.NoError(t, st.Clear())

	require.NoError(t, st.Save(&StoredSession{AccessToken: "a", ExpiresAt: 1}))
	s, err = st.Load()
	require.NoError(t, err)
	assert.True(t, s.Expired(time.Now()))
}

func TestClient_TimeoutBecomesResult(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()
	api := New(slow.URL, WithTimeout(20*time.Millisecond))

	_, err := api.Redeem(context.Background(), "A")

	require.Error(t, err)
	assert.Contains(t, failure(err).Message, "did not answer in time")
}
