package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/surveydesk/surveydesk/internal/auth/token"
	"github.com/surveydesk/surveydesk/internal/common/errorx"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	loginPath   = "/api/auth/login/"
	refreshPath = "/api/auth/refresh/"
	logoutPath  = "/api/auth/logout/"
)

// Credentials are the login request payload
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Manager owns the session lifecycle: login, logout and refresh-token
// exchange. It is the only component that mutates the token store.
type Manager struct {
	logger  *zap.Logger
	store   token.Store
	baseURL string
	client  *http.Client

	// refresh is single-flight: concurrent callers share one exchange
	sf singleflight.Group

	mu        sync.Mutex
	onExpired []func()
}

// NewManager creates a new session manager
func NewManager(logger *zap.Logger, store token.Store, baseURL string, client *http.Client) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{
		logger:  logger.Named("auth.session"),
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// OnSessionExpired registers a callback invoked when the refresh token is
// rejected and the local session has been cleared. Callers typically
// redirect to login.
func (m *Manager) OnSessionExpired(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpired = append(m.onExpired, fn)
}

// Login exchanges credentials for a token pair and user record. The pair
// and user are stored atomically on success.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*token.User, error) {
	if creds.Username == "" || creds.Password == "" {
		return nil, errorx.NewValidationError("username and password are required")
	}

	body, status, err := m.post(ctx, loginPath, creds, "")
	if err != nil {
		return nil, errorx.NewNetworkError("login request failed", err)
	}
	if status < 200 || status >= 300 {
		m.logger.Warn("login rejected", zap.Int("status", status))
		return nil, errorx.NewAuthError("login failed", errorDetail(body))
	}

	var resp struct {
		Access  string          `json:"access"`
		Refresh string          `json:"refresh"`
		User    json.RawMessage `json:"user"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errorx.NewProtocolError("malformed login response", err)
	}

	user := &token.User{Raw: resp.User}
	if len(resp.User) > 0 {
		if err := json.Unmarshal(resp.User, user); err != nil {
			return nil, errorx.NewProtocolError("malformed user record", err)
		}
		user.Raw = resp.User
	}

	if err := m.store.SetSession(token.Pair{Access: resp.Access, Refresh: resp.Refresh}, user); err != nil {
		return nil, errorx.NewProtocolError("login response missing tokens", err)
	}

	m.logger.Info("logged in", zap.String("username", user.Username))
	return user, nil
}

// Logout invalidates the session server-side on a best-effort basis, then
// unconditionally clears local state.
func (m *Manager) Logout(ctx context.Context) {
	pair, ok := m.store.Pair()
	if ok {
		payload := map[string]string{"refresh": pair.Refresh}
		if _, _, err := m.post(ctx, logoutPath, payload, pair.Access); err != nil {
			m.logger.Warn("server-side logout failed, clearing local session anyway", zap.Error(err))
		}
	}
	m.store.Clear()
	m.logger.Info("logged out")
}

// Refresh exchanges the stored refresh token for a new access token,
// keeping the same refresh token. Concurrent callers await the same
// in-flight exchange. On explicit rejection of the refresh token the local
// session is cleared and an auth error returned; transient network
// failures leave the stored tokens untouched.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	v, err, _ := m.sf.Do("refresh", func() (interface{}, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) doRefresh(ctx context.Context) (string, error) {
	pair, ok := m.store.Pair()
	if !ok {
		return "", errorx.NewAuthError("no session to refresh", "")
	}

	payload := map[string]string{"refresh": pair.Refresh}
	body, status, err := m.post(ctx, refreshPath, payload, "")
	if err != nil {
		// transient failure, keep tokens so a later retry is possible
		return "", errorx.NewNetworkError("refresh request failed", err)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		// refresh token rejected, the session is gone
		m.store.Clear()
		m.logger.Warn("refresh token rejected, session cleared", zap.Int("status", status))
		m.notifyExpired()
		return "", errorx.NewAuthError("refresh token rejected", errorDetail(body))
	case status < 200 || status >= 300:
		return "", errorx.NewNetworkError("refresh request failed", nil)
	}

	var resp struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Access == "" {
		return "", errorx.NewProtocolError("malformed refresh response", err)
	}

	if err := m.store.SetAccess(resp.Access); err != nil {
		// session was cleared while the exchange was in flight
		return "", errorx.NewAuthError("session cleared during refresh", "")
	}

	m.logger.Debug("access token refreshed")
	return resp.Access, nil
}

func (m *Manager) notifyExpired() {
	m.mu.Lock()
	fns := make([]func(), len(m.onExpired))
	copy(fns, m.onExpired)
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// post sends a JSON POST to baseURL+path, optionally bearer-authenticated,
// and returns the response body and status code.
func (m *Manager) post(ctx context.Context, path string, payload any, bearer string) ([]byte, int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

// errorDetail extracts the server-provided error detail from a response body
func errorDetail(body []byte) string {
	for _, key := range []string{"detail", "error", "message"} {
		if v := gjson.GetBytes(body, key); v.Exists() {
			return v.String()
		}
	}
	return ""
}
