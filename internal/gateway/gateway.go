package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/surveydesk/surveydesk/internal/auth/session"
	"github.com/surveydesk/surveydesk/internal/auth/token"
	"github.com/surveydesk/surveydesk/internal/common/errorx"
	"go.uber.org/zap"
)

// Request describes one outbound API call. Exactly one of JSON and Body
// should be set for requests carrying a payload.
type Request struct {
	Method string
	URL    string

	// JSON is marshaled and sent with Content-Type: application/json.
	JSON any

	// Body is sent verbatim. ContentType is applied as given; when empty
	// the header is left unset so multipart payloads keep the boundary
	// chosen by their writer.
	Body        []byte
	ContentType string

	Header http.Header
}

// Gateway wraps outbound HTTP calls with bearer authentication and a
// one-shot refresh-and-retry on credential expiry.
type Gateway struct {
	logger  *zap.Logger
	store   token.Store
	session *session.Manager
	client  *http.Client
}

// New creates a new authenticated request gateway
func New(logger *zap.Logger, store token.Store, sess *session.Manager, client *http.Client) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{
		logger:  logger.Named("gateway"),
		store:   store,
		session: sess,
		client:  client,
	}
}

// Do sends the request with the current access token attached. On a 401 it
// drives one refresh exchange and retries the original request exactly once
// with the new credential; the retry's response is final whatever its
// status. If the refresh fails the original 401 is returned to the caller.
// All other statuses pass through unmodified.
func (g *Gateway) Do(ctx context.Context, req *Request) (*http.Response, error) {
	if req == nil || req.Method == "" || req.URL == "" {
		return nil, errorx.NewValidationError("request method and url are required")
	}
	if req.JSON != nil && req.Body != nil {
		return nil, errorx.NewValidationError("request cannot carry both JSON and raw body")
	}

	body := req.Body
	contentType := req.ContentType
	if req.JSON != nil {
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, errorx.NewValidationError("request payload is not serializable")
		}
		body = data
		contentType = "application/json"
	}

	resp, err := g.send(ctx, req, body, contentType, g.store.Access())
	if err != nil {
		return nil, errorx.NewNetworkError("request failed", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Keep the 401 replayable in case the refresh fails.
	original, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		original = nil
	}
	resp.Body = io.NopCloser(bytes.NewReader(original))

	access, err := g.session.Refresh(ctx)
	if err != nil {
		g.logger.Warn("token refresh failed, returning original 401",
			zap.String("url", req.URL),
			zap.Error(err))
		return resp, nil
	}

	g.logger.Debug("access token refreshed, retrying request", zap.String("url", req.URL))
	retry, err := g.send(ctx, req, body, contentType, access)
	if err != nil {
		return nil, errorx.NewNetworkError("retry after refresh failed", err)
	}
	return retry, nil
}

func (g *Gateway) send(ctx context.Context, req *Request, body []byte, contentType, access string) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, reader)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if access != "" {
		httpReq.Header.Set("Authorization", "Bearer "+access)
	}

	return g.client.Do(httpReq)
}
