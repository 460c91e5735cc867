package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/cloudchat/pkg/logger"
	"github.com/papercomputeco/cloudchat/pkg/utils"
)

const (
	defaultTimeout = 30 * time.Second

	// maxErrorBody bounds how much of a failed response is kept in a
	// StatusError.
	maxErrorBody = 512

	// RequestIDHeader carries a per-request correlation id.
	RequestIDHeader = "X-Request-ID"
)

// Client talks to the chat backend over HTTP. Every call takes the bearer
// token explicitly: token lifecycle belongs to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	recorder   io.Writer
	logger     *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout bounds non-streaming calls. Streamed chat responses are bound
// only by the caller's context.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.timeout = d
	}
}

// WithRecorder tees the raw lines of every chat stream to w.
func WithRecorder(w io.Writer) ClientOption {
	return func(client *Client) {
		client.recorder = w
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		logger:     logger.Nop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListSessions returns the session summaries owned by the token's identity.
func (c *Client) ListSessions(ctx context.Context, token string) ([]Session, error) {
	sessions := []Session{}
	if err := c.doJSON(ctx, "fetch sessions", http.MethodGet, "/sessions", token, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// GetSession returns a session with its full message history.
func (c *Client) GetSession(ctx context.Context, token, sessionID string) (*SessionDetail, error) {
	detail := &SessionDetail{}
	if err := c.doJSON(ctx, "fetch session", http.MethodGet, sessionPath(sessionID), token, detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// DeleteSession deletes a session on the server.
func (c *Client) DeleteSession(ctx context.Context, token, sessionID string) error {
	return c.doJSON(ctx, "delete session", http.MethodDelete, sessionPath(sessionID), token, nil)
}

// StreamChat posts a message and returns the stream of events the server
// answers with. A nil sessionID starts a new conversation.
//
// A non-success status or a response without a body fails the call before
// any event is produced. The returned Stream must be drained or closed.
func (c *Client) StreamChat(ctx context.Context, token, message string, sessionID *string) (*Stream, error) {
	body, err := json.Marshal(ChatRequest{
		SessionID: sessionID,
		Message:   message,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set(RequestIDHeader, requestID)
	req.Header.Set("User-Agent", utils.UserAgent())
	setBearer(req, token)

	c.logger.Debug("sending chat request",
		"request_id", requestID,
		"new_session", sessionID == nil,
		"message_len", len(message),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, newStatusError("chat request", resp)
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, ErrNoBody
	}

	opts := []StreamOption{WithStreamLogger(c.logger.With("request_id", requestID))}
	if c.recorder != nil {
		opts = append(opts, WithStreamTee(c.recorder))
	}

	return NewStream(resp.Body, opts...), nil
}

// doJSON performs a bounded request and decodes a JSON response into result
// when result is non-nil.
func (c *Client) doJSON(ctx context.Context, op, method, path, token string, result any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", utils.UserAgent())
	setBearer(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newStatusError(op, resp)
	}

	if result == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%s: decoding response: %w", op, err)
	}

	return nil
}

func setBearer(req *http.Request, token string) {
	req.Header.Set("Authorization", "Bearer "+token)
}

func sessionPath(sessionID string) string {
	return "/sessions/" + url.PathEscape(sessionID)
}

func newStatusError(op string, resp *http.Response) *StatusError {
	var body []byte
	if resp.Body != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}
	return &StatusError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
