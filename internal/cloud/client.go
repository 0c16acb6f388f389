// Package cloud is the QFieldCloud API client. Every call exists in a
// blocking form that takes a context and in an Async form that returns a
// Reply the caller can wait on or abort.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Exported constants.
const (
	DefaultServerURL = "https://app.qfield.cloud"
	apiPrefix        = "/api/v1"
	userAgent        = "qfieldsync/1.0"
)

// Client talks to one QFieldCloud server. It is safe for concurrent use.
type Client struct {
	serverURL string
	api       *http.Client // retrying, for JSON calls
	transfer  *http.Client // plain, for streamed file bodies
	logger    zerolog.Logger

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	token        string
	logger       zerolog.Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	timeout      time.Duration
}

// WithToken starts the client already authenticated.
func WithToken(token string) Option {
	return func(o *clientOptions) { o.token = token }
}

// WithLogger sets the logger used for requests and retries.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithRetries overrides the retry budget for JSON calls.
func WithRetries(maxRetries int, waitMin, waitMax time.Duration) Option {
	return func(o *clientOptions) {
		o.retryMax = maxRetries
		o.retryWaitMin = waitMin
		o.retryWaitMax = waitMax
	}
}

// New creates a client for serverURL (e.g. https://app.qfield.cloud).
func New(serverURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(serverURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidServer, serverURL)
	}

	options := clientOptions{
		logger:       zerolog.Nop(),
		retryMax:     3,
		retryWaitMin: 500 * time.Millisecond,
		retryWaitMax: 5 * time.Second,
		timeout:      60 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = options.retryMax
	retryClient.RetryWaitMin = options.retryWaitMin
	retryClient.RetryWaitMax = options.retryWaitMax
	retryClient.CheckRetry = idempotentRetryPolicy
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.Logger = &retryLogger{logger: options.logger}

	api := retryClient.StandardClient()
	api.Timeout = options.timeout

	return &Client{
		serverURL: strings.TrimSuffix(serverURL, "/"),
		api:       api,
		transfer:  retryClient.HTTPClient,
		logger:    options.logger,
		token:     options.token,
	}, nil
}

// ServerURL returns the server base URL without a trailing slash.
func (c *Client) ServerURL() string {
	return c.serverURL
}

// HasToken reports whether the client holds an auth token.
func (c *Client) HasToken() bool {
	return c.Token() != ""
}

// Token returns the current auth token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.token
}

// SetToken replaces the auth token; "" logs the client out locally.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

// Login exchanges username and password for a token and stores it.
func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	var creds Credentials

	body := map[string]string{"username": username, "password": password}

	err := c.doJSON(ctx, http.MethodPost, "/auth/login/", body, &creds, false)
	if err != nil {
		return Credentials{}, err
	}

	if creds.Username == "" {
		creds.Username = username
	}

	c.SetToken(creds.Token)

	return creds, nil
}

// LoginAsync is the asynchronous form of Login.
func (c *Client) LoginAsync(ctx context.Context, username, password string) *Reply[Credentials] {
	return NewReply(ctx, func(ctx context.Context) (Credentials, error) {
		return c.Login(ctx, username, password)
	})
}

// Logout invalidates the token on the server and forgets it locally.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/auth/logout/", nil, nil, true)
	if err != nil {
		return err
	}

	c.SetToken("")

	return nil
}

// LogoutAsync is the asynchronous form of Logout.
func (c *Client) LogoutAsync(ctx context.Context) *Reply[struct{}] {
	return NewReply(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.Logout(ctx)
	})
}

// ListProjects returns every project visible to the user.
func (c *Client) ListProjects(ctx context.Context) ([]CloudProject, error) {
	var projects []CloudProject

	err := c.doJSON(ctx, http.MethodGet, "/projects/", nil, &projects, true)
	if err != nil {
		return nil, err
	}

	return projects, nil
}

// ListProjectsAsync is the asynchronous form of ListProjects.
func (c *Client) ListProjectsAsync(ctx context.Context) *Reply[[]CloudProject] {
	return NewReply(ctx, c.ListProjects)
}

// CreateProject creates a project and returns it with its new id.
func (c *Client) CreateProject(ctx context.Context, input ProjectInput) (CloudProject, error) {
	var project CloudProject

	err := c.doJSON(ctx, http.MethodPost, "/projects/", input, &project, true)
	if err != nil {
		return CloudProject{}, err
	}

	return project, nil
}

// CreateProjectAsync is the asynchronous form of CreateProject.
func (c *Client) CreateProjectAsync(ctx context.Context, input ProjectInput) *Reply[CloudProject] {
	return NewReply(ctx, func(ctx context.Context) (CloudProject, error) {
		return c.CreateProject(ctx, input)
	})
}

// UpdateProject overwrites the editable fields of project id.
func (c *Client) UpdateProject(ctx context.Context, id string, input ProjectInput) (CloudProject, error) {
	var project CloudProject

	err := c.doJSON(ctx, http.MethodPatch, "/projects/"+url.PathEscape(id)+"/", input, &project, true)
	if err != nil {
		return CloudProject{}, err
	}

	return project, nil
}

// UpdateProjectAsync is the asynchronous form of UpdateProject.
func (c *Client) UpdateProjectAsync(ctx context.Context, id string, input ProjectInput) *Reply[CloudProject] {
	return NewReply(ctx, func(ctx context.Context) (CloudProject, error) {
		return c.UpdateProject(ctx, id, input)
	})
}

// DeleteProject removes project id and all its files.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/projects/"+url.PathEscape(id)+"/", nil, nil, true)
}

// DeleteProjectAsync is the asynchronous form of DeleteProject.
func (c *Client) DeleteProjectAsync(ctx context.Context, id string) *Reply[struct{}] {
	return NewReply(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.DeleteProject(ctx, id)
	})
}

// GetProjectFiles returns the manifest of project id. The result is never
// nil on success, so an empty project is distinguishable from an unfetched one.
func (c *Client) GetProjectFiles(ctx context.Context, id string) ([]CloudFile, error) {
	var files []CloudFile

	err := c.doJSON(ctx, http.MethodGet, "/files/"+url.PathEscape(id)+"/", nil, &files, true)
	if err != nil {
		return nil, err
	}

	if files == nil {
		files = []CloudFile{}
	}

	return files, nil
}

// GetProjectFilesAsync is the asynchronous form of GetProjectFiles.
func (c *Client) GetProjectFilesAsync(ctx context.Context, id string) *Reply[[]CloudFile] {
	return NewReply(ctx, func(ctx context.Context) ([]CloudFile, error) {
		return c.GetProjectFiles(ctx, id)
	})
}

func (c *Client) endpoint(path string) string {
	return c.serverURL + apiPrefix + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, auth bool) (*http.Request, error) {
	if auth && !c.HasToken() {
		return nil, ErrNotLoggedIn
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if token := c.Token(); auth && token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	return req, nil
}

// doJSON sends body as JSON and decodes a 2xx response into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, auth bool) error {
	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}

		reader = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, path, reader, auth)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(c.api, req, path)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	err = json.NewDecoder(resp.Body).Decode(out)
	if err != nil {
		return &APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Detail:     "invalid response body",
			Err:        err,
		}
	}

	return nil
}

// send performs req and turns transport failures and non-2xx responses into
// *APIError. On success the caller owns resp.Body.
func (c *Client) send(httpClient *http.Client, req *http.Request, path string) (*http.Response, error) {
	start := time.Now()

	resp, err := httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("method", req.Method).Str("path", path).Msg("api request failed")

		return nil, &APIError{Method: req.Method, Path: path, Err: err}
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	return nil, &APIError{
		Method:     req.Method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Detail:     parseDetail(data),
	}
}
