// Package reformulate calls the CV reformulation service, which turns an
// uploaded resume file into the structured CV JSON.
package reformulate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"cv-mapper/internal/shared/resilience"
)

const (
	DefaultURL     = "http://35.181.31.39:8000/reformulate-cv/"
	DefaultTimeout = 60 * time.Second

	operationName   = "reformulate.upload"
	maxResponseSize = 4 << 20
)

// ErrAttemptTimeout marks an attempt that ran out of its own time budget
// while the caller was still waiting.
var ErrAttemptTimeout = errors.New("reformulation attempt timed out")

// StatusError is a non-200 answer from the service.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("reformulation service status: %s", e.Status)
	}
	return fmt.Sprintf("reformulation service status: %s: %s", e.Status, body)
}

// OAuthConfig enables client-credentials authentication when ClientID is set.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Options configures a Client.
type Options struct {
	URL        string
	Timeout    time.Duration
	Resilience resilience.Config
	OAuth      OAuthConfig
	// HTTPClient overrides the transport; its Timeout is replaced by Timeout.
	HTTPClient *http.Client
}

// Client uploads files to the reformulation endpoint.
type Client struct {
	url        string
	timeout    time.Duration
	httpClient *http.Client
	executor   *resilience.Executor
}

// NewClient builds a client with a per-attempt timeout and bounded retries.
func NewClient(opts Options) (*Client, error) {
	endpoint := strings.TrimSpace(opts.URL)
	if endpoint == "" {
		endpoint = DefaultURL
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		return nil, fmt.Errorf("reformulation url must be http(s): %q", endpoint)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	base := opts.HTTPClient
	if base == nil {
		base = &http.Client{}
	}
	httpClient := base
	if strings.TrimSpace(opts.OAuth.ClientID) != "" {
		if strings.TrimSpace(opts.OAuth.TokenURL) == "" {
			return nil, errors.New("REFORMULATE_TOKEN_URL is required when REFORMULATE_CLIENT_ID is set")
		}
		ccfg := clientcredentials.Config{
			ClientID:     opts.OAuth.ClientID,
			ClientSecret: opts.OAuth.ClientSecret,
			TokenURL:     opts.OAuth.TokenURL,
			Scopes:       opts.OAuth.Scopes,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
		httpClient = ccfg.Client(tokenCtx)
	} else {
		copied := *base
		httpClient = &copied
	}
	httpClient.Timeout = timeout

	return &Client{
		url:        endpoint,
		timeout:    timeout,
		httpClient: httpClient,
		executor:   resilience.NewExecutor(opts.Resilience),
	}, nil
}

// OnRetry registers a hook called before every retry wait.
func (c *Client) OnRetry(fn func(attempt int, err error)) {
	c.executor.OnRetry = func(_ string, attempt int, err error) {
		fn(attempt, err)
	}
}

// Reformulate posts the file as multipart field "file" and returns the raw
// JSON body of a 200 response.
func (c *Client) Reformulate(ctx context.Context, fileName string, content []byte) ([]byte, error) {
	body, contentType, err := multipartBody(fileName, content)
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = c.executor.Execute(ctx, operationName, func(ctx context.Context) error {
		resp, err := c.post(ctx, body, contentType)
		if err != nil {
			return err
		}
		payload = resp
		return nil
	}, classify)
	if err != nil {
		return nil, err
	}
	return payload, nil
}

func (c *Client) post(parent context.Context, body []byte, contentType string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build reformulation request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrAttemptTimeout, err)
		}
		return nil, fmt.Errorf("reformulation request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read reformulation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		snippet := string(data)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: snippet}
	}
	return data, nil
}

func multipartBody(fileName string, content []byte) ([]byte, string, error) {
	name := strings.TrimSpace(fileName)
	if name == "" {
		name = "cv.pdf"
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, "", fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", fmt.Errorf("write multipart file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}

func classify(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, ErrAttemptTimeout) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		if isRetryableStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
