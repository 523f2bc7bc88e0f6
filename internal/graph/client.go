package graph

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
)

// Timeouts groups the three per-phase timeouts from §3/§5.
type Timeouts struct {
	Short     time.Duration // control-plane calls
	List      time.Duration // each paginated GET
	ReadWrite time.Duration // idle-read timeout on body streams
}

// DefaultTimeouts matches the defaults a fresh Config produces.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Short:     30 * time.Second,
		List:      60 * time.Second,
		ReadWrite: 2 * time.Minute,
	}
}

// DefaultBaseURL is the production Graph API host, per §1/§6.
const DefaultBaseURL = "https://graph.microsoft.com"

// Client is the HTTP transport + request pipeline described in §4.3. One
// Client is constructed per backend instance; the throttle gate underneath
// it is process-wide and shared across every Client targeting the same
// host.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string
	timeouts   Timeouts
}

// NewClient constructs a Client against DefaultBaseURL. httpClient may be
// nil to use a zero-value http.Client (the pipeline applies its own
// per-phase timeouts instead of relying on a blanket client timeout).
func NewClient(httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string, timeouts Timeouts) *Client {
	return newClientWithBaseURL(DefaultBaseURL, httpClient, token, logger, userAgent, timeouts)
}

func newClientWithBaseURL(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, userAgent string, timeouts Timeouts) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		token:      token,
		logger:     logger,
		userAgent:  userAgent,
		timeouts:   timeouts,
	}
}

// absoluteURL joins the client's base URL with a path produced by a
// urlBuilder. Strings that are already absolute (an uploadUrl returned by
// the server) pass through unchanged.
func (c *Client) absoluteURL(p string) string {
	if strings.Contains(p, "://") {
		return p
	}

	return c.baseURL + p
}

// requestOptions configures a single call through the pipeline.
type requestOptions struct {
	sign    bool
	timeout time.Duration // 0 means no context deadline is applied
}

// doJSON performs a control-plane call: serialize reqBody (if non-nil) as
// JSON, dispatch under timeout, and on 2xx decode the response into out (if
// non-nil). Implements §4.3 steps 1-6 for JSON endpoints.
func (c *Client) doJSON(ctx context.Context, method, rawURL string, reqBody any, opts requestOptions, out any) error {
	var body io.Reader

	if reqBody != nil {
		encoded, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("graph: encoding request body: %w", err)
		}

		body = bytes.NewReader(encoded)
	}

	resp, err := c.doControl(ctx, method, rawURL, body, reqBody != nil, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return fmt.Errorf("%w: empty response body", ErrParse)
		}

		return fmt.Errorf("%w: %v", ErrParse, err)
	}

	return nil
}

// doControl dispatches a single request under a hard context deadline
// (opts.timeout), used for every call except body streaming. The deadline
// also covers reading the response body, and is released when the body is
// closed. Returns the response with a non-2xx status already converted into
// a *GraphError.
func (c *Client) doControl(ctx context.Context, method, rawURL string, body io.Reader, hasJSONBody bool, opts requestOptions) (*http.Response, error) {
	if opts.timeout <= 0 {
		return c.do(ctx, method, rawURL, body, hasJSONBody, opts.sign)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)

	resp, err := c.do(ctx, method, rawURL, body, hasJSONBody, opts.sign)
	if err != nil {
		cancel()

		return nil, err
	}

	resp.Body = bindIdleTimeoutReader(ctx, cancel, resp.Body, 0)

	return resp, nil
}

// doStream dispatches a request whose body (request or response) is a
// potentially large stream. No overall context deadline is applied here;
// callers wrap the body in an idle-read timeout reader themselves, per §5
// and §9 ("Idle read timeouts").
func (c *Client) doStream(ctx context.Context, method, rawURL string, body io.Reader, sign bool) (*http.Response, error) {
	return c.do(ctx, method, rawURL, body, false, sign)
}

// uploadOptions configures an octet-stream body upload (simple put or a
// chunked fragment), which needs an explicit Content-Length and
// Content-Type rather than the JSON pipeline's defaults.
type uploadOptions struct {
	sign          bool
	contentLength int64
	contentRange  string // optional "bytes A-B/T" header
}

// doUpload dispatches a PUT carrying raw bytes, setting Content-Length and
// Content-Type: application/octet-stream explicitly so the body is not sent
// chunked-transfer-encoded, per §4.7/§4.8.
func (c *Client) doUpload(ctx context.Context, rawURL string, body io.Reader, opts uploadOptions) (*http.Response, error) {
	return c.do(ctx, http.MethodPut, rawURL, body, false, opts.sign, func(req *http.Request) {
		req.ContentLength = opts.contentLength
		req.Header.Set("Content-Type", "application/octet-stream")

		if opts.contentRange != "" {
			req.Header.Set("Content-Range", opts.contentRange)
		}
	})
}

// do is the shared low-level dispatch: wait the throttle gate, build the
// request, sign it unless told not to, send it, observe Retry-After, and
// classify any non-2xx status into a *GraphError.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, jsonBody bool, sign bool, mutators ...func(*http.Request)) (*http.Response, error) {
	rawURL = c.absoluteURL(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("graph: invalid URL %q: %w", rawURL, err)
	}

	if err := waitForHost(ctx, parsed.Host); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("graph: building request: %w", err)
	}

	for _, mutate := range mutators {
		mutate(req)
	}

	if jsonBody {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	req.Header.Set("X-Client-Request-Id", uuid.NewString())

	// Unsigned requests target pre-authenticated uploadUrls, which reject an
	// Authorization header outright — see §4.3 and §9.
	if sign {
		token, err := c.token.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("graph: acquiring token: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("graph: %s %s: %w", method, redactedURL(parsed), err)
	}

	observeRetryAfter(parsed.Host, resp.Header, time.Now())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.classifyErrorResponse(resp, parsed)
	}

	return resp, nil
}

// classifyErrorResponse reads a small body snippet for diagnostics and
// returns a *GraphError wrapping the matching sentinel, if any, per §7.
func (c *Client) classifyErrorResponse(resp *http.Response, parsed *url.URL) error {
	defer resp.Body.Close()

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	ge := &GraphError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("request-id"),
		Message:    string(snippet),
		Err:        classifyStatus(resp.StatusCode),
	}

	c.logger.Warn("graph request failed",
		slog.String("url", redactedURL(parsed)),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", ge.RequestID),
	)

	return ge
}

// redactedURL returns a URL string with the query stripped, since
// uploadUrls embed bearer-equivalent tokens in their query string and must
// never be logged in full, per §9.
func redactedURL(u *url.URL) string {
	clean := *u
	if clean.RawQuery != "" {
		clean.RawQuery = "REDACTED"
	}

	return clean.String()
}
