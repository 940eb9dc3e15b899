package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/oshokin/installer-uploader/internal/domain/installer"
	"github.com/oshokin/installer-uploader/internal/logger"
	"github.com/oshokin/installer-uploader/internal/version"
)

const (
	infoPath       = "api/info"
	loginPath      = "api/auth/login"
	currentUser    = "api/users/me"
	installersPath = "api/desktop/installers"

	// maxErrorBody caps how much of an error response is read for the message.
	maxErrorBody = 4 << 10

	defaultCallTimeout = 30 * time.Second
)

var (
	// ErrUnexpectedResponse marks registry answers that fit no other class.
	ErrUnexpectedResponse = errors.New("unexpected registry response")

	errEndpointRequired = errors.New("registry endpoint must be provided")
)

// Session is an authenticated connection to the registry.
type Session struct {
	// baseURL is the registry root, e.g. https://ayon.example.com.
	baseURL *url.URL
	// client performs requests; it is configured never to retry.
	client *retryablehttp.Client
	// auth holds the headers proven valid during Connect.
	auth http.Header
	// callTimeout bounds every call except uploads.
	callTimeout time.Duration
	// progress receives the upload progress bar when set.
	progress io.Writer
}

// Option configures a Session.
type Option func(*Session)

// WithCallTimeout bounds every registry call except the binary upload.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		if timeout > 0 {
			s.callTimeout = timeout
		}
	}
}

// WithProgressOutput renders an upload progress bar to w.
func WithProgressOutput(w io.Writer) Option {
	return func(s *Session) {
		s.progress = w
	}
}

// newSession builds an unauthenticated session.
func newSession(ctx context.Context, endpoint string, opts ...Option) (*Session, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %w", installer.ErrConfiguration, errEndpointRequired)
	}

	baseURL, err := url.ParseRequestURI(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid registry endpoint: %w", installer.ErrConfiguration, err)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = cleanhttp.DefaultPooledClient()
	client.RetryMax = 0
	client.CheckRetry = neverRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = logger.NewLeveled(ctx)

	s := &Session{
		baseURL:     baseURL,
		client:      client,
		auth:        make(http.Header),
		callTimeout: defaultCallTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// neverRetry stops after the first attempt and hands the transport error
// back to the caller unchanged.
func neverRetry(ctx context.Context, _ *http.Response, err error) (bool, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	return false, err
}

// callContext returns a context bounded by the session call timeout.
func (s *Session) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.callTimeout)
}

// newRequest builds a request against a path below the registry root.
// escapedPath must already be URL-escaped.
func (s *Session) newRequest(
	ctx context.Context,
	method string,
	escapedPath string,
	body any,
	header http.Header,
) (*retryablehttp.Request, error) {
	target := s.baseURL.JoinPath(escapedPath)

	req, err := retryablehttp.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", method, err)
	}

	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	for key, values := range header {
		req.Header[key] = values
	}

	return req, nil
}

// call performs a bounded request with an optional JSON payload and decodes
// a JSON answer into out when out is not nil.
func (s *Session) call(
	ctx context.Context,
	action, method, escapedPath string,
	header http.Header,
	payload, out any,
) error {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	var body any

	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("%s: encode payload: %w", action, err)
		}

		body = encoded
	}

	req, err := s.newRequest(callCtx, method, escapedPath, body, header)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.do(req, action)
	if err != nil {
		return err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: %w: decode answer: %w", action, ErrUnexpectedResponse, err)
	}

	return nil
}

// do sends req and turns transport failures and non-2xx answers into classified errors.
// On success the caller owns the response body.
func (s *Session) do(req *retryablehttp.Request, action string) (*http.Response, error) {
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", action, installer.ErrRegistryUnavailable, err)
	}

	if err = checkResponse(resp, action); err != nil {
		_ = resp.Body.Close()

		return nil, err
	}

	return resp, nil
}

// errorAnswer is the error body shape the registry uses.
type errorAnswer struct {
	Detail string `json:"detail"`
}

// checkResponse classifies a response by status code.
func checkResponse(resp *http.Response, action string) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	detail := strings.TrimSpace(string(raw))

	var answer errorAnswer
	if json.Unmarshal(raw, &answer) == nil && answer.Detail != "" {
		detail = answer.Detail
	}

	var class error

	switch code := resp.StatusCode; {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		class = installer.ErrAuthentication
	case code == http.StatusConflict:
		class = installer.ErrConflict
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		class = installer.ErrRegistryUnavailable
	default:
		class = ErrUnexpectedResponse
	}

	if detail == "" {
		return fmt.Errorf("%s: %w: %s", action, class, resp.Status)
	}

	return fmt.Errorf("%s: %w: %s: %s", action, class, resp.Status, detail)
}
