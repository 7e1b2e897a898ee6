package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultAttempts bounds every request: the first try plus two retries.
	DefaultAttempts = 3

	maxBodyBytes  = 16 << 20
	maxErrorBytes = 512
)

type Options struct {
	BaseURL        string
	Token          string
	Resource       string // listing resource, "Property" when empty
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
	RPS            float64 // 0 disables pacing
	Logger         *zap.Logger
	HTTPClient     *http.Client
}

// Client talks to a RESO/OData style feed. Every request is retried on
// transport errors and non-2xx statuses with linearly escalating waits.
type Client struct {
	baseURL  string
	token    string
	resource string
	http     *retryablehttp.Client
	limiter  *rate.Limiter
	log      *zap.Logger
}

func NewClient(o Options) *Client {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	resource := o.Resource
	if resource == "" {
		resource = "Property"
	}
	c := &Client{
		baseURL:  strings.TrimRight(o.BaseURL, "/"),
		token:    o.Token,
		resource: resource,
		log:      log.Named("feed"),
	}

	rc := retryablehttp.NewClient()
	if o.HTTPClient != nil {
		rc.HTTPClient = o.HTTPClient
	}
	rc.RetryMax = DefaultAttempts - 1
	rc.RetryWaitMin = o.RetryBaseDelay
	rc.RetryWaitMax = o.RetryBaseDelay
	rc.Backoff = LinearBackoff
	rc.CheckRetry = c.checkRetry
	rc.ErrorHandler = finalAttemptError
	rc.Logger = leveledLogger{c.log.Sugar()}
	if o.RequestTimeout > 0 {
		rc.HTTPClient.Timeout = o.RequestTimeout
	}
	c.http = rc

	if o.RPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.RPS), 1)
	}
	return c
}

// LinearBackoff waits base × attempt between tries, with no cap.
// retryablehttp passes the zero-based index of the failed try.
func LinearBackoff(base, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
	return base * time.Duration(attemptNum+1)
}

func (c *Client) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		target := ""
		var uerr *url.Error
		if errors.As(err, &uerr) {
			target = uerr.URL
		}
		c.log.Warn("feed request attempt failed", zap.String("url", target), zap.String("error", err.Error()))
		return true, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("feed request attempt failed",
			zap.String("url", resp.Request.URL.String()),
			zap.String("error", "unexpected status "+strconv.Itoa(resp.StatusCode)),
		)
		return true, nil
	}
	return false, nil
}

// finalAttemptError surfaces the last attempt's outcome instead of
// retryablehttp's generic "giving up" error.
func finalAttemptError(resp *http.Response, err error, numTries int) (*http.Response, error) {
	fe := &FetchError{Attempts: numTries, Err: err}
	if resp != nil {
		fe.StatusCode = resp.StatusCode
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		fe.Body = strings.TrimSpace(string(b))
		resp.Body.Close()
	}
	return nil, fe
}

// Ping is the credential smoke test: one single-row read of the listing resource.
func (c *Client) Ping(ctx context.Context) error {
	q := query{{"$top", "1"}}
	if _, err := c.getList(ctx, c.resourceURL(c.resource, q)); err != nil {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return nil
}

// Listings fetches one window of the listing resource. filter may be empty.
func (c *Client) Listings(ctx context.Context, w PageWindow, filter string) ([]RawListing, error) {
	q := query{{"$top", strconv.Itoa(w.Top())}, {"$skip", strconv.Itoa(w.Skip())}}
	if filter != "" {
		q = append(q, [2]string{"$filter", filter})
	}
	// $skip paging is only stable over a fixed order.
	q = append(q, [2]string{"$orderby", ModificationField})
	rows, err := c.getList(ctx, c.resourceURL(c.resource, q))
	if err != nil {
		return nil, err
	}
	out := make([]RawListing, len(rows))
	for i, r := range rows {
		out[i] = RawListing(r)
	}
	return out, nil
}

// Media lists the media rows attached to one listing.
func (c *Client) Media(ctx context.Context, listingKey string) ([]MediaAsset, error) {
	q := query{{"$filter", MediaFilter(c.resource, listingKey)}, {"$top", strconv.Itoa(MediaPageSize)}}
	rows, err := c.getList(ctx, c.resourceURL("Media", q))
	if err != nil {
		return nil, err
	}
	out := make([]MediaAsset, len(rows))
	for i, r := range rows {
		out[i] = MediaAsset(r)
	}
	return out, nil
}

// SinceFilter renders "<field> ge <timestamp>" with an OData datetime literal.
func SinceFilter(field string, t time.Time) string {
	return field + " ge " + t.UTC().Format(time.RFC3339Nano)
}

func MediaFilter(resource, listingKey string) string {
	return fmt.Sprintf("ResourceName eq '%s' and %s eq '%s'", odataQuote(resource), MediaRecordField, odataQuote(listingKey))
}

func odataQuote(s string) string { return strings.ReplaceAll(s, "'", "''") }

type query [][2]string

// encode keeps parameter order and uses %20 for spaces; some OData servers
// reject '+' inside $filter.
func (q query) encode() string {
	parts := make([]string, 0, len(q))
	for _, kv := range q {
		parts = append(parts, url.QueryEscape(kv[0])+"="+strings.ReplaceAll(url.QueryEscape(kv[1]), "+", "%20"))
	}
	return strings.Join(parts, "&")
}

func (c *Client) resourceURL(resource string, q query) string {
	return fmt.Sprintf("%s/%s?%s", c.baseURL, resource, q.encode())
}

func (c *Client) getList(ctx context.Context, u string) ([]map[string]any, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{URL: u, Err: err}
		}
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.URL = u
			return nil, fe
		}
		return nil, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	raw, err := ioReadAllLimit(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode, Attempts: 1, Err: err}
	}
	var env envelope[map[string]any]
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &FetchError{URL: u, StatusCode: resp.StatusCode, Attempts: 1, Err: fmt.Errorf("decode body: %w", err)}
	}
	return env.Value, nil
}

func ioReadAllLimit(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil { return nil, err }
	if int64(len(b)) > limit { return nil, errors.New("payload too large") }
	return b, nil
}

// leveledLogger routes retryablehttp's own messages to debug; attempt
// failures are already reported by checkRetry.
type leveledLogger struct{ s *zap.SugaredLogger }

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
