package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lehigh-university-libraries/marvelous/internal/models"
	"github.com/lehigh-university-libraries/marvelous/internal/signer"
	"github.com/lehigh-university-libraries/marvelous/internal/telemetry"
)

// DefaultTimeout bounds a single request when no HTTP client is supplied
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a non-OK body is kept in the error message
const maxErrorBody = 512

// Doer executes HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the transport used to execute requests
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.httpClient = d
		}
	}
}

// WithDelivery sets the executor onto which Result callbacks are posted,
// e.g. a UI event loop. By default callbacks run on the resolving goroutine.
func WithDelivery(deliver func(func())) Option {
	return func(c *Client) {
		c.deliver = deliver
	}
}

// WithClock overrides the clock used for request timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.signer.Now = now
	}
}

// Client queries the characters endpoint. Every operation returns at once
// and performs its network I/O on its own goroutine.
type Client struct {
	signer     *signer.Signer
	httpClient Doer
	deliver    func(func())
	tracer     trace.Tracer
}

// NewClient creates a catalog client for the given endpoint and keys
func NewClient(baseURL, publicKey, privateKey string, opts ...Option) *Client {
	c := &Client{
		signer: signer.New(baseURL, publicKey, privateKey),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		tracer: telemetry.Tracer(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchDefault fetches the default first page of characters
func (c *Client) FetchDefault(ctx context.Context) *Result[*models.CatalogResponse] {
	return run(ctx, c, "default", signer.Query{}, func(resp *models.CatalogResponse) (*models.CatalogResponse, error) {
		return resp, nil
	})
}

// FetchPage fetches the page of characters defined by limit and offset
func (c *Client) FetchPage(ctx context.Context, limit, offset int) *Result[*models.Container] {
	return run(ctx, c, "page", signer.Page(limit, offset), func(resp *models.CatalogResponse) (*models.Container, error) {
		return resp.Data, nil
	})
}

// FetchExact fetches the character named exactly name
func (c *Client) FetchExact(ctx context.Context, name string) *Result[models.Record] {
	return run(ctx, c, "exact", signer.ByName(name), func(resp *models.CatalogResponse) (models.Record, error) {
		if len(resp.Data.Results) == 0 {
			return models.Record{}, &Error{
				Kind:    KindNotFound,
				Message: fmt.Sprintf("character matching %s not found", name),
			}
		}
		return resp.Data.Results[0], nil
	})
}

// FetchMatching fetches the characters whose name starts with prefix.
// An empty list is a valid outcome.
func (c *Client) FetchMatching(ctx context.Context, prefix string) *Result[[]models.Record] {
	return run(ctx, c, "matching", signer.ByPrefix(prefix), func(resp *models.CatalogResponse) ([]models.Record, error) {
		return resp.Data.Results, nil
	})
}

// FetchMatchingPage is FetchMatching with paging, returning the full envelope
func (c *Client) FetchMatchingPage(ctx context.Context, prefix string, limit, offset int) *Result[*models.CatalogResponse] {
	q := signer.ByPrefix(prefix)
	q.Limit, q.Offset = limit, offset
	return run(ctx, c, "matching_page", q, func(resp *models.CatalogResponse) (*models.CatalogResponse, error) {
		return resp, nil
	})
}

func run[T any](ctx context.Context, c *Client, op string, q signer.Query, project func(*models.CatalogResponse) (T, error)) *Result[T] {
	res := newResult[T](c.deliver)
	go func() {
		var zero T
		resp, err := c.do(ctx, op, q)
		if err != nil {
			res.resolve(zero, err)
			return
		}
		v, err := project(resp)
		if err != nil {
			res.resolve(zero, err)
			return
		}
		res.resolve(v, nil)
	}()
	return res
}

// do performs one signed request and classifies the outcome
func (c *Client) do(ctx context.Context, op string, q signer.Query) (resp *models.CatalogResponse, err error) {
	ctx, span := c.tracer.Start(ctx, "catalog."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer func() { telemetry.EndSpan(span, err) }()

	req, err := c.signer.Request(ctx, q)
	if err != nil {
		return nil, &Error{Kind: KindConfiguration, Err: err}
	}
	span.SetAttributes(attribute.String("http.url", redact(req.URL)))

	slog.Debug("Catalog request", "op", op, "url", redact(req.URL))
	start := time.Now()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Debug("Catalog request failed", "op", op, "err", err)
		return nil, transportError(err)
	}
	defer httpResp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", httpResp.StatusCode))
	slog.Debug("Catalog response", "op", op, "status", httpResp.StatusCode, "elapsed", time.Since(start))

	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, statusError(httpResp.StatusCode, string(body))
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, transportError(fmt.Errorf("failed to read response body: %w", err))
	}

	return ParseCharacterResponse(body)
}

// redact drops the hash parameter so signed URLs can be logged
func redact(u *url.URL) string {
	clean := *u
	q := clean.Query()
	if q.Has("hash") {
		q.Set("hash", "REDACTED")
	}
	clean.RawQuery = q.Encode()
	return clean.String()
}
