package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// RequestMiddleware are functions that can be passed to a client to affect
// every outbound request before it's sent, f.e. to inject auth headers.
type RequestMiddleware func(*http.Request) error

// Client fetches raw resources from the upstream REST API.
type Client interface {
	// Get fetches a single resource and returns the parsed JSON object.
	Get(ctx context.Context, url string) (map[string]interface{}, error)
	// GetList fetches a collection endpoint. Both a bare JSON array and the
	// paginated {"results": [...]} envelope are accepted.
	GetList(ctx context.Context, url string) ([]map[string]interface{}, error)
	// Resource builds the URL of a single resource, f.e. Resource("planets", "1").
	Resource(kind, id string) string
	// Collection builds the URL of a resource collection.
	Collection(kind string) string
}

// RESTClient is the default Client implementation. It performs plain GETs
// against a single base URL, no retries, timeout taken from the underlying
// http.Client.
type RESTClient struct {
	baseURL string
	client  *http.Client
	mdwares []RequestMiddleware
	logger  *zap.Logger
	tracer  trace.Tracer
}

var _ Client = &RESTClient{}

// NewRESTClient returns a RESTClient rooted at the provided base URL.
func NewRESTClient(baseURL string) *RESTClient {
	return &RESTClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  zap.NewNop(),
		tracer:  otel.Tracer("holonet/upstream"),
	}
}

// WithHTTPClient lets the user configure the client to use when making network requests
func (c *RESTClient) WithHTTPClient(client *http.Client) *RESTClient {
	c.client = client
	return c
}

// WithMiddlewares lets the user assign middlewares to the client
func (c *RESTClient) WithMiddlewares(mwares []RequestMiddleware) *RESTClient {
	c.mdwares = mwares
	return c
}

// WithTimeout caps the total duration of each outbound request
func (c *RESTClient) WithTimeout(d time.Duration) *RESTClient {
	c.client.Timeout = d
	return c
}

// WithLogger sets the logger used for per-fetch debug output
func (c *RESTClient) WithLogger(logger *zap.Logger) *RESTClient {
	c.logger = logger
	return c
}

// BaseURL returns the configured upstream root.
func (c *RESTClient) BaseURL() string {
	return c.baseURL
}

func (c *RESTClient) Resource(kind, id string) string {
	return c.baseURL + "/" + kind + "/" + id
}

func (c *RESTClient) Collection(kind string) string {
	return c.baseURL + "/" + kind
}

// IDFromURL extracts the trailing numeric id of a resource URL, with or
// without a trailing slash, f.e. "https://host/people/1/" yields "1". The
// second return is false when the URL does not end in a numeric segment.
func IDFromURL(url string) (string, bool) {
	trimmed := strings.TrimRight(url, "/")

	id := trimmed
	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		id = trimmed[i+1:]
	}

	if id == "" {
		return "", false
	}
	for _, c := range id {
		if c < '0' || c > '9' {
			return "", false
		}
	}

	return id, true
}

func (c *RESTClient) Get(ctx context.Context, url string) (map[string]interface{}, error) {
	body, err := c.send(ctx, url)
	if err != nil {
		return nil, err
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}

	return result, nil
}

func (c *RESTClient) GetList(ctx context.Context, url string) ([]map[string]interface{}, error) {
	body, err := c.send(ctx, url)
	if err != nil {
		return nil, err
	}

	var payload interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}

	var items []interface{}
	switch v := payload.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		results, ok := v["results"].([]interface{})
		if !ok {
			return nil, &DecodeError{URL: url, Err: errMissingResults}
		}
		items = results
	default:
		return nil, &DecodeError{URL: url, Err: errNotACollection}
	}

	result := make([]map[string]interface{}, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &DecodeError{URL: url, Err: errNotAnObject}
		}
		result[i] = obj
	}

	return result, nil
}

func (c *RESTClient) send(ctx context.Context, url string) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "upstream.get", trace.WithAttributes(
		attribute.String("http.url", url),
	))
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &UpstreamError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	for _, mdware := range c.mdwares {
		if err := mdware(req); err != nil {
			return nil, &UpstreamError{URL: url, Err: err}
		}
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &UpstreamError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, &UpstreamError{URL: url, StatusCode: resp.StatusCode, Err: err}
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	c.logger.Debug("upstream fetch",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := newStatusError(url, resp.StatusCode)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return body, nil
}
