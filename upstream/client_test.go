package upstream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(req *http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestNewRESTClient(t *testing.T) {
	client := NewRESTClient("http://api.example.com/")

	assert.Equal(t, "http://api.example.com", client.BaseURL())
	assert.Equal(t, "http://api.example.com/planets/1", client.Resource("planets", "1"))
	assert.Equal(t, "http://api.example.com/people", client.Collection("people"))
}

func TestIDFromURL(t *testing.T) {
	for _, tc := range []struct {
		url string
		id  string
		ok  bool
	}{
		{url: "http://api.example.com/people/1", id: "1", ok: true},
		{url: "http://api.example.com/people/42/", id: "42", ok: true},
		{url: "http://api.example.com/people/", ok: false},
		{url: "http://api.example.com/people/luke", ok: false},
		{url: "http://api.example.com/people/1x", ok: false},
		{url: "", ok: false},
	} {
		id, ok := IDFromURL(tc.url)
		assert.Equal(t, tc.ok, ok, "url %q", tc.url)
		assert.Equal(t, tc.id, id, "url %q", tc.url)
	}
}

func TestRESTClientGet(t *testing.T) {
	client := NewRESTClient("http://api").WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			assert.Equal(t, http.MethodGet, req.Method)
			return jsonResponse(200, `{"name": "Tatooine", "climate": "arid"}`)
		}),
	})

	res, err := client.Get(context.Background(), "http://api/planets/1")
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"name": "Tatooine", "climate": "arid"}, res)
}

func TestRESTClientGetNotFound(t *testing.T) {
	client := NewRESTClient("http://api").WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return jsonResponse(404, `{"detail": "Not found"}`)
		}),
	})

	_, err := client.Get(context.Background(), "http://api/planets/9999")
	require.Error(t, err)

	var notFoundErr *NotFoundError
	assert.True(t, errors.As(err, &notFoundErr))
	assert.Equal(t, "http://api/planets/9999", notFoundErr.URL)
}

func TestRESTClientGetUpstreamError(t *testing.T) {
	client := NewRESTClient("http://api").WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return jsonResponse(502, `upstream exploded`)
		}),
	})

	_, err := client.Get(context.Background(), "http://api/planets/1")
	require.Error(t, err)

	var upstreamErr *UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
	assert.Equal(t, 502, upstreamErr.StatusCode)

	var notFoundErr *NotFoundError
	assert.False(t, errors.As(err, &notFoundErr))
}

func TestRESTClientGetDecodeError(t *testing.T) {
	client := NewRESTClient("http://api").WithHTTPClient(&http.Client{
		Transport: roundTripFunc(func(req *http.Request) *http.Response {
			return jsonResponse(200, `this is not json`)
		}),
	})

	_, err := client.Get(context.Background(), "http://api/planets/1")
	require.Error(t, err)

	var decodeErr *DecodeError
	assert.True(t, errors.As(err, &decodeErr))
}

func TestRESTClientGetNetworkError(t *testing.T) {
	// server that's already gone
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewRESTClient(url)

	_, err := client.Get(context.Background(), url+"/planets/1")
	require.Error(t, err)

	var upstreamErr *UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
	assert.Zero(t, upstreamErr.StatusCode)
}

func TestRESTClientGetList(t *testing.T) {
	for _, tc := range []struct {
		name string
		body string
	}{
		{name: "bare array", body: `[{"name": "Tatooine"}, {"name": "Alderaan"}]`},
		{name: "results envelope", body: `{"count": 2, "results": [{"name": "Tatooine"}, {"name": "Alderaan"}]}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			client := NewRESTClient("http://api").WithHTTPClient(&http.Client{
				Transport: roundTripFunc(func(req *http.Request) *http.Response {
					return jsonResponse(200, tc.body)
				}),
			})

			res, err := client.GetList(context.Background(), "http://api/planets")
			require.NoError(t, err)

			require.Len(t, res, 2)
			assert.Equal(t, "Tatooine", res[0]["name"])
			assert.Equal(t, "Alderaan", res[1]["name"])
		})
	}
}

func TestRESTClientGetListMalformed(t *testing.T) {
	for _, body := range []string{
		`"just a string"`,
		`{"count": 2}`,
		`[1, 2, 3]`,
		`not json at all`,
	} {
		client := NewRESTClient("http://api").WithHTTPClient(&http.Client{
			Transport: roundTripFunc(func(req *http.Request) *http.Response {
				return jsonResponse(200, body)
			}),
		})

		_, err := client.GetList(context.Background(), "http://api/planets")

		var decodeErr *DecodeError
		assert.True(t, errors.As(err, &decodeErr), "body %q should fail decoding", body)
	}
}

func TestRESTClientMiddlewares(t *testing.T) {
	var seenAuth string
	client := NewRESTClient("http://api").
		WithHTTPClient(&http.Client{
			Transport: roundTripFunc(func(req *http.Request) *http.Response {
				seenAuth = req.Header.Get("Authorization")
				return jsonResponse(200, `{}`)
			}),
		}).
		WithMiddlewares([]RequestMiddleware{
			func(req *http.Request) error {
				req.Header.Set("Authorization", "Bearer token")
				return nil
			},
		})

	_, err := client.Get(context.Background(), "http://api/planets/1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer token", seenAuth)
}

func TestRESTClientMiddlewareError(t *testing.T) {
	client := NewRESTClient("http://api").WithMiddlewares([]RequestMiddleware{
		func(req *http.Request) error {
			return errors.New("no credentials")
		},
	})

	_, err := client.Get(context.Background(), "http://api/planets/1")

	var upstreamErr *UpstreamError
	assert.True(t, errors.As(err, &upstreamErr))
}
