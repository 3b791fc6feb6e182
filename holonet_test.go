package holonet

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/holonetio/holonet/gqlerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeUpstream spins up a REST API with one inhabited planet, one empty
// one and their residents.
func newFakeUpstream(t *testing.T) string {
	t.Helper()

	var baseURL string

	routes := map[string]string{
		"/planets":   `{"count": 2, "results": [{"name": "Tatooine", "diameter": "10465", "climate": "arid", "terrain": "desert", "residents": ["{base}/people/1", "{base}/people/2"]}, {"name": "Alderaan", "diameter": "12500", "climate": "temperate", "terrain": "grasslands, mountains", "residents": []}]}`,
		"/planets/1": `{"name": "Tatooine", "diameter": "10465", "climate": "arid", "terrain": "desert", "residents": ["{base}/people/1", "{base}/people/2"]}`,
		"/planets/2": `{"name": "Alderaan", "diameter": "12500", "climate": "temperate", "terrain": "grasslands, mountains", "residents": []}`,
		"/people/1":  `{"name": "Luke Skywalker", "gender": "male", "homeworld": "{base}/planets/1"}`,
		"/people/2":  `{"name": "C-3PO", "gender": "n/a", "homeworld": "{base}/planets/1"}`,
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(strings.ReplaceAll(body, "{base}", baseURL)))
	}))
	t.Cleanup(srv.Close)

	baseURL = srv.URL
	return baseURL
}

func newTestGateway(t *testing.T, options ...GatewayOption) *Gateway {
	t.Helper()

	gw, err := NewGateway(newFakeUpstream(t), options...)
	require.NoError(t, err)
	return gw
}

func postQuery(t *testing.T, gw *Gateway, body string) *httptest.ResponseRecorder {
	t.Helper()

	buf := &bytes.Buffer{}
	buf.WriteString(body)

	r, err := http.NewRequest("POST", "localhost", buf)
	require.NoError(t, err)

	f := http.HandlerFunc(gw.Handler)

	rr := httptest.NewRecorder()

	f(rr, r)

	return rr
}

func TestGatewayScenarioTatooine(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `{"query": "{ planet(id: 1) { name residents { name } } }"}`)

	assert.JSONEq(t,
		`{"data": {"planet": {"name": "Tatooine", "residents": [{"name": "Luke Skywalker"}, {"name": "C-3PO"}]}}}`,
		rr.Body.String(),
	)
}

func TestGatewayIdempotence(t *testing.T) {
	gw := newTestGateway(t)

	body := `{"query": "{ allPlanets { name terrain residents { name gender } } }"}`

	first := postQuery(t, gw, body)
	second := postQuery(t, gw, body)

	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestGatewayMissingQueryError(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `{}`)

	var res map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &res)

	assert.Equal(t, "missing query from request", res["errors"].([]interface{})[0].(map[string]interface{})["message"])
}

func TestGatewayWrongQueryError(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `{"query": "{ starship(id: 1) { name } }"}`)

	var res map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &res)

	assert.Equal(t, "Cannot query field \"starship\" on type \"Query\".", res["errors"].([]interface{})[0].(map[string]interface{})["message"])
}

func TestGatewayNotFound(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `{"query": "{ planet(id: 9999) { name } }"}`)

	var res struct {
		Data   map[string]interface{} `json:"data"`
		Errors gqlerrors.ErrorList    `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, gqlerrors.UpstreamNotFoundError, res.Errors[0].Extensions["code"])
	assert.NotContains(t, res.Data, "planet")
}

func TestGatewayPartialRootSuccess(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `{"query": "{ bad: planet(id: 9999) { name } good: planet(id: 2) { name } }"}`)

	var res struct {
		Data   map[string]interface{} `json:"data"`
		Errors gqlerrors.ErrorList    `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))

	// the failed root field surfaces as an error, its sibling still resolves
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, map[string]interface{}{"name": "Alderaan"}, res.Data["good"])
}

func TestGatewayBatch(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `[{"query": "{ planet(id: 1) { name } }"}, {"query": "{ person(id: 1) { name homeworld { name } } }"}]`)

	assert.JSONEq(t,
		`[
			{"data": {"planet": {"name": "Tatooine"}}},
			{"data": {"person": {"name": "Luke Skywalker", "homeworld": {"name": "Tatooine"}}}}
		]`,
		rr.Body.String(),
	)
}

func TestGatewayQueryString(t *testing.T) {
	gw := newTestGateway(t)

	params := url.Values{}
	params.Set("query", `{ planet(id: 1) { climate terrain } }`)

	r, err := http.NewRequest("GET", "localhost?"+params.Encode(), nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	http.HandlerFunc(gw.Handler)(rr, r)

	assert.JSONEq(t,
		`{"data": {"planet": {"climate": "arid", "terrain": "desert"}}}`,
		rr.Body.String(),
	)
}

func TestGatewayPlayground(t *testing.T) {
	gw := newTestGateway(t, WithDefaultPlayground())

	r, err := http.NewRequest("GET", "localhost", nil)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	http.HandlerFunc(gw.Handler)(rr, r)

	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "graphiql")
}

func TestGatewayIntrospection(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `{"query": "{ __schema { queryType { name } } }"}`)

	assert.JSONEq(t,
		`{"data": {"__schema": {"queryType": {"name": "Query"}}}}`,
		rr.Body.String(),
	)
}

func TestGatewaySubscriptionOverHTTPRejected(t *testing.T) {
	gw := newTestGateway(t)

	rr := postQuery(t, gw, `{"query": "subscription { planet(id: 1) { name } }"}`)

	var res map[string]interface{}
	json.Unmarshal(rr.Body.Bytes(), &res)

	assert.Equal(t, "subscriptions are only supported over websockets", res["errors"].([]interface{})[0].(map[string]interface{})["message"])
}

func TestGatewayMissingUpstreamURL(t *testing.T) {
	_, err := NewGateway("")
	assert.EqualError(t, err, "missing upstream base URL")
}
