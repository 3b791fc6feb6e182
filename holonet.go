// Package holonet is a schema-mapping gateway: it exposes the planets and
// people resources of an upstream REST API through a single graphql
// endpoint, translating requested fields into outbound GETs and stitching
// the results into the requested shape.
package holonet

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/holonetio/holonet/common"
	"github.com/holonetio/holonet/executor"
	"github.com/holonetio/holonet/gqlerrors"
	"github.com/holonetio/holonet/introspection"
	"github.com/holonetio/holonet/playground"
	"github.com/holonetio/holonet/requests"
	"github.com/holonetio/holonet/resolver"
	"github.com/holonetio/holonet/schema"
	"github.com/holonetio/holonet/upstream"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// DefaultPollInterval is how often subscription entries re-resolve their
// field against the upstream.
const DefaultPollInterval = 5 * time.Second

type Gateway struct {
	schema             *ast.Schema
	executor           executor.Executor
	resolvers          map[string]executor.FieldResolverFunc
	client             upstream.Client
	logger             *zap.Logger
	playgroundProvider playground.PlaygroundProvider
	pollInterval       time.Duration
	maxConcurrency     int
}

type GatewayOption func(*Gateway)

func WithExecutor(e executor.Executor) GatewayOption {
	return func(g *Gateway) {
		g.executor = e
	}
}

// WithUpstreamClient replaces the default REST client, f.e. with one
// carrying auth middlewares or a custom transport.
func WithUpstreamClient(c upstream.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = c
	}
}

func WithLogger(logger *zap.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMaxConcurrency caps concurrent relation fetches per resolution.
func WithMaxConcurrency(n int) GatewayOption {
	return func(g *Gateway) {
		g.maxConcurrency = n
	}
}

// WithPollInterval sets how often subscriptions re-resolve their field.
func WithPollInterval(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.pollInterval = d
	}
}

func WithDefaultPlayground() GatewayOption {
	return func(g *Gateway) {
		var pp playground.DefaultPlayground
		g.playgroundProvider = pp
	}
}

func WithPlaygroundProvider(pp playground.PlaygroundProvider) GatewayOption {
	return func(g *Gateway) {
		g.playgroundProvider = pp
	}
}

// NewGateway wires the static schema and the field resolvers against the
// upstream REST API rooted at upstreamURL.
func NewGateway(upstreamURL string, options ...GatewayOption) (*Gateway, error) {
	g := new(Gateway)

	for _, optionFunc := range options {
		optionFunc(g)
	}

	if g.logger == nil {
		g.logger = zap.NewNop()
	}

	if g.executor == nil {
		var e executor.ParallelExecutor
		g.executor = e
	}

	if g.maxConcurrency == 0 {
		g.maxConcurrency = resolver.DefaultMaxConcurrency
	}

	if g.pollInterval == 0 {
		g.pollInterval = DefaultPollInterval
	}

	if g.client == nil {
		if upstreamURL == "" {
			return nil, errors.New("missing upstream base URL")
		}
		g.client = upstream.NewRESTClient(upstreamURL).WithLogger(g.logger)
	}

	s, err := schema.Load()
	if err != nil {
		return nil, fmt.Errorf("unable to load schema: %w", err)
	}
	g.schema = s

	g.resolvers = resolver.New(g.client, s).
		WithLogger(g.logger).
		WithMaxConcurrency(g.maxConcurrency).
		Fields()

	return g, nil
}

type Result struct {
	Errors gqlerrors.ErrorList    `json:"errors,omitempty"`
	Data   map[string]interface{} `json:"data"`

	index int `json:"-"`
}

type Results []*Result

func (rs Results) Emit(w http.ResponseWriter, isBatch bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	e := json.NewEncoder(w)
	if isBatch {
		e.Encode(rs)
	} else {
		e.Encode(rs[0])
	}
}

// queryHandler responds to query documents sent as a POST body, single
// {query, variables, operationName} object or a batch array of them, or as
// GET query parameters.
func (g *Gateway) queryHandler(w http.ResponseWriter, r *http.Request) {
	rs, err := requests.Parse(r)
	if err != nil {
		emitError(
			w,
			http.StatusUnprocessableEntity,
			err,
		)
		return
	}

	results, _ := common.AsyncMapReduce(
		lo.Range(len(rs.Requests)),
		make(Results, len(rs.Requests)),
		func(index int) (*Result, error) {
			result := g.handleRequest(rs.Requests[index])
			result.index = index
			return result, nil
		},
		func(acc Results, value *Result) Results {
			acc[value.index] = value
			return acc
		},
	)

	results.Emit(w, rs.IsBatchMode)
}

// handleRequest resolves one query document into a result envelope. No error
// here is fatal: every failure becomes an error entry.
func (g *Gateway) handleRequest(request *requests.Request) *Result {
	query, qerr := gqlparser.LoadQuery(g.schema, request.Query)
	if qerr != nil {
		return &Result{
			Errors: gqlerrors.FormatError(qerr),
			Data:   nil,
		}
	}

	operation, err := pickOperation(query, request.OperationName)
	if err != nil {
		return &Result{
			Errors: gqlerrors.ErrorList{
				gqlerrors.NewError(gqlerrors.ValidationFailedError, err),
			},
			Data: nil,
		}
	}

	if operation.Operation == ast.Subscription {
		return &Result{
			Errors: gqlerrors.ErrorList{
				gqlerrors.NewError(
					gqlerrors.ValidationFailedError,
					errors.New("subscriptions are only supported over websockets"),
				),
			},
			Data: nil,
		}
	}

	// introspection selections resolve locally against the static schema
	ir := &introspection.Resolver{Variables: request.Variables}
	if introspectionFields := ir.ResolveIntrospectionFields(operation.SelectionSet, g.schema); introspectionFields != nil {
		return &Result{
			Data:   introspectionFields,
			Errors: nil,
		}
	}

	result, err := g.executor.Execute(&executor.ExecutionContext{
		Schema:    g.schema,
		Operation: operation,
		Request:   request,
		Resolvers: g.resolvers,
	})

	return &Result{
		Errors: gqlerrors.FormatError(err),
		Data:   result,
	}
}

func pickOperation(query *ast.QueryDocument, operationName *string) (*ast.OperationDefinition, error) {
	var operation *ast.OperationDefinition
	if operationName != nil {
		operation = query.Operations.ForName(*operationName)
	} else if len(query.Operations) == 1 {
		operation = query.Operations[0]
	}

	if operation == nil {
		if operationName != nil {
			return nil, fmt.Errorf(
				"unable to extract query for operation %s",
				*operationName,
			)
		}
		return nil, errors.New("many queries provided, but no operationName")
	}

	return operation, nil
}

func emitError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	resp := map[string]interface{}{
		"data":   nil,
		"errors": gqlerrors.FormatError(err),
	}

	e := json.NewEncoder(w)
	e.Encode(resp)
}

// Handler is the single HTTP entry point: websocket upgrades go to the
// subscription handler, GETs without a query document show the playground
// when one is configured, everything else is treated as a query.
func (g *Gateway) Handler(w http.ResponseWriter, r *http.Request) {
	if isWebsocketUpgrade(r) {
		g.subscriptionHandler(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Query().Get("query") == "" && g.playgroundProvider != nil {
		g.playgroundProvider.ServePlayground(w, r)
		return
	}

	g.queryHandler(w, r)
}

func isWebsocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket")
}
