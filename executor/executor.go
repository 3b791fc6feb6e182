package executor

import (
	"context"

	"github.com/holonetio/holonet/requests"
	"github.com/vektah/gqlparser/v2/ast"
)

// FieldResolverFunc produces the value for one named entry point of the
// schema. It receives the requested field so it can coerce arguments and
// resolve relations lazily, only when the selection asks for them.
type FieldResolverFunc func(ctx context.Context, field *ast.Field, vars map[string]interface{}) (interface{}, error)

type ExecutionContext struct {
	Schema    *ast.Schema
	Operation *ast.OperationDefinition
	Request   *requests.Request
	Resolvers map[string]FieldResolverFunc
}

type Executor interface {
	Execute(*ExecutionContext) (map[string]interface{}, error)
}
