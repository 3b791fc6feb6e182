package executor

import (
	"context"
	"fmt"

	"github.com/holonetio/holonet/common"
	"github.com/holonetio/holonet/gqlerrors"
	"github.com/vektah/gqlparser/v2/ast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ParallelExecutor resolves every root field of an operation concurrently.
// A failed root field becomes an error entry while its siblings still
// resolve and return normally, so a query asking for several root fields
// degrades per field instead of failing as a whole.
type ParallelExecutor func(*ExecutionContext) (map[string]interface{}, error)

var _ Executor = ParallelExecutor(nil)

type rootFieldResult struct {
	field *ast.Field
	value interface{}
}

// Execute returns the pruned object graph for the operation's root fields.
func (executor ParallelExecutor) Execute(ctx *ExecutionContext) (map[string]interface{}, error) {
	reqCtx := context.Background()
	if ctx.Request != nil && ctx.Request.Original != nil {
		reqCtx = ctx.Request.Original.Context()
	}

	reqCtx, span := otel.Tracer("holonet/executor").Start(reqCtx, "graphql.execute")
	span.SetAttributes(attribute.String("graphql.operation.type", string(ctx.Operation.Operation)))
	defer span.End()

	var vars map[string]interface{}
	if ctx.Request != nil {
		vars = ctx.Request.Variables
	}

	rootDef := ctx.Schema.Types[rootTypeName(ctx.Operation)]
	fields := common.SelectionSetToFields(ctx.Operation.SelectionSet, rootDef)

	result, errs := common.AsyncMapReduce(
		fields,
		make(map[string]interface{}, len(fields)),
		func(f *ast.Field) (*rootFieldResult, error) {
			if f.Name == common.TypenameFieldName {
				return &rootFieldResult{field: f, value: rootTypeName(ctx.Operation)}, nil
			}

			resolve, ok := ctx.Resolvers[f.Name]
			if !ok {
				return nil, gqlerrors.NewError(
					gqlerrors.ValidationFailedError,
					fmt.Errorf("no resolver declared for field %q", f.Name),
				)
			}

			value, err := resolve(reqCtx, f, vars)
			if err != nil {
				return nil, err
			}

			return &rootFieldResult{field: f, value: value}, nil
		},
		func(acc map[string]interface{}, fr *rootFieldResult) map[string]interface{} {
			if fr.field.SelectionSet == nil {
				acc[fr.field.Alias] = fr.value
				return acc
			}
			acc[fr.field.Alias] = Project(ctx.Schema, fr.field.SelectionSet, fr.value)
			return acc
		},
	)

	if len(errs) > 0 {
		return result, errs
	}

	return result, nil
}

func rootTypeName(operation *ast.OperationDefinition) string {
	switch operation.Operation {
	case ast.Mutation:
		return "Mutation"
	case ast.Subscription:
		return "Subscription"
	default:
		return "Query"
	}
}
