package executor

import (
	"github.com/holonetio/holonet/common"
	"github.com/vektah/gqlparser/v2/ast"
)

// Project prunes a resolved object graph down to the requested selection.
// Resolvers return complete objects; the executor, not the resolvers, owns
// field selection. Requested fields the resolvers did not populate project
// to null, which is how relation nesting stays capped at one level.
func Project(schema *ast.Schema, selectionSet ast.SelectionSet, value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case []interface{}:
		projected := make([]interface{}, len(v))
		for i, item := range v {
			projected[i] = Project(schema, selectionSet, item)
		}
		return projected
	case []map[string]interface{}:
		projected := make([]interface{}, len(v))
		for i, item := range v {
			projected[i] = Project(schema, selectionSet, item)
		}
		return projected
	case map[string]interface{}:
		return projectObject(schema, selectionSet, v)
	default:
		// scalar leaf
		return v
	}
}

func projectObject(schema *ast.Schema, selectionSet ast.SelectionSet, obj map[string]interface{}) map[string]interface{} {
	typename, _ := obj[common.TypenameFieldName].(string)

	var def *ast.Definition
	if typename != "" {
		def = schema.Types[typename]
	}

	result := make(map[string]interface{})
	for _, f := range common.SelectionSetToFields(selectionSet, def) {
		if f.Name == common.TypenameFieldName {
			result[f.Alias] = typename
			continue
		}

		fieldValue, ok := obj[f.Name]
		if !ok {
			result[f.Alias] = nil
			continue
		}

		if f.SelectionSet == nil {
			result[f.Alias] = fieldValue
			continue
		}

		result[f.Alias] = Project(schema, f.SelectionSet, fieldValue)
	}

	return result
}
