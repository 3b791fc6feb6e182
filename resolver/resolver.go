package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/holonetio/holonet/common"
	"github.com/holonetio/holonet/executor"
	"github.com/holonetio/holonet/schema"
	"github.com/holonetio/holonet/upstream"
	"github.com/samber/lo"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
)

// DefaultMaxConcurrency caps the relation fan-out so a single wide query
// can't flood the upstream API.
const DefaultMaxConcurrency = 16

// RootResolver maps the schema's entry points onto upstream REST calls.
type RootResolver struct {
	client         upstream.Client
	schema         *ast.Schema
	logger         *zap.Logger
	maxConcurrency int
}

// New returns a RootResolver fetching through the given client.
func New(client upstream.Client, s *ast.Schema) *RootResolver {
	return &RootResolver{
		client:         client,
		schema:         s,
		logger:         zap.NewNop(),
		maxConcurrency: DefaultMaxConcurrency,
	}
}

// WithLogger sets the logger used for per-resolution debug output
func (r *RootResolver) WithLogger(logger *zap.Logger) *RootResolver {
	r.logger = logger
	return r
}

// WithMaxConcurrency caps concurrent relation fetches; zero or negative
// removes the cap.
func (r *RootResolver) WithMaxConcurrency(n int) *RootResolver {
	r.maxConcurrency = n
	return r
}

// Fields returns the root object consumed by the executor: one resolver per
// declared query field. Subscription fields share the same resolvers, the
// gateway re-executes them per poll tick.
func (r *RootResolver) Fields() map[string]executor.FieldResolverFunc {
	return map[string]executor.FieldResolverFunc{
		"planet":     r.resolvePlanet,
		"allPlanets": r.resolveAllPlanets,
		"person":     r.resolvePerson,
	}
}

func (r *RootResolver) resolvePlanet(ctx context.Context, field *ast.Field, vars map[string]interface{}) (interface{}, error) {
	id, err := idArgument(field, vars)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.Get(ctx, r.client.Resource(schema.KindPlanets, id))
	if err != nil {
		return nil, err
	}

	return r.buildPlanet(ctx, raw, field.SelectionSet)
}

func (r *RootResolver) resolveAllPlanets(ctx context.Context, field *ast.Field, vars map[string]interface{}) (interface{}, error) {
	raws, err := r.client.GetList(ctx, r.client.Collection(schema.KindPlanets))
	if err != nil {
		return nil, err
	}

	type indexedPlanet struct {
		index  int
		planet map[string]interface{}
	}

	// resident resolution for every planet runs concurrently with its
	// siblings'; results land back at their upstream positions
	planets, errs := common.AsyncMapReduce(
		lo.Range(len(raws)),
		make([]interface{}, len(raws)),
		func(i int) (*indexedPlanet, error) {
			planet, err := r.buildPlanet(ctx, raws[i], field.SelectionSet)
			if err != nil {
				return nil, err
			}
			return &indexedPlanet{index: i, planet: planet}, nil
		},
		func(acc []interface{}, value *indexedPlanet) []interface{} {
			acc[value.index] = value.planet
			return acc
		},
	)
	if len(errs) > 0 {
		return nil, errs
	}

	return planets, nil
}

func (r *RootResolver) resolvePerson(ctx context.Context, field *ast.Field, vars map[string]interface{}) (interface{}, error) {
	id, err := idArgument(field, vars)
	if err != nil {
		return nil, err
	}

	raw, err := r.client.Get(ctx, r.client.Resource(schema.KindPeople, id))
	if err != nil {
		return nil, err
	}

	person := r.buildObject(schema.TypePerson, raw)

	if selectsField(field.SelectionSet, "homeworld") {
		homeworld, err := r.fetchHomeworld(ctx, raw)
		if err != nil {
			return nil, err
		}
		person["homeworld"] = homeworld
	}

	return person, nil
}

// buildPlanet shapes one upstream planet record, resolving residents only
// when the selection asks for them.
func (r *RootResolver) buildPlanet(ctx context.Context, raw map[string]interface{}, selectionSet ast.SelectionSet) (map[string]interface{}, error) {
	planet := r.buildObject(schema.TypePlanet, raw)

	if selectsField(selectionSet, "residents") {
		urls, err := relationURLs(raw, "residents")
		if err != nil {
			return nil, err
		}

		residents, err := r.FetchMany(ctx, urls, schema.TypePerson)
		if err != nil {
			return nil, err
		}
		planet["residents"] = residents
	}

	return planet, nil
}

func (r *RootResolver) fetchHomeworld(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	url, ok := raw["homeworld"].(string)
	if !ok || url == "" {
		return nil, nil
	}

	homeworld, err := r.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	return r.buildObject(schema.TypePlanet, homeworld), nil
}

// buildObject copies the scalar fields the schema declares for typename out
// of the raw upstream record and attaches the type tag. Relation fields are
// left out; their resolution is driven by the selection.
func (r *RootResolver) buildObject(typename string, raw map[string]interface{}) map[string]interface{} {
	def := r.schema.Types[typename]

	obj := map[string]interface{}{
		common.TypenameFieldName: typename,
	}

	for _, fd := range def.Fields {
		if common.IsBuiltinName(fd.Name) {
			continue
		}
		if fieldDef := r.schema.Types[fd.Type.Name()]; fieldDef != nil && fieldDef.IsCompositeType() {
			continue
		}
		if v, ok := raw[fd.Name]; ok {
			obj[fd.Name] = v
		}
	}

	return obj
}

func selectsField(selectionSet ast.SelectionSet, name string) bool {
	return lo.ContainsBy(common.SelectionSetToFields(selectionSet, nil), func(f *ast.Field) bool {
		return f.Name == name
	})
}

// relationURLs extracts the related-resource references stored under key.
func relationURLs(raw map[string]interface{}, key string) ([]string, error) {
	refs, ok := raw[key]
	if !ok || refs == nil {
		return nil, nil
	}

	list, ok := refs.([]interface{})
	if !ok {
		return nil, fmt.Errorf("relation %q is not a list of references", key)
	}

	urls := make([]string, len(list))
	for i, ref := range list {
		url, ok := ref.(string)
		if !ok {
			return nil, fmt.Errorf("relation %q contains a non-URL reference", key)
		}
		urls[i] = url
	}

	return urls, nil
}

// idArgument coerces the id argument of a root field into a string id.
func idArgument(field *ast.Field, vars map[string]interface{}) (string, error) {
	args := field.ArgumentMap(vars)

	switch id := args["id"].(type) {
	case string:
		if id == "" {
			return "", fmt.Errorf("field %q requires a non-empty id", field.Name)
		}
		return id, nil
	case json.Number:
		return id.String(), nil
	case int64:
		return fmt.Sprintf("%d", id), nil
	case float64:
		return fmt.Sprintf("%.0f", id), nil
	case nil:
		return "", fmt.Errorf("field %q requires an id argument", field.Name)
	default:
		return "", fmt.Errorf("field %q has an id of unsupported type %T", field.Name, id)
	}
}
