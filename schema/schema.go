// Package schema declares the types and entry points the gateway exposes.
// The declaration is static: the upstream REST API serves exactly these two
// resource families and the gateway maps them one to one.
package schema

import (
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// Type tags attached to every resolved object under __typename.
const (
	TypePlanet = "Planet"
	TypePerson = "Person"
)

// Upstream collection names the declared types map to.
const (
	KindPlanets = "planets"
	KindPeople  = "people"
)

// SDL is the exposed schema. Relations nest exactly one level per
// direction: Planet→residents and Person→homeworld. Deeper selections
// validate but resolve to null.
const SDL = `
type Planet {
	name: String
	diameter: String
	climate: String
	terrain: String
	residents: [Person!]!
}

type Person {
	name: String
	gender: String
	homeworld: Planet
}

type Query {
	planet(id: ID!): Planet
	allPlanets: [Planet!]!
	person(id: ID!): Person
}

type Subscription {
	planet(id: ID!): Planet
	person(id: ID!): Person
}
`

// Load parses and validates the SDL.
func Load() (*ast.Schema, error) {
	s, err := gqlparser.LoadSchema(&ast.Source{Name: "holonet", Input: SDL})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MustLoad is Load for wiring paths where the static SDL is known good.
func MustLoad() *ast.Schema {
	return gqlparser.MustLoadSchema(&ast.Source{Name: "holonet", Input: SDL})
}
