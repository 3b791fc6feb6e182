package upstream

import "errors"

var (
	errMissingResults = errors.New("collection envelope has no results array")
	errNotACollection = errors.New("expected a JSON array or a results envelope")
	errNotAnObject    = errors.New("collection element is not a JSON object")
)
