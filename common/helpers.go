package common

import (
	"strings"
	"sync"

	"github.com/holonetio/holonet/gqlerrors"
	"github.com/samber/lo"
	"github.com/vektah/gqlparser/v2/ast"
)

// TypenameFieldName is the key under which resolvers annotate every object
// with its declared type, so polymorphism-aware clients can disambiguate
// dynamically shaped results.
const TypenameFieldName = "__typename"

// IsBuiltinName reports whether name belongs to the introspection namespace.
func IsBuiltinName(name string) bool {
	return strings.HasPrefix(name, "__")
}

// AsyncMapReduce runs mapFunc over every payload element concurrently and
// folds results into acc through reduceFunc. Failed elements don't stop the
// others: their errors are accumulated and returned alongside whatever acc
// ended up holding. reduceFunc runs in a single goroutine, so it may mutate
// acc freely.
func AsyncMapReduce[T, P, A any](
	payload []T,
	acc A,
	mapFunc func(field T) (P, error),
	reduceFunc func(acc A, value P) A,
) (A, gqlerrors.ErrorList) {
	var errs gqlerrors.ErrorList
	var wg sync.WaitGroup

	wg.Add(len(payload))

	resChan := make(chan P)
	defer close(resChan)

	errChan := make(chan error)
	defer close(errChan)

	doneChan := make(chan struct{})
	defer close(doneChan)

	for _, value := range payload {
		go func(v T) {
			mapRes, err := mapFunc(v)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- mapRes
		}(value)
	}

	go func() {
		for {
			select {
			case res := <-resChan:
				acc = reduceFunc(acc, res)
				wg.Done()
			case err := <-errChan:
				errs = gqlerrors.ExtendErrorList(errs, err)
				wg.Done()
			case <-doneChan:
				return
			}
		}
	}()

	wg.Wait()

	doneChan <- struct{}{}

	if len(errs) > 0 {
		return acc, errs
	}

	return acc, nil
}

// SelectionSetToFields flattens a selection set into plain fields, expanding
// inline fragments and named fragment spreads. When parentDef is given,
// fields not declared on it and fragments with a different type condition
// are skipped.
func SelectionSetToFields(selectionSet ast.SelectionSet, parentDef *ast.Definition) []*ast.Field {
	var result []*ast.Field
	for _, s := range selectionSet {
		switch s := s.(type) {
		case *ast.Field:
			if parentDef != nil && !isDeclaredField(parentDef, s.Name) {
				continue
			}
			result = append(result, s)
		case *ast.InlineFragment:
			if parentDef != nil && s.TypeCondition != parentDef.Name {
				continue
			}
			result = append(result, SelectionSetToFields(s.SelectionSet, parentDef)...)
		case *ast.FragmentSpread:
			if s.Definition == nil {
				continue
			}
			if parentDef != nil && s.Definition.TypeCondition != parentDef.Name {
				continue
			}
			result = append(result, SelectionSetToFields(s.Definition.SelectionSet, parentDef)...)
		}
	}

	return result
}

func isDeclaredField(parentDef *ast.Definition, fieldname string) bool {
	if IsBuiltinName(fieldname) {
		return true
	}
	return lo.ContainsBy(parentDef.Fields, func(fd *ast.FieldDefinition) bool {
		return fd.Name == fieldname
	})
}
