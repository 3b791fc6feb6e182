package gqlerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/holonetio/holonet/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

func TestError(t *testing.T) {
	err := NewError("code", errors.New("error"))

	assert.Equal(t, "error", err.Error())
	assert.Equal(t, err.Extensions["code"], "code")

	l := ErrorList{err, err}

	assert.Equal(t, "error. error", l.Error())
}

func TestExtendError(t *testing.T) {
	expected := ErrorList{NewError(UndefinedError, errors.New("test")), NewError(UndefinedError, errors.New("error"))}
	for _, e := range []error{
		NewError(UndefinedError, errors.New("error")),
		ErrorList{NewError(UndefinedError, errors.New("error"))},
		&gqlerror.Error{Message: "error"},
		gqlerror.List{&gqlerror.Error{Message: "error"}},
		errors.New("error"),
	} {
		err := ErrorList{NewError(UndefinedError, errors.New("test"))}
		actual := ExtendErrorList(err, e)
		bExpected, _ := json.Marshal(expected)
		bActual, _ := json.Marshal(actual)
		assert.JSONEq(t, string(bExpected), string(bActual))
	}
}

func TestFormatError(t *testing.T) {
	expected := ErrorList{NewError(UndefinedError, errors.New("error"))}
	for _, e := range []error{
		NewError(UndefinedError, errors.New("error")),
		ErrorList{NewError(UndefinedError, errors.New("error"))},
		&gqlerror.Error{Message: "error"},
		gqlerror.List{&gqlerror.Error{Message: "error"}},
		errors.New("error"),
	} {
		actual := FormatError(e)
		bExpected, _ := json.Marshal(expected)
		bActual, _ := json.Marshal(actual)
		assert.JSONEq(t, string(bExpected), string(bActual))
	}
}

func TestFormatErrorNilValue(t *testing.T) {
	actual := FormatError(nil)
	assert.Nil(t, actual)
}

func TestFormatErrorUpstreamCodes(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code string
	}{
		{&upstream.UpstreamError{URL: "http://api/planets/1", StatusCode: 500}, UpstreamFailedError},
		{&upstream.NotFoundError{UpstreamError: upstream.UpstreamError{URL: "http://api/planets/9999", StatusCode: 404}}, UpstreamNotFoundError},
		{&upstream.DecodeError{URL: "http://api/planets/1", Err: errors.New("bad json")}, DecodeFailedError},
		{fmt.Errorf("fetch residents: %w", &upstream.UpstreamError{URL: "http://api/people/1", StatusCode: 502}), UpstreamFailedError},
	} {
		actual := FormatError(tc.err)
		assert.Len(t, actual, 1)
		assert.Equal(t, tc.code, actual[0].Extensions["code"])
		assert.Equal(t, tc.err.Error(), actual[0].Message)
	}
}

func TestFormatErrorComplicatedGQLError(t *testing.T) {
	err := &gqlerror.Error{
		Message:   "hello",
		Locations: []gqlerror.Location{{Line: 1, Column: 1}},
		Path:      ast.Path{ast.PathName("path")},
		Extensions: map[string]interface{}{
			"smth": 42,
		},
	}
	actual := FormatError(err)

	bActual, _ := json.Marshal(actual)

	assert.JSONEq(t, `[{"message": "hello", "path": ["path"], "extensions": {"smth": 42}, "locations": [{"line": 1, "column": 1}]}]`, string(bActual))
}
