package requests

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Request represents single request send via HTTP
type Request struct {
	Original      *http.Request          `json:"-"`
	Query         string                 `json:"query"`
	Variables     map[string]interface{} `json:"variables"`
	OperationName *string                `json:"operationName"`
}

// ParseRequestResponse is the resulting object of Parse.
// It contains requests array and indicator, if request was running in batch mode.
type ParseRequestResponse struct {
	Requests    []*Request
	IsBatchMode bool
}

// Parse extracts graphql requests from an inbound HTTP request. POST bodies
// may carry a single {query, variables, operationName} object or a batch
// array of them; GET requests carry the same fields as query parameters.
func Parse(r *http.Request) (resp *ParseRequestResponse, finalErr error) {
	defer func() {
		if resp == nil {
			return
		}
		for _, req := range resp.Requests {
			req.Original = r
		}
	}()

	switch r.Method {
	case http.MethodGet:
		resp, finalErr = parseQueryString(r)
		return
	case http.MethodPost:
		contentType := strings.SplitN(r.Header.Get("Content-Type"), ";", 2)[0]

		switch contentType {
		case "text/plain", "application/json", "":
			requestBytes, err := io.ReadAll(r.Body)
			if err != nil {
				return nil, fmt.Errorf("encountered error reading body: %s", err)
			}
			resp, finalErr = parseRequest(requestBytes)
			return
		default:
			return nil, fmt.Errorf("unknown content-type: %s", contentType)
		}
	default:
		return nil, errors.New("only POST and GET requests are supported")
	}
}

// parseQueryString handles GET requests of the form ?query=...&variables=...
func parseQueryString(r *http.Request) (*ParseRequestResponse, error) {
	params := r.URL.Query()

	query := params.Get("query")
	if query == "" {
		return nil, errors.New("missing query from request")
	}

	request := &Request{Query: query}

	if rawVariables := params.Get("variables"); rawVariables != "" {
		if err := json.Unmarshal([]byte(rawVariables), &request.Variables); err != nil {
			return nil, fmt.Errorf("unable to parse variables: %s", err)
		}
	}

	if operationName := params.Get("operationName"); operationName != "" {
		request.OperationName = &operationName
	}

	return &ParseRequestResponse{
		Requests:    []*Request{request},
		IsBatchMode: false,
	}, nil
}

// parseRequest takes byte body of request and tries to parse it.
func parseRequest(body []byte) (*ParseRequestResponse, error) {
	if IsBatchMode(body) {
		// multiple objects case
		var multipleRequests []*Request

		if err := json.Unmarshal(body, &multipleRequests); err != nil {
			return nil, fmt.Errorf("unable to parse given request in batch mode: %s", body)
		}

		for _, r := range multipleRequests {
			if r.Query == "" {
				return nil, errors.New("missing query from request")
			}
		}

		return &ParseRequestResponse{
			Requests:    multipleRequests,
			IsBatchMode: true,
		}, nil
	}

	// single object case
	var singleRequest Request
	if err := json.Unmarshal(body, &singleRequest); err != nil {
		return nil, fmt.Errorf("unable to parse given request in single mode: %s", body)
	}

	if singleRequest.Query == "" {
		return nil, errors.New("missing query from request")
	}

	return &ParseRequestResponse{
		Requests:    []*Request{&singleRequest},
		IsBatchMode: false,
	}, nil
}

func IsBatchMode(body []byte) bool {
	for _, c := range body {
		if c == '[' {
			return true
		}
		if c == '{' {
			return false
		}
	}

	return false
}
