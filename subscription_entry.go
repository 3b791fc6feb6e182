package holonet

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/holonetio/holonet/executor"
	"github.com/holonetio/holonet/gqlerrors"
	"github.com/holonetio/holonet/requests"
	"github.com/vektah/gqlparser/v2/ast"
)

var errSubscriptionOnly = errors.New("operation is not a subscription")

// subscriptionEntry is one running subscription on a websocket connection.
// It owns the poll loop for its operation and remembers the last emitted
// payload so unchanged upstream data produces no frame.
type subscriptionEntry struct {
	id        string
	gateway   *Gateway
	request   *requests.Request
	operation *ast.OperationDefinition

	closeCh   chan struct{}
	closeOnce sync.Once
}

func (g *Gateway) newSubscriptionEntry(id string, request *requests.Request, operation *ast.OperationDefinition) *subscriptionEntry {
	return &subscriptionEntry{
		id:        id,
		gateway:   g,
		request:   request,
		operation: operation,
		closeCh:   make(chan struct{}),
	}
}

func (se *subscriptionEntry) Close() {
	se.closeOnce.Do(func() {
		close(se.closeCh)
	})
}

// resolve re-executes the subscription's field the same way a query would
// resolve it.
func (se *subscriptionEntry) resolve() *requests.Response {
	result, err := se.gateway.executor.Execute(&executor.ExecutionContext{
		Schema:    se.gateway.schema,
		Operation: se.operation,
		Request:   se.request,
		Resolvers: se.gateway.resolvers,
	})

	return &requests.Response{
		Errors: gqlerrors.FormatError(err),
		Data:   result,
	}
}

// Listen polls until the entry is closed or the connection dies. The first
// resolution emits unconditionally, later ones only on change.
func (se *subscriptionEntry) Listen(w *connWriter) {
	ticker := time.NewTicker(se.gateway.pollInterval)
	defer ticker.Stop()

	var last []byte

	emit := func() bool {
		resp := se.resolve()
		bResp, err := json.Marshal(requests.ServerSubMsg{
			ID:      se.id,
			Type:    requests.SubData,
			Payload: resp,
		})
		if err != nil {
			return false
		}
		// encoding/json sorts object keys, so identical payloads compare
		// byte-equal between polls
		if bytes.Equal(bResp, last) {
			return true
		}
		last = bResp
		if err := w.WriteText(bResp); err != nil {
			return false
		}
		return true
	}

	if !emit() {
		return
	}

	for {
		select {
		case <-ticker.C:
			if !emit() {
				return
			}
		case <-se.closeCh:
			return
		}
	}
}
