package holonet

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/holonetio/holonet/gqlerrors"
	"github.com/holonetio/holonet/requests"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"go.uber.org/zap"
)

type subscriptionDict map[string]*subscriptionEntry

func (sd subscriptionDict) Clean(key string) {
	if subEntry, ok := sd[key]; ok {
		go subEntry.Close()
		delete(sd, key)
	}
}

func (sd subscriptionDict) CleanAll() {
	for key := range sd {
		sd.Clean(key)
	}
}

// connWriter serializes frame writes: the heartbeat goroutine and every
// entry's poll goroutine share one connection.
type connWriter struct {
	mu   sync.Mutex
	conn net.Conn
}

func (w *connWriter) WriteText(msg []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wsutil.WriteServerText(w.conn, msg)
}

func (w *connWriter) WriteClose() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
	frame := ws.NewCloseFrame(body)
	if err := ws.WriteHeader(w.conn, frame.Header); err != nil {
		return err
	}
	_, err := w.conn.Write(body)
	return err
}

func sendHeartbeat(w *connWriter, closeCh <-chan struct{}) error {
	timeTicker := time.NewTicker(time.Second * 4)
	defer timeTicker.Stop()

	bMsg, err := json.Marshal(requests.ServerSubMsg{Type: requests.SubConnectionKeepAlive})
	if err != nil {
		return err
	}
	for {
		select {
		case <-timeTicker.C:
			if err := w.WriteText(bMsg); err != nil {
				return err
			}
		case <-closeCh:
			return nil
		}
	}
}

// subscriptionHandler speaks the graphql-ws protocol over a websocket. The
// upstream REST API has no push channel, so each started operation polls:
// the field re-resolves on the gateway's poll interval and a data frame goes
// out whenever the resolved payload changes.
func (g *Gateway) subscriptionHandler(w http.ResponseWriter, r *http.Request) {
	upgrader := ws.HTTPUpgrader{
		Timeout: time.Second * 60,
		Protocol: func(subprotocol string) bool {
			return string(subprotocol) == "graphql-ws"
		},
	}

	conn, _, _, err := upgrader.Upgrade(r, w)
	if err != nil {
		return
	}

	subDict := make(subscriptionDict)

	writer := &connWriter{conn: conn}

	closeCh := make(chan struct{})

	stopConnFn := func() {
		defer func() {
			recover()
		}()
		// gracefully close connection
		if err := writer.WriteClose(); err != nil {
			return
		}

		// the heartbeat goroutine, if any, listens on closeCh
		close(closeCh)

		// close all running handlers
		subDict.CleanAll()

		// close conn
		conn.Close()
	}

	defer stopConnFn()

	initialized := false

	for {
		msg, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}

		var subMsg requests.ClientSubMsg
		if err := json.Unmarshal(msg, &subMsg); err != nil {
			return
		}

		switch subMsg.Type {
		// when the connection is initiated, send an ACK back and start the
		// keep-alive ticker; a repeated init is acked without spawning a
		// second ticker
		case requests.SubConnectionInit:
			resp := requests.ServerSubMsg{
				Type: requests.SubConnectionAck,
			}
			bresp, err := json.Marshal(resp)
			if err != nil {
				return
			}
			if err := writer.WriteText(bresp); err != nil {
				return
			}
			if !initialized {
				initialized = true
				go sendHeartbeat(writer, closeCh)
			}

		// start polling the requested field
		case requests.SubStart:
			request := subMsg.Payload
			if request == nil {
				return
			}
			request.Original = r

			operation, opErr := g.loadSubscriptionOperation(request)
			if opErr != nil {
				bErr, err := json.Marshal(requests.ServerSubErrorMsg{
					ID:      subMsg.ID,
					Type:    requests.SubError,
					Payload: gqlerrors.FormatError(opErr),
				})
				if err != nil {
					return
				}
				if err := writer.WriteText(bErr); err != nil {
					return
				}
				continue
			}

			subEntry := g.newSubscriptionEntry(subMsg.ID, request, operation)

			subDict[subMsg.ID] = subEntry

			go subEntry.Listen(writer)

		// stop running operations
		case requests.SubStop:
			subDict.Clean(subMsg.ID)

		// when the connection is terminated by the client, close the
		// connection and all the running operations
		case requests.SubConnectionTerminate:
			subDict.CleanAll()
			return

		// protocol messages that are not handled represent a bug in our
		// implementation; make this very obvious
		default:
			g.logger.Error("unknown subscription message", zap.ByteString("msg", msg))
		}
	}
}

func (g *Gateway) loadSubscriptionOperation(request *requests.Request) (*ast.OperationDefinition, error) {
	query, qerr := gqlparser.LoadQuery(g.schema, request.Query)
	if qerr != nil {
		return nil, qerr
	}

	operation, err := pickOperation(query, request.OperationName)
	if err != nil {
		return nil, err
	}

	if operation.Operation != ast.Subscription {
		return nil, errSubscriptionOnly
	}

	return operation, nil
}
