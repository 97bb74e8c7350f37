package chrome

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// Connection wraps a single DevTools websocket. A single read-pump
// goroutine demultiplexes every inbound frame by the presence of an "id"
// field: frames carrying one complete a pending Call, frames without one
// are protocol events fanned out to whichever listeners subscribed to
// that method (optionally scoped to a sessionId). This mirrors the Rust
// Connection's pending-commands-queue/poll_next design translated to a
// goroutine-and-channel idiom.
type Connection struct {
	ws *websocket.Conn

	writeMu sync.Mutex
	nextID  atomic.Uint64

	pendingMu sync.Mutex
	pending   map[uint64]chan rpcResponse

	listenMu sync.Mutex
	nextSub  int
	listeners map[string]map[int]*eventSubscription

	closeOnce sync.Once
	done      chan struct{}
}

type eventSubscription struct {
	sessionID string // empty means "any session"
	ch        chan json.RawMessage
	closeOnce sync.Once
}

func (sub *eventSubscription) closeChannel() {
	sub.closeOnce.Do(func() {
		close(sub.ch)
	})
}

type rpcResponse struct {
	result json.RawMessage
	err    *rpcErrorPayload
}

type rpcErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type inboundFrame struct {
	ID        *uint64          `json:"id,omitempty"`
	Method    string           `json:"method,omitempty"`
	SessionID string           `json:"sessionId,omitempty"`
	Params    json.RawMessage  `json:"params,omitempty"`
	Result    json.RawMessage  `json:"result,omitempty"`
	Error     *rpcErrorPayload `json:"error,omitempty"`
}

type outboundFrame struct {
	ID        uint64          `json:"id"`
	Method    string          `json:"method"`
	SessionID string          `json:"sessionId,omitempty"`
	Params    json.RawMessage `json:"params"`
}

// Dial opens the websocket at debuggerURL (the "webSocketDebuggerUrl"
// returned by Chrome's /json/version or /json/new endpoint) and starts the
// read pump.
func Dial(ctx context.Context, debuggerURL string) (*Connection, *ChromeError) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, debuggerURL, nil)
	if err != nil {
		return nil, &ChromeError{Message: err.Error(), Retryable: true, Cause: ErrCauseDialFailure}
	}

	conn := &Connection{
		ws:        ws,
		pending:   make(map[uint64]chan rpcResponse),
		listeners: make(map[string]map[int]*eventSubscription),
		done:      make(chan struct{}),
	}
	go conn.readPump()
	return conn, nil
}

// Call sends method with params (optionally scoped to sessionID for
// session-targeted commands such as Page.navigate on an attached target)
// and blocks until the matching response arrives, ctx is done, or the
// connection closes.
func (c *Connection) Call(ctx context.Context, method, sessionID string, params any) (json.RawMessage, *ChromeError) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, &ChromeError{Message: err.Error(), Retryable: false, Cause: ErrCauseEncodeFailure}
	}

	id := c.nextID.Add(1)
	replyCh := make(chan rpcResponse, 1)

	c.pendingMu.Lock()
	c.pending[id] = replyCh
	c.pendingMu.Unlock()

	cleanup := func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}

	frame := outboundFrame{ID: id, Method: method, SessionID: sessionID, Params: encoded}
	payload, err := json.Marshal(frame)
	if err != nil {
		cleanup()
		return nil, &ChromeError{Message: err.Error(), Retryable: false, Cause: ErrCauseEncodeFailure}
	}

	c.writeMu.Lock()
	writeErr := c.ws.WriteMessage(websocket.TextMessage, payload)
	c.writeMu.Unlock()
	if writeErr != nil {
		cleanup()
		return nil, &ChromeError{Message: writeErr.Error(), Retryable: true, Cause: ErrCauseWriteFailure}
	}

	select {
	case resp := <-replyCh:
		if resp.err != nil {
			return nil, &ChromeError{Message: resp.err.Message, Retryable: false, Cause: ErrCauseProtocolError}
		}
		return resp.result, nil
	case <-ctx.Done():
		cleanup()
		return nil, &ChromeError{Message: ctx.Err().Error(), Retryable: true, Cause: ErrCauseCallTimeout}
	case <-c.done:
		cleanup()
		return nil, &ChromeError{Message: "connection closed while waiting for " + method, Retryable: false, Cause: ErrCauseConnectionClosed}
	}
}

// Subscribe registers a listener for every event named method. When
// sessionID is non-empty, only events carrying that sessionId are
// delivered. The returned channel is closed when Close is called or the
// returned unsubscribe func runs, whichever comes first.
func (c *Connection) Subscribe(method, sessionID string) (<-chan json.RawMessage, func()) {
	ch := make(chan json.RawMessage, 32)
	sub := &eventSubscription{sessionID: sessionID, ch: ch}

	c.listenMu.Lock()
	id := c.nextSub
	c.nextSub++
	subs, ok := c.listeners[method]
	if !ok {
		subs = make(map[int]*eventSubscription)
		c.listeners[method] = subs
	}
	subs[id] = sub
	c.listenMu.Unlock()

	unsubscribe := func() {
		c.listenMu.Lock()
		if subs, ok := c.listeners[method]; ok {
			delete(subs, id)
		}
		c.listenMu.Unlock()
		sub.closeChannel()
	}
	return ch, unsubscribe
}

// Close tears down the read pump, fails every pending Call, and closes
// every subscriber channel. Safe to call more than once.
func (c *Connection) Close() error {
	var closeErr error
	c.closeOnce.Do(func() {
		close(c.done)
		closeErr = c.ws.Close()
		c.failAllPending()
		c.closeAllListeners()
	})
	return closeErr
}

func (c *Connection) readPump() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			c.Close()
			return
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		if frame.ID != nil {
			c.resolvePending(*frame.ID, rpcResponse{result: frame.Result, err: frame.Error})
			continue
		}
		if frame.Method != "" {
			c.dispatchEvent(frame.Method, frame.SessionID, frame.Params)
		}
	}
}

func (c *Connection) resolvePending(id uint64, resp rpcResponse) {
	c.pendingMu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	if ok {
		ch <- resp
	}
}

func (c *Connection) dispatchEvent(method, sessionID string, params json.RawMessage) {
	c.listenMu.Lock()
	subs := c.listeners[method]
	targets := make([]*eventSubscription, 0, len(subs))
	for _, sub := range subs {
		if sub.sessionID == "" || sub.sessionID == sessionID {
			targets = append(targets, sub)
		}
	}
	c.listenMu.Unlock()

	for _, sub := range targets {
		select {
		case sub.ch <- params:
		default:
			// slow subscriber, drop rather than block the read pump
		}
	}
}

func (c *Connection) failAllPending() {
	c.pendingMu.Lock()
	pending := c.pending
	c.pending = make(map[uint64]chan rpcResponse)
	c.pendingMu.Unlock()

	closedErr := &rpcErrorPayload{Message: "connection closed"}
	for _, ch := range pending {
		ch <- rpcResponse{err: closedErr}
	}
}

func (c *Connection) closeAllListeners() {
	c.listenMu.Lock()
	defer c.listenMu.Unlock()
	for method, subs := range c.listeners {
		for _, sub := range subs {
			sub.closeChannel()
		}
		delete(c.listeners, method)
	}
}
