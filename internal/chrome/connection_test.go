package chrome_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rohmanhakim/docs-crawler/internal/chrome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrame struct {
	ID     *uint64         `json:"id,omitempty"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
}

// newFakeDevtoolsServer starts a websocket server driven by handle, which
// receives every decoded inbound frame and writes raw JSON responses/
// events back over conn as it sees fit.
func newFakeDevtoolsServer(t *testing.T, handle func(conn *websocket.Conn, frame fakeFrame)) (wsURL string, closeServer func()) {
	t.Helper()
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame fakeFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}
			handle(conn, frame)
		}
	}))

	wsURL = "ws" + strings.TrimPrefix(server.URL, "http")
	return wsURL, server.Close
}

func TestConnection_CallReturnsMatchingResponse(t *testing.T) {
	wsURL, closeServer := newFakeDevtoolsServer(t, func(conn *websocket.Conn, frame fakeFrame) {
		resp := map[string]any{
			"id":     *frame.ID,
			"result": map[string]string{"frameId": "frame-123"},
		}
		payload, _ := json.Marshal(resp)
		conn.WriteMessage(websocket.TextMessage, payload)
	})
	defer closeServer()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := chrome.Dial(ctx, wsURL)
	require.Nil(t, err)
	defer conn.Close()

	raw, callErr := conn.Call(ctx, "Page.navigate", "", chrome.PageNavigateParams{URL: "https://example.com"})
	require.Nil(t, callErr)

	var result chrome.PageNavigateResult
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.Equal(t, "frame-123", result.FrameID)
}

func TestConnection_CallSurfacesProtocolError(t *testing.T) {
	wsURL, closeServer := newFakeDevtoolsServer(t, func(conn *websocket.Conn, frame fakeFrame) {
		resp := map[string]any{
			"id":    *frame.ID,
			"error": map[string]any{"code": -32000, "message": "no such node"},
		}
		payload, _ := json.Marshal(resp)
		conn.WriteMessage(websocket.TextMessage, payload)
	})
	defer closeServer()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := chrome.Dial(ctx, wsURL)
	require.Nil(t, err)
	defer conn.Close()

	_, callErr := conn.Call(ctx, "DOM.describeNode", "", struct{}{})
	require.NotNil(t, callErr)
	assert.Equal(t, chrome.ErrCauseProtocolError, callErr.Cause)
}

func TestConnection_CallTimesOutWhenServerNeverReplies(t *testing.T) {
	wsURL, closeServer := newFakeDevtoolsServer(t, func(conn *websocket.Conn, frame fakeFrame) {})
	defer closeServer()

	dialCtx, dialCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer dialCancel()
	conn, err := chrome.Dial(dialCtx, wsURL)
	require.Nil(t, err)
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer callCancel()

	_, callErr := conn.Call(callCtx, "Page.navigate", "", chrome.PageNavigateParams{URL: "https://example.com"})
	require.NotNil(t, callErr)
	assert.Equal(t, chrome.ErrCauseCallTimeout, callErr.Cause)
}

func TestConnection_SubscribeReceivesFannedOutEvent(t *testing.T) {
	wsURL, closeServer := newFakeDevtoolsServer(t, func(conn *websocket.Conn, frame fakeFrame) {
		if frame.Method != "Network.enable" {
			return
		}
		event := map[string]any{
			"method":    "Network.requestWillBeSent",
			"sessionId": "sess-1",
			"params":    map[string]string{"requestId": "req-1"},
		}
		payload, _ := json.Marshal(event)
		conn.WriteMessage(websocket.TextMessage, payload)

		// not the subscribed session, must never surface
		other := map[string]any{
			"method":    "Network.requestWillBeSent",
			"sessionId": "sess-2",
			"params":    map[string]string{"requestId": "req-2"},
		}
		otherPayload, _ := json.Marshal(other)
		conn.WriteMessage(websocket.TextMessage, otherPayload)
	})
	defer closeServer()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, dialErr := chrome.Dial(ctx, wsURL)
	require.Nil(t, dialErr)
	defer conn.Close()

	events, unsubscribe := conn.Subscribe("Network.requestWillBeSent", "sess-1")
	defer unsubscribe()

	_, callErr := conn.Call(ctx, "Network.enable", "", struct{}{})
	require.Nil(t, callErr)

	select {
	case raw := <-events:
		var payload struct {
			RequestID string `json:"requestId"`
		}
		require.NoError(t, json.Unmarshal(raw, &payload))
		assert.Equal(t, "req-1", payload.RequestID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the fanned-out event")
	}

	select {
	case raw := <-events:
		t.Fatalf("received an event meant for a different session: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConnection_CloseFailsPendingCallsAndClosesListeners(t *testing.T) {
	wsURL, closeServer := newFakeDevtoolsServer(t, func(conn *websocket.Conn, frame fakeFrame) {})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, dialErr := chrome.Dial(ctx, wsURL)
	require.Nil(t, dialErr)

	events, unsubscribe := conn.Subscribe("Page.frameStoppedLoading", "")
	defer unsubscribe()

	callDone := make(chan *chrome.ChromeError, 1)
	go func() {
		_, callErr := conn.Call(context.Background(), "Page.navigate", "", chrome.PageNavigateParams{URL: "https://example.com"})
		callDone <- callErr
	}()

	time.Sleep(20 * time.Millisecond)
	closeServer()
	require.NoError(t, conn.Close())

	select {
	case callErr := <-callDone:
		require.NotNil(t, callErr)
	case <-time.After(time.Second):
		t.Fatal("Close never failed the pending call")
	}

	_, stillOpen := <-events
	assert.False(t, stillOpen, "event channel must close when the connection closes")
}
