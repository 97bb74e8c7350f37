package chrome_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rohmanhakim/docs-crawler/internal/chrome"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterceptor_ResolvesPausedRequestsInArrivalOrder(t *testing.T) {
	var mu sync.Mutex
	var resolvedOrder []string
	resolvedAll := make(chan struct{})

	wsURL, closeServer := newFakeDevtoolsServer(t, func(conn *websocket.Conn, frame fakeFrame) {
		switch frame.Method {
		case "Target.attachToTarget":
			resp := map[string]any{"id": *frame.ID, "result": map[string]string{"sessionId": "sess-1"}}
			payload, _ := json.Marshal(resp)
			conn.WriteMessage(websocket.TextMessage, payload)
		case "Fetch.enable":
			resp := map[string]any{"id": *frame.ID, "result": map[string]string{}}
			payload, _ := json.Marshal(resp)
			conn.WriteMessage(websocket.TextMessage, payload)

			for _, reqID := range []string{"req-1", "req-2", "req-3"} {
				event := map[string]any{
					"method":    "Fetch.requestPaused",
					"sessionId": "sess-1",
					"params": map[string]any{
						"requestId":    reqID,
						"resourceType": "XHR",
						"request":      map[string]string{"url": "https://blog.example.com/api/" + reqID, "method": "GET"},
					},
				}
				payload, _ := json.Marshal(event)
				conn.WriteMessage(websocket.TextMessage, payload)
			}
		case "Fetch.continueRequest":
			var params chrome.FetchContinueRequestParams
			json.Unmarshal(frame.Params, &params)
			mu.Lock()
			resolvedOrder = append(resolvedOrder, params.RequestID)
			done := len(resolvedOrder) == 3
			mu.Unlock()
			resp := map[string]any{"id": *frame.ID, "result": map[string]string{}}
			payload, _ := json.Marshal(resp)
			conn.WriteMessage(websocket.TextMessage, payload)
			if done {
				close(resolvedAll)
			}
		}
	})
	defer closeServer()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, dialErr := chrome.Dial(ctx, wsURL)
	require.Nil(t, dialErr)
	defer conn.Close()

	session, attachErr := chrome.Attach(ctx, conn, "target-1")
	require.Nil(t, attachErr)

	manager := chrome.NewInterceptManager()
	interceptor, newErr := chrome.NewInterceptor(ctx, session, manager, "blog.example.com")
	require.Nil(t, newErr)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go interceptor.Run(runCtx)

	select {
	case <-resolvedAll:
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, []string{"req-1", "req-2", "req-3"}, resolvedOrder)
	case <-time.After(time.Second):
		t.Fatal("not every paused request was resolved")
	}
}

func TestInterceptor_FailsRequestsMatchingTheBlockerList(t *testing.T) {
	failedIDs := make(chan string, 1)

	wsURL, closeServer := newFakeDevtoolsServer(t, func(conn *websocket.Conn, frame fakeFrame) {
		switch frame.Method {
		case "Target.attachToTarget":
			resp := map[string]any{"id": *frame.ID, "result": map[string]string{"sessionId": "sess-1"}}
			payload, _ := json.Marshal(resp)
			conn.WriteMessage(websocket.TextMessage, payload)
		case "Fetch.enable":
			resp := map[string]any{"id": *frame.ID, "result": map[string]string{}}
			payload, _ := json.Marshal(resp)
			conn.WriteMessage(websocket.TextMessage, payload)

			event := map[string]any{
				"method":    "Fetch.requestPaused",
				"sessionId": "sess-1",
				"params": map[string]any{
					"requestId":    "req-ad",
					"resourceType": "Script",
					"request":      map[string]string{"url": "https://www.googletagmanager.com/gtm.js", "method": "GET"},
				},
			}
			payload2, _ := json.Marshal(event)
			conn.WriteMessage(websocket.TextMessage, payload2)
		case "Fetch.failRequest":
			var params chrome.FetchFailRequestParams
			json.Unmarshal(frame.Params, &params)
			failedIDs <- params.RequestID
			resp := map[string]any{"id": *frame.ID, "result": map[string]string{}}
			payload, _ := json.Marshal(resp)
			conn.WriteMessage(websocket.TextMessage, payload)
		}
	})
	defer closeServer()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, dialErr := chrome.Dial(ctx, wsURL)
	require.Nil(t, dialErr)
	defer conn.Close()

	session, attachErr := chrome.Attach(ctx, conn, "target-1")
	require.Nil(t, attachErr)

	manager := chrome.NewInterceptManager()
	interceptor, newErr := chrome.NewInterceptor(ctx, session, manager, "blog.example.com")
	require.Nil(t, newErr)

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	go interceptor.Run(runCtx)

	select {
	case reqID := <-failedIDs:
		assert.Equal(t, "req-ad", reqID)
	case <-time.After(time.Second):
		t.Fatal("the ad-network script request was never failed")
	}
}
