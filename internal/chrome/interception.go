package chrome

import (
	"context"
	"encoding/json"
	"strings"
)

// Interceptor runs the two-phase request interception handshake for one
// session: Fetch.enable pauses every matching request, and exactly one of
// continueRequest/failRequest/fulfillRequest must resolve each one. A
// single worker goroutine classifies and resolves requests off the
// session's requestPaused channel without queuing, so resolutions leave
// in the same order the pauses arrived in.
type Interceptor struct {
	session  *Session
	manager  *InterceptManager
	pageHost string
}

// NewInterceptor enables Fetch interception for every request (URL pattern
// "*") and returns an Interceptor ready to Run; requests that are not
// script, stylesheet, or xhr/fetch are continued unchanged.
func NewInterceptor(ctx context.Context, s *Session, manager *InterceptManager, pageHost string) (*Interceptor, *ChromeError) {
	if err := s.EnableFetch(ctx, []FetchRequestPattern{
		{URLPattern: "*", RequestStage: "Request"},
	}); err != nil {
		return nil, err
	}
	return &Interceptor{session: s, manager: manager, pageHost: pageHost}, nil
}

// Run subscribes to Fetch.requestPaused and resolves each request until
// ctx is canceled or the subscription channel closes (connection torn
// down). It blocks, so callers run it in its own goroutine.
func (i *Interceptor) Run(ctx context.Context) *ChromeError {
	paused, unsubscribe := i.session.conn.Subscribe(eventFetchRequestPaused, i.session.SessionID)
	defer unsubscribe()

	for {
		select {
		case raw, ok := <-paused:
			if !ok {
				return nil
			}
			i.resolveOne(ctx, raw)
		case <-ctx.Done():
			return &ChromeError{Message: ctx.Err().Error(), Retryable: true, Cause: ErrCauseConnectionClosed}
		}
	}
}

func (i *Interceptor) resolveOne(ctx context.Context, raw json.RawMessage) {
	var event FetchRequestPausedEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return
	}

	class, classified := classifyResourceType(event.ResourceType)
	blocked := classified && i.manager.ShouldBlock(i.pageHost, event.Request.URL, class)

	if blocked {
		i.session.call(ctx, methodFetchFailRequest, FetchFailRequestParams{
			RequestID:   event.RequestID,
			ErrorReason: "BlockedByClient",
		})
		return
	}

	i.session.call(ctx, methodFetchContinueRequest, FetchContinueRequestParams{
		RequestID: event.RequestID,
	})
}

func classifyResourceType(resourceType string) (ResourceClass, bool) {
	switch strings.ToLower(resourceType) {
	case "script":
		return ResourceScript, true
	case "stylesheet":
		return ResourceStylesheet, true
	case "xhr", "fetch":
		return ResourceXHR, true
	default:
		return 0, false
	}
}
