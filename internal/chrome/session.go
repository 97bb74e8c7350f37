package chrome

import (
	"context"
	"encoding/json"
)

// Session is one attached target (one Page) on a shared Connection.
// Every command issued through a Session is scoped to its SessionID so
// multiple pages can share one websocket.
type Session struct {
	conn      *Connection
	SessionID string
}

// Attach attaches a flattened session to the existing target targetID via
// Target.attachToTarget(flatten=true). It does not create a target.
func Attach(ctx context.Context, conn *Connection, targetID string) (*Session, *ChromeError) {
	raw, err := conn.Call(ctx, methodTargetAttachToTarget, "", TargetAttachToTargetParams{
		TargetID: targetID,
		Flatten:  true,
	})
	if err != nil {
		return nil, err
	}

	var result TargetAttachToTargetResult
	if jsonErr := json.Unmarshal(raw, &result); jsonErr != nil {
		return nil, &ChromeError{Message: jsonErr.Error(), Retryable: false, Cause: ErrCauseDecodeFailure}
	}

	return &Session{conn: conn, SessionID: result.SessionID}, nil
}

func (s *Session) call(ctx context.Context, method string, params any) (json.RawMessage, *ChromeError) {
	return s.conn.Call(ctx, method, s.SessionID, params)
}

// EnablePage issues "Page.enable", required before Page events fire.
func (s *Session) EnablePage(ctx context.Context) *ChromeError {
	_, err := s.call(ctx, methodPageEnable, struct{}{})
	return err
}

// EnableNetwork issues "Network.enable", required before Network events
// fire (used by the idle-network WaitFor policy).
func (s *Session) EnableNetwork(ctx context.Context) *ChromeError {
	_, err := s.call(ctx, methodNetworkEnable, struct{}{})
	return err
}

// EnableFetch issues "Fetch.enable" scoped to patterns, pausing every
// matching request until Continue/Fail/Fulfill resolves it.
func (s *Session) EnableFetch(ctx context.Context, patterns []FetchRequestPattern) *ChromeError {
	_, err := s.call(ctx, methodFetchEnable, FetchEnableParams{Patterns: patterns})
	return err
}

// Navigate issues "Page.navigate" and returns the created frame id.
func (s *Session) Navigate(ctx context.Context, url string) (string, *ChromeError) {
	raw, err := s.call(ctx, methodPageNavigate, PageNavigateParams{URL: url})
	if err != nil {
		return "", err
	}

	var result PageNavigateResult
	if jsonErr := json.Unmarshal(raw, &result); jsonErr != nil {
		return "", &ChromeError{Message: jsonErr.Error(), Retryable: false, Cause: ErrCauseDecodeFailure}
	}
	if result.ErrorText != "" {
		return "", &ChromeError{Message: result.ErrorText, Retryable: true, Cause: ErrCauseNavigationFailure}
	}
	return result.FrameID, nil
}

// AddScriptToEvaluateOnNewDocument installs source so it runs before any
// page script, the injection point for a script such as
// fingerprint.Compose's output.
func (s *Session) AddScriptToEvaluateOnNewDocument(ctx context.Context, source string) (string, *ChromeError) {
	raw, err := s.call(ctx, methodRuntimeAddScript, RuntimeAddScriptParams{Source: source})
	if err != nil {
		return "", err
	}

	var result RuntimeAddScriptResult
	if jsonErr := json.Unmarshal(raw, &result); jsonErr != nil {
		return "", &ChromeError{Message: jsonErr.Error(), Retryable: false, Cause: ErrCauseDecodeFailure}
	}
	return result.Identifier, nil
}

// Evaluate runs expression in the page's main world and returns its
// result as a RuntimeRemoteObject, used by the Selector WaitFor policy
// and for reading document.readyState/DOM state.
func (s *Session) Evaluate(ctx context.Context, expression string) (RuntimeRemoteObject, *ChromeError) {
	raw, err := s.call(ctx, methodRuntimeEvaluate, RuntimeEvaluateParams{
		Expression:    expression,
		ReturnByValue: true,
		AwaitPromise:  true,
	})
	if err != nil {
		return RuntimeRemoteObject{}, err
	}

	var result RuntimeEvaluateResult
	if jsonErr := json.Unmarshal(raw, &result); jsonErr != nil {
		return RuntimeRemoteObject{}, &ChromeError{Message: jsonErr.Error(), Retryable: false, Cause: ErrCauseDecodeFailure}
	}
	if result.ExceptionDetails != nil {
		return RuntimeRemoteObject{}, &ChromeError{Message: result.ExceptionDetails.Text, Retryable: false, Cause: ErrCauseProtocolError}
	}
	return result.Result, nil
}

// SubscribeFrameStoppedLoading listens for "Page.frameStoppedLoading"
// scoped to this session.
func (s *Session) SubscribeFrameStoppedLoading() (<-chan json.RawMessage, func()) {
	return s.conn.Subscribe(eventPageFrameStoppedLoading, s.SessionID)
}

// SubscribeNetworkActivity listens for the three Network events the
// idle-network WaitFor policy tracks, merged into one channel of raw
// params tagged by the event name that produced them.
func (s *Session) SubscribeNetworkActivity() (*NetworkActivityFeed, func()) {
	started, unStarted := s.conn.Subscribe(eventNetworkRequestWillBeSent, s.SessionID)
	finished, unFinished := s.conn.Subscribe(eventNetworkLoadingFinished, s.SessionID)
	failed, unFailed := s.conn.Subscribe(eventNetworkLoadingFailed, s.SessionID)

	feed := &NetworkActivityFeed{Started: started, Finished: finished, Failed: failed}
	cancel := func() {
		unStarted()
		unFinished()
		unFailed()
	}
	return feed, cancel
}

// NetworkActivityFeed groups the three channels IdleNetwork watches.
type NetworkActivityFeed struct {
	Started  <-chan json.RawMessage
	Finished <-chan json.RawMessage
	Failed   <-chan json.RawMessage
}
