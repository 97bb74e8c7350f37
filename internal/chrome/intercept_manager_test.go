package chrome_test

import (
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/chrome"
	"github.com/stretchr/testify/assert"
)

func TestInterceptManager_BlocksGenericAdNetworkScript(t *testing.T) {
	mgr := chrome.NewInterceptManager()
	blocked := mgr.ShouldBlock("blog.example.com", "https://www.googletagmanager.com/gtm.js?id=GTM-X", chrome.ResourceScript)
	assert.True(t, blocked)
}

func TestInterceptManager_AllowsOrdinaryFirstPartyScript(t *testing.T) {
	mgr := chrome.NewInterceptManager()
	blocked := mgr.ShouldBlock("blog.example.com", "https://blog.example.com/assets/app.js", chrome.ResourceScript)
	assert.False(t, blocked)
}

func TestInterceptManager_BlocksKnownDomainTrackingPath(t *testing.T) {
	mgr := chrome.NewInterceptManager()
	blocked := mgr.ShouldBlock("www.facebook.com", "https://www.facebook.com/analytics/collect", chrome.ResourceXHR)
	assert.True(t, blocked)
}

func TestInterceptManager_UnknownDomainFallsThroughToGeneric(t *testing.T) {
	mgr := chrome.NewInterceptManager()
	// not one of the known high-traffic domains, and not on the generic
	// list either - must pass through.
	blocked := mgr.ShouldBlock("news.example.org", "https://news.example.org/articles/42", chrome.ResourceXHR)
	assert.False(t, blocked)
}

func TestInterceptManager_GenericXHRListBlocksAnalyticsCollect(t *testing.T) {
	mgr := chrome.NewInterceptManager()
	blocked := mgr.ShouldBlock("shop.example.com", "https://www.google-analytics.com/collect?v=1", chrome.ResourceXHR)
	assert.True(t, blocked)
}
