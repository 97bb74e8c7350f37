package fingerprint_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/rohmanhakim/docs-crawler/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProfile() fingerprint.Profile {
	return fingerprint.Profile{
		GPU: fingerprint.PickGPUProfile(fingerprint.OSLinux, rand.New(rand.NewSource(1))),
		OS:  fingerprint.OSLinux,
		UA:  "docs-crawler/1.0",
	}
}

func TestCompose_NoneLevelInjectsNothing(t *testing.T) {
	script, err := fingerprint.Compose(fingerprint.LevelNone, testProfile())
	require.Nil(t, err)
	assert.Empty(t, script)
}

func TestCompose_BasicLevelSpoofsGPUCanvasAndUA(t *testing.T) {
	profile := testProfile()
	script, err := fingerprint.Compose(fingerprint.LevelBasic, profile)
	require.Nil(t, err)

	assert.Contains(t, script, profile.GPU.WebGLVendor)
	assert.Contains(t, script, profile.GPU.WebGPUVendor)
	assert.Contains(t, script, "getImageData")
	assert.Contains(t, script, "userAgentData")
	assert.NotContains(t, script, "webdriver",
		"basic level must not touch navigator.webdriver, that's strict-only")
}

func TestCompose_AdvancedLevelAddsStrictRemovals(t *testing.T) {
	script, err := fingerprint.Compose(fingerprint.LevelAdvanced, testProfile())
	require.Nil(t, err)

	assert.Contains(t, script, "webdriver")
	assert.Contains(t, script, "RTCPeerConnection")
	assert.Contains(t, script, "MediaStreamTrack")
	assert.Contains(t, script, "getChannelData")
}

func TestCompose_SameProfileProducesIdenticalScript(t *testing.T) {
	profile := testProfile()
	first, err := fingerprint.Compose(fingerprint.LevelAdvanced, profile)
	require.Nil(t, err)
	second, err := fingerprint.Compose(fingerprint.LevelAdvanced, profile)
	require.Nil(t, err)

	assert.Equal(t, first, second,
		"the GPU profile must stay stable for a page's lifetime, so composing twice from the same Profile must be deterministic")
}

func TestCompose_DifferentOSGetsDifferentCanvasBound(t *testing.T) {
	macProfile := fingerprint.Profile{
		GPU: fingerprint.PickGPUProfile(fingerprint.OSMac, rand.New(rand.NewSource(1))),
		OS:  fingerprint.OSMac,
	}
	winProfile := fingerprint.Profile{
		GPU: fingerprint.PickGPUProfile(fingerprint.OSWindows, rand.New(rand.NewSource(1))),
		OS:  fingerprint.OSWindows,
	}

	macScript, err := fingerprint.Compose(fingerprint.LevelBasic, macProfile)
	require.Nil(t, err)
	winScript, err := fingerprint.Compose(fingerprint.LevelBasic, winProfile)
	require.Nil(t, err)

	assert.Contains(t, macScript, "const bound=5")
	assert.Contains(t, winScript, "const bound=3")
}

func TestPickGPUProfile_DeterministicUnderFixedSeed(t *testing.T) {
	first := fingerprint.PickGPUProfile(fingerprint.OSLinux, rand.New(rand.NewSource(42)))
	second := fingerprint.PickGPUProfile(fingerprint.OSLinux, rand.New(rand.NewSource(42)))
	assert.Equal(t, first, second)
}

func TestPickGPUProfile_UnknownOSFallsBackToLinuxPool(t *testing.T) {
	profile := fingerprint.PickGPUProfile(fingerprint.OperatingSystem("plan9"), rand.New(rand.NewSource(1)))
	assert.NotZero(t, profile.WebGLVendor)
}

func TestLevel_StringMatchesConfigVocabulary(t *testing.T) {
	assert.Equal(t, "none", fingerprint.LevelNone.String())
	assert.Equal(t, "basic", fingerprint.LevelBasic.String())
	assert.Equal(t, "advanced", fingerprint.LevelAdvanced.String())
}

func TestCompose_ScriptIsSingleExpressionPerFragment(t *testing.T) {
	script, err := fingerprint.Compose(fingerprint.LevelAdvanced, testProfile())
	require.Nil(t, err)
	assert.True(t, strings.Count(script, "(()=>{") >= 5,
		"expected one IIFE per composed fragment (webgl, gpu, canvas, uadata, advanced)")
}
