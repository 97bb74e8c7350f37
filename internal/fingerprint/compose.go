package fingerprint

import (
	"bytes"
	"text/template"
)

// Level selects how aggressively Compose spoofs a page's fingerprint,
// per spec.md §4.5's three-tier policy.
type Level int

const (
	// LevelNone injects nothing.
	LevelNone Level = iota
	// LevelBasic spoofs WebGL/WebGL2/navigator.gpu, canvas noise, and
	// navigator.userAgentData - enough to defeat passive fingerprint
	// collection without touching APIs some sites probe for presence.
	LevelBasic
	// LevelAdvanced layers LevelBasic with the strict removals: webdriver,
	// RTCPeerConnection, MediaStreamTrack, plus audio-context noise and
	// offset/rect jitter.
	LevelAdvanced
)

func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelBasic:
		return "basic"
	case LevelAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// canvasNoiseBoundsByOS bounds the per-pixel canvas/audio noise magnitude
// per OS, mirroring the Rust pack's per-platform CANVAS_FP_* constants
// (spoof_gpu.rs): Windows' bound is tighter than Mac/Linux.
var canvasNoiseBoundsByOS = map[OperatingSystem]int{
	OSMac:     5,
	OSWindows: 3,
	OSLinux:   5,
}

type boundData struct {
	Bound int
}

// Compose concatenates the spoof fragments selected by level into one
// document-creation script, ready for
// Runtime.addScriptToEvaluateOnNewDocument. LevelNone returns an empty
// string so a caller can always call Compose unconditionally. The same
// profile must be reused for every fragment and for every Worker the page
// creates during its lifetime - Compose itself performs no caching, that
// is the caller's responsibility.
func Compose(level Level, profile Profile) (string, *FingerprintError) {
	if level == LevelNone {
		return "", nil
	}

	var buf bytes.Buffer
	bound := boundData{Bound: canvasNoiseBoundsByOS[profile.OS]}

	if err := executeInto(&buf, webglTemplate, profile); err != nil {
		return "", err
	}
	if err := executeInto(&buf, gpuTemplate, profile); err != nil {
		return "", err
	}
	if err := executeInto(&buf, canvasNoiseTemplate, bound); err != nil {
		return "", err
	}
	if err := executeInto(&buf, userAgentDataTemplate, profile); err != nil {
		return "", err
	}

	if level == LevelAdvanced {
		if err := executeInto(&buf, advancedTemplate, bound); err != nil {
			return "", err
		}
	}

	return buf.String(), nil
}

func executeInto(buf *bytes.Buffer, tmpl *template.Template, data any) *FingerprintError {
	if err := tmpl.Execute(buf, data); err != nil {
		return &FingerprintError{
			Message:   "compose " + tmpl.Name() + " fragment: " + err.Error(),
			Retryable: false,
			Cause:     ErrCauseTemplateExecution,
		}
	}
	return nil
}
