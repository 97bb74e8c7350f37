// Package fingerprint composes a stealth injection script for a Chrome
// page's new documents. It has no Chrome dependency of its own: Compose
// returns plain JavaScript text suitable for
// Runtime.addScriptToEvaluateOnNewDocument. No package in this repository
// calls Compose.
package fingerprint

import "math/rand"

// OperatingSystem selects which per-OS GPU pool and canvas-noise bounds a
// Profile draws from.
type OperatingSystem string

const (
	OSMac     OperatingSystem = "mac"
	OSWindows OperatingSystem = "windows"
	OSLinux   OperatingSystem = "linux"
)

// GPUProfile is one internally-consistent set of GPU-facing values spoofed
// across WebGL, WebGL2, and navigator.gpu, so a page can't catch the spoof
// by cross-checking one surface against another.
type GPUProfile struct {
	WebGLVendor         string
	WebGLRenderer       string
	WebGPUVendor        string
	WebGPUArchitecture  string
	CanvasFormat        string
	HardwareConcurrency int
}

// Profile is the full set of identity-consistent values a composed script
// spoofs for one page's lifetime. It must not change between fragments of
// the same Compose call, or between the main document and its Workers.
type Profile struct {
	GPU GPUProfile
	OS  OperatingSystem
	UA  string
}

// gpuProfilesByOS mirrors the Rust pack's per-OS GpuProfile pools
// (spider_fingerprint/src/profiles/gpu.rs), trimmed to a representative
// sample per OS rather than the full device catalog - enough to draw a
// random, internally-consistent profile per OS without inflating this
// package into a device database.
var gpuProfilesByOS = map[OperatingSystem][]GPUProfile{
	OSMac: {
		{
			WebGLVendor:         "Google Inc. (Apple)",
			WebGLRenderer:       "ANGLE (Apple, ANGLE Metal Renderer: Apple M1, Unspecified Version)",
			WebGPUVendor:        "apple",
			WebGPUArchitecture:  "metal-3",
			CanvasFormat:        "bgra8unorm",
			HardwareConcurrency: 8,
		},
		{
			WebGLVendor:         "Google Inc. (Apple)",
			WebGLRenderer:       "ANGLE (Apple, ANGLE Metal Renderer: Apple M2, Unspecified Version)",
			WebGPUVendor:        "apple",
			WebGPUArchitecture:  "metal-3",
			CanvasFormat:        "bgra8unorm",
			HardwareConcurrency: 8,
		},
	},
	OSWindows: {
		{
			WebGLVendor:         "Google Inc. (NVIDIA)",
			WebGLRenderer:       "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)",
			WebGPUVendor:        "nvidia",
			WebGPUArchitecture:  "d3d11",
			CanvasFormat:        "rgba8unorm",
			HardwareConcurrency: 12,
		},
		{
			WebGLVendor:         "Google Inc. (Intel)",
			WebGLRenderer:       "ANGLE (Intel, Intel(R) UHD Graphics 620 Direct3D11 vs_5_0 ps_5_0, D3D11)",
			WebGPUVendor:        "intel",
			WebGPUArchitecture:  "d3d11",
			CanvasFormat:        "rgba8unorm",
			HardwareConcurrency: 4,
		},
	},
	OSLinux: {
		{
			WebGLVendor:         "Google Inc. (AMD)",
			WebGLRenderer:       "ANGLE (AMD, AMD Radeon RX 6700 XT (navi22, LLVM 15.0.7, DRM 3.49, 6.2.0), OpenGL 4.6)",
			WebGPUVendor:        "amd",
			WebGPUArchitecture:  "opengl",
			CanvasFormat:        "rgba8unorm",
			HardwareConcurrency: 8,
		},
		{
			WebGLVendor:         "Google Inc. (Intel)",
			WebGLRenderer:       "ANGLE (Intel, Mesa Intel(R) UHD Graphics (CML GT2), OpenGL 4.6)",
			WebGPUVendor:        "intel",
			WebGPUArchitecture:  "opengl",
			CanvasFormat:        "rgba8unorm",
			HardwareConcurrency: 4,
		},
	},
}

// PickGPUProfile draws one GPUProfile from the pool for os using rng. A
// nil rng is replaced by a new source seeded with 1. The returned
// profile is meant to be held for one page's entire lifetime; callers
// must not call PickGPUProfile again mid-page.
func PickGPUProfile(os OperatingSystem, rng *rand.Rand) GPUProfile {
	pool, ok := gpuProfilesByOS[os]
	if !ok || len(pool) == 0 {
		pool = gpuProfilesByOS[OSLinux]
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return pool[rng.Intn(len(pool))]
}
