// Package video defines the frame data model shared between the decode
// collaborator and the renderer: tagged hardware/software frames, GPU buffer
// descriptors, the software staging ring, and the FrameSource contract.
package video

import (
	"fmt"
	"strings"
)

// Colorspace identifies the YUV->RGB conversion matrix declared by the stream.
type Colorspace int

// Supported colorspaces.
const (
	ColorspaceBT601 Colorspace = iota
	ColorspaceBT709
	ColorspaceBT2020
)

// String returns a human-readable colorspace name.
func (c Colorspace) String() string {
	switch c {
	case ColorspaceBT601:
		return "bt601"
	case ColorspaceBT709:
		return "bt709"
	case ColorspaceBT2020:
		return "bt2020"
	default:
		return "unknown"
	}
}

// ColorRange identifies whether sample values use the limited (broadcast)
// or full range.
type ColorRange int

// Supported color ranges.
const (
	RangeLimited ColorRange = iota
	RangeFull
)

// String returns a human-readable range name.
func (r ColorRange) String() string {
	if r == RangeFull {
		return "full"
	}
	return "limited"
}

// ScaleMode controls how the video aspect is mapped onto the output aspect.
type ScaleMode int

// Scale modes.
const (
	ScaleFit     ScaleMode = iota // shrink to letterbox
	ScaleFill                     // crop to cover
	ScaleStretch                  // ignore aspect
)

// String returns the CLI name of the scale mode.
func (m ScaleMode) String() string {
	switch m {
	case ScaleFit:
		return "fit"
	case ScaleStretch:
		return "stretch"
	default:
		return "fill"
	}
}

// ParseScaleMode parses a CLI scale mode name. Unknown values fall back to
// fill and return an error so the caller can warn.
func ParseScaleMode(s string) (ScaleMode, error) {
	switch strings.ToLower(s) {
	case "fit":
		return ScaleFit, nil
	case "fill":
		return ScaleFill, nil
	case "stretch":
		return ScaleStretch, nil
	default:
		return ScaleFill, fmt.Errorf("unknown scale mode %q", s)
	}
}

// FourCC is a four-byte pixel format code as used by the kernel buffer
// sharing ABI.
type FourCC uint32

// String renders the code as four printable characters, replacing
// non-printable bytes with '?'.
func (f FourCC) String() string {
	b := [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	for i, c := range b {
		if c < 32 || c > 126 {
			b[i] = '?'
		}
	}
	return string(b[:])
}
