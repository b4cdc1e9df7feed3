package render

import "github.com/videowall/wlvideo/internal/video"

// Transform is the per-draw quad scale. The quad spans the full target;
// scales below 1 letterbox, scales above 1 crop.
type Transform struct {
	ScaleX float32
	ScaleY float32
}

// ComputeTransform maps the video aspect onto the output aspect for the
// given scale mode.
func ComputeTransform(vidW, vidH, outW, outH int, mode video.ScaleMode) Transform {
	t := Transform{ScaleX: 1, ScaleY: 1}
	if vidW <= 0 || vidH <= 0 || outW <= 0 || outH <= 0 {
		return t
	}

	vidAspect := float32(vidW) / float32(vidH)
	outAspect := float32(outW) / float32(outH)

	switch mode {
	case video.ScaleFit:
		if vidAspect > outAspect {
			t.ScaleY = outAspect / vidAspect
		} else {
			t.ScaleX = vidAspect / outAspect
		}
	case video.ScaleFill:
		if vidAspect > outAspect {
			t.ScaleX = vidAspect / outAspect
		} else {
			t.ScaleY = outAspect / vidAspect
		}
	case video.ScaleStretch:
	}
	return t
}
