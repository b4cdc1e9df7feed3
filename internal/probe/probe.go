// Package probe inspects MP4 containers for the video track metadata the
// player needs before decoding starts: dimensions, frame rate and codec.
package probe

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Eyevinn/mp4ff/mp4"
)

// Info is the probed video track metadata.
type Info struct {
	Path       string
	Codec      string
	Width      int
	Height     int
	FrameRate  float64
	FrameCount int
	Duration   time.Duration
}

// File probes the MP4 container at path.
func File(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	info, err := Reader(f)
	if err != nil {
		return nil, err
	}
	info.Path = path
	return info, nil
}

// Reader probes an MP4 container from an io.ReadSeeker.
func Reader(r io.ReadSeeker) (*Info, error) {
	mp4File, err := mp4.DecodeFile(r)
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}

	moov := mp4File.Moov
	if mp4File.IsFragmented() && mp4File.Init != nil && mp4File.Init.Moov != nil {
		moov = mp4File.Init.Moov
	}
	if moov == nil {
		return nil, fmt.Errorf("no movie box found")
	}

	for _, trak := range moov.Traks {
		if trak.Mdia == nil || trak.Mdia.Hdlr == nil || trak.Mdia.Hdlr.HandlerType != "vide" {
			continue
		}
		return trackInfo(trak)
	}
	return nil, fmt.Errorf("no video track found")
}

func trackInfo(trak *mp4.TrakBox) (*Info, error) {
	info := &Info{Codec: "unknown"}

	if trak.Tkhd != nil {
		// Track header dimensions are fixed-point 16.16.
		info.Width = int(trak.Tkhd.Width >> 16)
		info.Height = int(trak.Tkhd.Height >> 16)
	}
	if info.Width <= 0 || info.Height <= 0 {
		return nil, fmt.Errorf("video track has no dimensions")
	}

	if trak.Mdia.Minf != nil && trak.Mdia.Minf.Stbl != nil {
		stbl := trak.Mdia.Minf.Stbl
		if stbl.Stsd != nil {
			for _, child := range stbl.Stsd.Children {
				if vse, ok := child.(*mp4.VisualSampleEntryBox); ok {
					info.Codec = vse.Type()
					break
				}
			}
		}
		if stbl.Stsz != nil {
			info.FrameCount = int(stbl.Stsz.SampleNumber)
		}
	}

	if trak.Mdia.Mdhd != nil && trak.Mdia.Mdhd.Timescale > 0 {
		seconds := float64(trak.Mdia.Mdhd.Duration) / float64(trak.Mdia.Mdhd.Timescale)
		info.Duration = time.Duration(seconds * float64(time.Second))
		if seconds > 0 && info.FrameCount > 0 {
			info.FrameRate = float64(info.FrameCount) / seconds
		}
	}
	return info, nil
}
