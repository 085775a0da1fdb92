package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"castsync/internal/library"
)

// TrackInspector fills technical metadata of a track whose local file path is
// known.
type TrackInspector interface {
	Inspect(ctx context.Context, track *library.Track) error
}

// FFProbeInspector inspects tracks with ffprobe.
type FFProbeInspector struct {
	binary string
}

// NewFFProbeInspector creates an inspector running the given ffprobe binary.
// An empty binary falls back to "ffprobe" on PATH.
func NewFFProbeInspector(binary string) *FFProbeInspector {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbeInspector{binary: binary}
}

type ffprobeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	RFrameRate string `json:"r_frame_rate"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
}

type ffprobeResult struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

// Inspect probes the track's file and fills duration, codecs, framerate, and
// the audio-only flag.
func (i *FFProbeInspector) Inspect(ctx context.Context, track *library.Track) error {
	if track.Path == "" {
		return errors.New("ffprobe inspect: track has no local path")
	}

	cmd := exec.CommandContext(ctx, i.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", track.Path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffprobe inspect %s: %w: %s", track.Path, err, strings.TrimSpace(string(output)))
	}

	var result ffprobeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return fmt.Errorf("ffprobe parse %s: %w", track.Path, err)
	}

	videoStreams := 0
	for _, stream := range result.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			videoStreams++
			if track.VideoCodec == "" {
				track.VideoCodec = stream.CodecName
			}
			if track.Framerate == "" {
				track.Framerate = stream.RFrameRate
			}
		case "audio":
			if track.AudioCodec == "" {
				track.AudioCodec = stream.CodecName
			}
		}
	}
	track.OnlyAudio = videoStreams == 0

	if seconds, err := strconv.ParseFloat(strings.TrimSpace(result.Format.Duration), 64); err == nil && seconds > 0 {
		track.DurationMS = int64(seconds * 1000)
	}
	return nil
}

// NopInspector leaves tracks untouched. Used when no inspection binary is
// available.
type NopInspector struct{}

func (NopInspector) Inspect(context.Context, *library.Track) error { return nil }
