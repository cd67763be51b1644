package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// ProbeStream describes one stream of a probed container.
type ProbeStream struct {
	Index      int     `json:"index"`
	Type       string  `json:"type"` // video, audio, subtitle, data
	Codec      string  `json:"codec"`
	Width      int     `json:"width,omitempty"`
	Height     int     `json:"height,omitempty"`
	SampleRate int     `json:"sampleRate,omitempty"`
	Channels   int     `json:"channels,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
	BitRate    int64   `json:"bitRate,omitempty"`
}

// ProbeResult is the structural description of a media file: container
// format, overall bitrate and the stream list.
type ProbeResult struct {
	FormatName string        `json:"formatName"`
	Duration   float64       `json:"duration"`
	Size       int64         `json:"size"`
	BitRate    int64         `json:"bitRate"`
	Streams    []ProbeStream `json:"streams"`
}

// ffprobe's JSON output uses strings for most numeric fields. These wire
// types mirror that shape; ParseProbe converts them to the domain types.
type probeOutput struct {
	Format  probeFormat   `json:"format"`
	Streams []probeStream `json:"streams"`
}

type probeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type probeStream struct {
	Index      int    `json:"index"`
	CodecType  string `json:"codec_type"`
	CodecName  string `json:"codec_name"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Duration   string `json:"duration"`
	BitRate    string `json:"bit_rate"`
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n
}

// ParseProbe converts raw ffprobe JSON into a ProbeResult. Exported so the
// conversion can be tested without a real ffprobe binary.
func ParseProbe(data []byte) (*ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("could not parse ffprobe output: %w", err)
	}

	res := &ProbeResult{
		FormatName: out.Format.FormatName,
		Duration:   parseFloat(out.Format.Duration),
		Size:       parseInt64(out.Format.Size),
		BitRate:    parseInt64(out.Format.BitRate),
	}
	for _, s := range out.Streams {
		res.Streams = append(res.Streams, ProbeStream{
			Index:      s.Index,
			Type:       s.CodecType,
			Codec:      s.CodecName,
			Width:      s.Width,
			Height:     s.Height,
			SampleRate: int(parseInt64(s.SampleRate)),
			Channels:   s.Channels,
			Duration:   parseFloat(s.Duration),
			BitRate:    parseInt64(s.BitRate),
		})
	}
	return res, nil
}

// Probe runs a read-only structural probe against path. No output file is
// produced.
func (r *Runner) Probe(ctx context.Context, path string) (*ProbeResult, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
	cmd := exec.CommandContext(ctx, r.cfg.FFProbeBin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &ExecutionError{Stderr: stderrTail(stderr.String()), Err: err}
	}
	return ParseProbe(stdout.Bytes())
}
