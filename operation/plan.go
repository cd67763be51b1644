package operation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// h264Encoder is the encoder forced by Compress and used as the zero-latency
// tuning gate in Convert.
const h264Encoder = "libx264"

// Input is one encoder input: the file path plus options that must precede
// its -i flag (e.g. -loop 1 for a still image).
type Input struct {
	Path    string
	Options []string
}

// CommandPlan is a fully specified encoder invocation, assembled in one pass
// and never mutated afterwards. Args renders the final argv exactly once.
type CommandPlan struct {
	Inputs        []Input
	Filter        string // serialized filter chain, "" when none
	FilterComplex bool   // -filter_complex instead of -vf
	Output        []string
	OutputExt     string // output container extension, no leading dot
}

// Validate checks the structural invariants of a built plan.
func (p *CommandPlan) Validate() error {
	if len(p.Inputs) == 0 {
		return fmt.Errorf("command plan has no inputs")
	}
	if p.OutputExt == "" {
		return fmt.Errorf("command plan has no output extension")
	}
	return nil
}

// Args renders the argv passed to the encoder binary, output path last.
func (p *CommandPlan) Args(outputPath string) []string {
	var args []string
	for _, in := range p.Inputs {
		args = append(args, in.Options...)
		args = append(args, "-i", in.Path)
	}
	if p.Filter != "" {
		if p.FilterComplex {
			args = append(args, "-filter_complex", p.Filter)
		} else {
			args = append(args, "-vf", p.Filter)
		}
	}
	args = append(args, p.Output...)
	args = append(args, "-y", outputPath)
	return args
}

// Build maps a validated descriptor and the resolved input paths to a
// CommandPlan. It is pure: no file I/O, no state. Metadata produces no plan
// (it is a probe, not an encode) and Concatenate plans are built by the
// dedicated ConcatCopyPlan/ConcatReencodePlan constructors because their
// input set is batch-scoped.
func Build(d *Descriptor, inputs []string) (*CommandPlan, error) {
	var plan *CommandPlan
	var err error

	switch d.Kind {
	case KindConvert:
		plan, err = buildConvert(d.Convert, inputs)
	case KindCompress:
		plan, err = buildCompress(d.Compress, inputs)
	case KindExtractAudio:
		plan, err = buildExtractAudio(d.ExtractAudio, inputs)
	case KindCustom:
		plan, err = buildCustom(d.Custom, inputs)
	case KindImageToVideo:
		plan, err = buildImageToVideo(d.ImageToVideo, inputs)
	case KindMerge:
		plan, err = buildMerge(d.Merge, inputs)
	case KindMetadata:
		return nil, fmt.Errorf("metadata is a probe operation and has no command plan")
	case KindConcatenate:
		return nil, fmt.Errorf("concatenate plans are built per batch, not per item")
	default:
		return nil, fmt.Errorf("no plan builder for operation kind %q", d.Kind)
	}
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return plan, nil
}

func singleInput(inputs []string) (string, error) {
	if len(inputs) != 1 {
		return "", fmt.Errorf("expected exactly one input, got %d", len(inputs))
	}
	return inputs[0], nil
}

func buildConvert(p *ConvertParams, inputs []string) (*CommandPlan, error) {
	path, err := singleInput(inputs)
	if err != nil {
		return nil, err
	}

	in := Input{Path: path}
	var out []string

	if p.StreamingOptimize {
		// Low-latency input handling is applied regardless of codec.
		in.Options = append(in.Options, "-fflags", "nobuffer")
	}
	if p.Resolution != "" && p.Resolution != "keep" {
		out = append(out, "-s", p.Resolution)
	}
	if p.VideoCodec != "auto" {
		out = append(out, "-c:v", p.VideoCodec)
	}
	if p.AudioCodec != "auto" {
		out = append(out, "-c:a", p.AudioCodec)
	}
	// zerolatency is an x264 tune; only meaningful when that encoder can be
	// in play (explicitly selected or left to ffmpeg's default).
	if p.StreamingOptimize && (p.VideoCodec == "auto" || p.VideoCodec == h264Encoder) {
		out = append(out, "-tune", "zerolatency")
	}
	out = append(out, "-preset", p.Preset)

	return &CommandPlan{
		Inputs:    []Input{in},
		Output:    out,
		OutputExt: p.Format,
	}, nil
}

func buildCompress(p *CompressParams, inputs []string) (*CommandPlan, error) {
	path, err := singleInput(inputs)
	if err != nil {
		return nil, err
	}
	return &CommandPlan{
		Inputs: []Input{{Path: path}},
		Output: []string{
			"-c:v", h264Encoder,
			"-crf", strconv.Itoa(p.CRF),
			"-preset", p.Preset,
		},
		OutputExt: "mp4",
	}, nil
}

func buildExtractAudio(p *ExtractAudioParams, inputs []string) (*CommandPlan, error) {
	path, err := singleInput(inputs)
	if err != nil {
		return nil, err
	}
	// -vn drops the video stream; the container extension selects the codec.
	return &CommandPlan{
		Inputs:    []Input{{Path: path}},
		Output:    []string{"-vn"},
		OutputExt: p.Format,
	}, nil
}

func buildCustom(p *CustomParams, inputs []string) (*CommandPlan, error) {
	path, err := singleInput(inputs)
	if err != nil {
		return nil, err
	}
	// Whitespace split only. Tokens with embedded spaces get broken apart;
	// see CustomParams.
	return &CommandPlan{
		Inputs:    []Input{{Path: path}},
		Output:    strings.Fields(p.Args),
		OutputExt: p.OutputExt,
	}, nil
}

// Zoom-pan animation geometry. The zoom factor grows by 0.0015 per output
// frame, capped at 1.5x.
const (
	zoomExpr     = "z='min(zoom+0.0015,1.5)'"
	zoomCenterX  = "x='iw/2-(iw/zoom/2)'"
	zoomCenterY  = "y='ih/2-(ih/zoom/2)'"
	zoomPanW     = 1280
	zoomPanH     = 720
	verticalW    = 1080
	verticalH    = 1920
	wideW        = 1920
	wideH        = 1080
)

func zoomPanStage(frames, fps, w, h int) FilterStage {
	return Stage("zoompan",
		zoomExpr,
		fmt.Sprintf("d=%d", frames),
		zoomCenterX,
		zoomCenterY,
		fmt.Sprintf("s=%dx%d", w, h),
		fmt.Sprintf("fps=%d", fps),
	)
}

// aspectStages scales the source up to cover the target box, then crops it to
// exactly that box, so the following zoompan works on a clean aspect ratio.
func aspectStages(w, h int) FilterChain {
	return FilterChain{
		Stage("scale", strconv.Itoa(w), strconv.Itoa(h), "force_original_aspect_ratio=increase"),
		Stage("crop", strconv.Itoa(w), strconv.Itoa(h)),
	}
}

func buildImageToVideo(p *ImageToVideoParams, inputs []string) (*CommandPlan, error) {
	path, err := singleInput(inputs)
	if err != nil {
		return nil, err
	}

	frames := int(math.Ceil(p.Duration * float64(p.FrameRate)))

	var chain FilterChain
	switch p.Animation {
	case AnimationNone:
		// Plain looped still, no filter.
	case AnimationZoomPan:
		chain = FilterChain{zoomPanStage(frames, p.FrameRate, zoomPanW, zoomPanH)}
	case AnimationZoomPanVertical:
		chain = append(aspectStages(verticalW, verticalH), zoomPanStage(frames, p.FrameRate, verticalW, verticalH))
	case AnimationZoomPanWide:
		chain = append(aspectStages(wideW, wideH), zoomPanStage(frames, p.FrameRate, wideW, wideH))
	}

	out := []string{
		"-t", strconv.FormatFloat(p.Duration, 'f', -1, 64),
		"-r", strconv.Itoa(p.FrameRate),
		"-c:v", h264Encoder,
		"-pix_fmt", "yuv420p",
	}

	return &CommandPlan{
		Inputs:    []Input{{Path: path, Options: []string{"-loop", "1"}}},
		Filter:    chain.String(),
		Output:    out,
		OutputExt: "mp4",
	}, nil
}

func buildMerge(p *MergeParams, inputs []string) (*CommandPlan, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("merge requires exactly two inputs (video, audio), got %d", len(inputs))
	}

	vc := p.VideoCodec
	if vc == "" || vc == "auto" {
		vc = "copy"
	}
	ac := p.AudioCodec
	if ac == "" || ac == "auto" {
		ac = "aac"
	}

	out := []string{
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", vc,
		"-c:a", ac,
	}
	if p.Shortest {
		out = append(out, "-shortest")
	}

	return &CommandPlan{
		Inputs:    []Input{{Path: inputs[0]}, {Path: inputs[1]}},
		Output:    out,
		OutputExt: p.Format,
	}, nil
}

// ConcatManifest renders the demuxer-concat manifest body: one
// "file '<path>'" line per input, in order. Single quotes inside a path use
// ffmpeg's '\'' escape.
func ConcatManifest(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

// ConcatCopyPlan joins inputs listed in an on-disk manifest by stream copy.
// Fast and lossless, but all inputs must share compatible codecs and
// parameters; no pre-validation is done and a mismatch fails however the
// encoder reports it.
func ConcatCopyPlan(manifestPath, format string) *CommandPlan {
	return &CommandPlan{
		Inputs: []Input{{
			Path:    manifestPath,
			Options: []string{"-f", "concat", "-safe", "0"},
		}},
		Output:    []string{"-c", "copy"},
		OutputExt: format,
	}
}

// ConcatReencodePlan joins heterogeneous inputs through the concat filter,
// re-encoding video with the H.264 encoder to normalize the output.
func ConcatReencodePlan(paths []string, format string) *CommandPlan {
	inputs := make([]Input, len(paths))
	var labels strings.Builder
	for i, p := range paths {
		inputs[i] = Input{Path: p}
		fmt.Fprintf(&labels, "[%d:v][%d:a]", i, i)
	}
	concat := Stage("concat",
		fmt.Sprintf("n=%d", len(paths)),
		"v=1",
		"a=1",
	)
	filter := labels.String() + concat.String() + "[v][a]"

	return &CommandPlan{
		Inputs:        inputs,
		Filter:        filter,
		FilterComplex: true,
		Output:        []string{"-map", "[v]", "-map", "[a]", "-c:v", h264Encoder},
		OutputExt:     format,
	}
}
