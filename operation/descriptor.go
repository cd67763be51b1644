package operation

import (
	"fmt"
)

// Kind identifies one of the supported media operations.
type Kind string

const (
	KindConvert      Kind = "convert"
	KindCompress     Kind = "compress"
	KindExtractAudio Kind = "extractAudio"
	KindMetadata     Kind = "metadata"
	KindCustom       Kind = "custom"
	KindImageToVideo Kind = "imageToVideo"
	KindMerge        Kind = "merge"
	KindConcatenate  Kind = "concatenate"
)

// ValidationError reports a malformed descriptor field. It is raised before
// any file I/O happens for the item.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// ffmpeg speed/quality presets, fastest to slowest.
var validPresets = map[string]bool{
	"ultrafast": true, "superfast": true, "veryfast": true, "faster": true,
	"fast": true, "medium": true, "slow": true, "slower": true, "veryslow": true,
}

type ConvertParams struct {
	Format            string `json:"format"`
	Resolution        string `json:"resolution,omitempty"` // "" or "keep" preserves the source
	VideoCodec        string `json:"videoCodec,omitempty"` // "auto" leaves the choice to ffmpeg
	AudioCodec        string `json:"audioCodec,omitempty"`
	StreamingOptimize bool   `json:"streamingOptimize,omitempty"`
	Preset            string `json:"preset,omitempty"`
}

type CompressParams struct {
	CRF    int    `json:"crf"`
	Preset string `json:"preset,omitempty"`
}

type ExtractAudioParams struct {
	Format string `json:"format"` // output audio container: mp3, aac, wav, ogg, flac
}

// CustomParams passes raw ffmpeg output options through verbatim. The args
// string is split on whitespace only: quoted or space-containing tokens are
// not supported and will be split incorrectly. This is a deliberate,
// documented escape hatch, not a shell.
type CustomParams struct {
	Args      string `json:"args"`
	OutputExt string `json:"outputExt"`
}

// Animation presets for ImageToVideo.
const (
	AnimationNone            = "none"
	AnimationZoomPan         = "zoompan"
	AnimationZoomPanVertical = "zoompan-vertical" // 9:16 target
	AnimationZoomPanWide     = "zoompan-wide"     // 16:9 target
)

type ImageToVideoParams struct {
	Animation string  `json:"animation,omitempty"`
	Duration  float64 `json:"duration"`
	FrameRate int     `json:"frameRate"`
}

type MergeParams struct {
	VideoKey   string `json:"videoKey,omitempty"` // binary field holding the video stream
	AudioKey   string `json:"audioKey,omitempty"`
	VideoCodec string `json:"videoCodec,omitempty"`
	AudioCodec string `json:"audioCodec,omitempty"`
	Shortest   bool   `json:"shortest,omitempty"`
	Format     string `json:"format,omitempty"`
}

// Concatenation strategies.
const (
	ConcatCopy     = "copy"     // demuxer concat, no re-encoding
	ConcatReencode = "reencode" // concat filter with a normalizing video codec
)

type ConcatParams struct {
	Strategy string   `json:"strategy,omitempty"`
	Paths    []string `json:"paths,omitempty"`    // explicit ordered input paths
	PathList string   `json:"pathList,omitempty"` // alternative comma-separated form
	Format   string   `json:"format,omitempty"`
}

// Descriptor is a tagged union: Kind selects which parameter bundle applies.
// Exactly one bundle matching the kind must be set; Validate enforces this
// and normalizes defaults in place.
type Descriptor struct {
	Kind         Kind                `json:"kind"`
	Convert      *ConvertParams      `json:"convert,omitempty"`
	Compress     *CompressParams     `json:"compress,omitempty"`
	ExtractAudio *ExtractAudioParams `json:"extractAudio,omitempty"`
	Custom       *CustomParams       `json:"custom,omitempty"`
	ImageToVideo *ImageToVideoParams `json:"imageToVideo,omitempty"`
	Merge        *MergeParams        `json:"merge,omitempty"`
	Concat       *ConcatParams       `json:"concat,omitempty"`
}

// Validate checks the descriptor before any file I/O and fills in defaults.
func (d *Descriptor) Validate() error {
	switch d.Kind {
	case KindConvert:
		if d.Convert == nil {
			return &ValidationError{Field: "convert", Reason: "parameters required"}
		}
		p := d.Convert
		if p.Format == "" {
			return &ValidationError{Field: "convert.format", Reason: "required"}
		}
		if p.VideoCodec == "" {
			p.VideoCodec = "auto"
		}
		if p.AudioCodec == "" {
			p.AudioCodec = "auto"
		}
		if p.Preset == "" {
			p.Preset = "medium"
		}
		if !validPresets[p.Preset] {
			return &ValidationError{Field: "convert.preset", Reason: "unknown preset " + p.Preset}
		}
	case KindCompress:
		if d.Compress == nil {
			return &ValidationError{Field: "compress", Reason: "parameters required"}
		}
		p := d.Compress
		if p.CRF < 0 || p.CRF > 51 {
			return &ValidationError{Field: "compress.crf", Reason: fmt.Sprintf("must be 0-51, got %d", p.CRF)}
		}
		if p.Preset == "" {
			p.Preset = "medium"
		}
		if !validPresets[p.Preset] {
			return &ValidationError{Field: "compress.preset", Reason: "unknown preset " + p.Preset}
		}
	case KindExtractAudio:
		if d.ExtractAudio == nil {
			return &ValidationError{Field: "extractAudio", Reason: "parameters required"}
		}
		if d.ExtractAudio.Format == "" {
			d.ExtractAudio.Format = "mp3"
		}
	case KindMetadata:
		// No parameters.
	case KindCustom:
		if d.Custom == nil {
			return &ValidationError{Field: "custom", Reason: "parameters required"}
		}
		if d.Custom.Args == "" {
			return &ValidationError{Field: "custom.args", Reason: "required"}
		}
		if d.Custom.OutputExt == "" {
			return &ValidationError{Field: "custom.outputExt", Reason: "required"}
		}
	case KindImageToVideo:
		if d.ImageToVideo == nil {
			return &ValidationError{Field: "imageToVideo", Reason: "parameters required"}
		}
		p := d.ImageToVideo
		if p.Animation == "" {
			p.Animation = AnimationNone
		}
		switch p.Animation {
		case AnimationNone, AnimationZoomPan, AnimationZoomPanVertical, AnimationZoomPanWide:
		default:
			return &ValidationError{Field: "imageToVideo.animation", Reason: "unknown animation " + p.Animation}
		}
		if p.Duration <= 0 {
			return &ValidationError{Field: "imageToVideo.duration", Reason: "must be positive"}
		}
		if p.FrameRate <= 0 {
			return &ValidationError{Field: "imageToVideo.frameRate", Reason: "must be positive"}
		}
	case KindMerge:
		if d.Merge == nil {
			d.Merge = &MergeParams{}
		}
		p := d.Merge
		if p.VideoKey == "" {
			p.VideoKey = "video"
		}
		if p.AudioKey == "" {
			p.AudioKey = "audio"
		}
		if p.Format == "" {
			p.Format = "mp4"
		}
	case KindConcatenate:
		if d.Concat == nil {
			d.Concat = &ConcatParams{}
		}
		p := d.Concat
		if p.Strategy == "" {
			p.Strategy = ConcatCopy
		}
		if p.Strategy != ConcatCopy && p.Strategy != ConcatReencode {
			return &ValidationError{Field: "concat.strategy", Reason: "unknown strategy " + p.Strategy}
		}
		if p.Format == "" {
			p.Format = "mp4"
		}
	default:
		return &ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown operation kind %q", d.Kind)}
	}
	return nil
}
