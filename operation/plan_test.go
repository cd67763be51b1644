package operation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorValidate(t *testing.T) {
	t.Run("rejects unknown kind", func(t *testing.T) {
		d := Descriptor{Kind: "transmogrify"}
		err := d.Validate()
		require.Error(t, err)
		var ve *ValidationError
		assert.True(t, errors.As(err, &ve))
	})

	t.Run("rejects missing parameter bundle", func(t *testing.T) {
		d := Descriptor{Kind: KindConvert}
		assert.Error(t, d.Validate())
	})

	t.Run("rejects CRF out of range", func(t *testing.T) {
		d := Descriptor{Kind: KindCompress, Compress: &CompressParams{CRF: 52}}
		err := d.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "0-51")
	})

	t.Run("rejects unknown preset", func(t *testing.T) {
		d := Descriptor{Kind: KindCompress, Compress: &CompressParams{CRF: 23, Preset: "warp9"}}
		assert.Error(t, d.Validate())
	})

	t.Run("rejects non-positive duration", func(t *testing.T) {
		d := Descriptor{Kind: KindImageToVideo, ImageToVideo: &ImageToVideoParams{Duration: 0, FrameRate: 25}}
		assert.Error(t, d.Validate())
	})

	t.Run("fills merge defaults", func(t *testing.T) {
		d := Descriptor{Kind: KindMerge}
		require.NoError(t, d.Validate())
		assert.Equal(t, "video", d.Merge.VideoKey)
		assert.Equal(t, "audio", d.Merge.AudioKey)
		assert.Equal(t, "mp4", d.Merge.Format)
	})
}

func TestBuildCompress(t *testing.T) {
	d := Descriptor{Kind: KindCompress, Compress: &CompressParams{CRF: 23, Preset: "medium"}}
	require.NoError(t, d.Validate())

	plan, err := Build(&d, []string{"/tmp/in.mp4"})
	require.NoError(t, err)

	assert.Equal(t, []string{"-c:v", "libx264", "-crf", "23", "-preset", "medium"}, plan.Output)
	assert.Equal(t, "mp4", plan.OutputExt)
	require.Len(t, plan.Inputs, 1)
	assert.Equal(t, "/tmp/in.mp4", plan.Inputs[0].Path)
}

func TestBuildConvert(t *testing.T) {
	build := func(p ConvertParams) *CommandPlan {
		d := Descriptor{Kind: KindConvert, Convert: &p}
		require.NoError(t, d.Validate())
		plan, err := Build(&d, []string{"/tmp/in.avi"})
		require.NoError(t, err)
		return plan
	}

	t.Run("streaming with auto codec gets nobuffer and zerolatency", func(t *testing.T) {
		plan := build(ConvertParams{Format: "mp4", StreamingOptimize: true})
		assert.Equal(t, []string{"-fflags", "nobuffer"}, plan.Inputs[0].Options)
		assert.Contains(t, plan.Output, "-tune")
		assert.Contains(t, plan.Output, "zerolatency")
	})

	t.Run("streaming with non-x264 codec keeps nobuffer but drops zerolatency", func(t *testing.T) {
		plan := build(ConvertParams{Format: "webm", VideoCodec: "libvpx-vp9", StreamingOptimize: true})
		assert.Equal(t, []string{"-fflags", "nobuffer"}, plan.Inputs[0].Options)
		assert.NotContains(t, plan.Output, "-tune")
	})

	t.Run("keep resolution omits -s", func(t *testing.T) {
		plan := build(ConvertParams{Format: "mp4", Resolution: "keep"})
		assert.NotContains(t, plan.Output, "-s")
	})

	t.Run("explicit resolution and codecs applied", func(t *testing.T) {
		plan := build(ConvertParams{Format: "mp4", Resolution: "1920x1080", VideoCodec: "libx265", AudioCodec: "aac"})
		args := plan.Args("/tmp/out.mp4")
		assert.Equal(t, []string{
			"-i", "/tmp/in.avi",
			"-s", "1920x1080",
			"-c:v", "libx265",
			"-c:a", "aac",
			"-preset", "medium",
			"-y", "/tmp/out.mp4",
		}, args)
	})

	t.Run("preset always appended", func(t *testing.T) {
		plan := build(ConvertParams{Format: "mp4", Preset: "slow"})
		assert.Equal(t, []string{"-preset", "slow"}, plan.Output)
	})
}

func TestBuildExtractAudio(t *testing.T) {
	d := Descriptor{Kind: KindExtractAudio, ExtractAudio: &ExtractAudioParams{Format: "mp3"}}
	require.NoError(t, d.Validate())

	plan, err := Build(&d, []string{"/tmp/in.mp4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-vn"}, plan.Output)
	assert.Equal(t, "mp3", plan.OutputExt)
}

func TestBuildCustom(t *testing.T) {
	d := Descriptor{Kind: KindCustom, Custom: &CustomParams{Args: "  -c:v libx264  -b:v 1M ", OutputExt: "mp4"}}
	require.NoError(t, d.Validate())

	plan, err := Build(&d, []string{"/tmp/in.mp4"})
	require.NoError(t, err)
	assert.Equal(t, []string{"-c:v", "libx264", "-b:v", "1M"}, plan.Output)
}

func TestBuildImageToVideo(t *testing.T) {
	build := func(p ImageToVideoParams) *CommandPlan {
		d := Descriptor{Kind: KindImageToVideo, ImageToVideo: &p}
		require.NoError(t, d.Validate())
		plan, err := Build(&d, []string{"/tmp/in.png"})
		require.NoError(t, err)
		return plan
	}

	t.Run("image input is looped and bounded", func(t *testing.T) {
		plan := build(ImageToVideoParams{Duration: 5, FrameRate: 25})
		assert.Equal(t, []string{"-loop", "1"}, plan.Inputs[0].Options)
		assert.Contains(t, plan.Output, "-t")
		assert.Contains(t, plan.Output, "5")
		assert.Empty(t, plan.Filter)
	})

	t.Run("zoompan frame count is ceil(duration*frameRate)", func(t *testing.T) {
		plan := build(ImageToVideoParams{Animation: AnimationZoomPan, Duration: 5, FrameRate: 25})
		assert.Contains(t, plan.Filter, "d=125")
		assert.Contains(t, plan.Filter, "s=1280x720")
		assert.Contains(t, plan.Filter, "z='min(zoom+0.0015,1.5)'")
	})

	t.Run("fractional duration rounds frames up", func(t *testing.T) {
		plan := build(ImageToVideoParams{Animation: AnimationZoomPan, Duration: 2.5, FrameRate: 30})
		assert.Contains(t, plan.Filter, "d=75")
	})

	t.Run("vertical preset scales and crops before zoompan", func(t *testing.T) {
		plan := build(ImageToVideoParams{Animation: AnimationZoomPanVertical, Duration: 5, FrameRate: 25})
		assert.Contains(t, plan.Filter, "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,zoompan=")
		assert.Contains(t, plan.Filter, "s=1080x1920")
	})

	t.Run("wide preset targets 16:9", func(t *testing.T) {
		plan := build(ImageToVideoParams{Animation: AnimationZoomPanWide, Duration: 5, FrameRate: 25})
		assert.Contains(t, plan.Filter, "crop=1920:1080,zoompan=")
		assert.Contains(t, plan.Filter, "s=1920x1080")
	})
}

func TestBuildMerge(t *testing.T) {
	t.Run("two inputs with default codecs", func(t *testing.T) {
		d := Descriptor{Kind: KindMerge}
		require.NoError(t, d.Validate())

		plan, err := Build(&d, []string{"/tmp/v.mp4", "/tmp/a.aac"})
		require.NoError(t, err)
		require.Len(t, plan.Inputs, 2)
		assert.Equal(t, []string{"-map", "0:v:0", "-map", "1:a:0", "-c:v", "copy", "-c:a", "aac"}, plan.Output)
	})

	t.Run("shortest flag and codec overrides", func(t *testing.T) {
		d := Descriptor{Kind: KindMerge, Merge: &MergeParams{VideoCodec: "libx264", Shortest: true}}
		require.NoError(t, d.Validate())

		plan, err := Build(&d, []string{"/tmp/v.mp4", "/tmp/a.aac"})
		require.NoError(t, err)
		assert.Contains(t, plan.Output, "libx264")
		assert.Equal(t, "-shortest", plan.Output[len(plan.Output)-1])
	})

	t.Run("rejects wrong input count", func(t *testing.T) {
		d := Descriptor{Kind: KindMerge}
		require.NoError(t, d.Validate())
		_, err := Build(&d, []string{"/tmp/v.mp4"})
		assert.Error(t, err)
	})
}

func TestBuildRejectsPlanlessKinds(t *testing.T) {
	d := Descriptor{Kind: KindMetadata}
	require.NoError(t, d.Validate())
	_, err := Build(&d, []string{"/tmp/in.mp4"})
	assert.Error(t, err)

	d = Descriptor{Kind: KindConcatenate}
	require.NoError(t, d.Validate())
	_, err = Build(&d, []string{"/tmp/in.mp4"})
	assert.Error(t, err)
}

func TestConcatManifest(t *testing.T) {
	paths := []string{"/tmp/a.mp4", "/tmp/b.mp4", "/tmp/c.mp4"}
	manifest := ConcatManifest(paths)
	assert.Equal(t, "file '/tmp/a.mp4'\nfile '/tmp/b.mp4'\nfile '/tmp/c.mp4'\n", manifest)
}

func TestConcatManifestEscapesQuotes(t *testing.T) {
	manifest := ConcatManifest([]string{"/tmp/it's.mp4"})
	assert.Equal(t, `file '/tmp/it'\''s.mp4'`+"\n", manifest)
}

func TestConcatCopyPlan(t *testing.T) {
	plan := ConcatCopyPlan("/tmp/list.txt", "mp4")
	assert.Equal(t, []string{
		"-f", "concat", "-safe", "0",
		"-i", "/tmp/list.txt",
		"-c", "copy",
		"-y", "/tmp/out.mp4",
	}, plan.Args("/tmp/out.mp4"))
}

func TestConcatReencodePlan(t *testing.T) {
	plan := ConcatReencodePlan([]string{"/tmp/a.mp4", "/tmp/b.webm", "/tmp/c.mov"}, "mp4")
	require.Len(t, plan.Inputs, 3)
	assert.True(t, plan.FilterComplex)
	assert.Equal(t, "[0:v][0:a][1:v][1:a][2:v][2:a]concat=n=3:v=1:a=1[v][a]", plan.Filter)
	assert.Equal(t, []string{"-map", "[v]", "-map", "[a]", "-c:v", "libx264"}, plan.Output)
}

func TestCommandPlanValidate(t *testing.T) {
	plan := &CommandPlan{OutputExt: "mp4"}
	assert.Error(t, plan.Validate())

	plan = &CommandPlan{Inputs: []Input{{Path: "/tmp/in.mp4"}}}
	assert.Error(t, plan.Validate())

	plan = &CommandPlan{Inputs: []Input{{Path: "/tmp/in.mp4"}}, OutputExt: "mp4"}
	assert.NoError(t, plan.Validate())
}

func TestFilterChainString(t *testing.T) {
	chain := FilterChain{
		Stage("scale", "1080", "1920", "force_original_aspect_ratio=increase"),
		Stage("crop", "1080", "1920"),
		Stage("hflip"),
	}
	assert.Equal(t, "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,hflip", chain.String())
}
