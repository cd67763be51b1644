package ffmpeg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Trimmed but structurally faithful ffprobe output for an H.264/AAC mp4.
const sampleProbeJSON = `{
    "streams": [
        {
            "index": 0,
            "codec_name": "h264",
            "codec_type": "video",
            "width": 1920,
            "height": 1080,
            "duration": "30.048000",
            "bit_rate": "4200000"
        },
        {
            "index": 1,
            "codec_name": "aac",
            "codec_type": "audio",
            "sample_rate": "48000",
            "channels": 2,
            "duration": "30.112000",
            "bit_rate": "128000"
        }
    ],
    "format": {
        "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
        "duration": "30.112000",
        "size": "16252928",
        "bit_rate": "4318000"
    }
}`

func TestParseProbe(t *testing.T) {
	res, err := ParseProbe([]byte(sampleProbeJSON))
	require.NoError(t, err)

	assert.Equal(t, "mov,mp4,m4a,3gp,3g2,mj2", res.FormatName)
	assert.InDelta(t, 30.112, res.Duration, 0.001)
	assert.Equal(t, int64(16252928), res.Size)
	assert.Equal(t, int64(4318000), res.BitRate)

	require.Len(t, res.Streams, 2)

	video := res.Streams[0]
	assert.Equal(t, "video", video.Type)
	assert.Equal(t, "h264", video.Codec)
	assert.Equal(t, 1920, video.Width)
	assert.Equal(t, 1080, video.Height)
	assert.Equal(t, int64(4200000), video.BitRate)

	audio := res.Streams[1]
	assert.Equal(t, "audio", audio.Type)
	assert.Equal(t, "aac", audio.Codec)
	assert.Equal(t, 48000, audio.SampleRate)
	assert.Equal(t, 2, audio.Channels)
}

func TestParseProbeRejectsMalformedJSON(t *testing.T) {
	_, err := ParseProbe([]byte("not json"))
	assert.Error(t, err)
}

func TestParseProbeToleratesMissingNumericFields(t *testing.T) {
	res, err := ParseProbe([]byte(`{"format": {"format_name": "wav"}, "streams": []}`))
	require.NoError(t, err)
	assert.Equal(t, "wav", res.FormatName)
	assert.Zero(t, res.Duration)
	assert.Zero(t, res.BitRate)
}
