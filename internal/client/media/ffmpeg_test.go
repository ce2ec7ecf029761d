package media

import (
	"context"
	"errors"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const muxersOutput = `File formats:
 D. = Demuxing supported
 .E = Muxing supported
 ---
  E 3g2             3GP2 (3GP2 format)
  E matroska        Matroska
  E mp4             MP4 (MPEG-4 Part 14)
 DE wav             WAV / WAVE (Waveform Audio)
  E webm            WebM
`

func fakeFFmpeg(t *testing.T, run runFunc) *FFmpeg {
	t.Helper()
	f := NewFFmpeg("ffmpeg", t.TempDir(), nil)
	f.run = run
	return f
}

func TestParseMuxers(t *testing.T) {
	m := parseMuxers([]byte(muxersOutput))
	assert.True(t, m["mp4"])
	assert.True(t, m["webm"])
	assert.True(t, m["matroska"])
	assert.True(t, m["wav"])
	assert.False(t, m["="])
	assert.False(t, m["mov"])
}

func TestFFmpeg_IsTypeSupported(t *testing.T) {
	calls := 0
	f := fakeFFmpeg(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		calls++
		assert.Equal(t, "ffmpeg", name)
		assert.Contains(t, args, "-muxers")
		return []byte(strings.Replace(muxersOutput, "  E mp4 ", "  . mp4 ", 1)), nil, nil
	})

	assert.False(t, f.IsTypeSupported("video/mp4"))
	assert.True(t, f.IsTypeSupported("video/webm;codecs=vp9"))
	assert.False(t, f.IsTypeSupported("video/ogg"))
	assert.Equal(t, 1, calls, "muxer list is loaded once")

	got, err := Negotiate(f, []string{"video/mp4", "video/webm"})
	require.NoError(t, err)
	assert.Equal(t, "video/webm", got)
}

func TestFFmpeg_Missing(t *testing.T) {
	f := fakeFFmpeg(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("not found"), exec.ErrNotFound
	})

	_, err := Negotiate(f, []string{"video/mp4", "video/webm"})
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func testFrame(w, h int) Frame {
	return Frame{Image: image.NewRGBA(image.Rect(0, 0, w, h))}
}

func TestSpoolMuxer_Finalize(t *testing.T) {
	var gotArgs []string
	f := fakeFFmpeg(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		gotArgs = args

		vi := indexOf(args, "-i")
		require.GreaterOrEqual(t, vi, 0)
		st, err := os.Stat(args[vi+1])
		require.NoError(t, err)
		assert.EqualValues(t, 3*4*2*4, st.Size(), "3 frames of 4x2 RGBA")

		return nil, nil, os.WriteFile(args[len(args)-1], []byte("muxed-mp4"), 0o600)
	})

	m, err := f.NewMuxer("video/mp4", VideoSpec{Width: 4, Height: 2, FPS: 30}, AudioSpec{SampleRate: 48000, Channels: 1})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, m.WriteVideo(testFrame(4, 2)))
	}
	require.NoError(t, m.WriteAudio(AudioChunk{Samples: make([]int16, 1600)}))

	data, err := m.Finalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "muxed-mp4", string(data))

	joined := strings.Join(gotArgs, " ")
	assert.Contains(t, joined, "-f rawvideo -pix_fmt rgba -s 4x2 -r 30")
	assert.Contains(t, joined, "-f s16le -ar 48000 -ac 1")
	assert.Contains(t, joined, "-c:v libx264")
	assert.Contains(t, joined, "-c:a aac")
	assert.Contains(t, joined, "-f mp4")

	spool := filepath.Dir(gotArgs[len(gotArgs)-1])
	_, err = os.Stat(spool)
	assert.True(t, errors.Is(err, os.ErrNotExist), "spool dir removed")

	require.ErrorIs(t, m.WriteVideo(testFrame(4, 2)), errMuxerClosed)
	_, err = m.Finalize(context.Background())
	require.ErrorIs(t, err, errMuxerClosed)
}

func TestSpoolMuxer_Errors(t *testing.T) {
	f := fakeFFmpeg(t, func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
		return nil, []byte("Unknown encoder 'libx264'"), errors.New("exit status 1")
	})

	_, err := f.NewMuxer("video/ogg", VideoSpec{Width: 4, Height: 2, FPS: 30}, AudioSpec{})
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = f.NewMuxer("video/mp4", VideoSpec{}, AudioSpec{})
	require.Error(t, err)

	m, err := f.NewMuxer("video/mp4", VideoSpec{Width: 4, Height: 2, FPS: 30}, AudioSpec{})
	require.NoError(t, err)
	require.Error(t, m.WriteVideo(testFrame(8, 8)), "size mismatch")
	require.NoError(t, m.WriteAudio(AudioChunk{Samples: []int16{1}}), "audio ignored without track")
	_, err = m.Finalize(context.Background())
	require.ErrorContains(t, err, "no frames captured")

	m, err = f.NewMuxer("video/mp4", VideoSpec{Width: 4, Height: 2, FPS: 30}, AudioSpec{})
	require.NoError(t, err)
	require.NoError(t, m.WriteVideo(testFrame(4, 2)))
	_, err = m.Finalize(context.Background())
	require.ErrorContains(t, err, "Unknown encoder")
}

func TestSpoolMuxer_AbortRemovesSpool(t *testing.T) {
	f := fakeFFmpeg(t, nil)
	m, err := f.NewMuxer("video/webm", VideoSpec{Width: 2, Height: 2, FPS: 10}, AudioSpec{})
	require.NoError(t, err)
	sm := m.(*spoolMuxer)

	require.NoError(t, m.WriteVideo(testFrame(2, 2)))
	m.Abort()
	m.Abort()

	_, err = os.Stat(sm.dir)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	require.ErrorIs(t, m.WriteAudio(AudioChunk{}), errMuxerClosed)
}

func TestFFmpeg_RealBinary(t *testing.T) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	f := NewFFmpeg(path, t.TempDir(), nil)

	mime, err := Negotiate(f, []string{"video/mp4", "video/webm"})
	if err != nil {
		t.Skipf("no usable muxer: %v", err)
	}

	m, err := f.NewMuxer(mime, VideoSpec{Width: 64, Height: 64, FPS: 10}, AudioSpec{SampleRate: 48000, Channels: 1})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, m.WriteVideo(testFrame(64, 64)))
	}
	require.NoError(t, m.WriteAudio(AudioChunk{Samples: make([]int16, 24000)}))

	data, err := m.Finalize(context.Background())
	if err != nil {
		t.Skipf("ffmpeg build cannot encode %s: %v", mime, err)
	}
	assert.NotEmpty(t, data)
}

func indexOf(args []string, v string) int {
	for i, a := range args {
		if a == v {
			return i
		}
	}
	return -1
}
