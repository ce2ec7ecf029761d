package media

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

var errMuxerClosed = errors.New("muxer closed")

// spoolMuxer writes raw RGBA frames and PCM samples to temp files and hands
// them to ffmpeg on Finalize.
type spoolMuxer struct {
	ff    *FFmpeg
	c     container
	video VideoSpec
	audio AudioSpec

	mu     sync.Mutex
	dir    string
	vf     *os.File
	vw     *bufio.Writer
	af     *os.File
	aw     *bufio.Writer
	frames int64
	closed bool
}

func newSpoolMuxer(ff *FFmpeg, c container, video VideoSpec, audio AudioSpec) (*spoolMuxer, error) {
	dir, err := os.MkdirTemp(ff.tempDir, "clipvault-mux-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create spool dir: %w", err)
	}

	m := &spoolMuxer{ff: ff, c: c, video: video, audio: audio, dir: dir}

	m.vf, err = os.Create(filepath.Join(dir, "video.rgba"))
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to create video spool: %w", err)
	}
	m.vw = bufio.NewWriterSize(m.vf, 1<<20)

	if audio.Enabled() {
		m.af, err = os.Create(filepath.Join(dir, "audio.pcm"))
		if err != nil {
			_ = m.vf.Close()
			_ = os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to create audio spool: %w", err)
		}
		m.aw = bufio.NewWriterSize(m.af, 64<<10)
	}
	return m, nil
}

func (m *spoolMuxer) WriteVideo(f Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errMuxerClosed
	}
	img := f.Image
	if img == nil {
		return errors.New("nil frame image")
	}
	b := img.Bounds()
	if b.Dx() != m.video.Width || b.Dy() != m.video.Height {
		return fmt.Errorf("frame is %dx%d, want %dx%d", b.Dx(), b.Dy(), m.video.Width, m.video.Height)
	}

	rowLen := b.Dx() * 4
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		if _, err := m.vw.Write(img.Pix[off : off+rowLen]); err != nil {
			return fmt.Errorf("failed to spool frame: %w", err)
		}
	}
	m.frames++
	return nil
}

func (m *spoolMuxer) WriteAudio(c AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errMuxerClosed
	}
	if m.aw == nil {
		return nil
	}
	if err := binary.Write(m.aw, binary.LittleEndian, c.Samples); err != nil {
		return fmt.Errorf("failed to spool audio: %w", err)
	}
	return nil
}

func (m *spoolMuxer) args(out string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", m.video.Width, m.video.Height),
		"-r", strconv.Itoa(m.video.FPS),
		"-i", m.vf.Name(),
	}
	if m.af != nil {
		args = append(args,
			"-f", "s16le",
			"-ar", strconv.Itoa(m.audio.SampleRate),
			"-ac", strconv.Itoa(m.audio.Channels),
			"-i", m.af.Name(),
		)
	}
	args = append(args, "-c:v", m.c.videoCodec, "-pix_fmt", "yuv420p")
	if m.af != nil {
		args = append(args, "-c:a", m.c.audioCodec)
	}
	args = append(args, m.c.extraArgs...)
	return append(args, "-f", m.c.muxer, out)
}

func (m *spoolMuxer) Finalize(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errMuxerClosed
	}
	m.closed = true
	defer os.RemoveAll(m.dir)

	if err := m.closeSpools(); err != nil {
		return nil, err
	}
	if m.frames == 0 {
		return nil, errors.New("no frames captured")
	}

	out := filepath.Join(m.dir, "out."+m.c.muxer)
	_, stderr, err := m.ff.run(ctx, m.ff.path, m.args(out)...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg mux failed: %w: %s", err, strings.TrimSpace(string(stderr)))
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read muxed clip: %w", err)
	}
	m.ff.log.Debug(ctx, "clip muxed", "frames", m.frames, "bytes", len(data), "muxer", m.c.muxer)
	return data, nil
}

func (m *spoolMuxer) Abort() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	_ = m.closeSpools()
	_ = os.RemoveAll(m.dir)
}

func (m *spoolMuxer) closeSpools() error {
	var errs []error
	if err := m.vw.Flush(); err != nil {
		errs = append(errs, err)
	}
	if err := m.vf.Close(); err != nil {
		errs = append(errs, err)
	}
	if m.af != nil {
		if err := m.aw.Flush(); err != nil {
			errs = append(errs, err)
		}
		if err := m.af.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close spool: %w", err)
	}
	return nil
}
