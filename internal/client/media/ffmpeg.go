package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/dmitrijs2005/clipvault/internal/logging"
)

// container describes how ffmpeg produces one MIME type.
type container struct {
	muxer      string
	videoCodec string
	audioCodec string
	extraArgs  []string
}

var containers = map[string]container{
	"video/mp4": {
		muxer:      "mp4",
		videoCodec: "libx264",
		audioCodec: "aac",
		extraArgs:  []string{"-movflags", "+faststart"},
	},
	"video/webm": {
		muxer:      "webm",
		videoCodec: "libvpx-vp9",
		audioCodec: "libopus",
	},
	"video/x-matroska": {
		muxer:      "matroska",
		videoCodec: "libx264",
		audioCodec: "aac",
	},
}

type runFunc func(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// FFmpeg negotiates formats from `ffmpeg -muxers` and muxes recordings by
// spooling raw streams to temp files and running ffmpeg on Finalize.
type FFmpeg struct {
	path    string
	tempDir string
	log     logging.Logger
	run     runFunc

	once    sync.Once
	muxers  map[string]bool
	loadErr error
}

func NewFFmpeg(path, tempDir string, log logging.Logger) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	if log == nil {
		log = logging.Discard()
	}
	return &FFmpeg{path: path, tempDir: tempDir, log: log.With("module", "ffmpeg"), run: runCommand}
}

func (f *FFmpeg) loadMuxers() {
	f.once.Do(func() {
		out, stderr, err := f.run(context.Background(), f.path, "-hide_banner", "-muxers")
		if err != nil {
			f.loadErr = fmt.Errorf("ffmpeg -muxers: %w: %s", err, strings.TrimSpace(string(stderr)))
			f.log.Warn(context.Background(), "ffmpeg unavailable", "error", f.loadErr)
			return
		}
		f.muxers = parseMuxers(out)
	})
}

// parseMuxers reads the table printed by `ffmpeg -muxers`:
//
//	E mp4             MP4 (MPEG-4 Part 14)
//	E matroska,webm   Matroska
func parseMuxers(out []byte) map[string]bool {
	res := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 || fields[1] == "=" {
			continue
		}
		if !strings.Contains(fields[0], "E") || strings.Trim(fields[0], "DEd.") != "" {
			continue
		}
		for _, name := range strings.Split(fields[1], ",") {
			res[name] = true
		}
	}
	return res
}

func (f *FFmpeg) IsTypeSupported(mime string) bool {
	c, ok := containers[BaseType(mime)]
	if !ok {
		return false
	}
	f.loadMuxers()
	return f.loadErr == nil && f.muxers[c.muxer]
}

func (f *FFmpeg) NewMuxer(mime string, video VideoSpec, audio AudioSpec) (Muxer, error) {
	c, ok := containers[BaseType(mime)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mime)
	}
	if video.Width <= 0 || video.Height <= 0 || video.FPS <= 0 {
		return nil, errors.New("invalid video spec")
	}
	return newSpoolMuxer(f, c, video, audio)
}
