package media

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Info describes the first video stream of a file
type Info struct {
	Width  int
	Height int
	FPS    float64
	Frames int // 0 when the container does not report it
}

// Probe reads stream metadata with ffprobe
func Probe(ctx context.Context, path string) (Info, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,nb_frames",
		"-of", "default=noprint_wrappers=1",
		path,
	).Output()
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

// parseProbe reads key=value lines from ffprobe default output
func parseProbe(out []byte) (Info, error) {
	var info Info
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "width":
			info.Width, _ = strconv.Atoi(val)
		case "height":
			info.Height, _ = strconv.Atoi(val)
		case "nb_frames":
			info.Frames, _ = strconv.Atoi(val)
		case "avg_frame_rate":
			info.FPS = parseRate(val)
		}
	}
	if info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("probe: no video stream: %w", ErrUnsupportedSource)
	}
	return info, nil
}

// parseRate accepts "30", "30000/1001" and "0/0"
func parseRate(s string) float64 {
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// FFmpegSource streams rgb24 frames from an ffmpeg child process.
// Forward seeks discard frames; backward seeks are refused.
type FFmpegSource struct {
	path   string
	info   Info
	width  int
	height int

	cmd     *exec.Cmd
	out     io.ReadCloser
	r       *bufio.Reader
	stderr  bytes.Buffer
	buf     []byte
	pos     int
	waited  bool
	exitErr error
}

// OpenFFmpeg probes path and starts decoding at the output size
func OpenFFmpeg(ctx context.Context, path string, width int, charAspect float64) (*FFmpegSource, error) {
	info, err := Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	w, h := OutputSize(info.Width, info.Height, width, charAspect)
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-an",
		"-vf", fmt.Sprintf("scale=%d:%d", w, h),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	return startPipe(cmd, path, info, w, h)
}

// startPipe runs cmd and reads w x h rgb24 frames from its stdout
func startPipe(cmd *exec.Cmd, path string, info Info, w, h int) (*FFmpegSource, error) {
	s := &FFmpegSource{
		path:   path,
		info:   info,
		width:  w,
		height: h,
		cmd:    cmd,
		buf:    make([]byte, w*h*3),
	}
	cmd.Stderr = &s.stderr

	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	s.out = out
	s.r = bufio.NewReaderSize(out, len(s.buf)*2)
	return s, nil
}

// Next fills f with the next frame. io.EOF marks a clean end of stream; a
// decoder that exits with a failure status yields its error instead.
func (s *FFmpegSource) Next(f *Frame) error {
	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if werr := s.wait(); werr != nil {
				return werr
			}
			return io.EOF
		}
		return err
	}
	f.Index = s.pos
	fillRGB24(s.buf, f)
	s.pos++
	return nil
}

// Position returns the index of the frame Next will return
func (s *FFmpegSource) Position() int {
	return s.pos
}

// Seek skips forward to frame by discarding decoded frames
func (s *FFmpegSource) Seek(frame int) error {
	if frame < s.pos {
		return ErrBackwardSeek
	}
	skip := int64(frame-s.pos) * int64(len(s.buf))
	n, err := io.CopyN(io.Discard, s.r, skip)
	s.pos += int(n / int64(len(s.buf)))
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// FPS returns the probed average frame rate, 0 when unknown
func (s *FFmpegSource) FPS() float64 {
	return s.info.FPS
}

// FrameCount returns the probed frame count, 0 when unknown
func (s *FFmpegSource) FrameCount() int {
	return s.info.Frames
}

// Size returns the output grid dimensions
func (s *FFmpegSource) Size() (int, int) {
	return s.width, s.height
}

// SampleFrames decodes n frames evenly spaced across the stream in one pass.
// Without a frame count the first n frames are used.
func (s *FFmpegSource) SampleFrames(n int) ([]*Frame, error) {
	if n <= 0 {
		return nil, nil
	}
	step := 1
	if s.info.Frames > n {
		step = s.info.Frames / n
	}

	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", s.path,
		"-an",
		"-vf", fmt.Sprintf("select='not(mod(n\\,%d))',scale=%d:%d", step, s.width, s.height),
		"-vsync", "vfr",
		"-frames:v", strconv.Itoa(n),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("sample frames: %w", err)
	}

	size := s.width * s.height * 3
	frames := make([]*Frame, 0, n)
	for i := 0; (i+1)*size <= len(out); i++ {
		f := NewFrame(s.width, s.height)
		f.Index = i * step
		fillRGB24(out[i*size:(i+1)*size], f)
		frames = append(frames, f)
	}
	return frames, nil
}

// wait reaps the decoder once its output is drained
func (s *FFmpegSource) wait() error {
	if s.waited || s.cmd == nil {
		return s.exitErr
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		msg := strings.TrimSpace(s.stderr.String())
		s.exitErr = fmt.Errorf("ffmpeg stopped at frame %d: %w: %s", s.pos, err, msg)
	}
	return s.exitErr
}

// Close stops the decoder process
func (s *FFmpegSource) Close() error {
	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}
	if !s.waited {
		_ = s.out.Close()
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.cmd = nil
	return nil
}

// ExtractAudio writes the audio track of path to a wav file in dir.
// The caller removes the returned file.
func ExtractAudio(ctx context.Context, path, dir string) (string, error) {
	f, err := os.CreateTemp(dir, "asciiplay-audio-*.wav")
	if err != nil {
		return "", err
	}
	out := f.Name()
	f.Close()

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-vn",
		"-map", "a:0",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		"-y", out,
	)
	if msg, err := cmd.CombinedOutput(); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("extract audio from %s: %w: %s", filepath.Base(path), err, strings.TrimSpace(string(msg)))
	}
	return out, nil
}
