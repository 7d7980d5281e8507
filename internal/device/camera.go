package device

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"sync"
	"sync/atomic"

	"github.com/tOgg1/geoforce/internal/models"
)

var errStreamStopped = errors.New("stream stopped")

// Frame is one captured image.
type Frame struct {
	Data        []byte
	ContentType string
}

// Camera opens capture streams.
type Camera interface {
	Start(ctx context.Context) (Stream, error)
}

// Stream is an open camera.
type Stream interface {
	Capture() (Frame, error)
	// Stop releases the camera. Idempotent.
	Stop()
}

// SimulatedCamera renders a synthetic PNG test pattern.
type SimulatedCamera struct {
	Width  int
	Height int
	// Err, when set, makes Start fail as if access was denied.
	Err error

	open atomic.Int32
}

// Start opens a stream.
func (c *SimulatedCamera) Start(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.ResourceError{Resource: "camera", Err: err}
	}
	if c.Err != nil {
		return nil, &models.ResourceError{Resource: "camera", Err: c.Err}
	}
	w, h := c.Width, c.Height
	if w <= 0 {
		w = 320
	}
	if h <= 0 {
		h = 240
	}
	c.open.Add(1)
	return &simulatedStream{camera: c, width: w, height: h}, nil
}

// OpenStreams returns how many streams are open.
func (c *SimulatedCamera) OpenStreams() int {
	return int(c.open.Load())
}

type simulatedStream struct {
	camera        *SimulatedCamera
	width, height int

	mu      sync.Mutex
	stopped bool
	frames  int
}

func (s *simulatedStream) Capture() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Frame{}, &models.ResourceError{Resource: "camera", Err: errStreamStopped}
	}
	s.frames++

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	shift := uint8(s.frames * 16)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8(x*255/s.width) + shift,
				G: uint8(y * 255 / s.height),
				B: 0x80,
				A: 0xff,
			})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Frame{}, &models.ResourceError{Resource: "camera", Err: err}
	}
	return Frame{Data: buf.Bytes(), ContentType: "image/png"}, nil
}

func (s *simulatedStream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.camera.open.Add(-1)
}

// FileCamera serves a still image from disk.
type FileCamera struct {
	Path string
}

// Start checks that the image is readable.
func (c FileCamera) Start(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &models.ResourceError{Resource: "camera", Err: err}
	}
	if _, err := os.Stat(c.Path); err != nil {
		return nil, &models.ResourceError{Resource: "camera", Err: err}
	}
	return &fileStream{path: c.Path}, nil
}

type fileStream struct {
	path    string
	mu      sync.Mutex
	stopped bool
}

func (s *fileStream) Capture() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return Frame{}, &models.ResourceError{Resource: "camera", Err: errStreamStopped}
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Frame{}, &models.ResourceError{Resource: "camera", Err: err}
	}
	return Frame{Data: data, ContentType: http.DetectContentType(data)}, nil
}

func (s *fileStream) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
