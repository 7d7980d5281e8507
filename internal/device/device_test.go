package device

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tOgg1/geoforce/internal/models"
)

func TestSimulatedGeolocatorEmitsAndCancels(t *testing.T) {
	geo := &SimulatedGeolocator{Interval: 2 * time.Millisecond}

	var mu sync.Mutex
	var fixes []models.Location
	sub, err := geo.Subscribe(func(fix models.Location) {
		mu.Lock()
		fixes = append(fixes, fix)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, geo.ActiveSubscriptions())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(fixes) >= 3
	}, time.Second, time.Millisecond)

	sub.Cancel()
	sub.Cancel()
	assert.Equal(t, 0, geo.ActiveSubscriptions())

	mu.Lock()
	count := len(fixes)
	first := fixes[0]
	mu.Unlock()
	assert.Equal(t, 40.7128, first.Lat)

	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, count, len(fixes), "no fixes after cancel")
	mu.Unlock()
}

func TestSimulatedGeolocatorDenied(t *testing.T) {
	geo := &SimulatedGeolocator{Err: errors.New("permission denied")}
	_, err := geo.Subscribe(func(models.Location) {}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrResourceAccess)
	assert.Equal(t, 0, geo.ActiveSubscriptions())
}

func TestSimulatedCameraCapture(t *testing.T) {
	cam := &SimulatedCamera{}
	stream, err := cam.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, cam.OpenStreams())

	frame, err := stream.Capture()
	require.NoError(t, err)
	assert.Equal(t, "image/png", frame.ContentType)
	img, err := png.Decode(bytes.NewReader(frame.Data))
	require.NoError(t, err)
	assert.Equal(t, 320, img.Bounds().Dx())
	assert.Equal(t, 240, img.Bounds().Dy())

	stream.Stop()
	stream.Stop()
	assert.Equal(t, 0, cam.OpenStreams())

	_, err = stream.Capture()
	assert.ErrorIs(t, err, models.ErrResourceAccess)
}

func TestSimulatedCameraDenied(t *testing.T) {
	cam := &SimulatedCamera{Err: errors.New("NotAllowedError")}
	_, err := cam.Start(context.Background())
	assert.ErrorIs(t, err, models.ErrResourceAccess)
	assert.Equal(t, 0, cam.OpenStreams())
}

func TestFileCamera(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proof.png")
	var buf bytes.Buffer
	frame, err := (&SimulatedCamera{Width: 4, Height: 4}).Start(context.Background())
	require.NoError(t, err)
	f, err := frame.Capture()
	require.NoError(t, err)
	buf.Write(f.Data)
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	stream, err := FileCamera{Path: path}.Start(context.Background())
	require.NoError(t, err)
	got, err := stream.Capture()
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, buf.Bytes(), got.Data)

	_, err = FileCamera{Path: filepath.Join(t.TempDir(), "missing.jpg")}.Start(context.Background())
	assert.ErrorIs(t, err, models.ErrResourceAccess)
}
