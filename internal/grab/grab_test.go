package grab

import (
	"context"
	"image/jpeg"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smazurov/camgrab/internal/acquire"
	"github.com/smazurov/camgrab/internal/events"
	"github.com/smazurov/camgrab/internal/hal"
	"github.com/smazurov/camgrab/internal/hal/halsim"
	"github.com/smazurov/camgrab/internal/metrics"
	"github.com/smazurov/camgrab/internal/save"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCamera() *halsim.Camera {
	return halsim.NewCamera(halsim.Config{
		Serial:  "SIMTEST01",
		IP:      0xC0A80105, // 192.168.1.5
		Formats: []hal.PixelFormat{hal.PixelBayerRG8, hal.PixelMono8},
	})
}

func baseOptions(t *testing.T) Options {
	t.Helper()
	return Options{
		Count:     2,
		ROIWidth:  64,
		ROIHeight: 64,
		OutputDir: t.TempDir(),
		Prefix:    "test",
		Format:    save.FormatJPEG,
		Timeout:   time.Second,
	}
}

func savedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, filepath.Join(dir, e.Name()))
	}
	return names
}

func TestService_Run_Continuous(t *testing.T) {
	cam := testCamera()
	drv := halsim.New(cam)
	opts := baseOptions(t)

	svc := New(drv, opts, nil, nil, testLogger())
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Captured != 2 || summary.Timeouts != 0 || summary.DecodeSkips != 0 {
		t.Errorf("summary %+v", summary)
	}

	files := savedFiles(t, opts.OutputDir)
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("saved file is not a valid JPEG: %v", err)
	}
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 64 {
		t.Errorf("saved size %v, want 64x64", img.Bounds())
	}

	// The device is released when the run ends.
	if cam.IsOpen() || cam.IsStreaming() {
		t.Error("camera not released after run")
	}
}

func TestService_Run_SoftwareTrigger(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)
	opts.Trigger = acquire.TriggerConfig{Mode: acquire.TriggerSoftware}

	svc := New(drv, opts, nil, nil, testLogger())
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Captured != 2 {
		t.Errorf("captured %d, want 2", summary.Captured)
	}
}

func TestService_Run_HardwareTimeoutIsCounted(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)
	opts.Count = 1
	opts.Trigger = acquire.TriggerConfig{Mode: acquire.TriggerHardware}
	opts.Timeout = 30 * time.Millisecond

	svc := New(drv, opts, nil, nil, testLogger())
	summary, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// No pulse ever arrives: the slot times out but the run completes.
	if summary.Timeouts != 1 || summary.Captured != 0 {
		t.Errorf("summary %+v, want 1 timeout and 0 captured", summary)
	}
}

func TestService_Run_Resize(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)
	opts.Count = 1
	opts.ResizeWidth = 32
	opts.ResizeHeight = 24

	svc := New(drv, opts, nil, nil, testLogger())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	files := savedFiles(t, opts.OutputDir)
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("saved size %v, want 32x24", img.Bounds())
	}
}

func TestService_Run_AddressSelection(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)
	opts.Count = 1
	opts.Address = "192.168.1.5"

	svc := New(drv, opts, nil, nil, testLogger())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run with matching address failed: %v", err)
	}

	opts.Address = "10.0.0.99"
	opts.OutputDir = t.TempDir()
	svc = New(drv, opts, nil, nil, testLogger())
	if _, err := svc.Run(context.Background()); err == nil {
		t.Fatal("expected error for unknown address")
	}
}

func TestService_Run_SerialSelectsGigECamera(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)
	opts.Count = 1
	// The camera is GigE; its serial must still select it.
	opts.Address = "SIMTEST01"

	svc := New(drv, opts, nil, nil, testLogger())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run with serial address failed: %v", err)
	}

	files := savedFiles(t, opts.OutputDir)
	if len(files) != 1 {
		t.Errorf("got %d files, want 1", len(files))
	}
}

func TestProgressStatusLine(t *testing.T) {
	tests := []struct {
		captured, requested int
		want                string
	}{
		{0, 10, "captured 0/10 frames"},
		{3, 10, "captured 3/10 frames"},
		{7, 0, "captured 7 frames"},
	}
	for _, tt := range tests {
		if got := progress(tt.captured, tt.requested); got != tt.want {
			t.Errorf("progress(%d, %d) = %q, want %q", tt.captured, tt.requested, got, tt.want)
		}
	}
}

func TestService_Run_CancelledContext(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)
	opts.Count = 100

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := New(drv, opts, nil, nil, testLogger())
	summary, err := svc.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Captured != 0 {
		t.Errorf("captured %d frames under a cancelled context", summary.Captured)
	}
}

func TestService_Run_PublishesEvents(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)
	opts.Count = 1

	bus := events.New()
	captured := make(chan events.FrameCapturedEvent, 4)
	unsub := bus.Subscribe(func(e events.FrameCapturedEvent) { captured <- e })
	defer unsub()

	svc := New(drv, opts, bus, nil, testLogger())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	select {
	case e := <-captured:
		if e.Serial != "SIMTEST01" {
			t.Errorf("event serial %q", e.Serial)
		}
		if e.SavedPath == "" {
			t.Error("event missing saved path")
		}
	case <-time.After(time.Second):
		t.Fatal("no FrameCapturedEvent published")
	}
}

func TestService_Run_RecordsMetrics(t *testing.T) {
	drv := halsim.New(testCamera())
	opts := baseOptions(t)

	m := metrics.NewAcquisition()
	svc := New(drv, opts, nil, m, testLogger())
	if _, err := svc.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// The run observed frames; the scrape output must reflect them.
	got := testutil.ToFloat64(m.FramesCaptured.WithLabelValues("SIMTEST01"))
	if got != 2 {
		t.Errorf("frames_captured_total = %g, want 2", got)
	}
}
