package capture

import (
	"context"
	"testing"
	"time"
)

func TestParseSourceKind(t *testing.T) {
	tests := []struct {
		in      string
		want    SourceKind
		wantErr bool
	}{
		{"", SourceTest, false},
		{"test", SourceTest, false},
		{"v4l2", SourceV4L2, false},
		{"rtsp", SourceRTSP, false},
		{"webcam", SourceTest, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSourceKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSourceKind(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSourceKind(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid test source", Config{Source: SourceTest, Width: 640, Height: 480, FPS: 30}, false},
		{"v4l2 default device", Config{Source: SourceV4L2, Width: 640, Height: 480, FPS: 30}, false},
		{"rtsp without url", Config{Source: SourceRTSP, Width: 640, Height: 480, FPS: 30}, true},
		{"zero width", Config{Source: SourceTest, Height: 480, FPS: 30}, true},
		{"fps too high", Config{Source: SourceTest, Width: 640, Height: 480, FPS: 240}, true},
		{"negative buffer", Config{Source: SourceTest, Width: 640, Height: 480, FPS: 30, Buffer: -1}, true},
		{"unknown source", Config{Source: SourceKind(9), Width: 640, Height: 480, FPS: 30}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if cfg.Buffer != defaultBuffer {
				t.Errorf("Buffer = %d, want default %d", cfg.Buffer, defaultBuffer)
			}
			if cfg.Logger == nil {
				t.Error("Logger not defaulted")
			}
			if cfg.Source == SourceV4L2 && cfg.Device != defaultDevice {
				t.Errorf("Device = %q, want %q", cfg.Device, defaultDevice)
			}
		})
	}
}

func TestBuildCaps(t *testing.T) {
	got := buildCaps(1280, 720, 30)
	want := "video/x-raw,format=RGBA,width=1280,height=720,framerate=30/1"
	if got != want {
		t.Errorf("buildCaps() = %q, want %q", got, want)
	}
}

func TestRGBAFromBytes(t *testing.T) {
	data := make([]byte, 2*2*4+8) // trailing padding is ignored
	for i := range data {
		data[i] = byte(i)
	}

	img, ok := rgbaFromBytes(data, 2, 2)
	if !ok {
		t.Fatal("rgbaFromBytes rejected a full buffer")
	}
	if img.Bounds().Dx() != 2 || img.Bounds().Dy() != 2 {
		t.Fatalf("bounds = %v, want 2x2", img.Bounds())
	}
	data[0] = 0xFF
	if img.Pix[0] != 0 {
		t.Error("image aliases the source buffer")
	}
	if c := img.RGBAAt(1, 1); c.R != 12 || c.A != 15 {
		t.Errorf("pixel (1,1) = %v, want R=12 A=15", c)
	}

	if _, ok := rgbaFromBytes(data[:10], 2, 2); ok {
		t.Error("short buffer accepted")
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := DefaultReconnectConfig()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt, cfg); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRunWithReconnect_ExhaustsRetries(t *testing.T) {
	cfg := ReconnectConfig{MaxRetries: 2, RetryDelay: time.Millisecond, MaxRetryDelay: time.Millisecond}
	state := &reconnectState{}
	runs, rebuilds := 0, 0

	err := runWithReconnect(context.Background(), cfg, state, discardLogger(),
		func(context.Context) error { runs++; return errTest },
		func() error { rebuilds++; return nil },
	)
	if err == nil {
		t.Fatal("expected max retries error")
	}
	if runs != 3 || rebuilds != 2 {
		t.Errorf("runs=%d rebuilds=%d, want 3 and 2", runs, rebuilds)
	}
	if state.total.Load() != 3 {
		t.Errorf("total retries = %d, want 3", state.total.Load())
	}
}

func TestRunWithReconnect_CancelledIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := ReconnectConfig{MaxRetries: 5, RetryDelay: time.Hour, MaxRetryDelay: time.Hour}

	err := runWithReconnect(ctx, cfg, &reconnectState{}, discardLogger(),
		func(context.Context) error { cancel(); return errTest },
		func() error { t.Error("rebuild after cancel"); return nil },
	)
	if err != nil {
		t.Errorf("cancelled run returned %v, want nil", err)
	}
}

func TestStream_StopIdempotent(t *testing.T) {
	s, err := New(Config{Source: SourceTest, Width: 320, Height: 240, FPS: 15})
	if err != nil {
		t.Skipf("Skipping test: GStreamer not available: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("first Stop() on idle stream: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop() on idle stream: %v", err)
	}
}

func TestStream_TestSourceDeliversFrames(t *testing.T) {
	s, err := New(Config{Source: SourceTest, Width: 320, Height: 240, FPS: 15})
	if err != nil {
		t.Skipf("Skipping test: GStreamer not available: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames, err := s.Start(ctx)
	if err != nil {
		t.Skipf("Skipping test: test source unavailable: %v", err)
	}
	if _, err := s.Start(ctx); err != ErrAlreadyStarted {
		t.Errorf("second Start() = %v, want ErrAlreadyStarted", err)
	}

	select {
	case f := <-frames:
		if f.Image == nil || f.Image.Bounds().Dx() != 320 {
			t.Errorf("unexpected frame image %v", f.Image)
		}
		if f.TraceID == "" || f.Seq == 0 {
			t.Errorf("frame missing metadata: seq=%d trace=%q", f.Seq, f.TraceID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no frame within 5s")
	}

	if err := s.Stop(); err != nil {
		t.Errorf("Stop() = %v", err)
	}
	for range frames {
	}
	if s.Stats().FrameCount == 0 {
		t.Error("Stats().FrameCount = 0 after receiving a frame")
	}
}
