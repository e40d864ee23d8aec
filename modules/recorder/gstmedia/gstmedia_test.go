package gstmedia

import (
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/john-rocky/ObjectMeasurement/modules/arframe"
	"github.com/john-rocky/ObjectMeasurement/modules/recorder"
)

func TestCapsStrings(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"raw video", rawVideoCaps(1280, 720, 30), "video/x-raw,format=RGBA,width=1280,height=720,framerate=30/1"},
		{"encoder input", encoderInputCaps(640, 480), "video/x-raw,format=I420,width=640,height=480"},
		{"raw audio", rawAudioCaps(44100, 2), "audio/x-raw,rate=44100,channels=2"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s caps = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		msg, debug string
		want       ErrorCategory
	}{
		{"Could not open audio device for recording.", "gstalsasrc.c(744): Device 'default' busy", ErrCategoryDevice},
		{"Could not open file \"/ro/out.mp4\" for writing.", "Read-only file system", ErrCategoryStorage},
		{"Internal data stream error.", "streaming stopped, reason not-negotiated (-4)", ErrCategoryNegotiation},
		{"Encode failure", "x264 returned error", ErrCategoryCodec},
		{"Something odd happened", "", ErrCategoryUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.msg, tt.debug); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

func TestErrorCounters(t *testing.T) {
	var c ErrorCounters
	c.add(ErrCategoryDevice)
	c.add(ErrCategoryCodec)
	c.add(ErrCategoryCodec)
	c.add(ErrCategoryUnknown)

	s := c.Snapshot()
	if s.Device != 1 || s.Codec != 2 || s.Unknown != 1 || s.Storage != 0 {
		t.Errorf("Snapshot = %+v", s)
	}
}

func TestParseHardwareAccel(t *testing.T) {
	tests := []struct {
		in      string
		want    HardwareAccel
		wantErr bool
	}{
		{"", AccelAuto, false},
		{"auto", AccelAuto, false},
		{"vaapi", AccelVAAPI, false},
		{"software", AccelSoftware, false},
		{"cuda", AccelAuto, true},
	}
	for _, tt := range tests {
		got, err := ParseHardwareAccel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseHardwareAccel(%q) = (%v, %v)", tt.in, got, err)
		}
	}
}

func TestHardwareAccelString(t *testing.T) {
	for accel, want := range map[HardwareAccel]string{
		AccelAuto:        "auto",
		AccelVAAPI:       "vaapi",
		AccelSoftware:    "software",
		HardwareAccel(9): "HardwareAccel(9)",
	} {
		if got := accel.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestKeepBuffer(t *testing.T) {
	cut := 5 * time.Second
	tests := []struct {
		pts  time.Duration
		want bool
	}{
		{0, true},
		{4999 * time.Millisecond, true},
		{5 * time.Second, false},
		{7200 * time.Millisecond, false},
		{-1, true},
	}
	for _, tt := range tests {
		if got := keepBuffer(tt.pts, cut); got != tt.want {
			t.Errorf("keepBuffer(%v) = %v, want %v", tt.pts, got, tt.want)
		}
	}
}

func TestNewRequiresStorage(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New without storage should fail")
	}
}

func newTestFactory(t *testing.T) *Factory {
	t.Helper()

	storage, err := recorder.NewDirStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStorage: %v", err)
	}
	f, err := New(Config{
		Accel:       AccelSoftware,
		AudioSource: "audiotestsrc",
		Storage:     storage,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Skipf("Skipping test: GStreamer not available: %v", err)
	}
	return f
}

// TestRecordAndMerge drives the real pipelines end to end. Audio runs for
// about 1.5s against 1s of video, so the merge has to cut the audio track.
func TestRecordAndMerge(t *testing.T) {
	f := newTestFactory(t)
	ctx := context.Background()

	const fps = 30
	frame := time.Second / fps

	size := arframe.Size{Width: 64, Height: 48}
	video, err := f.NewVideoSink(ctx, recorder.VideoSpec{SessionID: "test", Size: size, FPS: fps})
	if err != nil {
		t.Skipf("Skipping test: video encoder not available: %v", err)
	}
	audio, err := f.NewAudioSink(ctx, recorder.AudioSpec{SessionID: "test", SampleRate: 44100, Channels: 2})
	if err != nil {
		video.Abort()
		t.Skipf("Skipping test: audio pipeline not available: %v", err)
	}
	if err := audio.Start(); err != nil {
		t.Fatalf("audio Start: %v", err)
	}
	audioStarted := time.Now()

	pool, err := recorder.NewPixelBufferPool(size, 2)
	if err != nil {
		t.Fatalf("NewPixelBufferPool: %v", err)
	}
	for i := 0; i < fps; i++ {
		buf, err := pool.Acquire()
		if err != nil {
			t.Fatalf("Acquire: %v", err)
		}
		fill(buf.Image, color.RGBA{R: uint8(i * 8), G: 128, A: 255})

		pts := time.Duration(i) * frame
		for !video.Ready() {
			time.Sleep(time.Millisecond)
		}
		if err := video.Submit(buf, pts); err != nil {
			buf.Release()
			t.Fatalf("Submit frame %d: %v", i, err)
		}
	}
	// The audio source is live, so its length follows the wall clock.
	time.Sleep(1500*time.Millisecond - time.Since(audioStarted))

	if err := audio.Stop(); err != nil {
		t.Fatalf("audio Stop: %v", err)
	}
	finCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := video.Finalize(finCtx); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := video.Submit(nil, time.Second); err != recorder.ErrSinkFinalized {
		t.Errorf("Submit after Finalize = %v, want ErrSinkFinalized", err)
	}

	assertNonEmpty(t, video.Path())
	assertNonEmpty(t, audio.Path())

	videoDur, err := f.Duration(finCtx, video.Path())
	if err != nil {
		t.Fatalf("video Duration: %v", err)
	}
	audioDur, err := f.Duration(finCtx, audio.Path())
	if err != nil {
		t.Fatalf("audio Duration: %v", err)
	}
	t.Logf("video duration %v, audio duration %v", videoDur, audioDur)
	if audioDur <= videoDur+frame {
		t.Fatalf("audio (%v) should outlast video (%v) by more than a frame", audioDur, videoDur)
	}

	out, err := f.Combine(finCtx, video.Path(), audio.Path())
	if err != nil {
		t.Fatalf("Combine: %v", err)
	}
	assertNonEmpty(t, out)

	outDur, err := f.Duration(finCtx, out)
	if err != nil {
		t.Fatalf("output Duration: %v", err)
	}
	want := recorder.MergeDuration(videoDur, audioDur)
	if diff := outDur - want; diff > frame || diff < -frame {
		t.Errorf("output duration = %v, want %v within %v", outDur, want, frame)
	}
}

func fill(img *image.RGBA, c color.RGBA) {
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func assertNonEmpty(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat %s: %v", path, err)
	}
	if info.Size() == 0 {
		t.Errorf("%s is empty", path)
	}
}
