// Package capture provides a live camera feed as arframe.Frame values.
//
// A Stream builds a GStreamer pipeline ending in an RGBA appsink. Each
// sample is copied into an *image.RGBA and tagged with the buffer's
// presentation time, a sequence number and a trace ID:
//
//	stream, err := capture.New(capture.Config{
//	    Source: capture.SourceV4L2,
//	    Width:  1280,
//	    Height: 720,
//	    FPS:    30,
//	})
//	frames, err := stream.Start(ctx)
//	for frame := range frames {
//	    // ...
//	}
//
// Delivery never blocks the streaming thread: when the consumer falls
// behind, frames are dropped and counted in Stats. Pipeline errors and
// end-of-stream trigger a rebuild with exponential backoff.
//
// Pose and depth are not known to the capture layer; callers attach them
// before handing frames to measurement.
package capture
