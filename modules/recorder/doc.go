// Package recorder records an AR session to a video file.
//
// A Recorder owns at most one recording session at a time and moves through
//
//	Idle -> Starting -> Recording -> Stopping -> Idle
//
// While Recording, live frames offered with Publish land in a single-slot
// mailbox. A pacing goroutine drains it, asks the FramePacer whether the frame
// is due for the target fps, copies the image into a pooled PixelBuffer
// (rotation, aspect policy and watermark applied by the PixelBufferRecycler)
// and submits it to the VideoSink with a nominal presentation time
// index * (1/fps). Frames that arrive while the encoder is busy or the pool is
// empty are dropped, never queued.
//
// Stop runs the shutdown stages in order on its own goroutine:
//
//  1. stop pacing (no more submissions)
//  2. stop audio capture (synchronous)
//  3. finalize the video file (waits for the writer)
//  4. combine video and audio when an audio track exists
//  5. deliver the output path through the done callback, exactly once
//
// Media backends are abstracted by SinkFactory and Muxer. The GStreamer
// implementation lives in the gstmedia subpackage.
package recorder
