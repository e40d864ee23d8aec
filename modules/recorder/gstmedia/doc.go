// Package gstmedia implements the recorder media backends on GStreamer.
//
// Video sink:
//
//	appsrc (RGBA, explicit PTS) → videoconvert → capsfilter(I420) →
//	vaapih264enc | x264enc | openh264enc → h264parse → mp4mux → filesink
//
// Audio sink:
//
//	autoaudiosrc → audioconvert → audioresample → capsfilter(44.1kHz stereo) →
//	avenc_aac | voaacenc | fdkaacenc → aacparse → mp4mux → filesink (.m4a)
//
// Muxer:
//
//	filesrc → qtdemux ─video_0→ queue → h264parse ─┐
//	filesrc → qtdemux ─audio_0→ queue → aacparse  ─┴→ mp4mux → filesink
//
// Both inputs are cut to the shorter duration with buffer probes.
//
// Every pipeline is watched on its bus the same way: 50ms TimedPop polling,
// errors classified into device / codec / storage / negotiation / unknown and
// counted atomically.
package gstmedia
