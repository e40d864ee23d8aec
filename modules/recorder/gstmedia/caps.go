package gstmedia

import "fmt"

// rawVideoCaps describes the frames pushed into the video appsrc.
func rawVideoCaps(width, height, fps int) string {
	return fmt.Sprintf("video/x-raw,format=RGBA,width=%d,height=%d,framerate=%d/1", width, height, fps)
}

// encoderInputCaps pins the colorspace handed to the H.264 encoder.
func encoderInputCaps(width, height int) string {
	return fmt.Sprintf("video/x-raw,format=I420,width=%d,height=%d", width, height)
}

// rawAudioCaps pins the capture format before encoding.
func rawAudioCaps(rate, channels int) string {
	return fmt.Sprintf("audio/x-raw,rate=%d,channels=%d", rate, channels)
}
