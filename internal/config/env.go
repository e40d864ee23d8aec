package config

import (
	"fmt"
	"strconv"
)

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// applyEnv overrides fields from SCENE_* variables. Values loaded from a
// .env file by godotenv are already in the environment at this point.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"SCENE_CAPTURE_SOURCE":       &cfg.Capture.Source,
		"SCENE_CAPTURE_DEVICE":       &cfg.Capture.Device,
		"SCENE_CAPTURE_URL":          &cfg.Capture.URL,
		"SCENE_RECORDING_OUTPUT_DIR": &cfg.Recording.OutputDir,
		"SCENE_RECORDING_ACCEL":      &cfg.Recording.Accel,
		"SCENE_RECORDING_WATERMARK":  &cfg.Recording.Watermark,
		"SCENE_AUDIO_SOURCE":         &cfg.Recording.AudioSource,
		"SCENE_AUDIO_DEVICE":         &cfg.Recording.AudioDevice,
		"SCENE_LOG_LEVEL":            &cfg.Log.Level,
		"SCENE_LOG_FORMAT":           &cfg.Log.Format,
		"SCENE_LOG_FILE":             &cfg.Log.File,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"SCENE_RECORDING_FPS": &cfg.Recording.FPS,
		"SCENE_CAPTURE_FPS":   &cfg.Capture.FPS,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}

	if v, ok := lookup("SCENE_RECORDING_AUDIO"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SCENE_RECORDING_AUDIO: %w", err)
		}
		cfg.Recording.Audio = b
	}
	if v, ok := lookup("SCENE_RECORDING_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SCENE_RECORDING_ENABLED: %w", err)
		}
		cfg.Recording.Enabled = &b
	}
	return nil
}
