package gstmedia

import (
	"strings"
	"sync/atomic"
)

// ErrorCategory classifies GStreamer errors for telemetry.
type ErrorCategory int

const (
	// ErrCategoryDevice indicates a capture device that is missing or busy.
	ErrCategoryDevice ErrorCategory = iota
	// ErrCategoryCodec indicates encoder or decoder failures.
	ErrCategoryCodec
	// ErrCategoryNegotiation indicates caps that could not be agreed on.
	ErrCategoryNegotiation
	// ErrCategoryStorage indicates the output file could not be written.
	ErrCategoryStorage
	// ErrCategoryUnknown indicates unclassified errors.
	ErrCategoryUnknown
)

func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryDevice:
		return "device"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryNegotiation:
		return "negotiation"
	case ErrCategoryStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Keyword lists in priority order: the first list with a match wins.
var categoryKeywords = []struct {
	category ErrorCategory
	keywords []string
}{
	{ErrCategoryDevice, []string{
		"could not open audio device",
		"could not open device",
		"no such device",
		"device busy",
		"resource busy",
		"audio device",
		"pulseaudio",
		"alsa",
		"microphone",
	}},
	{ErrCategoryStorage, []string{
		"could not open file",
		"could not write",
		"no space left",
		"read-only file system",
		"permission denied",
		"filesink",
	}},
	{ErrCategoryNegotiation, []string{
		"not negotiated",
		"not-negotiated",
		"negotiation",
		"caps",
	}},
	{ErrCategoryCodec, []string{
		"codec",
		"encode",
		"decode",
		"h264",
		"aac",
		"x264",
		"missing plugin",
		"no encoder",
	}},
}

// Classify categorizes an error from its message and debug string.
func Classify(msg, debug string) ErrorCategory {
	combined := strings.ToLower(msg + " " + debug)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(combined, kw) {
				return c.category
			}
		}
	}
	return ErrCategoryUnknown
}

// ErrorCounters counts pipeline errors per category.
type ErrorCounters struct {
	Device      atomic.Uint64
	Codec       atomic.Uint64
	Negotiation atomic.Uint64
	Storage     atomic.Uint64
	Unknown     atomic.Uint64
}

func (c *ErrorCounters) add(cat ErrorCategory) {
	switch cat {
	case ErrCategoryDevice:
		c.Device.Add(1)
	case ErrCategoryCodec:
		c.Codec.Add(1)
	case ErrCategoryNegotiation:
		c.Negotiation.Add(1)
	case ErrCategoryStorage:
		c.Storage.Add(1)
	default:
		c.Unknown.Add(1)
	}
}

// ErrorStats is a snapshot of ErrorCounters.
type ErrorStats struct {
	Device      uint64
	Codec       uint64
	Negotiation uint64
	Storage     uint64
	Unknown     uint64
}

// Snapshot reads all counters.
func (c *ErrorCounters) Snapshot() ErrorStats {
	return ErrorStats{
		Device:      c.Device.Load(),
		Codec:       c.Codec.Load(),
		Negotiation: c.Negotiation.Load(),
		Storage:     c.Storage.Load(),
		Unknown:     c.Unknown.Load(),
	}
}
