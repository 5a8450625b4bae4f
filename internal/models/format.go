package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/downcida/internal/shared"
)

// AudioFormat is an output format the conversion API can produce.
type AudioFormat int

const (
	FormatFLAC AudioFormat = iota
	FormatM4A
	FormatMP3
	FormatOGG
	FormatOpus
	FormatWAV
	// FormatOriginal requests the source as-is and always saves it as .flac.
	FormatOriginal
)

type formatEntry struct {
	name      string
	profile   string
	extension string
}

var catalog = map[AudioFormat]formatEntry{
	FormatFLAC:     {name: "flac", profile: "flac-16", extension: "flac"},
	FormatM4A:      {name: "m4a", profile: "m4a-320", extension: "m4a"},
	FormatMP3:      {name: "mp3", profile: "mp3-320", extension: "mp3"},
	FormatOGG:      {name: "ogg", profile: "ogg-320", extension: "ogg"},
	FormatOpus:     {name: "opus", profile: "opus-320", extension: "opus"},
	FormatWAV:      {name: "wav", profile: "wav", extension: "wav"},
	FormatOriginal: {name: "original", profile: "original", extension: "flac"},
}

// Formats lists every catalog entry in declaration order.
func Formats() []AudioFormat {
	return []AudioFormat{FormatFLAC, FormatM4A, FormatMP3, FormatOGG, FormatOpus, FormatWAV, FormatOriginal}
}

// ParseFormat resolves a user-supplied format name. "lossless" is an alias for flac.
func ParseFormat(s string) (AudioFormat, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "lossless" {
		return FormatFLAC, nil
	}
	for _, f := range Formats() {
		if catalog[f].name == name {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// String returns the format's catalog name.
func (f AudioFormat) String() string {
	if e, ok := catalog[f]; ok {
		return e.name
	}
	return "unknown"
}

// Profile returns the encoding profile sent to the API as "downscale".
func (f AudioFormat) Profile() string {
	return catalog[f].profile
}

// Extension returns the local file extension, without the dot.
func (f AudioFormat) Extension() string {
	return catalog[f].extension
}

// Valid reports whether f is a catalog entry.
func (f AudioFormat) Valid() bool {
	_, ok := catalog[f]
	return ok
}
