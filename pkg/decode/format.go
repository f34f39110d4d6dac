package decode

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Format is an accepted upload container
type Format string

const (
	FormatWAV  Format = "wav"
	FormatMP3  Format = "mp3"
	FormatFLAC Format = "flac"
)

// SupportedFormats lists the accepted formats in display order
func SupportedFormats() []Format {
	return []Format{FormatWAV, FormatMP3, FormatFLAC}
}

// ParseFormat normalizes a format name, file extension or MIME type
func ParseFormat(name string) (Format, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	s = strings.TrimPrefix(s, ".")

	switch s {
	case "wav", "wave", "audio/wav", "audio/wave", "audio/x-wav", "audio/vnd.wave":
		return FormatWAV, nil
	case "mp3", "mpeg", "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg-3":
		return FormatMP3, nil
	case "flac", "audio/flac", "audio/x-flac":
		return FormatFLAC, nil
	}

	return "", NewDecodeError(Format(s), "", ErrCodeUnsupportedFormat,
		fmt.Sprintf("unsupported audio format %q (expected WAV, MP3 or FLAC)", name), nil)
}

// FormatFromPath derives the format from a file extension
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", NewDecodeError("", path, ErrCodeUnsupportedFormat,
			"cannot determine audio format: file has no extension", nil)
	}
	format, err := ParseFormat(ext)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
		}
		return "", err
	}
	return format, nil
}

// MIMEType returns the canonical MIME type used for playback
func (f Format) MIMEType() string {
	switch f {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatFLAC:
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// String implements fmt.Stringer
func (f Format) String() string {
	return strings.ToUpper(string(f))
}
