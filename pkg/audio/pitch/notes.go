package pitch

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ReferenceA4 is the tuning reference in Hz
const ReferenceA4 = 440.0

var pitchClasses = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

// MIDIToHz converts a (possibly fractional) MIDI note number to equal
// tempered frequency relative to A4 = 440 Hz.
func MIDIToHz(midi float64) float64 {
	return ReferenceA4 * math.Pow(2, (midi-69)/12)
}

// NoteToMIDI parses scientific pitch notation such as "C2", "A#4", "Bb3"
// or "c7". The octave defaults to 0 when omitted.
func NoteToMIDI(note string) (int, error) {
	s := strings.TrimSpace(note)
	if s == "" {
		return 0, fmt.Errorf("empty note name")
	}

	pc, ok := pitchClasses[strings.ToUpper(s[:1])[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note name %q: unknown pitch class", note)
	}
	s = s[1:]

	offset := 0
	for accidental := true; accidental && len(s) > 0; {
		switch {
		case s[0] == '#':
			offset++
			s = s[1:]
		case s[0] == 'b':
			offset--
			s = s[1:]
		case strings.HasPrefix(s, "♯"):
			offset++
			s = s[len("♯"):]
		case strings.HasPrefix(s, "♭"):
			offset--
			s = s[len("♭"):]
		default:
			accidental = false
		}
	}

	oct := 0
	if s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid note name %q: bad octave: %w", note, err)
		}
		oct = parsed
	}

	return 12*(oct+1) + pc + offset, nil
}

// NoteToHz returns the equal tempered frequency of a note name
func NoteToHz(note string) (float64, error) {
	midi, err := NoteToMIDI(note)
	if err != nil {
		return 0, err
	}
	return MIDIToHz(float64(midi)), nil
}

// MustNoteToHz is NoteToHz for compile-time constant note names
func MustNoteToHz(note string) float64 {
	hz, err := NoteToHz(note)
	if err != nil {
		panic(err)
	}
	return hz
}
