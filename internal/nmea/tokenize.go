package nmea

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// ErrMalformed reports input that does not look like "$<body>*<checksum>".
	ErrMalformed = errors.New("nmea: malformed sentence")
	// ErrChecksum reports an unparsable or mismatched checksum.
	ErrChecksum = errors.New("nmea: checksum mismatch")
)

// Any part of the CRLF terminator may be missing: line readers usually strip
// it and a cut link can leave a bare CR.
var sentenceRE = regexp.MustCompile(`^\$([^$*\r\n]+)\*([^\r\n$]*)\r?\n?$`)

// Sentence is the raw text of one sentence split around '*'.
type Sentence struct {
	Body     string
	Checksum string
}

// Tokenize matches raw against the sentence pattern and verifies the checksum.
//
// The returned Sentence is populated whenever the pattern matched, even if the
// checksum failed, so callers can log what was dropped.
func Tokenize(raw string) (Sentence, error) {
	m := sentenceRE.FindStringSubmatch(raw)
	if m == nil {
		return Sentence{}, ErrMalformed
	}
	s := Sentence{Body: m[1], Checksum: m[2]}
	if err := s.Verify(); err != nil {
		return s, err
	}
	return s, nil
}

// Verify checks the two hex digits after '*' against the XOR of the body.
func (s Sentence) Verify() error {
	ck := strings.TrimSpace(s.Checksum)
	if len(ck) != 2 {
		return fmt.Errorf("%w: unparsable checksum %q", ErrChecksum, s.Checksum)
	}
	want, err := strconv.ParseUint(ck, 16, 8)
	if err != nil {
		return fmt.Errorf("%w: unparsable checksum %q", ErrChecksum, s.Checksum)
	}
	got := Checksum([]byte(s.Body))
	if got != byte(want) {
		return fmt.Errorf("%w: calculated %02X, sentence says %02X", ErrChecksum, got, byte(want))
	}
	return nil
}

// ID returns the talker+sentence identifier, e.g. "GPGGA".
func (s Sentence) ID() string {
	id, _, _ := strings.Cut(s.Body, ",")
	return id
}

// Type returns the three-letter sentence type with the talker removed.
// GNxxx/GPxxx/GLxxx all normalize to the same type.
func (s Sentence) Type() string {
	id := s.ID()
	if len(id) > 3 {
		id = id[len(id)-3:]
	}
	return strings.ToUpper(id)
}

// Talker returns the talker prefix, e.g. "GP" for "GPGGA".
func (s Sentence) Talker() string {
	id := s.ID()
	if len(id) <= 3 {
		return ""
	}
	return id[:len(id)-3]
}
