package parser

import (
	"bufio"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlfront/pkg/token"
)

const eof rune = -1

// stream is a rune reader over a lazily pulled sequence of text chunks.
// Chunks are appended to an internal buffer on demand, so lookahead across
// a chunk boundary behaves exactly as within one chunk.
type stream struct {
	next func() (string, bool)
	buf  []byte // unread bytes
	done bool   // chunk source exhausted
	pos  token.Position
	lit  strings.Builder // text consumed since the last take
}

func newStream(next func() (string, bool)) *stream {
	return &stream{
		next: next,
		pos:  token.Position{Line: 1, Column: 1},
	}
}

// fill makes sure at least n bytes are buffered, pulling chunks as needed.
// It reports whether n bytes are available.
func (s *stream) fill(n int) bool {
	for len(s.buf) < n && !s.done {
		chunk, ok := s.next()
		if !ok {
			s.done = true
			break
		}
		s.buf = append(s.buf, chunk...)
	}
	return len(s.buf) >= n
}

// peek returns the next rune without consuming it.
func (s *stream) peek() rune {
	r, _ := s.peekRune(0)
	return r
}

// peekRune decodes the rune starting i bytes ahead.
func (s *stream) peekRune(i int) (rune, int) {
	if !s.fill(i + 1) {
		return eof, 0
	}
	s.fill(i + utf8.UTFMax)
	r, size := utf8.DecodeRune(s.buf[i:])
	return r, size
}

// peekByte returns the byte i positions ahead, or 0 at end of input.
func (s *stream) peekByte(i int) byte {
	if !s.fill(i + 1) {
		return 0
	}
	return s.buf[i]
}

// hasPrefix reports whether the unread input starts with p.
func (s *stream) hasPrefix(p string) bool {
	if !s.fill(len(p)) {
		return false
	}
	return string(s.buf[:len(p)]) == p
}

// advance consumes one rune.
func (s *stream) advance() rune {
	r, size := s.peekRune(0)
	if r == eof {
		return eof
	}
	s.lit.Write(s.buf[:size])
	s.buf = s.buf[size:]
	s.pos.Offset += size
	if r == '\n' {
		s.pos.Line++
		s.pos.Column = 1
	} else {
		s.pos.Column++
	}
	return r
}

// advanceN consumes n runes.
func (s *stream) advanceN(n int) {
	for i := 0; i < n; i++ {
		s.advance()
	}
}

// take returns the text consumed since the previous take.
func (s *stream) take() string {
	text := s.lit.String()
	s.lit.Reset()
	return text
}

// Text returns a chunk sequence holding a single string.
func Text(src string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if src != "" {
			yield(src)
		}
	}
}

// Chunks adapts an io.Reader to a chunk sequence of at most size bytes per
// chunk. A read error other than io.EOF ends the sequence early; callers that
// need to observe it should wrap the reader.
func Chunks(r io.Reader, size int) iter.Seq[string] {
	if size <= 0 {
		size = 4096
	}
	return func(yield func(string) bool) {
		br := bufio.NewReaderSize(r, size)
		buf := make([]byte, size)
		for {
			n, err := br.Read(buf)
			if n > 0 && !yield(string(buf[:n])) {
				return
			}
			if err != nil {
				return
			}
		}
	}
}
