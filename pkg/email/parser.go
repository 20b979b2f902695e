package email

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultReplyMarker introduces a quoted reply in Outlook-style messages.
const DefaultReplyMarker = "-----Original Message-----"

// ErrUnterminatedMessage is returned when a message has neither a blank
// line nor a boundary line to split on.
var ErrUnterminatedMessage = errors.New("message has no header/body split point")

// Range is a half-open [Start, End) range of line indexes.
type Range struct {
	Start int
	End   int
}

// Message is the heuristic parse of one raw message.
type Message struct {
	Sender      string
	ContentType string
	Boundary    string // empty when no boundary declaration was found
	Parts       []Range
}

// Multipart reports whether boundary lines split the message into more
// than one part.
func (m *Message) Multipart() bool {
	return len(m.Parts) > 1
}

// Parser handles best-effort parsing of raw corpus messages
type Parser struct {
	replyMarker string
}

// NewParser creates a parser using DefaultReplyMarker.
func NewParser() *Parser {
	return NewParserWithMarker(DefaultReplyMarker)
}

// NewParserWithMarker creates a parser with a custom reply delimiter.
func NewParserWithMarker(marker string) *Parser {
	if marker == "" {
		marker = DefaultReplyMarker
	}
	return &Parser{replyMarker: marker}
}

// ReadLines splits r into raw lines, keeping line terminators.
func ReadLines(r io.Reader) ([][]byte, error) {
	reader := bufio.NewReader(r)
	var lines [][]byte
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			lines = append(lines, line)
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// ReadFile reads a message file into raw lines.
func ReadFile(path string) ([][]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return ReadLines(file)
}

// Sanitize drops embedded reply header blocks. A line holding the reply
// marker is removed together with every following line up to and
// including the next blank line. All other lines are kept verbatim.
func (p *Parser) Sanitize(lines [][]byte) [][]byte {
	marker := []byte(p.replyMarker)
	out := make([][]byte, 0, len(lines))

	for i := 0; i < len(lines); i++ {
		if !bytes.Contains(lines[i], marker) {
			out = append(out, lines[i])
			continue
		}
		for i < len(lines) && !isBlank(lines[i]) {
			i++
		}
		// i is now on the blank line (or past the end); the loop step skips it.
	}
	return out
}

// Parse scans sanitized lines for sender, content type, boundary and
// part split points.
//
// Boundary lines split the message into parts. Without any boundary line
// the first blank line is the only split point. The last line index is
// always the final split point, so the last line itself is never part of
// a range.
func (p *Parser) Parse(lines [][]byte) (*Message, error) {
	msg := &Message{}
	var splits []int
	bodyIndex := -1
	senderSeen, typeSeen := false, false

	for i, raw := range lines {
		line := DecodeLatin1(raw)

		if !senderSeen {
			if at := strings.Index(line, "From: "); at >= 0 {
				msg.Sender = strings.TrimSpace(line[at+len("From: "):])
				senderSeen = true
			}
		}
		if !typeSeen {
			if at := strings.Index(line, "Content-Type: "); at >= 0 {
				msg.ContentType = contentType(line[at+len("Content-Type: "):])
				typeSeen = true
			}
		}
		if strings.Contains(line, "boundary") && strings.Contains(line, "=") {
			msg.Boundary = boundaryToken(line)
			continue
		}
		if msg.Boundary != "" && strings.Contains(line, msg.Boundary) {
			splits = append(splits, i)
		}
		if bodyIndex < 0 && strings.TrimSpace(line) == "" {
			bodyIndex = i
		}
	}

	if len(splits) == 0 {
		if bodyIndex < 0 {
			return nil, ErrUnterminatedMessage
		}
		splits = append(splits, bodyIndex)
	}
	splits = append(splits, len(lines)-1)

	msg.Parts = make([]Range, 0, len(splits)-1)
	for i := 0; i+1 < len(splits); i++ {
		msg.Parts = append(msg.Parts, Range{Start: splits[i], End: splits[i+1]})
	}
	return msg, nil
}

// ParseFromFile reads, sanitizes and parses a message file. The returned
// lines are the sanitized lines the ranges index into.
func (p *Parser) ParseFromFile(path string) ([][]byte, *Message, error) {
	lines, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	lines = p.Sanitize(lines)
	msg, err := p.Parse(lines)
	if err != nil {
		return lines, nil, err
	}
	return lines, msg, nil
}

func contentType(rest string) string {
	if semi := strings.Index(rest, ";"); semi >= 0 {
		rest = rest[:semi]
	}
	return strings.TrimSpace(rest)
}

// boundaryToken takes the text after the first '=' minus the line
// terminator and strips its first and last character, which are the
// quotes in the common `boundary="..."` form.
func boundaryToken(line string) string {
	rest := line[strings.Index(line, "=")+1:]
	rest = strings.TrimRight(rest, "\r\n")
	if len(rest) < 2 {
		return ""
	}
	return rest[1 : len(rest)-1]
}

func isBlank(line []byte) bool {
	return strings.TrimSpace(DecodeLatin1(line)) == ""
}
