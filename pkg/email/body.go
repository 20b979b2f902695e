package email

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"
)

// ErrBodyDecode is returned when a body range cannot be turned into text.
var ErrBodyDecode = errors.New("body could not be decoded")

var latin1 = charmap.ISO8859_1

// DecodeLatin1 decodes raw bytes as ISO-8859-1. Every byte maps to a rune,
// so the conversion cannot fail.
func DecodeLatin1(b []byte) string {
	out, err := latin1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// ExtractBody returns the plain text of one part range. When the range
// starts on a boundary line, the part's own header block up to the first
// blank line is skipped. When it starts on a blank line (the single-part
// case) the text begins right after it.
//
// Markup is stripped by concatenating text nodes, each followed by a
// single space. On any failure the result is "" and ErrBodyDecode.
func ExtractBody(lines [][]byte, r Range) (string, error) {
	if r.Start < 0 || r.End > len(lines) || r.Start >= r.End {
		return "", nil
	}

	j := r.Start
	if !isBlank(lines[j]) {
		j++
		for j < r.End && !isBlank(lines[j]) {
			j++
		}
	}
	if j+1 >= r.End {
		return "", nil
	}

	raw := bytes.Join(lines[j+1:r.End], nil)
	decoded, err := latin1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", errors.Join(ErrBodyDecode, err)
	}

	text, err := stripMarkup(decoded)
	if err != nil {
		return "", errors.Join(ErrBodyDecode, err)
	}
	return text, nil
}

// Body returns the text of the last part of msg that has any. Earlier
// parts are alternatives of the same content, so only one of them counts.
// A part that fails to decode contributes nothing; the first such error is
// returned alongside the chosen text.
func (p *Parser) Body(lines [][]byte, msg *Message) (string, error) {
	var body string
	var firstErr error
	for _, part := range msg.Parts {
		text, err := ExtractBody(lines, part)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if strings.TrimSpace(text) != "" {
			body = text
		}
	}
	return body, firstErr
}

func stripMarkup(doc []byte) (string, error) {
	var sb strings.Builder
	z := html.NewTokenizer(bytes.NewReader(doc))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return "", err
			}
			return sb.String(), nil
		case html.TextToken:
			sb.Write(z.Text())
			sb.WriteByte(' ')
		}
	}
}
