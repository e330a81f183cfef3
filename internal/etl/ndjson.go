package etl

import (
	"bytes"
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SplitLines breaks text on every line boundary a Python str.splitlines
// recognises. "\r\n" counts as one boundary. No empty trailing line is
// produced for a terminating newline.
func SplitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch r {
		case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			lines = append(lines, s[start:i])
			start = i + size
		case '\r':
			lines = append(lines, s[start:i])
			if i+1 < len(s) && s[i+1] == '\n' {
				size++
			}
			start = i + size
		}
		i += size
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// isBlank reports whether line holds nothing but whitespace. The ASCII
// separators \x1c through \x1f count as whitespace, as they do for Python's
// str.strip.
func isBlank(line string) bool {
	return strings.TrimFunc(line, func(r rune) bool {
		return unicode.IsSpace(r) || (r >= '\x1c' && r <= '\x1f')
	}) == ""
}

type numberedRecord struct {
	line int
	rec  Record
}

func decodeNumbered(body []byte) ([]numberedRecord, error) {
	if !utf8.Valid(body) {
		return nil, &ParseError{Err: errors.New("input is not valid UTF-8")}
	}
	var records []numberedRecord
	for i, line := range SplitLines(string(body)) {
		if isBlank(line) {
			continue
		}
		rec, err := ParseRecord([]byte(line))
		if err != nil {
			return nil, &ParseError{Line: i + 1, Err: err}
		}
		records = append(records, numberedRecord{line: i + 1, rec: rec})
	}
	return records, nil
}

// DecodeRecords parses newline-delimited JSON. Blank lines are skipped; the
// first malformed line aborts decoding.
func DecodeRecords(body []byte) ([]Record, error) {
	numbered, err := decodeNumbered(body)
	if err != nil {
		return nil, err
	}
	records := make([]Record, len(numbered))
	for i, n := range numbered {
		records[i] = n.rec
	}
	return records, nil
}

// EncodeRecords joins records with "\n". There is no trailing newline.
func EncodeRecords(records []Record) []byte {
	parts := make([][]byte, len(records))
	for i, r := range records {
		parts[i] = r
	}
	return bytes.Join(parts, []byte("\n"))
}

// TransformBody runs the full decode, transform, encode step over an object
// body and reports how many records it produced.
func TransformBody(body []byte) ([]byte, int, error) {
	numbered, err := decodeNumbered(body)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Record, len(numbered))
	for i, n := range numbered {
		t, err := Transform(n.rec)
		if err != nil {
			return nil, 0, &ParseError{Line: n.line, Err: err}
		}
		out[i] = t
	}
	return EncodeRecords(out), len(out), nil
}
