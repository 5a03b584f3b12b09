package internal

import (
	"bytes"
)

// sse framing: the stream body is a sequence of UTF-8 text records separated
// by a blank line. Each record holds one or more "data:" lines whose payloads
// concatenate to a JSON document.

var dataPrefix = []byte("data:")

// ScanRecords is a bufio.SplitFunc that yields one SSE record at a time,
// without the separating blank line. Both "\n\n" and "\r\n\r\n" are accepted
// as record separators.
func ScanRecords(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	sep, sepLen := -1, 0
	if i := bytes.Index(data, []byte("\n\n")); i >= 0 {
		sep, sepLen = i, 2
	}
	if i := bytes.Index(data, []byte("\r\n\r\n")); i >= 0 && (sep < 0 || i < sep) {
		sep, sepLen = i, 4
	}

	if sep >= 0 {
		return sep + sepLen, bytes.TrimRight(data[:sep], "\r\n"), nil
	}

	if atEOF {
		return len(data), bytes.TrimRight(data, "\r\n"), nil
	}

	// Request more data.
	return 0, nil, nil
}

// DataPayload extracts the payload of a record's data lines, joined with
// newlines per the SSE spec. Records with no data line (comments, keepalives)
// report ok=false.
func DataPayload(record []byte) (payload []byte, ok bool) {
	var parts [][]byte
	for line := range bytes.Lines(record) {
		line = bytes.TrimRight(line, "\r\n")
		if !bytes.HasPrefix(line, dataPrefix) {
			continue
		}
		part := line[len(dataPrefix):]
		if len(part) > 0 && part[0] == ' ' {
			part = part[1:]
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return nil, false
	}
	return bytes.Join(parts, []byte("\n")), true
}
