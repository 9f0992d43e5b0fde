package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// maxLineSize bounds one JSON-lines record; a 478-point frame with
// confidence scores is well under this.
const maxLineSize = 1 << 20

// FrameReader reads LandmarksData records from a JSON-lines stream, one
// frame per line. Blank lines and lines starting with '#' are skipped.
type FrameReader struct {
	scanner *bufio.Scanner
	line    int
}

// NewFrameReader creates a reader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &FrameReader{scanner: s}
}

// Next returns the next frame, or io.EOF when the stream is exhausted.
// Frames without an explicit frame_id are numbered by line.
func (fr *FrameReader) Next() (*LandmarksData, error) {
	for fr.scanner.Scan() {
		fr.line++
		line := bytes.TrimSpace(fr.scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		var data LandmarksData
		if err := json.Unmarshal(line, &data); err != nil {
			return nil, fmt.Errorf("line %d: %w", fr.line, err)
		}
		if data.FrameID == 0 {
			data.FrameID = uint64(fr.line)
		}
		return &data, nil
	}
	if err := fr.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// Line returns the number of lines consumed so far.
func (fr *FrameReader) Line() int {
	return fr.line
}
