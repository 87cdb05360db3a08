package stream

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"chatterapi/internal/templates"
)

// maxLine bounds a single SSE or NDJSON line
const maxLine = 1 << 20

// Event is one decoded unit of a response stream
type Event struct {
	Type string // SSE event name, empty otherwise
	Data string
}

// decoder yields events until io.EOF
type decoder interface {
	Next() (Event, error)
}

func checkFormat(format templates.StreamFormat) error {
	switch format {
	case templates.StreamSSE, templates.StreamNDJSON, templates.StreamNone:
		return nil
	default:
		return fmt.Errorf("unknown stream format %q", format)
	}
}

func newDecoder(format templates.StreamFormat, r io.Reader) (decoder, error) {
	switch format {
	case templates.StreamSSE:
		return NewSSEParser(r), nil
	case templates.StreamNDJSON:
		return newLineDecoder(r), nil
	case templates.StreamNone:
		return &wholeDecoder{r: r}, nil
	default:
		return nil, fmt.Errorf("unknown stream format %q", format)
	}
}

// SSEParser parses Server-Sent Events
type SSEParser struct {
	reader *bufio.Reader
}

// NewSSEParser creates a new SSE parser from an io.Reader
func NewSSEParser(r io.Reader) *SSEParser {
	return &SSEParser{reader: bufio.NewReader(r)}
}

// Next reads the next event carrying data. Events with only a name, comments
// and id or retry lines are skipped.
func (p *SSEParser) Next() (Event, error) {
	var ev Event
	hasData := false

	for {
		line, err := p.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return Event{}, fmt.Errorf("error reading SSE stream: %w", err)
		}
		eof := err == io.EOF

		line = strings.TrimSuffix(line, "\n")
		line = strings.TrimSuffix(line, "\r")

		switch {
		case line == "":
			if hasData {
				return ev, nil
			}
			ev = Event{}
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if hasData {
				ev.Data += "\n" + data
			} else {
				ev.Data = data
			}
			hasData = true
		case strings.HasPrefix(line, "event:"):
			ev.Type = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
		}
		// comments (":"), id and retry lines carry nothing we use

		if eof {
			if hasData {
				return ev, nil
			}
			return Event{}, io.EOF
		}
	}
}

// lineDecoder yields one event per non-blank line
type lineDecoder struct {
	scanner *bufio.Scanner
}

func newLineDecoder(r io.Reader) *lineDecoder {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLine)
	return &lineDecoder{scanner: s}
}

func (d *lineDecoder) Next() (Event, error) {
	for d.scanner.Scan() {
		line := strings.TrimSpace(d.scanner.Text())
		if line != "" {
			return Event{Data: line}, nil
		}
	}
	if err := d.scanner.Err(); err != nil {
		return Event{}, fmt.Errorf("error reading stream: %w", err)
	}
	return Event{}, io.EOF
}

// wholeDecoder yields the entire body as a single event
type wholeDecoder struct {
	r    io.Reader
	done bool
}

func (d *wholeDecoder) Next() (Event, error) {
	if d.done {
		return Event{}, io.EOF
	}
	d.done = true
	data, err := io.ReadAll(d.r)
	if err != nil {
		return Event{}, fmt.Errorf("error reading response: %w", err)
	}
	return Event{Data: string(data)}, nil
}
