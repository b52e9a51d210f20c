package decode

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/forattini-dev/recker/internal/reckerr"
)

// Kind names the decoded shape a caller asked for.
type Kind string

const (
	KindJSON   Kind = "json"
	KindText   Kind = "text"
	KindBytes  Kind = "bytes"
	KindSSE    Kind = "sse"
	KindStream Kind = "stream"
)

// JSON decodes body as JSON into v. On failure it wraps the error as
// reckerr.KindDecode so callers can distinguish a malformed payload from
// a transport failure.
func JSON(body io.Reader, v any) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return reckerr.NewDecode(reckerr.DecodeJSON, err)
	}
	return nil
}

// Text reads body fully as a UTF-8 string.
func Text(body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Bytes reads body fully, untouched.
func Bytes(body io.Reader) ([]byte, error) {
	return io.ReadAll(body)
}

// Event is one parsed text/event-stream message.
type Event struct {
	ID    string
	Event string
	Data  string
	Retry int
}

// SSEHandler receives one parsed Event at a time. Returning an error
// stops scanning and surfaces that error to the caller.
type SSEHandler func(Event) error

// SSE scans body as text/event-stream over bufio.Scanner: blank-line-
// terminated field blocks, "data:"/"event:"/"id:"/"retry:" fields,
// multi-line data joined by "\n". Scanning stops cleanly on a literal
// "data: [DONE]" sentinel as well as on EOF.
func SSE(body io.Reader, handle SSEHandler) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var cur Event
	var dataLines []string
	flush := func() error {
		if len(dataLines) == 0 && cur.Event == "" && cur.ID == "" {
			return nil
		}
		cur.Data = strings.Join(dataLines, "\n")
		err := handle(cur)
		cur = Event{}
		dataLines = nil
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		switch {
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " ")
			if data == "[DONE]" {
				return flush()
			}
			dataLines = append(dataLines, data)
		case strings.HasPrefix(line, "event:"):
			cur.Event = strings.TrimPrefix(strings.TrimPrefix(line, "event:"), " ")
		case strings.HasPrefix(line, "id:"):
			cur.ID = strings.TrimPrefix(strings.TrimPrefix(line, "id:"), " ")
		case strings.HasPrefix(line, "retry:"):
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "retry:"))); err == nil {
				cur.Retry = n
			}
		case strings.HasPrefix(line, ":"):
			// comment line, ignored per the SSE wire format
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("decode: sse: %w", err)
	}
	if len(dataLines) > 0 {
		return reckerr.NewDecode(reckerr.DecodeSSE, fmt.Errorf("stream ended mid-event: data field never terminated by a blank line"))
	}
	return flush()
}

// Stream exposes body directly for raw byte-chunk iteration, the
// Non-goal-adjacent "give me the wire bytes" escape hatch.
func Stream(body io.Reader) io.Reader {
	return body
}

// Peek reads up to n bytes without fully consuming body, returning a
// reader that replays those bytes before the remainder — used by
// sniffing helpers that need to look at content before deciding how to
// decode it.
func Peek(body io.Reader, n int) ([]byte, io.Reader, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(body, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, nil, err
	}
	buf = buf[:read]
	return buf, io.MultiReader(bytes.NewReader(buf), body), nil
}
