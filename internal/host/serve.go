package host

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
)

// maxLineSize bounds a single notification. Longer lines are discarded and
// acknowledged without being interpreted.
const maxLineSize = 1024 * 1024

// inputLine is one line read from the host, without its terminator.
type inputLine struct {
	data    []byte
	tooLong bool
}

// Serve reads one JSON notification per line from r and writes one JSON reply
// per line to w until r is exhausted or ctx is cancelled. Malformed and
// oversized lines are logged and still acknowledged. Serve returns nil at end
// of input.
func (a *Adapter) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan inputLine)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)
		br := bufio.NewReaderSize(r, 64*1024)
		for {
			data, tooLong, err := readLine(br)
			if len(data) > 0 || tooLong {
				select {
				case lines <- inputLine{data: data, tooLong: tooLong}:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if err != io.EOF {
					readErr <- err
				}
				return
			}
		}
	}()

	out := newLineWriter(w)
	for {
		select {
		case <-ctx.Done():
			return parent.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return parent.Err()
				}
			}
			reply := Reply{OK: true}
			if line.tooLong {
				a.logger.Warn("oversized host notification dropped", "limit_bytes", maxLineSize)
			} else {
				reply = a.handleLine(line.data)
			}
			if err := out.write(reply); err != nil {
				return err
			}
		}
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxLineSize is consumed in full but returned empty with tooLong set.
func readLine(br *bufio.Reader) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			return line, tooLong, err
		}
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

func (a *Adapter) handleLine(line []byte) Reply {
	var n Notification
	if err := json.Unmarshal(line, &n); err != nil {
		// Keep the id when only the rest of the object is unusable.
		var partial struct {
			ID any `json:"id"`
		}
		_ = json.Unmarshal(line, &partial)
		a.logger.Warn("malformed host notification", "error", err.Error())
		return Reply{ID: partial.ID, OK: true}
	}
	return a.Handle(n)
}

// lineWriter writes newline-delimited JSON.
type lineWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: w}
}

func (lw *lineWriter) write(v any) error {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = lw.w.Write(data)
	return err
}
