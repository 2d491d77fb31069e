package codec

import (
	"bytes"
	"errors"

	"github.com/ArtAndreev/timed-computing-service/task"
)

var ErrLineTooLong = errors.New("codec: line exceeds max length")

// Decoder buffers the bytes of one connection between reads.
type Decoder struct {
	buf     bytes.Buffer
	maxLine int // 0 means unbounded

	malformed int
}

func NewDecoder(maxLine int) *Decoder {
	return &Decoder{maxLine: maxLine}
}

// Write appends received bytes. It fails once the unterminated tail of the
// buffer grows past the max line length; the bytes are kept either way.
func (d *Decoder) Write(p []byte) (int, error) {
	n, _ := d.buf.Write(p)

	if d.maxLine > 0 {
		b := d.buf.Bytes()
		tail := len(b) - (bytes.LastIndexByte(b, '\n') + 1)
		if tail > d.maxLine {
			return n, ErrLineTooLong
		}
	}

	return n, nil
}

// Next returns the next well-formed request. Malformed complete lines are
// dropped and counted so they never hold back the lines behind them.
func (d *Decoder) Next() (task.Request, bool) {
	for bytes.IndexByte(d.buf.Bytes(), '\n') >= 0 {
		if req, ok := Decode(&d.buf); ok {
			return req, true
		}
		d.malformed++
	}

	return task.Request{}, false
}

// Malformed is the number of lines dropped so far.
func (d *Decoder) Malformed() int {
	return d.malformed
}

// Buffered is the number of bytes waiting for a line feed.
func (d *Decoder) Buffered() int {
	return d.buf.Len()
}
