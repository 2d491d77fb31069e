// Package codec frames the line protocol spoken by the computing service.
//
// Requests are "<id> <difficulty>\n", responses are
// "<id> completed in <elapsed> milliseconds\n" or "<id> ran out of time\n".
package codec

import (
	"bytes"
	"strconv"

	"github.com/ArtAndreev/timed-computing-service/task"
)

// Decode takes the first complete line out of buf and parses it as a request.
//
// ok is false when buf holds no line feed yet (buf is left untouched) and also
// when the consumed line is malformed: no space separator or a token that is
// not an unsigned 32-bit decimal.
func Decode(buf *bytes.Buffer) (req task.Request, ok bool) {
	i := bytes.IndexByte(buf.Bytes(), '\n')
	if i < 0 {
		return task.Request{}, false
	}

	line := buf.Next(i + 1)[:i]

	sep := bytes.IndexByte(line, ' ')
	if sep < 0 {
		return task.Request{}, false
	}

	id, ok := parseUint32(line[:sep])
	if !ok {
		return task.Request{}, false
	}

	difficulty, ok := parseUint32(line[sep+1:])
	if !ok {
		return task.Request{}, false
	}

	return task.Request{ID: id, Difficulty: difficulty}, true
}

func parseUint32(b []byte) (uint32, bool) {
	if len(b) == 0 {
		return 0, false
	}

	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
	}

	v, err := strconv.ParseUint(string(b), 10, 32)
	if err != nil {
		return 0, false
	}

	return uint32(v), true
}

// Encode appends the wire form of resp to buf.
func Encode(resp task.Response, buf *bytes.Buffer) {
	var scratch [64]byte

	b := strconv.AppendUint(scratch[:0], uint64(resp.ID), 10)
	if elapsed, ok := resp.Outcome.Elapsed(); ok {
		b = append(b, " completed in "...)
		b = strconv.AppendUint(b, elapsed, 10)
		b = append(b, " milliseconds"...)
	} else {
		b = append(b, " ran out of time"...)
	}
	b = append(b, '\n')

	buf.Write(b)
}
