package codec

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/ArtAndreev/timed-computing-service/task"
)

var ErrBadResponse = errors.New("codec: malformed response line")

var (
	completedInfix  = []byte(" completed in ")
	completedSuffix = []byte(" milliseconds")
	timedOutSuffix  = []byte(" ran out of time")
)

// EncodeRequest appends the wire form of req to buf.
func EncodeRequest(req task.Request, buf *bytes.Buffer) {
	var scratch [32]byte

	b := strconv.AppendUint(scratch[:0], uint64(req.ID), 10)
	b = append(b, ' ')
	b = strconv.AppendUint(b, uint64(req.Difficulty), 10)
	b = append(b, '\n')

	buf.Write(b)
}

// ParseResponse parses one response line, with or without its line feed.
func ParseResponse(line []byte) (task.Response, error) {
	line = bytes.TrimSuffix(line, []byte{'\n'})

	sep := bytes.IndexByte(line, ' ')
	if sep < 0 {
		return task.Response{}, fmt.Errorf("%w: %q", ErrBadResponse, line)
	}

	id, ok := parseUint32(line[:sep])
	if !ok {
		return task.Response{}, fmt.Errorf("%w: bad id in %q", ErrBadResponse, line)
	}

	rest := line[sep:]
	if bytes.Equal(rest, timedOutSuffix) {
		return task.Response{ID: id, Outcome: task.TimedOut()}, nil
	}

	if !bytes.HasPrefix(rest, completedInfix) || !bytes.HasSuffix(rest, completedSuffix) ||
		len(rest) < len(completedInfix)+len(completedSuffix) {
		return task.Response{}, fmt.Errorf("%w: %q", ErrBadResponse, line)
	}

	raw := rest[len(completedInfix) : len(rest)-len(completedSuffix)]
	elapsed, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || len(raw) == 0 || raw[0] < '0' || raw[0] > '9' {
		return task.Response{}, fmt.Errorf("%w: bad elapsed in %q", ErrBadResponse, line)
	}

	return task.Response{ID: id, Outcome: task.Completed(elapsed)}, nil
}
