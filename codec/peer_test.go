package codec

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ArtAndreev/timed-computing-service/task"
)

func TestEncodeRequest(t *testing.T) {
	var buf bytes.Buffer
	EncodeRequest(task.Request{ID: 12, Difficulty: 3}, &buf)
	EncodeRequest(task.Request{ID: 4294967295}, &buf)

	if got := buf.String(); got != "12 3\n4294967295 0\n" {
		t.Fatalf("got %q", got)
	}

	req, ok := Decode(&buf)
	if !ok || req != (task.Request{ID: 12, Difficulty: 3}) {
		t.Errorf("decoded %+v ok=%v", req, ok)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		in   string
		want task.Response
	}{
		{"1 completed in 0 milliseconds\n", task.Response{ID: 1, Outcome: task.Completed(0)}},
		{"42 completed in 1500 milliseconds", task.Response{ID: 42, Outcome: task.Completed(1500)}},
		{"9 ran out of time\n", task.Response{ID: 9, Outcome: task.TimedOut()}},
	}

	for _, tt := range tests {
		got, err := ParseResponse([]byte(tt.in))
		if err != nil {
			t.Errorf("ParseResponse(%q) failed: %s", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseResponse(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestParseResponseRejects(t *testing.T) {
	for _, in := range []string{
		"",
		"garbage",
		"x ran out of time",
		"1 ran out of tim",
		"1 completed in  milliseconds",
		"1 completed in milliseconds",
		"1 completed in -3 milliseconds",
		"1 completed in 3 seconds",
	} {
		if _, err := ParseResponse([]byte(in)); !errors.Is(err, ErrBadResponse) {
			t.Errorf("ParseResponse(%q) error = %v, want ErrBadResponse", in, err)
		}
	}
}

func TestEncodeThenParse(t *testing.T) {
	for _, resp := range []task.Response{
		{ID: 0, Outcome: task.Completed(0)},
		{ID: 77, Outcome: task.Completed(123456789)},
		{ID: 5, Outcome: task.TimedOut()},
	} {
		var buf bytes.Buffer
		Encode(resp, &buf)

		got, err := ParseResponse(buf.Bytes())
		if err != nil || got != resp {
			t.Errorf("round trip of %+v gave %+v, %v", resp, got, err)
		}
	}
}
