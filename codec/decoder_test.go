package codec

import (
	"errors"
	"testing"

	"github.com/ArtAndreev/timed-computing-service/task"
)

func TestDecoderTwoLinesInOneBuffer(t *testing.T) {
	d := NewDecoder(0)
	if _, err := d.Write([]byte("1 0\n2 0\n")); err != nil {
		t.Fatal(err)
	}

	var got []task.Request
	for {
		req, ok := d.Next()
		if !ok {
			break
		}
		got = append(got, req)
	}

	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 2 {
		t.Fatalf("got %+v, want ids 1 then 2", got)
	}
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	d := NewDecoder(0)
	_, _ = d.Write([]byte("abc def\n5 6\nnope\n7 8"))

	req, ok := d.Next()
	if !ok || req != (task.Request{ID: 5, Difficulty: 6}) {
		t.Fatalf("got %+v ok=%v", req, ok)
	}

	if _, ok := d.Next(); ok {
		t.Fatal("unterminated line must not decode")
	}
	if d.Malformed() != 2 {
		t.Errorf("Malformed() = %d, want 2", d.Malformed())
	}
	if d.Buffered() != len("7 8") {
		t.Errorf("Buffered() = %d, want %d", d.Buffered(), len("7 8"))
	}

	_, _ = d.Write([]byte("\n"))

	req, ok = d.Next()
	if !ok || req != (task.Request{ID: 7, Difficulty: 8}) {
		t.Fatalf("got %+v ok=%v", req, ok)
	}
}

func TestDecoderMalformedOnlyYieldsNothing(t *testing.T) {
	d := NewDecoder(0)
	_, _ = d.Write([]byte("abc def\n"))

	if req, ok := d.Next(); ok {
		t.Fatalf("malformed line decoded into %+v", req)
	}
	if d.Buffered() != 0 {
		t.Errorf("malformed line left %d bytes buffered", d.Buffered())
	}
}

func TestDecoderMaxLine(t *testing.T) {
	d := NewDecoder(8)

	if _, err := d.Write([]byte("1 2\n12345")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := d.Write([]byte("6789")); !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}

	req, ok := d.Next()
	if !ok || req.ID != 1 {
		t.Fatalf("complete line before the long tail must still decode, got %+v ok=%v", req, ok)
	}
}
