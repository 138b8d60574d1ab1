package iox

import (
	"bytes"
	"errors"
	"testing"
)

type spyCloser struct{ closed bool }

func (s *spyCloser) Close() error { s.closed = true; return errors.New("ignored") }

func TestDiscardClose(t *testing.T) {
	s := &spyCloser{}
	DiscardClose(s)
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestCloseFunc(t *testing.T) {
	s := &spyCloser{}
	fn := CloseFunc(s)
	if s.closed {
		t.Fatal("Close called before invoking returned func")
	}
	fn()
	if !s.closed {
		t.Fatal("Close was not called")
	}
}

func TestDiscardErr(t *testing.T) {
	called := false
	DiscardErr(func() error {
		called = true
		return errors.New("ignored")
	})
	if !called {
		t.Fatal("fn was not called")
	}
}

func TestCountingWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := &CountingWriter{W: &buf}
	if _, err := cw.Write([]byte("<div>")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := cw.Write([]byte("</div>")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if cw.N != 11 {
		t.Errorf("N = %d, want 11", cw.N)
	}
	if buf.String() != "<div></div>" {
		t.Errorf("buffer = %q, want %q", buf.String(), "<div></div>")
	}
}
