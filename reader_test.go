package esmtpd

import (
	"bufio"
	"strings"
	"testing"
)

func makeLineReader(input string, limit int) *lineReader {
	return newLineReader(bufio.NewReaderSize(strings.NewReader(input), 16), limit)
}

func TestReadCommandLine(t *testing.T) {
	lr := makeLineReader("NOOP\r\nQUIT\n", 64)
	line, err := lr.ReadCommandLine()
	if err != nil {
		t.Errorf("read failed: %v", err)
	}
	if string(line) != "NOOP" {
		t.Errorf("unexpected line %q", line)
	}
	// a bare LF terminates a command line too
	line, err = lr.ReadCommandLine()
	if err != nil {
		t.Errorf("read failed: %v", err)
	}
	if string(line) != "QUIT" {
		t.Errorf("unexpected line %q", line)
	}
}

func TestReadCommandLineTooLong(t *testing.T) {
	input := strings.Repeat("a", 100) + "\r\nNOOP\r\n"
	lr := makeLineReader(input, 32)
	_, err := lr.ReadCommandLine()
	if err != errLineTooLong {
		t.Errorf("expected errLineTooLong, got %v", err)
	}
	// the oversized line must be drained so the stream stays in sync
	line, err := lr.ReadCommandLine()
	if err != nil {
		t.Errorf("read after overrun failed: %v", err)
	}
	if string(line) != "NOOP" {
		t.Errorf("stream out of sync, got %q", line)
	}
}

func TestReadCommandLineLimitCountsTerminator(t *testing.T) {
	// 30 octets of content plus CRLF is exactly the limit
	lr := makeLineReader(strings.Repeat("a", 30)+"\r\n", 32)
	line, err := lr.ReadCommandLine()
	if err != nil {
		t.Errorf("read failed: %v", err)
	}
	if len(line) != 30 {
		t.Errorf("unexpected length %d", len(line))
	}
	lr = makeLineReader(strings.Repeat("a", 31)+"\r\n", 32)
	_, err = lr.ReadCommandLine()
	if err != errLineTooLong {
		t.Errorf("expected errLineTooLong, got %v", err)
	}
}

func TestReadDataChunkBareLFIsContent(t *testing.T) {
	lr := makeLineReader("foo\nbar\r\n", 64)
	chunk, terminated, err := lr.ReadDataChunk()
	if err != nil {
		t.Errorf("read failed: %v", err)
	}
	if !terminated {
		t.Error("chunk did not reach its terminator")
	}
	if string(chunk) != "foo\nbar\r\n" {
		t.Errorf("unexpected chunk %q", chunk)
	}
}

func TestReadDataChunkOverrun(t *testing.T) {
	long := strings.Repeat("a", 50)
	lr := makeLineReader(long+"\r\n.\r\n", 32)
	var got []byte
	fragments := 0
	for {
		chunk, terminated, err := lr.ReadDataChunk()
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		got = append(got, chunk...)
		if terminated {
			break
		}
		fragments++
	}
	if fragments == 0 {
		t.Error("expected at least one unterminated fragment")
	}
	if string(got) != long+"\r\n" {
		t.Errorf("fragments do not reassemble the line, got %q", got)
	}
	chunk, terminated, err := lr.ReadDataChunk()
	if err != nil || !terminated || string(chunk) != ".\r\n" {
		t.Errorf("terminator line mangled: %q %v %v", chunk, terminated, err)
	}
}
