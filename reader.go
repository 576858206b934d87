package esmtpd

import (
	"bufio"
	"bytes"
	"errors"
)

var errLineTooLong = errors.New("esmtpd: line too long")

// lineReader frames the incoming byte stream into command lines and DATA
// chunks. It enforces limit on every line, including the terminating CRLF,
// and keeps the stream synchronized after an oversized line by draining it
// to the next LF before reporting the overrun.
type lineReader struct {
	r     *bufio.Reader
	limit int
}

func newLineReader(r *bufio.Reader, limit int) *lineReader {
	return &lineReader{r: r, limit: limit}
}

// ReadCommandLine reads one command line and returns it without the line
// terminator. A bare LF terminates a command line as well as CRLF does.
// When the accumulated line exceeds the limit, the rest of the line is
// consumed and discarded and errLineTooLong is returned, leaving the
// reader positioned at the start of the next line.
func (lr *lineReader) ReadCommandLine() ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		frag, err := lr.r.ReadSlice('\n')
		if !tooLong {
			line = append(line, frag...)
			if len(line) > lr.limit {
				tooLong = true
			}
		}
		if err == nil {
			break
		}
		if err == bufio.ErrBufferFull {
			continue
		}
		return nil, err
	}
	if tooLong {
		return nil, errLineTooLong
	}
	line = bytes.TrimRight(line, "\r\n")
	return line, nil
}

// ReadDataChunk reads the next line of a DATA body. Inside DATA only CRLF
// ends a line, a bare LF is message content. terminated reports that the
// terminator was reached; the caller uses it to tell complete lines from
// oversized fragments and to recognize line starts for the end-of-data
// marker. A line that exceeds the limit before reaching its terminator is
// handed out as an unterminated fragment so the caller can account for
// its size while the read continues.
func (lr *lineReader) ReadDataChunk() (chunk []byte, terminated bool, err error) {
	var line []byte
	for {
		frag, rerr := lr.r.ReadSlice('\n')
		line = append(line, frag...)
		if rerr != nil && rerr != bufio.ErrBufferFull {
			return line, false, rerr
		}
		if bytes.HasSuffix(line, []byte("\r\n")) {
			return line, true, nil
		}
		if len(line) > lr.limit {
			return line, false, nil
		}
	}
}
