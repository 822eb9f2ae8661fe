package player

import "sync"

// Input supplies lines typed by the user.
type Input interface {
	// Next returns a channel that yields the next line, starting a read
	// if no line is buffered or in flight.
	Next() <-chan string
}

// LineReader reads lines on demand with at most one read in flight, so a
// line that nobody waited for is kept for the next caller instead of lost.
type LineReader struct {
	readLine func() (string, error)

	mu      sync.Mutex
	reading bool
	err     error
	lines   chan string
}

// NewLineReader wraps a blocking line source such as Prompter.Line.
func NewLineReader(readLine func() (string, error)) *LineReader {
	return &LineReader{readLine: readLine, lines: make(chan string, 1)}
}

func (r *LineReader) Next() <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reading && len(r.lines) == 0 && r.err == nil {
		r.reading = true
		go r.read()
	}
	if r.err != nil && len(r.lines) == 0 && !r.reading {
		// Input is gone; keep answering with empty lines.
		r.lines <- ""
	}
	return r.lines
}

// Err reports the error that ended the input, usually io.EOF.
func (r *LineReader) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *LineReader) read() {
	line, err := r.readLine()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.reading = false
	if err != nil {
		r.err = err
		line = ""
	}
	r.lines <- line
}
