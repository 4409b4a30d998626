package parser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
)

// maxLineSize bounds a single CRI line. The kubelet splits longer writes
// into partial (P) entries well below this.
const maxLineSize = 1024 * 1024

// FileSource implements LogSource for reading CRI log files in order.
type FileSource struct {
	files  []string
	parser *lineParser

	currentFile    *os.File
	currentScanner *bufio.Scanner
	currentSource  string
	currentLine    int
	fileIndex      int
}

// NewFileSource creates a LogSource that reads the given files one after
// the other.
func NewFileSource(files []string, opts ...Option) *FileSource {
	return &FileSource{
		files:     files,
		parser:    newLineParser(opts),
		fileIndex: -1,
	}
}

// Next returns the next parsed line.
// Returns io.EOF when all files have been exhausted.
func (s *FileSource) Next(ctx context.Context) (*ParsedLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if s.currentScanner == nil {
			if err := s.openNextFile(); err != nil {
				return nil, err
			}
		}

		if s.currentScanner.Scan() {
			s.currentLine++
			line, err := s.parser.parse(s.currentScanner.Text(), s.currentSource, s.currentLine)
			if err != nil {
				return nil, err
			}
			if line == nil {
				continue
			}
			return line, nil
		}

		if err := s.currentScanner.Err(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", s.currentSource, err)
		}

		// Current file exhausted, try next
		if err := s.closeCurrentFile(); err != nil {
			return nil, err
		}
	}
}

// Close releases resources.
func (s *FileSource) Close() error {
	return s.closeCurrentFile()
}

func (s *FileSource) openNextFile() error {
	s.fileIndex++
	if s.fileIndex >= len(s.files) {
		return io.EOF
	}

	path := s.files[s.fileIndex]
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}

	s.currentFile = f
	s.currentScanner = newScanner(f)
	s.currentSource = path
	s.currentLine = 0

	return nil
}

func (s *FileSource) closeCurrentFile() error {
	if s.currentFile != nil {
		err := s.currentFile.Close()
		s.currentFile = nil
		s.currentScanner = nil
		return err
	}
	return nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return scanner
}

// ReaderSource implements LogSource over an arbitrary reader, such as stdin.
type ReaderSource struct {
	name    string
	reader  io.Reader
	scanner *bufio.Scanner
	parser  *lineParser
	lineNum int
}

// NewReaderSource creates a LogSource reading lines from r. The name is
// reported as the Source of each line.
func NewReaderSource(name string, r io.Reader, opts ...Option) *ReaderSource {
	return &ReaderSource{
		name:    name,
		reader:  r,
		scanner: newScanner(r),
		parser:  newLineParser(opts),
	}
}

// Next returns the next parsed line, or io.EOF at the end of the reader.
func (s *ReaderSource) Next(ctx context.Context) (*ParsedLine, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("reading %s: %w", s.name, err)
			}
			return nil, io.EOF
		}

		s.lineNum++
		line, err := s.parser.parse(s.scanner.Text(), s.name, s.lineNum)
		if err != nil {
			return nil, err
		}
		if line != nil {
			return line, nil
		}
	}
}

// Close closes the underlying reader if it is an io.Closer.
func (s *ReaderSource) Close() error {
	if c, ok := s.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
