// Package csvlog appends samples to a comma separated text file.
//
// The file starts with a comment header followed by one line per sample:
//
//	# temps [s], temperature sonde 1 [deg C], temperature sonde 2 [deg C]
//	0.0, 21.53, 20.98
//	1.001, 21.54, nan
//
// The file is reopened for every line so a crash loses at most one line.
package csvlog

import (
	"fmt"
	"os"

	"github.com/itohio/gotherm/pkg/output"
	"github.com/itohio/gotherm/pkg/sample"
)

// Header is the first line of every log file.
const Header = "# temps [s], temperature sonde 1 [deg C], temperature sonde 2 [deg C]"

// Log writes samples to a file. A Log with an empty path writes nothing.
type Log struct {
	path string
}

var _ output.Output = (*Log)(nil)

// New creates a log writing to path.
func New(path string) *Log {
	return &Log{path: path}
}

// Path returns the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// Reset truncates the file and writes the header.
func (l *Log) Reset() error {
	if l.path == "" {
		return nil
	}
	if err := os.WriteFile(l.path, []byte(Header+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	return nil
}

// Publish appends one line for s.
func (l *Log) Publish(s sample.Sample) error {
	if l.path == "" {
		return nil
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	if _, err := f.WriteString(FormatLine(s)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write log file: %w", err)
	}
	return f.Close()
}

// Close is a no-op; the file is never held open between samples.
func (l *Log) Close() error {
	return nil
}

// FormatLine formats s as one log line, including the newline.
func FormatLine(s sample.Sample) string {
	return sample.Of(s.Seconds()).String() + ", " + s.T1.String() + ", " + s.T2.String() + "\n"
}
