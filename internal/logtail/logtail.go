// Package logtail implements the Log Tail Store: an
// append-only per-team log file with bounded tail reads.
//
// Grounded on internal/chatlog/chatlog.go's readFrom/Poll line scanning and
// its Truncate atomic-rewrite pattern, adapted from a recipient-filtered
// chat transcript into a plain cycle event log.
package logtail

import (
	"bufio"
	"fmt"
	"os"
)

// MaxTailLines is the server-enforced cap on any tail read.
const MaxTailLines = 2000

// Store is a single team's append-only log file.
type Store struct {
	path string
}

// New returns a Store for the log file at path.
func New(path string) *Store {
	return &Store{path: path}
}

// Append writes line followed by a newline to the end of the log file,
// creating it if necessary.
func (s *Store) Append(line string) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log for append: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	return nil
}

// Tail returns the last n lines of the log, capped at MaxTailLines. Missing
// files return an empty slice, not an error.
func (s *Store) Tail(n int) ([]string, error) {
	if n <= 0 || n > MaxTailLines {
		n = MaxTailLines
	}

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	ring := make([]string, n)
	count := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring[count%n] = scanner.Text()
		count++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log: %w", err)
	}

	if count == 0 {
		return nil, nil
	}
	if count < n {
		return append([]string(nil), ring[:count]...), nil
	}
	out := make([]string, n)
	start := count % n
	copy(out, ring[start:])
	copy(out[n-start:], ring[:start])
	return out, nil
}
