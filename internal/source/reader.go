// Package source reads NDJSON event transcript files for bulk import.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/trailhound-dev/trailhound/internal/model"
)

// ReadResult summarizes one transcript read.
type ReadResult struct {
	Events  int
	Invalid int
}

// ReadFile streams a newline-delimited JSON transcript, invoking fn for each
// decoded event envelope. Malformed lines are counted and skipped, never
// fatal: transcripts come from crashed or truncated recorder runs.
func ReadFile(path string, fn func(model.Event) error) (ReadResult, error) {
	var res ReadResult

	f, err := os.Open(path) //nolint:gosec // path is supplied by the local user
	if err != nil {
		return res, fmt.Errorf("open transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 256*1024), 2*1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var ev model.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			res.Invalid++
			continue
		}
		if ev.Validate() != nil {
			res.Invalid++
			continue
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now().UTC()
		}

		if err := fn(ev); err != nil {
			return res, err
		}
		res.Events++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("read transcript: %w", err)
	}

	return res, nil
}
