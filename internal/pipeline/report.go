package pipeline

import (
	"fmt"
	"time"
)

// Report summarizes one acquisition run.
type Report struct {
	RunID         string        // uuid assigned at run start
	Requested     int           // sources in the run
	Succeeded     int           // sources that returned rows
	Empty         int           // sources with zero rows or skipped
	Failed        int           // sources whose fetch gave up
	PersistFailed int           // fetched sources whose batch write failed
	RowsWritten   int           // rows newly stored
	RowsSkipped   int           // rows already present, left untouched
	Elapsed       time.Duration
}

// Summary renders the report as the run's final status line.
func (r Report) Summary() string {
	return fmt.Sprintf(
		"requested=%d succeeded=%d empty=%d failed=%d persist_failed=%d rows_written=%d rows_skipped=%d elapsed=%s",
		r.Requested, r.Succeeded, r.Empty, r.Failed, r.PersistFailed, r.RowsWritten, r.RowsSkipped, r.Elapsed,
	)
}
