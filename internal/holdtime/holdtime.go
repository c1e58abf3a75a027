// Package holdtime measures how long the agent spent on hold during a call.
package holdtime

import (
	"errors"
	"strings"

	"oilcall-go/internal/types"
)

const holdPhrase = "please hold"

// ErrUnresolvedHold is returned when the transcript ends while a hold is still open.
// Any time measured before that point is discarded.
var ErrUnresolvedHold = errors.New("holdtime: transcript ended while on hold")

// Calculate scans the transcript once and sums the seconds spent on hold.
//
// A hold starts at the first word of a user turn containing "please hold"
// (case-insensitive substring) and ends at the last word of the next agent turn.
// A repeated hold request while already on hold keeps the original start.
// Deltas are not clamped: out-of-order word timings can lower the total.
func Calculate(transcript []types.TranscriptEntry) (float64, error) {
	var (
		total     float64
		holdStart float64
		onHold    bool
	)

	for _, entry := range transcript {
		switch {
		case entry.Role == types.RoleUser && strings.Contains(strings.ToLower(entry.Content), holdPhrase):
			// a turn without word timings cannot open a hold
			if onHold || len(entry.Words) == 0 {
				continue
			}
			holdStart = entry.Words[0].Start
			onHold = true
		case entry.Role == types.RoleAgent && onHold:
			var holdEnd float64
			if n := len(entry.Words); n > 0 {
				holdEnd = entry.Words[n-1].End
			}
			total += holdEnd - holdStart
			onHold = false
		}
	}

	if onHold {
		return 0, ErrUnresolvedHold
	}
	return total, nil
}
