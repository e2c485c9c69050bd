package ingest

import (
	"fmt"

	"github.com/inferahq/infera/internal/models"
)

// transitions is the source lifecycle state machine. COMPLETED and FAILED are
// terminal; the only way out is deleting the source.
var transitions = map[string][]string{
	models.SourceStatusUploading:  {models.SourceStatusProcessing, models.SourceStatusFailed},
	models.SourceStatusProcessing: {models.SourceStatusCompleted, models.SourceStatusFailed},
	models.SourceStatusCompleted:  {},
	models.SourceStatusFailed:     {},
}

// CanTransition reports whether a source may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error for an illegal move.
func ValidateTransition(from, to string) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal source status transition %s -> %s", from, to)
	}
	return nil
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}
