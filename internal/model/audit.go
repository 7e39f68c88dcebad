package model

import (
	"fmt"
	"strconv"
	"time"
)

// Audit actions.
const (
	ActionUpdateScore = "update_score"
)

// FormatValue prints a score without trailing zeros.
func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Describe returns the human-readable audit message for an applied update.
func (u ScoreUpdate) Describe(res UpdateResult) string {
	return fmt.Sprintf("Updated %s %s: %s -> %s, new total score = %s",
		u.Subject, u.Field, FormatValue(res.OldValue), FormatValue(u.Value), FormatValue(res.NewTotal))
}

// AuditEntry builds the log entry recording an applied update.
func (u ScoreUpdate) AuditEntry(res UpdateResult, at time.Time) AuditEntry {
	return AuditEntry{
		ActorID:   u.ActorID,
		StudentID: u.StudentID,
		Action:    u.Describe(res),
		OldValue:  FormatValue(res.OldValue),
		NewValue:  FormatValue(u.Value),
		At:        at,
	}
}
