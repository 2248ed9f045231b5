package occurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/club-scheduler/internal/recurrence"
)

// ErrInvalidRef indicates a virtual reference that cannot be decoded.
var ErrInvalidRef = errors.New("occurrence: invalid virtual reference")

// refSeparator joins the rule id and the date. Rule ids are UUIDs and never
// contain it.
const refSeparator = ":"

// Ref identifies a single occurrence of a rule, whether or not a persisted
// session exists for it. References are handed to external callers (URLs,
// notifications), so Encode and Parse must round-trip exactly.
type Ref struct {
	RuleID string
	Date   time.Time
}

// NewRef builds a reference with the date normalized to the occurrence
// calendar.
func NewRef(ruleID string, date time.Time) Ref {
	return Ref{RuleID: ruleID, Date: recurrence.Date(date)}
}

// Encode renders the stable external form "<rule-id>:<yyyy-mm-dd>".
func (r Ref) Encode() string {
	return r.RuleID + refSeparator + r.Date.Format(time.DateOnly)
}

// ParseRef decodes an external reference, validating both components.
func ParseRef(value string) (Ref, error) {
	idx := strings.LastIndex(value, refSeparator)
	if idx <= 0 || idx == len(value)-1 {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, value)
	}

	ruleID := value[:idx]
	date, err := time.ParseInLocation(time.DateOnly, value[idx+1:], time.UTC)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, value)
	}

	return Ref{RuleID: ruleID, Date: date}, nil
}
