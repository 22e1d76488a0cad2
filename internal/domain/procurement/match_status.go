package procurement

// MatchStatus is the verdict of the matching engine, used both per line and
// at document level. The document verdict is the severity-max over its lines.
type MatchStatus string

const (
	MatchStatusMatched          MatchStatus = "MATCHED"
	MatchStatusPartiallyMatched MatchStatus = "PARTIALLY_MATCHED"
	MatchStatusMismatch         MatchStatus = "MISMATCH"
	MatchStatusUnresolved       MatchStatus = "UNRESOLVED"
)

// matchStatusSeverity defines the total severity order over the closed set of
// verdicts. Adding a new verdict requires adding it here, which keeps ranking
// explicit instead of scattered across comparisons.
var matchStatusSeverity = map[MatchStatus]int{
	MatchStatusMatched:          0,
	MatchStatusPartiallyMatched: 1,
	MatchStatusMismatch:         2,
	MatchStatusUnresolved:       3,
}

// IsValid checks if the status is a valid MatchStatus
func (s MatchStatus) IsValid() bool {
	_, ok := matchStatusSeverity[s]
	return ok
}

// String returns the string representation of MatchStatus
func (s MatchStatus) String() string {
	return string(s)
}

// Severity returns the rank of the status in the severity order.
// MATCHED < PARTIALLY_MATCHED < MISMATCH < UNRESOLVED.
func (s MatchStatus) Severity() int {
	return matchStatusSeverity[s]
}

// MoreSevereThan reports whether s ranks above other in the severity order
func (s MatchStatus) MoreSevereThan(other MatchStatus) bool {
	return s.Severity() > other.Severity()
}

// MaxMatchStatus returns the more severe of two verdicts
func MaxMatchStatus(a, b MatchStatus) MatchStatus {
	if b.MoreSevereThan(a) {
		return b
	}
	return a
}
