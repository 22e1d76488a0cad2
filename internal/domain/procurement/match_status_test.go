package procurement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchStatus_SeverityOrder(t *testing.T) {
	ordered := []MatchStatus{
		MatchStatusMatched,
		MatchStatusPartiallyMatched,
		MatchStatusMismatch,
		MatchStatusUnresolved,
	}

	for i := 1; i < len(ordered); i++ {
		assert.True(t, ordered[i].MoreSevereThan(ordered[i-1]),
			"%s should outrank %s", ordered[i], ordered[i-1])
	}
}

func TestMaxMatchStatus(t *testing.T) {
	tests := []struct {
		a, b, want MatchStatus
	}{
		{MatchStatusMatched, MatchStatusMatched, MatchStatusMatched},
		{MatchStatusMatched, MatchStatusPartiallyMatched, MatchStatusPartiallyMatched},
		{MatchStatusPartiallyMatched, MatchStatusMismatch, MatchStatusMismatch},
		{MatchStatusMismatch, MatchStatusUnresolved, MatchStatusUnresolved},
		{MatchStatusUnresolved, MatchStatusMatched, MatchStatusUnresolved},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxMatchStatus(tt.a, tt.b))
		assert.Equal(t, tt.want, MaxMatchStatus(tt.b, tt.a))
	}
}

func TestMatchStatus_IsValid(t *testing.T) {
	assert.True(t, MatchStatusMatched.IsValid())
	assert.True(t, MatchStatusUnresolved.IsValid())
	assert.False(t, MatchStatus("SORT_OF_MATCHED").IsValid())
}
