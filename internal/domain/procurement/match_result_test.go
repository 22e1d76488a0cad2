package procurement

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lineResult(poLineID uuid.UUID, status MatchStatus) LineMatchResult {
	return LineMatchResult{
		ID:                     uuid.New(),
		POLineID:               poLineID,
		OrderedQty:             dec("100"),
		ReceivedQty:            dec("100"),
		InvoicedQty:            dec("100"),
		InvoicedQtyThisInvoice: dec("100"),
		OrderedPrice:           dec("10"),
		InvoicedUnit:           dec("10"),
		Status:                 status,
	}
}

func TestNewMatchResult(t *testing.T) {
	invoiceID := uuid.New()
	poID := uuid.New()

	t.Run("document status is severity max", func(t *testing.T) {
		result, err := NewMatchResult(invoiceID, poID, []LineMatchResult{
			lineResult(uuid.New(), MatchStatusMatched),
			lineResult(uuid.New(), MatchStatusPartiallyMatched),
			lineResult(uuid.New(), MatchStatusMatched),
		})
		require.NoError(t, err)
		assert.Equal(t, MatchStatusPartiallyMatched, result.Status)
		assert.Equal(t, int64(1), result.Version)

		for _, lr := range result.LineResults {
			assert.Equal(t, result.ID, lr.ResultID)
			assert.False(t, lr.Status.MoreSevereThan(result.Status))
		}
	})

	t.Run("no lines is unresolved", func(t *testing.T) {
		result, err := NewMatchResult(invoiceID, poID, nil)
		require.NoError(t, err)
		assert.Equal(t, MatchStatusUnresolved, result.Status)
	})

	t.Run("requires identifiers", func(t *testing.T) {
		_, err := NewMatchResult(uuid.Nil, poID, nil)
		assert.Error(t, err)
		_, err = NewMatchResult(invoiceID, uuid.Nil, nil)
		assert.Error(t, err)
	})
}

func TestMatchResult_SameOutcome(t *testing.T) {
	invoiceID := uuid.New()
	poID := uuid.New()
	lineA := uuid.New()
	lineB := uuid.New()

	build := func(statusA, statusB MatchStatus) *MatchResult {
		result, err := NewMatchResult(invoiceID, poID, []LineMatchResult{
			lineResult(lineA, statusA),
			lineResult(lineB, statusB),
		})
		require.NoError(t, err)
		return result
	}

	t.Run("identical outcomes match regardless of ids", func(t *testing.T) {
		a := build(MatchStatusMatched, MatchStatusMismatch)
		b := build(MatchStatusMatched, MatchStatusMismatch)
		assert.True(t, a.SameOutcome(b))
	})

	t.Run("line order is irrelevant", func(t *testing.T) {
		a := build(MatchStatusMatched, MatchStatusMismatch)
		b := build(MatchStatusMatched, MatchStatusMismatch)
		b.LineResults[0], b.LineResults[1] = b.LineResults[1], b.LineResults[0]
		assert.True(t, a.SameOutcome(b))
	})

	t.Run("different line status differs", func(t *testing.T) {
		a := build(MatchStatusMatched, MatchStatusMatched)
		b := build(MatchStatusMatched, MatchStatusMismatch)
		assert.False(t, a.SameOutcome(b))
	})

	t.Run("different figures differ", func(t *testing.T) {
		a := build(MatchStatusMatched, MatchStatusMatched)
		b := build(MatchStatusMatched, MatchStatusMatched)
		b.LineResults[0].InvoicedQty = dec("99")
		assert.False(t, a.SameOutcome(b))
	})

	t.Run("different per invoice quantity differs", func(t *testing.T) {
		a := build(MatchStatusMatched, MatchStatusMatched)
		b := build(MatchStatusMatched, MatchStatusMatched)
		b.LineResults[0].InvoicedQtyThisInvoice = dec("60")
		assert.False(t, a.SameOutcome(b))
	})

	t.Run("nil other differs", func(t *testing.T) {
		a := build(MatchStatusMatched, MatchStatusMatched)
		assert.False(t, a.SameOutcome(nil))
	})
}
