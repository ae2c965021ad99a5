package payout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitEvenly(t *testing.T) {
	share, rem := SplitEvenly(194_000, 3)
	assert.Equal(t, int64(64_000), share)
	assert.Equal(t, int64(2_000), rem)
}

func TestSplitEvenlyExact(t *testing.T) {
	share, rem := SplitEvenly(300_000, 3)
	assert.Equal(t, int64(100_000), share)
	assert.Equal(t, int64(0), rem)
}

func TestSplitEvenlySingleRecipient(t *testing.T) {
	share, rem := SplitEvenly(12_345, 1)
	assert.Equal(t, int64(12_000), share)
	assert.Equal(t, int64(345), rem)
}

func TestSplitEvenlyShareBelowOneSat(t *testing.T) {
	share, rem := SplitEvenly(2_500, 3)
	assert.Equal(t, int64(0), share)
	assert.Equal(t, int64(2_500), rem)
}

func TestSplitEvenlyNoRecipients(t *testing.T) {
	share, rem := SplitEvenly(194_000, 0)
	assert.Equal(t, int64(0), share)
	assert.Equal(t, int64(194_000), rem)
}
