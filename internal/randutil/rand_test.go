package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for range 16 {
		require.Equal(t, a.Uint64(), b.Uint64())
	}
}

func TestDeriveSeparatesStreams(t *testing.T) {
	board := Derive(7, StreamBoard)
	dealer := Derive(7, StreamDealer)
	same := 0
	for range 32 {
		if board.Uint64() == dealer.Uint64() {
			same++
		}
	}
	assert.Less(t, same, 2)

	again := Derive(7, StreamPlayer+3)
	twice := Derive(7, StreamPlayer+3)
	assert.Equal(t, again.IntN(1000), twice.IntN(1000))
}

func TestSeed(t *testing.T) {
	assert.Equal(t, int64(99), Seed(99))
	assert.NotZero(t, Seed(0))
}
