package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromCentipawns(t *testing.T) {
	assert.InDelta(t, 0.2, FromCentipawns(20).Pawns(), 1e-9)
	assert.InDelta(t, -2.1, FromCentipawns(-210).Pawns(), 1e-9)
	assert.False(t, FromCentipawns(999).IsMate())
}

func TestFromMate(t *testing.T) {
	tests := []struct {
		moves int
		want  float64
	}{
		{1, 1001},
		{8, 1008},
		{-1, -1001},
		{-3, -1003},
		{0, 1000},
	}
	for _, tt := range tests {
		got := FromMate(tt.moves)
		assert.InDelta(t, tt.want, got.Pawns(), 1e-9, "mate in %d", tt.moves)
		assert.True(t, got.IsMate())
	}
}

func TestCloserMateHasSmallerMagnitude(t *testing.T) {
	assert.Less(t, FromMate(2).Pawns(), FromMate(9).Pawns())
	assert.Greater(t, FromMate(-2).Pawns(), FromMate(-9).Pawns())
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		line string
		want float64
		ok   bool
	}{
		{"info depth 15 seldepth 21 score cp 34 nodes 120000 pv e2e4", 0.34, true},
		{"info depth 20 score cp -250 nodes 1 pv d7d5", -2.5, true},
		{"info depth 12 score mate 3 pv h5f7", 1003, true},
		{"info depth 12 score mate -2 pv g8h8", -1002, true},
		{"info depth 15 currmove e2e4 currmovenumber 1", 0, false},
		{"bestmove e2e4 ponder e7e5", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseScore(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		if tt.ok {
			assert.InDelta(t, tt.want, got.Pawns(), 1e-9, tt.line)
		}
	}
}
