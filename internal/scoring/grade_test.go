package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive(t *testing.T) {
	cases := []struct {
		score, max float64
		percentage int
		letter     string
	}{
		{85, 100, 85, "B"},
		{97, 100, 97, "A+"},
		{96.9, 100, 97, "A+"},
		{89.5, 100, 90, "A-"},
		{89.4, 100, 89, "B+"},
		{59, 100, 59, "F"},
		{60, 100, 60, "D-"},
		{2, 3, 67, "D+"},
		{120, 100, 120, "A+"},
		{0, 50, 0, "F"},
	}
	for _, tc := range cases {
		d, err := Derive(tc.score, tc.max)
		require.NoError(t, err)
		assert.Equal(t, tc.percentage, d.Percentage, "score %v/%v", tc.score, tc.max)
		assert.Equal(t, tc.letter, d.LetterGrade, "score %v/%v", tc.score, tc.max)
	}
}

func TestDeriveRejectsNonPositiveMax(t *testing.T) {
	_, err := Derive(10, 0)
	assert.ErrorIs(t, err, ErrInvalidMaxScore)
	_, err = Derive(10, -5)
	assert.ErrorIs(t, err, ErrInvalidMaxScore)
}

func TestLetterGradeThresholds(t *testing.T) {
	expected := map[int]string{
		100: "A+", 97: "A+", 96: "A", 93: "A", 92: "A-", 90: "A-",
		89: "B+", 87: "B+", 86: "B", 83: "B", 82: "B-", 80: "B-",
		79: "C+", 77: "C+", 76: "C", 73: "C", 72: "C-", 70: "C-",
		69: "D+", 67: "D+", 66: "D", 63: "D", 62: "D-", 60: "D-",
		59: "F", 0: "F",
	}
	for pct, letter := range expected {
		assert.Equal(t, letter, LetterGrade(pct), "percentage %d", pct)
	}
}
