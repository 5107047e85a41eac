package feedback_test

import (
	"fmt"
	"testing"

	"github.com/roneel47/4Sure-sub000/feedback"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValid(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		code  string
		valid bool
	}{
		{"1234", true},
		{"0000", true},
		{"9090", true},
		{"123", false},
		{"12345", false},
		{"", false},
		{"12a4", false},
		{" 123", false},
		{"１２３４", false},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.valid, feedback.Valid(tc.code), tc.code)
	}
}

func TestCompute(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		guess    string
		secret   string
		expected feedback.Feedback
	}{
		{"exact match", "5678", "5678", feedback.Feedback{true, true, true, true}},
		{"no match", "1234", "5678", feedback.Feedback{}},
		{"digits present in wrong positions score nothing", "8765", "5678", feedback.Feedback{}},
		{"partial", "5600", "5678", feedback.Feedback{true, true, false, false}},
		{"repeated digits", "1111", "1211", feedback.Feedback{true, false, true, true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fb, err := feedback.Compute(tc.guess, tc.secret)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, fb)
		})
	}
}

func TestComputeMalformed(t *testing.T) {
	t.Parallel()

	fb, err := feedback.Compute("1234", "12")
	assert.ErrorIs(t, err, feedback.ErrMalformedCode)
	assert.Equal(t, feedback.Feedback{}, fb)

	fb, err = feedback.Compute("1234", "")
	assert.ErrorIs(t, err, feedback.ErrMalformedCode)
	assert.Equal(t, feedback.Feedback{}, fb)

	_, err = feedback.Compute("abcd", "1234")
	assert.ErrorIs(t, err, feedback.ErrMalformedCode)
}

// Walks a spread of secret/guess pairs and checks the positional rule directly.
func TestComputePositionalProperty(t *testing.T) {
	t.Parallel()
	for s := 0; s < 10000; s += 137 {
		secret := fmt.Sprintf("%04d", s)
		self, err := feedback.Compute(secret, secret)
		require.NoError(t, err)
		assert.True(t, feedback.IsWin(self), secret)

		for g := 0; g < 10000; g += 911 {
			guess := fmt.Sprintf("%04d", g)
			fb, err := feedback.Compute(guess, secret)
			require.NoError(t, err)
			for i := 0; i < feedback.CodeLength; i++ {
				assert.Equal(t, guess[i] == secret[i], fb[i], "guess %s secret %s pos %d", guess, secret, i)
			}
			assert.Equal(t, guess == secret, feedback.IsWin(fb))
		}
	}
}

func TestHits(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0, feedback.Feedback{}.Hits())
	assert.Equal(t, 2, feedback.Feedback{true, false, true, false}.Hits())
	assert.Equal(t, 4, feedback.Feedback{true, true, true, true}.Hits())
}
