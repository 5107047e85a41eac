// Package feedback scores a guess against a secret code.
//
// Scoring is strictly positional: a position matches only when the digit in the guess
// equals the digit of the secret at the same position. Digits present elsewhere in the
// secret earn nothing.
package feedback

import "errors"

// CodeLength is the number of digits in every secret and guess.
const CodeLength = 4

var ErrMalformedCode = errors.New("malformed-code")

// Feedback holds one boolean per position, true when that position matched.
type Feedback [CodeLength]bool

// Valid reports whether code is exactly CodeLength ASCII digits.
func Valid(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// Compute scores guess against secret. Both must be well formed codes; otherwise the
// all-false Feedback is returned together with ErrMalformedCode.
func Compute(guess, secret string) (Feedback, error) {
	var fb Feedback
	if !Valid(secret) || !Valid(guess) {
		return fb, ErrMalformedCode
	}
	for i := 0; i < CodeLength; i++ {
		fb[i] = guess[i] == secret[i]
	}
	return fb, nil
}

// IsWin reports whether every position matched.
func IsWin(fb Feedback) bool {
	for _, hit := range fb {
		if !hit {
			return false
		}
	}
	return true
}

// Hits counts the matched positions.
func (fb Feedback) Hits() int {
	n := 0
	for _, hit := range fb {
		if hit {
			n++
		}
	}
	return n
}
