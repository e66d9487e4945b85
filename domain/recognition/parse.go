package recognition

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrInvalidTime is returned for strings that are not M:SS.
	ErrInvalidTime = errors.New("recognition: invalid time")
	// ErrBackendUnavailable is returned when a backend was not compiled in.
	ErrBackendUnavailable = errors.New("recognition: tesseract backend not built (use -tags tesseract)")
)

// PausedKeyword is the banner text shown while the game is paused.
const PausedKeyword = "PAUSED"

// ParseCount extracts the node count from a "N/M" read, or a bare "N".
func ParseCount(s string) (int, bool) {
	s = strings.TrimSpace(s)
	head, _, _ := strings.Cut(s, "/")
	if head == "" || len(head) > 2 {
		return 0, false
	}
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// ParseTime parses an "M:SS" countdown into minutes and seconds. Range
// checks are left to the caller.
func ParseTime(s string) (minutes, seconds int, err error) {
	m, sec, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(m) == 0 || len(m) > 2 || len(sec) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minutes, err = strconv.Atoi(m)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	seconds, err = strconv.Atoi(sec)
	if err != nil || minutes < 0 || seconds < 0 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return minutes, seconds, nil
}

// FormatTime renders total seconds as M:SS.
func FormatTime(total int) string {
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// PausedLetters returns how many letters of PAUSED appear in order in s
// (longest common subsequence, case-insensitive).
func PausedLetters(s string) int {
	a := []rune(strings.ToUpper(s))
	b := []rune(PausedKeyword)
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// IsPaused reports whether s carries at least minLetters of PAUSED.
func IsPaused(s string, minLetters int) bool {
	if s == "" {
		return false
	}
	return PausedLetters(s) >= minLetters
}
