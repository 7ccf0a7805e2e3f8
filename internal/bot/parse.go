package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// maxMergeMinutes bounds the merge window a user may enter.
const maxMergeMinutes = 1440

// clearToken resets an optional setting when sent as the text input.
const clearToken = "-"

// parseMergeMinutes validates a merge-time input. Accepted values are
// integers in 0..1440; 0 clears the window.
func parseMergeMinutes(text string) (int, error) {
	text = strings.TrimSpace(text)
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", text)
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative: %d", n)
	}
	if n > maxMergeMinutes {
		return 0, fmt.Errorf("must be at most %d minutes: %d", maxMergeMinutes, n)
	}
	return n, nil
}

// validateRegex checks that a filter pattern compiles.
func validateRegex(pattern string) error {
	_, err := regexp.Compile(pattern)
	return err
}
