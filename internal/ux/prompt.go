package ux

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2"
)

// Confirm asks a yes/no question. Destructive operations pass def=false.
func Confirm(message string, def bool) bool {
	answer := def
	prompt := &survey.Confirm{Message: message, Default: def}
	if err := survey.AskOne(prompt, &answer); err != nil {
		return false
	}
	return answer
}

// SelectOption shows the numbered `Install? [1/2/…/n]:` prompt and returns
// the zero-based index of the chosen option. Empty input picks option 1.
func SelectOption(count int) (int, error) {
	nums := make([]string, count)
	for i := range nums {
		nums[i] = strconv.Itoa(i + 1)
	}
	message := fmt.Sprintf("Install? [%s]:", strings.Join(nums, "/"))

	var raw string
	if err := survey.AskOne(&survey.Input{Message: message}, &raw); err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > count {
		return 0, fmt.Errorf("invalid selection %q", raw)
	}
	return n - 1, nil
}
