package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Label is the attitude assigned to an article.
type Label int

const (
	ProMarket       Label = 0
	ProIntervention Label = 1
)

func (l Label) String() string {
	switch l {
	case ProMarket:
		return "pro-market"
	case ProIntervention:
		return "pro-intervention"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

var (
	// ErrNoLabel is the parent of every reason an article ends up unlabelled.
	ErrNoLabel = errors.New("no label")

	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrNoLabel)
	ErrInvalidLabel      = fmt.Errorf("%w: invalid label value", ErrNoLabel)
	ErrRemote            = fmt.Errorf("%w: remote call failed", ErrNoLabel)
	ErrHalted            = fmt.Errorf("%w: classification halted after repeated quota exhaustion", ErrNoLabel)
)

// resultKey is the single key the instruction asks the model to return.
const resultKey = "result"

// RepairJSON applies the lenient fix-up used on model output: the text is
// trimmed, then a closing brace is appended if it does not end with one and
// an opening brace prepended if it does not start with one. Well-formed
// objects pass through unchanged; wrapped output (code fences, prose) is not
// unwrapped and will still fail to parse.
func RepairJSON(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "}") {
		s += "}"
	}
	if !strings.HasPrefix(s, "{") {
		s = "{" + s
	}
	return s
}

// ParseLabel extracts the label from raw model output. The "result" value
// may be the string "0"/"1" or the number 0/1.
func ParseLabel(raw string) (Label, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(RepairJSON(raw)), &obj); err != nil {
		return 0, fmt.Errorf("%w: %v (output %q)", ErrMalformedResponse, err, snippet(raw))
	}

	switch v := obj[resultKey].(type) {
	case string:
		switch v {
		case "0":
			return ProMarket, nil
		case "1":
			return ProIntervention, nil
		}
	case float64:
		switch v {
		case 0:
			return ProMarket, nil
		case 1:
			return ProIntervention, nil
		}
	}
	return 0, fmt.Errorf("%w: %v (output %q)", ErrInvalidLabel, obj[resultKey], snippet(raw))
}

// Truncate cuts s to at most max characters. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

func snippet(s string) string {
	return Truncate(strings.TrimSpace(s), 200)
}
