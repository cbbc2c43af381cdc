package recognition

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type ExtractionPolicy string

const (
	// PolicyFirst takes the first numeric token in the text.
	PolicyFirst ExtractionPolicy = "first"
	// PolicyStrict fails when the text holds more than one distinct number.
	PolicyStrict ExtractionPolicy = "strict"
)

func (p ExtractionPolicy) Valid() bool {
	return p == PolicyFirst || p == PolicyStrict
}

var numericToken = regexp.MustCompile(`\d+\.?\d*`)

var (
	errNoNumeric   = errors.New("no numeric token")
	errAmbiguous   = errors.New("ambiguous numeric tokens")
	errNotPositive = errors.New("weight must be positive")
)

// ExtractWeight pulls a weight in kilograms from free text.
func ExtractWeight(text string, policy ExtractionPolicy) (float64, error) {
	tokens := numericToken.FindAllString(text, -1)
	if len(tokens) == 0 {
		return 0, errNoNumeric
	}

	if policy == PolicyStrict {
		seen := make(map[float64]struct{}, len(tokens))
		for _, tok := range tokens {
			v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "."), 64)
			if err != nil {
				continue
			}
			seen[v] = struct{}{}
		}
		if len(seen) > 1 {
			return 0, errAmbiguous
		}
	}

	v, err := strconv.ParseFloat(strings.TrimSuffix(tokens[0], "."), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", tokens[0], errNoNumeric)
	}
	if v <= 0 {
		return 0, errNotPositive
	}
	return v, nil
}
