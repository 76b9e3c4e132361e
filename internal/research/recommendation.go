package research

import (
	"errors"
	"strconv"
	"strings"

	"MarketScout/internal/model"
)

var errNoVotes = errors.New("recommendation table has no votes")

// TopRecommendation returns the label with the most analyst votes in the most
// recent period of t, lower-cased and trimmed. Periods are offsets such as
// "0m" and "-1m"; the greatest offset is the most recent. When the labels are
// not offsets the last row is used. Ties go to the first column holding the
// maximum.
func TopRecommendation(t *model.Table) (string, error) {
	if t.Empty() {
		return "", errNoVotes
	}
	i := latestPeriod(t.Index)

	best, bestVotes := -1, 0.0
	for j := range t.Columns {
		v, ok := t.At(i, j).Float()
		if !ok {
			continue
		}
		if best < 0 || v > bestVotes {
			best, bestVotes = j, v
		}
	}
	if best < 0 {
		return "", errNoVotes
	}
	return strings.ToLower(strings.TrimSpace(t.Columns[best])), nil
}

func latestPeriod(labels []string) int {
	best, bestOffset := -1, 0
	for i, l := range labels {
		off, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(l), "m"))
		if err != nil {
			return len(labels) - 1
		}
		if best < 0 || off > bestOffset {
			best, bestOffset = i, off
		}
	}
	return best
}
