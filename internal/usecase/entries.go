package usecase

import (
	"slices"
	"strconv"
	"strings"

	"FinCast/internal/domain/models"
	"FinCast/pkg/util"
)

// HorizonFromLabel extracts the numeric horizon from a result key such as
// "3h" or "h=3". Keys without digits yield -1.
func HorizonFromLabel(label string) int {
	n, err := strconv.Atoi(util.DigitsOnly(label))
	if err != nil {
		return -1
	}
	return n
}

// BuildResultSet turns a forecast response into entries sorted by ascending
// horizon. Keys without digits go last, ordered by label.
func BuildResultSet(resp *models.ForecastResponse) models.ForecastResultSet {
	rs := models.ForecastResultSet{}
	if resp == nil {
		return rs
	}
	rs.Symbol = resp.Symbol
	rs.Timeframe = resp.Timeframe

	entries := make([]models.ForecastEntry, 0, len(resp.Results))
	for label, p := range resp.Results {
		raw := p.TargetTimeLocal
		if raw == "" {
			raw = p.TargetTimeUTC
		}
		e := models.ForecastEntry{
			Label:     label,
			Horizon:   HorizonFromLabel(label),
			TargetRaw: raw,
			Value:     p.PredStack,
			StepsUsed: p.StepsUsed,
		}
		if t, ok := util.ParseTime(raw); ok {
			e.TargetTime = t
		}
		entries = append(entries, e)
	}

	slices.SortStableFunc(entries, compareEntries)
	rs.Entries = entries
	return rs
}

func compareEntries(a, b models.ForecastEntry) int {
	switch {
	case a.Horizon < 0 && b.Horizon < 0:
		return strings.Compare(a.Label, b.Label)
	case a.Horizon < 0:
		return 1
	case b.Horizon < 0:
		return -1
	case a.Horizon != b.Horizon:
		return a.Horizon - b.Horizon
	default:
		return strings.Compare(a.Label, b.Label)
	}
}
