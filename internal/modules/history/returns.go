package history

import (
	"fmt"
	"math"
	"sort"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
)

// LoadReturnMatrix builds an aligned return matrix for a universe of symbols
// from the per-symbol price databases.
//
// Rows are the sorted union of trading dates; where a symbol has no price for
// a date (or no previous close to compute a return from) the entry is NaN, so
// gaps stay visible to the covariance estimator's missing-data policy.
func (h *DB) LoadReturnMatrix(symbols []string, limit int) (*allocation.ReturnMatrix, error) {
	if len(symbols) == 0 {
		return nil, &allocation.DegenerateInputError{Reason: "instrument universe is empty"}
	}

	closesBySymbol := make(map[string]map[string]float64, len(symbols))
	dateSet := make(map[string]bool)

	for _, symbol := range symbols {
		prices, err := h.GetDailyCloses(symbol, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load history for %s: %w", symbol, err)
		}
		closes := make(map[string]float64, len(prices))
		for _, p := range prices {
			closes[p.Date] = p.Close
			dateSet[p.Date] = true
		}
		closesBySymbol[symbol] = closes
	}

	dates := make([]string, 0, len(dateSet))
	for date := range dateSet {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	if len(dates) < 2 {
		return nil, &allocation.InsufficientDataError{Available: len(dates), Required: 2}
	}

	// First date has no prior close, so returns start at dates[1].
	returnDates := dates[1:]
	data := make([][]float64, len(returnDates))
	for i := range data {
		data[i] = make([]float64, len(symbols))
	}

	for col, symbol := range symbols {
		closes := closesBySymbol[symbol]
		for i, date := range returnDates {
			prev, hasPrev := closes[dates[i]]
			curr, hasCurr := closes[date]
			if hasPrev && hasCurr && prev != 0 {
				data[i][col] = (curr - prev) / prev
			} else {
				data[i][col] = math.NaN()
			}
		}
	}

	rm, err := allocation.NewReturnMatrix(returnDates, symbols, data)
	if err != nil {
		return nil, err
	}

	h.log.Debug().
		Int("periods", rm.NumPeriods()).
		Int("assets", rm.NumAssets()).
		Msg("Loaded return matrix")

	return rm, nil
}
