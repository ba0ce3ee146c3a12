package history

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/aristath/hrp-allocator/internal/modules/allocation"
	"github.com/aristath/hrp-allocator/pkg/formulas"
)

// LoadCSVReturns reads a return matrix from a CSV file with a
// "date,SYM1,SYM2,..." header. Empty cells become NaN (missing observation).
func LoadCSVReturns(path string) (*allocation.ReturnMatrix, error) {
	dates, symbols, data, err := parseCSVGrid(path)
	if err != nil {
		return nil, err
	}
	return allocation.NewReturnMatrix(dates, symbols, data)
}

// LoadCSVPrices reads a closing-price matrix in the same CSV layout and
// converts each column to periodic returns. The first date is consumed as the
// return base, so the result has one fewer row than the file. A missing price
// yields missing returns for the periods on either side of the gap.
func LoadCSVPrices(path string) (*allocation.ReturnMatrix, error) {
	dates, symbols, prices, err := parseCSVGrid(path)
	if err != nil {
		return nil, err
	}
	if len(dates) < 2 {
		return nil, &allocation.InsufficientDataError{Available: len(dates), Required: 2}
	}

	data := make([][]float64, len(dates)-1)
	for i := range data {
		data[i] = make([]float64, len(symbols))
	}

	for col := range symbols {
		series := make([]float64, len(prices))
		for i, row := range prices {
			series[i] = row[col]
		}
		returns := formulas.CalculateReturns(series)
		for i, r := range returns {
			data[i][col] = r
		}
	}

	return allocation.NewReturnMatrix(dates[1:], symbols, data)
}

// parseCSVGrid reads a "date,SYM1,SYM2,..." file into a dense grid with NaN
// marking empty cells.
func parseCSVGrid(path string) (dates []string, symbols []string, data [][]float64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to parse data file: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, nil, &allocation.InsufficientDataError{Available: len(rows) - 1, Required: 1}
	}

	header := rows[0]
	if len(header) < 2 {
		return nil, nil, nil, &allocation.DegenerateInputError{Reason: "data file has no instrument columns"}
	}
	symbols = header[1:]

	dates = make([]string, 0, len(rows)-1)
	data = make([][]float64, 0, len(rows)-1)
	for lineNo, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, nil, nil, fmt.Errorf("row %d has %d columns, expected %d", lineNo+2, len(row), len(header))
		}
		dates = append(dates, row[0])

		values := make([]float64, len(symbols))
		for i, cell := range row[1:] {
			if cell == "" {
				values[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("row %d column %s: %w", lineNo+2, symbols[i], err)
			}
			values[i] = v
		}
		data = append(data, values)
	}

	return dates, symbols, data, nil
}
