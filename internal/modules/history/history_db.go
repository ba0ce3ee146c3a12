package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// DB provides read access to the per-symbol historical price databases.
// Market-data retrieval and caching belong to an external collaborator; this
// module only reads what is already on disk.
type DB struct {
	historyDir string
	log        zerolog.Logger
}

// NewDB creates a new history database accessor
func NewDB(historyDir string, log zerolog.Logger) *DB {
	return &DB{
		historyDir: historyDir,
		log:        log.With().Str("component", "history_db").Logger(),
	}
}

// PricePoint is one adjusted daily close.
type PricePoint struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

// GetDailyCloses fetches up to limit daily closes for a symbol, oldest first.
func (h *DB) GetDailyCloses(symbol string, limit int) ([]PricePoint, error) {
	db, err := h.openHistoryDB(symbol)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	query := `
		SELECT date, close_price
		FROM daily_prices
		ORDER BY date DESC
		LIMIT ?
	`

	rows, err := db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices for %s: %w", symbol, err)
	}
	defer rows.Close()

	var prices []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	// Query returns newest first; flip to chronological order.
	for i, j := 0, len(prices)-1; i < j; i, j = i+1, j-1 {
		prices[i], prices[j] = prices[j], prices[i]
	}

	return prices, nil
}

// openHistoryDB opens the history database for a symbol
func (h *DB) openHistoryDB(symbol string) (*sql.DB, error) {
	// Convert symbol format: AAPL.US -> AAPL_US
	dbSymbol := strings.ReplaceAll(symbol, ".", "_")

	dbPath := filepath.Join(h.historyDir, dbSymbol+".db")

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database for %s: %w", symbol, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database for %s: %w", symbol, err)
	}

	return db, nil
}
