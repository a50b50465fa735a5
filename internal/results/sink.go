package results

import "trading-sim-go/internal/models"

// Sink persists completed backtest results. The engine treats it as
// optional: with no sink configured, results live only in the in-memory
// history.
type Sink interface {
	// Store saves a completed result.
	Store(result *models.BacktestResult) error

	// Load fetches a result by id. A missing id returns (nil, nil).
	Load(id string) (*models.BacktestResult, error)

	// Close releases the underlying storage.
	Close() error
}
