package store

import (
	"database/sql"

	"github.com/rs/zerolog"
)

// Store bundles every repository so callers wire one value instead of
// six, the way the teacher's service constructors take one *database.DB.
type Store struct {
	Tickers  *TickerRepository
	Equities *EquitySnapshotRepository
	Bars     *PriceBarRepository
	Sheets   *SheetRepository
	Scores   *ScoreRepository
	Trades   *TradeRepository
}

func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		Tickers:  NewTickerRepository(db, log),
		Equities: NewEquitySnapshotRepository(db, log),
		Bars:     NewPriceBarRepository(db, log),
		Sheets:   NewSheetRepository(db, log),
		Scores:   NewScoreRepository(db, log),
		Trades:   NewTradeRepository(db, log),
	}
}
