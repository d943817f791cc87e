// Package domain holds the entities shared across the swingbot core: the
// scoring engine, the intraday buy/sell loop, and the snapshot store that
// owns them. All of it is plain data — no behavior lives here.
package domain

import "github.com/shopspring/decimal"

// Side is a buy/sell order direction. The adapter maps each value to its
// own order tr-id; the values themselves are not tr-id suffixes.
type Side string

const (
	SideBuy  Side = "B"
	SideSell Side = "S"
)

// Direction is the position state carried by TradeStatus.
type Direction string

const (
	DirectionBoughtHeld Direction = "BS"
	DirectionSold       Direction = "SS"
)

// YesNo is the stringly-typed flag used throughout the brokerage's config
// surface and several entity fields ("Y"/"N").
type YesNo string

const (
	Yes YesNo = "Y"
	No  YesNo = "N"
)

func (f YesNo) Bool() bool { return f == Yes }

// SheetClass distinguishes annual vs. quarterly financial statement rows.
type SheetClass string

const (
	SheetAnnual  SheetClass = "0"
	SheetQuarter SheetClass = "1"
)

// HistoryType tags a TradeHistory row.
type HistoryType string

const (
	HistoryBuySubmitted HistoryType = "B"
	HistorySellFilled   HistoryType = "SS"
)

// Ticker is a listed equity. Created once from the exchange reference set;
// never mutated except name/sector refresh.
type Ticker struct {
	Code      string // 6 chars, primary key
	Market    string // e.g. "KOSPI", "KOSDAQ"
	ShortName string
	Name      string
	Sector    string
	CreatedAt string // YYYYMMDD, immutable once set
}

// EquitySnapshot is the daily-overwritten fundamentals/price-context row for
// one ticker.
type EquitySnapshot struct {
	Code     string
	Industry string
	Status   string

	RefPrice     int64
	WeightedAvg  int64
	FacePrice    int64
	CeilingPrice int64
	FloorPrice   int64

	ListedShares  int64
	MarketCap     decimal.Decimal // 23,2
	TurnoverRate  float64
	ForeignHoldQty int64

	ForeignNetBuyQty int64
	ProgramNetBuyQty int64

	YearHigh       int64
	YearHighDate   string
	YearHighRate   float64 // rate vs current price
	YearLow        int64
	YearLowDate    string
	YearLowRate    float64

	PER float64
	EPS float64
	PBR float64
	BPS float64
}

// BarKey composite-keys a PriceBar by (code, session date YYYYMMDD). Usable
// directly as a map key.
type BarKey struct {
	Code    string
	Session string
}

// PriceBar is one day's OHLCV plus derived moving averages for one ticker.
// Sequences are read newest-first (see invariants in §3); window
// computations over a sequence traverse forward by index (0 = newest).
type PriceBar struct {
	Code    string
	Session string // YYYYMMDD

	Open  int64
	High  int64
	Low   int64
	Close int64

	Volume       int64
	Turnover     decimal.Decimal // 23,2
	PrevDayDelta int64
	PrevDaySign  int // -1, 0, +1

	MA5, MA10, MA20, MA30, MA60, MA120, MA200, MA240 float64
}

// CloseF returns the bar's close price as a float64, for indicator math that
// needs doubles (RSI, OBV, MA).
func (b PriceBar) CloseF() float64 { return float64(b.Close) }

// SheetKey composite-keys financial statement rows by
// (code, sheetClass, yearMonth).
type SheetKey struct {
	Code       string
	Class      SheetClass
	YearMonth  string // YYYYMM
}

// BalanceSheetRow is one balance-sheet statement row.
type BalanceSheetRow struct {
	SheetKey
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	TotalEquity      decimal.Decimal
	ReserveRate      float64
	DebtRate         float64
}

// IncomeRow is one income-statement row.
type IncomeRow struct {
	SheetKey
	Revenue           decimal.Decimal
	OperatingProfit   decimal.Decimal
	NetIncome         decimal.Decimal
	RevenueGrowthRate float64
	OperatingProfitRate float64
}

// RatioRow is one financial-ratio statement row — the row the scoring
// JOIN (§4.4) reads PER/PBR from.
type RatioRow struct {
	SheetKey
	EPS float64
	BPS float64
	PER float64
	PBR float64
	ROE float64
	ROA float64
}

// ProfitRow is one profitability-ratio statement row.
type ProfitRow struct {
	SheetKey
	GrossProfitRate float64
	NetProfitRate   float64
}

// OtherRow is one "other indicators" statement row (growth/stability mix
// the brokerage groups under its fifth financial-sheet endpoint).
type OtherRow struct {
	SheetKey
	GrowthRate    float64
	StabilityRate float64
}

// ScoreCard is the persisted result of one scoring run for one ticker.
type ScoreCard struct {
	Code    string
	Session string

	SheetScore int
	TrendScore int
	PriceScore int
	KPIScore   int
	BuyScore   int
	CapScore   int
	PERScore   int
	PBRScore   int
	Total      int
}

// TradeInfo is the per-ticker, per-day trading context: pivots, today's
// prices, and the candidate bridge from scoring to the buy loop.
type TradeInfo struct {
	Code    string
	Session string

	Pivot int64
	R1, R2, R3 int64
	S1, S2, S3 int64

	TodayOpen  int64
	PrevClose  int64
	Current    int64

	Strategy  string // e.g. "SW"
	Candidate YesNo
	Note      string
}

// TradeStatus is the latest buy/sell action for one ticker on one day.
type TradeStatus struct {
	Code      string
	Session   string
	Direction Direction
	OrderID   string
	Qty       int64
	AvgPrice  int64
	TradeTime string // HHMMSS
}

// TradeHistory is an append-only trade log entry.
type TradeHistory struct {
	Code    string
	Session string
	Time    string // HHMMSS
	Type    HistoryType
	Qty     int64
	Price   int64
	Note    string
}

// ScoringViewRow is the single joined projection the scoring engine (C8)
// consumes, produced once per run by the snapshot store's scoring view
// (§4.4). It flattens Ticker + EquitySnapshot + latest annual RatioRow,
// IncomeRow and BalanceSheetRow + most-recent PriceBar into the 21
// columns the scorers need.
type ScoringViewRow struct {
	Code   string
	Market string
	Name   string
	Industry string

	RevenueGrowthRate   float64
	OperatingProfitRate float64
	ReserveRate         float64
	DebtRate            float64

	RateVsYearHigh float64
	RateVsYearLow  float64

	Close int64
	MA5, MA20, MA60 float64

	ListedShares     int64
	ForeignNetBuyQty int64
	ProgramNetBuyQty int64
	Volume           int64
	ForeignHoldQty   int64

	PER float64
	PBR float64
}
