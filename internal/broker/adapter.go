package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/kis-trader/swingbot/internal/broker/httpapi"
	"github.com/kis-trader/swingbot/internal/broker/token"
	"github.com/kis-trader/swingbot/internal/calendar"
	"github.com/kis-trader/swingbot/internal/domain"
	"github.com/kis-trader/swingbot/internal/numeric"
)

// SheetKind selects which of the five financial-statement endpoints
// FinancialSheet calls.
type SheetKind string

const (
	SheetKindBalance SheetKind = "B"
	SheetKindIncome  SheetKind = "I"
	SheetKindRatio   SheetKind = "F"
	SheetKindProfit  SheetKind = "P"
	SheetKindOther   SheetKind = "E"
)

var sheetTrID = map[SheetKind]string{
	SheetKindBalance: "FHKST66430100",
	SheetKindIncome:  "FHKST66430200",
	SheetKindRatio:   "FHKST66430300",
	SheetKindProfit:  "FHKST66430400",
	SheetKindOther:   "FHKST66430500",
}

// Mode selects the mock vs. real endpoint/tr-id partition (§4.3, §6).
// Both partitions implement the identical adapter surface.
type Mode string

const (
	ModeReal Mode = "real"
	ModeMock Mode = "mock"
)

// Adapter is the typed brokerage wrapper (C5): each method is one
// httpapi.Call with a fixed tr-id and path template.
type Adapter struct {
	http    *httpapi.Client
	tokens  *token.Manager
	mode    Mode
	account string
	product string
}

func NewAdapter(http *httpapi.Client, tokens *token.Manager, mode Mode, account, product string) *Adapter {
	return &Adapter{http: http, tokens: tokens, mode: mode, account: account, product: product}
}

func (a *Adapter) call(ctx context.Context, op, path, trID string, query url.Values, body interface{}, method string) (httpapi.Envelope, error) {
	tok, err := a.tokens.GetToken(ctx)
	if err != nil {
		return httpapi.Envelope{}, fmt.Errorf("%s: get token: %w", op, err)
	}
	return a.http.Do(ctx, op, httpapi.Request{
		Method: method,
		Path:   path,
		Token:  tok,
		TrID:   trID,
		Query:  query,
		Body:   body,
	})
}

// Quote is the subset of SpotQuote's output the core trading logic reads.
type Quote struct {
	Current int64
	Open    int64
	High    int64
	Low     int64
}

// SpotQuote fetches the current tick for one ticker. Callers must fall
// back to DailyPriceSeries when Open is zero (pre-open or a data glitch).
func (a *Adapter) SpotQuote(ctx context.Context, code string) (Quote, error) {
	query := url.Values{"FID_COND_MRKT_DIV_CODE": {"J"}, "FID_INPUT_ISCD": {code}}
	env, err := a.call(ctx, "SpotQuote", "/uapi/domestic-stock/v1/quotations/inquire-price", "FHKST01010100", query, nil, http.MethodGet)
	if err != nil {
		return Quote{}, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(env.Output, &out); err != nil {
		return Quote{}, &Error{Op: "SpotQuote", Kind: KindDecode, Err: err}
	}
	return Quote{
		Current: numeric.Int(out["stck_prpr"]),
		Open:    numeric.Int(out["stck_oprc"]),
		High:    numeric.Int(out["stck_hgpr"]),
		Low:     numeric.Int(out["stck_lwpr"]),
	}, nil
}

// EquitySnapshotFields decodes the same spot-quote response (the
// brokerage's inquire-price endpoint carries the day's full reference
// context in one payload, not just the tick) into the wider set of
// fields the daily EquitySnapshot overwrite needs.
func (a *Adapter) EquitySnapshotFields(ctx context.Context, code string) (domain.EquitySnapshot, error) {
	query := url.Values{"FID_COND_MRKT_DIV_CODE": {"J"}, "FID_INPUT_ISCD": {code}}
	env, err := a.call(ctx, "EquitySnapshotFields", "/uapi/domestic-stock/v1/quotations/inquire-price", "FHKST01010100", query, nil, http.MethodGet)
	if err != nil {
		return domain.EquitySnapshot{}, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(env.Output, &out); err != nil {
		return domain.EquitySnapshot{}, &Error{Op: "EquitySnapshotFields", Kind: KindDecode, Err: err}
	}
	return domain.EquitySnapshot{
		Code:             code,
		Status:           numeric.String(out["iscd_stat_cls_code"]),
		RefPrice:         numeric.Int(out["stck_sdpr"]),
		WeightedAvg:      numeric.Int(out["wghn_avrg_stck_prc"]),
		FacePrice:        numeric.Int(out["stck_fcam"]),
		CeilingPrice:     numeric.Int(out["stck_mxpr"]),
		FloorPrice:       numeric.Int(out["stck_llam"]),
		ListedShares:     numeric.Int(out["lstn_stcn"]),
		MarketCap:        numeric.Decimal(out["hts_avls"]),
		TurnoverRate:     numeric.Float(out["vol_tnrt"]),
		ForeignHoldQty:   numeric.Int(out["hts_frgn_ehrt"]),
		ForeignNetBuyQty: numeric.Int(out["frgn_ntby_qty"]),
		ProgramNetBuyQty: numeric.Int(out["pgtr_ntby_qty"]),
		YearHigh:         numeric.Int(out["w52_hgpr"]),
		YearHighDate:     numeric.String(out["w52_hgpr_date"]),
		YearHighRate:     numeric.Float(out["w52_hgpr_vrss_prpr_rate"]),
		YearLow:          numeric.Int(out["w52_lwpr"]),
		YearLowDate:      numeric.String(out["w52_lwpr_date"]),
		YearLowRate:      numeric.Float(out["w52_lwpr_vrss_prpr_rate"]),
		PER:              numeric.Float(out["per"]),
		EPS:              numeric.Float(out["eps"]),
		PBR:              numeric.Float(out["pbr"]),
		BPS:              numeric.Float(out["bps"]),
	}, nil
}

// DailyChartPrice fetches up to 100 daily bars in one call.
func (a *Adapter) DailyChartPrice(ctx context.Context, code, from, to string) ([]domain.PriceBar, error) {
	query := url.Values{
		"fid_cond_mrkt_div_code": {"J"},
		"fid_input_iscd":         {code},
		"fid_input_date_1":       {from},
		"fid_input_date_2":       {to},
		"fid_period_div_code":    {"D"},
		"fid_org_adj_prc":        {"1"},
	}
	env, err := a.call(ctx, "DailyChartPrice", "/uapi/domestic-stock/v1/quotations/inquire-daily-itemchartprice", "FHKST03010100", query, nil, http.MethodGet)
	if err != nil {
		return nil, err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(env.Output2, &rows); err != nil {
		return nil, &Error{Op: "DailyChartPrice", Kind: KindDecode, Err: err}
	}
	bars := make([]domain.PriceBar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, domain.PriceBar{
			Code:    code,
			Session: numeric.String(row["stck_bsop_date"]),
			Open:    numeric.Int(row["stck_oprc"]),
			High:    numeric.Int(row["stck_hgpr"]),
			Low:     numeric.Int(row["stck_lwpr"]),
			Close:   numeric.Int(row["stck_clpr"]),
			Volume:  numeric.Int(row["acml_vol"]),
			Turnover: numeric.Decimal(row["acml_tr_pbmn"]),
		})
	}
	return bars, nil
}

// HistoryChart composes DailyChartPrice into the full 400-day window (or
// just today's bar when todayOnly), fanning the four batch calls out
// concurrently subject to C4's shared spacing gate.
func (a *Adapter) HistoryChart(ctx context.Context, code string, todayOnly bool) ([]domain.PriceBar, error) {
	today := calendar.Today()
	if todayOnly {
		return a.DailyChartPrice(ctx, code, today, today)
	}

	type window struct{ from, to string }
	windows := []window{
		{calendar.DaysAgo(99), today},
		{calendar.DaysAgo(199), calendar.DaysAgo(100)},
		{calendar.DaysAgo(299), calendar.DaysAgo(200)},
		{calendar.DaysAgo(399), calendar.DaysAgo(300)},
	}

	results := make([][]domain.PriceBar, len(windows))
	errs := make([]error, len(windows))
	var wg sync.WaitGroup
	for i, w := range windows {
		wg.Add(1)
		go func(i int, w window) {
			defer wg.Done()
			bars, err := a.DailyChartPrice(ctx, code, w.from, w.to)
			results[i] = bars
			errs[i] = err
		}(i, w)
	}
	wg.Wait()

	var all []domain.PriceBar
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("history chart window %d for %s: %w", i, code, err)
		}
		all = append(all, results[i]...)
	}
	return all, nil
}

// DailyPriceSeries fetches the simpler daily-price endpoint, used as the
// SpotQuote fallback when the quote's open price is zero.
func (a *Adapter) DailyPriceSeries(ctx context.Context, code string) ([]domain.PriceBar, error) {
	query := url.Values{"fid_cond_mrkt_div_code": {"J"}, "fid_input_iscd": {code}, "fid_org_adj_prc": {"1"}, "fid_period_div_code": {"D"}}
	env, err := a.call(ctx, "DailyPriceSeries", "/uapi/domestic-stock/v1/quotations/inquire-daily-price", "FHKST01010400", query, nil, http.MethodGet)
	if err != nil {
		return nil, err
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(env.Output, &rows); err != nil {
		return nil, &Error{Op: "DailyPriceSeries", Kind: KindDecode, Err: err}
	}
	bars := make([]domain.PriceBar, 0, len(rows))
	for _, row := range rows {
		bars = append(bars, domain.PriceBar{
			Code:    code,
			Session: numeric.String(row["stck_bsop_date"]),
			Open:    numeric.Int(row["stck_oprc"]),
			High:    numeric.Int(row["stck_hgpr"]),
			Low:     numeric.Int(row["stck_lwpr"]),
			Close:   numeric.Int(row["stck_clpr"]),
			Volume:  numeric.Int(row["acml_vol"]),
		})
	}
	return bars, nil
}

// FinancialSheet fetches one of the five statement kinds for one cycle.
func (a *Adapter) FinancialSheet(ctx context.Context, kind SheetKind, code string, cycle domain.SheetClass) (json.RawMessage, error) {
	trID, ok := sheetTrID[kind]
	if !ok {
		return nil, &Error{Op: "FinancialSheet", Kind: KindArgumentInvalid, Err: fmt.Errorf("unknown sheet kind %q", kind)}
	}
	query := url.Values{"FID_DIV_CLS_CODE": {string(cycle)}, "fid_cond_mrkt_div_code": {"J"}, "fid_input_iscd": {code}}
	env, err := a.call(ctx, "FinancialSheet", fmt.Sprintf("/uapi/domestic-stock/v1/finance/%s", sheetPath(kind)), trID, query, nil, http.MethodGet)
	if err != nil {
		return nil, err
	}
	return env.Output, nil
}

func sheetPath(kind SheetKind) string {
	switch kind {
	case SheetKindBalance:
		return "balance-sheet"
	case SheetKindIncome:
		return "income-statement"
	case SheetKindRatio:
		return "financial-ratio"
	case SheetKindProfit:
		return "profit-ratio"
	case SheetKindOther:
		return "other-major-ratios"
	default:
		return ""
	}
}

// Position is one row of an account's current holdings.
type Position struct {
	Code        string
	Name        string
	PurchaseAmt int64
	AvgPrice    int64
	Qty         int64
}

// AccountSnapshot is the decoded AccountBalance response: positions plus
// the effective-cash figure the buy task allocates from.
type AccountSnapshot struct {
	Positions     []Position
	EffectiveCash int64
}

// AccountBalance fetches current holdings and effective cash.
// Effective cash is prvs_rcdl_excc_amt if positive, else dnca_tot_amt.
func (a *Adapter) AccountBalance(ctx context.Context) (AccountSnapshot, error) {
	trID := "VTTC8434R"
	if a.mode == ModeReal {
		trID = "TTTC8434R"
	}
	query := url.Values{
		"CANO": {a.account}, "ACNT_PRDT_CD": {a.product},
		"INQR_DVSN": {"02"}, "UNPR_DVSN": {"01"}, "PRCS_DVSN": {"01"},
		"AFHR_FLPR_YN": {"N"}, "OFL_YN": {"N"}, "FUND_STTL_ICLD_YN": {"N"},
		"FNCG_AMT_AUTO_RDPT_YN": {"N"}, "CTX_AREA_FK100": {""}, "CTX_AREA_NK100": {""},
	}
	env, err := a.call(ctx, "AccountBalance", "/uapi/domestic-stock/v1/trading/inquire-balance", trID, query, nil, http.MethodGet)
	if err != nil {
		return AccountSnapshot{}, err
	}

	var positionRows []map[string]interface{}
	if err := json.Unmarshal(env.Output1, &positionRows); err != nil {
		return AccountSnapshot{}, &Error{Op: "AccountBalance", Kind: KindDecode, Err: err}
	}
	var totalsRows []map[string]interface{}
	if err := json.Unmarshal(env.Output2, &totalsRows); err != nil {
		return AccountSnapshot{}, &Error{Op: "AccountBalance", Kind: KindDecode, Err: err}
	}

	snap := AccountSnapshot{}
	for _, row := range positionRows {
		snap.Positions = append(snap.Positions, Position{
			Code:        numeric.String(row["pdno"]),
			Name:        numeric.String(row["prdt_name"]),
			PurchaseAmt: numeric.Int(row["pchs_amt"]),
			AvgPrice:    numeric.Int(row["pchs_avg_pric"]),
			Qty:         numeric.Int(row["hldg_qty"]),
		})
	}
	if len(totalsRows) > 0 {
		deposit := numeric.Int(totalsRows[0]["dnca_tot_amt"])
		settlement := numeric.Int(totalsRows[0]["prvs_rcdl_excc_amt"])
		if settlement > 0 {
			snap.EffectiveCash = settlement
		} else {
			snap.EffectiveCash = deposit
		}
	}
	return snap, nil
}

// OrderResult carries the brokerage's external order number on success.
type OrderResult struct {
	ODNO string
}

// PlaceOrder submits a limit order. orderKind is always "00" (the only
// value the core uses).
func (a *Adapter) PlaceOrder(ctx context.Context, side domain.Side, code string, orderKind string, qty, price int64) (OrderResult, error) {
	trIDs := map[domain.Side]string{domain.SideBuy: "VTTC0012U", domain.SideSell: "VTTC0011U"}
	if a.mode == ModeReal {
		trIDs = map[domain.Side]string{domain.SideBuy: "TTTC0012U", domain.SideSell: "TTTC0011U"}
	}
	trID, ok := trIDs[side]
	if !ok {
		return OrderResult{}, &Error{Op: "PlaceOrder", Kind: KindArgumentInvalid, Err: fmt.Errorf("unknown side %q", side)}
	}

	body := map[string]interface{}{
		"CANO":         a.account,
		"ACNT_PRDT_CD": a.product,
		"PDNO":         code,
		"ORD_DVSN":     orderKind,
		"ORD_QTY":      fmt.Sprintf("%d", qty),
		"ORD_UNPR":     fmt.Sprintf("%d", price),
	}
	env, err := a.call(ctx, "PlaceOrder", "/uapi/domestic-stock/v1/trading/order-cash", trID, nil, body, http.MethodPost)
	if err != nil {
		return OrderResult{}, err
	}

	var out map[string]interface{}
	if err := json.Unmarshal(env.Output, &out); err != nil {
		return OrderResult{}, &Error{Op: "PlaceOrder", Kind: KindDecode, Err: err}
	}
	return OrderResult{ODNO: numeric.String(out["ODNO"])}, nil
}
