package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dykwon/marketfeed/internal/timeutil"
)

// Candle is one minute bar as decoded from a provider chart response.
// Rows are returned most-recent-first, matching the board.
type Candle struct {
	TS     time.Time // bar time, canonical local
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// equityCandleWire mirrors one row of the equity minute-chart response.
type equityCandleWire struct {
	Date   string `json:"stck_bsop_date"`
	Clock  string `json:"stck_cntg_hour"`
	Open   string `json:"stck_oprc"`
	High   string `json:"stck_hgpr"`
	Low    string `json:"stck_lwpr"`
	Close  string `json:"stck_prpr"`
	Volume string `json:"cntg_vol"`
}

type equityCandlesResponse struct {
	Rows []equityCandleWire `json:"output2"`
}

// futureCandleWire mirrors one row of the derivative minute-chart response.
type futureCandleWire struct {
	Date   string `json:"stck_bsop_date"`
	Clock  string `json:"stck_cntg_hour"`
	Open   string `json:"futs_oprc"`
	High   string `json:"futs_hgpr"`
	Low    string `json:"futs_lwpr"`
	Close  string `json:"futs_prpr"`
	Volume string `json:"cntg_vol"`
}

type futureCandlesResponse struct {
	Rows []futureCandleWire `json:"output2"`
}

// EquityMinuteCandles fetches the most recent minute bars for an
// equity symbol, as of the given query time.
func (c *Client) EquityMinuteCandles(ctx context.Context, symbol string, asOf time.Time) ([]Candle, error) {
	query := url.Values{}
	query.Set("fid_etc_cls_code", "")
	query.Set("fid_cond_mrkt_div_code", "J")
	query.Set("fid_input_iscd", symbol)
	query.Set("fid_input_hour_1", asOf.Format("150405"))
	query.Set("fid_pw_data_incu_yn", "Y")

	var resp equityCandlesResponse
	if err := c.get(ctx, "/uapi/domestic-stock/v1/quotations/inquire-time-itemchartprice",
		c.trIDs.EquityMinute, query, &resp); err != nil {
		return nil, fmt.Errorf("equity candles %s: %w", symbol, err)
	}

	candles := make([]Candle, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		cd, err := decodeCandle(row.Date, row.Clock, row.Open, row.High, row.Low, row.Close, row.Volume)
		if err != nil {
			return nil, fmt.Errorf("equity candles %s: %w", symbol, err)
		}
		candles = append(candles, cd)
	}
	return candles, nil
}

// FutureMinuteCandles fetches the most recent minute bars for a
// derivative (futures) symbol, as of the given query time.
func (c *Client) FutureMinuteCandles(ctx context.Context, symbol string, asOf time.Time) ([]Candle, error) {
	query := url.Values{}
	query.Set("fid_cond_mrkt_div_code", "F")
	query.Set("fid_input_iscd", symbol)
	query.Set("fid_hour_cls_code", "60")
	query.Set("fid_pw_data_incu_yn", "Y")
	query.Set("fid_fake_tick_incu_yn", "N")
	query.Set("fid_input_date_1", "")
	query.Set("fid_input_hour_1", asOf.Format("150405"))

	var resp futureCandlesResponse
	if err := c.get(ctx, "/uapi/domestic-futureoption/v1/quotations/inquire-time-fuopchartprice",
		c.trIDs.FutureMinute, query, &resp); err != nil {
		return nil, fmt.Errorf("future candles %s: %w", symbol, err)
	}

	candles := make([]Candle, 0, len(resp.Rows))
	for _, row := range resp.Rows {
		cd, err := decodeCandle(row.Date, row.Clock, row.Open, row.High, row.Low, row.Close, row.Volume)
		if err != nil {
			return nil, fmt.Errorf("future candles %s: %w", symbol, err)
		}
		candles = append(candles, cd)
	}
	return candles, nil
}

// decodeCandle builds a Candle from wire-string fields. A bad
// timestamp fails the whole read; numeric fields tolerate blanks the
// way the board emits them.
func decodeCandle(date, clock, open, high, low, cls, vol string) (Candle, error) {
	ts, err := timeutil.ParseQuoteTime(date, clock)
	if err != nil {
		return Candle{}, err
	}
	return Candle{
		TS:     timeutil.FloorToMinute(ts),
		Open:   parseFloat(open),
		High:   parseFloat(high),
		Low:    parseFloat(low),
		Close:  parseFloat(cls),
		Volume: parseInt(vol),
	}, nil
}
