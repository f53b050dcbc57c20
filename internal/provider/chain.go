package provider

import (
	"context"
	"fmt"
	"net/url"
)

// ChainLeg is one strike on one side of the option board.
type ChainLeg struct {
	Symbol       string
	Strike       float64
	Price        float64
	IV           float64
	Delta        float64
	Gamma        float64
	Theta        float64
	Vega         float64
	Rho          float64
	Volume       int64
	OpenInterest int64
	HasOI        bool
}

// Chain is one full-board read: every listed call and put for one
// expiry, plus the underlying reference price.
type Chain struct {
	UnderlyingPrice float64
	Calls           []ChainLeg
	Puts            []ChainLeg
}

// chainLegWire mirrors one option row of the call/put display board.
type chainLegWire struct {
	Symbol          string `json:"optn_shrn_iscd"`
	Strike          string `json:"acpr"`
	Price           string `json:"optn_prpr"`
	IV              string `json:"hts_ints_vltl"`
	Delta           string `json:"delta_val"`
	Gamma           string `json:"gama"`
	Theta           string `json:"theta"`
	Vega            string `json:"vega"`
	Rho             string `json:"rho"`
	Volume          string `json:"acml_vol"`
	OpenInterest    string `json:"hts_otst_stpl_qty"`
	UnderlyingPrice string `json:"unch_prpr"`
}

type chainResponse struct {
	Calls []chainLegWire `json:"output1"`
	Puts  []chainLegWire `json:"output2"`
}

// OptionChain fetches the full call/put board for one expiry tag.
// assetClass selects the underlying board (empty for the default
// index board).
func (c *Client) OptionChain(ctx context.Context, expiry, assetClass string) (Chain, error) {
	query := url.Values{}
	query.Set("fid_cond_mrkt_div_code", "O")
	query.Set("fid_cond_scr_div_code", "20503")
	query.Set("fid_mrkt_cls_code", "CO")
	query.Set("fid_mtrt_cnt", expiry)
	query.Set("fid_cond_mrkt_cls_code", assetClass)
	query.Set("fid_mrkt_cls_code1", "PO")

	var resp chainResponse
	if err := c.get(ctx, "/uapi/domestic-futureoption/v1/quotations/display-board-callput",
		c.trIDs.OptionChain, query, &resp); err != nil {
		return Chain{}, fmt.Errorf("option chain %s: %w", expiry, err)
	}

	chain := Chain{
		Calls: decodeLegs(resp.Calls),
		Puts:  decodeLegs(resp.Puts),
	}

	// The board repeats the underlying price on every row.
	if len(resp.Calls) > 0 {
		chain.UnderlyingPrice = parseFloat(resp.Calls[0].UnderlyingPrice)
	} else if len(resp.Puts) > 0 {
		chain.UnderlyingPrice = parseFloat(resp.Puts[0].UnderlyingPrice)
	}

	return chain, nil
}

func decodeLegs(rows []chainLegWire) []ChainLeg {
	legs := make([]ChainLeg, 0, len(rows))
	for _, row := range rows {
		legs = append(legs, ChainLeg{
			Symbol:       row.Symbol,
			Strike:       parseFloat(row.Strike),
			Price:        parseFloat(row.Price),
			IV:           parseFloat(row.IV),
			Delta:        parseFloat(row.Delta),
			Gamma:        parseFloat(row.Gamma),
			Theta:        parseFloat(row.Theta),
			Vega:         parseFloat(row.Vega),
			Rho:          parseFloat(row.Rho),
			Volume:       parseInt(row.Volume),
			OpenInterest: parseInt(row.OpenInterest),
			HasOI:        row.OpenInterest != "",
		})
	}
	return legs
}
