package writer

import (
	"encoding/json"
	"time"

	"github.com/dykwon/marketfeed/internal/model"
)

// candleRow is one row for a candle table.
type candleRow struct {
	Symbol    string
	Timeframe int // minutes
	TS        time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// matrixRow is one row for the option_matrix table. Cells holds the
// banded values as a JSONB object keyed by band label; bands the chain
// had no strike for are null.
type matrixRow struct {
	TS         time.Time
	Underlying string
	Metric     string
	Cells      []byte
}

func transformCandle(c model.CandleSnapshot) candleRow {
	return candleRow{
		Symbol:    c.Symbol,
		Timeframe: c.Timeframe,
		TS:        c.TS,
		Open:      c.Open,
		High:      c.High,
		Low:       c.Low,
		Close:     c.Close,
		Volume:    c.Volume,
	}
}

func transformMatrixRow(r model.MatrixRow) (matrixRow, error) {
	cells, err := encodeCells(r.Cells)
	if err != nil {
		return matrixRow{}, err
	}
	return matrixRow{
		TS:         r.TS,
		Underlying: r.Underlying,
		Metric:     string(r.Metric),
		Cells:      cells,
	}, nil
}

// encodeCells marshals cells into a band -> value object. Invalid
// cells become JSON null so absence survives the round trip.
func encodeCells(cells []model.Cell) ([]byte, error) {
	obj := make(map[string]*float64, len(cells))
	for _, c := range cells {
		if c.Valid {
			v := c.Value
			obj[c.Band] = &v
		} else {
			obj[c.Band] = nil
		}
	}
	return json.Marshal(obj)
}
