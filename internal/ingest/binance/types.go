// Package binance implements the Binance public kline WS and REST ingestion
// producers. Both emit domain.Bar on a Sink; neither knows about the aggregator or
// the supervisor state machine that drives them.
package binance

import (
	"context"
	"strconv"

	"github.com/nrgio/marketpulse/internal/domain"
)

// Sink receives finalised 1-minute bars from a producer. Enqueue must block under
// backpressure rather than drop and return promptly if ctx is
// cancelled.
type Sink interface {
	Enqueue(ctx context.Context, bar domain.Bar) error
}

// wsStreamEnvelope mirrors the payload of a combined-stream kline message:
// https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-streams
type wsStreamEnvelope struct {
	Stream string       `json:"stream"`
	Data   wsKlineEvent `json:"data"`
}

type wsKlineEvent struct {
	EventType string    `json:"e"`
	EventTime int64     `json:"E"`
	Symbol    string    `json:"s"`
	Kline     wsKline   `json:"k"`
}

type wsKline struct {
	StartTime           int64  `json:"t"` // ms
	CloseTime           int64  `json:"T"` // ms
	Symbol              string `json:"s"`
	Interval            string `json:"i"`
	Open                string `json:"o"`
	Close               string `json:"c"`
	High                string `json:"h"`
	Low                 string `json:"l"`
	Volume              string `json:"v"`
	IsFinal             bool   `json:"x"`
}

// toBar converts a closed kline into a domain.Bar. Returns an error if any numeric
// field fails to parse; the caller logs and drops malformed klines.
func (k wsKline) toBar() (domain.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	closeP, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return domain.Bar{}, err
	}
	return domain.Bar{
		Symbol:   k.Symbol,
		Interval: domain.Interval1m,
		Ts:       k.StartTime / 1000,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closeP,
		Volume:   volume,
	}, nil
}

// restKline mirrors one row of GET /api/v3/klines:
// [openTime, open, high, low, close, volume, closeTime, ...]
type restKline []interface{}

func (k restKline) toBar(symbol string) (domain.Bar, error) {
	if len(k) < 7 {
		return domain.Bar{}, errShortKline
	}
	openTimeMs, err := toInt64(k[0])
	if err != nil {
		return domain.Bar{}, err
	}
	open, err := toFloat(k[1])
	if err != nil {
		return domain.Bar{}, err
	}
	high, err := toFloat(k[2])
	if err != nil {
		return domain.Bar{}, err
	}
	low, err := toFloat(k[3])
	if err != nil {
		return domain.Bar{}, err
	}
	closeP, err := toFloat(k[4])
	if err != nil {
		return domain.Bar{}, err
	}
	volume, err := toFloat(k[5])
	if err != nil {
		return domain.Bar{}, err
	}
	return domain.Bar{
		Symbol:   symbol,
		Interval: domain.Interval1m,
		Ts:       openTimeMs / 1000,
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closeP,
		Volume:   volume,
	}, nil
}
