package rates

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

// Source is one public exchange ticker endpoint and its response shape.
type Source struct {
	Name  string
	URL   string
	Parse func(io.Reader) (decimal.Decimal, error)
}

func defaultSources() []Source {
	return []Source{
		{
			Name: "kraken",
			URL:  "https://api.kraken.com/0/public/Ticker?pair=ETHUSD",
			Parse: func(body io.Reader) (decimal.Decimal, error) {
				var payload struct {
					Result map[string]struct {
						C []string `json:"c"`
					} `json:"result"`
				}
				if err := json.NewDecoder(body).Decode(&payload); err != nil {
					return decimal.Decimal{}, err
				}
				for _, ticker := range payload.Result {
					if len(ticker.C) > 0 {
						return decimal.NewFromString(ticker.C[0])
					}
				}
				return decimal.Decimal{}, fmt.Errorf("no ticker in response")
			},
		},
		{
			Name: "binance",
			URL:  "https://api.binance.com/api/v3/ticker/price?symbol=ETHUSDT",
			Parse: func(body io.Reader) (decimal.Decimal, error) {
				var payload struct {
					Price string `json:"price"`
				}
				if err := json.NewDecoder(body).Decode(&payload); err != nil {
					return decimal.Decimal{}, err
				}
				return decimal.NewFromString(payload.Price)
			},
		},
		{
			Name: "gemini",
			URL:  "https://api.gemini.com/v1/pubticker/ethusd",
			Parse: func(body io.Reader) (decimal.Decimal, error) {
				var payload struct {
					Last string `json:"last"`
				}
				if err := json.NewDecoder(body).Decode(&payload); err != nil {
					return decimal.Decimal{}, err
				}
				return decimal.NewFromString(payload.Last)
			},
		},
		{
			Name: "coingecko",
			URL:  "https://api.coingecko.com/api/v3/simple/price?ids=ethereum&vs_currencies=usd",
			Parse: func(body io.Reader) (decimal.Decimal, error) {
				var payload struct {
					Ethereum struct {
						USD json.Number `json:"usd"`
					} `json:"ethereum"`
				}
				if err := json.NewDecoder(body).Decode(&payload); err != nil {
					return decimal.Decimal{}, err
				}
				return decimal.NewFromString(payload.Ethereum.USD.String())
			},
		},
	}
}
