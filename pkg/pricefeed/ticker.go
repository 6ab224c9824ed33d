package pricefeed

import (
	"time"

	"marketwatch/internal/market"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ParseTickers keeps the rows whose symbol is in symbols and whose price
// parses. Rows that fail to parse are skipped. An empty symbols keeps all.
func ParseTickers(raw []Ticker, symbols []string, observedAt time.Time) []market.ReferencePrice {
	want := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		want[s] = true
	}

	var out []market.ReferencePrice
	for _, row := range raw {
		if len(want) > 0 && !want[row.Symbol] {
			continue
		}
		price, err := decimal.NewFromString(row.Price)
		if err != nil {
			continue
		}
		out = append(out, market.ReferencePrice{Symbol: row.Symbol, Price: price, ObservedAt: observedAt})
	}
	return out
}

// FormatUSD renders a price with a dollar sign and thousands separators,
// trimming trailing zero cents: 65000.00 -> "$65,000", 3120.5 -> "$3,120.5".
func FormatUSD(price decimal.Decimal) string {
	return "$" + humanize.CommafWithDigits(price.Round(2).InexactFloat64(), 2)
}
