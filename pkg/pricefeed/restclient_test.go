package pricefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// go test -v --run TestGetPrices
func TestGetPrices(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("symbols")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"symbol":"BTCUSDT","price":"65000.00"},
			{"symbol":"ETHUSDT","price":"not-a-number"},
			{"symbol":"DOGEUSDT","price":"0.12"},
			{"symbol":"SOLUSDT","price":"150.25"}
		]`))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL, 2*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	prices, err := client.GetPrices(ctx, []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"})
	if err != nil {
		t.Fatalf("GetPrices: %v", err)
	}

	if gotQuery != `["BTCUSDT","ETHUSDT","SOLUSDT"]` {
		t.Errorf("symbols query = %q", gotQuery)
	}
	if len(prices) != 2 {
		t.Fatalf("prices = %+v, want BTC and SOL only", prices)
	}
	if prices[0].Symbol != "BTCUSDT" || !prices[0].Price.Equal(decimal.NewFromInt(65000)) {
		t.Errorf("prices[0] = %+v", prices[0])
	}
	if prices[1].Symbol != "SOLUSDT" || prices[1].Price.String() != "150.25" {
		t.Errorf("prices[1] = %+v", prices[1])
	}
}

func TestGetTickersErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	_, err := NewRESTClient(srv.URL, time.Second).GetTickers(context.Background(), "NOPE")
	if err == nil || err.Error() != "price feed error -1121: Invalid symbol." {
		t.Errorf("error = %v", err)
	}
}

func TestGetTickersUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	if _, err := NewRESTClient(srv.URL, time.Second).GetTickers(context.Background()); err == nil {
		t.Error("expected error from closed server")
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"65000.00", "$65,000"},
		{"65000.5", "$65,000.5"},
		{"3120.456", "$3,120.46"},
		{"150", "$150"},
		{"1234567.89", "$1,234,567.89"},
	}
	for _, tt := range tests {
		if got := FormatUSD(decimal.RequireFromString(tt.in)); got != tt.want {
			t.Errorf("FormatUSD(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
