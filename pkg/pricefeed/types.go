package pricefeed

// Ticker is one row of the ticker price endpoint, e.g.
// {"symbol":"BTCUSDT","price":"65000.00"}.
type Ticker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"` // decimal string, never a JSON number
}

// ErrorResponse is the body returned with a non-200 status.
type ErrorResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
