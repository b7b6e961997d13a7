package provider

// Response types for the Yahoo Finance v8 chart endpoint. Only the fields
// the sync engine consumes are mapped.

type chartResponse struct {
	Chart chartData `json:"chart"`
}

type chartData struct {
	Result []chartResult `json:"result"`
	Error  *chartError   `json:"error"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol               string `json:"symbol"`
	ExchangeTimezoneName string `json:"exchangeTimezoneName"`
	Gmtoffset            int64  `json:"gmtoffset"`
}

type indicators struct {
	Quote    []quote    `json:"quote"`
	Adjclose []adjclose `json:"adjclose"`
}

// Quote arrays use pointers: the provider emits null for slots where the
// exchange printed no trade.
type quote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type adjclose struct {
	Adjclose []*float64 `json:"adjclose"`
}
