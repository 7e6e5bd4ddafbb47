// internal/market/types.go
package market

// PairsResponse is the feed's envelope for pair listings.
type PairsResponse struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairInfo `json:"pairs"`
}

// PairInfo is one market pair as reported by the feed.
type PairInfo struct {
	ChainID     string        `json:"chainId"`
	DexID       string        `json:"dexId"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   TokenInfo     `json:"baseToken"`
	QuoteToken  TokenInfo     `json:"quoteToken"`
	PriceNative string        `json:"priceNative"`
	PriceUsd    string        `json:"priceUsd"`
	Volume      VolumeInfo    `json:"volume"`
	Liquidity   LiquidityInfo `json:"liquidity"`
	Fdv         float64       `json:"fdv"`
	PairCreated int64         `json:"pairCreatedAt"`
}

type TokenInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

type VolumeInfo struct {
	H24 float64 `json:"h24"`
	H6  float64 `json:"h6"`
	H1  float64 `json:"h1"`
	M5  float64 `json:"m5"`
}

type LiquidityInfo struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Opportunity is a candidate pair surfaced by the feed, carried only
// through screening. It is never persisted.
type Opportunity struct {
	PairAddress  string
	TokenMint    string
	Symbol       string
	Name         string
	PriceUSD     float64
	LiquidityUSD float64
	Volume24h    float64
	MarketCap    float64
}
