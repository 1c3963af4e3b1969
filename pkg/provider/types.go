package provider

// Candle is one end-of-day price row for a symbol or index.
// The parquet tags define the per-symbol output file schema; the merge
// utility and the Python-side consumers read these column names.
type Candle struct {
	Time   string  `parquet:"time" json:"time"`
	Open   float64 `parquet:"open" json:"open"`
	High   float64 `parquet:"high" json:"high"`
	Low    float64 `parquet:"low" json:"low"`
	Close  float64 `parquet:"close" json:"close"`
	Volume float64 `parquet:"volume" json:"volume"`
}

// ListedSymbol is one entry from the provider's all-symbols listing.
type ListedSymbol struct {
	Symbol    string
	OrganName string
}
