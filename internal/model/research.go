package model

// Research table columns, in output order.
const (
	Col52WeekChange      = "52WeekChange"
	ColForwardTargetDiff = "forwardTargetDiff"
	ColBeta              = "beta"
	ColPriceToSales      = "priceToSalesTrailing12Months"
	ColTrailingPE        = "trailingPE"
	ColForwardPE         = "forwardPE"
	ColReturnOnEquity    = "returnOnEquity"
	ColDebtToEquity      = "debtToEquity"
	ColEbitdaMargins     = "ebitdaMargins"
	ColRecommendation    = "recommendation"
)

var ResearchColumns = []string{
	Col52WeekChange,
	ColForwardTargetDiff,
	ColBeta,
	ColPriceToSales,
	ColTrailingPE,
	ColForwardPE,
	ColReturnOnEquity,
	ColDebtToEquity,
	ColEbitdaMargins,
	ColRecommendation,
}

// Quote metrics columns.
const (
	QuoteChange52w = "52wk_change"
	QuotePrice     = "price"
	QuotePSTTM     = "ps_ttm"
	QuotePETTM     = "pe_ttm"
	QuotePEFwd     = "pe_fw"
)

var QuoteColumns = []string{QuoteChange52w, QuotePrice, QuotePSTTM, QuotePETTM, QuotePEFwd}

// Provider field names read from quote info.
const (
	FieldLongName      = "longName"
	FieldCurrentPrice  = "currentPrice"
	FieldPreviousClose = "previousClose"
	FieldTargetMean    = "mean"
)
