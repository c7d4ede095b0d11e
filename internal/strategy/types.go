package strategy

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MarketConfig mirrors the market config row of spec.md §3: tick size,
// trade sizing bounds, spread tolerance, sheet values for drift checks, and
// the arb buffer. Decimal fields use shopspring/decimal because tick-exact
// comparisons are not safe in plain float64 at 4-5 decimal places.
type MarketConfig struct {
	ConditionID string `json:"conditionId"`
	Question    string `json:"question"`

	Token1  string `json:"token1"`
	Token2  string `json:"token2"`
	Answer1 string `json:"answer1"`
	Answer2 string `json:"answer2"`

	TickSize  decimal.Decimal `json:"tickSize"`
	TradeSize decimal.Decimal `json:"tradeSize"`
	MaxSize   decimal.Decimal `json:"maxSize"`
	MinSize   decimal.Decimal `json:"minSize"`
	MaxSpread decimal.Decimal `json:"maxSpread"`
	BestBid   decimal.Decimal `json:"bestBid"`
	BestAsk   decimal.Decimal `json:"bestAsk"`
	ArbBuffer decimal.Decimal `json:"arbBuffer"`

	ParamType string  `json:"paramType"`
	ThreeHour float64 `json:"threeHour"`

	// NegRisk is carried as the uppercase string "TRUE"/"FALSE" the way the
	// config row stores it; Bool() is what every call site actually uses.
	NegRisk string `json:"negRisk"`
}

// Bool reports the boolean neg_risk flag the exchange client expects.
func (c MarketConfig) Bool() bool {
	return strings.ToUpper(c.NegRisk) == "TRUE"
}

// TickDigits returns the number of decimal digits in TickSize, used to round
// every outbound order price.
func (c MarketConfig) TickDigits() int32 {
	exp := c.TickSize.Exponent()
	if exp >= 0 {
		return 0
	}
	return -exp
}

// EffectiveMaxSize returns MaxSize, falling back to TradeSize when MaxSize is
// zero (spec.md invariant 11: "max_size omitted from config falls back to
// trade_size").
func (c MarketConfig) EffectiveMaxSize() decimal.Decimal {
	if c.MaxSize.IsZero() {
		return c.TradeSize
	}
	return c.MaxSize
}

// StrategyParams is one row of the parameter table, keyed by ParamType.
type StrategyParams struct {
	StopLossThreshold   float64 `json:"stopLossThreshold"`   // percent, negative triggers
	SpreadThreshold     float64 `json:"spreadThreshold"`     // absolute price units
	VolatilityThreshold float64 `json:"volatilityThreshold"`
	TakeProfitThreshold float64 `json:"takeProfitThreshold"` // percent
	SleepPeriodHours    float64 `json:"sleepPeriodHours"`
}
