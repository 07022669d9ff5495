package portfolio

import "github.com/shopspring/decimal"

// Row is one holding of the portfolio.
// TotalValue is Price * Amount whenever Price is valid; otherwise both are unset.
type Row struct {
	Symbol     string
	Amount     decimal.Decimal
	Price      decimal.NullDecimal
	TotalValue decimal.NullDecimal
}

// NewRow creates an unpriced row
func NewRow(symbol string, amount decimal.Decimal) Row {
	return Row{Symbol: symbol, Amount: amount}
}

// WithPrice returns a copy of r priced at price, with its total value recomputed
func (r Row) WithPrice(price decimal.Decimal) Row {
	r.Price = decimal.NewNullDecimal(price)
	r.TotalValue = decimal.NewNullDecimal(price.Mul(r.Amount))
	return r
}

// normalized enforces the price/total invariant
func (r Row) normalized() Row {
	if r.Price.Valid {
		return r.WithPrice(r.Price.Decimal)
	}
	r.TotalValue = decimal.NullDecimal{}
	return r
}
