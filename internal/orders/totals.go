package orders

import "github.com/shopspring/decimal"

// Line is one priced order line.
type Line struct {
	Price    decimal.Decimal
	Quantity int
}

// Totals is the money breakdown of an order.
type Totals struct {
	SubTotal     decimal.Decimal `json:"sub_total"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// ComputeTotals sums price x quantity over lines and adds shipping and tax.
func ComputeTotals(lines []Line, shipping, tax decimal.Decimal) Totals {
	sub := decimal.Zero
	for _, line := range lines {
		sub = sub.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	sub = sub.Round(2)
	shipping = shipping.Round(2)
	tax = tax.Round(2)
	return Totals{
		SubTotal:     sub,
		ShippingCost: shipping,
		Tax:          tax,
		Total:        sub.Add(shipping).Add(tax),
	}
}
