// Package money holds the integer VAT arithmetic shared by pricing and
// reporting. All amounts are öre (minor units); nothing here touches floats.
package money

// CalculateNet returns the net (VAT-exclusive) part of a gross amount at the
// given VAT rate in whole percent. Rounding is half-up on the exact rational
// gross*100/(100+rate); VAT is taken as the remainder so net+VAT always equals
// gross and summed lines reconcile with a total computed separately.
func CalculateNet(gross int64, ratePercent int64) int64 {
	if ratePercent <= 0 {
		return gross
	}
	den := 100 + ratePercent
	// round-half-up of gross*100/den
	return (2*gross*100 + den) / (2 * den)
}

// CalculateVAT returns the VAT (moms) portion of a gross amount.
func CalculateVAT(gross int64, ratePercent int64) int64 {
	return gross - CalculateNet(gross, ratePercent)
}
