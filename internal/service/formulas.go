package service

// CommercialYearDays is the 360-day year the tax formula divides the annual
// rate by. It is part of the legal formula, not a tuning knob.
const CommercialYearDays = 360

// ValueMaintenance computes MV = P * (E/S - 1), the inflation adjustment of
// principal p between index-at-start s and index-at-end e.
// s must be positive; callers validate it through domain.NewIndexPair.
func ValueMaintenance(p, s, e float64) float64 {
	return p * (e/s - 1)
}

// Interest computes I = (P + MV) * (R / 360) * D.
// R is used exactly as supplied (6 for a 6% rate), as the formula prescribes.
func Interest(p, mv, annualRate float64, days int) float64 {
	return (p + mv) * (annualRate / CommercialYearDays) * float64(days)
}

// Penalty computes S = P * (K / 100).
func Penalty(p, percent float64) float64 {
	return p * (percent / 100)
}
