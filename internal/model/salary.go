package model

// Salary is an optional candidate salary. The zero value means "not
// provided", which classification treats differently from a provided but
// non-positive amount: neither is comparable, and both yield a
// not-applicable outcome rather than a Below L1 band.
type Salary struct {
	Amount float64
	Set    bool
}

// SalaryOf returns a provided salary.
func SalaryOf(amount float64) Salary {
	return Salary{Amount: amount, Set: true}
}

// Applicable reports whether the salary can participate in a wage-band
// comparison.
func (s Salary) Applicable() bool {
	return s.Set && s.Amount > 0
}
