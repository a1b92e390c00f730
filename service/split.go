package service

// SplitAmounts divides a total between two parties by percentage. The
// first share is floor(total*pctA/100); the second is the subtraction
// remainder rather than a second floor, so the parts always sum exactly
// to the input and no cent is created or lost.
func SplitAmounts(total int64, pctA int) (int64, int64) {
	a := total * int64(pctA) / 100
	return a, total - a
}
