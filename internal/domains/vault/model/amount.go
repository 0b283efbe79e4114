package model

import "math/bits"

// Add returns a+b or ErrOverflow when the sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return Amount(sum), nil
}

// Sub returns a-b. Callers map the boolean to the error that fits their pool.
func (a Amount) Sub(b Amount) (Amount, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// NextSlotID returns the slot to assign and the advanced counter value.
func NextSlotID(counter uint64) (SlotID, uint64, error) {
	next, carry := bits.Add64(counter, 1, 0)
	if carry != 0 {
		return 0, 0, ErrOverflow
	}
	return SlotID(counter), next, nil
}
