package consteval

import (
	"math"

	"fortio.org/safecast"
)

// narrow returns v as int32, or false when it does not fit.
func narrow(v int64) (int32, bool) {
	n, err := safecast.Conv[int32](v)
	return n, err == nil
}

func addChecked(a, b int32) (int32, bool) { return narrow(int64(a) + int64(b)) }

func subChecked(a, b int32) (int32, bool) { return narrow(int64(a) - int64(b)) }

func mulChecked(a, b int32) (int32, bool) { return narrow(int64(a) * int64(b)) }

func negChecked(a int32) (int32, bool) {
	if a == math.MinInt32 {
		return 0, false
	}
	return -a, true
}

// divChecked covers both division and remainder. zero is set for a zero
// divisor, overflow for MinInt32 / -1.
func divChecked(a, b int32, rem bool) (v int32, zero, overflow bool) {
	if b == 0 {
		return 0, true, false
	}
	if a == math.MinInt32 && b == -1 {
		if rem {
			return 0, false, false
		}
		return 0, false, true
	}
	if rem {
		return a % b, false, false
	}
	return a / b, false, false
}
