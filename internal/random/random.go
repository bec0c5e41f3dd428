package random

import (
	"math/rand"
	"time"
)

// RandomTimeout generates a random duration in the interval [min, max).
func RandomTimeout(min time.Duration, max time.Duration) time.Duration {
	n := rand.Int63n(max.Nanoseconds()-min.Nanoseconds()) + min.Nanoseconds()
	return time.Duration(n)
}

// RandomInt generates a random integer in the interval [min, max).
func RandomInt(min int, max int) int {
	return min + rand.Intn(max-min)
}
