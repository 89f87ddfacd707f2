package wire

import (
	"math"
	"strconv"
)

// Fixed is a signed 24.8 fixed-point number.
type Fixed int32

func FixedFromInt(v int) Fixed {
	return Fixed(v * 256)
}

func FixedFromFloat(v float64) Fixed {
	return Fixed(math.Round(v * 256))
}

func (f Fixed) Float() float64 {
	return float64(f) / 256
}

// Int truncates toward zero.
func (f Fixed) Int() int {
	return int(f / 256)
}

func (f Fixed) String() string {
	return strconv.FormatFloat(f.Float(), 'f', -1, 64)
}
