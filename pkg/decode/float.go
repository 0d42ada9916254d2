package decode

import "math"

// IEEE-11073 SFLOAT special values (12-bit mantissa space).
const (
	sfloatNaN      = 0x07FF
	sfloatNRes     = 0x0800
	sfloatPosInf   = 0x07FE
	sfloatNegInf   = 0x0802
	sfloatReserved = 0x0801
)

// SFloat converts an IEEE-11073 16-bit SFLOAT to float64.
// NaN, NRes and reserved values map to math.NaN; infinities map to
// the corresponding float64 infinity.
func SFloat(raw uint16) float64 {
	mantissa := int(raw & 0x0FFF)

	switch mantissa {
	case sfloatNaN, sfloatNRes, sfloatReserved:
		return math.NaN()
	case sfloatPosInf:
		return math.Inf(1)
	case sfloatNegInf:
		return math.Inf(-1)
	}

	if mantissa >= 0x0800 {
		mantissa -= 0x1000
	}

	exponent := int(raw >> 12)
	if exponent >= 0x08 {
		exponent -= 0x10
	}

	return float64(mantissa) * math.Pow(10, float64(exponent))
}

// Float converts an IEEE-11073 32-bit FLOAT to float64.
func Float(raw uint32) float64 {
	mantissa := int(raw & 0x00FFFFFF)

	switch mantissa {
	case 0x007FFFFF: // NaN
		return math.NaN()
	case 0x007FFFFE: // +INFINITY
		return math.Inf(1)
	case 0x00800002: // -INFINITY
		return math.Inf(-1)
	case 0x00800000, 0x00800001: // NRes, reserved
		return math.NaN()
	}

	if mantissa >= 0x00800000 {
		mantissa -= 0x01000000
	}

	exponent := int(int8(raw >> 24))

	return float64(mantissa) * math.Pow(10, float64(exponent))
}
