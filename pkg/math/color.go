package math

import "math"

// SRGBChannelToLinear converts a single sRGB encoded channel to linear light.
// https://en.wikipedia.org/wiki/SRGB#From_sRGB_to_CIE_XYZ
func SRGBChannelToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return float32(math.Pow((float64(c)+0.055)/1.055, 2.4))
}

// SRGBToLinear converts the color channels of an RGBA value to linear light.
// Alpha is already linear and passes through.
func SRGBToLinear(c Vec4) Vec4 {
	return Vec4{
		SRGBChannelToLinear(c[0]),
		SRGBChannelToLinear(c[1]),
		SRGBChannelToLinear(c[2]),
		c[3],
	}
}
