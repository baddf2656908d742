package math

// Vec4 is a 4-component vector. Colors are stored as RGBA.
type Vec4 [4]float32

// White is opaque white, the value used for missing color data.
var White = Vec4{1, 1, 1, 1}
