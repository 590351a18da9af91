package series

import "gonum.org/v1/gonum/floats"

// ToFloat32 returns a single-precision copy of s.
func ToFloat32(s *Series[float64]) *Series[float32] {
	data := make([]float32, len(s.Data))
	for i, v := range s.Data {
		data[i] = float32(v)
	}
	return &Series[float32]{Data: data, Step: s.Step, Start: s.Start}
}

// ToFloat64 returns a double-precision copy of s.
func ToFloat64[T Sample](s *Series[T]) *Series[float64] {
	return &Series[float64]{Data: s.Float64s(), Step: s.Step, Start: s.Start}
}

// Scale multiplies every sample of s by c in place.
func Scale(s *Series[float64], c float64) {
	floats.Scale(c, s.Data)
}
