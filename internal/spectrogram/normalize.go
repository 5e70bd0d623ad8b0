package spectrogram

// Normalize returns a copy of m rescaled to [0, 1]: the minimum is subtracted
// and the result divided by its maximum. A constant matrix maps to all zeros.
func Normalize(m *Matrix) *Matrix {
	out := &Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]float64, len(m.Data))}
	if len(m.Data) == 0 {
		return out
	}

	lo := m.Data[0]
	for _, v := range m.Data[1:] {
		lo = min(lo, v)
	}

	var hi float64
	for i, v := range m.Data {
		out.Data[i] = v - lo
		hi = max(hi, out.Data[i])
	}

	if hi == 0 {
		clear(out.Data)
		return out
	}
	for i := range out.Data {
		out.Data[i] /= hi
	}
	return out
}
