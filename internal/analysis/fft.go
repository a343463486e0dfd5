package analysis

import (
	"math"
	"math/cmplx"
)

// FFT computes the discrete Fourier transform by radix-2 decimation. The
// input length must be a power of two; pad with PadPow2 first.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	if n%2 != 0 {
		panic("fft requires power of 2 length")
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

// PowerSpectrum returns the magnitude of the positive-frequency half of the
// transform.
func PowerSpectrum(data []float64) []float64 {
	fft := FFT(data)
	ps := make([]float64, len(fft)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}

	return ps
}

// HannWindow applies a Hann taper in place and returns the slice. Motion
// tracks start and end mid-swing; without the taper the edges leak across
// the whole spectrum.
func HannWindow(data []float64) []float64 {
	n := len(data)
	if n < 2 {
		return data
	}
	for i := range data {
		w := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		data[i] *= w
	}
	return data
}

// PadPow2 zero-pads data up to the next power of two.
func PadPow2(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n *= 2
	}
	if n == len(data) {
		return data
	}
	padded := make([]float64, n)
	copy(padded, data)
	return padded
}

// DominantFrequency returns the strongest non-DC frequency in hz given the
// sample rate of the series.
func DominantFrequency(data []float64, sampleRate float64) float64 {
	if len(data) < 4 || sampleRate <= 0 {
		return 0
	}

	series := make([]float64, len(data))
	copy(series, data)
	ps := PowerSpectrum(PadPow2(HannWindow(series)))

	maxPower := 0.0
	maxIdx := 0
	for i := 1; i < len(ps); i++ {
		if ps[i] > maxPower {
			maxPower = ps[i]
			maxIdx = i
		}
	}
	return float64(maxIdx) * sampleRate / float64(2*len(ps))
}
