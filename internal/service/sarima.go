package service

import (
	"fmt"
	"math"

	"github.com/IrrisMag/HealthTech-sub000/internal/domain"
)

// sarimaProcess is a SARIMA model reduced to its expanded lag form
//
//	y_t = sum_i ar[i]*y_{t-i-1} + e_t + sum_j ma[j]*e_{t-j-1}
//
// obtained by multiplying out the AR, seasonal AR and differencing
// polynomials on the left and the MA polynomials on the right. Differencing
// is folded into the AR side, so the recursion runs directly on the
// undifferenced series.
type sarimaProcess struct {
	arCoeffs    []float64
	maCoeffs    []float64
	history     []float64
	residuals   []float64
	residualStd float64
}

// newSARIMAProcess expands a loaded model into recursion-ready form.
func newSARIMAProcess(model *domain.ForecastModel) (*sarimaProcess, error) {
	order := model.Metadata.Order
	seasonal := model.Metadata.SeasonalOrder

	// Left side: phi(B) * PHI(B^s) * (1-B)^d * (1-B^s)^D.
	left := arPolynomial(model.ARParams)
	left = polyMul(left, seasonalPolynomial(model.SeasonalARParams, seasonal.Period, -1))
	left = polyMul(left, diffPolynomial(order.Diff, 1))
	left = polyMul(left, diffPolynomial(seasonal.Diff, seasonal.Period))

	// Right side: theta(B) * THETA(B^s).
	right := maPolynomial(model.MAParams)
	right = polyMul(right, seasonalPolynomial(model.SeasonalMAParams, seasonal.Period, 1))

	// y_t = -sum_{i>=1} left[i] y_{t-i} + e_t + sum_{j>=1} right[j] e_{t-j}.
	arCoeffs := make([]float64, len(left)-1)
	for i := 1; i < len(left); i++ {
		arCoeffs[i-1] = -left[i]
	}
	maCoeffs := make([]float64, len(right)-1)
	for j := 1; j < len(right); j++ {
		maCoeffs[j-1] = right[j]
	}

	if len(model.History) < len(arCoeffs) {
		return nil, fmt.Errorf("model history covers %d observations, recursion needs %d", len(model.History), len(arCoeffs))
	}

	std := model.ResidualStd
	if std <= 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return nil, fmt.Errorf("unusable residual std %f", std)
	}

	return &sarimaProcess{
		arCoeffs:    arCoeffs,
		maCoeffs:    maCoeffs,
		history:     model.History,
		residuals:   model.Residuals,
		residualStd: std,
	}, nil
}

// forecast produces h point forecasts and their standard errors. Future
// shocks are set to their zero mean; standard errors grow with horizon via
// the psi-weight expansion of the process.
func (p *sarimaProcess) forecast(h int) (points, se []float64) {
	n := len(p.history)
	values := make([]float64, n, n+h)
	copy(values, p.history)

	points = make([]float64, 0, h)
	for t := 0; t < h; t++ {
		idx := n + t
		var yhat float64
		for i, a := range p.arCoeffs {
			yhat += a * values[idx-i-1]
		}
		for j, b := range p.maCoeffs {
			// Residual at time idx-j-1; zero once inside the horizon.
			rIdx := len(p.residuals) + t - j
			if rIdx >= 1 && rIdx <= len(p.residuals) {
				yhat += b * p.residuals[rIdx-1]
			}
		}
		values = append(values, yhat)
		points = append(points, yhat)
	}

	psi := p.psiWeights(h)
	se = make([]float64, h)
	var cum float64
	for t := 0; t < h; t++ {
		cum += psi[t] * psi[t]
		se[t] = p.residualStd * math.Sqrt(cum)
	}
	return points, se
}

// psiWeights computes the first h weights of the MA(infinity) representation:
// psi_0 = 1, psi_j = ma_j + sum_i ar_i * psi_{j-i}.
func (p *sarimaProcess) psiWeights(h int) []float64 {
	psi := make([]float64, h)
	if h == 0 {
		return psi
	}
	psi[0] = 1
	for j := 1; j < h; j++ {
		var w float64
		if j <= len(p.maCoeffs) {
			w = p.maCoeffs[j-1]
		}
		for i := 1; i <= j && i <= len(p.arCoeffs); i++ {
			w += p.arCoeffs[i-1] * psi[j-i]
		}
		psi[j] = w
	}
	return psi
}

// polyMul multiplies two lag polynomials (index = power of the lag operator).
func polyMul(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}
	return out
}

// arPolynomial builds 1 - c1*B - c2*B^2 - ...
func arPolynomial(coeffs []float64) []float64 {
	out := make([]float64, len(coeffs)+1)
	out[0] = 1
	for i, c := range coeffs {
		out[i+1] = -c
	}
	return out
}

// maPolynomial builds 1 + c1*B + c2*B^2 + ...
func maPolynomial(coeffs []float64) []float64 {
	out := make([]float64, len(coeffs)+1)
	out[0] = 1
	for i, c := range coeffs {
		out[i+1] = c
	}
	return out
}

// seasonalPolynomial builds 1 + sign*c1*B^s + sign*c2*B^2s + ...; sign is -1
// for the AR side and +1 for the MA side.
func seasonalPolynomial(coeffs []float64, period int, sign float64) []float64 {
	if len(coeffs) == 0 || period < 1 {
		return []float64{1}
	}
	out := make([]float64, len(coeffs)*period+1)
	out[0] = 1
	for i, c := range coeffs {
		out[(i+1)*period] = sign * c
	}
	return out
}

// diffPolynomial expands (1 - B^period)^d via repeated multiplication.
func diffPolynomial(d, period int) []float64 {
	out := []float64{1}
	if d <= 0 || period < 1 {
		return out
	}
	base := make([]float64, period+1)
	base[0] = 1
	base[period] = -1
	for i := 0; i < d; i++ {
		out = polyMul(out, base)
	}
	return out
}

// normalQuantile is the inverse standard normal CDF (Acklam's rational
// approximation, relative error below 1.15e-9 across the open unit interval).
func normalQuantile(p float64) float64 {
	if p <= 0 || p >= 1 {
		return math.NaN()
	}

	a := [6]float64{-3.969683028665376e+01, 2.209460984245205e+02, -2.759285104469687e+02,
		1.383577518672690e+02, -3.066479806614716e+01, 2.506628277459239e+00}
	b := [5]float64{-5.447609879822406e+01, 1.615858368580409e+02, -1.556989798598866e+02,
		6.680131188771972e+01, -1.328068155288572e+01}
	c := [6]float64{-7.784894002430293e-03, -3.223964580411365e-01, -2.400758277161838e+00,
		-2.549732539343734e+00, 4.374664141464968e+00, 2.938163982698783e+00}
	d := [4]float64{7.784695709041462e-03, 3.224671290700398e-01, 2.445134137142996e+00,
		3.754408661907416e+00}

	const pLow = 0.02425
	const pHigh = 1 - pLow

	switch {
	case p < pLow:
		q := math.Sqrt(-2 * math.Log(p))
		return (((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	case p > pHigh:
		q := math.Sqrt(-2 * math.Log(1-p))
		return -(((((c[0]*q+c[1])*q+c[2])*q+c[3])*q+c[4])*q + c[5]) /
			((((d[0]*q+d[1])*q+d[2])*q+d[3])*q + 1)
	default:
		q := p - 0.5
		r := q * q
		return (((((a[0]*r+a[1])*r+a[2])*r+a[3])*r+a[4])*r + a[5]) * q /
			(((((b[0]*r+b[1])*r+b[2])*r+b[3])*r+b[4])*r + 1)
	}
}

// intervalZ converts a two-sided confidence level into its normal critical
// value, e.g. 0.95 -> 1.96.
func intervalZ(confidence float64) float64 {
	return normalQuantile((1 + confidence) / 2)
}
