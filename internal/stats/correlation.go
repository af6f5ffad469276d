package stats

import "math"

// PearsonCorrelation calculates the Pearson correlation coefficient between two variables
// Returns value between -1 and 1
func PearsonCorrelation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var sumXY, sumX2, sumY2 float64
	for i := 0; i < len(x); i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		sumXY += dx * dy
		sumX2 += dx * dx
		sumY2 += dy * dy
	}

	if sumX2 == 0 || sumY2 == 0 {
		return 0
	}

	return sumXY / math.Sqrt(sumX2*sumY2)
}

// PhiCoefficient calculates the phi coefficient for two binary events from
// their marginal probabilities p1, p2 and joint probability pBoth.
// The denominator is floored at 0.001 so degenerate distributions do not
// divide by zero. Result is clamped to [-1, 1].
func PhiCoefficient(p1, p2, pBoth float64) float64 {
	denom := math.Sqrt(p1 * p2 * (1 - p1) * (1 - p2))
	if denom < 0.001 {
		denom = 0.001
	}
	return Clamp((pBoth-p1*p2)/denom, -1, 1)
}

// RSquared calculates the coefficient of determination (R²)
// Measures the proportion of variance in y explained by x
func RSquared(x, y []float64) float64 {
	r := PearsonCorrelation(x, y)
	return r * r
}

// LinearRegression performs simple linear regression (y = a + bx)
// Returns slope (b) and intercept (a)
func LinearRegression(x, y []float64) (slope, intercept float64) {
	if len(x) != len(y) || len(x) < 2 {
		return 0, 0
	}

	meanX := Mean(x)
	meanY := Mean(y)

	var sumXY, sumX2 float64
	for i := 0; i < len(x); i++ {
		dx := x[i] - meanX
		sumXY += dx * (y[i] - meanY)
		sumX2 += dx * dx
	}

	if sumX2 == 0 {
		return 0, meanY
	}

	slope = sumXY / sumX2
	intercept = meanY - slope*meanX

	return slope, intercept
}

// Predict predicts y values using linear regression model
func Predict(x []float64, slope, intercept float64) []float64 {
	predictions := make([]float64, len(x))
	for i, xi := range x {
		predictions[i] = slope*xi + intercept
	}
	return predictions
}
