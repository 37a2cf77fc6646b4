package churn

import (
	"errors"
	"math"
)

var errNotConverged = errors.New("logistic fit did not converge")

// logit is a one-feature logistic regression with an L2 penalty on the
// coefficient only. c is the inverse regularisation strength.
type logit struct {
	w, b float64
}

func (m logit) prob(x float64) float64 {
	return sigmoid(m.w*x + m.b)
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// softplus computes log(1+exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func objective(xs, ys []float64, c, w, b float64) float64 {
	loss := 0.5 * w * w
	for i := range xs {
		z := w*xs[i] + b
		loss += c * (softplus(z) - ys[i]*z)
	}
	return loss
}

// fitLogit minimises the penalised log-loss by Newton's method with a
// backtracking line search. The objective is strictly convex in w, so the
// search only fails on pathological input.
func fitLogit(xs, ys []float64, c float64, maxIter int) (logit, error) {
	var w, b float64
	cur := objective(xs, ys, c, w, b)

	for iter := 0; iter < maxIter; iter++ {
		gw, gb := w, 0.0
		hww, hwb, hbb := 1.0, 0.0, 0.0
		for i := range xs {
			p := sigmoid(w*xs[i] + b)
			r := c * (p - ys[i])
			s := c * p * (1 - p)
			gw += r * xs[i]
			gb += r
			hww += s * xs[i] * xs[i]
			hwb += s * xs[i]
			hbb += s
		}
		gmax := math.Max(math.Abs(gw), math.Abs(gb))
		if gmax < 1e-8 {
			return logit{w, b}, nil
		}

		var dw, db float64
		if det := hww*hbb - hwb*hwb; det > 1e-12 {
			dw = -(hbb*gw - hwb*gb) / det
			db = -(hww*gb - hwb*gw) / det
		} else {
			scale := math.Max(hww, 1)
			dw, db = -gw/scale, -gb/scale
		}

		slope := gw*dw + gb*db
		step := 1.0
		for {
			next := objective(xs, ys, c, w+step*dw, b+step*db)
			if next <= cur+1e-4*step*slope {
				w, b, cur = w+step*dw, b+step*db, next
				break
			}
			step /= 2
			if step < 1e-12 {
				// no further decrease representable in float64
				if gmax < 1e-4 {
					return logit{w, b}, nil
				}
				return logit{w, b}, errNotConverged
			}
		}
		if math.Abs(step*dw) < 1e-12 && math.Abs(step*db) < 1e-12 {
			return logit{w, b}, nil
		}
	}
	return logit{w, b}, errNotConverged
}
