package index

import (
	"math"

	"github.com/orunio/climate/backend/internal/contracts"
)

// Impact test parameters
const (
	Confidence   = 0.95
	Significance = 0.05
)

// EstimateImpact runs Welch's two-sample t-test of treatment against control.
// Either side with fewer than two points yields InsufficientData and zero numbers.
func EstimateImpact(treatment, control contracts.IndexTimeSeries) contracts.ImpactEstimate {
	est := contracts.ImpactEstimate{
		Index:      treatment.Index,
		Confidence: Confidence,
		TreatmentN: treatment.Len(),
		ControlN:   control.Len(),
	}
	if est.TreatmentN < 2 || est.ControlN < 2 {
		est.InsufficientData = true
		return est
	}

	t, c := treatment.Values(), control.Values()
	n1, n2 := float64(len(t)), float64(len(c))

	est.TreatmentMean = Mean(t)
	est.ControlMean = Mean(c)
	est.Effect = est.TreatmentMean - est.ControlMean

	a := Variance(t) / n1
	b := Variance(c) / n2
	se := math.Sqrt(a + b)

	// 두 시리즈 모두 분산 0: 차이가 있으면 확정적
	if se == 0 || (constant(t) && constant(c)) {
		est.DegreesOfFreedom = n1 + n2 - 2
		est.CILower, est.CIUpper = est.Effect, est.Effect
		if est.Effect == 0 {
			est.PValue = 1
		}
		est.Significant = est.PValue < Significance
		return est
	}

	df := (a + b) * (a + b) / (a*a/(n1-1) + b*b/(n2-1))
	tStat := est.Effect / se
	margin := StudentTQuantile(1-(1-Confidence)/2, df) * se

	est.DegreesOfFreedom = df
	est.PValue = TwoSidedPValue(tStat, df)
	est.CILower = est.Effect - margin
	est.CIUpper = est.Effect + margin
	est.Significant = est.PValue < Significance
	return est
}

// TwoSidedPValue returns P(|T| >= |t|) for Student's t with df degrees of freedom
func TwoSidedPValue(t, df float64) float64 {
	if math.IsInf(t, 0) {
		return 0
	}
	return RegIncBeta(df/2, 0.5, df/(df+t*t))
}

// StudentTCDF is the cumulative distribution of Student's t
func StudentTCDF(t, df float64) float64 {
	tail := 0.5 * RegIncBeta(df/2, 0.5, df/(df+t*t))
	if t >= 0 {
		return 1 - tail
	}
	return tail
}

// StudentTQuantile inverts StudentTCDF by bisection, p in (0, 1)
func StudentTQuantile(p, df float64) float64 {
	if p == 0.5 {
		return 0
	}

	lo, hi := -1.0, 1.0
	for StudentTCDF(lo, df) > p {
		lo *= 2
	}
	for StudentTCDF(hi, df) < p {
		hi *= 2
	}

	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		if StudentTCDF(mid, df) < p {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < 1e-12 {
			break
		}
	}
	return (lo + hi) / 2
}

// RegIncBeta is the regularized incomplete beta function I_x(a, b)
func RegIncBeta(a, b, x float64) float64 {
	switch {
	case x <= 0:
		return 0
	case x >= 1:
		return 1
	}

	la, _ := math.Lgamma(a)
	lb, _ := math.Lgamma(b)
	lab, _ := math.Lgamma(a + b)
	front := math.Exp(lab - la - lb + a*math.Log(x) + b*math.Log(1-x))

	// continued fraction converges fast on this side
	if x < (a+1)/(a+b+2) {
		return front * betaCF(a, b, x) / a
	}
	return 1 - front*betaCF(b, a, 1-x)/b
}

// betaCF evaluates the incomplete beta continued fraction (modified Lentz)
func betaCF(a, b, x float64) float64 {
	const (
		maxIter = 300
		eps     = 1e-15
		tiny    = 1e-300
	)

	qab, qap, qam := a+b, a+1, a-1
	c := 1.0
	d := 1 - qab*x/qap
	if math.Abs(d) < tiny {
		d = tiny
	}
	d = 1 / d
	h := d

	for m := 1; m <= maxIter; m++ {
		fm := float64(m)
		m2 := 2 * fm

		aa := fm * (b - fm) * x / ((qam + m2) * (a + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		h *= d * c

		aa = -(a + fm) * (qab + fm) * x / ((a + m2) * (qap + m2))
		d = 1 + aa*d
		if math.Abs(d) < tiny {
			d = tiny
		}
		c = 1 + aa/c
		if math.Abs(c) < tiny {
			c = tiny
		}
		d = 1 / d
		del := d * c
		h *= del

		if math.Abs(del-1) < eps {
			break
		}
	}
	return h
}
