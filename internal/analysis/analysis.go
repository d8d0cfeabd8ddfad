// Package analysis computes the fixed answers over film records.
package analysis

import (
	"math"

	"github.com/hyperifyio/filmstats/internal/films"
)

// NoMatch is returned by EarliestAbove when no record qualifies.
const NoMatch = "No film found"

// Options holds the thresholds of the count and lookup answers.
type Options struct {
	// CountMinGross and CountBeforeYear bound the count answer.
	CountMinGross   float64
	CountBeforeYear int
	// EarliestMinGross bounds the earliest-film lookup.
	EarliestMinGross float64
}

// DefaultOptions returns the thresholds of the standard question set.
func DefaultOptions() Options {
	return Options{
		CountMinGross:    2_000_000_000,
		CountBeforeYear:  2000,
		EarliestMinGross: 1_500_000_000,
	}
}

// CountAbove counts records with gross >= minGross released before year.
func CountAbove(fs []films.Film, minGross float64, beforeYear int) int {
	n := 0
	for _, f := range fs {
		if f.Gross >= minGross && f.Year < beforeYear {
			n++
		}
	}
	return n
}

// EarliestAbove returns the title of the earliest record with gross >=
// minGross. Among records sharing the earliest year the first in input order
// wins. It returns NoMatch when nothing qualifies.
func EarliestAbove(fs []films.Film, minGross float64) string {
	var best *films.Film
	for i := range fs {
		f := &fs[i]
		if f.Gross < minGross {
			continue
		}
		if best == nil || f.Year < best.Year {
			best = f
		}
	}
	if best == nil {
		return NoMatch
	}
	return best.Title
}

// Pearson returns the correlation coefficient of xs and ys, which must be
// the same length. A zero denominator, including empty input, yields 0.
func Pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var num, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := xs[i]-mx, ys[i]-my
		num += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	den := math.Sqrt(sxx * syy)
	if den == 0 {
		return 0
	}
	return num / den
}

// RankPeak splits records into rank and peak series.
func RankPeak(fs []films.Film) (ranks, peaks []float64) {
	ranks = make([]float64, len(fs))
	peaks = make([]float64, len(fs))
	for i, f := range fs {
		ranks[i] = float64(f.Rank)
		peaks[i] = float64(f.Peak)
	}
	return ranks, peaks
}

// LinearFit returns the least-squares intercept and slope of y on x. ok is
// false when x has no variance.
func LinearFit(xs, ys []float64) (intercept, slope float64, ok bool) {
	n := len(xs)
	if n == 0 || n != len(ys) {
		return 0, 0, false
	}
	var mx, my float64
	for i := 0; i < n; i++ {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)
	var sxy, sxx float64
	for i := 0; i < n; i++ {
		sxy += (xs[i] - mx) * (ys[i] - my)
		sxx += (xs[i] - mx) * (xs[i] - mx)
	}
	if sxx == 0 {
		return 0, 0, false
	}
	slope = sxy / sxx
	return my - slope*mx, slope, true
}
