package analysis

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hyperifyio/filmstats/internal/films"
)

// Charter renders the rank/peak series into a data URI string.
type Charter interface {
	DataURI(ranks, peaks []float64) (string, error)
}

// Answers are the four computed results of one run.
type Answers struct {
	Count       int
	Earliest    string
	Correlation float64
	Chart       string
}

// Compute runs the four computations in order. fs must be non-empty.
func Compute(fs []films.Film, opt Options, c Charter) (Answers, error) {
	if len(fs) == 0 {
		return Answers{}, films.ErrNoRecords
	}
	ranks, peaks := RankPeak(fs)
	a := Answers{
		Count:       CountAbove(fs, opt.CountMinGross, opt.CountBeforeYear),
		Earliest:    EarliestAbove(fs, opt.EarliestMinGross),
		Correlation: Pearson(ranks, peaks),
	}
	if c != nil {
		uri, err := c.DataURI(ranks, peaks)
		if err != nil {
			return Answers{}, fmt.Errorf("render chart: %w", err)
		}
		a.Chart = uri
	}
	return a, nil
}

// Result is the fixed four-element output of a run: either all answers, or
// a failure description followed by three nulls.
type Result struct {
	Answers *Answers
	Failure string
}

// Succeeded wraps a.
func Succeeded(a Answers) Result { return Result{Answers: &a} }

// Failed builds the degraded result carrying description.
func Failed(description string) Result { return Result{Failure: description} }

// OK reports whether the result carries answers.
func (r Result) OK() bool { return r.Answers != nil }

// Array returns the four elements in output order.
func (r Result) Array() [4]any {
	if r.Answers == nil {
		return [4]any{r.Failure, nil, nil, nil}
	}
	return [4]any{r.Answers.Count, r.Answers.Earliest, Float(r.Answers.Correlation), r.Answers.Chart}
}

// Float encodes as a JSON number that always carries a fractional part, so
// a whole value is written as 0.0 rather than 0.
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return nil, fmt.Errorf("unsupported float value: %v", float64(f))
	}
	s := strconv.FormatFloat(float64(f), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return []byte(s), nil
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Array())
}
