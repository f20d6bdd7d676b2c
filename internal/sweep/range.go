package sweep

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Swept envelope parameters, in enumeration order (outer to inner).
const (
	ParamWall   = "wall_const_u_value"
	ParamWindow = "window_const_u_value"
	ParamRoof   = "roof_const_u_value"
	ParamFloor  = "floor_const_u_value"
)

// UValueParams lists the swept parameter names in enumeration order.
var UValueParams = []string{ParamWall, ParamWindow, ParamRoof, ParamFloor}

// rangeTolerance is the fraction of a step by which a generated value may
// exceed End and still be included.
var rangeTolerance = decimal.New(1, -9)

// Accepted numbers have at most maxIntDigits digits before the decimal point
// and none beyond minExponent after it.
const (
	maxIntDigits = 6
	minExponent  = -12
)

// Range is an inclusive (start, end, step) specification for one parameter.
// Values are stepped in base 10, so 0.2 + 0.3 is exactly 0.5.
type Range struct {
	Name  string
	Start decimal.Decimal
	End   decimal.Decimal
	Step  decimal.Decimal
}

// NewRange builds a validated range from numeric bounds.
func NewRange(name string, start, end, step float64) (Range, error) {
	s, err := fieldFromFloat(name+".start", start)
	if err != nil {
		return Range{}, err
	}
	e, err := fieldFromFloat(name+".end", end)
	if err != nil {
		return Range{}, err
	}
	st, err := fieldFromFloat(name+".step", step)
	if err != nil {
		return Range{}, err
	}
	r := Range{Name: name, Start: s, End: e, Step: st}
	if err := r.validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

// ParseRange parses user-entered text for one parameter. Every field is
// checked before the range is validated as a whole.
func ParseRange(name, start, end, step string) (Range, error) {
	s, err := parseField(name+".start", start)
	if err != nil {
		return Range{}, err
	}
	e, err := parseField(name+".end", end)
	if err != nil {
		return Range{}, err
	}
	st, err := parseField(name+".step", step)
	if err != nil {
		return Range{}, err
	}
	r := Range{Name: name, Start: s, End: e, Step: st}
	if err := r.validate(); err != nil {
		return Range{}, err
	}
	return r, nil
}

func parseField(field, text string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil {
		return decimal.Decimal{}, &InputError{Field: field, Value: text, Err: ErrInvalidNumber}
	}
	if !inBounds(d) {
		return decimal.Decimal{}, &InputError{Field: field, Value: text, Err: ErrOutOfBounds}
	}
	return d, nil
}

func fieldFromFloat(field string, v float64) (decimal.Decimal, error) {
	text := strconv.FormatFloat(v, 'g', -1, 64)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Decimal{}, &InputError{Field: field, Value: text, Err: ErrInvalidNumber}
	}
	return parseField(field, text)
}

// inBounds looks at the digits and exponent only, so an absurd exponent is
// rejected without being expanded.
func inBounds(d decimal.Decimal) bool {
	exp := int64(d.Exponent())
	if exp < minExponent {
		return false
	}
	digits := int64(len(d.Abs().Coefficient().String()))
	return d.IsZero() || digits+exp <= maxIntDigits
}

func (r Range) validate() error {
	if !r.Step.IsPositive() {
		return &InputError{Field: r.Name + ".step", Value: r.Step.String(), Err: ErrInvalidStep}
	}
	if r.End.LessThan(r.Start) {
		return &InputError{Field: r.Name + ".end", Value: r.End.String(), Err: ErrInvalidRange}
	}
	if r.Len() > MaxScenarios {
		return &InputError{Field: r.Name, Value: r.String(), Err: ErrTooManyScenarios}
	}
	return nil
}

// Values returns start, start+step, ... up to and including End.
// A value overshooting End by less than rangeTolerance*Step is kept.
// At most MaxScenarios values are produced.
func (r Range) Values() []float64 {
	n := min(r.Len(), MaxScenarios)
	if n <= 0 {
		return nil
	}
	out := make([]float64, 0, n)
	v := r.Start
	for range n {
		f, _ := v.Float64()
		out = append(out, f)
		v = v.Add(r.Step)
	}
	return out
}

// Len is the number of values produced by an unbounded Values. It saturates
// at math.MaxInt.
func (r Range) Len() int {
	if !r.Step.IsPositive() {
		return 0
	}
	limit := r.End.Add(r.Step.Mul(rangeTolerance))
	steps := limit.Sub(r.Start).Div(r.Step).Floor()
	if steps.IsNegative() {
		return 0
	}
	if steps.GreaterThanOrEqual(decimal.NewFromInt(math.MaxInt32)) {
		return math.MaxInt
	}
	return int(steps.IntPart()) + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%s:%s:%s", r.Start, r.End, r.Step)
}

// Param converts the range into an enumerable parameter.
func (r Range) Param() Param {
	return Param{Name: r.Name, Values: r.Values()}
}
