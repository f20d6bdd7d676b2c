package sweep

import "errors"

// FieldInput is the raw text of one form row: base value, maximum value and
// the amount to jump by.
type FieldInput struct {
	Start string `json:"start" yaml:"start" koanf:"start"`
	End   string `json:"end" yaml:"end" koanf:"end"`
	Step  string `json:"step" yaml:"step" koanf:"step"`
}

// Form holds the four U-value ranges of one sweep request. It is passed by
// value and never mutated once a sweep starts.
type Form struct {
	Wall   FieldInput `json:"wall" yaml:"wall" koanf:"wall"`
	Window FieldInput `json:"window" yaml:"window" koanf:"window"`
	Roof   FieldInput `json:"roof" yaml:"roof" koanf:"roof"`
	Floor  FieldInput `json:"floor" yaml:"floor" koanf:"floor"`
}

// Fields returns the form rows keyed by parameter name, in enumeration order.
func (f Form) Fields() []NamedField {
	return []NamedField{
		{Name: ParamWall, Input: f.Wall},
		{Name: ParamWindow, Input: f.Window},
		{Name: ParamRoof, Input: f.Roof},
		{Name: ParamFloor, Input: f.Floor},
	}
}

type NamedField struct {
	Name  string
	Input FieldInput
}

// Ranges parses every field of the form. All invalid fields are reported
// together; no range is returned unless the whole form is valid.
func (f Form) Ranges() ([]Range, error) {
	var (
		ranges []Range
		errs   []error
	)
	for _, nf := range f.Fields() {
		r, err := ParseRange(nf.Name, nf.Input.Start, nf.Input.End, nf.Input.Step)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ranges = append(ranges, r)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ranges, nil
}

// Build parses the form and enumerates its scenario table.
func Build(f Form) (Table, error) {
	ranges, err := f.Ranges()
	if err != nil {
		return Table{}, err
	}
	params := make([]Param, 0, len(ranges))
	for _, r := range ranges {
		params = append(params, r.Param())
	}
	return Enumerate(params)
}
