package thermal

import "errors"

var (
	ErrNegativeUValue       = errors.New("U-value must be greater or equal to zero")
	ErrInvalidArea          = errors.New("element areas must be greater or equal to zero and floor area positive")
	ErrInvalidCapacitance   = errors.New("thermal capacitance must be strictly positive")
	ErrInvalidSetpoints     = errors.New("heating setpoint must be lower than cooling setpoint")
	ErrInvalidPlant         = errors.New("boiler efficiency and chiller COP must be strictly positive")
	ErrUnknownParameter     = errors.New("unknown model parameter")
	ErrModelIndex           = errors.New("model index out of range")
	ErrNoResultsFile        = errors.New("results file not set")
	ErrUnknownMetric        = errors.New("metric not present in results file")
	ErrLoadsNotRun          = errors.New("room/zone loads must run before sizing")
	ErrParameterValueLength = errors.New("parameter names and values differ in length")
	ErrNonFiniteResult      = errors.New("simulation produced a non-finite result")
)
