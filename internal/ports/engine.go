package ports

import "context"

// Project identifies the model project a sweep runs against.
type Project struct {
	Name string
	Path string // working directory; artifacts live under Vista/ and SunCast/
}

// ModelMutator applies parameter assignments to a model of the project.
type ModelMutator interface {
	Apply(ctx context.Context, modelIndex int, names []string, values []float64) error
}

// SimulationEngine runs the engine passes for the current model state.
// Each run reports the engine's success flag; an error counts as failure.
type SimulationEngine interface {
	SetResultsFile(name string)
	SetHVACNetwork(file string) error
	RunRoomZoneLoads(ctx context.Context) (bool, error)
	RunLoadsSizing(ctx context.Context) (bool, error)
	RunSimulation(ctx context.Context, queued bool) (bool, error)
	RunComplianceSimulation(ctx context.Context) (bool, error)
}

// ResultsExtractor reads named metrics out of a results file.
type ResultsExtractor interface {
	Extract(ctx context.Context, resultsFile string, metrics []string) (map[string]float64, error)
}
