package testutil

import "github.com/Agrid-Dev/parasweep/internal/sweep"

// FakeSweepService is a reusable fake implementing ports.SweepService.
// Put ONLY what multiple test packages need here.
type FakeSweepService struct {
	P sweep.Progress

	StartCalled bool
	StartArg    sweep.Form
	StartErr    error
}

func NewFakeSweepService() *FakeSweepService {
	return &FakeSweepService{
		P: sweep.Progress{
			SweepID:   "sweep-1",
			State:     sweep.StateRunning,
			Current:   2,
			Total:     4,
			Succeeded: 1,
			Scenario: map[string]float64{
				sweep.ParamWall:   0.2,
				sweep.ParamWindow: 1.6,
				sweep.ParamRoof:   0.15,
				sweep.ParamFloor:  0.25,
			},
		},
	}
}

func (f *FakeSweepService) Get() sweep.Progress { return f.P.Clone() }

func (f *FakeSweepService) Start(form sweep.Form) error {
	f.StartCalled = true
	f.StartArg = form
	if f.StartErr != nil {
		return f.StartErr
	}
	if _, err := sweep.Build(form); err != nil {
		return err
	}
	f.P.State = sweep.StateRunning
	return nil
}
