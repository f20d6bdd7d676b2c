package sweep

// Progress is a point-in-time view of the current or last sweep.
type Progress struct {
	SweepID    string
	State      State
	Current    int // 1-based index of the scenario being simulated, 0 before the first
	Total      int
	Succeeded  int
	Failed     int
	Scenario   map[string]float64
	OutputFile string
	LastError  string
}

// Clone returns a copy that shares no mutable state with p.
func (p Progress) Clone() Progress {
	if p.Scenario != nil {
		m := make(map[string]float64, len(p.Scenario))
		for k, v := range p.Scenario {
			m[k] = v
		}
		p.Scenario = m
	}
	return p
}
