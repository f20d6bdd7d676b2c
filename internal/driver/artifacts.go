package driver

import (
	"fmt"
	"path/filepath"

	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// Folder names under the project working directory.
const (
	VistaDir   = "Vista"
	SunCastDir = "SunCast"
)

// complianceScheme prefixes the fixed compliance result names.
const complianceScheme = "(Part L2 2013)"

// Artifacts names the files one scenario run produces.
type Artifacts struct {
	ResultsFile string   // name handed to the engine
	ResultsPath string   // where the engine materialises ResultsFile
	Paths       []string // every file removed after the run
}

// ArtifactsFor returns the artifact names for a run on the given route.
func ArtifactsFor(project ports.Project, route sweep.Route, run int) (Artifacts, error) {
	vista := filepath.Join(project.Path, VistaDir)
	switch route {
	case sweep.RouteDirect:
		aps := fmt.Sprintf("Para_run_%d.aps", run)
		apsPath := filepath.Join(vista, aps)
		return Artifacts{
			ResultsFile: aps,
			ResultsPath: apsPath,
			Paths: []string{
				apsPath,
				filepath.Join(vista, fmt.Sprintf("Para_run_%d.asp", run)),
				filepath.Join(project.Path, SunCastDir, project.Name+".shd"),
				filepath.Join(project.Path, SunCastDir, project.Name+".gsk"),
			},
		}, nil
	case sweep.RouteCompliance:
		actual, notional := ComplianceNames(project.Name)
		apsPath := filepath.Join(vista, actual)
		return Artifacts{
			ResultsFile: actual,
			ResultsPath: apsPath,
			Paths:       []string{apsPath, filepath.Join(vista, notional)},
		}, nil
	default:
		return Artifacts{}, fmt.Errorf("%w: %d", sweep.ErrInvalidRoute, int(route))
	}
}

// ComplianceNames returns the actual and notional result file names used by
// compliance runs.
func ComplianceNames(projectName string) (actual, notional string) {
	actual = fmt.Sprintf("a_%s_%s.aps", complianceScheme, projectName)
	notional = fmt.Sprintf("n_%s_%s.aps", complianceScheme, projectName)
	return actual, notional
}
