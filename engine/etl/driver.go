package etl

import (
	"context"
	"fmt"
	"os"
)

// StageSpec is one entry in the Pipeline Driver's ordered stage list
// (spec §4.7). Run executes the stage and is only invoked when the
// driver decides the stage must run; Artefacts lists every output file the
// driver must delete alongside the summary when forcing a re-run from (or
// after) this stage.
type StageSpec struct {
	Name        string
	SummaryPath string
	Artefacts   []string
	Run         func(ctx context.Context) (Summary, error)
}

// Driver resolves stage dependencies by list order, skips stages whose
// summary already exists unless forced, and invokes stages in order
// (spec §4.7).
type Driver struct {
	Stages []StageSpec
}

// Execute runs the pipeline. forceFrom, if non-empty, must name a stage in
// Stages; every stage at or after it has its summary and declared
// artefacts deleted before any stage runs (spec §4.7 step 1), and execution
// then proceeds through all stages in order, skipping any whose summary is
// still present (spec §4.7 step 2).
func (d Driver) Execute(ctx context.Context, forceFrom string) error {
	if forceFrom != "" {
		forceIdx := -1
		for i, s := range d.Stages {
			if s.Name == forceFrom {
				forceIdx = i
				break
			}
		}
		if forceIdx == -1 {
			return fmt.Errorf("etl: driver: unknown force-from stage %q", forceFrom)
		}
		for _, s := range d.Stages[forceIdx:] {
			if err := removeArtefacts(s); err != nil {
				return err
			}
		}
	}

	for _, s := range d.Stages {
		if Exists(s.SummaryPath) {
			continue
		}
		if _, err := s.Run(ctx); err != nil {
			// No summary is written on failure (Stage.Run already
			// guarantees this), so a subsequent invocation resumes here.
			return fmt.Errorf("etl: driver: stage %s: %w", s.Name, err)
		}
	}
	return nil
}

func removeArtefacts(s StageSpec) error {
	if err := os.Remove(s.SummaryPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("etl: driver: remove summary %s: %w", s.SummaryPath, err)
	}
	for _, a := range s.Artefacts {
		if err := os.Remove(a); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("etl: driver: remove artefact %s: %w", a, err)
		}
	}
	return nil
}
