package cmd

import (
	"fmt"

	"fablecraft/loom/internal/analysis"
	"fablecraft/loom/internal/db"
	"fablecraft/loom/internal/manuscript"
	"fablecraft/loom/internal/version"
)

// loadEngine opens the store and rebuilds the snapshot and version manager
// the engine operates on. The CLI is the host application: the engine itself
// holds no storage references.
func loadEngine(d *db.DB) (*manuscript.Snapshot, *version.Manager, error) {
	_, snap, err := d.LoadManuscript()
	if err != nil {
		return nil, nil, err
	}

	versions, currentID, err := d.LoadVersions()
	if err != nil {
		return nil, nil, err
	}

	if len(versions) == 0 {
		mgr := version.NewManager(snap, analysis.DefaultConfig())
		if err := saveManager(d, mgr); err != nil {
			return nil, nil, err
		}
		return snap, mgr, nil
	}

	if currentID == "" {
		for _, v := range versions {
			if v.IsBase {
				currentID = v.ID
			}
		}
	}
	mgr, err := version.Restore(snap, analysis.DefaultConfig(), versions, currentID)
	if err != nil {
		return nil, nil, fmt.Errorf("restoring versions: %w", err)
	}
	return snap, mgr, nil
}

func saveManager(d *db.DB, mgr *version.Manager) error {
	return d.SaveVersions(mgr.Versions(), mgr.CurrentVersion().ID)
}
