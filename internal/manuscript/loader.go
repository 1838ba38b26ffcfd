package manuscript

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML shape of a manuscript
type File struct {
	Title      string       `yaml:"title"`
	Author     string       `yaml:"author,omitempty"`
	Chapters   []*Chapter   `yaml:"chapters"`
	Characters []*Character `yaml:"characters,omitempty"`
	Locations  []*Location  `yaml:"locations,omitempty"`
}

// LoadFile parses a manuscript YAML file into a validated Snapshot
func LoadFile(path string) (*File, *Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading manuscript: %w", err)
	}
	return parseManuscript(data)
}

func parseManuscript(data []byte) (*File, *Snapshot, error) {
	var mf File
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, nil, fmt.Errorf("parsing manuscript: %w", err)
	}
	for i, ch := range mf.Chapters {
		if ch.ID == "" {
			return nil, nil, fmt.Errorf("parsing manuscript: chapter %d has no id", i)
		}
	}

	snap := NewSnapshot(mf.Chapters, mf.Characters, mf.Locations)
	if err := snap.Validate(); err != nil {
		return nil, nil, err
	}
	return &mf, snap, nil
}
