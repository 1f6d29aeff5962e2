// Package seed populates a store with people, parent/child links and
// marriages described in a YAML fixture.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"famgraph/backend/internal/graph"
	"famgraph/backend/internal/model"
)

//go:embed fixtures/demo.yaml
var demoFixture []byte

// Fixture is the YAML document layout
type Fixture struct {
	People      []PersonSpec      `yaml:"people"`
	ParentChild []ParentChildSpec `yaml:"parent_child"`
	Marriages   []MarriageSpec    `yaml:"marriages"`
}

// PersonSpec describes one person. ID may be empty, in which case it is
// derived from the name.
type PersonSpec struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	Gender      string           `yaml:"gender"`
	DateOfBirth string           `yaml:"date_of_birth"`
	Attributes  graph.Attributes `yaml:"attributes"`
}

// ParentChildSpec links two people by business id
type ParentChildSpec struct {
	Parent string `yaml:"parent"`
	Child  string `yaml:"child"`
}

// MarriageSpec describes a dated marriage and its participants
type MarriageSpec struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	StartDate    string   `yaml:"start_date"`
	EndDate      string   `yaml:"end_date"`
	Participants []string `yaml:"participants"`
}

// Summary counts what a Load created
type Summary struct {
	People      int `json:"people"`
	ParentChild int `json:"parent_child"`
	Marriages   int `json:"marriages"`
}

// Demo returns the embedded demo fixture
func Demo() (*Fixture, error) {
	return Parse(demoFixture)
}

// Parse decodes a YAML fixture
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed fixture: %w", err)
	}
	return &f, nil
}

// ReadFile loads a fixture from disk, or the demo fixture when path is empty
func ReadFile(path string) (*Fixture, error) {
	if path == "" {
		return Demo()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Load creates every entity of the fixture through the mapper. It stops at
// the first error; entities created before it stay in the store.
func Load(m *model.Mapper, f *Fixture, log *zap.Logger) (Summary, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var summary Summary
	people := make(map[string]*model.Person, len(f.People))

	for _, spec := range f.People {
		id := spec.ID
		if id == "" {
			id = model.CreateID(spec.Name)
		}
		attrs := model.PersonAttributes(spec.DateOfBirth, spec.Gender).Merge(spec.Attributes)
		person, err := m.People().Create(id, spec.Name, attrs)
		if err != nil {
			return summary, fmt.Errorf("failed to create person %q: %w", id, err)
		}
		people[id] = person
		summary.People++
	}

	lookup := func(id string) (*model.Person, error) {
		if p, ok := people[id]; ok {
			return p, nil
		}
		return m.People().ByID(id)
	}

	for _, spec := range f.ParentChild {
		parent, err := lookup(spec.Parent)
		if err != nil {
			return summary, fmt.Errorf("parent %q: %w", spec.Parent, err)
		}
		child, err := lookup(spec.Child)
		if err != nil {
			return summary, fmt.Errorf("child %q: %w", spec.Child, err)
		}
		if _, err := parent.AddChild(child); err != nil {
			return summary, fmt.Errorf("failed to relate %q -> %q: %w", spec.Parent, spec.Child, err)
		}
		summary.ParentChild++
	}

	for _, spec := range f.Marriages {
		participants := make([]*model.Person, 0, len(spec.Participants))
		for _, pid := range spec.Participants {
			person, err := lookup(pid)
			if err != nil {
				return summary, fmt.Errorf("participant %q: %w", pid, err)
			}
			participants = append(participants, person)
		}
		attrs := model.MarriageAttributes(spec.StartDate, spec.EndDate)
		if _, err := m.CreateMarriage(spec.ID, spec.Name, attrs, participants...); err != nil {
			return summary, fmt.Errorf("failed to create marriage %q: %w", spec.ID, err)
		}
		summary.Marriages++
	}

	log.Info("Seed data loaded",
		zap.Int("people", summary.People),
		zap.Int("parent_child", summary.ParentChild),
		zap.Int("marriages", summary.Marriages),
	)
	return summary, nil
}
