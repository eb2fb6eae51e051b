// Package catalog holds the clinic's reference data: the diseases a patient can
// present with and the diagnostic tests the clinic can run.
package catalog

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Species identifies the kind of animal a patient is.
type Species string

const (
	Dog    Species = "Dog"
	Cat    Species = "Cat"
	Rabbit Species = "Rabbit"
)

// AllSpecies is the fixed list of species that can walk into the clinic.
var AllSpecies = []Species{Dog, Cat, Rabbit}

// Finding describes how a test reacts to a disease that defines it.
type Finding struct {
	Positive string  `json:"positive" yaml:"positive"`
	Rate     float64 `json:"rate" yaml:"rate"`
}

// Treatment is the therapy offered once a disease is diagnosed.
type Treatment struct {
	Name   string `json:"name" yaml:"name"`
	Reward int    `json:"reward" yaml:"reward"`
}

// Disease is one immutable catalog entry.
type Disease struct {
	ID        string             `json:"id" yaml:"id"`
	Name      string             `json:"name" yaml:"name"`
	Species   []Species          `json:"species" yaml:"species"`
	Symptoms  []string           `json:"symptoms" yaml:"symptoms"`
	Tests     map[string]Finding `json:"tests" yaml:"tests"`
	Treatment Treatment          `json:"treatment" yaml:"treatment"`
}

// Affects reports whether the disease is compatible with the species.
func (d *Disease) Affects(s Species) bool {
	for _, sp := range d.Species {
		if sp == s {
			return true
		}
	}
	return false
}

// Finding returns the disease-specific behaviour of a test, if any.
func (d *Disease) Finding(testID string) (Finding, bool) {
	f, ok := d.Tests[testID]
	return f, ok
}

// HasSymptom reports whether symptom belongs to the disease.
func (d *Disease) HasSymptom(symptom string) bool {
	for _, s := range d.Symptoms {
		if s == symptom {
			return true
		}
	}
	return false
}

// TestDefinition is a diagnostic test the clinic can order.
type TestDefinition struct {
	ID      string    `json:"id" yaml:"id"`
	Name    string    `json:"name" yaml:"name"`
	Cost    int       `json:"cost" yaml:"cost"`
	Species []Species `json:"species,omitempty" yaml:"species,omitempty"` // empty means every species
}

// AvailableFor reports whether the test can be run on the species.
func (t *TestDefinition) AvailableFor(s Species) bool {
	if len(t.Species) == 0 {
		return true
	}
	for _, sp := range t.Species {
		if sp == s {
			return true
		}
	}
	return false
}

// Catalog is the load-once collection of diseases and tests.
// It is never mutated after New returns.
type Catalog struct {
	diseases    []*Disease
	tests       []*TestDefinition
	diseaseByID map[string]*Disease
	testByID    map[string]*TestDefinition
}

// New validates the reference data and builds a Catalog.
func New(diseases []Disease, tests []TestDefinition) (*Catalog, error) {
	if len(diseases) == 0 {
		return nil, fmt.Errorf("catalog requires at least one disease")
	}

	c := &Catalog{
		diseaseByID: make(map[string]*Disease, len(diseases)),
		testByID:    make(map[string]*TestDefinition, len(tests)),
	}

	for i := range tests {
		t := tests[i]
		t.Species = slices.Clone(t.Species)
		if t.ID == "" {
			return nil, fmt.Errorf("test %d: id is required", i)
		}
		if _, dup := c.testByID[t.ID]; dup {
			return nil, fmt.Errorf("duplicate test id %q", t.ID)
		}
		if t.Cost < 0 {
			return nil, fmt.Errorf("test %q: cost must not be negative", t.ID)
		}
		if t.Name == "" {
			t.Name = t.ID
		}
		c.testByID[t.ID] = &t
		c.tests = append(c.tests, &t)
	}

	for i := range diseases {
		d := diseases[i]
		d.Species = slices.Clone(d.Species)
		d.Symptoms = slices.Clone(d.Symptoms)
		d.Tests = maps.Clone(d.Tests)
		if d.ID == "" {
			return nil, fmt.Errorf("disease %d: id is required", i)
		}
		if _, dup := c.diseaseByID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate disease id %q", d.ID)
		}
		if d.Treatment.Reward < 0 {
			return nil, fmt.Errorf("disease %q: treatment reward must not be negative", d.ID)
		}
		for testID, f := range d.Tests {
			if _, ok := c.testByID[testID]; !ok {
				return nil, fmt.Errorf("disease %q: unknown test %q", d.ID, testID)
			}
			if f.Rate < 0 || f.Rate > 1 {
				return nil, fmt.Errorf("disease %q: test %q rate %.2f outside [0,1]", d.ID, testID, f.Rate)
			}
		}
		if d.Name == "" {
			d.Name = d.ID
		}
		c.diseaseByID[d.ID] = &d
		c.diseases = append(c.diseases, &d)
	}

	return c, nil
}

// MustNew is New for static data that is known to be valid.
func MustNew(diseases []Disease, tests []TestDefinition) *Catalog {
	c, err := New(diseases, tests)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}

// Diseases returns every disease in catalog order.
func (c *Catalog) Diseases() []*Disease {
	out := make([]*Disease, len(c.diseases))
	copy(out, c.diseases)
	return out
}

// Tests returns every test definition in catalog order.
func (c *Catalog) Tests() []*TestDefinition {
	out := make([]*TestDefinition, len(c.tests))
	copy(out, c.tests)
	return out
}

// Disease looks a disease up by id.
func (c *Catalog) Disease(id string) (*Disease, bool) {
	d, ok := c.diseaseByID[id]
	return d, ok
}

// Test looks a test definition up by id.
func (c *Catalog) Test(id string) (*TestDefinition, bool) {
	t, ok := c.testByID[id]
	return t, ok
}

// DiseasesFor returns the diseases compatible with the species, in catalog order.
func (c *Catalog) DiseasesFor(s Species) []*Disease {
	var out []*Disease
	for _, d := range c.diseases {
		if d.Affects(s) {
			out = append(out, d)
		}
	}
	return out
}

// Species returns the distinct species supported by at least one disease, sorted.
func (c *Catalog) Species() []Species {
	seen := make(map[Species]bool)
	for _, d := range c.diseases {
		for _, s := range d.Species {
			seen[s] = true
		}
	}
	out := make([]Species, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
