package clinic

import (
	"fmt"
	"time"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/random"
)

// FalsePositiveRate is the chance that a test the disease does not define
// still comes back positive.
const FalsePositiveRate = 0.08

const negativeText = "No significant findings."

// Simulator runs diagnostic tests against a case's hidden disease.
type Simulator struct {
	catalog *catalog.Catalog
	src     random.Source
	now     func() time.Time
}

// NewSimulator returns a Simulator drawing from src.
func NewSimulator(cat *catalog.Catalog, src random.Source) *Simulator {
	return &Simulator{catalog: cat, src: src, now: time.Now}
}

// Run charges the test to the session and records a simulated result on c.
// Unknown tests, species restrictions and insufficient funds are rejected
// before anything is charged or recorded.
func (s *Simulator) Run(state *SessionState, c *Case, testID string) (TestResult, error) {
	def, ok := s.catalog.Test(testID)
	if !ok {
		return TestResult{}, fmt.Errorf("%w %q", ErrUnknownTest, testID)
	}
	if !def.AvailableFor(c.Species) {
		return TestResult{}, fmt.Errorf("%w: %s cannot be run on a %s", ErrTestUnavailable, def.Name, c.Species)
	}
	if state.Money < def.Cost {
		return TestResult{}, fmt.Errorf("%w: %s costs $%d, clinic has $%d", ErrInsufficientFunds, def.Name, def.Cost, state.Money)
	}

	state.adjustMoney(-def.Cost)

	result := s.draw(c.Disease, def)
	c.Tests.Record(result)
	return result, nil
}

// draw performs the Bernoulli trial for one test. A disease-appropriate test
// can still miss with probability 1 - rate.
func (s *Simulator) draw(d *catalog.Disease, def *catalog.TestDefinition) TestResult {
	finding, defined := d.Finding(def.ID)

	rate := FalsePositiveRate
	if defined {
		rate = finding.Rate
	}
	positive := random.Chance(s.src, rate)

	text := negativeText
	if positive {
		text = finding.Positive
		if text == "" {
			text = def.Name + " abnormal"
		}
	}

	return TestResult{
		TestID:    def.ID,
		Positive:  positive,
		Text:      text,
		Timestamp: s.now(),
	}
}
