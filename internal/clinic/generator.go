package clinic

import (
	"time"

	"github.com/google/uuid"

	"github.com/EcliqseX/vetsim/internal/catalog"
	"github.com/EcliqseX/vetsim/internal/random"
)

// Case generation parameters.
const (
	minTrueSymptoms = 2
	maxTrueSymptoms = 3
	maxNoise        = 2
	noiseChance     = 0.4
)

var (
	ownerNames = []string{"Alex", "Jamie", "Taylor", "Jordan", "Morgan", "Casey", "Riley", "Sam", "Charlie", "Dana"}
	petNames   = []string{"Buddy", "Mittens", "Nibbles", "Coco", "Rex", "Luna", "Bella", "Ollie", "Simba", "Daisy"}
)

// Generator builds patient cases from a catalog.
type Generator struct {
	catalog *catalog.Catalog
	src     random.Source
	now     func() time.Time
	newID   func() string
}

// NewGenerator returns a Generator drawing from src.
func NewGenerator(cat *catalog.Catalog, src random.Source) *Generator {
	return &Generator{
		catalog: cat,
		src:     src,
		now:     time.Now,
		newID:   newCaseID,
	}
}

func newCaseID() string {
	return "case-" + uuid.NewString()
}

// Generate returns a fully formed case ready for the waiting queue.
func (g *Generator) Generate() *Case {
	species := random.Pick(g.src, catalog.AllSpecies)

	candidates := g.catalog.DiseasesFor(species)
	if len(candidates) == 0 {
		// No disease supports the species: any disease will do.
		candidates = g.catalog.Diseases()
	}
	disease := random.Pick(g.src, candidates)
	observed := g.observedSymptoms(disease)

	c := &Case{
		ID:               g.newID(),
		Species:          species,
		Disease:          disease,
		ObservedSymptoms: observed,
		ArrivedAt:        g.now(),
	}
	c.Owner = random.Pick(g.src, ownerNames)
	c.PetName = random.Pick(g.src, petNames)
	return c
}

// observedSymptoms mixes 2-3 true symptoms with occasional noise borrowed
// from other diseases, then shuffles away any ordering cue.
func (g *Generator) observedSymptoms(d *catalog.Disease) []string {
	count := random.IntRange(g.src, minTrueSymptoms, maxTrueSymptoms)
	if count > len(d.Symptoms) {
		count = len(d.Symptoms)
	}
	trueSymptoms := random.Shuffle(g.src, d.Symptoms)[:count]

	observed := append([]string(nil), trueSymptoms...)
	if random.Chance(g.src, noiseChance) {
		n := random.IntRange(g.src, 0, maxNoise)
		pool := random.Shuffle(g.src, g.noisePool(d, trueSymptoms))
		if n > len(pool) {
			n = len(pool)
		}
		observed = append(observed, pool[:n]...)
	}

	return random.Shuffle(g.src, observed)
}

// noisePool is the de-duplicated union of every other disease's symptoms,
// minus the symptoms already chosen as true.
func (g *Generator) noisePool(d *catalog.Disease, chosen []string) []string {
	seen := make(map[string]bool, len(chosen))
	for _, s := range chosen {
		seen[s] = true
	}

	var pool []string
	for _, other := range g.catalog.Diseases() {
		if other.ID == d.ID {
			continue
		}
		for _, s := range other.Symptoms {
			if seen[s] {
				continue
			}
			seen[s] = true
			pool = append(pool, s)
		}
	}
	return pool
}
