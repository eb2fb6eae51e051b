package catalog

// Test ids of the built-in catalog.
const (
	TestBlood = "blood"
	TestStool = "stool"
	TestSkin  = "skin"
	TestXRay  = "xray"
	TestFlea  = "flea"
	TestUrine = "urine"
)

// DefaultTests returns the clinic's standard test menu.
func DefaultTests() []TestDefinition {
	return []TestDefinition{
		{ID: TestBlood, Name: "Blood Test", Cost: 20},
		{ID: TestStool, Name: "Stool Test", Cost: 15},
		{ID: TestSkin, Name: "Skin Scrape", Cost: 12},
		{ID: TestXRay, Name: "X-Ray", Cost: 30},
		{ID: TestFlea, Name: "Flea Check", Cost: 5},
		{ID: TestUrine, Name: "Urine Analysis", Cost: 18, Species: []Species{Dog, Cat}},
	}
}

// DefaultDiseases returns the clinic's standard disease list.
func DefaultDiseases() []Disease {
	return []Disease{
		{
			ID:       "parvo",
			Name:     "Parvovirus",
			Species:  []Species{Dog},
			Symptoms: []string{"Vomiting", "Bloody diarrhea", "Lethargy", "Loss of appetite", "Dehydration"},
			Tests: map[string]Finding{
				TestStool: {Positive: "Parvo antigen detected", Rate: 0.9},
				TestBlood: {Positive: "Low white blood cells", Rate: 0.7},
				TestXRay:  {Positive: "Dilated intestines", Rate: 0.6},
			},
			Treatment: Treatment{Name: "IV fluids + Antiemetic + Isolation", Reward: 80},
		},
		{
			ID:       "mange",
			Name:     "Mange (mites)",
			Species:  []Species{Dog, Cat},
			Symptoms: []string{"Severe itching", "Hair loss", "Red skin", "Scabs"},
			Tests: map[string]Finding{
				TestSkin: {Positive: "Mites observed on scraping", Rate: 0.85},
				TestFlea: {Positive: "No fleas found", Rate: 0.6},
			},
			Treatment: Treatment{Name: "Topical acaricide + medicated bath", Reward: 40},
		},
		{
			ID:       "flea_allergy",
			Name:     "Flea Allergy Dermatitis",
			Species:  []Species{Dog, Cat},
			Symptoms: []string{"Itching", "Bite marks", "Hair loss", "Red bumps"},
			Tests: map[string]Finding{
				TestFlea: {Positive: "Fleas or flea dirt present", Rate: 0.9},
				TestSkin: {Positive: "Secondary bacterial infection", Rate: 0.4},
			},
			Treatment: Treatment{Name: "Flea control + anti inflammation", Reward: 35},
		},
		{
			ID:       "uti",
			Name:     "Urinary Tract Infection",
			Species:  []Species{Dog, Cat},
			Symptoms: []string{"Straining to urinate", "Frequent urination", "Blood in urine", "Licking genitals"},
			Tests: map[string]Finding{
				TestUrine: {Positive: "Bacteria and blood in urine", Rate: 0.9},
				TestBlood: {Positive: "Mildly raised white cells", Rate: 0.5},
			},
			Treatment: Treatment{Name: "Antibiotics for UTI", Reward: 30},
		},
		{
			ID:       "kennel_cough",
			Name:     "Kennel Cough",
			Species:  []Species{Dog},
			Symptoms: []string{"Dry hacking cough", "Gagging", "Low energy", "Mild fever"},
			Tests: map[string]Finding{
				TestXRay:  {Positive: "Bronchial pattern", Rate: 0.5},
				TestBlood: {Positive: "Slight inflammation markers", Rate: 0.4},
			},
			Treatment: Treatment{Name: "Cough suppressant + rest", Reward: 25},
		},
		{
			ID:       "diabetes",
			Name:     "Diabetes Mellitus",
			Species:  []Species{Dog, Cat},
			Symptoms: []string{"Increased thirst", "Increased urination", "Weight loss", "Increased appetite"},
			Tests: map[string]Finding{
				TestBlood: {Positive: "High blood glucose", Rate: 0.95},
				TestUrine: {Positive: "Glucose in urine", Rate: 0.9},
			},
			Treatment: Treatment{Name: "Insulin + diet management", Reward: 70},
		},
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return MustNew(DefaultDiseases(), DefaultTests())
}
