// Package dataset loads the five road-safety tables and the jurisdiction
// boundaries, routes each chart family to the tables it reads, and filters
// their records against a filter.State.
package dataset

import "github.com/zalepa/roadwatch/agegroup"

// Name identifies one dataset family.
type Name string

const (
	DrugTests     Name = "drug-tests"
	PositiveDrug  Name = "positive-drug"
	SeatbeltFines Name = "seatbelt-fines"
	DrugCrash     Name = "drug-crash"
	SeatbeltCrash Name = "seatbelt-crash"
)

// Names lists every family in load order.
var Names = []Name{DrugTests, PositiveDrug, SeatbeltFines, DrugCrash, SeatbeltCrash}

// Family describes where a dataset family keeps each filterable attribute.
// Column lists are tried in order; the first non-empty cell wins. A nil list
// means the family has no such attribute and ignores that filter dimension.
type Family struct {
	Name         Name
	Year         []string
	Age          []string
	Vocabulary   agegroup.Vocabulary
	Region       []string
	Jurisdiction []string
	Method       []string
	// Value is the numeric column summed by charts. Empty means the family
	// is counted record by record.
	Value    string
	Severity string
}

var crashRegion = []string{"Stats Area", "LOCATION", "Region"}

var families = map[Name]Family{
	DrugTests: {
		Name:         DrugTests,
		Year:         []string{"YEAR"},
		Age:          []string{"AGE_GROUP"},
		Vocabulary:   agegroup.Dropdown,
		Region:       []string{"LOCATION"},
		Jurisdiction: []string{"JURISDICTION"},
		Value:        "COUNT",
	},
	PositiveDrug: {
		Name:         PositiveDrug,
		Year:         []string{"YEAR"},
		Age:          []string{"AGE_GROUP"},
		Vocabulary:   agegroup.Dropdown,
		Region:       []string{"LOCATION"},
		Jurisdiction: []string{"JURISDICTION"},
		Value:        "COUNT",
	},
	SeatbeltFines: {
		Name:         SeatbeltFines,
		Year:         []string{"YEAR"},
		Age:          []string{"AGE_GROUP"},
		Vocabulary:   agegroup.Dropdown,
		Region:       []string{"LOCATION"},
		Jurisdiction: []string{"JURISDICTION"},
		Method:       []string{"DETECTION_METHOD"},
		Value:        "FINES",
	},
	DrugCrash: {
		Name:       DrugCrash,
		Year:       []string{"Year", "YEAR"},
		Age:        []string{"AGE_GROUP", "Age", "age", "AGE"},
		Vocabulary: agegroup.CrashDerived,
		Region:     crashRegion,
		Severity:   "CSEF Severity",
	},
	SeatbeltCrash: {
		Name:       SeatbeltCrash,
		Year:       []string{"Year", "YEAR"},
		Age:        []string{"AGE_GROUP"},
		Vocabulary: agegroup.CrashDerived,
		Region:     crashRegion,
		Severity:   "Injury Extent",
	},
}

// Describe returns the descriptor of family n. Unknown names get a zero
// Family that constrains nothing.
func Describe(n Name) Family {
	f, ok := families[n]
	if !ok {
		return Family{Name: n}
	}
	return f
}

// Severity order used by the crash donut.
var SeverityOrder = []string{"1: PDO", "2: MI", "3: SI", "4: Fatal"}

// Detection methods of the seatbelt fines table, in stacking order.
var DetectionMethods = []string{"police issued", "fixed or mobile camera", "mobile camera"}
