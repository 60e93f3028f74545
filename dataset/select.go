package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/zalepa/roadwatch/agegroup"
	"github.com/zalepa/roadwatch/filter"
	"github.com/zalepa/roadwatch/records"
)

// Select returns the records of t that satisfy st. Each dimension is checked
// against the family's own columns; dimensions the family has no column for
// are ignored. Age is compared through agegroup in the family's vocabulary.
//
// When an age filter is active and the table has none of the family's age
// columns, nothing matches.
func Select(t *Table, st filter.State) []records.Record {
	if t.Len() == 0 {
		return nil
	}
	fam := t.Family()
	if st.AgeGroup != "" && len(fam.Age) > 0 && !t.HasAny(fam.Age...) {
		return nil
	}
	var out []records.Record
	for _, r := range t.Records {
		if Matches(fam, r, st) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record of family fam satisfies st.
func Matches(fam Family, r records.Record, st filter.State) bool {
	if !equal(r, fam.Year, st.Year) {
		return false
	}
	if !equal(r, fam.Jurisdiction, st.Jurisdiction) {
		return false
	}
	if !equal(r, fam.Region, st.Region) {
		return false
	}
	if !equal(r, fam.Method, st.DetectionMethod) {
		return false
	}
	if st.AgeGroup != "" && len(fam.Age) > 0 {
		raw, _ := r.First(fam.Age...)
		if !agegroup.Match(raw, st.AgeGroup, fam.Vocabulary) {
			return false
		}
	}
	return true
}

func equal(r records.Record, cols []string, want string) bool {
	if want == "" || len(cols) == 0 {
		return true
	}
	return r.Key(cols...) == want
}

// Page is one dashboard page.
type Page string

const (
	PageDrug     Page = "drug"
	PageCrash    Page = "crash"
	PageSeatbelt Page = "seatbelt"
)

// Pages lists every page.
var Pages = []Page{PageDrug, PageCrash, PageSeatbelt}

// ErrUnknownPage is returned by ParsePage.
var ErrUnknownPage = errors.New("unknown page")

// ParsePage validates a page name.
func ParsePage(s string) (Page, error) {
	for _, p := range Pages {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q; valid pages: drug, crash, seatbelt", ErrUnknownPage, s)
}

// Options are the values offered by a page's filter controls. "All" is not
// listed; it is the empty value of every control.
type Options struct {
	Years            []string `json:"years"`
	AgeGroups        []string `json:"ageGroups"`
	Regions          []string `json:"regions,omitempty"`
	Jurisdictions    []string `json:"jurisdictions,omitempty"`
	DetectionMethods []string `json:"detectionMethods,omitempty"`
	ViolationTypes   []string `json:"violationTypes,omitempty"`
}

// Options lists the control values of page p drawn from the loaded data.
func (s *Store) Options(p Page) Options {
	switch p {
	case PageDrug:
		pos := s.Table(PositiveDrug)
		return Options{
			Years:         years(0, pos),
			AgeGroups:     ageLabels(pos),
			Regions:       distinctSorted(pos, "LOCATION"),
			Jurisdictions: distinctSorted(pos, "JURISDICTION"),
		}
	case PageCrash:
		crash := s.Table(DrugCrash)
		return Options{
			Years:          years(s.CrashSince, crash, s.Table(SeatbeltFines), s.Table(PositiveDrug)),
			AgeGroups:      ageLabels(s.Table(SeatbeltFines), s.Table(PositiveDrug), crash),
			Regions:        distinctSorted(crash, "Stats Area"),
			ViolationTypes: []string{string(filter.Drug), string(filter.Seatbelt)},
		}
	case PageSeatbelt:
		sb := s.Table(SeatbeltFines)
		return Options{
			Years:            years(0, sb),
			AgeGroups:        ageLabels(sb),
			Jurisdictions:    distinctSorted(sb, "JURISDICTION"),
			DetectionMethods: distinctSorted(sb, "DETECTION_METHOD"),
		}
	}
	return Options{}
}

func years(since int, tables ...*Table) []string {
	var all []records.Record
	var cols []string
	for _, t := range tables {
		all = append(all, t.Records...)
		cols = append(cols, t.Family().Year...)
	}
	out := records.Distinct(all, dedupe(cols)...)
	kept := out[:0]
	for _, y := range out {
		if n, ok := records.ParseNumber(y); ok && int(n) >= since {
			kept = append(kept, y)
		}
	}
	records.SortNumeric(kept)
	return kept
}

// ageLabels canonicalizes the age cells of each table in its own vocabulary
// and returns the labels present, in vocabulary order. Unknown is omitted.
func ageLabels(tables ...*Table) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tables {
		fam := t.Family()
		present := make(map[string]bool)
		for _, r := range t.Records {
			raw, ok := r.First(fam.Age...)
			if !ok {
				continue
			}
			present[agegroup.Canonicalize(raw, fam.Vocabulary)] = true
		}
		for _, l := range fam.Vocabulary.Labels() {
			if l == agegroup.Unknown || !present[l] || seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func distinctSorted(t *Table, col string) []string {
	out := records.Distinct(t.Records, col)
	sort.Strings(out)
	return out
}

func dedupe(cols []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cols {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
