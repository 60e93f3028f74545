package chart

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/filter"
)

const (
	positiveCSV = `YEAR,JURISDICTION,LOCATION,AGE_GROUP,COUNT
2019,SA,Major Cities,18-24,12
2021,SA,Major Cities,25-34,5
2022,SA,Inner Regional,18-24,8
2023,SA,Major Cities,65+,20
2021,VIC,Major Cities,18-24,30
2021,NSW,Major Cities,25-34,40
`
	testsCSV = `YEAR,JURISDICTION,LOCATION,AGE_GROUP,COUNT
2021,SA,Major Cities,18-24,1000
2021,VIC,Major Cities,18-24,2000
2021,NSW,Major Cities,25-34,3000
2022,VIC,Major Cities,18-24,2500
`
	finesCSV = `YEAR,JURISDICTION,LOCATION,AGE_GROUP,DETECTION_METHOD,FINES
2021,SA,Major Cities,All ages,police issued,100
2021,NSW,Major Cities,All ages,police issued,500
2022,VIC,Major Cities,26-39,mobile camera,250
2022,VIC,Major Cities,40-64,fixed or mobile camera,200
2022,SA,Major Cities,All ages,mobile camera,30
`
	seatbeltCrashCSV = `Year,Stats Area,AGE_GROUP,Injury Extent
2021,Adelaide,40-64,Fatal
2022,Adelaide,17-25,Minor
`
)

// drugCrashCSV yields crash records per year in the order 2019..2023. The
// 2023 records are aged 40-64, every other record 17-25.
func drugCrashCSV(counts ...int) string {
	var b strings.Builder
	b.WriteString("Year,Stats Area,AGE,CSEF Severity\n")
	for i, n := range counts {
		year := 2019 + i
		age := "17-25"
		if year == 2023 {
			age = "40-64"
		}
		for j := 0; j < n; j++ {
			sev := "2: MI"
			switch {
			case j == 0 && year == 2019:
				sev = "4: Fatal"
			case j == 0 && year == 2021:
				sev = "1: PDO"
			}
			fmt.Fprintf(&b, "%d,Adelaide,%s,%s\n", year, age, sev)
		}
	}
	return b.String()
}

func square(x, y float64) orb.Polygon {
	return orb.Polygon{{{x, y}, {x + 1, y}, {x + 1, y + 1}, {x, y + 1}, {x, y}}}
}

func table(t *testing.T, n dataset.Name, csv string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(strings.NewReader(csv), n)
	require.NoError(t, err)
	return tbl
}

func testStore(t *testing.T) *dataset.Store {
	t.Helper()
	geo := &dataset.Geo{Areas: []dataset.Area{
		{Code: "SA", Name: "South Australia", Polygons: []orb.Polygon{square(0, 0)}, Centroid: orb.Point{0.5, 0.5}},
		{Code: "VIC", Name: "Victoria", Polygons: []orb.Polygon{square(2, 0)}, Centroid: orb.Point{2.5, 0.5}},
		{Code: "WA", Name: "Western Australia", Polygons: []orb.Polygon{square(4, 0)}, Centroid: orb.Point{4.5, 0.5}},
	}}
	return dataset.NewStore(geo,
		table(t, dataset.DrugTests, testsCSV),
		table(t, dataset.PositiveDrug, positiveCSV),
		table(t, dataset.SeatbeltFines, finesCSV),
		table(t, dataset.DrugCrash, drugCrashCSV(12, 0, 5, 8, 20)),
		table(t, dataset.SeatbeltCrash, seatbeltCrashCSV),
	)
}

type recorder struct {
	views  []View
	counts map[ID]int
}

func (r *recorder) Render(v View) error {
	if r.counts == nil {
		r.counts = make(map[ID]int)
	}
	r.views = append(r.views, v)
	r.counts[v.Chart]++
	return nil
}

func (r *recorder) reset() {
	r.views = nil
	r.counts = nil
}

type fakeTooltip struct {
	at      Anchor
	content string
	shown   bool
}

func (t *fakeTooltip) Show(at Anchor, content string) { t.at, t.content, t.shown = at, content, true }
func (t *fakeTooltip) Hide()                          { t.shown = false }

func newDashboard(t *testing.T, page dataset.Page, opts ...Option) (*Dashboard, *recorder) {
	t.Helper()
	rec := &recorder{}
	d, err := New(testStore(t), page, rec, opts...)
	require.NoError(t, err)
	return d, rec
}

func view(t *testing.T, d *Dashboard, id ID) View {
	t.Helper()
	v, ok := d.View(id)
	require.True(t, ok, "no view for %s", id)
	return v
}

func TestNewDrawsEveryChart(t *testing.T) {
	for _, p := range dataset.Pages {
		t.Run(string(p), func(t *testing.T) {
			d, rec := newDashboard(t, p)
			for _, id := range PageCharts(p) {
				assert.Equal(t, 1, rec.counts[id], id)
			}
			assert.Len(t, d.Views(), len(PageCharts(p)))
			assert.Equal(t, filter.Default(), d.State())
		})
	}
}

func TestNewUnknownChart(t *testing.T) {
	_, err := New(testStore(t), dataset.PageDrug, nil, WithCharts(DrugBar, "radar"))
	assert.ErrorIs(t, err, ErrUnknownChart)
}

func TestNewReportsRenderErrors(t *testing.T) {
	boom := errors.New("boom")
	r := RendererFunc(func(v View) error {
		if v.Chart == Donut {
			return boom
		}
		return nil
	})
	d, err := New(testStore(t), dataset.PageCrash, r)
	require.NotNil(t, d)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "donut")
	assert.ErrorIs(t, d.Control(filter.Year, "2021"), boom)
}

// Five years of crash and SA enforcement counts [12,0,5,8,20].
func TestComboScenario(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageCrash)
	v := view(t, d, Combo)

	require.False(t, v.Empty)
	assert.Equal(t, []string{"2019", "2020", "2021", "2022", "2023"}, v.Categories)
	require.Len(t, v.Series, 2)

	bars, line := v.Series[0], v.Series[1]
	assert.Equal(t, Bars, bars.Kind)
	assert.Equal(t, []float64{12, 0, 5, 8, 20}, bars.Values())
	assert.True(t, bars.Points[1].Visual.NoData)
	assert.Equal(t, "Drug Violations (SA)", bars.Name)

	assert.Equal(t, 1, line.Axis)
	assert.Equal(t, []float64{12, 0, 5, 8, 20}, line.Values())
	for i, p := range line.Points {
		assert.Equal(t, i == 1, p.Gap, p.Key)
	}
	assert.Equal(t, 20.0, v.YMax)
	assert.Equal(t, 20.0, v.Y2Max)
	assert.Equal(t, "Total Crash Incidents", v.Y2Label)
}

func TestComboAgeFilterUsesCrashVocabulary(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageCrash)

	// "18-24" is not a crash bucket, so no crash record can match it, even
	// ones whose raw text overlaps the range.
	require.NoError(t, d.Control(filter.AgeGroup, "18-24"))
	v := view(t, d, Combo)
	assert.True(t, v.Empty)
	assert.Equal(t, "No crash data available for current filters", v.Message)

	require.NoError(t, d.Control(filter.AgeGroup, "17-25"))
	v = view(t, d, Combo)
	require.False(t, v.Empty)
	assert.Equal(t, []float64{12, 0, 5, 8, 0}, v.Series[1].Values())
	assert.Equal(t, []float64{0, 0, 0, 0, 0}, v.Series[0].Values())
}

func TestComboSeatbeltRoute(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageCrash)
	require.NoError(t, d.Control(filter.ViolationType, "seatbelt"))

	v := view(t, d, Combo)
	require.False(t, v.Empty)
	assert.Equal(t, "Seatbelt Fines (SA)", v.Series[0].Name)
	assert.Equal(t, []float64{0, 0, 100, 30, 0}, v.Series[0].Values())
	assert.Equal(t, []float64{0, 0, 1, 1, 0}, v.Series[1].Values())

	donut := view(t, d, Donut)
	assert.Equal(t, []string{"Fatal", "Minor"}, donut.Categories)
}

func TestComboSelectionFiltersDonut(t *testing.T) {
	d, rec := newDashboard(t, dataset.PageCrash)
	donut := view(t, d, Donut)
	assert.Equal(t, []string{"1: PDO", "2: MI", "4: Fatal"}, donut.Categories)
	assert.Equal(t, []float64{1, 43, 1}, donut.Series[0].Values())

	rec.reset()
	require.NoError(t, d.Click(Combo, "2021"))
	assert.Equal(t, 1, rec.counts[Donut])
	assert.Equal(t, 1, rec.counts[Combo])

	donut = view(t, d, Donut)
	assert.Equal(t, "2021", donut.State.Year)
	assert.Equal(t, []float64{1, 4}, donut.Series[0].Values())
	assert.InDelta(t, 0.8, donut.Series[0].Points[1].Share, 1e-9)
	assert.Equal(t, "", d.State().Year)

	combo := view(t, d, Combo)
	assert.Equal(t, Selected, combo.Series[0].Points[2].Visual.Emphasis)
	assert.Equal(t, Dimmed, combo.Series[0].Points[0].Visual.Emphasis)
	assert.Equal(t, SelectTransition, combo.Duration)

	require.NoError(t, d.Click(Combo, "2021"))
	donut = view(t, d, Donut)
	assert.Equal(t, "", donut.State.Year)
	assert.Len(t, donut.Series[0].Points, 3)
}

func TestStackedZeroLayer(t *testing.T) {
	store := dataset.NewStore(nil, table(t, dataset.SeatbeltFines, `YEAR,JURISDICTION,DETECTION_METHOD,FINES
2021,SA,police issued,100
`))
	d, err := New(store, dataset.PageSeatbelt, nil, WithCharts(StackedBar))
	require.NoError(t, err)

	v := view(t, d, StackedBar)
	require.False(t, v.Empty)
	assert.Equal(t, []string{"2021"}, v.Categories)
	require.Len(t, v.Series, 3)

	var names []string
	var total float64
	for _, s := range v.Series {
		names = append(names, s.Name)
		require.Len(t, s.Points, 1)
		total += s.Points[0].Value
	}
	assert.Equal(t, dataset.DetectionMethods, names)
	assert.Equal(t, 100.0, total)
	assert.Equal(t, 0.0, v.Series[2].Points[0].Value)
	assert.Equal(t, 100.0, v.YMax)
}

func TestMultiLineLegendPropagation(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageSeatbelt)
	before := view(t, d, MultiLine)
	assert.Equal(t, 500.0, before.YMax)
	assert.Equal(t, []string{"2021", "2022"}, before.Categories)

	require.NoError(t, d.Click(MultiLine, "VIC"))

	ml := view(t, d, MultiLine)
	assert.Equal(t, before.YMax, ml.YMax)
	require.Len(t, ml.Series, 3)
	for _, s := range ml.Series {
		want := Dimmed
		if s.Name == "VIC" {
			want = Selected
		}
		assert.Equal(t, want, s.Visual.Emphasis, s.Name)
	}

	stacked := view(t, d, StackedBar)
	assert.Equal(t, "VIC", stacked.State.Jurisdiction)
	assert.Equal(t, []string{"2022"}, stacked.Categories)
	assert.Equal(t, 450.0, stacked.YMax)

	pie := view(t, d, Pie)
	assert.Equal(t, []string{"fixed or mobile camera", "mobile camera"}, pie.Categories)
	assert.Equal(t, []float64{200, 250}, pie.Series[0].Values())

	require.NoError(t, d.ClickBackground(MultiLine))
	assert.Len(t, view(t, d, StackedBar).Categories, 2)
}

func TestSeatbeltStats(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageSeatbelt)
	stats := view(t, d, MultiLine).Stats
	assert.Equal(t, []Stat{
		{Label: "Total Fines", Value: "1,080"},
		{Label: "Average per Year", Value: "540"},
		{Label: "Top Jurisdiction", Value: "NSW"},
	}, stats)
}

func TestPieAgeBreakdown(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageSeatbelt)
	assert.Len(t, view(t, d, Pie).Series, 1)

	require.NoError(t, d.Click(Pie, "mobile camera"))
	pie := view(t, d, Pie)
	require.Len(t, pie.Series, 2)
	ring := pie.Series[1]
	assert.Equal(t, "Age Groups: mobile camera", ring.Name)
	require.Len(t, ring.Points, 1)
	assert.Equal(t, "26-39", ring.Points[0].Key)
	assert.Equal(t, 1.0, ring.Points[0].Share)

	// Selections on the pie stay local.
	assert.Equal(t, "", d.StateFor(StackedBar).DetectionMethod)
}

func TestDrugBarAndChoropleth(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageDrug)

	bar := view(t, d, DrugBar)
	assert.Equal(t, filter.Jurisdiction, bar.Dimension)
	assert.Equal(t, []string{"NSW", "SA", "VIC"}, bar.Categories)
	assert.Equal(t, []float64{40, 45, 30}, bar.Series[0].Values())

	geo := view(t, d, Choropleth)
	assert.Equal(t, "Drug Tests by Jurisdiction (2021)", geo.Title)
	require.Len(t, geo.Shapes, 3)
	assert.Equal(t, "VIC (2021)\nTotal Tests: 2,000\nPositive Tests: 30", geo.Shapes[1].Tooltip)
	assert.True(t, geo.Shapes[2].Visual.NoData)

	panel := view(t, d, JurisdictionPanel)
	assert.Equal(t, "All Jurisdictions", panel.Title)
	assert.Equal(t, []Stat{
		{Label: "Total Tests", Value: "8,500"},
		{Label: "Positive Tests", Value: "115"},
		{Label: "Positivity Rate", Value: "1.4%"},
	}, panel.Stats)

	require.NoError(t, d.Click(Choropleth, "VIC"))

	bar = view(t, d, DrugBar)
	assert.Equal(t, filter.Year, bar.Dimension)
	assert.Equal(t, []string{"2021"}, bar.Categories)

	line := view(t, d, DrugLine)
	assert.Equal(t, 16, len(line.Categories))
	assert.Equal(t, 2000.0, line.Series[1].Points[13].Value)
	assert.Equal(t, 2500.0, line.Series[1].Points[14].Value)

	panel = view(t, d, JurisdictionPanel)
	assert.Equal(t, "VIC", panel.Title)
	assert.Equal(t, "0.7%", panel.Stats[2].Value)

	geo = view(t, d, Choropleth)
	assert.Equal(t, Selected, geo.Shapes[1].Visual.Emphasis)
	assert.Equal(t, Dimmed, geo.Shapes[0].Visual.Emphasis)
}

func TestControlInvalidatesSelections(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageDrug)

	require.NoError(t, d.Click(DrugBar, "NSW"))
	assert.Equal(t, "NSW", d.StateFor(DrugLine).Jurisdiction)

	require.NoError(t, d.Control(filter.Year, "2021"))
	assert.True(t, d.Selection(DrugBar).Active())
	assert.Equal(t, "NSW", d.StateFor(DrugLine).Jurisdiction)
	assert.Equal(t, "2021", d.StateFor(DrugLine).Year)

	require.NoError(t, d.Control(filter.Jurisdiction, "SA"))
	assert.False(t, d.Selection(DrugBar).Active())
	assert.Equal(t, "SA", d.StateFor(DrugLine).Jurisdiction)

	require.NoError(t, d.Reset())
	assert.Equal(t, filter.Default(), d.State())
	assert.Equal(t, filter.Default(), d.StateFor(DrugLine))
}

func TestClickInvalidatesOtherSelections(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageDrug)

	require.NoError(t, d.Click(DrugBar, "NSW"))
	require.NoError(t, d.Click(Choropleth, "VIC"))

	assert.False(t, d.Selection(DrugBar).Active())
	assert.Equal(t, "VIC", d.StateFor(DrugLine).Jurisdiction)
	assert.Equal(t, "VIC", d.StateFor(DrugBar).Jurisdiction)
}

func TestSelectionsFromTwoSources(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageDrug, WithCharts(DrugLine, Choropleth, DrugBar))

	require.NoError(t, d.Click(Choropleth, "VIC"))
	require.NoError(t, d.Click(DrugBar, "2021"))

	st := d.StateFor(DrugLine)
	assert.Equal(t, "VIC", st.Jurisdiction)
	assert.Equal(t, "2021", st.Year)
	assert.Equal(t, st, view(t, d, DrugLine).State)
}

func TestSourceMissingFromPage(t *testing.T) {
	d, rec := newDashboard(t, dataset.PageDrug, WithCharts(Choropleth, DrugLine))

	rec.reset()
	require.NoError(t, d.Click(Choropleth, "VIC"))
	assert.Equal(t, map[ID]int{Choropleth: 1, DrugLine: 1}, rec.counts)
	assert.Equal(t, "VIC", view(t, d, DrugLine).State.Jurisdiction)

	require.NoError(t, d.ClickBackground(Choropleth))
	assert.Equal(t, d.State(), view(t, d, DrugLine).State)
}

func TestStaleSelectionDropped(t *testing.T) {
	cases := []struct {
		name  string
		setup func(d *Dashboard) error
		undo  func(d *Dashboard) error
	}{
		{
			name:  "map toggled off",
			setup: func(d *Dashboard) error { return d.Click(Choropleth, "VIC") },
			undo:  func(d *Dashboard) error { return d.Click(Choropleth, "VIC") },
		},
		{
			name:  "control reset",
			setup: func(d *Dashboard) error { return d.Control(filter.Jurisdiction, "VIC") },
			undo:  func(d *Dashboard) error { return d.Control(filter.Jurisdiction, "All") },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, _ := newDashboard(t, dataset.PageDrug)
			require.NoError(t, tc.setup(d))
			require.Equal(t, filter.Year, view(t, d, DrugBar).Dimension)
			require.NoError(t, d.Click(DrugBar, "2021"))
			require.Equal(t, "2021", d.StateFor(DrugLine).Year)

			require.NoError(t, tc.undo(d))

			bar := view(t, d, DrugBar)
			assert.Equal(t, filter.Jurisdiction, bar.Dimension)
			assert.False(t, d.Selection(DrugBar).Active())
			assert.False(t, bar.Selection.Active())
			for _, p := range bar.Series[0].Points {
				assert.Equal(t, Neutral, p.Visual.Emphasis, p.Key)
			}
			assert.Equal(t, "", d.StateFor(DrugLine).Year)
			assert.Equal(t, "", view(t, d, DrugLine).State.Year)
		})
	}
}

func TestClickIgnoresUndrawnKeys(t *testing.T) {
	cases := []struct {
		page  dataset.Page
		chart ID
		key   string
	}{
		{dataset.PageDrug, DrugBar, "XYZ"},
		{dataset.PageDrug, Choropleth, "Atlantis"},
		{dataset.PageCrash, Combo, "1999"},
		{dataset.PageCrash, Donut, "5: Worse"},
		// Years are drawn by the multi-line chart but only legend entries
		// select.
		{dataset.PageSeatbelt, MultiLine, "2021"},
		{dataset.PageSeatbelt, Pie, "speed camera"},
	}
	for _, tc := range cases {
		t.Run(string(tc.chart), func(t *testing.T) {
			d, rec := newDashboard(t, tc.page)
			before := make(map[ID]filter.State)
			for _, id := range d.Charts() {
				before[id] = d.StateFor(id)
			}

			rec.reset()
			require.NoError(t, d.Click(tc.chart, tc.key))
			assert.False(t, d.Selection(tc.chart).Active())
			assert.Empty(t, rec.views)
			for _, id := range d.Charts() {
				assert.Equal(t, before[id], d.StateFor(id), id)
			}
		})
	}
}

func TestControlErrors(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageDrug)
	assert.ErrorIs(t, d.Control("colour", "red"), filter.ErrUnknownDimension)
	assert.ErrorIs(t, d.Click(Combo, "2021"), ErrUnknownChart)
	assert.ErrorIs(t, d.ClickBackground(Pie), ErrUnknownChart)
	assert.ErrorIs(t, d.Hover(Donut, "x"), ErrUnknownChart)

	// The panel has nothing to select.
	assert.NoError(t, d.Click(JurisdictionPanel, "VIC"))
	assert.False(t, d.Selection(JurisdictionPanel).Active())
}

func TestEmptyResult(t *testing.T) {
	d, _ := newDashboard(t, dataset.PageDrug)
	require.NoError(t, d.Control(filter.Year, "1999"))

	bar := view(t, d, DrugBar)
	assert.True(t, bar.Empty)
	assert.Equal(t, NoDataMessage, bar.Message)
	assert.Empty(t, bar.Series)
	assert.Equal(t, "Filters: Year: 1999", bar.Subtitle)
}

func TestHover(t *testing.T) {
	tip := &fakeTooltip{}
	d, _ := newDashboard(t, dataset.PageDrug, WithTooltip(tip))

	require.NoError(t, d.Hover(DrugBar, "SA"))
	assert.True(t, tip.shown)
	assert.Equal(t, Anchor{Chart: DrugBar, Key: "SA"}, tip.at)
	assert.Equal(t, "SA\nPositive Tests: 45", tip.content)

	d.Leave()
	assert.False(t, tip.shown)

	require.NoError(t, d.Hover(DrugBar, "QLD"))
	assert.False(t, tip.shown)
}

func TestYearRange(t *testing.T) {
	assert.Equal(t, []string{"2019", "2020", "2021", "2022", "2023"}, DefaultConfig().CrashYears.Years())
	assert.Empty(t, YearRange{From: 2024, To: 2023}.Years())
}

func TestBlues(t *testing.T) {
	assert.Equal(t, "#08306b", blues(1))
	assert.Equal(t, blues(0), blues(-3))
	assert.NotEqual(t, blueStops[0], blues(0))
}
