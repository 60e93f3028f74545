package chart

import (
	"sort"
	"strconv"
	"strings"

	"github.com/zalepa/roadwatch/dataset"
	"github.com/zalepa/roadwatch/filter"
	"github.com/zalepa/roadwatch/records"
)

// YearRange is an inclusive span of years used for fixed time axes.
type YearRange struct {
	From int `yaml:"from" json:"from"`
	To   int `yaml:"to" json:"to"`
}

// Years lists the range as axis keys.
func (r YearRange) Years() []string {
	var out []string
	for y := r.From; y <= r.To; y++ {
		out = append(out, strconv.Itoa(y))
	}
	return out
}

// Config tunes the chart views.
type Config struct {
	// DrugYears is the fixed axis of the drug line chart.
	DrugYears YearRange `yaml:"drug_years"`
	// CrashYears is the fixed axis of the combo chart.
	CrashYears YearRange `yaml:"crash_years"`
	// ComboJurisdiction restricts the combo chart's enforcement bars to the
	// jurisdiction the crash data covers.
	ComboJurisdiction string `yaml:"combo_jurisdiction"`
}

// DefaultConfig matches the published datasets.
func DefaultConfig() Config {
	return Config{
		DrugYears:         YearRange{From: 2008, To: 2023},
		CrashYears:        YearRange{From: 2019, To: 2023},
		ComboJurisdiction: "SA",
	}
}

// builder turns data and state into views.
type builder struct {
	store *dataset.Store
	cfg   Config
}

// dimension returns what a click on chart id selects given the state it
// draws with.
func dimension(id ID, st filter.State) filter.Dimension {
	switch id {
	case DrugBar:
		if st.Jurisdiction != "" {
			return filter.Year
		}
		return filter.Jurisdiction
	case DrugLine, Combo:
		return filter.Year
	case Choropleth, MultiLine:
		return filter.Jurisdiction
	case Donut:
		return filter.Severity
	case Pie:
		return filter.DetectionMethod
	}
	return ""
}

func (b builder) build(id ID, st filter.State, sel Selection) View {
	v := View{
		Chart:     id,
		State:     st,
		Subtitle:  "Filters: " + st.Describe(),
		Dimension: dimension(id, st),
		Selection: sel,
		Duration:  GrowTransition,
	}
	if sel.Active() {
		v.Duration = SelectTransition
	}
	switch id {
	case DrugBar:
		return b.drugBar(v, st, sel)
	case DrugLine:
		return b.drugLine(v, st, sel)
	case Choropleth:
		return b.choropleth(v, st, sel)
	case JurisdictionPanel:
		return b.panel(v, st)
	case Combo:
		return b.combo(v, st, sel)
	case Donut:
		return b.donut(v, st, sel)
	case StackedBar:
		return b.stacked(v, st)
	case MultiLine:
		return b.multiLine(v, st, sel)
	case Pie:
		return b.pie(v, st, sel)
	}
	return empty(v, NoDataMessage)
}

func empty(v View, msg string) View {
	v.Empty = true
	v.Message = msg
	v.Series = nil
	v.Shapes = nil
	return v
}

func tooltip(title string, lines ...string) string {
	return strings.Join(append([]string{title}, lines...), "\n")
}

func kv(label string, v float64) string { return label + ": " + records.Comma(v) }

func (b builder) drugBar(v View, st filter.State, sel Selection) View {
	v.Kind = KindBar
	v.Title = "Positive Drug Tests"
	v.YLabel = "Total Positive Drug Tests"

	t := b.store.Table(dataset.PositiveDrug)
	fam := t.Family()
	key := records.Column(fam.Jurisdiction...)
	v.XLabel = "Jurisdiction"
	if v.Dimension == filter.Year {
		key = records.Column(fam.Year...)
		v.XLabel = "Year"
	}
	g := records.GroupBy(dataset.Select(t, st), key, records.Sum(fam.Value))
	if len(g.Keys) == 0 {
		return empty(v, NoDataMessage)
	}
	if v.Dimension == filter.Year {
		records.SortNumeric(g.Keys)
	} else {
		records.SortLex(g.Keys)
	}

	v.Categories = g.Keys
	v.YMax = records.ScaleMax(g.Max())
	s := Series{Name: "Positive Tests", Kind: Bars, Color: barPalette.Base}
	for _, k := range g.Keys {
		val := g.Get(k)
		s.Points = append(s.Points, Point{
			Key:     k,
			Value:   val,
			Visual:  Project(Element{Key: k, Dimension: v.Dimension, Value: val, Palette: barPalette}, sel, st),
			Tooltip: tooltip(k, kv("Positive Tests", val)),
		})
	}
	v.Series = []Series{s}
	return v
}

func (b builder) drugLine(v View, st filter.State, sel Selection) View {
	v.Kind = KindLine
	v.Title = "Drug Tests by Year"
	v.XLabel = "Year"
	v.YLabel = "Number of Tests"

	tests := b.store.Table(dataset.DrugTests)
	pos := b.store.Table(dataset.PositiveDrug)
	tRecs, pRecs := dataset.Select(tests, st), dataset.Select(pos, st)
	if len(tRecs) == 0 && len(pRecs) == 0 {
		return empty(v, NoDataMessage)
	}
	tf, pf := tests.Family(), pos.Family()
	gt := records.GroupBy(tRecs, records.Column(tf.Year...), records.Sum(tf.Value))
	gp := records.GroupBy(pRecs, records.Column(pf.Year...), records.Sum(pf.Value))

	years := b.cfg.DrugYears.Years()
	v.Categories = years
	total := Series{Name: "Total Tests", Kind: Line, Color: markerPalette.Base}
	positive := Series{Name: "Positive Tests", Kind: Area, Color: "#ff7f0e"}
	var maxVal float64
	for _, y := range years {
		tv, pv := gt.Get(y), gp.Get(y)
		maxVal = max(maxVal, tv, pv)
		tip := tooltip("Year "+y, kv("Total Tests", tv), kv("Positive Tests", pv))
		total.Points = append(total.Points, Point{
			Key: y, Value: tv, Tooltip: tip,
			Visual: Project(Element{Key: y, Dimension: filter.Year, Value: tv, Palette: markerPalette}, sel, st),
		})
		positive.Points = append(positive.Points, Point{
			Key: y, Value: pv, Tooltip: tip,
			Visual: Project(Element{Key: y, Dimension: filter.Year, Value: pv, Palette: Palette{Base: "#ff7f0e", Muted: "#ffbf86"}}, sel, st),
		})
	}
	v.YMax = records.ScaleMax(maxVal)
	v.Series = []Series{positive, total}
	return v
}

func (b builder) choropleth(v View, st filter.State, sel Selection) View {
	v.Kind = KindChoropleth
	geo := b.store.Geo
	if geo == nil || len(geo.Areas) == 0 {
		v.Title = "Drug Tests by Jurisdiction"
		return empty(v, "No boundary data available")
	}

	tests := b.store.Table(dataset.DrugTests)
	pos := b.store.Table(dataset.PositiveDrug)
	tf, pf := tests.Family(), pos.Family()

	// The map always shows every jurisdiction for a single year: the filtered
	// year, or the earliest year on record.
	base := st.Without(filter.Jurisdiction)
	year := st.Year
	if year == "" {
		years := records.Distinct(tests.Records, tf.Year...)
		records.SortNumeric(years)
		if len(years) > 0 {
			year = years[0]
		}
	}
	base = base.With(filter.Year, year)
	v.Title = "Drug Tests by Jurisdiction (" + year + ")"

	totals := records.GroupBy(dataset.Select(tests, base), records.Column(tf.Jurisdiction...), records.Sum(tf.Value))
	positives := records.GroupBy(dataset.Select(pos, base), records.Column(pf.Jurisdiction...), records.Sum(pf.Value))
	scale := records.ScaleMax(totals.Max())

	for _, a := range geo.Areas {
		val := totals.Get(a.Code)
		fill := noDataFill
		if val > 0 {
			fill = blues(val / scale)
		}
		shown := val
		if p := positives.Get(a.Code); shown == 0 && p > 0 {
			shown = p
		}
		v.Shapes = append(v.Shapes, Shape{
			Key:      a.Code,
			Label:    a.Code,
			Value:    val,
			Polygons: a.Polygons,
			Centroid: a.Centroid,
			Visual:   Project(Element{Key: a.Code, Dimension: filter.Jurisdiction, Value: val, Palette: Palette{Base: fill, Muted: fill}}, sel, st),
			Tooltip:  tooltip(a.Code+" ("+year+")", kv("Total Tests", shown), kv("Positive Tests", positives.Get(a.Code))),
		})
		v.Categories = append(v.Categories, a.Code)
	}
	v.YMax = scale
	return v
}

func (b builder) panel(v View, st filter.State) View {
	v.Kind = KindPanel
	v.Title = "All Jurisdictions"
	if st.Jurisdiction != "" {
		v.Title = st.Jurisdiction
		v.Subtitle = dataset.JurisdictionName(st.Jurisdiction) + " | " + v.Subtitle
	}
	tests := b.store.Table(dataset.DrugTests)
	pos := b.store.Table(dataset.PositiveDrug)
	total := records.Sum(tests.Family().Value)(dataset.Select(tests, st))
	positive := records.Sum(pos.Family().Value)(dataset.Select(pos, st))
	rate := "N/A"
	if total > 0 {
		rate = records.Percent(positive / total)
	}
	v.Stats = []Stat{
		{Label: "Total Tests", Value: records.Comma(total)},
		{Label: "Positive Tests", Value: records.Comma(positive)},
		{Label: "Positivity Rate", Value: rate},
	}
	return v
}

func (b builder) combo(v View, st filter.State, sel Selection) View {
	v.Kind = KindCombo
	route := dataset.RouteFor(st.Violation)
	enf := b.store.Table(route.Enforcement)
	crash := b.store.Table(route.Crash)
	ef, cf := enf.Family(), crash.Family()

	juris := b.cfg.ComboJurisdiction
	barLabel := "Drug Violations (" + juris + ")"
	if st.Violation == filter.Seatbelt {
		barLabel = "Seatbelt Fines (" + juris + ")"
	}
	v.Title = barLabel + " vs Crash Incidents"
	v.XLabel = "Year"
	v.YLabel = barLabel
	v.Y2Label = "Total Crash Incidents"

	enfState := st
	if juris != "" {
		enfState = st.With(filter.Jurisdiction, juris)
	}
	fines := records.GroupBy(dataset.Select(enf, enfState), records.Column(ef.Year...), records.Sum(ef.Value))
	crashes := records.GroupBy(dataset.Select(crash, st.Without(filter.Jurisdiction)), records.Column(cf.Year...), records.Count())

	years := b.cfg.CrashYears.Years()
	var totalCrashes, maxFines, maxCrashes float64
	for _, y := range years {
		totalCrashes += crashes.Get(y)
		maxFines = max(maxFines, fines.Get(y))
		maxCrashes = max(maxCrashes, crashes.Get(y))
	}
	if totalCrashes == 0 {
		return empty(v, "No crash data available for current filters")
	}

	v.Categories = years
	v.YMax = records.ScaleMax(maxFines)
	v.Y2Max = records.ScaleMax(maxCrashes)
	bars := Series{Name: barLabel, Kind: Bars, Color: barPalette.Base}
	line := Series{Name: "Total Crash Incidents", Kind: Line, Color: markerPalette.Base, Axis: 1}
	for _, y := range years {
		f, c := fines.Get(y), crashes.Get(y)
		tip := tooltip("Year "+y, kv(strings.TrimSuffix(barLabel, " ("+juris+")"), f), kv("Total Crash Incidents", c))
		bars.Points = append(bars.Points, Point{
			Key: y, Value: f, Tooltip: tip,
			Visual: Project(Element{Key: y, Dimension: filter.Year, Value: f, Palette: barPalette}, sel, st),
		})
		line.Points = append(line.Points, Point{
			Key: y, Value: c, Tooltip: tip, Gap: c == 0,
			Visual: Project(Element{Key: y, Dimension: filter.Year, Value: c, Palette: markerPalette}, sel, st),
		})
	}
	v.Series = []Series{bars, line}
	return v
}

func (b builder) donut(v View, st filter.State, sel Selection) View {
	v.Kind = KindDonut
	v.Title = "Crash Severity"
	t := b.store.Table(dataset.RouteFor(st.Violation).Crash)
	fam := t.Family()
	severity := func(r records.Record) string {
		if s := r.Key(fam.Severity); s != "" {
			return s
		}
		return "Unknown"
	}
	g := records.GroupBy(dataset.Select(t, st.Without(filter.Jurisdiction)), severity, records.Count())
	if len(g.Keys) == 0 {
		return empty(v, NoDataMessage)
	}
	records.SortByOrder(g.Keys, dataset.SeverityOrder)

	colors := newOrdinal(severityDomain, severityRange)
	total := g.Total()
	s := Series{Name: "Severity", Kind: Slices}
	for _, k := range g.Keys {
		val := g.Get(k)
		c := colors.color(k)
		s.Points = append(s.Points, Point{
			Key: k, Value: val, Share: val / total,
			Visual:  Project(Element{Key: k, Dimension: filter.Severity, Value: val, Palette: Palette{Base: c, Muted: c}}, sel, st),
			Tooltip: tooltip(k, kv("Count", val), "Percentage: "+records.Percent(val/total)),
		})
	}
	v.Categories = g.Keys
	v.Series = []Series{s}
	return v
}

func (b builder) stacked(v View, st filter.State) View {
	v.Kind = KindStacked
	v.Title = "Seatbelt Fines by Year and Detection Method"
	v.XLabel = "Year"
	v.YLabel = "Fines"
	t := b.store.Table(dataset.SeatbeltFines)
	fam := t.Family()
	recs := dataset.Select(t, st)
	if len(recs) == 0 {
		return empty(v, NoDataMessage)
	}
	n := records.GroupBy2(recs, records.Column(fam.Year...), records.Column(fam.Method...), records.Sum(fam.Value), dataset.DetectionMethods...)
	records.SortNumeric(n.Primary)

	var top float64
	for _, y := range n.Primary {
		top = max(top, n.Total(y))
	}
	v.Categories = n.Primary
	v.YMax = records.ScaleMax(top)
	for i, m := range n.Secondary {
		c := lookupColor(methodColors, strings.ToLower(m), category10[i%len(category10)])
		s := Series{Name: m, Kind: Layer, Color: c}
		for _, y := range n.Primary {
			val := n.Get(y, m)
			s.Points = append(s.Points, Point{
				Key: y, Value: val,
				Visual:  Project(Element{Key: y, Value: val, Palette: Palette{Base: c, Muted: c}}, Selection{}, st),
				Tooltip: tooltip(y, "Detection Method: "+m, kv("Fines", val)),
			})
		}
		v.Series = append(v.Series, s)
	}
	return v
}

func (b builder) multiLine(v View, st filter.State, sel Selection) View {
	v.Kind = KindMultiLine
	v.Title = "Seatbelt Fines by Jurisdiction"
	v.XLabel = "Year"
	v.YLabel = "Total Fines"
	t := b.store.Table(dataset.SeatbeltFines)
	fam := t.Family()
	recs := dataset.Select(t, st)
	if len(recs) == 0 {
		return empty(v, NoDataMessage)
	}
	n := records.GroupBy2(recs, records.Column(fam.Jurisdiction...), records.Column(fam.Year...), records.Sum(fam.Value))
	jurs := append([]string(nil), n.Primary...)
	records.SortLex(jurs)
	years := append([]string(nil), n.Secondary...)
	records.SortNumeric(years)

	var top float64
	for _, j := range jurs {
		for _, y := range years {
			top = max(top, n.Get(j, y))
		}
	}
	v.Categories = years
	v.YMax = records.ScaleMax(top)

	yearTips := make(map[string]string, len(years))
	for _, y := range years {
		byJur := append([]string(nil), jurs...)
		sort.SliceStable(byJur, func(i, k int) bool { return n.Get(byJur[i], y) > n.Get(byJur[k], y) })
		var lines []string
		for _, j := range byJur {
			if f := n.Get(j, y); f > 0 {
				lines = append(lines, kv(j, f))
			}
		}
		yearTips[y] = tooltip("Year "+y, lines...)
	}

	for i, j := range jurs {
		c := category10[i%len(category10)]
		pal := Palette{Base: c, Muted: c}
		s := Series{
			Name:   j,
			Kind:   Line,
			Color:  c,
			Visual: Project(Element{Key: j, Dimension: filter.Jurisdiction, Value: n.Total(j), Palette: pal}, sel, st),
		}
		for _, y := range years {
			val := n.Get(j, y)
			vis := Project(Element{Key: j, Dimension: filter.Jurisdiction, Value: val, Palette: pal}, sel, st)
			s.Points = append(s.Points, Point{Key: y, Value: val, Visual: vis, Tooltip: yearTips[y]})
		}
		v.Series = append(v.Series, s)
	}
	v.Stats = seatbeltStats(recs, fam)
	return v
}

// seatbeltStats summarises the fines behind the multi-line chart.
func seatbeltStats(recs []records.Record, fam dataset.Family) []Stat {
	byYear := records.GroupBy(recs, records.Column(fam.Year...), records.Sum(fam.Value))
	byJur := records.GroupBy(recs, records.Column(fam.Jurisdiction...), records.Sum(fam.Value))
	total := byYear.Total()
	avg := 0.0
	if len(byYear.Keys) > 0 {
		avg = float64(int64(total/float64(len(byYear.Keys)) + 0.5))
	}
	top := "N/A"
	var best float64
	for _, j := range byJur.Keys {
		if f := byJur.Get(j); top == "N/A" || f > best {
			top, best = j, f
		}
	}
	return []Stat{
		{Label: "Total Fines", Value: records.Comma(total)},
		{Label: "Average per Year", Value: records.Comma(avg)},
		{Label: "Top Jurisdiction", Value: top},
	}
}

func (b builder) pie(v View, st filter.State, sel Selection) View {
	v.Kind = KindPie
	v.Title = "Fines by Detection Method"
	t := b.store.Table(dataset.SeatbeltFines)
	fam := t.Family()
	recs := dataset.Select(t, st)
	if len(recs) == 0 {
		return empty(v, NoDataMessage)
	}
	g := records.GroupBy(recs, records.Column(fam.Method...), records.Sum(fam.Value))
	records.SortByOrder(g.Keys, dataset.DetectionMethods)
	total := g.Total()

	s := Series{Name: "Detection Method", Kind: Slices}
	for i, m := range g.Keys {
		val := g.Get(m)
		c := lookupColor(methodColors, strings.ToLower(m), category10[i%len(category10)])
		share := 0.0
		if total > 0 {
			share = val / total
		}
		s.Points = append(s.Points, Point{
			Key: m, Value: val, Share: share,
			Visual:  Project(Element{Key: m, Dimension: filter.DetectionMethod, Value: val, Palette: Palette{Base: c, Muted: c}}, sel, st),
			Tooltip: tooltip(m, kv("Fines", val), "Percentage: "+records.Percent(share)),
		})
	}
	v.Categories = g.Keys
	v.Series = []Series{s}

	method := st.DetectionMethod
	if sel.Active() && sel.Dimension == filter.DetectionMethod {
		method = sel.ID
	}
	if method != "" {
		if ring, ok := ageBreakdown(recs, fam, method); ok {
			v.Series = append(v.Series, ring)
		}
	}
	return v
}

// ageBreakdown splits one detection method's fines by age group, leaving out
// the "All ages" rows that would double count.
func ageBreakdown(recs []records.Record, fam dataset.Family, method string) (Series, bool) {
	var rows []records.Record
	for _, r := range recs {
		if r.Key(fam.Method...) != method {
			continue
		}
		if age := r.Key(fam.Age...); age == "" || age == "All ages" {
			continue
		}
		rows = append(rows, r)
	}
	g := records.GroupBy(rows, records.Column(fam.Age...), records.Sum(fam.Value))
	if len(g.Keys) == 0 {
		return Series{}, false
	}
	sort.SliceStable(g.Keys, func(i, j int) bool { return g.Get(g.Keys[i]) > g.Get(g.Keys[j]) })
	total := g.Total()
	s := Series{Name: "Age Groups: " + method, Kind: Slices, Axis: 1}
	for _, k := range g.Keys {
		val := g.Get(k)
		share := 0.0
		if total > 0 {
			share = val / total
		}
		c := lookupColor(ageGroupColors, k, ageGroupColors["Unknown"])
		s.Points = append(s.Points, Point{
			Key: k, Value: val, Share: share,
			Visual:  Project(Element{Key: k, Value: val, Palette: Palette{Base: c, Muted: c}}, Selection{}, filter.State{}),
			Tooltip: tooltip(k, kv("Fines", val), "Percentage: "+records.Percent(share)),
		})
	}
	return s, true
}
