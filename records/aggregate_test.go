package records

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(kv ...any) Record {
	r := Record{}
	for i := 0; i+1 < len(kv); i += 2 {
		r[kv[i].(string)] = kv[i+1]
	}
	return r
}

func TestGroupBySum(t *testing.T) {
	recs := []Record{
		rec("YEAR", 2021.0, "COUNT", 5.0),
		rec("YEAR", 2020.0, "COUNT", 2.0),
		rec("YEAR", 2021.0, "COUNT", "7"),
		rec("YEAR", 2020.0, "COUNT", "n/a"),
		rec("YEAR", nil, "COUNT", 100.0),
	}
	g := GroupBy(recs, Column("YEAR"), Sum("COUNT"))

	assert.Equal(t, []string{"2021", "2020"}, g.Keys)
	assert.Equal(t, 12.0, g.Get("2021"))
	assert.Equal(t, 2.0, g.Get("2020"))
	assert.Equal(t, 14.0, g.Total())
	assert.Equal(t, 12.0, g.Max())

	SortNumeric(g.Keys)
	assert.Equal(t, []string{"2020", "2021"}, g.Keys)
}

func TestGroupByCount(t *testing.T) {
	recs := []Record{
		rec("CSEF Severity", "1: PDO"),
		rec("CSEF Severity", "4: Fatal"),
		rec("CSEF Severity", "1: PDO"),
	}
	g := GroupBy(recs, Column("CSEF Severity"), Count())
	assert.Equal(t, 2.0, g.Get("1: PDO"))
	assert.Equal(t, 1.0, g.Get("4: Fatal"))
}

func TestGroupBy2ZeroFill(t *testing.T) {
	recs := []Record{
		rec("YEAR", 2020.0, "M", "A", "V", 3.0),
		rec("YEAR", 2021.0, "M", "A", "V", 4.0),
		rec("YEAR", 2021.0, "M", "B", "V", 6.0),
		rec("YEAR", 2020.0, "M", "A", "V", 1.0),
	}
	n := GroupBy2(recs, Column("YEAR"), Column("M"), Sum("V"))

	want := map[string]map[string]float64{
		"2020": {"A": 4, "B": 0},
		"2021": {"A": 4, "B": 6},
	}
	if !reflect.DeepEqual(n.Values, want) {
		t.Errorf("values = %v, want %v", n.Values, want)
	}
	_, ok := n.Values["2020"]["B"]
	assert.True(t, ok, "B must be present under 2020")
	assert.Equal(t, []float64{0, 6}, n.Layer("B"))
	assert.Equal(t, 10.0, n.Total("2021"))
}

func TestGroupBy2ForcedOrder(t *testing.T) {
	recs := []Record{
		rec("YEAR", 2021.0, "METHOD", "police issued", "FINES", 100.0),
		rec("YEAR", 2021.0, "METHOD", "other", "FINES", 1.0),
	}
	n := GroupBy2(recs, Column("YEAR"), Column("METHOD"), Sum("FINES"),
		"police issued", "fixed or mobile camera", "mobile camera")

	require.Equal(t, []string{"police issued", "fixed or mobile camera", "mobile camera", "other"}, n.Secondary)
	assert.Equal(t, 0.0, n.Get("2021", "mobile camera"))
	assert.Equal(t, 101.0, n.Total("2021"))
}

func TestScaleMax(t *testing.T) {
	tests := []struct {
		in   []float64
		want float64
	}{
		{nil, 1},
		{[]float64{0, 0}, 1},
		{[]float64{0, 3, 2}, 3},
	}
	for _, tt := range tests {
		if got := ScaleMax(tt.in...); got != tt.want {
			t.Errorf("ScaleMax(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSortByOrder(t *testing.T) {
	keys := []string{"x", "4: Fatal", "1: PDO", "y", "3: SI"}
	SortByOrder(keys, []string{"1: PDO", "2: MI", "3: SI", "4: Fatal"})
	assert.Equal(t, []string{"1: PDO", "3: SI", "4: Fatal", "x", "y"}, keys)
}

func TestSortNumericMixed(t *testing.T) {
	keys := []string{"b", "2021", "a", "2019"}
	SortNumeric(keys)
	assert.Equal(t, []string{"2019", "2021", "a", "b"}, keys)
}

func TestRecordAccessors(t *testing.T) {
	r := rec("YEAR", 2021.0, "Year", nil, "AGE", " ", "COUNT", "1,234", "RATE", 0.5)

	assert.Equal(t, "2021", r.String("YEAR"))
	assert.Equal(t, "2021", r.Key("Year", "YEAR"))
	assert.False(t, r.Has("AGE"))
	assert.Equal(t, 1234.0, r.Number("COUNT"))
	assert.Equal(t, "0.5", r.String("RATE"))
	assert.Equal(t, 0.0, r.Number("MISSING"))
}

func TestAutoType(t *testing.T) {
	assert.Nil(t, AutoType(""))
	assert.Equal(t, 2021.0, AutoType("2021"))
	assert.Equal(t, "VIC", AutoType(" VIC "))
	assert.Equal(t, "18-24", AutoType("18-24"))
}

func TestDistinct(t *testing.T) {
	recs := []Record{rec("J", "VIC"), rec("J", "NSW"), rec("J", "VIC"), rec("J", nil)}
	assert.Equal(t, []string{"VIC", "NSW"}, Distinct(recs, "J"))
}
