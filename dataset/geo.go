package dataset

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// jurisdictionCodes maps the boundary file's STATE_NAME to the code used in
// every tabular dataset.
var jurisdictionCodes = map[string]string{
	"New South Wales":              "NSW",
	"Victoria":                     "VIC",
	"Queensland":                   "QLD",
	"South Australia":              "SA",
	"Western Australia":            "WA",
	"Tasmania":                     "TAS",
	"Northern Territory":           "NT",
	"Australian Capital Territory": "ACT",
}

// JurisdictionCode returns the code for a full jurisdiction name, or the name
// itself when it is not a known jurisdiction.
func JurisdictionCode(name string) string {
	if c, ok := jurisdictionCodes[name]; ok {
		return c
	}
	return name
}

// JurisdictionName is the inverse of JurisdictionCode.
func JurisdictionName(code string) string {
	for n, c := range jurisdictionCodes {
		if c == code {
			return n
		}
	}
	return code
}

// Area is one jurisdiction's boundary.
type Area struct {
	Code     string
	Name     string
	Polygons []orb.Polygon
	Centroid orb.Point
}

// Geo holds the jurisdiction boundaries.
type Geo struct {
	Areas []Area
	Bound orb.Bound
}

// Area returns the boundary with the given code.
func (g *Geo) Area(code string) (Area, bool) {
	if g == nil {
		return Area{}, false
	}
	for _, a := range g.Areas {
		if a.Code == code {
			return a, true
		}
	}
	return Area{}, false
}

// ParseGeo decodes a GeoJSON feature collection whose features carry a
// STATE_NAME property. Features that are not polygons are skipped.
func ParseGeo(data []byte) (*Geo, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding boundaries: %w", err)
	}
	g := &Geo{}
	first := true
	for _, f := range fc.Features {
		var polys []orb.Polygon
		switch geom := f.Geometry.(type) {
		case orb.Polygon:
			polys = []orb.Polygon{geom}
		case orb.MultiPolygon:
			polys = geom
		default:
			continue
		}
		name := f.Properties.MustString("STATE_NAME", "")
		centroid, _ := planar.CentroidArea(f.Geometry)
		g.Areas = append(g.Areas, Area{
			Code:     JurisdictionCode(name),
			Name:     name,
			Polygons: polys,
			Centroid: centroid,
		})
		if first {
			g.Bound = f.Geometry.Bound()
			first = false
		} else {
			g.Bound = g.Bound.Union(f.Geometry.Bound())
		}
	}
	sort.Slice(g.Areas, func(i, j int) bool { return g.Areas[i].Code < g.Areas[j].Code })
	return g, nil
}
