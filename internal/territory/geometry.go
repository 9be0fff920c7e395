package territory

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// Bound returns the lat/lng box enclosing the territory circle.
func (t Territory) Bound() orb.Bound {
	return geo.NewBoundAroundPoint(t.Center.Point(), t.RadiusMeters)
}

// Feature returns the territory as a GeoJSON point feature carrying its
// radius and bounding box. Map clients draw the circle from the radius.
func (t Territory) Feature() *geojson.Feature {
	f := geojson.NewFeature(t.Center.Point())
	f.BBox = geojson.NewBBox(t.Bound())
	f.Properties["radius"] = t.RadiusMeters
	return f
}
