package memory

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"

	"github.com/driftworks/vehiclectl/internal/config"
	"github.com/driftworks/vehiclectl/pkg/core"
)

// Track is the body's ground path. Local is in simulation metres (x east,
// z north); Geo is the same path in lon/lat, anchored at the configured origin.
type Track struct {
	Local  string  `json:"local"`
	Geo    string  `json:"geo"`
	Length float64 `json:"length"`
}

// bodyPosition is the mean of the four wheel positions.
func bodyPosition(f *core.Frame) (x, z float64) {
	for _, w := range f.Wheels {
		x += w.Pose.Position[0]
		z += w.Pose.Position[2]
	}
	return x / core.WheelCount, z / core.WheelCount
}

// groundPath collects body positions, skipping consecutive duplicates.
func groundPath(frames []core.Frame) []float64 {
	coords := make([]float64, 0, len(frames)*2)
	for i := range frames {
		x, z := bodyPosition(&frames[i])
		if n := len(coords); n >= 2 && coords[n-2] == x && coords[n-1] == z {
			continue
		}
		coords = append(coords, x, z)
	}
	return coords
}

func lineString(coords []float64) geom.LineString {
	if len(coords) < 4 {
		return geom.LineString{}
	}
	return geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
}

// georeference maps local metre offsets to lon/lat. Offsets are applied in
// EPSG:3857, scaled by the Mercator stretch at the origin's latitude.
func georeference(coords []float64, origin config.OriginConfig) []float64 {
	epsg := wgs84.EPSG()
	toMercator := epsg.Transform(4326, 3857)
	toLonLat := epsg.Transform(3857, 4326)

	ox, oy, _ := toMercator(origin.Lon, origin.Lat, 0)
	k := 1 / math.Cos(origin.Lat*math.Pi/180)

	out := make([]float64, len(coords))
	for i := 0; i+1 < len(coords); i += 2 {
		lon, lat, _ := toLonLat(ox+coords[i]*k, oy+coords[i+1]*k, 0)
		out[i], out[i+1] = lon, lat
	}
	return out
}

func buildTrack(frames []core.Frame, origin config.OriginConfig) Track {
	local := groundPath(frames)
	ls := lineString(local)
	return Track{
		Local:  ls.AsText(),
		Geo:    lineString(georeference(local, origin)).AsText(),
		Length: ls.Length(),
	}
}
