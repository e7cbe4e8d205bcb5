package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// All screen math happens in EPSG:3857 meters. Lat/lng are EPSG:4326 degrees.

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// maxLatitude is the Web Mercator cutoff.
const maxLatitude = 85.05112878

var (
	to3857   = wgs84.EPSG().Transform(4326, 3857)
	from3857 = wgs84.EPSG().Transform(3857, 4326)
)

// LatLng is a WGS84 coordinate in degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Pixel is a screen coordinate, origin top-left, y down.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ParseLatLng parses a "lat,lng" string.
func ParseLatLng(coords string) (LatLng, error) {
	parts := strings.Split(coords, ",")
	if len(parts) != 2 {
		return LatLng{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return LatLng{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return LatLng{}, ErrInvalidCoordinates
	}
	ll := LatLng{Lat: lat, Lng: lng}
	if !ll.Valid() {
		return LatLng{}, ErrInvalidCoordinates
	}
	return ll, nil
}

// Valid reports whether the coordinate is within WGS84 bounds.
func (ll LatLng) Valid() bool {
	return ll.Lat >= -90 && ll.Lat <= 90 && ll.Lng >= -180 && ll.Lng <= 180
}

// Mercator projects ll to EPSG:3857 meters. Latitudes are clamped to the
// Web Mercator range.
func Mercator(ll LatLng) geom.XY {
	lat := math.Max(-maxLatitude, math.Min(maxLatitude, ll.Lat))
	x, y, _ := to3857(ll.Lng, lat, 0)
	return geom.XY{X: x, Y: y}
}

// Unmercator converts EPSG:3857 meters back to degrees.
func Unmercator(xy geom.XY) LatLng {
	lng, lat, _ := from3857(xy.X, xy.Y, 0)
	return LatLng{Lat: lat, Lng: lng}
}

// Envelope returns the EPSG:3857 envelope of the given coordinates.
func Envelope(points []LatLng) (geom.Envelope, error) {
	var env geom.Envelope
	for _, p := range points {
		var err error
		if env, err = env.ExtendToIncludeXY(Mercator(p)); err != nil {
			return geom.Envelope{}, fmt.Errorf("envelope of %v: %w", p, err)
		}
	}
	return env, nil
}
