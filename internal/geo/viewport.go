package geo

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

const (
	tileSize = 256.0
	// earthCircumference is the EPSG:3857 world width in meters.
	earthCircumference = 2 * math.Pi * 6378137
)

// Viewport describes what part of the map is on screen.
type Viewport struct {
	Center  LatLng `json:"center"`
	Zoom    int    `json:"zoom"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	MinZoom int    `json:"-"`
	MaxZoom int    `json:"-"`
}

// scale returns screen pixels per EPSG:3857 meter.
func (v Viewport) scale() float64 {
	return tileSize * math.Pow(2, float64(v.Zoom)) / earthCircumference
}

// ToScreen projects a coordinate to a pixel relative to the view's top-left.
func (v Viewport) ToScreen(ll LatLng) Pixel {
	c := Mercator(v.Center)
	p := Mercator(ll)
	s := v.scale()
	return Pixel{
		X: float64(v.Width)/2 + (p.X-c.X)*s,
		Y: float64(v.Height)/2 - (p.Y-c.Y)*s,
	}
}

// ToLatLng is the inverse of ToScreen.
func (v Viewport) ToLatLng(px Pixel) LatLng {
	c := Mercator(v.Center)
	s := v.scale()
	return Unmercator(geom.XY{
		X: c.X + (px.X-float64(v.Width)/2)/s,
		Y: c.Y - (px.Y-float64(v.Height)/2)/s,
	})
}

// Fit centers the view on points at the highest zoom that shows all of
// them. With no points, or a non-finite one, the view is returned
// unchanged.
func (v Viewport) Fit(points []LatLng) Viewport {
	env, err := Envelope(points)
	if err != nil {
		return v
	}
	lo, hi, ok := env.MinMaxXYs()
	if !ok {
		return v
	}

	out := v
	out.Center = Unmercator(geom.XY{X: (lo.X + hi.X) / 2, Y: (lo.Y + hi.Y) / 2})

	w, h := hi.X-lo.X, hi.Y-lo.Y
	out.Zoom = v.MaxZoom
	for out.Zoom > v.MinZoom {
		s := out.scale()
		if w*s <= float64(v.Width) && h*s <= float64(v.Height) {
			break
		}
		out.Zoom--
	}
	return out
}

// PixelBox converts a size-by-size pixel square centered on px into the
// lat/lng rectangle it covers, returned as south-west and north-east
// corners.
func (v Viewport) PixelBox(px Pixel, size float64) (sw, ne LatLng) {
	half := size / 2
	sw = v.ToLatLng(Pixel{X: px.X - half, Y: px.Y + half})
	ne = v.ToLatLng(Pixel{X: px.X + half, Y: px.Y - half})
	return sw, ne
}
