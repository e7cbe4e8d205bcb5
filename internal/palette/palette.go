// Package palette converts marker colors to and from their JSON string form.
//
// A small fixed palette is written by name. Everything else is written as a
// hex string and read back from hex, or from an HTML color name.
package palette

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ErrInvalidColor is returned when a string is neither a palette name, a hex
// code nor an HTML color name.
var ErrInvalidColor = errors.New("invalid color name or hex code")

// entry keeps the palette ordered so the canonical name is stable.
type entry struct {
	name  string
	value color.RGBA
}

var named = []entry{
	{"Red", color.RGBA{R: 0xFF, A: 0xFF}},
	{"Lime", color.RGBA{G: 0xFF, A: 0xFF}},
	{"Blue", color.RGBA{B: 0xFF, A: 0xFF}},
	{"Yellow", color.RGBA{R: 0xFF, G: 0xFF, A: 0xFF}},
	{"Magenta", color.RGBA{R: 0xFF, B: 0xFF, A: 0xFF}},
}

// Names returns the palette names in their canonical spelling.
func Names() []string {
	names := make([]string, len(named))
	for i, e := range named {
		names[i] = e.name
	}
	return names
}

// Lookup finds a palette color by name, ignoring case.
func Lookup(name string) (color.RGBA, bool) {
	for _, e := range named {
		if strings.EqualFold(e.name, name) {
			return e.value, true
		}
	}
	return color.RGBA{}, false
}

// Encode returns the palette name for c, or its hex form when c is not in
// the palette. Opaque colors use #RRGGBB, others #AARRGGBB.
func Encode(c color.RGBA) string {
	for _, e := range named {
		if e.value == c {
			return e.name
		}
	}
	return Hex(c)
}

// Hex formats c as an upper-case hex code.
func Hex(c color.RGBA) string {
	if c.A == 0xFF {
		return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", c.A, c.R, c.G, c.B)
}

// Decode parses a palette name, a hex code (#RGB, #RRGGBB, #AARRGGBB) or an
// HTML color name.
func Decode(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if c, ok := Lookup(s); ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") {
		c, err := parseHex(s[1:])
		if err != nil {
			return color.RGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
		}
		return c, nil
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return color.RGBA{}, fmt.Errorf("%w: %q (palette: %s)", ErrInvalidColor, s, strings.Join(Names(), ", "))
}

func parseHex(h string) (color.RGBA, error) {
	switch len(h) {
	case 3:
		v, err := strconv.ParseUint(h, 16, 16)
		if err != nil {
			return color.RGBA{}, err
		}
		r, g, b := uint8(v>>8&0xF), uint8(v>>4&0xF), uint8(v&0xF)
		return color.RGBA{R: r<<4 | r, G: g<<4 | g, B: b<<4 | b, A: 0xFF}, nil
	case 6:
		v, err := strconv.ParseUint(h, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xFF}, nil
	case 8:
		v, err := strconv.ParseUint(h, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{A: uint8(v >> 24), R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
	default:
		return color.RGBA{}, fmt.Errorf("unexpected hex length %d", len(h))
	}
}
