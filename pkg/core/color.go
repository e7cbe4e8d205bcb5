// pkg/core/color.go
package core

import (
	"encoding/json"
	"fmt"
	"image/color"

	"github.com/OCAP2/fieldmap/internal/palette"
)

// Color is a soldier's marker color. It serializes as a palette name or a
// hex code.
type Color color.RGBA

// Value returns the underlying color value.
func (c Color) Value() color.RGBA { return color.RGBA(c) }

func (c Color) String() string { return palette.Encode(color.RGBA(c)) }

// MarshalJSON writes the palette name, falling back to the hex code.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(palette.Encode(color.RGBA(c)))
}

// UnmarshalJSON reads a palette name, hex code or HTML color name.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("color must be a string: %w", err)
	}
	v, err := palette.Decode(s)
	if err != nil {
		return err
	}
	*c = Color(v)
	return nil
}
