package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogWriter dials a GELF UDP endpoint. The returned writer is meant
// to be passed as a sink to SlogManager.Setup.
func NewGraylogWriter(address string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, fmt.Errorf("failed to create graylog writer for %s: %w", address, err)
	}
	w.Facility = "fieldmap"
	return w, nil
}
