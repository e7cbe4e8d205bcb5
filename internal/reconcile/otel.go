package reconcile

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/fieldmap/internal/reconcile"

type instruments struct {
	created  metric.Int64Counter
	moved    metric.Int64Counter
	orphaned metric.Int64Counter
	applied  metric.Int64Counter
}

func newInstruments() (*instruments, error) {
	m := otel.Meter(instrumentationName)
	var (
		in  instruments
		err error
	)
	if in.created, err = m.Int64Counter("reconcile.markers.created",
		metric.WithDescription("Markers created for first-sighting soldiers")); err != nil {
		return nil, err
	}
	if in.moved, err = m.Int64Counter("reconcile.markers.moved",
		metric.WithDescription("Existing markers moved by an update")); err != nil {
		return nil, err
	}
	if in.orphaned, err = m.Int64Counter("reconcile.positions.orphaned",
		metric.WithDescription("Positions naming a soldier not on the roster")); err != nil {
		return nil, err
	}
	if in.applied, err = m.Int64Counter("reconcile.updates.applied",
		metric.WithDescription("Update records applied to the map")); err != nil {
		return nil, err
	}
	return &in, nil
}
