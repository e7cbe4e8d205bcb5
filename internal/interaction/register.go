package interaction

import (
	"context"

	"github.com/OCAP2/fieldmap/internal/dispatcher"
	"github.com/OCAP2/fieldmap/internal/geo"
	"github.com/OCAP2/fieldmap/internal/mainthread"
	"github.com/OCAP2/fieldmap/pkg/streaming"
)

// Register routes display commands to h. Pointer handlers post to the UI
// loop without waiting so events keep their arrival order.
func (h *Handler) Register(ctx context.Context, d *dispatcher.Dispatcher, loop *mainthread.Loop) {
	d.Register(streaming.TypePointerDown, func(e dispatcher.Event) (any, error) {
		p, err := dispatcher.Decode[streaming.PointerPayload](e)
		if err != nil {
			return nil, err
		}
		return nil, loop.Post(ctx, func(context.Context) {
			h.Press(geo.Pixel{X: p.X, Y: p.Y}, p.Button)
		})
	}, dispatcher.Logged())

	d.Register(streaming.TypePointerMove, func(e dispatcher.Event) (any, error) {
		p, err := dispatcher.Decode[streaming.PointerPayload](e)
		if err != nil {
			return nil, err
		}
		return nil, loop.Post(ctx, func(context.Context) {
			h.Move(geo.Pixel{X: p.X, Y: p.Y})
		})
	})

	d.Register(streaming.TypePointerUp, func(e dispatcher.Event) (any, error) {
		p, err := dispatcher.Decode[streaming.PointerPayload](e)
		if err != nil {
			return nil, err
		}
		return nil, loop.Post(ctx, func(loopCtx context.Context) {
			// save failures already reached the user as a notice
			_, _, _ = h.Release(loopCtx, geo.Pixel{X: p.X, Y: p.Y})
		})
	}, dispatcher.Logged())

	d.Register(streaming.TypeResize, func(e dispatcher.Event) (any, error) {
		p, err := dispatcher.Decode[streaming.ResizePayload](e)
		if err != nil {
			return nil, err
		}
		return nil, loop.Invoke(ctx, func(context.Context) {
			h.Resize(p.Width, p.Height)
		})
	}, dispatcher.Buffered(4), dispatcher.Logged())
}
