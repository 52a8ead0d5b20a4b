package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumectl/internal/control"
	"github.com/dokzlo13/lumectl/internal/resolve"
)

// cmdState views or changes one device. Tokens are resolved against the
// color dictionary before any remote call; a resolution failure aborts
// with no partial result. With no tokens the current state is only read
// back and printed.
func (a *app) cmdState(ctx context.Context, name string, tokens []string) error {
	devices, err := a.store.LoadDevices()
	if err != nil {
		return err
	}
	dev, ok := devices[name]
	if !ok {
		return fmt.Errorf("unknown device %q (add it with 'lumectl device add')", name)
	}

	colors, err := a.store.LoadColors()
	if err != nil {
		return err
	}
	cmd, err := resolve.Resolve(tokens, colors)
	if err != nil {
		return err
	}

	if err := a.session.Establish(ctx); err != nil {
		return err
	}

	var recorder control.Recorder
	led, closeLedger, err := a.openLedger()
	if err != nil {
		log.Warn().Err(err).Msg("Control history unavailable")
	} else {
		recorder = led
		defer closeLedger()
	}

	orch := control.New(a.client, recorder)

	var applyErr error
	if !cmd.Empty() {
		applyErr = orch.Apply(ctx, dev, cmd)
	}

	// Read back even after a partial failure; the calls that went
	// through have already changed the device.
	out, renderErr := orch.Render(ctx, dev, colors)
	if renderErr == nil {
		fmt.Println(out)
	}
	return errors.Join(applyErr, renderErr)
}
