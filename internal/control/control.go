// Package control translates a resolved (color, brightness) command into
// the minimal correct sequence of remote calls and renders device state.
package control

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumectl/internal/api"
	"github.com/dokzlo13/lumectl/internal/ledger"
	"github.com/dokzlo13/lumectl/internal/resolve"
	"github.com/dokzlo13/lumectl/internal/store"
)

// Remote is the slice of the API client the orchestrator drives.
type Remote interface {
	DeviceInfo(ctx context.Context, mac string) (api.DeviceState, error)
	TurnOn(ctx context.Context, mac, model string) error
	TurnOff(ctx context.Context, mac, model string) error
	SetBrightness(ctx context.Context, mac, model string, value int) error
	SetColor(ctx context.Context, mac, model, hex string) error
}

// Recorder receives one entry per issued control call. *ledger.Ledger
// satisfies it; nil disables recording.
type Recorder interface {
	Record(device, action, argument, outcome string) error
}

// Orchestrator issues remote calls for one device at a time.
type Orchestrator struct {
	remote   Remote
	recorder Recorder
}

// New creates an Orchestrator. recorder may be nil.
func New(remote Remote, recorder Recorder) *Orchestrator {
	return &Orchestrator{remote: remote, recorder: recorder}
}

// Apply issues the call sequence for cmd. Brightness 0 means turn off and
// nothing else, color included. Otherwise the device is turned on before
// any attribute call, since devices drop attribute changes while off;
// brightness goes before color to match observed device acceptance order.
// Calls already issued are never rolled back when a later one fails.
func (o *Orchestrator) Apply(ctx context.Context, dev store.Device, cmd resolve.Command) error {
	if cmd.HasBrightness && cmd.Brightness == 0 {
		return o.call(ctx, dev, "turn_off", "", func() error {
			return o.remote.TurnOff(ctx, dev.MAC, dev.Model)
		})
	}

	var errs []error
	if cmd.Color != "" || cmd.HasBrightness {
		errs = append(errs, o.call(ctx, dev, "turn_on", "", func() error {
			return o.remote.TurnOn(ctx, dev.MAC, dev.Model)
		}))
	}
	if cmd.HasBrightness {
		errs = append(errs, o.call(ctx, dev, "set_brightness", strconv.Itoa(cmd.Brightness), func() error {
			return o.remote.SetBrightness(ctx, dev.MAC, dev.Model, cmd.Brightness)
		}))
	}
	if cmd.Color != "" {
		errs = append(errs, o.call(ctx, dev, "set_color", cmd.Color, func() error {
			return o.remote.SetColor(ctx, dev.MAC, dev.Model, cmd.Color)
		}))
	}
	return errors.Join(errs...)
}

// call runs one remote call, records it in the ledger and reports a
// failure without aborting the remaining sequence.
func (o *Orchestrator) call(ctx context.Context, dev store.Device, action, argument string, fn func() error) error {
	err := fn()
	outcome := ledger.OutcomeOK
	if err != nil {
		outcome = err.Error()
		log.Error().Err(err).Str("device", dev.Name).Str("action", action).Msg("Remote call failed")
	}
	if o.recorder != nil {
		if recErr := o.recorder.Record(dev.Name, action, argument, outcome); recErr != nil {
			log.Warn().Err(recErr).Msg("Failed to record ledger entry")
		}
	}
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

// Render reads the device state back and formats it: "<name> 0" while
// off, "<name> <color> <brightness>" while on, with the color shown by
// dictionary name when one maps to the hex value.
func (o *Orchestrator) Render(ctx context.Context, dev store.Device, colors map[string]string) (string, error) {
	state, err := o.remote.DeviceInfo(ctx, dev.MAC)
	if err != nil {
		return "", fmt.Errorf("reading device state: %w", err)
	}
	if !state.IsOn {
		return fmt.Sprintf("%s 0", dev.Name), nil
	}
	if state.Color == "" {
		return fmt.Sprintf("%s %d", dev.Name, state.Brightness), nil
	}
	return fmt.Sprintf("%s %s %d", dev.Name, ColorName(state.Color, colors), state.Brightness), nil
}

// ColorName maps a hex value back to a dictionary name, best effort. The
// dictionary is persisted sorted by name, so sorted iteration here
// matches the on-disk mapping order; unmapped values fall back to the
// raw hex.
func ColorName(hex string, colors map[string]string) string {
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if colors[name] == hex {
			return name
		}
	}
	return hex
}
