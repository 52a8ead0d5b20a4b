package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumectl/internal/api"
	"github.com/dokzlo13/lumectl/internal/store"
)

// lightKinds are the fixed substrings that identify a light in the
// remote device list, matched case-insensitively against both the model
// and the product type.
var lightKinds = []string{"wlpa19", "bulb", "light"}

func isLight(dev api.Device) bool {
	haystack := strings.ToLower(dev.Model + " " + dev.Product)
	for _, kind := range lightKinds {
		if strings.Contains(haystack, kind) {
			return true
		}
	}
	return false
}

// displayName returns the remote nickname, or a placeholder derived from
// the trailing digits of the MAC when the nickname is absent.
func displayName(dev api.Device) string {
	if dev.Nickname != "" {
		return dev.Nickname
	}
	mac := strings.Map(func(r rune) rune {
		if r == ':' || r == '-' {
			return -1
		}
		return r
	}, dev.MAC)
	if len(mac) > 4 {
		mac = mac[len(mac)-4:]
	}
	return "bulb-" + strings.ToLower(mac)
}

// cmdDevices lists the account's remote devices, marking each as
// configured (*) or unconfigured (-) against the local registry.
func (a *app) cmdDevices(ctx context.Context) error {
	if err := a.session.Establish(ctx); err != nil {
		return err
	}
	remote, err := a.client.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	local, err := a.store.LoadDevices()
	if err != nil {
		return err
	}

	configured := make(map[string]string, len(local))
	for name, dev := range local {
		configured[strings.ToLower(dev.MAC)] = name
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, dev := range remote {
		marker := "-"
		name := displayName(dev)
		if localName, ok := configured[strings.ToLower(dev.MAC)]; ok {
			marker = "*"
			name = localName
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, name, dev.MAC, dev.Model)
	}
	return w.Flush()
}

func (a *app) cmdDeviceAdd(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.New("usage: lumectl device add <name> <mac> [model]")
	}
	dev := store.Device{Name: args[0], MAC: args[1]}
	if len(args) == 3 {
		dev.Model = args[2]
	}
	if err := a.store.AddDevice(dev); err != nil {
		return err
	}
	fmt.Printf("added %s (%s)\n", dev.Name, dev.MAC)
	return nil
}

func (a *app) cmdDeviceRemove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: lumectl device remove <name>")
	}
	if err := a.store.RemoveDevice(args[0]); err != nil {
		return err
	}
	fmt.Printf("removed %s\n", args[0])
	return nil
}

// cmdDeviceImport bulk-adds every unconfigured remote light to the
// registry under its display name. Non-light devices and already
// configured MACs are skipped.
func (a *app) cmdDeviceImport(ctx context.Context) error {
	if err := a.session.Establish(ctx); err != nil {
		return err
	}
	remote, err := a.client.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	local, err := a.store.LoadDevices()
	if err != nil {
		return err
	}

	configured := make(map[string]bool, len(local))
	for _, dev := range local {
		configured[strings.ToLower(dev.MAC)] = true
	}

	added := 0
	for _, dev := range remote {
		if !isLight(dev) || configured[strings.ToLower(dev.MAC)] {
			continue
		}
		name := displayName(dev)
		if _, taken := local[name]; taken {
			log.Warn().Str("name", name).Str("mac", dev.MAC).Msg("Name already in registry, skipping")
			continue
		}
		model := dev.Model
		if model == "" {
			model = store.DefaultModel
		}
		local[name] = store.Device{Name: name, MAC: dev.MAC, Model: model}
		fmt.Printf("added %s (%s)\n", name, dev.MAC)
		added++
	}
	if added == 0 {
		fmt.Println("no unconfigured lights found")
		return nil
	}
	return a.store.SaveDevices(local)
}
