package control

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/dokzlo13/lumectl/internal/api"
	"github.com/dokzlo13/lumectl/internal/resolve"
	"github.com/dokzlo13/lumectl/internal/store"
)

type fakeRemote struct {
	calls  []string
	failOn map[string]error
	state  api.DeviceState
}

func (f *fakeRemote) record(call string) error {
	f.calls = append(f.calls, call)
	if err, ok := f.failOn[call]; ok {
		return err
	}
	return nil
}

func (f *fakeRemote) DeviceInfo(ctx context.Context, mac string) (api.DeviceState, error) {
	if err := f.record("device_info"); err != nil {
		return api.DeviceState{}, err
	}
	return f.state, nil
}

func (f *fakeRemote) TurnOn(ctx context.Context, mac, model string) error {
	return f.record("turn_on")
}

func (f *fakeRemote) TurnOff(ctx context.Context, mac, model string) error {
	return f.record("turn_off")
}

func (f *fakeRemote) SetBrightness(ctx context.Context, mac, model string, value int) error {
	return f.record(fmt.Sprintf("set_brightness:%d", value))
}

func (f *fakeRemote) SetColor(ctx context.Context, mac, model, hex string) error {
	return f.record("set_color:" + hex)
}

type fakeRecorder struct {
	entries []string
}

func (f *fakeRecorder) Record(device, action, argument, outcome string) error {
	f.entries = append(f.entries, fmt.Sprintf("%s/%s/%s/%s", device, action, argument, outcome))
	return nil
}

var testDevice = store.Device{Name: "lamp", MAC: "aabbcc", Model: "WLPA19C"}

func TestApplySequences(t *testing.T) {
	tests := []struct {
		name string
		cmd  resolve.Command
		want []string
	}{
		{
			name: "brightness_zero_only_turns_off",
			cmd:  resolve.Command{Color: "ff0000", Brightness: 0, HasBrightness: true},
			want: []string{"turn_off"},
		},
		{
			name: "color_and_brightness",
			cmd:  resolve.Command{Color: "ff0000", Brightness: 30, HasBrightness: true},
			want: []string{"turn_on", "set_brightness:30", "set_color:ff0000"},
		},
		{
			name: "brightness_only",
			cmd:  resolve.Command{Brightness: 80, HasBrightness: true},
			want: []string{"turn_on", "set_brightness:80"},
		},
		{
			name: "color_only",
			cmd:  resolve.Command{Color: "0000ff"},
			want: []string{"turn_on", "set_color:0000ff"},
		},
		{
			name: "empty_issues_nothing",
			cmd:  resolve.Command{},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{}
			orch := New(remote, nil)
			if err := orch.Apply(context.Background(), testDevice, tt.cmd); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equal(remote.calls, tt.want) {
				t.Fatalf("want calls %v, got %v", tt.want, remote.calls)
			}
		})
	}
}

func TestApplyFailureDoesNotAbortSequence(t *testing.T) {
	remote := &fakeRemote{failOn: map[string]error{
		"set_brightness:30": errors.New("boom"),
	}}
	orch := New(remote, nil)

	cmd := resolve.Command{Color: "ff0000", Brightness: 30, HasBrightness: true}
	err := orch.Apply(context.Background(), testDevice, cmd)
	if err == nil {
		t.Fatal("expected error")
	}
	// The color call is still issued; nothing is rolled back.
	want := []string{"turn_on", "set_brightness:30", "set_color:ff0000"}
	if !equal(remote.calls, want) {
		t.Fatalf("want calls %v, got %v", want, remote.calls)
	}
}

func TestApplyRecordsLedgerEntries(t *testing.T) {
	remote := &fakeRemote{failOn: map[string]error{
		"set_color:ff0000": errors.New("boom"),
	}}
	recorder := &fakeRecorder{}
	orch := New(remote, recorder)

	cmd := resolve.Command{Color: "ff0000"}
	if err := orch.Apply(context.Background(), testDevice, cmd); err == nil {
		t.Fatal("expected error")
	}
	want := []string{
		"lamp/turn_on//ok",
		"lamp/set_color/ff0000/boom",
	}
	if !equal(recorder.entries, want) {
		t.Fatalf("want entries %v, got %v", want, recorder.entries)
	}
}

func TestRender(t *testing.T) {
	colors := map[string]string{"red": "ff0000", "blue": "0000ff"}

	tests := []struct {
		name  string
		state api.DeviceState
		want  string
	}{
		{
			name:  "off",
			state: api.DeviceState{IsOn: false, Color: "ff0000", Brightness: 50},
			want:  "lamp 0",
		},
		{
			name:  "on_with_named_color",
			state: api.DeviceState{IsOn: true, Color: "ff0000", Brightness: 75},
			want:  "lamp red 75",
		},
		{
			name:  "on_with_unmapped_color",
			state: api.DeviceState{IsOn: true, Color: "123abc", Brightness: 75},
			want:  "lamp 123abc 75",
		},
		{
			name:  "on_without_color",
			state: api.DeviceState{IsOn: true, Brightness: 40},
			want:  "lamp 40",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{state: tt.state}
			orch := New(remote, nil)
			got, err := orch.Render(context.Background(), testDevice, colors)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("want %q, got %q", tt.want, got)
			}
		})
	}
}

func TestColorNameDeterministicOnSharedHex(t *testing.T) {
	colors := map[string]string{"crimson": "ff0000", "red": "ff0000"}
	for i := 0; i < 10; i++ {
		if got := ColorName("ff0000", colors); got != "crimson" {
			t.Fatalf("reverse lookup unstable: got %q", got)
		}
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
