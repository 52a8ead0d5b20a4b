// Package store provides typed access to the persisted local state:
// the device registry, the color dictionary, the credential set and the
// cached session tokens. All state lives as small flat files under a
// single configuration root.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultModel is assumed for devices added without an explicit model.
const DefaultModel = "WLPA19C"

// File names under the configuration root.
const (
	devicesFile     = "devices"
	colorsFile      = "colors"
	credentialsFile = "credentials"
	tokensFile      = "tokens"
)

// ErrDeviceNotFound is returned when a named device is not in the registry.
var ErrDeviceNotFound = errors.New("device not found")

// Device is one entry of the local name -> hardware mapping. The registry
// is authoritative for the human-chosen name only; the remote API owns
// device existence.
type Device struct {
	Name  string
	MAC   string
	Model string
}

// Credentials is the four-field set required for a fresh login. A set with
// any empty field is unusable.
type Credentials struct {
	Email    string
	Password string
	KeyID    string
	APIKey   string
}

// Complete reports whether all four fields are non-empty.
func (c Credentials) Complete() bool {
	return len(c.Missing()) == 0
}

// Missing returns the names of the empty fields, in a fixed order.
func (c Credentials) Missing() []string {
	var missing []string
	if c.Email == "" {
		missing = append(missing, "email")
	}
	if c.Password == "" {
		missing = append(missing, "password")
	}
	if c.KeyID == "" {
		missing = append(missing, "key_id")
	}
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	return missing
}

// TokenPair is a cached access/refresh token pair. It is a pure cache:
// absence or staleness triggers a fresh login, never a failure.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Store reads and writes the persisted state files under a single directory.
type Store struct {
	dir string
}

// Open binds a Store to dir, creating the directory on first use. The
// parent of dir must already exist and be writable; anything else is a
// configuration error the caller should treat as fatal. If no color
// dictionary exists yet, the default palette is written once.
func Open(dir string) (*Store, error) {
	if err := os.Mkdir(dir, 0o755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("cannot create state directory %s: %w", dir, err)
	}
	s := &Store{dir: dir}
	if _, err := os.Stat(s.path(colorsFile)); os.IsNotExist(err) {
		if err := s.writeColors(defaultPalette()); err != nil {
			return nil, fmt.Errorf("seeding default palette: %w", err)
		}
		log.Debug().Str("dir", dir).Msg("Wrote default color palette")
	}
	return s, nil
}

// Dir returns the configuration root this store is bound to.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

// NormalizeColorName lowercases a color name and strips everything that is
// not a letter or digit, so "Light Green!" and "lightgreen" collide.
func NormalizeColorName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LoadDevices reads the device registry. A missing file is an empty
// registry. Lines starting with '#' are comments; fields are tab-separated
// so device names may contain spaces.
func (s *Store) LoadDevices() (map[string]Device, error) {
	devices := make(map[string]Device)
	data, err := os.ReadFile(s.path(devicesFile))
	if os.IsNotExist(err) {
		return devices, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading device registry: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			log.Debug().Str("line", line).Msg("Skipping malformed device record")
			continue
		}
		dev := Device{Name: fields[0], MAC: fields[1], Model: DefaultModel}
		if len(fields) >= 3 && fields[2] != "" {
			dev.Model = fields[2]
		}
		devices[dev.Name] = dev
	}
	return devices, nil
}

// SaveDevices rewrites the whole registry, sorted by name for determinism.
func (s *Store) SaveDevices(devices map[string]Device) error {
	names := make([]string, 0, len(devices))
	for name := range devices {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# lumectl device registry: name, mac, model (tab-separated)\n")
	for _, name := range names {
		dev := devices[name]
		fmt.Fprintf(&b, "%s\t%s\t%s\n", dev.Name, dev.MAC, dev.Model)
	}
	return s.writeFile(devicesFile, []byte(b.String()), 0o644)
}

// AddDevice inserts or overwrites a registry entry.
func (s *Store) AddDevice(dev Device) error {
	devices, err := s.LoadDevices()
	if err != nil {
		return err
	}
	if dev.Model == "" {
		dev.Model = DefaultModel
	}
	devices[dev.Name] = dev
	return s.SaveDevices(devices)
}

// RemoveDevice deletes a registry entry. When the name is unknown the
// registry file is left untouched and ErrDeviceNotFound is returned.
func (s *Store) RemoveDevice(name string) error {
	devices, err := s.LoadDevices()
	if err != nil {
		return err
	}
	if _, ok := devices[name]; !ok {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, name)
	}
	delete(devices, name)
	return s.SaveDevices(devices)
}

// LoadColors reads the color dictionary as normalizedName -> hex. The
// default palette is seeded by Open, so the file normally exists.
func (s *Store) LoadColors() (map[string]string, error) {
	colors := make(map[string]string)
	data, err := os.ReadFile(s.path(colorsFile))
	if os.IsNotExist(err) {
		return colors, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading color dictionary: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			log.Debug().Str("line", line).Msg("Skipping malformed color record")
			continue
		}
		colors[NormalizeColorName(fields[0])] = strings.ToLower(fields[1])
	}
	return colors, nil
}

// SaveColor normalizes the name, merges the mapping into the existing set
// and rewrites the whole dictionary.
func (s *Store) SaveColor(name, hex string) error {
	colors, err := s.LoadColors()
	if err != nil {
		return err
	}
	colors[NormalizeColorName(name)] = strings.ToLower(hex)
	return s.writeColors(colors)
}

func (s *Store) writeColors(colors map[string]string) error {
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# lumectl color dictionary: name, hex\n")
	for _, name := range names {
		fmt.Fprintf(&b, "%s %s\n", name, colors[name])
	}
	return s.writeFile(colorsFile, []byte(b.String()), 0o644)
}

// LoadCredentials reads the persisted credential set. Missing file or
// missing fields yield zero values; the caller merges in environment
// variables and decides whether the result is usable.
func (s *Store) LoadCredentials() (Credentials, error) {
	kv, err := s.readKV(credentialsFile)
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		Email:    kv["EMAIL"],
		Password: kv["PASSWORD"],
		KeyID:    kv["KEY_ID"],
		APIKey:   kv["API_KEY"],
	}, nil
}

// SaveCredentials persists the credential set with owner-only permissions.
func (s *Store) SaveCredentials(c Credentials) error {
	body := fmt.Sprintf("EMAIL=%s\nPASSWORD=%s\nKEY_ID=%s\nAPI_KEY=%s\n",
		c.Email, c.Password, c.KeyID, c.APIKey)
	return s.writeFile(credentialsFile, []byte(body), 0o600)
}

// LoadTokens reads the cached token pair, or nil when no usable pair exists.
func (s *Store) LoadTokens() (*TokenPair, error) {
	kv, err := s.readKV(tokensFile)
	if err != nil {
		return nil, err
	}
	pair := &TokenPair{
		AccessToken:  kv["ACCESS_TOKEN"],
		RefreshToken: kv["REFRESH_TOKEN"],
	}
	if pair.AccessToken == "" {
		return nil, nil
	}
	return pair, nil
}

// SaveTokens persists the token pair with owner-only permissions.
func (s *Store) SaveTokens(pair TokenPair) error {
	body := fmt.Sprintf("ACCESS_TOKEN=%s\nREFRESH_TOKEN=%s\n",
		pair.AccessToken, pair.RefreshToken)
	return s.writeFile(tokensFile, []byte(body), 0o600)
}

// ClearTokens removes the cached token pair. A missing file is fine.
func (s *Store) ClearTokens() error {
	err := os.Remove(s.path(tokensFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing token cache: %w", err)
	}
	return nil
}

// readKV parses a KEY=value file. Missing file yields an empty map.
func (s *Store) readKV(name string) (map[string]string, error) {
	kv := make(map[string]string)
	data, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return kv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		kv[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return kv, nil
}

// writeFile atomically replaces a state file: write to a temp file in the
// same directory, then rename over the target. Permissions are set before
// any secret bytes are written.
func (s *Store) writeFile(name string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(s.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", name, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("setting permissions on %s: %w", name, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, s.path(name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}
