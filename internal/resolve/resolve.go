// Package resolve classifies free-form command tokens into at most one
// color role and one brightness role.
package resolve

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dokzlo13/lumectl/internal/store"
)

// Resolution failure classifications for ambiguous argument sets.
var (
	ErrMultipleBrightness = errors.New("multiple brightness values")
	ErrMultipleColor      = errors.New("multiple color values")
)

// Command is the validated output of token resolution. Both fields are
// independently optional; neither set means "query current state".
type Command struct {
	Color         string // 6-hex-digit lowercase, empty when absent
	Brightness    int    // 0..100, meaningful only when HasBrightness
	HasBrightness bool
}

// Empty reports whether the command requests no change.
func (c Command) Empty() bool {
	return c.Color == "" && !c.HasBrightness
}

var (
	numericRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
	hexRe     = regexp.MustCompile(`^[0-9a-fA-F]{6}$`)
)

// IsHexLiteral reports whether s is a bare 6-hex-digit color literal.
func IsHexLiteral(s string) bool {
	return hexRe.MatchString(s)
}

// Resolve classifies tokens against the color dictionary. Numeric tokens
// are brightness, everything else is a color: either a bare 6-hex-digit
// literal or a dictionary name (normalized before lookup). Any ambiguity
// or validation failure aborts resolution with no partial result.
func Resolve(tokens []string, colors map[string]string) (Command, error) {
	var cmd Command
	for _, tok := range tokens {
		if numericRe.MatchString(tok) {
			if cmd.HasBrightness {
				return Command{}, ErrMultipleBrightness
			}
			value, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return Command{}, fmt.Errorf("invalid brightness %q: %w", tok, err)
			}
			rounded := int(math.Round(value))
			if rounded < 0 || rounded > 100 {
				return Command{}, fmt.Errorf("brightness %q out of range 0-100", tok)
			}
			cmd.Brightness = rounded
			cmd.HasBrightness = true
			continue
		}

		if cmd.Color != "" {
			return Command{}, ErrMultipleColor
		}
		hex, err := resolveColor(tok, colors)
		if err != nil {
			return Command{}, err
		}
		cmd.Color = hex
	}
	return cmd, nil
}

// resolveColor accepts a bare hex literal directly, otherwise looks the
// normalized token up in the dictionary.
func resolveColor(tok string, colors map[string]string) (string, error) {
	if hexRe.MatchString(tok) {
		return strings.ToLower(tok), nil
	}
	name := store.NormalizeColorName(tok)
	hex, ok := colors[name]
	if !ok {
		return "", fmt.Errorf("unknown color %q", tok)
	}
	return hex, nil
}
