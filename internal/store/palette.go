package store

// defaultPalette is written once when no color dictionary exists yet.
// Names are already in normalized form.
func defaultPalette() map[string]string {
	return map[string]string{
		"red":        "ff0000",
		"green":      "00ff00",
		"blue":       "0000ff",
		"white":      "ffffff",
		"yellow":     "ffff00",
		"orange":     "ffa500",
		"purple":     "800080",
		"pink":       "ffc0cb",
		"cyan":       "00ffff",
		"magenta":    "ff00ff",
		"lightgreen": "90ee90",
		"teal":       "008080",
		"lavender":   "e6e6fa",
		"gold":       "ffd700",
	}
}
