package config

import (
	"fmt"
	"strings"
)

// Quantization levels accepted by the model loader. Anything else is a
// configuration error reported before any model work starts.
const (
	QuantizeNone = "none"
	Quantize4    = "4"
	Quantize8    = "8"
)

// NormalizeQuantize canonicalizes a quantization setting. The empty string
// and "none" both mean full precision. Returns the canonical string and the
// bit width (0 for none).
func NormalizeQuantize(raw string) (string, int, error) {
	q := strings.ToLower(strings.TrimSpace(raw))
	switch q {
	case "", QuantizeNone:
		return QuantizeNone, 0, nil
	case Quantize4, "4-bit", "4bit":
		return Quantize4, 4, nil
	case Quantize8, "8-bit", "8bit":
		return Quantize8, 8, nil
	default:
		return "", 0, fmt.Errorf(
			"invalid quantization %q (expected %s|%s|%s)",
			raw,
			QuantizeNone,
			Quantize4,
			Quantize8,
		)
	}
}
