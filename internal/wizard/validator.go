package wizard

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Limits carries the configurable validation bounds.
type Limits struct {
	MinBuyInEth float64
	MaxBuyInEth float64
}

// Value is a normalized validator result for one step.
type Value struct {
	Text   string  // normalized text (name, symbol, description, address)
	Skip   bool    // explicit skip on an optional step
	Amount float64 // parsed buy-in amount
}

// ErrBadStep signals a step outside the validator's input set. This is a
// programmer or corrupted-state error, not a user mistake.
var ErrBadStep = fmt.Errorf("wizard: step does not accept text input")

const (
	nameMinLen = 3
	nameMaxLen = 50
	descMaxLen = 500

	// ImageMaxBytes caps uploaded token images.
	ImageMaxBytes = 5 * 1024 * 1024
)

var (
	nameRe    = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
	symbolRe  = regexp.MustCompile(`^[A-Z]{2,10}$`)
	addressRe = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
	htmlTagRe = regexp.MustCompile(`<[^>]*>`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// allowed image MIME kinds, matching what the deployer accepts.
var imageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/gif":  {},
}

// Sanitize strips markup, non-ASCII runes, and control characters, then
// collapses whitespace. Sanitization runs before validation so limits apply
// to what will actually be stored.
func Sanitize(input string) string {
	s := htmlTagRe.ReplaceAllString(input, "")
	s = strings.ReplaceAll(s, "<", "")
	s = strings.ReplaceAll(s, ">", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r > 0x7F || r < 0x20 || r == 0x7F {
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(spaceRe.ReplaceAllString(b.String(), " "))
}

// IsSkip reports whether raw is the skip keyword for optional steps.
func IsSkip(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "skip")
}

// Validate checks raw text input for the given step and returns the
// normalized value, or a non-empty rejection reason the user can act on.
// Malformed input is never an error; only a step outside the text-input set
// returns ErrBadStep.
func Validate(step Step, raw string, lim Limits) (Value, string, error) {
	switch step {
	case StepName:
		name := Sanitize(raw)
		if reason := checkName(name); reason != "" {
			return Value{}, reason, nil
		}
		return Value{Text: name}, "", nil

	case StepSymbol:
		sym := strings.ToUpper(Sanitize(raw))
		if !symbolRe.MatchString(sym) {
			return Value{}, "Ticker must be 2-10 letters (A-Z only).", nil
		}
		return Value{Text: sym}, "", nil

	case StepImage:
		if IsSkip(raw) {
			return Value{Skip: true}, "", nil
		}
		return Value{}, "Please send a valid image file (JPG, PNG, GIF) or type \"skip\".", nil

	case StepDescription:
		if IsSkip(raw) {
			return Value{Skip: true}, "", nil
		}
		desc := Sanitize(raw)
		if over := len(desc) - descMaxLen; over > 0 {
			return Value{}, fmt.Sprintf(
				"Description too long. You used %d characters (%d over the limit). Please shorten it to %d characters or less.",
				len(desc), over, descMaxLen,
			), nil
		}
		return Value{Text: desc}, "", nil

	case StepBuyIn:
		if IsSkip(raw) {
			return Value{Skip: true}, "", nil
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		// ParseFloat accepts "nan" and "inf", and NaN slips past range
		// comparisons.
		if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) ||
			amount < lim.MinBuyInEth || amount > lim.MaxBuyInEth {
			return Value{}, fmt.Sprintf(
				"Invalid amount. Enter %v-%v ETH or type skip.",
				lim.MinBuyInEth, lim.MaxBuyInEth,
			), nil
		}
		return Value{Amount: amount}, "", nil

	case StepWalletAddress:
		addr := strings.TrimSpace(raw)
		if !addressRe.MatchString(addr) {
			return Value{}, "Invalid wallet address format. Please enter a valid Ethereum address (0x...).", nil
		}
		return Value{Text: addr}, "", nil
	}

	return Value{}, "", fmt.Errorf("%w: %q", ErrBadStep, step)
}

func checkName(name string) string {
	if name == "" {
		return "Token name is required."
	}
	if len(name) < nameMinLen || len(name) > nameMaxLen {
		return "Token name must be 3-50 characters long and contain only letters, numbers, spaces, hyphens, and underscores."
	}
	if !nameRe.MatchString(name) {
		return "Token name must be 3-50 characters long and contain only letters, numbers, spaces, hyphens, and underscores."
	}
	return ""
}

// ValidateImage checks an inbound attachment's MIME kind and size. It
// returns a retry reason, or empty when the attachment is acceptable.
func ValidateImage(mime string, size int64) string {
	if size > ImageMaxBytes {
		return "File size must be 5MB or less."
	}
	if mime != "" {
		if _, ok := imageMIMEs[strings.ToLower(mime)]; !ok {
			return "Only JPG, PNG, and GIF files are allowed."
		}
	}
	return ""
}

// ValidateAddress reports whether addr is a 0x-prefixed 20-byte hex address.
func ValidateAddress(addr string) bool {
	return addressRe.MatchString(strings.TrimSpace(addr))
}
