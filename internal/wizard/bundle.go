package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/goblinlaunch/goblinbot/core/logger"
)

// tryBundle is a fast path for power users who paste several answers at
// once at the name step, one per line:
//
//	Goblin Coin
//	GOB
//	A coin for goblins
//	0.05
//
// The first line is the name, the second the symbol. Remaining lines are
// classified by shape: a decimal is the buy-in, a URL is the image, anything
// else is the description. When the first two lines don't form a valid
// name/symbol pair the text is handed back to the normal single-step path.
func (m *Machine) tryBundle(ctx context.Context, in Inbound, snap Session, text string) (bool, error) {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) < 2 {
		return false, nil
	}

	nameVal, reason, err := Validate(StepName, lines[0], m.cfg.Limits)
	if err != nil || reason != "" {
		return false, nil
	}
	symVal, reason, err := Validate(StepSymbol, lines[1], m.cfg.Limits)
	if err != nil || reason != "" {
		return false, nil
	}

	fields := snap.Fields
	fields.TokenName = nameVal.Text
	fields.TokenSymbol = symVal.Text

	for _, line := range lines[2:] {
		switch {
		case isDecimal(line):
			val, reason, err := Validate(StepBuyIn, line, m.cfg.Limits)
			if err != nil {
				return false, nil
			}
			if reason != "" {
				_, serr := m.send.Send(ctx, snap.ChatID, reason, nil)
				return true, serr
			}
			fields.BuyInEth = Of(val.Amount)
		case isURL(line):
			fields.Image = Of(ImageRef{URL: line})
		default:
			val, reason, err := Validate(StepDescription, line, m.cfg.Limits)
			if err != nil {
				return false, nil
			}
			if reason != "" {
				_, serr := m.send.Send(ctx, snap.ChatID, reason, nil)
				return true, serr
			}
			if val.Skip {
				fields.Description = Skipped[string]()
			} else {
				fields.Description = Of(val.Text)
			}
		}
	}

	next := bundleNext(fields)

	moved := false
	m.cache.Update(in.UserID, func(s *Session) {
		if s.Step != StepName {
			return
		}
		s.Fields = fields
		s.Step = next
		moved = true
	})
	if !moved {
		return true, nil
	}

	logger.Info(ctx, "wizard", "bundle.applied",
		slog.Int64("user_id", in.UserID),
		slog.Int("lines", len(lines)),
		slog.String("next", string(next)),
	)

	m.persist(ctx, in.UserID, next, fields)

	summary := fmt.Sprintf("⚡ Got it! Name: %s, Ticker: %s.", fields.TokenName, fields.TokenSymbol)
	if _, err := m.send.Send(ctx, snap.ChatID, summary, nil); err != nil {
		return true, err
	}
	return true, m.promptStep(ctx, snap.ChatID, in.UserID, next)
}

// bundleNext picks the first step the bundle did not answer.
func bundleNext(f Fields) Step {
	switch {
	case !f.Image.Answered:
		return StepImage
	case !f.Description.Answered:
		return StepDescription
	case !f.BuyInEth.Answered:
		return StepBuyIn
	}
	return StepWalletChoice
}

func isDecimal(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") ||
		strings.HasPrefix(s, "https://") ||
		strings.HasPrefix(s, "ipfs://")
}
