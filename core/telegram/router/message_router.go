package router

import (
	"time"

	tg "github.com/goblinlaunch/goblinbot/core/telegram"
	"github.com/goblinlaunch/goblinbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Wizard defines the minimal interface for a conversation session manager.
type Wizard interface {
	InProgress(userID int64) bool
	HandleText(c tele.Context) error
	HandlePhoto(c tele.Context) error
	HandleWebApp(c tele.Context) error
}

// TextOptions controls fallback behaviour for text/photo updates.
type TextOptions struct {
	UnknownText  tele.HandlerFunc
	UnknownPhoto tele.HandlerFunc
}

// TextRoutes builds handlers for text, photo, and web-app data routing.
// Text input is first offered to the wizard (if the sender has an active
// session), then to registered commands, then to the registry fallback.
func TextRoutes(wiz Wizard, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if wiz != nil && wiz.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "wizard", start, "", "", func() error {
				return wiz.HandleText(c)
			})
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(text); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	photoHandler := func(c tele.Context) error {
		start := time.Now()
		if wiz != nil && wiz.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "wizard_photo", start, "", "", func() error {
				return wiz.HandlePhoto(c)
			})
		}
		if opts.UnknownPhoto != nil {
			return handleWithSummary(c, "unexpected_photo", start, "", "", func() error {
				return opts.UnknownPhoto(c)
			})
		}
		logHandlerSummary(c, "unexpected_photo", start, "skip", "ok", nil)
		return nil
	}

	webAppHandler := func(c tele.Context) error {
		start := time.Now()
		if wiz != nil && wiz.InProgress(c.Sender().ID) {
			return handleWithSummary(c, "wizard_webapp", start, "", "", func() error {
				return wiz.HandleWebApp(c)
			})
		}
		logHandlerSummary(c, "unexpected_webapp", start, "skip", "ok", nil)
		return nil
	}

	// Documents are routed through the photo path so the wizard can reject
	// them with a retry prompt at the image step.
	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnPhoto,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(photoHandler)),
		},
		{
			Endpoint: tele.OnWebApp,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(webAppHandler)),
		},
	}
}
