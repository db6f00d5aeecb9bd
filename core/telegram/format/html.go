// Package format holds text helpers for messages sent with Telegram's
// HTML parse mode.
package format

import (
	"fmt"
	"html"
)

// EscapeHTML escapes user-supplied text so it is safe to interpolate into
// an HTML-mode message.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Code wraps a value in a <code> span. The value is escaped.
func Code(text string) string {
	return "<code>" + html.EscapeString(text) + "</code>"
}

// Bold wraps a value in <b> tags. The value is escaped.
func Bold(text string) string {
	return "<b>" + html.EscapeString(text) + "</b>"
}

// Link renders an <a> tag with an escaped label.
func Link(url, label string) string {
	return fmt.Sprintf(`<a href="%s">%s</a>`, url, html.EscapeString(label))
}
