package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// html writes markup and keeps the first write error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// text writes s escaped.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

// rawf formats into markup. Every string argument must already be escaped.
func (h *html) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(ctx, h.w)
}

var esc = templ.EscapeString[string]

// NavItem is one entry of the top navigation.
type NavItem struct {
	Label string
	Path  string
}

// LayoutParams configures the page shell.
type LayoutParams struct {
	Title  string
	Active string // path of the current page
	Nav    []NavItem
	Flash  string
	Error  *Alert
}

// Alert is a user-facing error with its support code.
type Alert struct {
	Message string
	Action  string
	Code    string
}

// Layout wraps body in the page shell with the navigation bar.
func Layout(p LayoutParams, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.rawf(`<title>%s · Registro</title>`, esc(p.Title))
		h.raw(`<link rel="stylesheet" href="/static/app.css"></head><body>`)

		h.raw(`<nav class="nav">`)
		for _, item := range p.Nav {
			class := ""
			if item.Path == p.Active {
				class = ` class="active"`
			}
			h.rawf(`<a href="%s"%s>%s</a>`, esc(item.Path), class, esc(item.Label))
		}
		h.raw(`</nav><main>`)

		h.rawf(`<h1>%s</h1>`, esc(p.Title))
		if p.Flash != "" {
			h.rawf(`<div class="flash">%s</div>`, esc(p.Flash))
		}
		if p.Error != nil {
			h.render(ctx, ErrorAlert(p.Error.Message, p.Error.Action, p.Error.Code))
		}

		h.render(ctx, body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

// ErrorAlert renders an error box. It is also returned on its own to HTMX
// requests.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		h.raw(`<div class="alert" role="alert">`)
		h.rawf(`<strong>%s</strong>`, esc(message))
		if action != "" {
			h.rawf(` <span>%s</span>`, esc(action))
		}
		if code != "" {
			h.rawf(` <small>(%s)</small>`, esc(code))
		}
		h.raw(`</div>`)
		return h.err
	})
}

// selectBox renders a <select> with value preselected.
func selectBox(h *html, name string, options []string, value string) {
	h.rawf(`<select name="%s">`, esc(name))
	for _, o := range options {
		sel := ""
		if o == value {
			sel = " selected"
		}
		h.rawf(`<option value="%s"%s>%s</option>`, esc(o), sel, esc(o))
	}
	h.raw(`</select>`)
}

// input renders a labelled text input.
func input(h *html, label, name, value, kind string) {
	h.rawf(`<label>%s <input type="%s" name="%s" value="%s"`, esc(label), esc(kind), esc(name), esc(value))
	if kind == "number" {
		h.raw(` step="any" min="0"`)
	}
	h.raw(`></label>`)
}
