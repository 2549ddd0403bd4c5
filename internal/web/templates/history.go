package templates

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/ArmandoRuiz13/registro/internal/core"
)

// HistoryFilter is the filter form of the history page, as typed.
type HistoryFilter struct {
	Sheet  string
	Action string
	From   string // 2006-01-02
	To     string
}

// Query encodes the filter as URL query parameters.
func (f HistoryFilter) Query() url.Values {
	q := url.Values{}
	for k, v := range map[string]string{"sheet": f.Sheet, "action": f.Action, "from": f.From, "to": f.To} {
		if v != "" {
			q.Set(k, v)
		}
	}
	return q
}

// HistoryParams is everything the history page renders.
type HistoryParams struct {
	Entries []core.AuditEntry
	Filter  HistoryFilter
	Sheets  []string
	Actions []string
	Page    int
	HasNext bool
}

// HistoryPage renders the change journal with filters and pagination.
func HistoryPage(layout LayoutParams, p HistoryParams) templ.Component {
	return Layout(layout, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}

		h.raw(`<form method="get" action="/historial" class="form filters"><label>Hoja `)
		selectBox(h, "sheet", append([]string{""}, p.Sheets...), p.Filter.Sheet)
		h.raw(`</label><label>Acción `)
		selectBox(h, "action", append([]string{""}, p.Actions...), p.Filter.Action)
		h.raw(`</label>`)
		input(h, "Desde", "from", p.Filter.From, "date")
		input(h, "Hasta", "to", p.Filter.To, "date")
		h.raw(`<button type="submit">Filtrar</button></form>`)

		if len(p.Entries) == 0 {
			h.raw(`<p>Sin movimientos.</p>`)
		} else {
			h.raw(`<div class="grid"><table><thead><tr>`)
			for _, c := range []string{"Fecha", "Acción", "Severidad", "Hoja", "Fila", "Columna", "Antes", "Después", "Detalle", "IP"} {
				h.rawf(`<th>%s</th>`, esc(c))
			}
			h.raw(`</tr></thead><tbody>`)
			for _, e := range p.Entries {
				row := ""
				if e.Row >= 0 {
					row = strconv.Itoa(e.Row + 1)
				}
				h.rawf(`<tr class="sev-%s">`, esc(string(e.Severity)))
				for _, v := range []string{e.CreatedAt.Format("2006-01-02 15:04:05"), string(e.Action), string(e.Severity),
					e.Sheet, row, e.Column, e.OldValue, e.NewValue, e.Detail, e.IPAddress} {
					h.rawf(`<td>%s</td>`, esc(v))
				}
				h.raw(`</tr>`)
			}
			h.raw(`</tbody></table></div>`)
		}

		q := p.Filter.Query()
		h.raw(`<nav class="pager">`)
		if p.Page > 1 {
			q.Set("page", strconv.Itoa(p.Page-1))
			h.rawf(`<a href="/historial?%s">Anterior</a> `, esc(q.Encode()))
		}
		if p.HasNext {
			q.Set("page", strconv.Itoa(p.Page+1))
			h.rawf(`<a href="/historial?%s">Siguiente</a>`, esc(q.Encode()))
		}
		h.raw(`</nav>`)

		export := p.Filter.Query()
		h.rawf(`<p><a href="/api/history/export?%s">Exportar CSV</a></p>`, esc(export.Encode()))
		return h.err
	}))
}

// ImportParams is the outcome of a CSV import.
type ImportParams struct {
	Result core.ImportResult
	Back   string
}

// ImportResultPage summarises an import: rows added, skipped and rejected.
func ImportResultPage(layout LayoutParams, p ImportParams) templ.Component {
	return Layout(layout, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		r := p.Result

		h.rawf(`<p>Filas agregadas a <strong>%s</strong>: %d. Filas vacías: %d. Rechazadas: %d.</p>`,
			esc(r.Sheet), r.Inserted, r.Skipped, len(r.Failed))
		if len(r.Ignored) > 0 {
			h.raw(`<p>Columnas ignoradas:`)
			for _, c := range r.Ignored {
				h.rawf(` <code>%s</code>`, esc(c))
			}
			h.raw(`</p>`)
		}
		if len(r.Failed) > 0 {
			h.raw(`<table><thead><tr><th>Línea</th><th>Motivo</th></tr></thead><tbody>`)
			for _, f := range r.Failed {
				h.rawf(`<tr><td>%d</td><td>%s</td></tr>`, f.Line, esc(f.Reason))
			}
			h.raw(`</tbody></table>`)
		}
		h.rawf(`<p><a href="%s">Volver</a></p>`, esc(p.Back))
		return h.err
	}))
}
