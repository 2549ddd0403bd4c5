package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/ArmandoRuiz13/registro/internal/core"
)

// DeleteParams is the confirmation step of a row deletion.
type DeleteParams struct {
	Pending core.PendingDelete
	Base    string // URL prefix of the sheet, e.g. /orders
	Back    string // page to return to
}

// DeleteConfirmPage shows the captured row and asks for confirmation.
func DeleteConfirmPage(layout LayoutParams, p DeleteParams) templ.Component {
	return Layout(layout, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		pd := p.Pending

		h.rawf(`<p>¿Eliminar la fila %s de <strong>%s</strong>? Esta acción no se puede deshacer.</p>`,
			esc(strconv.Itoa(pd.Row+1)), esc(pd.Sheet))
		h.raw(`<table class="preview">`)
		for _, col := range pd.Columns {
			h.rawf(`<tr><th>%s</th><td>%s</td></tr>`, esc(col), esc(pd.Preview[col]))
		}
		h.raw(`</table>`)
		h.rawf(`<p><small>La confirmación vence a las %s.</small></p>`, esc(pd.ExpiresAt.Format("15:04:05")))

		action := p.Base + "/delete/" + pd.Token
		h.rawf(`<form method="post" action="%s" class="inline"><button type="submit" class="danger">Sí, eliminar</button></form>`, esc(action))
		h.rawf(`<form method="post" action="%s" class="inline"><button type="submit">Cancelar</button></form>`, esc(action+"/cancel"))
		h.rawf(`<p><a href="%s">Volver</a></p>`, esc(p.Back))
		return h.err
	}))
}
