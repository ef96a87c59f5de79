// Package views renders the editor's HTML as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
)

// Row is one rendered change order.
type Row struct {
	Key    string
	Label  string
	Amount string
	Status int
}

// Editor is everything the editor panel shows.
type Editor struct {
	SessionID  string
	FieldID    string
	Title      string
	Notice     string
	Rows       []Row
	Statuses   []string
	CanAdd     bool
	Warning    string
	FlushError string
}

// FieldSummary is one line of the field index.
type FieldSummary struct {
	ID        string
	Bytes     int
	UpdatedAt time.Time
}

const styles = `body{font-family:system-ui,sans-serif;margin:2rem;color:#1f2937}
table{border-collapse:collapse;margin:1rem 0}td,th{padding:.4rem .8rem;border-bottom:1px solid #e5e7eb;text-align:left}
form.inline{display:inline}.notice{color:#6b7280;font-style:italic}
.error{background:#fef2f2;border:1px solid #fca5a5;padding:.6rem 1rem;margin:1rem 0}
dialog{border:2px solid #b91c1c;padding:1.5rem;max-width:32rem}dialog::backdrop{background:rgba(0,0,0,.4)}`

// Page wraps body in the HTML document shell.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		fmt.Fprintf(&b, `<title>%s</title><style>%s</style></head><body>`, esc(title), styles)
		if _, err := io.WriteString(w, b.String()); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// FieldIndex lists the stored fields with a form to open any field by id.
func FieldIndex(fields []FieldSummary) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<h1>Change order fields</h1>`)
		b.WriteString(`<form method="get" action="/fields/open"><label>Field id <input name="id" required maxlength="128"></label> <button type="submit">Open</button></form>`)
		if len(fields) == 0 {
			b.WriteString(`<p class="notice">No fields saved yet.</p>`)
			_, err := io.WriteString(w, b.String())
			return err
		}
		b.WriteString(`<table><thead><tr><th>Field</th><th>Size</th><th>Updated</th></tr></thead><tbody>`)
		for _, f := range fields {
			fmt.Fprintf(&b, `<tr><td><a href="/fields/%s">%s</a></td><td>%d B</td><td>%s</td></tr>`,
				esc(url.PathEscape(f.ID)), esc(f.ID), f.Bytes, f.UpdatedAt.UTC().Format(time.RFC3339))
		}
		b.WriteString(`</tbody></table>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

// EditorPanel renders the editor body. It is also the fragment returned to
// HTMX requests.
func EditorPanel(e Editor) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, editorHTML(e))
		return err
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<div class="error" role="alert"><strong>%s</strong>`, esc(message))
		if action != "" {
			fmt.Fprintf(&b, `<p>%s</p>`, esc(action))
		}
		if code != "" {
			fmt.Fprintf(&b, `<small>Error code: %s</small>`, esc(code))
		}
		b.WriteString(`</div>`)
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func editorHTML(e Editor) string {
	base := "/sessions/" + esc(e.SessionID)

	var b strings.Builder
	fmt.Fprintf(&b, `<section id="editor" data-session="%s">`, esc(e.SessionID))
	fmt.Fprintf(&b, `<p><a href="/">All fields</a> / %s</p>`, esc(e.FieldID))

	if e.Warning != "" {
		fmt.Fprintf(&b, `<dialog open id="corrupt-warning"><p>%s</p><form method="get" action="%s"><button type="submit" autofocus>OK</button></form></dialog>`,
			esc(e.Warning), base)
	}
	if e.FlushError != "" {
		fmt.Fprintf(&b, `<div class="error" role="alert">Last change was not saved: %s</div>`, esc(e.FlushError))
	}

	fmt.Fprintf(&b, `<h2>%s</h2>`, esc(e.Title))
	if e.Notice != "" {
		fmt.Fprintf(&b, `<p class="notice">%s</p>`, esc(e.Notice))
	}

	if len(e.Rows) > 0 {
		b.WriteString(`<table><tbody>`)
		for _, r := range e.Rows {
			rowBase := base + "/rows/" + esc(r.Key)
			fmt.Fprintf(&b, `<tr id="row-%s"><th>%s</th>`, esc(r.Key), esc(r.Label))
			fmt.Fprintf(&b, `<td><form class="inline" method="post" action="%s/amount"><input name="amount" value="%s" inputmode="decimal" aria-label="Amount"> <button type="submit">Save</button></form></td>`,
				rowBase, esc(r.Amount))
			fmt.Fprintf(&b, `<td><form class="inline" method="post" action="%s/status"><select name="status" aria-label="Status">`, rowBase)
			for i, label := range e.Statuses {
				selected := ""
				if i == r.Status {
					selected = " selected"
				}
				fmt.Fprintf(&b, `<option value="%s"%s>%s</option>`, strconv.Itoa(i), selected, esc(label))
			}
			b.WriteString(`</select> <button type="submit">Set</button></form></td>`)
			fmt.Fprintf(&b, `<td><form class="inline" method="post" action="%s/delete"><button type="submit">Delete</button></form></td></tr>`, rowBase)
		}
		b.WriteString(`</tbody></table>`)
	}

	disabled := ""
	if !e.CanAdd {
		disabled = " disabled"
	}
	fmt.Fprintf(&b, `<form class="inline" method="post" action="%s/orders"><button type="submit"%s>Add change order</button></form> `, base, disabled)
	fmt.Fprintf(&b, `<form class="inline" method="post" action="%s/reload"><button type="submit">Reload</button></form> `, base)
	fmt.Fprintf(&b, `<form class="inline" method="post" action="%s/close"><button type="submit">Close</button></form>`, base)
	b.WriteString(`</section>`)
	return b.String()
}

func esc(s string) string { return templ.EscapeString(s) }
