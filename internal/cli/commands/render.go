package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/term"

	"github.com/jeffladiray/forest-vercel-test/internal/action"
	"github.com/jeffladiray/forest-vercel-test/internal/server"
	"github.com/jeffladiray/forest-vercel-test/pkg/core"
)

// Output modes.
const (
	modeTable = "table"
	modeJSON  = "json"
)

// outputMode resolves "auto" to a table on terminals and JSON otherwise.
func outputMode(format string, w io.Writer) string {
	switch format {
	case modeTable, modeJSON:
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return modeTable
	}
	return modeJSON
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderRecords prints records with one column per field path.
func renderRecords(w io.Writer, mode string, columns []string, records []core.Record) error {
	if mode == modeJSON {
		if records == nil {
			records = []core.Record{}
		}
		return renderJSON(w, records)
	}

	if len(records) == 0 {
		_, _ = fmt.Fprintln(w, "(0 records)")
		return nil
	}

	t := newTable(w)
	header := make(table.Row, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	t.AppendHeader(header)
	for _, r := range records {
		row := make(table.Row, len(columns))
		for i, col := range columns {
			row[i] = formatValue(r.Value(col))
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d records)\n", len(records))
	return nil
}

// renderResult prints the outcome of an action.
func renderResult(w io.Writer, mode string, res action.Result) error {
	if mode == modeJSON {
		return renderJSON(w, res)
	}

	t := newTable(w)
	t.AppendRow(table.Row{"Result", string(res.Kind)})
	if res.Message != "" {
		t.AppendRow(table.Row{"Message", res.Message})
	}
	if res.HTML != "" {
		t.AppendRow(table.Row{"Details", htmlText(res.HTML)})
	}
	if len(res.Invalidated) > 0 {
		t.AppendRow(table.Row{"Invalidated", strings.Join(res.Invalidated, ", ")})
	}
	if res.Webhook != nil {
		t.AppendRow(table.Row{"Webhook", res.Webhook.Method + " " + res.Webhook.URL})
	}
	t.AppendRow(table.Row{"Invocation", res.InvocationID})
	t.Render()
	return nil
}

// renderForm prints the fields of an action form.
func renderForm(w io.Writer, mode string, form []action.FieldState) error {
	if mode == modeJSON {
		if form == nil {
			form = []action.FieldState{}
		}
		return renderJSON(w, form)
	}

	if len(form) == 0 {
		_, _ = fmt.Fprintln(w, "(no form)")
		return nil
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Label", "Type", "Required", "Read only", "Visible", "Value"})
	for _, f := range form {
		t.AppendRow(table.Row{f.Label, string(f.Type), f.Required, f.ReadOnly, f.Visible, formatValue(f.Value)})
	}
	t.Render()
	return nil
}

// renderCollections prints every field of every collection.
func renderCollections(w io.Writer, mode string, infos []server.CollectionInfo) error {
	if mode == modeJSON {
		return renderJSON(w, infos)
	}

	for _, info := range infos {
		_, _ = fmt.Fprintf(w, "%s\n", info.Name)
		t := newTable(w)
		t.AppendHeader(table.Row{"Field", "Kind", "Type", "Operators", "Sortable", "Writable", "Physical dependencies", "Computed from"})
		for _, f := range info.Fields {
			if f.Kind == "physical" {
				continue
			}
			ops := make([]string, len(f.Operators))
			for i, op := range f.Operators {
				ops[i] = string(op)
			}
			t.AppendRow(table.Row{f.Name, f.Kind, f.Type, strings.Join(ops, ", "), f.Sortable, f.Writable, strings.Join(f.Dependencies, ", "), strings.Join(f.ComputedFrom, ", ")})
		}
		t.Render()
		for _, a := range info.Actions {
			_, _ = fmt.Fprintf(w, "  action %q (%s)\n", a.Name, a.Scope)
		}
		_, _ = fmt.Fprintln(w)
	}
	return nil
}

// htmlText converts an action's HTML side effect to markdown for terminal
// output. Markup that cannot be converted is printed as is.
func htmlText(html string) string {
	md, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return html
	}
	return strings.TrimSpace(md)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", v)
}
