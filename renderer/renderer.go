// Package renderer formats ledger reports as markdown.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/etnz/tally"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	"sek":       SEK,
	"units":     func(d decimal.Decimal) string { return d.String() },
	"timestamp": func(t time.Time) string { return t.Local().Format("2006-01-02 15:04") },
}

// SEK formats an amount in the home currency, rounded to the öre.
func SEK(d decimal.Decimal) string {
	cur := money.GetCurrency(tally.Home)
	return cur.Formatter().Format(d.Shift(int32(cur.Fraction)).Round(0).IntPart())
}

// Snapshot renders the open positions.
func Snapshot(positions []tally.Position) string {
	return renderTemplate("snapshot.md", positions)
}

// Transactions renders the log.
func Transactions(txs []tally.Transaction) string {
	return renderTemplate("transactions.md", txs)
}

// Valuation renders a valuation report, one line per position.
func Valuation(r tally.Report) string {
	return renderTemplate("valuation.md", r)
}

// renderTemplate renders an embedded template.
func renderTemplate(file string, data any) string {
	content, err := fs.ReadFile(templates, "templates/"+file)
	if err != nil {
		return fmt.Sprintf("error reading template %q: %v", file, err)
	}
	tmpl, err := template.New(file).Funcs(funcs).Parse(string(content))
	if err != nil {
		return fmt.Sprintf("error parsing template %q: %v", file, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", file, err)
	}
	return b.String()
}
