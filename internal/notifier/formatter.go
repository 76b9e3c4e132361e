package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"MarketScout/internal/model"
)

// maxMessageLen keeps reports under Telegram's 4096 character limit.
const maxMessageLen = 4000

// FormatResearchReport formats a research table into a Telegram message, one
// block per symbol. Symbols that do not fit are counted at the end.
func FormatResearchReport(t *model.Table, day time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>MarketScout research</b> | %s\n\n", day.Format("2006-01-02")))

	if t.Empty() {
		b.WriteString("No symbol could be researched.")
		return b.String()
	}

	for i, sym := range t.Index {
		block := researchBlock(t, sym)
		if b.Len()+len(block) > maxMessageLen {
			b.WriteString(fmt.Sprintf("… and %d more", t.Len()-i))
			break
		}
		b.WriteString(block)
	}
	return b.String()
}

func researchBlock(t *model.Table, sym string) string {
	get := func(col string) string { return cell(t.Get(sym, col)) }

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>%s</b>", html.EscapeString(sym)))
	if rec := t.Get(sym, model.ColRecommendation); !rec.IsNull() {
		b.WriteString(" · " + html.EscapeString(rec.String()))
	}
	b.WriteString("\n<pre>")
	b.WriteString(fmt.Sprintf("52w %-7s tgt %-7s beta %s\n",
		get(model.Col52WeekChange), get(model.ColForwardTargetDiff), get(model.ColBeta)))
	b.WriteString(fmt.Sprintf("P/S %-7s PE  %-7s fPE  %s\n",
		get(model.ColPriceToSales), get(model.ColTrailingPE), get(model.ColForwardPE)))
	b.WriteString(fmt.Sprintf("ROE %-7s D/E %-7s EBITDA %s",
		get(model.ColReturnOnEquity), get(model.ColDebtToEquity), get(model.ColEbitdaMargins)))
	b.WriteString("</pre>\n\n")
	return b.String()
}

// FormatQuoteTable formats quote metrics, one line per company.
func FormatQuoteTable(t *model.Table) string {
	if t.Empty() {
		return "No quote data."
	}
	var b strings.Builder
	b.WriteString("💹 <b>Quotes</b> (sorted by P/S)\n<pre>")
	b.WriteString(fmt.Sprintf("%-8s %8s %7s %7s %7s\n", "52w%", "price", "P/S", "PE", "fPE"))
	for _, name := range t.Index {
		get := func(col string) string { return cell(t.Get(name, col)) }
		b.WriteString(html.EscapeString(name) + "\n")
		b.WriteString(fmt.Sprintf("%-8s %8s %7s %7s %7s\n",
			get(model.QuoteChange52w), get(model.QuotePrice), get(model.QuotePSTTM),
			get(model.QuotePETTM), get(model.QuotePEFwd)))
	}
	b.WriteString("</pre>")
	return b.String()
}

func cell(v model.Value) string {
	if f, ok := v.Float(); ok {
		return fmt.Sprintf("%.2f", f)
	}
	if v.IsNull() {
		return "-"
	}
	return v.String()
}
