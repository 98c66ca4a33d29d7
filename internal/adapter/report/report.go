// Package report renders finalized sessions for human consumption. The
// HTTP layer has its own JSON shapes; this package serves the CLI and
// file outputs.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/iho/gorecon/internal/usecase"
)

// Format selects the rendering style.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Render writes the session to w in the requested format.
func Render(w io.Writer, s *usecase.Session, format Format) error {
	switch format {
	case FormatText:
		return renderText(w, s)
	case FormatJSON:
		return renderJSON(w, s)
	case FormatCSV:
		return renderCSV(w, s)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func renderText(w io.Writer, s *usecase.Session) error {
	p := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	p("Reconciliation session %s", s.ID)
	p("Stage: %s", s.Stage)
	p("Records: %d ledger, %d bank, %d rejected", s.Stats.LedgerTotal, s.Stats.BankTotal, s.Stats.RejectedCount)
	p("Match rate: %.1f%%", s.Stats.MatchRate*100)

	if s.Stats.Overflow {
		p("WARNING: comparison budget exceeded, %d pairs deferred", s.Stats.DeferredPairs)
	}

	p("")
	p("Matches (%d):", len(s.Matches))
	for _, m := range s.Matches {
		p("  %-10s %s <-> %s  confidence=%.2f variance=%s days=%d",
			m.Rule, m.Ledger.ID, m.Bank.ID, m.Confidence, m.Variance, m.DayDelta)
	}

	if len(s.Suggestions) > 0 {
		p("")
		p("Suggestions (%d):", len(s.Suggestions))
		for _, sg := range s.Suggestions {
			p("  %s <-> %s  confidence=%.2f variance=%s",
				sg.Ledger.ID, sg.Bank.ID, sg.Confidence, sg.Variance)
		}
	}

	if len(s.Exceptions) > 0 {
		p("")
		p("Exceptions (%d):", len(s.Exceptions))
		for _, exc := range s.Exceptions {
			line := fmt.Sprintf("  %-20s %s severity=%.2f  %s",
				exc.Category, exc.Record.ID, exc.Severity, exc.Detail)
			if exc.SplitHint != nil {
				line += fmt.Sprintf("  possible split of %d records totalling %s",
					len(exc.SplitHint.Components), exc.SplitHint.Total)
			}
			p("%s", line)
		}
	}

	if len(s.Rejections) > 0 {
		p("")
		p("Rejected (%d):", len(s.Rejections))
		for _, rej := range s.Rejections {
			p("  %s: %s", rej.Record.ID, rej.Reason)
		}
	}

	return nil
}

func renderJSON(w io.Writer, s *usecase.Session) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(view(s))
}

func renderCSV(w io.Writer, s *usecase.Session) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"kind", "ledger_id", "bank_id", "rule_or_category", "confidence_or_severity", "variance", "detail"}); err != nil {
		return err
	}

	for _, m := range s.Matches {
		if err := cw.Write([]string{
			"match", m.Ledger.ID, m.Bank.ID, string(m.Rule),
			formatFloat(m.Confidence), m.Variance.String(), "",
		}); err != nil {
			return err
		}
	}

	for _, sg := range s.Suggestions {
		if err := cw.Write([]string{
			"suggestion", sg.Ledger.ID, sg.Bank.ID, "",
			formatFloat(sg.Confidence), sg.Variance.String(), "",
		}); err != nil {
			return err
		}
	}

	for _, exc := range s.Exceptions {
		ledgerID, bankID := "", ""
		if exc.Record.Source == "bank" {
			bankID = exc.Record.ID
		} else {
			ledgerID = exc.Record.ID
		}

		if err := cw.Write([]string{
			"exception", ledgerID, bankID, string(exc.Category),
			formatFloat(exc.Severity), "", exc.Detail,
		}); err != nil {
			return err
		}
	}

	for _, rej := range s.Rejections {
		if err := cw.Write([]string{"rejected", rej.Record.ID, "", "", "", "", rej.Reason}); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
