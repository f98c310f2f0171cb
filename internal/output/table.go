package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Mrutyunjaya98Gouda/CyberEye/internal/engine"
)

// WriteTable renders the subdomain records as a risk-ranked terminal
// table, highest risk first.
func WriteTable(w io.Writer, result *engine.ScanResult, noColor bool) {
	if len(result.Records) == 0 {
		fmt.Fprintln(w, "\nNo subdomains with DNS presence discovered.")
		return
	}

	recs := make([]engine.SubdomainRecord, len(result.Records))
	copy(recs, result.Records)
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].RiskScore != recs[j].RiskScore {
			return recs[i].RiskScore > recs[j].RiskScore
		}
		return recs[i].Name < recs[j].Name
	})

	var rows [][]string
	for i := range recs {
		r := &recs[i]
		rows = append(rows, []string{
			fmt.Sprintf("%d", r.RiskScore),
			r.Name,
			r.Status,
			statusCell(r.HTTPStatus, r.HTTPSStatus),
			r.CloudProvider,
			flagsCell(r),
			truncate(strings.Join(r.Technologies, ", "), 40),
		})
	}

	headerStyle := lipgloss.NewStyle().Bold(true)
	highStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	medStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	plain := lipgloss.NewStyle()

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RISK", "SUBDOMAIN", "STATUS", "HTTP/HTTPS", "CLOUD", "FLAGS", "TECH").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if noColor || col != 0 {
				return plain
			}
			score := recs[row].RiskScore
			switch {
			case score >= 50:
				return highStyle
			case score >= 25:
				return medStyle
			default:
				return plain
			}
		})

	fmt.Fprintln(w, t.Render())
}

func statusCell(httpStatus, httpsStatus int) string {
	h := "-"
	if httpStatus != 0 {
		h = fmt.Sprintf("%d", httpStatus)
	}
	hs := "-"
	if httpsStatus != 0 {
		hs = fmt.Sprintf("%d", httpsStatus)
	}
	return h + "/" + hs
}

func flagsCell(r *engine.SubdomainRecord) string {
	var flags []string
	if r.TakeoverVerified {
		flags = append(flags, "takeover!")
	} else if r.TakeoverVulnerable {
		flags = append(flags, "takeover?")
	}
	if r.IsAnomaly {
		flags = append(flags, "anomaly:"+r.AnomalyReason)
	}
	return strings.Join(flags, " ")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
