package perfdiff

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/olekukonko/tablewriter"
)

// WriteMarkdown renders d as a Markdown document.
func WriteMarkdown(w io.Writer, d RunDiff) error {
	md := markdown.NewMarkdown(w)
	md.H1(fmt.Sprintf("Performance comparison: %s", d.Suite))
	md.PlainText("")
	md.PlainTextf("Base run %s, head run %s.", markdown.Code(d.BaseRunID), markdown.Code(d.HeadRunID))
	md.PlainText("")

	switch d.Verdict {
	case VerdictRegressed, VerdictMixed:
		md.Warning(d.Summary)
	case VerdictImproved:
		md.Tip(d.Summary)
	default:
		md.Note(d.Summary)
	}
	md.PlainText("")

	if len(d.Pages) > 0 {
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Before", "After", "Delta", "Change", "Verdict"},
			Rows:   pageRows(d),
		})
		md.PlainText("")
	}

	for _, p := range d.Pages {
		if p.StatusChanged() {
			md.Importantf("%s changed from %s to %s.", p.Title, p.BeforeStatus, p.AfterStatus)
			md.PlainText("")
		}
		rows := resourceRows(p.Resources)
		if len(rows) == 0 {
			continue
		}
		md.H2(p.Title)
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Resource", "Change", "Before", "After", "Delta"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(d.OnlyInBase) > 0 || len(d.OnlyInHead) > 0 {
		md.H2("Unmatched pages")
		md.PlainText("")
		items := make([]string, 0, len(d.OnlyInBase)+len(d.OnlyInHead))
		for _, t := range d.OnlyInBase {
			items = append(items, "only in base: "+markdown.Link(t.Title, t.URL))
		}
		for _, t := range d.OnlyInHead {
			items = append(items, "only in head: "+markdown.Link(t.Title, t.URL))
		}
		md.BulletList(items...)
	}
	return md.Build()
}

// WriteText renders d as a terminal table.
func WriteText(w io.Writer, d RunDiff) error {
	if _, err := fmt.Fprintf(w, "%s: %s -> %s\n%s\n\n", d.Suite, d.BaseRunID, d.HeadRunID, d.Summary); err != nil {
		return err
	}
	if len(d.Pages) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Page", "Before", "After", "Delta", "Change", "Verdict")
	if err := table.Bulk(pageRows(d)); err != nil {
		return err
	}
	return table.Render()
}

func pageRows(d RunDiff) [][]string {
	rows := make([][]string, len(d.Pages))
	for i, p := range d.Pages {
		rows[i] = []string{
			p.Title,
			formatMs(p.LoadTime.Before),
			formatMs(p.LoadTime.After),
			signedMs(p.LoadTime.Delta),
			p.LoadTime.Pct,
			string(p.LoadTime.Verdict),
		}
	}
	return rows
}

func resourceRows(r ResourceDiff) [][]string {
	var rows [][]string
	add := func(kind string, changes []ResourceChange) {
		for _, c := range changes {
			rows = append(rows, []string{
				markdown.Code(c.Name),
				kind,
				formatMs(c.Duration.Before),
				formatMs(c.Duration.After),
				signedMs(c.Duration.Delta),
			})
		}
	}
	add("retimed", r.Retimed)
	add("added", r.Added)
	add("removed", r.Removed)
	return rows
}

func formatMs(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 1, 64) + " ms"
}

func signedMs(ms float64) string {
	return fmt.Sprintf("%+.1f ms", ms)
}
