// Package render prints view snapshots for alertdeskctl as styled text,
// JSON or YAML.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"gopkg.in/yaml.v3"

	"github.com/platformbuilds/alertdesk/internal/models"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
}

type styles struct {
	title   lipgloss.Style
	heading lipgloss.Style
	label   lipgloss.Style
	muted   lipgloss.Style
	open    lipgloss.Style
	closed  lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title:   r.NewStyle().Bold(true),
		heading: r.NewStyle().Bold(true).Underline(true),
		label:   r.NewStyle().Foreground(lipgloss.Color("244")),
		muted:   r.NewStyle().Faint(true),
		open:    r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		closed:  r.NewStyle().Foreground(lipgloss.Color("34")).Bold(true),
		success: r.NewStyle().Foreground(lipgloss.Color("34")),
		failure: r.NewStyle().Foreground(lipgloss.Color("196")),
	}
}

// Printer writes snapshots to out in a fixed format.
type Printer struct {
	out     io.Writer
	format  Format
	profile termenv.Profile
	styles  styles
}

// NewPrinter builds a printer for out. Text output is styled for profile;
// termenv.Ascii gives plain text.
func NewPrinter(out io.Writer, format Format, profile termenv.Profile) *Printer {
	r := lipgloss.NewRenderer(out, termenv.WithProfile(profile))
	r.SetColorProfile(profile)
	return &Printer{
		out:     out,
		format:  format,
		profile: profile,
		styles:  newStyles(r),
	}
}

func (p *Printer) Incident(v models.IncidentView) error {
	if p.format != FormatText {
		return p.structured(v)
	}
	_, err := io.WriteString(p.out, p.incidentText(v))
	return err
}

func (p *Printer) Filters(v models.FilterTableView) error {
	if p.format != FormatText {
		return p.structured(v)
	}
	_, err := io.WriteString(p.out, p.filtersText(v))
	return err
}

func (p *Printer) Alerts(res models.PreviewResult) error {
	if p.format != FormatText {
		return p.structured(res)
	}
	_, err := io.WriteString(p.out, p.alertsText(res))
	return err
}

// structured goes through JSON first so YAML keys match the HTTP API.
func (p *Printer) structured(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if p.format == FormatJSON {
		_, err = fmt.Fprintf(p.out, "%s\n", data)
		return err
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	enc := yaml.NewEncoder(p.out)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return enc.Close()
}

func (p *Printer) incidentText(v models.IncidentView) string {
	var b strings.Builder
	s := p.styles

	state := s.open.Render("OPEN")
	if !v.Status.Open {
		state = s.closed.Render("CLOSED")
	}
	ack := s.muted.Render("not acked")
	if v.Status.Acked {
		ack = "acked"
	}
	fmt.Fprintf(&b, "%s  %s  %s\n", s.title.Render("Incident "+v.IncidentPK.String()), state, ack)

	d := v.Details
	p.field(&b, "Description", d.Description)
	p.field(&b, "Start", d.StartTime)
	if d.Duration != "" {
		p.field(&b, "Duration", d.Duration)
	}
	p.field(&b, "Source", d.Source)
	p.field(&b, "Details", p.link(d.DetailsURL.Text, d.DetailsURL.Href))
	ticket := v.Ticket.URL
	if ticket == "" {
		ticket = "–"
	} else {
		ticket = p.link(ticket, ticket)
	}
	p.field(&b, "Ticket", ticket)

	if len(v.Tags) > 0 {
		tags := make([]string, 0, len(v.Tags))
		for _, t := range v.Tags {
			tags = append(tags, p.link(t.Label, t.Href))
		}
		p.field(&b, "Tags", strings.Join(tags, ", "))
	}

	b.WriteString("\n" + s.heading.Render("Acknowledgements") + "\n")
	switch {
	case v.AcksLoading:
		b.WriteString(s.muted.Render("Loading...") + "\n")
	case len(v.Acks) == 0:
		b.WriteString(s.muted.Render("No acknowledgements") + "\n")
	default:
		rows := make([][]string, 0, len(v.Acks))
		for _, a := range v.Acks {
			rows = append(rows, []string{a.Username, a.Timestamp, a.Message, a.ExpiresMessage})
		}
		b.WriteString(p.table([]string{"User", "Timestamp", "Message", "Expiration"}, rows))
	}

	b.WriteString("\n" + s.heading.Render("Events") + "\n")
	switch {
	case v.EventsLoading:
		b.WriteString(s.muted.Render("Loading...") + "\n")
	case len(v.Events) == 0:
		b.WriteString(s.muted.Render("No events") + "\n")
	default:
		rows := make([][]string, 0, len(v.Events))
		for _, e := range v.Events {
			rows = append(rows, []string{e.Type, e.Username, e.Timestamp, e.Description})
		}
		b.WriteString(p.table([]string{"Type", "Actor", "Timestamp", "Description"}, rows))
	}

	if n := v.Notification; n != nil {
		b.WriteString("\n" + p.message(n.Message, n.Severity == models.SeveritySuccess) + "\n")
	}
	return b.String()
}

func (p *Printer) filtersText(v models.FilterTableView) string {
	var b strings.Builder
	s := p.styles

	switch {
	case v.Loading:
		b.WriteString(s.muted.Render("Loading...") + "\n")
	case v.LoadError != "":
		b.WriteString(p.message(v.LoadError, false) + "\n")
	case len(v.Rows) == 0:
		b.WriteString(s.muted.Render("No filters") + "\n")
	default:
		header := []string{"PK"}
		for _, c := range v.Columns {
			if c != "Actions" {
				header = append(header, c)
			}
		}
		rows := make([][]string, 0, len(v.Rows))
		for _, r := range v.Rows {
			if r.Error != "" {
				rows = append(rows, []string{r.PK.String(), r.Name, r.Error, "", "", ""})
				continue
			}
			rows = append(rows, []string{r.PK.String(), r.Name, r.Sources, r.ObjectTypes, r.ParentObjects, r.ProblemTypes})
		}
		b.WriteString(p.table(header, rows))
	}

	if v.Dialog.Open {
		b.WriteString("\n" + p.message(v.Dialog.Message, v.Dialog.Success) + "\n")
	}
	return b.String()
}

func (p *Printer) alertsText(res models.PreviewResult) string {
	if len(res.Alerts) == 0 {
		return p.styles.muted.Render("No matching alerts") + "\n"
	}
	rows := make([][]string, 0, len(res.Alerts))
	for _, a := range res.Alerts {
		rows = append(rows, []string{
			a.Timestamp.Format("2006-01-02 15:04:05"),
			a.Source.Name,
			a.Object.Name,
			a.ParentObject.Name,
			a.ProblemType.Name,
			a.Description,
		})
	}
	return p.table([]string{"Timestamp", "Source", "Object", "Parent object", "Problem type", "Description"}, rows)
}

func (p *Printer) field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", p.styles.label.Render(label+":"), value)
}

func (p *Printer) message(msg string, success bool) string {
	if success {
		return p.styles.success.Render("✓ " + msg)
	}
	return p.styles.failure.Render("✗ " + msg)
}

// link emits an OSC 8 hyperlink on capable terminals and "text <href>"
// otherwise.
func (p *Printer) link(text, href string) string {
	switch {
	case href == "":
		return text
	case p.profile != termenv.Ascii:
		return termenv.Hyperlink(href, text)
	case href == text:
		return text
	}
	return fmt.Sprintf("%s <%s>", text, href)
}

// table aligns plain cells with tabwriter and styles the header line
// afterwards so escape codes do not skew column widths.
func (p *Printer) table(header []string, rows [][]string) string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(w, strings.Join(r, "\t"))
	}
	w.Flush()

	lines := strings.SplitAfter(buf.String(), "\n")
	if len(lines) > 0 {
		lines[0] = p.styles.title.Render(strings.TrimRight(lines[0], "\n")) + "\n"
	}
	return strings.Join(lines, "")
}
