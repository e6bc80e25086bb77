package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/mail"
	"strings"

	"caretrack/internal/adapters/email"
	"caretrack/internal/domain/program"
	"caretrack/internal/domain/report"
)

// MaxReportRecipients caps the number of addresses per report email.
const MaxReportRecipients = 20

// SendProgramReportInput carries an already aggregated report and its recipients.
type SendProgramReportInput struct {
	ProgramName string
	Window      report.Range
	Series      []report.Series
	Workbook    []byte // optional XLSX attachment
	To          []string
	Note        string
	ActorID     string
}

// SendProgramReportDeps holds dependencies for SendProgramReport.
type SendProgramReportDeps struct {
	Sender email.Sender
}

var reportEmailTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"number": formatNumber,
}).Parse(`<h2>{{.ProgramName}}</h2>
<p>Report for {{.Start}} to {{.End}}</p>
{{if .Note}}<p>{{.Note}}</p>{{end}}
{{if not .Series}}<p>No numeric data was recorded in this period.</p>{{end}}
{{range .Series}}<h3>{{.Label}}</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Date</th><th>{{.Label}}</th></tr>
{{range .Points}}<tr><td>{{.Date}}</td><td>{{number .Value}}</td></tr>
{{end}}<tr><th>Total</th><th>{{number .Total}}</th></tr>
</table>
{{end}}`))

// ExecuteSendProgramReport renders a program report as HTML and emails it.
// PRE: Series came from report.Aggregate for Window
// POST: One email sent to all recipients, with the workbook attached when present
func ExecuteSendProgramReport(ctx context.Context, input SendProgramReportInput, deps SendProgramReportDeps) (email.SendResult, error) {
	if deps.Sender == nil {
		return email.SendResult{}, errNoSender
	}
	to, err := normalizeRecipients(input.To)
	if err != nil {
		return email.SendResult{}, err
	}

	var body bytes.Buffer
	err = reportEmailTemplate.Execute(&body, map[string]any{
		"ProgramName": input.ProgramName,
		"Start":       input.Window.StartDate(),
		"End":         input.Window.EndDate(),
		"Note":        strings.TrimSpace(input.Note),
		"Series":      input.Series,
	})
	if err != nil {
		return email.SendResult{}, fmt.Errorf("render report email: %w", err)
	}

	req := email.SendRequest{
		To:      to,
		Subject: fmt.Sprintf("%s report (%s to %s)", input.ProgramName, input.Window.StartDate(), input.Window.EndDate()),
		HTML:    body.String(),
	}
	if len(input.Workbook) > 0 {
		req.Attachments = []email.Attachment{{
			Filename:    ReportFilename(input.ProgramName, input.Window),
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     input.Workbook,
		}}
	}

	res, err := deps.Sender.Send(ctx, req)
	if err != nil {
		return email.SendResult{}, err
	}
	slog.Info("report_event", "event", "emailed", "program", input.ProgramName, "recipients", len(to), "message_id", res.MessageID, "by", input.ActorID)
	return res, nil
}

// ReportFilename builds a filesystem-safe XLSX name for a program report.
func ReportFilename(programName string, window report.Range) string {
	var b strings.Builder
	for _, r := range strings.ToLower(programName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "program"
	}
	return fmt.Sprintf("%s-%s-%s.xlsx", slug, window.StartDate(), window.EndDate())
}

func normalizeRecipients(raw []string) ([]string, error) {
	var out []string
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return nil, &program.ValidationError{Field: "Recipients", Value: r, Message: "must be an email address"}
		}
		out = append(out, addr.Address)
	}
	if len(out) == 0 {
		return nil, &program.ValidationError{Field: "Recipients", Message: "at least one recipient is required"}
	}
	if len(out) > MaxReportRecipients {
		return nil, &program.ValidationError{Field: "Recipients", Message: fmt.Sprintf("at most %d recipients are allowed", MaxReportRecipients)}
	}
	return out, nil
}

func formatNumber(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
	if s == "" || s == "-0" {
		return "0"
	}
	return s
}

// errNoSender is returned when the report email sender was never configured.
var errNoSender = errors.New("email sender is not configured")
