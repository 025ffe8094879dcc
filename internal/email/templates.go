package email

import (
	"bytes"
	"html/template"
	"time"

	"briefme/internal/core"
)

// The templates stay table-free and inline-styled so they render the
// same across major email clients.

var ownerDigestTmpl = template.Must(template.New("owner_digest").Parse(`
<h2>{{.WorkspaceName}}: Daily Brief</h2>
<p>Here is your daily BriefMe update:</p>
<ul style="padding-left:18px;">
{{- range .Items}}
  <li style="margin-bottom:18px;">
    <div style="font-weight:700;margin-bottom:6px;">{{.Title}}</div>
    <div style="line-height:1.45;">{{.Summary}}</div>
  </li>
{{- end}}
</ul>
<p><a href="{{.DashboardURL}}">Open full dashboard digest</a></p>
`))

var clientDigestTmpl = template.Must(template.New("client_digest").Parse(`
<h2>{{.ClientName}} · Daily Brief</h2>
<p>Workspace: {{.WorkspaceName}}</p>
<div style="line-height:1.45;">{{.Summary}}</div>
<p><a href="{{.DashboardURL}}">Open full dashboard digest</a></p>
`))

var signupSummaryTmpl = template.Must(template.New("signup_summary").Parse(`
<h2>BriefMe beta signups: daily summary</h2>
<p>Window: {{.Window}}</p>
<p>Total new signups: <strong>{{.Count}}</strong></p>
<ul>
{{- if .Signups}}
{{- range .Signups}}
  <li><strong>{{.Email}}</strong> <span style="color:#64748b;">({{.CreatedAt}})</span></li>
{{- end}}
{{- else}}
  <li>No new signups in this period.</li>
{{- end}}
</ul>
<p><a href="{{.DashboardURL}}">Open dashboard</a></p>
`))

type ownerDigestData struct {
	WorkspaceName string
	Items         []BriefItem
	DashboardURL  string
}

func renderOwnerDigest(workspaceName string, items []BriefItem, dashboardURL string) (string, error) {
	previews := make([]BriefItem, len(items))
	for i, item := range items {
		previews[i] = BriefItem{Title: item.Title, Summary: summaryPreview(item.Summary)}
	}
	return renderTemplate(ownerDigestTmpl, ownerDigestData{
		WorkspaceName: workspaceName,
		Items:         previews,
		DashboardURL:  dashboardURL,
	})
}

type clientDigestData struct {
	ClientName    string
	WorkspaceName string
	Summary       string
	DashboardURL  string
}

func renderClientDigest(clientName, workspaceName, summary, dashboardURL string) (string, error) {
	return renderTemplate(clientDigestTmpl, clientDigestData{
		ClientName:    clientName,
		WorkspaceName: workspaceName,
		Summary:       summary,
		DashboardURL:  dashboardURL,
	})
}

type signupRow struct {
	Email     string
	CreatedAt string
}

type signupSummaryData struct {
	Window       string
	Count        int
	Signups      []signupRow
	DashboardURL string
}

func renderSignupSummary(signups []core.BetaSignup, since time.Time, siteURL string) (string, error) {
	rows := make([]signupRow, len(signups))
	for i, signup := range signups {
		rows[i] = signupRow{
			Email:     signup.Email,
			CreatedAt: signup.CreatedAt.Format("Jan 2, 2006 15:04 MST"),
		}
	}
	return renderTemplate(signupSummaryTmpl, signupSummaryData{
		Window:       since.Format("Jan 2, 2006 15:04 MST") + " to now",
		Count:        len(signups),
		Signups:      rows,
		DashboardURL: siteURL + "/dashboard",
	})
}

func renderTemplate(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
