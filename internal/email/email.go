// Package email renders and sends the three transactional emails the
// daily run produces: the workspace owner digest, the per-client digest,
// and the admin signup summary. Delivery goes through the Resend HTTP
// API.
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"briefme/internal/config"
	"briefme/internal/core"
)

// ErrNotConfigured is returned when the provider API key or from address
// is missing. Callers treat it as "skip this delivery path", not as a
// run failure.
var ErrNotConfigured = errors.New("email provider not configured")

// ErrNoRecipients is returned when recipient filtering leaves nothing to
// send to.
var ErrNoRecipients = errors.New("no valid recipient emails")

// addressRe is the syntactic recipient check. Addresses are filtered
// when recipients are saved, and re-checked here before every send.
var addressRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// previewLimit caps the plain-text summary embedded in an email body.
const previewLimit = 420

// BriefItem is one digest entry in the owner summary email.
type BriefItem struct {
	Title   string
	Summary string
}

// Client sends email through the Resend API.
type Client struct {
	cfg        config.Email
	siteURL    string
	httpClient *http.Client
}

// New creates an email client from configuration. siteURL is embedded in
// email footers as the dashboard link.
func New(cfg config.Email, siteURL string) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		cfg:        cfg,
		siteURL:    siteURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the provider credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.ResendAPIKey != "" && c.cfg.FromEmail != ""
}

// ValidAddress reports whether value looks like an email address.
func ValidAddress(value string) bool {
	return addressRe.MatchString(value)
}

// FilterRecipients trims, lowercases, de-duplicates and drops
// syntactically invalid addresses, preserving first-seen order.
func FilterRecipients(recipients []string) []string {
	seen := make(map[string]struct{}, len(recipients))
	var out []string
	for _, recipient := range recipients {
		addr := strings.ToLower(strings.TrimSpace(recipient))
		if !ValidAddress(addr) {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// SendOwnerDigest sends the workspace-level summary email covering the
// top briefs of one run to the workspace owner.
func (c *Client) SendOwnerDigest(ctx context.Context, to, workspaceName string, items []BriefItem) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	html, err := renderOwnerDigest(workspaceName, items, c.dashboardURL())
	if err != nil {
		return fmt.Errorf("failed to render owner digest: %w", err)
	}

	return c.send(ctx, sendRequest{
		From:    c.cfg.FromEmail,
		To:      []string{to},
		Subject: fmt.Sprintf("%s · Daily Brief", workspaceName),
		HTML:    html,
	})
}

// SendClientDigest sends one client's brief to that client's recipient
// list in a single call. Invalid addresses are filtered out first; when
// none survive the send is skipped with ErrNoRecipients.
func (c *Client) SendClientDigest(ctx context.Context, recipients []string, clientName, workspaceName, summary string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	to := FilterRecipients(recipients)
	if len(to) == 0 {
		return ErrNoRecipients
	}

	html, err := renderClientDigest(clientName, workspaceName, summaryPreview(summary), c.dashboardURL())
	if err != nil {
		return fmt.Errorf("failed to render client digest: %w", err)
	}

	return c.send(ctx, sendRequest{
		From:    c.cfg.FromEmail,
		To:      to,
		Subject: fmt.Sprintf("%s · Daily Brief", clientName),
		HTML:    html,
	})
}

// SendSignupSummary sends the admin report listing signups since the
// given time. Requires the admin report address on top of the provider
// credentials.
func (c *Client) SendSignupSummary(ctx context.Context, signups []core.BetaSignup, since time.Time) error {
	if !c.Configured() || c.cfg.AdminReportEmail == "" {
		return ErrNotConfigured
	}

	html, err := renderSignupSummary(signups, since, c.siteURL)
	if err != nil {
		return fmt.Errorf("failed to render signup summary: %w", err)
	}

	return c.send(ctx, sendRequest{
		From:    c.cfg.FromEmail,
		To:      []string{c.cfg.AdminReportEmail},
		Subject: fmt.Sprintf("BriefMe beta signups (%d)", len(signups)),
		HTML:    html,
	})
}

func (c *Client) dashboardURL() string {
	return strings.TrimRight(c.siteURL, "/") + "/dashboard/digest"
}

// sendRequest is the Resend send payload.
type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (c *Client) send(ctx context.Context, payload sendRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	endpoint := c.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://api.resend.com/emails"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ResendAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email send failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("email provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// summaryPreview collapses whitespace and truncates the summary for
// embedding in an email body.
func summaryPreview(summary string) string {
	cleaned := strings.Join(strings.Fields(summary), " ")
	if cleaned == "" {
		return "No summary text yet. Open dashboard digest for full details."
	}
	runes := []rune(cleaned)
	if len(runes) > previewLimit {
		return string(runes[:previewLimit]) + "..."
	}
	return cleaned
}
