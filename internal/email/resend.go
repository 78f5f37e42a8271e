package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultResendURL = "https://api.resend.com/emails"

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "billing@learnhub.dev"
	fromName   string // e.g. "LearnHub"
	baseURL    string // dashboard link base, e.g. "https://app.learnhub.dev"
	endpoint   string
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend.
func NewResendClient(apiKey, fromAddr, fromName, baseURL string) Sender {
	return &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: defaultResendURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

// SendUpgradeConfirmation sends the plan activation email.
func (c *resendClient) SendUpgradeConfirmation(ctx context.Context, p UpgradeParams) error {
	subject := fmt.Sprintf("Your %s plan is active", p.PlanTitle)
	validity := "It does not expire."
	if p.PeriodEnd != nil {
		validity = "It is valid until " + p.PeriodEnd.Format("2 January 2006") + "."
	}
	body := upgradeHTML(p.PlanTitle, formatAmount(p.AmountCents, p.Currency), validity, c.baseURL+"/dashboard")
	return c.send(ctx, p.To, subject, body)
}

// SendReviewAlert sends the manual-reconciliation alert to operations.
func (c *resendClient) SendReviewAlert(ctx context.Context, p ReviewAlertParams) error {
	subject := fmt.Sprintf("[payments] %s needs review (%s)", p.PaymentID, p.Reason)
	payer := p.PayerEmail
	if payer == "" {
		payer = "(no email on payment)"
	}
	body := reviewHTML(p.PaymentID, payer, p.Reason, formatAmount(p.AmountCents, p.Currency))
	return c.send(ctx, p.To, subject, body)
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("email: no recipient for %q", subject)
	}

	reqBody := resendRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr),
		To:      []string{to},
		Subject: subject,
		HTML:    body,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}
	return nil
}

// formatAmount renders minor units as "29.00 USD".
func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, strings.ToUpper(currency))
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

func upgradeHTML(plan, amount, validity, dashboardURL string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Your %s plan is active</h2>
  <p>We received your payment of <strong>%s</strong>. %s</p>
  <p style="margin: 32px 0;">
    <a href="%s"
       style="background: #0f172a; color: #ffffff; padding: 12px 24px;
              border-radius: 6px; text-decoration: none; font-weight: 600;">
      Go to your courses
    </a>
  </p>
  <p style="color: #6b7280; font-size: 14px;">
    If you have any questions, reply to this email.
  </p>
</body>
</html>`, html.EscapeString(plan), amount, validity, dashboardURL)
}

func reviewHTML(paymentID, payer, reason, amount string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: monospace; color: #1a1a1a; padding: 24px;">
  <p>A payment was approved but no entitlement was granted.</p>
  <ul>
    <li>payment: %s</li>
    <li>payer: %s</li>
    <li>amount: %s</li>
    <li>reason: %s</li>
  </ul>
  <p>Resolve with <code>paymentsctl resolve %s --user &lt;user-id&gt;</code>.</p>
</body>
</html>`,
		html.EscapeString(paymentID), html.EscapeString(payer), amount,
		html.EscapeString(reason), html.EscapeString(paymentID))
}
