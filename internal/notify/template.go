package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

type emailData struct {
	Name         string
	RequestID    string
	PhoneModel   string
	Detail       Detail
	Turnaround   string
	SupportPhone string
	WhatsAppURL  string
	Year         int
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Repair Request Confirmation</title>
  </head>
  <body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; line-height: 1.6; color: #374151; margin: 0; padding: 0; background-color: #f9fafb;">
    <div style="max-width: 600px; margin: 0 auto; background-color: #ffffff;">
      <div style="background: linear-gradient(135deg, #2563eb 0%, #1d4ed8 100%); padding: 30px 20px; text-align: center;">
        <h1 style="color: white; margin: 0; font-size: 24px; font-weight: 700;">PayFix</h1>
        <p style="color: rgba(255,255,255,0.9); margin: 5px 0 0 0; font-size: 16px;">Professional Mobile Repair Service</p>
      </div>
      <div style="padding: 40px 30px;">
        <h2 style="color: #059669; margin: 0 0 20px 0; font-size: 22px;">✅ Request Confirmed!</h2>
        <p>Dear {{.Name}},</p>
        <p>Thank you for choosing PayFix! We've received your repair request and our technicians are ready to help.</p>

        <div style="background-color: #f8fafc; border: 1px solid #e2e8f0; border-radius: 12px; padding: 25px; margin: 30px 0;">
          <h3 style="margin: 0 0 20px 0; color: #1f2937; font-size: 18px;">📋 Request Details</h3>
          <p><span style="color: #6b7280;">Request ID:</span> <code>{{.RequestID}}</code></p>
          <p><span style="color: #6b7280;">Device:</span> 📱 {{.PhoneModel}}</p>
          <p><span style="color: #6b7280;">Priority Level:</span> <span style="color: {{.Detail.Color}}; font-weight: 600;">⚡ {{.Detail.Label}}</span></p>
          <p><span style="color: #6b7280;">Expected Turnaround:</span> <span style="color: #059669; font-weight: 600;">⏱️ {{.Turnaround}}</span></p>
        </div>

        <div style="background-color: #fef3c7; border: 1px solid #f59e0b; border-radius: 12px; padding: 25px; margin: 30px 0;">
          <h4 style="margin: 0 0 15px 0; color: #92400e;">🚀 What happens next?</h4>
          <ul style="margin: 0; padding-left: 20px; color: #78350f;">
            <li>Our technical team will review your request within <strong>2 hours</strong></li>
            <li>We'll contact you via email or phone to discuss repair options and scheduling</li>
            <li>You'll receive a detailed quote before any work begins</li>
            <li>Track your repair status using your Request ID</li>
          </ul>
        </div>

        <div style="background-color: #eff6ff; border: 1px solid #bfdbfe; border-radius: 12px; padding: 25px; margin: 30px 0;">
          <h4 style="margin: 0 0 15px 0; color: #1e40af;">📞 Need immediate assistance?</h4>
          <p><strong>WhatsApp:</strong> <a href="{{.WhatsAppURL}}" style="color: #059669;">{{.SupportPhone}}</a></p>
          <p style="font-size: 14px;">Please reference your Request ID: <strong>{{.RequestID}}</strong></p>
        </div>
      </div>
      <div style="background-color: #1f2937; padding: 30px; text-align: center;">
        <p style="color: #9ca3af; font-size: 14px;">Professional Mobile Repair Service</p>
        <p style="color: #6b7280; font-size: 12px;">This is an automated confirmation email. Please do not reply directly to this message.</p>
        <p style="color: #6b7280; font-size: 12px;">© {{.Year}} PayFix. All rights reserved.</p>
      </div>
    </div>
  </body>
</html>
`))

// Subject builds the confirmation subject line.
func Subject(phoneModel, requestID string) string {
	short := requestID
	if len(short) > 8 {
		short = short[len(short)-8:]
	}
	return fmt.Sprintf("✅ Repair Request Confirmed - %s (ID: %s)", phoneModel, short)
}

func renderEmail(data emailData) (string, error) {
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render confirmation email: %w", err)
	}
	return buf.String(), nil
}

// whatsAppURL turns "+234 805 268 9119" into https://wa.me/2348052689119.
func whatsAppURL(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return "https://wa.me/" + b.String()
}
