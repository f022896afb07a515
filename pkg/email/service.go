package email

import (
	"fmt"
	"log"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Service handles email sending
type Service struct {
	fromEmail   string
	fromName    string
	baseURL     string
	sendGridKey string
	useSendGrid bool
}

// NewService creates a new email service.
// If sendGridAPIKey is provided, emails are sent via SendGrid;
// otherwise they are logged to console (development mode).
func NewService(fromEmail, fromName, baseURL, sendGridAPIKey string) *Service {
	useSendGrid := sendGridAPIKey != ""
	if useSendGrid {
		log.Printf("✅ Email service initialized with SendGrid")
	} else {
		log.Printf("⚠️  Email service in console-only mode (set SENDGRID_API_KEY for production)")
	}

	return &Service{
		fromEmail:   fromEmail,
		fromName:    fromName,
		baseURL:     baseURL,
		sendGridKey: sendGridAPIKey,
		useSendGrid: useSendGrid,
	}
}

// SendReminderDueEmail notifies a user that a follow-up reminder is due.
func (s *Service) SendReminderDueEmail(toEmail, toName, note string, remindAt time.Time, leadName string) error {
	subject := "Follow-up reminder due"
	if leadName != "" {
		subject = fmt.Sprintf("Follow-up due: %s", leadName)
	}

	leadLine := ""
	if leadName != "" {
		leadLine = fmt.Sprintf("<p>Lead: <strong>%s</strong></p>", leadName)
	}

	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Follow-up Reminder</h2>
			<p>Hi %s,</p>
			<p>You have a follow-up due at <strong>%s</strong>:</p>
			%s
			<p>%s</p>
			<p><a href="%s/follow-ups" style="background-color: #4A90E2; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Open Follow-ups</a></p>
			<p>Thanks,<br>The AqarLink Team</p>
		</body>
		</html>
	`, toName, remindAt.Format("Mon, 02 Jan 2006 15:04"), leadLine, note, s.baseURL)

	plainText := fmt.Sprintf(`
Hi %s,

You have a follow-up due at %s:

%s

Open your follow-ups: %s/follow-ups

Thanks,
The AqarLink Team
	`, toName, remindAt.Format("Mon, 02 Jan 2006 15:04"), note, s.baseURL)

	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, body, plainText)
	}

	return s.logEmailToConsole(toEmail, toName, subject, s.baseURL+"/follow-ups")
}

// SendLeadAssignedEmail notifies a user that a lead was assigned to them.
func (s *Service) SendLeadAssignedEmail(toEmail, toName, leadName, leadPhone string, leadID uint) error {
	subject := fmt.Sprintf("New lead assigned: %s", leadName)
	leadURL := fmt.Sprintf("%s/leads/%d", s.baseURL, leadID)

	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>New Lead Assigned</h2>
			<p>Hi %s,</p>
			<p>A new lead has been assigned to you:</p>
			<p><strong>%s</strong><br>%s</p>
			<p><a href="%s" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">View Lead</a></p>
			<p>Please reach out as soon as possible.</p>
			<p>Thanks,<br>The AqarLink Team</p>
		</body>
		</html>
	`, toName, leadName, leadPhone, leadURL)

	plainText := fmt.Sprintf(`
Hi %s,

A new lead has been assigned to you:

%s
%s

View the lead: %s

Please reach out as soon as possible.

Thanks,
The AqarLink Team
	`, toName, leadName, leadPhone, leadURL)

	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, body, plainText)
	}

	return s.logEmailToConsole(toEmail, toName, subject, leadURL)
}

// SendWelcomeEmail sends a welcome email to a newly registered user.
func (s *Service) SendWelcomeEmail(toEmail, toName string) error {
	subject := "Welcome to AqarLink CRM"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Welcome to AqarLink!</h2>
			<p>Hi %s,</p>
			<p>Your account has been created. You can start working your pipeline right away.</p>
			<h3>Get Started:</h3>
			<ul>
				<li>Import your leads from CSV or Excel</li>
				<li>Log calls, meetings and WhatsApp messages</li>
				<li>Schedule follow-up reminders so nothing slips</li>
			</ul>
			<p><a href="%s/dashboard" style="background-color: #4CAF50; color: white; padding: 14px 20px; text-decoration: none; border-radius: 4px; display: inline-block;">Go to Dashboard</a></p>
			<p>Thanks,<br>The AqarLink Team</p>
		</body>
		</html>
	`, toName, s.baseURL)

	plainText := fmt.Sprintf(`
Hi %s,

Your account has been created. You can start working your pipeline right away.

Get Started:
- Import your leads from CSV or Excel
- Log calls, meetings and WhatsApp messages
- Schedule follow-up reminders so nothing slips

Visit your dashboard: %s/dashboard

Thanks,
The AqarLink Team
	`, toName, s.baseURL)

	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, body, plainText)
	}

	log.Printf("📧 [EMAIL] Welcome email to: %s <%s>", toName, toEmail)
	return nil
}

// SendRawEmail sends an email with custom subject and body content.
// Uses SendGrid in production, logs to console in development.
func (s *Service) SendRawEmail(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	if s.useSendGrid {
		return s.sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody)
	}

	log.Printf("📧 [EMAIL] %s", subject)
	log.Printf("   To: %s <%s>", toName, toEmail)
	log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
	log.Printf("   ⚠️  Email NOT sent (development mode)")
	return nil
}

// sendViaSendGrid sends email using SendGrid API
func (s *Service) sendViaSendGrid(toEmail, toName, subject, htmlBody, plainTextBody string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)

	message := mail.NewSingleEmail(from, subject, to, plainTextBody, htmlBody)

	client := sendgrid.NewSendClient(s.sendGridKey)
	response, err := client.Send(message)

	if err != nil {
		log.Printf("❌ SendGrid error: %v", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		log.Printf("❌ SendGrid returned error status %d: %s", response.StatusCode, response.Body)
		return fmt.Errorf("sendgrid returned error status: %d", response.StatusCode)
	}

	log.Printf("✅ Email sent successfully to %s (SendGrid status: %d)", toEmail, response.StatusCode)
	return nil
}

// logEmailToConsole logs email details to console (development mode)
func (s *Service) logEmailToConsole(toEmail, toName, subject, actionURL string) error {
	log.Printf("📧 [EMAIL] %s", subject)
	log.Printf("   To: %s <%s>", toName, toEmail)
	log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
	log.Printf("   Action URL: %s", actionURL)
	log.Printf("   ---")
	log.Printf("   ⚠️  Email NOT sent (development mode)")
	log.Printf("   Set SENDGRID_API_KEY environment variable to enable email sending")
	log.Printf("   ---")
	return nil
}
