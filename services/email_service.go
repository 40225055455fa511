package services

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// EmailService sends transactional mail over SMTP
type EmailService struct {
	host string
	port int
	user string
	pass string
	from string
}

// NewEmailService reads SMTP configuration from the environment
func NewEmailService() *EmailService {
	port := 587
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}
	from := os.Getenv("FROM_EMAIL")
	if from == "" {
		from = os.Getenv("SMTP_USER")
	}
	return &EmailService{
		host: os.Getenv("SMTP_HOST"),
		port: port,
		user: os.Getenv("SMTP_USER"),
		pass: os.Getenv("SMTP_PASS"),
		from: from,
	}
}

// SendOTP emails a checkout verification code
func (s *EmailService) SendOTP(email, code string) error {
	subject := "Your TrackFit payment verification code"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Confirm Your Payment</h2>
			<p>Use the following code to verify your payment:</p>
			<h3 style="background-color: #f0f0f0; padding: 10px; font-size: 24px; letter-spacing: 5px; text-align: center;">%s</h3>
			<p>This code will expire in 5 minutes.</p>
			<p>If you did not start a payment, please ignore this email or contact support.</p>
			<p>Thank you,<br>The TrackFit Team</p>
		</body>
		</html>
	`, code)
	return s.send(email, subject, body)
}

// SendReceipt emails a payment confirmation
func (s *EmailService) SendReceipt(email, description string, amount float64, currency string) error {
	subject := "TrackFit payment confirmation"
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Payment Received</h2>
			<p>We received your payment of %.2f %s for %s.</p>
			<p>Thank you,<br>The TrackFit Team</p>
		</body>
		</html>
	`, amount, currency, description)
	return s.send(email, subject, body)
}

func (s *EmailService) send(to, subject, body string) error {
	if s.host == "" || s.user == "" || s.pass == "" || s.from == "" {
		return fmt.Errorf("missing SMTP configuration")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(s.host, s.port, s.user, s.pass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %v", err)
	}
	return nil
}
