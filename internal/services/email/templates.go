package email

import (
	"fmt"
	"strings"
)

// Sender composes the application's email messages on top of a Mailer
type Sender struct {
	mailer   Mailer
	loginURL string
}

// NewSender creates a new email sender
func NewSender(mailer Mailer, frontendURL string) *Sender {
	return &Sender{
		mailer:   mailer,
		loginURL: strings.TrimRight(frontendURL, "/") + "/auth/login",
	}
}

// SendOTP delivers a one-time passcode for email verification or MFA
func (s *Sender) SendOTP(to, firstName, code string, expiresInMinutes int) error {
	if firstName == "" {
		firstName = "User"
	}
	subject := fmt.Sprintf("%s - Your SecureControl Verification Code", code)

	html := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<body style="font-family: Arial, sans-serif; line-height: 1.6;">
		<div style="max-width: 560px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #1a1a2e;">SecureControl</h1>
			<p>Hello <strong>%s</strong>,</p>
			<p>Please use the following one-time passcode to continue.</p>
			<p style="font-size: 32px; font-weight: bold; letter-spacing: 8px; font-family: monospace;">%s</p>
			<p>This code will expire in <strong>%d minutes</strong>.</p>
			<p style="color: #856404;">Never share this code with anyone. SecureControl staff will never ask for your code.</p>
			<p style="color: #a1a1aa; font-size: 12px;">If you did not request this code, please ignore this email.</p>
		</div>
	</body>
	</html>`, firstName, code, expiresInMinutes)

	text := fmt.Sprintf(`SecureControl - Verification Code

Hello %s,

Your verification code is: %s

This code will expire in %d minutes.

Never share this code with anyone.
If you did not request this code, please ignore this email.`, firstName, code, expiresInMinutes)

	return s.mailer.Send(to, subject, html, text)
}

// SendCredentials delivers login credentials to a newly created
// checker or admin user
func (s *Sender) SendCredentials(to, fullName, role, temporaryPassword string) error {
	roleLabel := titleCase(role)
	subject := fmt.Sprintf("Welcome to SecureControl - Your %s Account", roleLabel)

	html := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<body style="font-family: Arial, sans-serif; line-height: 1.6;">
		<div style="max-width: 560px; margin: 0 auto; padding: 20px;">
			<h1 style="color: #1a1a2e;">Welcome to SecureControl</h1>
			<p>Hello <strong>%s</strong>,</p>
			<p>You have been added as a <strong>%s</strong> in the SecureControl Banking System. Use the credentials below to log in.</p>
			<table>
				<tr><td>Email:</td><td><strong>%s</strong></td></tr>
				<tr><td>Password:</td><td><strong style="font-family: monospace;">%s</strong></td></tr>
				<tr><td>Role:</td><td><strong>%s</strong></td></tr>
			</table>
			<p><a href="%s">Log In to SecureControl</a></p>
			<p style="color: #856404;">Please change your password after your first login. Do not share your credentials with anyone.</p>
		</div>
	</body>
	</html>`, fullName, roleLabel, to, temporaryPassword, roleLabel, s.loginURL)

	text := fmt.Sprintf(`Welcome to SecureControl Banking System

Hello %s,

You have been added as a %s in the SecureControl Banking System.

Your Login Credentials:
- Email: %s
- Password: %s
- Role: %s

Login URL: %s

Please change your password after your first login.
Do not share your credentials with anyone.`, fullName, roleLabel, to, temporaryPassword, roleLabel, s.loginURL)

	return s.mailer.Send(to, subject, html, text)
}

// SendNotification delivers a general notification email
func (s *Sender) SendNotification(to, fullName, subject, message string) error {
	html := fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<body style="font-family: Arial, sans-serif; line-height: 1.6;">
		<div style="max-width: 560px; margin: 0 auto; padding: 20px;">
			<h2 style="color: #1a1a2e;">%s</h2>
			<p>Hello <strong>%s</strong>,</p>
			<p>%s</p>
			<p><a href="%s">Open SecureControl</a></p>
			<p style="color: #a1a1aa; font-size: 12px;">This is an automated notification from SecureControl Banking System.</p>
		</div>
	</body>
	</html>`, subject, fullName, message, s.loginURL)

	text := fmt.Sprintf("Hello %s,\n\n%s\n\n---\nSecureControl Banking System", fullName, message)

	return s.mailer.Send(to, subject, html, text)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
