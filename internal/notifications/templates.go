package notifications

import (
	"bytes"
	"html/template"
)

const appName = "Focus TODO"

var baseTmpl = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; background: #f4f4f7; padding: 24px;">
  <div style="max-width: 560px; margin: 0 auto; background: #ffffff; border-radius: 8px; padding: 32px;">
    <h1 style="color: #4f46e5; margin-top: 0;">{{.AppName}}</h1>
    <h2>{{.Title}}</h2>
    <p>Hi {{if .Name}}{{.Name}}{{else}}there{{end}},</p>
    <p>{{.Message}}</p>
    <p style="text-align: center; margin: 32px 0;">
      <a href="{{.Link}}" style="background: #4f46e5; color: #ffffff; padding: 12px 24px; border-radius: 6px; text-decoration: none;">{{.Button}}</a>
    </p>
    <p style="font-size: 12px; color: #6b7280;">If the button does not work, copy this link into your browser:<br>{{.Link}}</p>
    <p style="font-size: 12px; color: #6b7280;">{{.Footer}}</p>
  </div>
</body>
</html>`))

type emailData struct {
	AppName string
	Title   string
	Name    string
	Message string
	Button  string
	Link    string
	Footer  string
}

type message struct {
	Subject string
	HTML    string
}

func render(subject string, d emailData) (message, error) {
	d.AppName = appName

	var buf bytes.Buffer
	if err := baseTmpl.Execute(&buf, d); err != nil {
		return message{}, err
	}

	return message{Subject: subject, HTML: buf.String()}, nil
}

func verificationMessage(in SendLinkInput) (message, error) {
	return render("Verify your email - "+appName, emailData{
		Title:   "Verify your email address",
		Name:    in.Name,
		Message: "Thanks for signing up! Please confirm your email address to start organising your tasks.",
		Button:  "Verify Email",
		Link:    in.Link,
		Footer:  "This verification link will expire in 24 hours.",
	})
}

func passwordResetMessage(in SendLinkInput) (message, error) {
	return render("Reset your password - "+appName, emailData{
		Title:   "Reset your password",
		Name:    in.Name,
		Message: "We received a request to reset your password. If you did not ask for this you can ignore this email.",
		Button:  "Reset Password",
		Link:    in.Link,
		Footer:  "This reset link will expire in 1 hour.",
	})
}
