package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Producers in this service publish fully rendered messages. Template and Data
// let other producers hand rendering to the worker instead.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "reset_otp", "verify_email_otp"
	Data     map[string]any `json:"data,omitempty"`
}

func (j EmailJob) Message() Message {
	return Message{To: j.To, Subject: j.Subject, Text: j.Text, HTML: j.HTML}
}
