package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/bizbridge-auth/config"
	"github.com/oksasatya/bizbridge-auth/internal/metrics"
	"github.com/oksasatya/bizbridge-auth/pkg/helpers"
	"github.com/oksasatya/bizbridge-auth/pkg/mailer"
	mailtpl "github.com/oksasatya/bizbridge-auth/pkg/mailer/templates"
)

const sendTimeout = 15 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-email-worker", cfg.Env)

	if !cfg.MailSendEnabled {
		logger.Info("MAIL_SEND_ENABLED=false; email worker disabled (no real emails will be sent)")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQEmailQueue == "" {
		logger.Fatal("RabbitMQ not configured")
	}

	sender, transport := deliveryTransport(cfg)
	if sender == nil {
		logger.Fatal("no delivery transport configured (set Mailgun or SMTP)")
	}
	sender = metrics.InstrumentMailer(sender, transport)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Fatalf("amqp dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		logger.Fatalf("amqp channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	// prefetch for fair dispatch
	if err := ch.Qos(16, 0, false); err != nil {
		logger.Fatalf("qos: %v", err)
	}
	if err := mailer.DeclareQueue(ch, cfg.RabbitMQEmailQueue); err != nil {
		logger.Fatalf("queue declare: %v", err)
	}

	msgs, err := ch.Consume(cfg.RabbitMQEmailQueue, "", false, false, false, false, nil)
	if err != nil {
		logger.Fatalf("consume: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})

	go func() {
		defer close(done)
		for msg := range msgs {
			handle(ctx, logger, sender, msg)
		}
	}()

	logger.WithFields(logrus.Fields{"queue": cfg.RabbitMQEmailQueue, "transport": transport}).Info("email worker listening")
	<-ctx.Done()
	logger.Info("shutting down...")
	_ = ch.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

// deliveryTransport prefers Mailgun and falls back to SMTP.
func deliveryTransport(cfg *config.Config) (mailer.Sender, string) {
	if cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" && cfg.MailgunSender != "" {
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender), "mailgun"
	}
	if cfg.SMTPHost != "" && cfg.SMTPFrom != "" {
		return mailer.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPFrom), "smtp"
	}
	return nil, ""
}

// handle renders (when the job names a template) and sends one job. Bad jobs
// are dropped, failed sends are requeued.
func handle(ctx context.Context, logger *logrus.Logger, sender mailer.Sender, msg amqp.Delivery) {
	var job mailer.EmailJob
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		logger.WithError(err).Warn("bad message")
		_ = msg.Nack(false, false)
		return
	}
	entry := logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template})

	out := job.Message()
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			helpers.LogError(entry, "render failed", err, nil)
			_ = msg.Nack(false, false)
			return
		}
		out.Subject, out.Text, out.HTML = s, t, h
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	if err := sender.Send(sendCtx, out); err != nil {
		if errors.Is(err, mailer.ErrNoRecipient) {
			entry.WithError(err).Warn("dropping job")
			_ = msg.Nack(false, false)
			return
		}
		helpers.LogError(entry, "send failed", err, logrus.Fields{"redelivered": msg.Redelivered})
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
