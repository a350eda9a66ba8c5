package application

import (
	"context"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/pkg/mailer"
	"github.com/oksasatya/bizbridge-auth/pkg/mailer/templates"
)

// sendCode renders template name for u and hands it to the mailer.
func (s *Service) sendCode(ctx context.Context, name string, u *entity.User, code string) error {
	now := s.now()
	data := templates.NewOTPData(s.Cfg, u.Name, u.Email, code, OTPTTL,
		templates.WithYear(now.Year()),
		templates.WithExpiresAt(now.Add(OTPTTL)),
	)
	subject, text, html, err := templates.Render(name, data)
	if err != nil {
		return err
	}
	return s.Mailer.Send(ctx, mailer.Message{To: u.Email, Subject: subject, Text: text, HTML: html})
}
