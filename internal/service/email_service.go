package service

import (
	"context"
	"fmt"
	"time"

	"Campus_Community/internal/pkg"
)

const (
	ScopeRegister = "register"
	ScopeReset    = "reset"

	emailCodeTTL = 5 * time.Minute
)

type EmailService struct {
	mailer Mailer
	codes  CodeStore
}

func NewEmailService(mailer Mailer, codes CodeStore) *EmailService {
	return &EmailService{mailer: mailer, codes: codes}
}

// SendCode 先写 pending 键，邮件发送成功后再转为 confirmed
func (s *EmailService) SendCode(ctx context.Context, scope, email string) error {
	var action, subject string
	switch scope {
	case ScopeRegister:
		action, subject = "registration", "Your registration code"
	case ScopeReset:
		action, subject = "password reset", "Your password reset code"
	default:
		return fmt.Errorf("%w: unknown scope %q", pkg.ErrInvalidParam, scope)
	}

	code, err := pkg.RandDigits(6)
	if err != nil {
		return err
	}
	if err = s.codes.SavePending(ctx, scope, email, code); err != nil {
		return err
	}

	html := pkg.EmailCodeHTML(action, code, emailCodeTTL)
	if err = s.mailer.Send(email, subject, html); err != nil {
		_ = s.codes.DeletePending(ctx, scope, email)
		return fmt.Errorf("send mail: %w", err)
	}

	if err = s.codes.Confirm(ctx, scope, email); err != nil {
		// 如果确认失败，清除pending键
		_ = s.codes.DeletePending(ctx, scope, email)
		return err
	}
	return nil
}

// VerifyCode 校验验证码，成功后一次性删除
func (s *EmailService) VerifyCode(ctx context.Context, scope, email, code string) (bool, error) {
	val, err := s.codes.GetConfirmed(ctx, scope, email)
	if err != nil {
		return false, err
	}
	if val != code {
		return false, nil
	}
	if err = s.codes.DeleteConfirmed(ctx, scope, email); err != nil {
		return false, err
	}
	return true, nil
}
