package services

import (
	"fmt"
	"net/smtp"
	"os"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// CodeSender delivers a verification code to an address. The SMTP transport is
// a collaborator, not core: when SMTP is unconfigured the service degrades to a
// log-only sender so local stacks work without a mail account.
type CodeSender interface {
	SendVerificationCode(to, username, code string) error
}

type EmailService struct {
	context.DefaultService

	smtpHost     string
	smtpPort     string
	smtpUsername string
	smtpPassword string
	fromEmail    string
	fromName     string
}

const EMAIL_SVC = "email_svc"

func (svc EmailService) Id() string {
	return EMAIL_SVC
}

func (svc *EmailService) Configure(ctx *context.Context) error {
	svc.smtpHost = os.Getenv("SMTP_HOST")
	svc.smtpPort = os.Getenv("SMTP_PORT")
	svc.smtpUsername = os.Getenv("SMTP_USERNAME")
	svc.smtpPassword = os.Getenv("SMTP_PASSWORD")
	svc.fromEmail = os.Getenv("FROM_EMAIL")
	svc.fromName = os.Getenv("FROM_NAME")

	if svc.smtpPort == "" {
		svc.smtpPort = "587"
	}
	if svc.fromName == "" {
		svc.fromName = "BlackWell"
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *EmailService) Start() error {
	if svc.smtpHost == "" {
		log.Warn("SMTP_HOST not set, verification codes will only be logged")
	}
	return nil
}

func (svc *EmailService) SendVerificationCode(to, username, code string) error {
	if svc.smtpHost == "" {
		log.WithFields(log.Fields{"to": to, "code": code}).Info("Verification code (SMTP disabled)")
		return nil
	}

	subject := "BlackWell - Email Verification"
	body := fmt.Sprintf(
		"Welcome to BlackWell, %s.\r\n\r\nThe email verification code is: %s\r\n\r\nYou have 3 minutes to use it.\r\n",
		username, code,
	)

	msg := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		svc.fromName, svc.fromEmail, to, subject, body,
	)

	auth := smtp.PlainAuth("", svc.smtpUsername, svc.smtpPassword, svc.smtpHost)
	addr := fmt.Sprintf("%s:%s", svc.smtpHost, svc.smtpPort)

	if err := smtp.SendMail(addr, auth, svc.fromEmail, []string{to}, []byte(msg)); err != nil {
		log.WithError(err).WithField("to", to).Error("Failed to send verification email")
		return err
	}

	return nil
}
