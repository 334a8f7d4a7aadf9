package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/blackwell-chat/relay_api/dto"
	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/shared"
)

// Unverified registrations wait in Redis under their code; the TTL is the
// whole verification window.
const (
	pendingRegistrationTTL = 3 * time.Minute
	pendingKeyPrefix       = "pending:account:"
)

// AccountService owns the register/verify/login/delete lifecycle and the
// profile surface. Every mutation that changes who may connect is forwarded
// to the gateway so its authorization set never goes stale.
type AccountService struct {
	appContext.DefaultService

	sqlSvc     *PostgresService
	redisSvc   *RedisService
	jwtSvc     *JWTService
	parserSvc  *ParserService
	mailboxSvc *MailboxService
	gatewaySvc *GatewayService

	sender CodeSender
}

const ACCOUNT_SVC = "account_svc"

func (svc AccountService) Id() string {
	return ACCOUNT_SVC
}

func (svc *AccountService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.parserSvc = svc.Service(PARSER_SVC).(*ParserService)
	svc.mailboxSvc = svc.Service(MAILBOX_SVC).(*MailboxService)
	svc.gatewaySvc = svc.Service(GATEWAY_SVC).(*GatewayService)
	svc.sender = svc.Service(EMAIL_SVC).(*EmailService)
	return nil
}

// Register stores a pending registration in Redis under a fresh verification
// code and emails the code. Nothing touches postgres until Verify.
func (svc *AccountService) Register(ctx context.Context, req dto.RegisterRequest) (*dto.RegisterResponse, error) {
	exists, err := svc.sqlSvc.AccountExists(req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrUserExists()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	code, err := generateVerificationCode()
	if err != nil {
		return nil, err
	}

	pending := model.PendingAccount{
		Username:  req.Username,
		Email:     req.Email,
		Password:  string(hash),
		Code:      code,
		CreatedAt: time.Now(),
	}

	key := pendingKeyPrefix + code
	if err := svc.redisSvc.Set(ctx, key, pending, pendingRegistrationTTL); err != nil {
		return nil, err
	}

	if err := svc.sender.SendVerificationCode(req.Email, req.Username, code); err != nil {
		_ = svc.redisSvc.Delete(ctx, key)
		log.WithError(err).WithField("email", req.Email).Error("Failed to send verification code")
		return nil, shared.ErrEmailSendFailed()
	}

	log.WithField("username", req.Username).Info("Registration pending verification")
	return &dto.RegisterResponse{
		Message: fmt.Sprintf("You have %d minutes to check the email.", int(pendingRegistrationTTL.Minutes())),
	}, nil
}

// Verify promotes a pending registration into a permanent account. The code
// is single-use; a lapsed TTL and a wrong code are indistinguishable.
func (svc *AccountService) Verify(ctx context.Context, req dto.VerifyRequest) (*dto.LoginResponse, error) {
	key := pendingKeyPrefix + req.Code

	var pending model.PendingAccount
	if err := svc.redisSvc.GetJSON(ctx, key, &pending); err != nil {
		return nil, err
	}
	if pending.Code == "" {
		return nil, shared.ErrEmailCodeInvalid()
	}

	account, err := svc.sqlSvc.CreateAccount(&model.Account{
		Email:    pending.Email,
		Username: pending.Username,
		Password: pending.Password,
	})
	if err != nil {
		return nil, err
	}

	_ = svc.redisSvc.Delete(ctx, key)
	svc.gatewaySvc.OnAccountCreated(account.Username, account.Email, account.Password)

	log.WithField("username", account.Username).Info("Account verified")
	return &dto.LoginResponse{Username: account.Username, Profile: account.Profile, Contacts: []string{}}, nil
}

// Login authenticates with email+password and returns the profile snapshot
// the client boots from.
func (svc *AccountService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	account, err := svc.authenticate(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account.LastLogin = &now
	if err := svc.sqlSvc.UpdateAccount(account); err != nil {
		log.WithError(err).WithField("username", account.Username).Warn("Failed to record login time")
	}

	contacts, err := svc.sqlSvc.ListContacts(account.ID)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Username: account.Username,
		Profile:  account.Profile,
		Contacts: contacts,
	}, nil
}

// Delete removes the account, its contacts, and its queued messages, then
// tells the gateway to drop the identity and any live connection it holds.
func (svc *AccountService) Delete(ctx context.Context, req dto.DeleteAccountRequest) error {
	account, err := svc.authenticate(req.Email, req.Password)
	if err != nil {
		return err
	}

	// Mailbox cleanup must precede the row delete; the queue key is the
	// account ID.
	if err := svc.mailboxSvc.ClearAccount(ctx, account.ID); err != nil {
		log.WithError(err).WithField("username", account.Username).Warn("Failed to clear mailbox on delete")
	}
	if err := svc.sqlSvc.DeleteAccount(account.ID); err != nil {
		return err
	}

	svc.gatewaySvc.OnAccountRemoved(account.Email)
	log.WithField("username", account.Username).Info("Account deleted")
	return nil
}

// Token exchanges email+password for a session token scoped to the user
// surface. The gateway itself never accepts tokens.
func (svc *AccountService) Token(ctx context.Context, req dto.TokenRequest) (*dto.TokenResponse, error) {
	account, err := svc.authenticate(req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	token, err := svc.jwtSvc.ToJWT(account.ID)
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		Username:  account.Username,
		Token:     token,
		ExpiresIn: int64(svc.jwtSvc.TokenDuration.Seconds()),
	}, nil
}

// SetProfile stores a hex-encoded profile image for the token's account.
func (svc *AccountService) SetProfile(ctx context.Context, userID string, req dto.SetProfileRequest) error {
	account, err := svc.accountByID(userID)
	if err != nil {
		return err
	}

	if !svc.parserSvc.IsHex(req.Image) || !svc.parserSvc.CheckPayloadSize(req.Image) {
		return shared.NewAppError(http.StatusBadRequest, shared.StatusBadImageSize, "The profile image is not a valid hex payload.")
	}

	account.Profile = req.Image
	return svc.sqlSvc.UpdateAccount(account)
}

// Profile returns another user's profile, visible to contacts only. Your own
// profile is always visible.
func (svc *AccountService) Profile(ctx context.Context, userID string, req dto.ProfileRequest) (*dto.ProfileResponse, error) {
	owner, err := svc.accountByID(userID)
	if err != nil {
		return nil, err
	}

	target, err := svc.sqlSvc.GetAccountByUsername(req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrUserNotFound()
		}
		return nil, err
	}

	if target.ID != owner.ID {
		ok, err := svc.sqlSvc.IsContact(owner.ID, target.Username)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, shared.ErrNotInContacts(target.Username)
		}
	}

	return &dto.ProfileResponse{Username: target.Username, Image: target.Profile}, nil
}

// PendingMessages drains the caller's mailbox. Retrieval is explicit; a
// reconnect alone never empties the queue.
func (svc *AccountService) PendingMessages(ctx context.Context, userID string) (*dto.PendingMessagesResponse, error) {
	account, err := svc.accountByID(userID)
	if err != nil {
		return nil, err
	}

	messages, err := svc.mailboxSvc.Drain(ctx, account.Username)
	if err != nil {
		return nil, err
	}

	return &dto.PendingMessagesResponse{Messages: messages}, nil
}

// RecordContact links sender and recipient in both directions after a
// successful delivery, so each sees the other's profile afterwards.
func (svc *AccountService) RecordContact(senderEmail, recipientUsername string) {
	sender, err := svc.sqlSvc.GetAccountByEmail(senderEmail)
	if err != nil {
		log.WithError(err).WithField("email", senderEmail).Warn("Contact link skipped, sender lookup failed")
		return
	}
	recipient, err := svc.sqlSvc.GetAccountByUsername(recipientUsername)
	if err != nil {
		log.WithError(err).WithField("username", recipientUsername).Warn("Contact link skipped, recipient lookup failed")
		return
	}

	if err := svc.sqlSvc.AddContact(sender.ID, recipient.Username); err != nil {
		log.WithError(err).Warn("Failed to add contact edge")
	}
	if err := svc.sqlSvc.AddContact(recipient.ID, sender.Username); err != nil {
		log.WithError(err).Warn("Failed to add contact edge")
	}
}

func (svc *AccountService) authenticate(email, password string) (*model.Account, error) {
	account, err := svc.sqlSvc.GetAccountByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrBadCredentials()
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(password)) != nil {
		return nil, shared.ErrBadCredentials()
	}
	return account, nil
}

func (svc *AccountService) accountByID(userID string) (*model.Account, error) {
	account, err := svc.sqlSvc.GetAccountByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrUserNotFound()
		}
		return nil, err
	}
	return account, nil
}

// generateVerificationCode returns an 8-digit numeric code.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}
