package services

import (
	"context"
	"errors"
	"sync"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/shared"
)

// KnownAccount is the authorization record for one identity. Secret is the
// bcrypt hash from the account store; it admits new connections and nothing
// else.
type KnownAccount struct {
	Username string
	Email    string
	Secret   string
}

type gatewayDirectory interface {
	GetAccountByUsername(username string) (*model.Account, error)
	ListAccounts() ([]model.Account, error)
}

type offlineQueue interface {
	Enqueue(ctx context.Context, username string, msg model.Message) error
}

// GatewayService orchestrates the relay: it admits connections against the
// known-account set, tracks presence, and routes each message either to a
// live handle or into the offline mailbox.
type GatewayService struct {
	appContext.DefaultService

	accounts   map[string]KnownAccount
	accountsMu sync.RWMutex

	presence  *PresenceRegistry
	directory gatewayDirectory
	mailbox   offlineQueue
}

const GATEWAY_SVC = "gateway_svc"

func (svc GatewayService) Id() string {
	return GATEWAY_SVC
}

func (svc *GatewayService) Configure(ctx *appContext.Context) error {
	svc.accounts = make(map[string]KnownAccount)
	svc.presence = NewPresenceRegistry()
	return svc.DefaultService.Configure(ctx)
}

func (svc *GatewayService) Start() error {
	svc.directory = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.mailbox = svc.Service(MAILBOX_SVC).(*MailboxService)

	return svc.load()
}

// load seeds the known-account set from the account store; afterwards it is
// kept consistent purely by create/remove events.
func (svc *GatewayService) load() error {
	accounts, err := svc.directory.ListAccounts()
	if err != nil {
		return err
	}

	svc.accountsMu.Lock()
	defer svc.accountsMu.Unlock()
	for _, account := range accounts {
		svc.accounts[account.Email] = KnownAccount{
			Username: account.Username,
			Email:    account.Email,
			Secret:   account.Password,
		}
	}

	log.WithField("accounts", len(accounts)).Info("Gateway authorization set loaded")
	return nil
}

// Shutdown force-disconnects every live entry so no connection outlives the
// process's routing state.
func (svc *GatewayService) Shutdown() {
	conns := svc.presence.DrainAll()
	for _, conn := range conns {
		_ = conn.Close()
	}
	gatewayConnectionsActive.Set(0)

	if len(conns) > 0 {
		log.WithField("connections", len(conns)).Info("Gateway drained on shutdown")
	}
}

// AuthorizeConnection distinguishes missing credentials from unrecognized
// ones; both reject the connection before it gains presence.
func (svc *GatewayService) AuthorizeConnection(email, password string) error {
	if email == "" || password == "" {
		return shared.ErrCredentialsRequired()
	}

	svc.accountsMu.RLock()
	account, ok := svc.accounts[email]
	svc.accountsMu.RUnlock()

	if !ok {
		return shared.ErrBadGatewayCredentials()
	}
	if bcrypt.CompareHashAndPassword([]byte(account.Secret), []byte(password)) != nil {
		return shared.ErrBadGatewayCredentials()
	}

	return nil
}

// Connect registers presence for an already-authorized identity. A prior
// handle for the same identity is replaced and closed, never duplicated.
func (svc *GatewayService) Connect(email, password string, conn ClientConn) {
	replaced := svc.presence.Connect(email, password, conn)
	if replaced != nil {
		_ = replaced.Close()
		log.WithField("email", email).Debug("Replaced existing gateway connection")
	}

	gatewayConnectionsActive.Set(float64(svc.presence.Len()))
	log.WithField("email", email).Info("Gateway connection established")
}

// Disconnect is idempotent; only the first call for a given handle removes
// the entry.
func (svc *GatewayService) Disconnect(email string, conn ClientConn) {
	if svc.presence.Disconnect(email, conn) {
		gatewayConnectionsActive.Set(float64(svc.presence.Len()))
		log.WithField("email", email).Info("Gateway connection closed")
	}
	_ = conn.Close()
}

// ValidateSender re-validates a credential pair against the live connection
// set. Send calls never trust the transport they arrived on.
func (svc *GatewayService) ValidateSender(email, password string) bool {
	return svc.presence.ValidateSender(email, password)
}

// Send routes one shape-checked message to a recipient username. It returns
// shared.DeliveryDelivered when pushed over a live handle, and
// shared.DeliveryQueued when the message lands in the offline mailbox —
// including the case where a live push fails mid-flight.
func (svc *GatewayService) Send(ctx context.Context, toUsername string, msg model.Message) (string, error) {
	account, err := svc.directory.GetAccountByUsername(toUsername)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", shared.ErrUnknownRecipient(toUsername)
		}
		return "", err
	}

	conn, live := svc.presence.Get(account.Email)
	if live {
		if pushErr := conn.WriteJSON(NewDeliveryEnvelope(msg)); pushErr != nil {
			// Push failure is connection loss: tear the entry down and fall
			// back to the mailbox, single attempt, no retry.
			log.WithError(pushErr).WithField("to", toUsername).Warn("Live push failed, queuing instead")
			svc.Disconnect(account.Email, conn)

			if err := svc.mailbox.Enqueue(ctx, toUsername, msg); err != nil {
				return "", err
			}
			messagesQueuedTotal.Inc()
			return shared.DeliveryQueued, nil
		}

		messagesDeliveredTotal.Inc()
		return shared.DeliveryDelivered, nil
	}

	if err := svc.mailbox.Enqueue(ctx, toUsername, msg); err != nil {
		return "", err
	}
	messagesQueuedTotal.Inc()
	return shared.DeliveryQueued, nil
}

// OnAccountCreated keeps the authorization set consistent with the account
// store after a successful verification.
func (svc *GatewayService) OnAccountCreated(username, email, secret string) {
	svc.accountsMu.Lock()
	svc.accounts[email] = KnownAccount{Username: username, Email: email, Secret: secret}
	svc.accountsMu.Unlock()
}

// OnAccountRemoved drops the identity from the authorization set and
// force-disconnects any live connection it still holds.
func (svc *GatewayService) OnAccountRemoved(email string) {
	svc.accountsMu.Lock()
	delete(svc.accounts, email)
	svc.accountsMu.Unlock()

	if conn, ok := svc.presence.Get(email); ok {
		svc.Disconnect(email, conn)
	}
}

// KnownAccountCount is read by the monitoring surface.
func (svc *GatewayService) KnownAccountCount() int {
	svc.accountsMu.RLock()
	defer svc.accountsMu.RUnlock()
	return len(svc.accounts)
}

// LiveConnectionCount reports current presence.
func (svc *GatewayService) LiveConnectionCount() int {
	return svc.presence.Len()
}
