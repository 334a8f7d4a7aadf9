package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"gorm.io/gorm"

	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/shared"
)

// listStore is the slice of the Redis surface the mailbox rides on.
type listStore interface {
	RPush(ctx context.Context, key string, values ...interface{}) error
	LRangeAll(ctx context.Context, key string) ([]string, error)
	DrainList(ctx context.Context, key string) ([]string, error)
	LTrim(ctx context.Context, key string, start, stop int64) error
	Delete(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// usernameResolver translates a public username into the account row keyed in
// the store.
type usernameResolver interface {
	GetAccountByUsername(username string) (*model.Account, error)
}

// MailboxService is a stateless facade over the durable per-recipient queue.
// Every call round-trips to Redis; the only correctness concern here is key
// translation and FIFO preservation.
type MailboxService struct {
	appContext.DefaultService

	store    listStore
	resolver usernameResolver
}

const MAILBOX_SVC = "mailbox_svc"

const mailboxKeyPrefix = "queue:history:"

var ErrMailboxUnknownUser = errors.New("mailbox: unknown recipient")

func (svc MailboxService) Id() string {
	return MAILBOX_SVC
}

func (svc *MailboxService) Start() error {
	svc.store = svc.Service(REDIS_SVC).(*RedisService)
	svc.resolver = svc.Service(POSTGRES_SVC).(*PostgresService)
	return nil
}

func mailboxKey(accountID string) string {
	return mailboxKeyPrefix + accountID
}

func (svc *MailboxService) resolveKey(username string) (string, error) {
	account, err := svc.resolver.GetAccountByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrMailboxUnknownUser
		}
		return "", err
	}
	return mailboxKey(account.ID), nil
}

// Enqueue appends one pending message to the recipient's queue.
func (svc *MailboxService) Enqueue(ctx context.Context, username string, msg model.Message) error {
	key, err := svc.resolveKey(username)
	if err != nil {
		return err
	}

	queued := model.QueuedMessage{Message: msg, CreatedAt: time.Now()}
	data, err := sonic.Marshal(queued)
	if err != nil {
		return fmt.Errorf("mailbox: marshal: %w", err)
	}

	return svc.store.RPush(ctx, key, data)
}

// Drain returns the recipient's queued messages in enqueue order and clears
// the queue. Read and delete happen in one transaction so a message enqueued
// concurrently is never dropped.
func (svc *MailboxService) Drain(ctx context.Context, username string) ([]model.QueuedMessage, error) {
	key, err := svc.resolveKey(username)
	if err != nil {
		return nil, err
	}

	raw, err := svc.store.DrainList(ctx, key)
	if err != nil {
		return nil, err
	}

	messages := make([]model.QueuedMessage, 0, len(raw))
	for _, item := range raw {
		var queued model.QueuedMessage
		if err := sonic.Unmarshal([]byte(item), &queued); err != nil {
			// A corrupt entry is dropped rather than wedging the queue.
			continue
		}
		messages = append(messages, queued)
	}

	return messages, nil
}

// ClearAccount discards a queue addressed by account ID. It is keyed directly
// so it still works when the account row is already gone from the store.
func (svc *MailboxService) ClearAccount(ctx context.Context, accountID string) error {
	return svc.store.Delete(ctx, mailboxKey(accountID))
}

// PurgeStale drops queued messages older than maxAge from every mailbox and
// returns how many were discarded. Messages age in enqueue order, so the
// expired ones are a prefix of the list; the prefix is cut with a single trim
// so a message enqueued mid-purge is never reordered or lost. A corrupt entry
// sitting behind a fresh one survives until its turn at the head.
func (svc *MailboxService) PurgeStale(ctx context.Context, maxAge time.Duration) (int, error) {
	keys, err := svc.store.Keys(ctx, mailboxKeyPrefix+"*")
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	dropped := 0

	for _, key := range keys {
		raw, err := svc.store.LRangeAll(ctx, key)
		if err != nil {
			return dropped, err
		}

		stale := 0
		for _, item := range raw {
			var queued model.QueuedMessage
			if err := sonic.Unmarshal([]byte(item), &queued); err != nil {
				stale++
				continue
			}
			if !queued.CreatedAt.Before(cutoff) {
				break
			}
			stale++
		}

		if stale == 0 {
			continue
		}

		if err := svc.store.LTrim(ctx, key, int64(stale), -1); err != nil {
			return dropped, err
		}
		dropped += stale
	}

	return dropped, nil
}

// DeliveryEnvelope is what a recipient sees for each drained message.
type DeliveryEnvelope struct {
	Title   string        `json:"title"`
	Status  string        `json:"status"`
	Message model.Message `json:"message"`
}

func NewDeliveryEnvelope(msg model.Message) DeliveryEnvelope {
	return DeliveryEnvelope{
		Title:   "BlackWell API - Message",
		Status:  shared.StatusOK,
		Message: msg,
	}
}
