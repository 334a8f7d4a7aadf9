package services

import (
	"context"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
)

// limiterSweeper lets the janitor reach the admission limiter without the
// services package importing middleware.
type limiterSweeper interface {
	Sweep() int
}

// JanitorService runs the periodic maintenance loops: queued messages past
// their retention are discarded and lapsed limiter entries are swept.
// Pending registrations expire on their own via Redis TTL.
type JanitorService struct {
	appContext.DefaultService

	mailboxSvc *MailboxService

	sweeper   limiterSweeper
	interval  time.Duration
	retention time.Duration
	closed    chan struct{}
}

const JANITOR_SVC = "janitor_svc"

func (svc JanitorService) Id() string {
	return JANITOR_SVC
}

func (svc *JanitorService) Configure(ctx *appContext.Context) error {
	svc.closed = make(chan struct{})
	svc.interval = time.Hour
	svc.retention = 7 * 24 * time.Hour
	if hours, err := strconv.Atoi(os.Getenv("QUEUE_RETENTION_HOURS")); err == nil && hours > 0 {
		svc.retention = time.Duration(hours) * time.Hour
	}
	return svc.DefaultService.Configure(ctx)
}

func (svc *JanitorService) Start() error {
	svc.mailboxSvc = svc.Service(MAILBOX_SVC).(*MailboxService)

	go svc.run()
	return nil
}

func (svc *JanitorService) Shutdown() {
	close(svc.closed)
}

// SetSweeper attaches the limiter; called from runtime wiring after the
// middleware service exists.
func (svc *JanitorService) SetSweeper(s limiterSweeper) {
	svc.sweeper = s
}

func (svc *JanitorService) run() {
	ticker := time.NewTicker(svc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.runOnce()
		case <-svc.closed:
			return
		}
	}
}

func (svc *JanitorService) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dropped, err := svc.mailboxSvc.PurgeStale(ctx, svc.retention)
	if err != nil {
		log.WithError(err).Error("Queue history purge failed")
	} else if dropped > 0 {
		log.WithField("dropped", dropped).Info("Purged stale queued messages")
	}

	if svc.sweeper != nil {
		if removed := svc.sweeper.Sweep(); removed > 0 {
			log.WithField("removed", removed).Debug("Swept lapsed rate limit entries")
		}
	}
}
