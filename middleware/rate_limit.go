package middleware

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/blackwell-chat/relay_api/dto"
	"github.com/blackwell-chat/relay_api/model"
	"github.com/blackwell-chat/relay_api/services"
	"github.com/blackwell-chat/relay_api/shared"
)

// A window older than this with no block pending is treated as lapsed and
// its entry discarded.
const stalenessInterval = 10 * time.Second

// rateLimitEntry is the per-identity counter. Each entry carries its own
// lock so concurrent admits for one identity serialize without stalling
// unrelated clients. gone marks an entry removed from the set while another
// goroutine still holds a pointer to it.
type rateLimitEntry struct {
	mu           sync.Mutex
	count        int
	windowStart  time.Time
	blocked      bool
	blockedUntil time.Time
	gone         bool
}

// RateLimitMiddleware gates every exposed route with a per-IP admission
// budget. Entries are created lazily and removed once their window or block
// lapses; the set never grows with idle identities.
type RateLimitMiddleware struct {
	context.DefaultService

	configs map[string]model.RouteLimit

	mu      sync.Mutex
	entries map[string]*rateLimitEntry
}

const RATE_LIMIT_MIDDLEWARE_SVC = "rate_limit"

func (svc RateLimitMiddleware) Id() string {
	return RATE_LIMIT_MIDDLEWARE_SVC
}

func (svc *RateLimitMiddleware) Configure(ctx *context.Context) error {
	svc.entries = make(map[string]*rateLimitEntry)
	svc.initDefaultConfigs()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RateLimitMiddleware) Start() error {
	return nil
}

func (svc *RateLimitMiddleware) initDefaultConfigs() {
	limits := []model.RouteLimit{
		{Endpoint: "root", MaxCalls: 10, Window: 60 * time.Second, Description: "Service banner"},
		{Endpoint: "gateway", MaxCalls: 10, Window: 60 * time.Second, Description: "Websocket upgrade"},
		{Endpoint: "login", MaxCalls: 2, Window: 30 * time.Second, Description: "Credential login"},
		{Endpoint: "register", MaxCalls: 5, Window: 30 * time.Second, Description: "Account registration"},
		{Endpoint: "verify", MaxCalls: 5, Window: 30 * time.Second, Description: "Email code verification"},
		{Endpoint: "user_delete", MaxCalls: 50, Window: 20 * time.Second, Description: "Account removal"},
		{Endpoint: "token", MaxCalls: 10, Window: 60 * time.Second, Description: "Session token issue"},
		{Endpoint: "set_profile", MaxCalls: 5, Window: 20 * time.Second, Description: "Profile image upload"},
		{Endpoint: "profile", MaxCalls: 25, Window: 20 * time.Second, Description: "Profile lookup"},
		{Endpoint: "send", MaxCalls: 10, Window: 5 * time.Second, Description: "Message send"},
		{Endpoint: "message_delete", MaxCalls: 50, Window: 20 * time.Second, Description: "Message delete action"},
		{Endpoint: "pending", MaxCalls: 25, Window: 20 * time.Second, Description: "Mailbox drain"},
	}

	svc.configs = make(map[string]model.RouteLimit, len(limits))
	for _, l := range limits {
		svc.configs[l.Endpoint] = l
	}
}

// Admit applies the admission algorithm for one request. A nil error means
// allowed; otherwise the error is the structured too-many-requests reject
// carrying the unblock time.
func (svc *RateLimitMiddleware) Admit(identity string, limit model.RouteLimit) (*dto.RateLimitInfo, error) {
	// No resolvable client identity: nothing to key the budget on.
	if identity == "" {
		return &dto.RateLimitInfo{Allowed: true, Remaining: -1}, nil
	}

	for {
		now := time.Now()

		entry, created := svc.entry(identity, now)
		if created {
			reset := now.Add(limit.Window)
			return &dto.RateLimitInfo{Allowed: true, Remaining: limit.MaxCalls - 1, ResetTime: &reset}, nil
		}

		entry.mu.Lock()
		if entry.gone {
			entry.mu.Unlock()
			continue
		}

		if entry.blocked {
			if now.Before(entry.blockedUntil) {
				until := entry.blockedUntil
				entry.mu.Unlock()
				return &dto.RateLimitInfo{ResetTime: &until, BlockedUntil: &until}, shared.ErrAdmissionRejected(until)
			}
			// Block lapsed: the entry is removed, the retry restarts fresh.
			entry.gone = true
			entry.mu.Unlock()
			svc.remove(identity, entry)
			continue
		}

		if entry.count >= limit.MaxCalls {
			entry.blocked = true
			entry.blockedUntil = now.Add(limit.Window)
			until := entry.blockedUntil
			entry.mu.Unlock()
			return &dto.RateLimitInfo{ResetTime: &until, BlockedUntil: &until}, shared.ErrAdmissionRejected(until)
		}

		if now.Sub(entry.windowStart) > stalenessInterval {
			entry.gone = true
			entry.mu.Unlock()
			svc.remove(identity, entry)
			continue
		}

		entry.count++
		entry.windowStart = now
		remaining := limit.MaxCalls - entry.count
		entry.mu.Unlock()

		reset := now.Add(limit.Window)
		return &dto.RateLimitInfo{Allowed: true, Remaining: remaining, ResetTime: &reset}, nil
	}
}

// entry returns the identity's counter, creating it with count=1 when the
// identity is new.
func (svc *RateLimitMiddleware) entry(identity string, now time.Time) (*rateLimitEntry, bool) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if e, ok := svc.entries[identity]; ok {
		return e, false
	}

	e := &rateLimitEntry{count: 1, windowStart: now}
	svc.entries[identity] = e
	return e, true
}

// remove deletes the entry only if the set still holds this exact pointer;
// a concurrent retry may already have installed a fresh one.
func (svc *RateLimitMiddleware) remove(identity string, entry *rateLimitEntry) {
	svc.mu.Lock()
	if svc.entries[identity] == entry {
		delete(svc.entries, identity)
	}
	svc.mu.Unlock()
}

// Sweep drops every lapsed entry. Called periodically by the janitor so
// identities that went quiet mid-window do not accumulate.
func (svc *RateLimitMiddleware) Sweep() int {
	now := time.Now()

	svc.mu.Lock()
	snapshot := make(map[string]*rateLimitEntry, len(svc.entries))
	for id, e := range svc.entries {
		snapshot[id] = e
	}
	svc.mu.Unlock()

	removed := 0
	for id, e := range snapshot {
		e.mu.Lock()
		lapsed := false
		if e.gone {
			e.mu.Unlock()
			continue
		}
		if e.blocked {
			lapsed = !now.Before(e.blockedUntil)
		} else {
			lapsed = now.Sub(e.windowStart) > stalenessInterval
		}
		if lapsed {
			e.gone = true
		}
		e.mu.Unlock()

		if lapsed {
			svc.remove(id, e)
			removed++
		}
	}
	return removed
}

// EntryCount reports the current size of the entry set.
func (svc *RateLimitMiddleware) EntryCount() int {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return len(svc.entries)
}

// Limit returns a fiber handler gating one configured endpoint. Endpoints
// without a budget pass through.
func (svc *RateLimitMiddleware) Limit(endpoint string) fiber.Handler {
	limit, ok := svc.configs[endpoint]
	if !ok {
		log.WithField("endpoint", endpoint).Warn("No rate limit budget configured, passing through")
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		info, err := svc.Admit(ClientIP(c), limit)

		if info != nil {
			if info.ResetTime != nil {
				c.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
			}
			c.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		}

		if err != nil {
			if info != nil && info.BlockedUntil != nil {
				c.Set("Retry-After", strconv.FormatInt(info.BlockedUntil.Unix(), 10))
			}
			services.RecordRateLimitRejected(endpoint)
			return err
		}

		return c.Next()
	}
}

// ClientIP resolves the originating address, preferring proxy headers. An
// empty result bypasses the limiter.
func ClientIP(c *fiber.Ctx) string {
	forwarded := c.Get("X-Forwarded-For")
	if forwarded != "" {
		ips := strings.Split(forwarded, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	realIP := c.Get("X-Real-IP")
	if realIP != "" {
		return realIP
	}

	return c.IP()
}
