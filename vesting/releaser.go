package vesting

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/matchfund-go/auth"
	"github.com/bitfsorg/matchfund-go/fund"
)

// DefaultSchedule runs the release at midnight on the first day of each month.
const DefaultSchedule = "0 0 1 * *"

// Credentials attaches the operator's credentials to ctx.
type Credentials func(ctx context.Context) (context.Context, error)

// Releaser pays vesting periods on a cron schedule, acting as the operator.
type Releaser struct {
	svc      *Service
	operator auth.Principal
	creds    Credentials
	schedule string
	log      *logrus.Entry

	mu   sync.Mutex
	cron *cron.Cron
}

// NewReleaser creates a releaser that calls svc as operator. A nil log
// discards output; an empty schedule selects DefaultSchedule.
func NewReleaser(svc *Service, operator auth.Principal, creds Credentials, schedule string, log *logrus.Entry) *Releaser {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if creds == nil {
		creds = func(ctx context.Context) (context.Context, error) { return ctx, nil }
	}
	return &Releaser{
		svc:      svc,
		operator: operator,
		creds:    creds,
		schedule: schedule,
		log:      log.WithField("component", "releaser"),
	}
}

// RunOnce pays the next period. If the current cycle was already paid it
// opens the next cycle first, which fails with fund.ErrInvalidTimestamp
// while the cycle's withdraw deadline has not passed.
func (r *Releaser) RunOnce(ctx context.Context) error {
	call := func(op func(context.Context, auth.Principal) error) error {
		cctx, err := r.creds(ctx)
		if err != nil {
			return fmt.Errorf("vesting: operator credentials: %w", err)
		}
		return op(cctx, r.operator)
	}

	err := call(r.svc.Withdraw)
	if !errors.Is(err, fund.ErrAlreadyWithdrawn) {
		return err
	}
	if err := call(r.svc.ResetDeadline); err != nil {
		return err
	}
	return call(r.svc.Withdraw)
}

// Start schedules RunOnce and starts the scheduler.
func (r *Releaser) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron != nil {
		return nil
	}

	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(r.log))))
	if _, err := c.AddFunc(r.schedule, r.release); err != nil {
		return fmt.Errorf("vesting: schedule %q: %w", r.schedule, err)
	}
	c.Start()
	r.cron = c
	r.log.WithField("schedule", r.schedule).Info("release scheduled")
	return nil
}

func (r *Releaser) release() {
	if err := r.RunOnce(context.Background()); err != nil {
		r.log.WithError(err).Warn("release skipped")
		return
	}
	month, _ := r.svc.ClaimMonth()
	r.log.WithField("claim_month", month).Info("release paid")
}

// Stop stops the scheduler. The returned context is done once a running
// release has finished.
func (r *Releaser) Stop() context.Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	ctx := r.cron.Stop()
	r.cron = nil
	return ctx
}
