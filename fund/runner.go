package fund

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdbig "math/big"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/matchfund-go/asset"
	"github.com/bitfsorg/matchfund-go/auth"
	"github.com/bitfsorg/matchfund-go/ledger"
	"github.com/bitfsorg/matchfund-go/metrics"
)

// Env carries the capabilities a service runs on.
type Env struct {
	Store   ledger.Store
	Bank    asset.Transferer
	Auth    auth.Authorizer
	Clock   Clock
	Custody auth.Principal // account holding the pooled funds
	Log     *logrus.Entry
	Metrics *metrics.Recorder
}

func (e Env) validate() error {
	switch {
	case e.Store == nil:
		return fmt.Errorf("%w: nil store", ErrInvalidEnv)
	case e.Bank == nil:
		return fmt.Errorf("%w: nil bank", ErrInvalidEnv)
	case e.Auth == nil:
		return fmt.Errorf("%w: nil authorizer", ErrInvalidEnv)
	case e.Clock == nil:
		return fmt.Errorf("%w: nil clock", ErrInvalidEnv)
	case e.Custody == "":
		return fmt.Errorf("%w: empty custody account", ErrInvalidEnv)
	}
	return nil
}

// Runner executes the operations of one service one at a time.
//
// Each operation sees a staged view of the ledger. If the operation returns an
// error, or the final commit fails, its staged writes are dropped and every
// transfer it made is reversed, so a rejected call leaves no trace.
type Runner struct {
	service string
	env     Env
	log     *logrus.Entry

	mu sync.Mutex
}

// NewRunner creates a runner for service over env.
func NewRunner(service string, env Env) (*Runner, error) {
	if err := env.validate(); err != nil {
		return nil, err
	}
	log := env.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	return &Runner{
		service: service,
		env:     env,
		log:     log.WithField("service", service),
	}, nil
}

// Op is the context of one running operation.
type Op struct {
	ctx    context.Context
	now    uint64
	env    *Env
	batch  *asset.Batch
	fields logrus.Fields

	// Txn stages the ledger writes of the operation.
	Txn *ledger.Txn
}

// Now returns the clock reading taken when the operation started.
func (o *Op) Now() uint64 { return o.now }

// Custody returns the service custody account.
func (o *Op) Custody() auth.Principal { return o.env.Custody }

// With attaches a log field to the operation outcome line.
func (o *Op) With(key string, value interface{}) *Op {
	o.fields[key] = value
	return o
}

// Require checks that the caller is p.
func (o *Op) Require(p auth.Principal) error {
	if err := o.env.Auth.Require(o.ctx, p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAuth, err)
	}
	return nil
}

// RequireAdmin checks that the caller is caller and that caller is the
// stored admin.
func (o *Op) RequireAdmin(caller auth.Principal) error {
	o.With("caller", caller)
	if err := o.Require(caller); err != nil {
		return err
	}
	var admin auth.Principal
	if err := Load(o.Txn, KeyAdmin, &admin); err != nil {
		return err
	}
	if admin != caller {
		return fmt.Errorf("%w: %s is not the admin", ErrInvalidAuth, caller)
	}
	return nil
}

// Transfer moves amount and records it for rollback.
func (o *Op) Transfer(assetID, from, to auth.Principal, amount Amount) error {
	if err := o.batch.Transfer(o.ctx, assetID, from, to, amount); err != nil {
		return fmt.Errorf("fund: transfer %v from %s to %s: %w", amount, from, to, err)
	}
	return nil
}

// Run executes fn as operation op. Operations never overlap.
func (r *Runner) Run(ctx context.Context, op string, fn func(*Op) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o := &Op{
		ctx:    ctx,
		now:    r.env.Clock.Now(),
		env:    &r.env,
		batch:  asset.NewBatch(r.env.Bank),
		fields: logrus.Fields{"op": op},
		Txn:    ledger.Begin(r.env.Store),
	}

	err := fn(o)
	if err == nil {
		err = o.Txn.Commit()
	}
	r.env.Metrics.ObserveOperation(r.service, op, err)

	entry := r.log.WithFields(o.fields).WithField("now", o.now)
	if err != nil {
		o.Txn.Discard()
		if cerr := o.batch.Compensate(ctx); cerr != nil {
			entry.WithError(cerr).Error("transfer rollback failed")
			err = errors.Join(err, cerr)
		}
		entry.WithError(err).Warn("operation rejected")
		return err
	}

	moved := o.batch.Total()
	units, _ := new(stdbig.Float).SetInt(moved.Int).Float64()
	r.env.Metrics.ObserveTransferred(r.service, op, units)
	entry.WithField("transferred", moved.String()).Info("operation committed")
	return nil
}

// View runs a read-only query against the committed ledger.
func (r *Runner) View(fn func(ledger.Reader) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.env.Store)
}

// Now reads the service clock.
func (r *Runner) Now() uint64 { return r.env.Clock.Now() }

// ValidateInit checks init parameters shared by both services.
func ValidateInit(now, deadline uint64, beneficiaries []auth.Principal) error {
	if deadline < now {
		return fmt.Errorf("%w: deadline %d is before now %d", ErrInvalidTimestamp, deadline, now)
	}
	if len(beneficiaries) < 1 {
		return fmt.Errorf("%w: at least one beneficiary required", ErrInvalidAssociation)
	}
	return nil
}

// CheckRegistrationOpen rejects registrations at or after deadline.
func CheckRegistrationOpen(now, deadline uint64) error {
	if now >= deadline {
		return fmt.Errorf("%w: registration closed at %d", ErrInvalidAssociation, deadline)
	}
	return nil
}

// CheckDepositOpen rejects deposits at or after deadline.
func CheckDepositOpen(now, deadline uint64) error {
	if now >= deadline {
		return fmt.Errorf("%w: deposit window closed at %d", ErrInvalidTimestamp, deadline)
	}
	return nil
}
