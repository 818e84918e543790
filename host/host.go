// Package host wires a configuration into a running pair of funding
// services: logger, ledger store, metrics, authorizer, bank, custody
// accounts and the vesting releaser.
package host

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/bitfsorg/matchfund-go/asset"
	"github.com/bitfsorg/matchfund-go/auth"
	"github.com/bitfsorg/matchfund-go/collection"
	"github.com/bitfsorg/matchfund-go/config"
	"github.com/bitfsorg/matchfund-go/fund"
	"github.com/bitfsorg/matchfund-go/ledger"
	"github.com/bitfsorg/matchfund-go/metrics"
	"github.com/bitfsorg/matchfund-go/quadratic"
	"github.com/bitfsorg/matchfund-go/vesting"
)

// Store file names inside the data directory.
const (
	BoltFile   = "matchfund.db"
	SQLiteFile = "matchfund.sqlite"
)

// labelOperator derives the releaser's signing key from the custody seed.
const labelOperator = "operator"

// tokenTTL bounds operator tokens minted for each releaser call.
const tokenTTL = time.Minute

// Host owns both services and everything they run on.
type Host struct {
	cfg      config.Config
	log      *logrus.Logger
	store    ledger.Store
	registry *prometheus.Registry
	bank     *asset.MemBank
	operator auth.Principal
	creds    vesting.Credentials
	custody  map[string]auth.Principal

	collection *collection.Service
	vesting    *vesting.Service
	releaser   *vesting.Releaser
}

// Option customizes a Host.
type Option func(*options)

type options struct {
	clock fund.Clock
	log   *logrus.Logger
}

// WithClock replaces the system clock.
func WithClock(c fund.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithLogger replaces the default logger. Its level is still set from the
// config.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.log = l }
}

// New validates cfg and builds a host. The releaser is not started.
func New(cfg config.Config, opts ...Option) (*Host, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	o := options{clock: fund.SystemClock{}, log: logrus.New()}
	for _, opt := range opts {
		opt(&o)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidLogLevel, err)
	}
	o.log.SetLevel(level)

	h := &Host{
		cfg:      cfg,
		log:      o.log,
		registry: prometheus.NewRegistry(),
		bank:     asset.NewMemBank(),
		custody:  make(map[string]auth.Principal),
	}

	h.store, err = openStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := h.wire(o.clock); err != nil {
		_ = h.store.Close()
		return nil, err
	}
	return h, nil
}

func openStore(cfg config.Config) (ledger.Store, error) {
	switch cfg.Store {
	case config.StoreBolt, config.StoreSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("host: create data dir: %w", err)
		}
	}
	switch cfg.Store {
	case config.StoreBolt:
		return ledger.OpenBoltStore(filepath.Join(cfg.DataDir, BoltFile))
	case config.StoreSQLite:
		return ledger.OpenSQLiteStore(filepath.Join(cfg.DataDir, SQLiteFile))
	default:
		return ledger.NewMemStore(), nil
	}
}

func (h *Host) wire(clock fund.Clock) error {
	mainnet := h.cfg.Network == "mainnet"

	rec, err := metrics.NewRecorder(h.registry)
	if err != nil {
		return err
	}

	seed, err := config.CustodySeed(h.cfg)
	if err != nil {
		return err
	}
	if seed == nil {
		seed = make([]byte, 32)
		if _, err := rand.Read(seed); err != nil {
			return fmt.Errorf("host: custody seed: %w", err)
		}
		h.log.Warn("no custody seed configured, custody accounts are ephemeral")
	}

	operatorKey, err := auth.DeriveCustodyKey(seed, labelOperator)
	if err != nil {
		return err
	}
	h.operator, err = auth.AddressFromPublicKey(operatorKey.PubKey(), mainnet)
	if err != nil {
		return err
	}

	var authorizer auth.Authorizer
	switch h.cfg.AuthMode {
	case config.AuthSignature:
		authorizer = auth.NewSignatureAuthorizer(mainnet)
		h.creds = func(ctx context.Context) (context.Context, error) {
			call, err := auth.SignCall(operatorKey, uuid.NewString(), mainnet)
			if err != nil {
				return nil, err
			}
			return auth.WithSignedCall(ctx, call), nil
		}
	case config.AuthJWT:
		jwtAuth := auth.NewJWTAuthorizer([]byte(h.cfg.JWTSecret))
		authorizer = jwtAuth
		h.creds = func(ctx context.Context) (context.Context, error) {
			token, err := jwtAuth.IssueToken(h.operator, tokenTTL)
			if err != nil {
				return nil, err
			}
			return auth.WithToken(ctx, token), nil
		}
	default:
		authorizer = auth.TrustedHost{}
		h.creds = func(ctx context.Context) (context.Context, error) {
			return auth.WithCaller(ctx, h.operator), nil
		}
	}

	env := func(service string) (fund.Env, error) {
		custody, err := auth.CustodyPrincipal(seed, service, mainnet)
		if err != nil {
			return fund.Env{}, err
		}
		h.custody[service] = custody
		return fund.Env{
			Store:   ledger.Prefixed(h.store, service+"/"),
			Bank:    h.bank,
			Auth:    authorizer,
			Clock:   clock,
			Custody: custody,
			Log:     h.log.WithField("custody", custody),
			Metrics: rec,
		}, nil
	}

	policy, err := quadratic.ParsePolicy(h.cfg.AllocationPolicy)
	if err != nil {
		return err
	}
	cenv, err := env(collection.ServiceName)
	if err != nil {
		return err
	}
	if h.collection, err = collection.New(cenv, collection.WithPolicy(policy)); err != nil {
		return err
	}
	venv, err := env(vesting.ServiceName)
	if err != nil {
		return err
	}
	if h.vesting, err = vesting.New(venv); err != nil {
		return err
	}

	if h.cfg.ReleaseSchedule != "" {
		h.releaser = vesting.NewReleaser(h.vesting, h.operator, h.creds, h.cfg.ReleaseSchedule, logrus.NewEntry(h.log))
	}

	h.log.WithFields(logrus.Fields{
		"store":    h.cfg.Store,
		"auth":     h.cfg.AuthMode,
		"policy":   policy.String(),
		"operator": h.operator,
	}).Info("host ready")
	return nil
}

// Start starts the vesting releaser if one is configured.
func (h *Host) Start() error {
	if h.releaser == nil {
		return nil
	}
	return h.releaser.Start()
}

// Close stops the releaser, waiting for a running release, and closes the
// store.
func (h *Host) Close() error {
	if h.releaser != nil {
		<-h.releaser.Stop().Done()
	}
	if err := h.store.Close(); err != nil && !errors.Is(err, ledger.ErrClosed) {
		return err
	}
	return nil
}

// Collection returns the collection service.
func (h *Host) Collection() *collection.Service { return h.collection }

// Vesting returns the vesting service.
func (h *Host) Vesting() *vesting.Service { return h.vesting }

// Releaser returns the vesting releaser, or nil when no schedule is set.
func (h *Host) Releaser() *vesting.Releaser { return h.releaser }

// Bank returns the in-memory bank both services transfer through.
func (h *Host) Bank() *asset.MemBank { return h.bank }

// Operator returns the account the releaser acts as. A vesting pool must be
// initialized with it as admin for scheduled releases to succeed.
func (h *Host) Operator() auth.Principal { return h.operator }

// OperatorContext attaches the operator's credentials to ctx, for admin
// calls made as the operator.
func (h *Host) OperatorContext(ctx context.Context) (context.Context, error) {
	return h.creds(ctx)
}

// Custody returns the custody account of service ("collection" or "vesting").
func (h *Host) Custody(service string) auth.Principal { return h.custody[service] }

// Metrics returns the registry holding the service metrics.
func (h *Host) Metrics() prometheus.Gatherer { return h.registry }
