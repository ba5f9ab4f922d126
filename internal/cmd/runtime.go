package cmd

import (
	"fmt"

	"github.com/spf13/afero"

	appconfig "github.com/peterM/HangFixer/internal/config"
	"github.com/peterM/HangFixer/internal/event"
	"github.com/peterM/HangFixer/internal/guard"
	"github.com/peterM/HangFixer/internal/logging"
	"github.com/peterM/HangFixer/internal/phase"
	"github.com/peterM/HangFixer/internal/recovery"
	"github.com/peterM/HangFixer/internal/sentinel"
)

// appFS is the filesystem every command works on; tests swap in a MemMapFs.
var appFS afero.Fs = afero.NewOsFs()

// runtime bundles the components built from the effective configuration.
type runtime struct {
	cfg       *appconfig.Config
	logger    *logging.Logger
	sentinels *sentinel.Manager
	policy    *recovery.Policy
}

func newRuntime() (*runtime, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}

	sentinels := sentinel.NewManager(appFS,
		sentinel.WithExtension(cfg.Sentinel.Extension),
		sentinel.WithLabel(cfg.Sentinel.Label),
	)
	policy := recovery.NewPolicy(appFS,
		recovery.Targets{
			CacheDirs:    cfg.Recovery.CacheDirs,
			SessionGlobs: cfg.Recovery.SessionGlobs,
		},
		recovery.WithLogger(logger),
	)

	return &runtime{
		cfg:       cfg,
		logger:    logger,
		sentinels: sentinels,
		policy:    policy,
	}, nil
}

// locker returns the per-workspace guard the configuration asks for.
func (rt *runtime) locker() guard.Locker {
	if rt.cfg.Locking.CrossProcess {
		return guard.NewFileLocker(rt.cfg.Locking.Dir, guard.DefaultLockTimeout)
	}
	return guard.NewKeyedMutex()
}

func (rt *runtime) sequencer(bus *event.Bus) *phase.Sequencer {
	return phase.New(rt.sentinels, rt.policy,
		phase.WithLocker(rt.locker()),
		phase.WithBus(bus),
		phase.WithLogger(rt.logger),
	)
}

func (rt *runtime) close() {
	_ = rt.logger.Close()
}
