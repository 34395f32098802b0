// Package bindings exposes the game core to the Wails frontend. One App
// value is bound at startup; its exported methods become the frontend API
// and the core's bus topics are forwarded as Wails runtime events.
package bindings

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	wruntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/openplay-labs/piggy-bank-desktop/internal/autoplay"
	"github.com/openplay-labs/piggy-bank-desktop/internal/chain"
	"github.com/openplay-labs/piggy-bank-desktop/internal/devnode"
	"github.com/openplay-labs/piggy-bank-desktop/internal/events"
	"github.com/openplay-labs/piggy-bank-desktop/internal/gateway"
	"github.com/openplay-labs/piggy-bank-desktop/internal/history"
	"github.com/openplay-labs/piggy-bank-desktop/internal/hostauth"
	"github.com/openplay-labs/piggy-bank-desktop/internal/hostmsg"
	"github.com/openplay-labs/piggy-bank-desktop/internal/machine"
	"github.com/openplay-labs/piggy-bank-desktop/internal/piggy"
	"github.com/openplay-labs/piggy-bank-desktop/internal/registry"
	"github.com/openplay-labs/piggy-bank-desktop/internal/tiers"
)

// Backend modes.
const (
	ModeSim     = "sim"
	ModeLive    = "live"
	ModeDevnode = "devnode"
)

const (
	appConfigDirName = "piggy-bank-desktop"
	historyDBName    = "history.db"
	secretsFallback  = "host_secrets_fallback.json"

	devBalanceManagerID = "0xdev-balance-manager"
	devHouseID          = "0xdev-house"
	devPlayCapID        = "0xdev-play-cap"
	devRegistryID       = "0xdev-registry"
)

// Config selects the backend and carries the chain identifiers for the
// live mode.
type Config struct {
	Mode        string
	RPCURL      string
	PackageID   string
	RegistryID  string
	GameIDs     map[piggy.Difficulty]string
	DevnodePort int
	Profile     string
	DataDir     string
}

// ConfigFromEnv builds a Config from PIGGY_* environment variables. Unset
// variables fall back to the simulated backend.
func ConfigFromEnv() Config {
	cfg := Config{
		Mode:       envOr("PIGGY_BACKEND", ModeSim),
		RPCURL:     os.Getenv("PIGGY_RPC_URL"),
		PackageID:  os.Getenv("PIGGY_PACKAGE_ID"),
		RegistryID: os.Getenv("PIGGY_REGISTRY_ID"),
		Profile:    envOr("PIGGY_PROFILE", "default"),
		GameIDs: map[piggy.Difficulty]string{
			piggy.DifficultyEasy:   os.Getenv("PIGGY_GAME_ID_EASY"),
			piggy.DifficultyMedium: os.Getenv("PIGGY_GAME_ID_MEDIUM"),
			piggy.DifficultyHard:   os.Getenv("PIGGY_GAME_ID_HARD"),
		},
	}
	if s := os.Getenv("PIGGY_DEVNODE_PORT"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			cfg.DevnodePort = v
		}
	}
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// App is the Wails-bound application object.
type App struct {
	ctx    context.Context
	cfg    Config
	logger *log.Logger

	bus     *events.Bus
	reg     *registry.Registry
	tiers   *tiers.Manager
	machine *machine.Machine
	history *history.Store
	auth    *hostauth.Store

	// Live-mode plumbing. Nil in sim mode.
	live   *gateway.Live
	proxy  *hostmsg.Proxy
	client *chain.Client
	dev    *devnode.Server

	emit func(eventName string, payload any)

	scriptMu sync.Mutex
	vm       *autoplay.VM
	runner   *autoplay.Runner

	unsubs []func()
}

// New creates an unstarted App. Wiring happens in Startup, once the Wails
// context is available.
func New(cfg Config) *App {
	return &App{
		cfg:    cfg,
		logger: log.New(log.Writer(), "[app] ", log.LstdFlags),
	}
}

// Startup wires the core for the configured backend mode. Called by Wails
// once the runtime is ready.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	if a.emit == nil {
		a.emit = func(eventName string, payload any) {
			wruntime.EventsEmit(a.ctx, eventName, payload)
		}
	}

	dataDir := a.cfg.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		panic(fmt.Errorf("bindings: create data dir: %w", err))
	}

	store, err := history.New(filepath.Join(dataDir, historyDBName))
	if err != nil {
		panic(fmt.Errorf("bindings: open history store: %w", err))
	}
	a.history = store
	a.auth = hostauth.NewStore(appConfigDirName, filepath.Join(dataDir, secretsFallback))

	a.bus = events.NewBus()
	a.reg = registry.New()
	a.tiers = tiers.NewManager(a.bus, a.reg)
	a.reg.SetStake(piggy.AllowedStakes[0])

	a.forwardTopics()

	var gw gateway.Gateway
	var reload machine.Reloader
	switch a.cfg.Mode {
	case ModeLive:
		gw, reload = a.buildLive()
	case ModeDevnode:
		gw, reload = a.buildDevnode()
	default:
		gw, reload = a.buildSim()
	}

	a.machine = machine.New(a.bus, a.reg, gw, a.tiers, reload)
	a.wireMachine()

	// The live backend cannot load before the host handshake delivers the
	// account identifiers.
	if a.cfg.Mode != ModeLive {
		a.machine.Reload(ctx)
	} else if init, err := a.auth.LoadInit(a.cfg.Profile); err == nil && init.BalanceManagerID != "" {
		a.live.SetInitData(init)
		a.machine.Reload(ctx)
	}

	a.logger.Printf("started in %s mode", a.cfg.Mode)
}

// Shutdown releases the backing resources. Called by Wails on close.
func (a *App) Shutdown(ctx context.Context) {
	a.StopAutoplay()
	for _, unsub := range a.unsubs {
		unsub()
	}
	a.unsubs = nil
	if a.dev != nil {
		if err := a.dev.Shutdown(ctx); err != nil {
			a.logger.Printf("devnode shutdown: %v", err)
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Printf("history close: %v", err)
		}
	}
}

// forwardTopics mirrors every bus topic to the frontend as a Wails event
// of the same name.
func (a *App) forwardTopics() {
	topics := []events.Topic{
		events.StatusUpdated,
		events.BalanceUpdated,
		events.Interacted,
		events.ErrorRaised,
		events.GameLoaded,
		events.DifficultyChanged,
		events.StakeChanged,
	}
	for _, topic := range topics {
		name := string(topic)
		a.unsubs = append(a.unsubs, a.bus.Subscribe(topic, func(payload any) {
			a.emit(name, payload)
		}))
	}
}

// wireMachine routes gateway resolutions into the machine and persists
// settled outcomes.
func (a *App) wireMachine() {
	a.unsubs = append(a.unsubs, a.bus.Subscribe(events.Interacted, func(payload any) {
		outcome, ok := payload.(piggy.Outcome)
		if !ok {
			return
		}
		a.recordOutcome(outcome)
		a.machine.HandleOutcome(a.ctx, outcome)
	}))
	a.unsubs = append(a.unsubs, a.bus.Subscribe(events.ErrorRaised, func(payload any) {
		msg, ok := payload.(string)
		if !ok || msg == machine.ReloadFailedMessage {
			return
		}
		a.machine.HandleError(a.ctx, msg)
	}))
}

// recordOutcome writes a settled outcome to the round history. The action
// is reconstructed from the state preceding the outcome: this runs before
// HandleOutcome, so the registry still holds the pre-interaction context.
func (a *App) recordOutcome(outcome piggy.Outcome) {
	action := piggy.AdvanceAction
	prev, ok := a.reg.Context()
	switch {
	case a.machine.Status() == machine.CashingOut:
		action = piggy.CashOutAction
	case !ok || !prev.Ongoing():
		action = piggy.StartGameAction
	}
	if _, err := a.history.Record(a.ctx, a.tiers.Current(), action, outcome); err != nil {
		a.logger.Printf("record round: %v", err)
	}
}

func (a *App) buildSim() (gateway.Gateway, machine.Reloader) {
	sim := gateway.NewSim(a.bus, a.reg)
	reload := func(context.Context) error {
		if err := a.tiers.Load(sim.Params(), sim.Contexts()); err != nil {
			return err
		}
		balance := sim.Balance()
		a.reg.SetBalance(balance)
		a.bus.Publish(events.BalanceUpdated, balance)
		return nil
	}
	return sim, reload
}

func (a *App) buildLive() (gateway.Gateway, machine.Reloader) {
	a.proxy = hostmsg.NewProxy(func(req hostmsg.TxSignRequest) {
		a.emit(req.Type, req)
	})
	a.client = chain.NewClient(chain.Config{
		RPCURL:  a.cfg.RPCURL,
		GameIDs: a.cfg.GameIDs,
	})
	a.live = gateway.NewLive(a.bus, a.reg, a.proxy, gateway.LiveConfig{
		PackageID:  a.cfg.PackageID,
		RegistryID: a.cfg.RegistryID,
	})
	return a.live, a.chainReload()
}

func (a *App) buildDevnode() (gateway.Gateway, machine.Reloader) {
	world := devnode.NewWorld(a.cfg.PackageID, devBalanceManagerID)
	a.dev = devnode.New(world, a.cfg.DevnodePort)
	if err := a.dev.Start(); err != nil {
		panic(fmt.Errorf("bindings: start devnode: %w", err))
	}
	baseURL := "http://" + a.dev.Addr()
	a.logger.Printf("devnode listening on %s", baseURL)

	a.client = chain.NewClient(chain.Config{
		RPCURL:  baseURL,
		GameIDs: world.GameIDs(),
	})
	a.live = gateway.NewLive(a.bus, a.reg, newDevnodeExecutor(baseURL), gateway.LiveConfig{
		PackageID:  world.PackageID(),
		RegistryID: devRegistryID,
	})
	a.live.SetInitData(hostmsg.InitData{
		BalanceManagerID: devBalanceManagerID,
		HouseID:          devHouseID,
		PlayCapID:        devPlayCapID,
	})
	return a.live, a.chainReload()
}

// chainReload re-fetches parameters, contexts and balance from the chain
// and rewrites the registry for every difficulty.
func (a *App) chainReload() machine.Reloader {
	return func(ctx context.Context) error {
		init, ok := a.live.InitData()
		if !ok {
			return fmt.Errorf("bindings: host init data not received")
		}

		fetched, err := a.client.FetchGames(ctx)
		if err != nil {
			return err
		}
		params := make(map[piggy.Difficulty]piggy.GameParams, len(fetched))
		contexts := make(map[piggy.Difficulty]*piggy.Context, len(fetched))
		for d, p := range fetched {
			params[d] = *p
			roundCtx, err := a.client.FetchContext(ctx, p.ContextsTableID, init.BalanceManagerID)
			if err != nil {
				return err
			}
			contexts[d] = roundCtx
		}
		if err := a.tiers.Load(params, contexts); err != nil {
			return err
		}

		balance, err := a.client.FetchBalance(ctx, init.BalanceManagerID)
		if err != nil {
			return err
		}
		a.reg.SetBalance(balance)
		a.bus.Publish(events.BalanceUpdated, balance)
		return nil
	}
}

func defaultDataDir() string {
	if d, err := os.UserConfigDir(); err == nil && d != "" {
		return filepath.Join(d, appConfigDirName)
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, "."+appConfigDirName)
	}
	return "."
}
