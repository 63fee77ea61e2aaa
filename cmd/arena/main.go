package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/arena/internal/admin"
	"github.com/l1jgo/arena/internal/config"
	"github.com/l1jgo/arena/internal/core/ecs"
	"github.com/l1jgo/arena/internal/core/event"
	coresys "github.com/l1jgo/arena/internal/core/system"
	"github.com/l1jgo/arena/internal/data"
	"github.com/l1jgo/arena/internal/handler"
	"github.com/l1jgo/arena/internal/metrics"
	gonet "github.com/l1jgo/arena/internal/net"
	"github.com/l1jgo/arena/internal/net/packet"
	"github.com/l1jgo/arena/internal/persist"
	"github.com/l1jgo/arena/internal/scripting"
	"github.com/l1jgo/arena/internal/system"
	"github.com/l1jgo/arena/internal/world"
	"github.com/pkg/profile"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               arena  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        ECS simulation · UDP transport     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s\n\n", serverName)
}

// displayWidth counts CJK runes as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	profileMode := flag.String("profile", "", "write a profile to the working directory: cpu, mem or trace")
	flag.Parse()

	// 1. Load config
	cfgPath := "config/arena.toml"
	allowMissing := true
	if p := os.Getenv("ARENA_CONFIG"); p != "" {
		cfgPath = p
		allowMissing = false
	}
	cfg, err := config.Load(cfgPath, allowMissing)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if stop := startProfile(*profileMode); stop != nil {
		defer stop()
	}

	printBanner(cfg.Server.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// 3. Session ledger
	printSection("資料庫")
	ledger, err := openLedger(ctx, cfg.Ledger, log)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	defer ledger.Close()
	if ledger == nil {
		printOK("session ledger disabled")
	} else {
		printOK(fmt.Sprintf("session ledger (%s) ready", cfg.Ledger.Driver))
	}
	fmt.Println()

	// 4. Simulation state
	var regOpts []ecs.Option
	regOpts = append(regOpts, ecs.WithLogger(log.Named("ecs")))
	if cfg.Simulation.Generations {
		regOpts = append(regOpts, ecs.WithGenerations())
	}
	reg := ecs.NewRegistry(regOpts...)
	players := world.NewPlayers()
	events := event.NewQueue(cfg.Simulation.EventCapacity)

	// 5. Transport
	charset, err := packet.LookupCharset(cfg.Network.Charset)
	if err != nil {
		return fmt.Errorf("network charset: %w", err)
	}
	sessions := gonet.NewSessionTable(cfg.Network.PacketsPerSecond, cfg.Network.PacketBurst, log)
	ingress := gonet.NewPacketQueue(cfg.Network.IngressCapacity)
	netServer, err := gonet.NewServer(cfg.Network, sessions, ingress, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	defer netServer.Shutdown()

	// 6. Packet handlers
	pktReg := packet.NewRegistry[*gonet.Connection](charset, log)
	deps := &handler.Deps{
		Config:   cfg,
		Log:      log,
		Registry: reg,
		Players:  players,
		Sessions: sessions,
		Events:   events,
		Ledger:   ledger,
	}
	handler.RegisterAll(pktReg, deps)

	// 7. Systems
	printSection("系統載入")
	loader := coresys.NewLoader()
	system.RegisterBuiltins(loader, &system.Env{Deps: deps, Ingress: ingress, Packets: pktReg})
	engine := scripting.NewEngine(cfg.Simulation.ScriptsDir, scripting.Bindings{Events: events, Log: log.Named("lua")})
	manifest, err := data.LoadSystemList(cfg.Simulation.SystemsManifest)
	if err != nil {
		return err
	}
	if err := schedule(reg, loader, engine, manifest, log); err != nil {
		return err
	}
	defer reg.CloseSystems()
	printStat("systems", len(reg.Systems()))
	fmt.Println()

	// 8. Run
	printSection("伺服器就緒")
	for _, addr := range netServer.Addrs() {
		printReady(fmt.Sprintf("監聽位址 %s", addr.String()))
	}
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Server.TickRate))
	if cfg.Admin.Enabled {
		printReady(fmt.Sprintf("admin http://%s", cfg.Admin.BindAddress))
	}
	fmt.Println()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return netServer.Run(gctx)
	})
	g.Go(func() error {
		gameLoop(gctx, reg, cfg.Server.TickRate)
		return nil
	})
	if cfg.Admin.Enabled {
		adminSrv := admin.NewServer(cfg.Admin, admin.Deps{
			Sessions:  sessions,
			Events:    events,
			History:   ledger,
			StartTime: time.Unix(cfg.Server.StartTime, 0),
		}, log.Named("admin"))
		g.Go(func() error {
			return adminSrv.Run(gctx)
		})
	}

	err = g.Wait()
	log.Info("收到關閉信號")

	// Close out every session still in the ledger.
	players.Each(func(p *world.Player) {
		handler.Leave(p.Conn, "shutdown", deps)
	})
	log.Info("伺服器已停止")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// schedule registers script factories from the manifest and adds every
// enabled system to reg in manifest order. A broken script is skipped;
// an unknown built-in is fatal.
func schedule(reg *ecs.Registry, loader *coresys.Loader, engine *scripting.Engine, manifest *data.SystemList, log *zap.Logger) error {
	for _, entry := range manifest.Enabled() {
		if entry.Script != "" {
			loader.Register(entry.Name, engine.Factory(entry.Script))
		}
		s, err := loader.Load(entry.Name)
		if err != nil {
			if entry.Script != "" {
				log.Error("lua system skipped", zap.String("system", entry.Name), zap.Error(err))
				continue
			}
			return err
		}
		reg.AddSystem(s)
		log.Debug("system scheduled", zap.String("system", s.Name()))
	}
	return nil
}

// gameLoop runs every system once per tick until ctx is done.
func gameLoop(ctx context.Context, reg *ecs.Registry, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			report := reg.RunSystems(tick)
			metrics.TickDuration.Observe(time.Since(start).Seconds())
			for _, name := range report.Failed {
				metrics.SystemFailures.WithLabelValues(name).Inc()
			}
			metrics.Entities.Set(float64(reg.Len()))
		}
	}
}

func openLedger(ctx context.Context, cfg config.LedgerConfig, log *zap.Logger) (*persist.Recorder, error) {
	var (
		pg   *persist.DB
		lite *sql.DB
		err  error
	)
	switch cfg.Driver {
	case "postgres":
		pg, err = persist.NewDB(ctx, cfg, log)
	case "sqlite":
		lite, err = persist.OpenSQLite(ctx, cfg.DSN)
	}
	if err != nil {
		return nil, err
	}

	repo, err := persist.OpenSessionRepo(ctx, cfg.Driver, pg, lite)
	if err != nil {
		if pg != nil {
			pg.Close()
		}
		if lite != nil {
			lite.Close()
		}
		return nil, err
	}
	return persist.NewRecorder(repo, cfg.QueueSize, log.Named("ledger")), nil
}

func startProfile(mode string) func() {
	var opt func(*profile.Profile)
	switch mode {
	case "":
		return nil
	case "cpu":
		opt = profile.CPUProfile
	case "mem":
		opt = profile.MemProfile
	case "trace":
		opt = profile.TraceProfile
	default:
		fmt.Fprintf(os.Stderr, "unknown profile mode %q, profiling disabled\n", mode)
		return nil
	}
	p := profile.Start(opt, profile.ProfilePath("."), profile.NoShutdownHook, profile.Quiet)
	return p.Stop
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
