package main

import (
	"context"
	"fmt"
	"log"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"gmo-trading-bot/internal/controller"
	"gmo-trading-bot/internal/controller/controllerobs"
	"gmo-trading-bot/internal/eod"
	"gmo-trading-bot/internal/eod/eodobs"
	"gmo-trading-bot/internal/exchange/gmo"
	"gmo-trading-bot/internal/exchange/gmoobs"
	"gmo-trading-bot/internal/interfaces"
	"gmo-trading-bot/internal/logger"
	"gmo-trading-bot/internal/news"
	"gmo-trading-bot/internal/notify"
	"gmo-trading-bot/internal/signal"
	"gmo-trading-bot/internal/signal/claude"
	"gmo-trading-bot/internal/signal/ensemble"
	"gmo-trading-bot/internal/signal/noop"
	"gmo-trading-bot/internal/signal/openai"
	"gmo-trading-bot/internal/signal/signalobs"
	"gmo-trading-bot/internal/store"
	"gmo-trading-bot/internal/telemetry"
	"gmo-trading-bot/internal/trace"
	"gmo-trading-bot/internal/tradelog"
)

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()

	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := store.LoadConfig(configPath)
	must(err)

	must(logger.Init())
	must(trace.Init())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer trace.Shutdown(context.Background())

	loc := cfg.Location()

	tlog := tradelog.New("", loc)
	if v := os.Getenv("TRADER_LOG_RETENTION_DAYS"); v != "" {
		var n int
		fmt.Sscanf(v, "%d", &n)
		_ = tlog.CompressOlder(n)
	}

	notifier := notify.NewDiscordNotifier(os.Getenv("DISCORD_WEBHOOK_URL"))

	ex := gmoobs.Wrap(gmo.New(gmo.Params{
		Mode:      cfg.Mode,
		APIKey:    os.Getenv("GMO_API_KEY"),
		APISecret: os.Getenv("GMO_API_SECRET"),
		Timeout:   time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		Location:  loc,
	}, notifier))

	if cfg.Mode == "DRY_RUN" {
		log.Println(">> DRY_RUN mode")
	}

	reflection := signal.NewReflectionLog(cfg.Signal.ReflectionWindow)
	provider, err := buildProvider(cfg, reflection)
	must(err)

	baseline, err := ex.AvailableCapital(ctx)
	must(err)
	logger.Info(ctx, "Baseline capital captured", "amount", baseline)

	ctrl := controllerobs.Wrap(controller.New(controller.Params{
		Cfg:        cfg,
		Exchange:   ex,
		Provider:   signalobs.Wrap(provider),
		Notifier:   notifier,
		Reflection: reflection,
		Recorder:   tlog,
		Baseline:   decimal.NewFromFloat(baseline),
	}))

	var hub *telemetry.Hub
	if cfg.Telemetry.Enabled {
		hub = telemetry.NewHub(nil)
		go hub.Run()
		go func() {
			if err := hub.StartServer(cfg.Telemetry.Addr); err != nil {
				logger.ErrorWithErr(ctx, "Telemetry server stopped", err)
			}
		}()
	}

	summarizer := eodobs.Wrap(eod.New(tlog, "", loc))

	sigc := make(chan os.Signal, 1)
	ossignal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	log.Println("Bot started.")
	run(ctx, ctrl, hub, summarizer, sigc)
}

func run(ctx context.Context, ctrl interfaces.Controller, hub *telemetry.Hub, summarizer eod.Summarizer, sigc chan os.Signal) {
	// First cycle runs immediately; afterwards the controller decides how
	// long to sleep until the next hour boundary.
	wake := time.NewTimer(0)
	defer wake.Stop()
	eodTick := time.NewTicker(time.Minute)
	defer eodTick.Stop()

	for {
		select {
		case <-wake.C:
			res, err := ctrl.Tick(ctx, time.Now())
			if err != nil {
				log.Printf("tick error: %v", err)
			}
			if res != nil && hub != nil {
				hub.PublishCycle(res)
			}
			if ctrl.Halted() {
				log.Println("Controller halted, no further orders. Waiting for operator.")
			}
			wake.Reset(ctrl.NextWake(time.Now()))
		case <-eodTick.C:
			if ok, day := summarizer.ShouldRunNow(time.Now()); ok {
				if p, err := summarizer.SummarizeDay(day); err == nil {
					log.Println("EOD CSV written:", p)
				}
			}
		case <-sigc:
			log.Println("Shutting down...")
			return
		case <-ctx.Done():
			return
		}
	}
}

func buildProvider(cfg *store.Config, reflection *signal.ReflectionLog) (interfaces.SignalProvider, error) {
	var fetcher *news.Fetcher
	if cfg.News.Enabled {
		fetcher = news.NewFetcher(cfg.News.Feeds, cfg.News.MaxArticles, cfg.News.WindowHours)
	}

	switch cfg.Signal.Provider {
	case "ENSEMBLE":
		return ensemble.Load(cfg.Signal.ModelsDir, cfg.Signal.FeatureColumns)
	case "OPENAI":
		return openai.NewProvider(cfg, reflection, fetcher), nil
	case "CLAUDE":
		return claude.NewProvider(cfg, reflection, fetcher), nil
	default:
		return noop.NewProvider(), nil
	}
}
