package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/lox/setgame/internal/config"
	"github.com/lox/setgame/internal/display"
	"github.com/lox/setgame/internal/game"
	"github.com/lox/setgame/internal/gameid"
	"github.com/lox/setgame/internal/metrics"
	"github.com/lox/setgame/internal/randutil"
	"github.com/lox/setgame/internal/results"
	"github.com/lox/setgame/internal/tui"
)

// version is set by ldflags during build
var version = "dev"

var titleStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7D56F4")).
	Padding(0, 1).
	Bold(true)

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`

	Config      string `short:"c" help:"Game file (HCL)" default:"setgame.hcl" type:"path"`
	Humans      int    `help:"Number of human players, overrides the game file" default:"-1"`
	Computers   int    `help:"Number of computer players, overrides the game file" default:"-1"`
	Seed        int64  `help:"Random seed, 0 uses the game file or the clock" default:"0"`
	TurnTimeout string `help:"Round timeout (e.g. 60s, 0s for elapsed time, -1s for untimed)"`
	Hints       bool   `help:"Log every set on the table after each deal"`
	Policy      string `help:"What happens to a pending selection at reshuffle (complete or discard)"`

	Headless    bool   `help:"Run without the terminal UI, logging to stderr"`
	NoColor     bool   `help:"Disable colors"`
	MetricsAddr string `help:"Serve prometheus metrics on this address (e.g. :9090)"`
	Results     string `help:"Write a JSON summary of the game to this file" type:"path"`
	LogLevel    string `help:"Log level" default:"info" enum:"debug,info,warn,error"`
	LogFile     string `help:"Log file used while the terminal UI is active" default:"setgame.log" type:"path"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("setgame"),
		kong.Description("Real-time Set for humans and bots sharing one table"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}

// Run loads the configuration and plays one game.
func (c *CLI) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	gameConfig, err := cfg.GameConfig()
	if err != nil {
		return err
	}
	rule, err := cfg.Rule()
	if err != nil {
		return err
	}

	seed := randutil.Seed(cfg.Game.Seed)
	gameID := gameid.Generate()

	logger, closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	logger = logger.With("game", gameID)
	logger.Info("Starting game", "seed", seed, "players", len(cfg.Players), "table", gameConfig.TableSize, "deck", gameConfig.DeckSize)

	if c.NoColor {
		tui.DisableColor()
	}

	seats := cfg.Seats()
	formatter := display.Formatter{
		PlayerName: func(id int) string {
			if id >= 0 && id < len(seats) {
				return seats[id].Name
			}
			return fmt.Sprintf("player %d", id)
		},
		CardLabel: func(card int) string { return fmt.Sprint(rule.Features(card)) },
	}

	names := make([]string, len(seats))
	for i, seat := range seats {
		names[i] = seat.Name
	}
	collector := metrics.NewCollector("setgame", names)
	bus := display.NewBus(collector, display.NewLogSink(logger, formatter))

	var bridge *tui.Bridge
	if !c.Headless {
		bridge = tui.NewBridge(gameConfig.TableSize, len(seats), formatter)
		bus.Subscribe(bridge)
	} else {
		for _, seat := range seats {
			if seat.Human {
				logger.Warn("Human players cannot act in headless mode", "player", seat.Name)
			}
		}
	}

	g, err := game.New(gameConfig, seats, game.Options{
		Oracle:   rule,
		Sink:     bus,
		Logger:   logger,
		Recorder: collector,
		Seed:     seed,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var program *tea.Program
	if bridge != nil {
		tuiSeats := make([]tui.Seat, len(seats))
		for i, seat := range seats {
			tuiSeats[i] = tui.Seat{Name: seat.Name, Human: seat.Human}
			if seat.Human {
				tuiSeats[i].Input = g.Players[i]
			}
		}
		model := tui.NewModel(bridge, tuiSeats, tui.SetCardRenderer(rule), cancel, logger)
		program = tui.NewProgram(ctx, model)
	}

	startedAt := time.Now()
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer func() {
			if program != nil {
				program.Send(tui.GameOverMsg{})
			} else {
				cancel()
			}
		}()
		return g.Dealer.Run(groupCtx)
	})

	if program != nil {
		group.Go(func() error {
			defer cancel()
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return fmt.Errorf("terminal UI: %w", err)
			}
			return nil
		})
	}

	if c.MetricsAddr != "" {
		group.Go(func() error {
			return serveMetrics(groupCtx, c.MetricsAddr, collector.Handler(), logger)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	finishedAt := time.Now()

	winners := g.Dealer.Winners()
	logger.Info("Game finished", "winners", winners, "duration", finishedAt.Sub(startedAt))
	if c.Headless {
		fmt.Println(titleStyle.Render(formatter.Format(display.WinnersAnnounced{Players: winners})))
	}

	if c.Results != "" {
		summary := results.NewSummary(gameID, seed, startedAt, finishedAt, g)
		if err := results.Write(c.Results, summary); err != nil {
			return fmt.Errorf("failed to write results: %w", err)
		}
		logger.Info("Wrote results", "file", c.Results)
	}
	return nil
}

// applyOverrides copies the flags that were set onto the loaded file.
func (c *CLI) applyOverrides(cfg *config.Config) {
	if c.Humans >= 0 || c.Computers >= 0 {
		humans, computers := max(c.Humans, 0), max(c.Computers, 0)
		if c.Humans < 0 {
			humans = countPlayers(cfg, true)
		}
		if c.Computers < 0 {
			computers = countPlayers(cfg, false)
		}
		cfg.SetPlayers(humans, computers)
	}
	if c.Seed != 0 {
		cfg.Game.Seed = c.Seed
	}
	if c.TurnTimeout != "" {
		cfg.Timing.TurnTimeout = c.TurnTimeout
	}
	if c.Hints {
		cfg.Game.Hints = true
	}
	if c.Policy != "" {
		cfg.Game.ReshufflePolicy = c.Policy
	}
}

func countPlayers(cfg *config.Config, human bool) int {
	n := 0
	for _, p := range cfg.Players {
		if p.Human == human {
			n++
		}
	}
	return n
}

// newLogger logs to stderr when headless, otherwise to the log file so the
// terminal stays free for the UI.
func (c *CLI) newLogger() (*log.Logger, func(), error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level: %w", err)
	}

	var out io.Writer = os.Stderr
	closeLog := func() {}
	if !c.Headless {
		file, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create log file: %w", err)
		}
		out = file
		closeLog = func() {
			if err := file.Close(); err != nil {
				log.Error("Failed to close log file", "error", err)
			}
		}
	}

	logger := log.NewWithOptions(out, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.000",
		Level:           level,
	})
	return logger, closeLog, nil
}

func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()
	logger.Info("Serving metrics", "addr", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
