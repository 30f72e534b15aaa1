package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"codeberg.org/aulin/anesctl/internal/alarm"
	"codeberg.org/aulin/anesctl/internal/config"
	"codeberg.org/aulin/anesctl/internal/logger"
	"codeberg.org/aulin/anesctl/internal/pid"
	"codeberg.org/aulin/anesctl/internal/server"
	"codeberg.org/aulin/anesctl/internal/session"
)

var (
	cfg  *config.Config
	sess *session.Session
)

// bannerListener renders every cycle outcome on the console, the CLI
// stand-in for the workstation banner.
type bannerListener struct{}

func (bannerListener) StateChanged(n alarm.Notification) {
	event := logger.Info()
	switch n.State {
	case alarm.StateWarning:
		event = logger.Warn()
	case alarm.StateAlarm:
		event = logger.Error()
	case alarm.StateIdle, alarm.StateNormal:
	}

	event.
		Str("state", n.State.String()).
		Int("active_conditions", len(n.Active)).
		Msg(n.Banner)
}

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	recorderCfg := alarm.DefaultConfig()
	recorderCfg.Enabled = cfg.History
	if cfg.HistoryDB != "" {
		recorderCfg.DBPath = cfg.HistoryDB
	}
	recorder, err := alarm.NewRecorder(recorderCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize alarm history recorder")
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close alarm history recorder")
		}
	}()

	sess = session.New(session.Config{HypoxicGuard: cfg.HypoxicGuard}, recorder)
	sess.Subscribe(bannerListener{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if cfg.Listen != "" {
		view := server.New(cfg.Listen, sess)
		sess.Subscribe(view)
		go func() {
			if err := view.Serve(); err != nil {
				logger.Error().Err(err).Msg("HTTP view failed")
			}
		}()
		defer func() {
			if err := view.Shutdown(); err != nil {
				logger.Error().Err(err).Msg("failed to shut down HTTP view")
			}
		}()
	}

	if err := commandLoop(ctx); err != nil {
		logger.Error().Err(err).Msg("error in command loop")
	}

	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}

// commandLoop reads operator actions from stdin until EOF, quit, or a
// termination signal. Each action is dispatched synchronously; the
// session runs its evaluation cycle before the next prompt.
func commandLoop(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
	}()

	printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if quit := dispatch(ctx, line); quit {
				return nil
			}
		}
	}
}

func dispatch(ctx context.Context, line string) (quit bool) {
	args := strings.Fields(strings.TrimSpace(line))
	if len(args) == 0 {
		return false
	}

	switch args[0] {
	case "set":
		if len(args) != 3 {
			fmt.Println("usage: set <field> <value>")
			return false
		}
		if err := sess.SetParameter(ctx, session.Field(args[1]), args[2]); err != nil {
			logger.Error().Err(err).Msg("parameter rejected")
		}
	case "start":
		if err := sess.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("start refused")
		}
	case "reset":
		sess.Reset()
	case "clear":
		sess.Clear()
	case "defaults":
		if err := sess.LoadDefaults(ctx); err != nil {
			logger.Error().Err(err).Msg("failed to load defaults")
		}
	case "status":
		printStatus()
	case "history":
		printHistory()
	case "help":
		printHelp()
	case "quit", "exit":
		return true
	default:
		fmt.Printf("unknown command: %s (try help)\n", args[0])
	}

	return false
}

func printStatus() {
	n := sess.LastNotification()
	fmt.Printf("lifecycle: %s\nstate:     %s\nbanner:    %s\n",
		sess.Lifecycle(), n.State, n.Banner)

	for _, c := range n.Active {
		fmt.Printf("  [%s] %s\n", c.Severity, c.Message)
	}

	fmt.Println("parameters:")
	for _, p := range sess.Parameters() {
		value := p.Value
		if !p.Set {
			value = "(unset)"
		}
		fmt.Printf("  %-22s %s\n", p.Name, value)
	}
}

func printHistory() {
	history := sess.History()
	if len(history) == 0 {
		fmt.Println("no alarm history")
		return
	}

	for _, e := range history {
		fmt.Printf("%s  seq=%d  [%s] %s\n",
			e.RaisedAt.Format("15:04:05"), e.Sequence,
			e.Condition.Severity, e.Condition.Message)
	}
}

func printHelp() {
	fmt.Println(`commands:
  set <field> <value>   edit a parameter (fields: profile, weight, fio2,
                        fresh_gas_flow, agent, agent_concentration,
                        tidal_volume, respiratory_rate, peak_airway_pressure)
  start                 validate parameters and start the machine
  reset                 restore defaults, stop, clear alarm history
  clear                 empty the parameter form
  defaults              load the default parameter set
  status                show lifecycle, state and parameters
  history               show latched alarm history
  quit                  exit`)
}
