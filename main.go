package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/action"
	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/coordinator"
	"github.com/ognistik/macrowhisper-go/internal/inject"
	"github.com/ognistik/macrowhisper-go/internal/ipc"
	"github.com/ognistik/macrowhisper-go/internal/lock"
	"github.com/ognistik/macrowhisper-go/internal/logging"
	"github.com/ognistik/macrowhisper-go/internal/notify"
	"github.com/ognistik/macrowhisper-go/internal/recordings"
	"github.com/ognistik/macrowhisper-go/internal/service"
)

const version = "macrowhisper-go v1.0.0"

// App owns every long-lived collaborator the daemon wires together, the
// same role the teacher's App struct plays in main.go, generalized from an
// audio/whisper pipeline to the config/recordings/action/IPC pipeline this
// spec describes.
type App struct {
	store      *config.Store
	pipeline   *recordings.Watcher
	dispatcher *action.Dispatcher
	coord      *coordinator.Coordinator
	log        *logging.Logger
	lock       *lock.Lock
	stopCleanup chan struct{}
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "help", "-h", "--help":
			printUsage()
			return
		case "version", "-v", "--version":
			printVersion()
			return
		}
	}

	cmd, hasCmd, err := parseCLICommand(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}

	l, held, err := lock.Acquire(config.GetLockPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to acquire lock: %v\n", err)
		os.Exit(1)
	}

	if !held {
		if !hasCmd {
			fmt.Fprintln(os.Stderr, "macrowhisper is already running; pass a command, e.g. --status")
			os.Exit(1)
		}
		runControl(cmd)
		return
	}

	runDaemon(l)
}

func printUsage() {
	fmt.Println("macrowhisper - background dictation automation daemon")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  macrowhisper [flags]")
	fmt.Println("")
	fmt.Println("With no flags, the first invocation starts the daemon; every later")
	fmt.Println("invocation talks to it over the control socket.")
	fmt.Println("")
	fmt.Println("Flags:")
	fmt.Println("  --reload                 Force a config reload")
	fmt.Println("  --status                 Print daemon status")
	fmt.Println("  --list-actions           List every configured action")
	fmt.Println("  --add-insert NAME        Add an empty insert action")
	fmt.Println("  --add-url NAME           Add an empty url action")
	fmt.Println("  --add-shortcut NAME      Add an empty shortcut action")
	fmt.Println("  --add-shell NAME         Add an empty shell action")
	fmt.Println("  --add-applescript NAME   Add an empty AppleScript action")
	fmt.Println("  --remove-action NAME     Remove an action")
	fmt.Println("  --exec-action NAME       Run an action against the newest recording")
	fmt.Println("  --action NAME            Set the active action")
	fmt.Println("  --schedule-action NAME   Arm a one-shot action for the next recording")
	fmt.Println("  --auto-return [bool]     Arm or disarm auto-return (default true)")
	fmt.Println("  --get-icon               Print the active action's icon")
	fmt.Println("  --get-action [NAME]      Print an action's expanded text, or the active name")
	fmt.Println("  --start-service          Install and start the background service")
	fmt.Println("  --stop-service           Stop the background service")
	fmt.Println("  --restart-service        Restart the background service")
	fmt.Println("  --install-service        Install the background service")
	fmt.Println("  --uninstall-service      Uninstall the background service")
	fmt.Println("  --service-status         Print background service status")
	fmt.Println("  --quit                   Ask the daemon to exit")
	fmt.Println("  --version, -v            Print the version")
	fmt.Println("  --help, -h               Show this help")
}

func printVersion() {
	fmt.Println(version)
}

// parseCLICommand translates argv into the one control-socket command it
// names, per spec §6's CLI surface. hasCmd is false when argv is empty (the
// daemon-start case); an unrecognized flag is returned as an error.
func parseCLICommand(args []string) (ipc.Command, bool, error) {
	if len(args) == 0 {
		return ipc.Command{}, false, nil
	}

	flag := args[0]
	rest := args[1:]

	needArg := func() (string, error) {
		if len(rest) == 0 {
			return "", fmt.Errorf("%s requires a name argument", flag)
		}
		return rest[0], nil
	}

	optionalArg := func() string {
		if len(rest) == 0 {
			return ""
		}
		return rest[0]
	}

	switch flag {
	case "--reload":
		return ipc.Command{Command: "reloadConfig"}, true, nil
	case "--status":
		return ipc.Command{Command: "status"}, true, nil
	case "--list-actions":
		return ipc.Command{Command: "listActions"}, true, nil
	case "--add-insert":
		name, err := needArg()
		return ipc.Command{Command: "addInsert", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--add-url":
		name, err := needArg()
		return ipc.Command{Command: "addUrl", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--add-shortcut":
		name, err := needArg()
		return ipc.Command{Command: "addShortcut", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--add-shell":
		name, err := needArg()
		return ipc.Command{Command: "addShell", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--add-applescript":
		name, err := needArg()
		return ipc.Command{Command: "addAppleScript", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--remove-action":
		name, err := needArg()
		return ipc.Command{Command: "removeAction", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--exec-action":
		name, err := needArg()
		return ipc.Command{Command: "execAction", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--action":
		name, err := needArg()
		return ipc.Command{Command: "updateConfig", Arguments: map[string]interface{}{"activeAction": name}}, true, err
	case "--schedule-action":
		name, err := needArg()
		return ipc.Command{Command: "scheduleAction", Arguments: map[string]interface{}{"name": name}}, true, err
	case "--auto-return":
		enable := true
		if v := optionalArg(); v != "" {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return ipc.Command{}, true, fmt.Errorf("--auto-return expects true or false, got %q", v)
			}
			enable = parsed
		}
		return ipc.Command{Command: "autoReturn", Arguments: map[string]interface{}{"enable": enable}}, true, nil
	case "--get-icon":
		return ipc.Command{Command: "getIcon"}, true, nil
	case "--get-action":
		args := map[string]interface{}{}
		if name := optionalArg(); name != "" {
			args["name"] = name
		}
		return ipc.Command{Command: "getAction", Arguments: args}, true, nil
	case "--start-service":
		return ipc.Command{Command: "serviceStart"}, true, nil
	case "--stop-service":
		return ipc.Command{Command: "serviceStop"}, true, nil
	case "--restart-service":
		return ipc.Command{Command: "serviceRestart"}, true, nil
	case "--install-service":
		return ipc.Command{Command: "serviceInstall"}, true, nil
	case "--uninstall-service":
		return ipc.Command{Command: "serviceUninstall"}, true, nil
	case "--service-status":
		return ipc.Command{Command: "serviceStatus"}, true, nil
	case "--quit":
		return ipc.Command{Command: "quit"}, true, nil
	default:
		return ipc.Command{}, false, fmt.Errorf("unknown flag %q", flag)
	}
}

// runControl sends cmd to the running daemon and prints its response, per
// spec §4.I: a dial failure prints a concise message instead of crashing.
func runControl(cmd ipc.Command) {
	client := ipc.NewClient(config.GetSocketPath())
	response, err := client.Send(cmd)
	if err != nil {
		fmt.Fprintln(os.Stderr, "macrowhisper is not running")
		os.Exit(1)
	}

	fmt.Println(response)
	if strings.HasPrefix(response, "ERROR") {
		os.Exit(1)
	}
}

func runDaemon(l *lock.Lock) {
	log := logging.New(logging.Basic)
	defer log.Sync()

	app := &App{log: log, lock: l, stopCleanup: make(chan struct{})}
	if err := app.initialize(); err != nil {
		log.Fatal("failed to initialize", zap.Error(err))
	}

	log.Info("macrowhisper daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	app.cleanup()
}

func (app *App) initialize() error {
	store, err := config.Open(config.GetConfigPath(), app.log)
	if store == nil {
		return err
	}
	if err != nil {
		app.log.Warn("starting with degraded configuration", zap.Error(err))
	}
	app.store = store

	cfg := store.Current()
	injector := inject.New()
	notifier := notify.New(app.log)
	app.dispatcher = action.New(store, injector, notifier, app.log)

	app.pipeline = recordings.New(cfg.Defaults.Watch, func(ev recordings.ResultEvent) {
		app.coord.OnResult(ev)
	}, app.log)

	store.Subscribe(func(reason config.Reason) {
		if reason != config.ReasonWatchPathChanged {
			return
		}
		newRoot := app.store.Current().Defaults.Watch
		app.log.Info("watch path changed, rewatching", zap.String("path", newRoot))
		if err := app.pipeline.SetRoot(newRoot); err != nil {
			app.log.Error("failed to rewatch new watch path", zap.Error(err))
		}
	})

	svc := service.New()
	app.coord = coordinator.New(store, app.pipeline, app.dispatcher, svc, config.GetSocketPath(), app.log)

	if err := app.pipeline.Start(); err != nil {
		return err
	}

	if err := app.coord.Start(); err != nil {
		return err
	}

	go recordings.StartCleanupWorker(app.pipeline.RecordingsDir(), func() *int {
		return app.store.Current().Defaults.History
	}, app.log, app.stopCleanup)

	checkForUpdates(cfg, app.log)

	return nil
}

// checkForUpdates is the update-checker's interface point: an HTTP client
// that queries for new releases is explicitly out of scope, so this only
// honors defaults.noUpdates by skipping the no-op hook entirely when set.
func checkForUpdates(cfg *config.Config, log *logging.Logger) {
	if cfg.Defaults.NoUpdates {
		return
	}
	log.Debug("update checking is not implemented in this build")
}

func (app *App) cleanup() {
	close(app.stopCleanup)
	if app.coord != nil {
		app.coord.Stop()
	}
	if app.store != nil {
		app.store.Close()
	}
	if app.lock != nil {
		app.lock.Release()
	}
}
