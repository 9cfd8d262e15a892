/*
vksync replays Vulkan call scenarios through the validation layer and
reports every message it produces.

	vksync [-settings vksync.toml] [-dump] [-watch] scenario.toml|dir ...
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pkg/errors"

	"github.com/spaghettifunk/vksync/engine/config"
	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/replay"
)

var (
	settingsPath = flag.String("settings", "", "Path to a TOML settings file")
	dump         = flag.Bool("dump", false, "Print a JSON dump of image layouts and access state per scenario")
	parallel     = flag.Int("parallel", 0, "Scenarios replayed at once, 0 for one per CPU")
	watch        = flag.Bool("watch", false, "Replay again whenever the settings file changes")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		cancel()
	}()

	if err := run(ctx, flag.Args()); err != nil {
		core.LogError("%s", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	paths, err := scenarioPaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("no scenario files given")
	}

	if !*watch {
		settings := config.Default()
		if *settingsPath != "" {
			if settings, err = config.Load(*settingsPath); err != nil {
				return err
			}
		}
		return replayAll(ctx, settings, paths)
	}

	if *settingsPath == "" {
		return errors.New("-watch needs -settings")
	}
	events := core.NewEventBus()
	reloaded := make(chan struct{}, 1)
	events.Register(core.EVENT_CODE_SETTINGS_RELOADED, reloaded, func(code core.SystemEventCode, sender, listener interface{}, data core.EventContext) bool {
		select {
		case reloaded <- struct{}{}:
		default:
		}
		return false
	})
	w, err := config.NewWatcher(*settingsPath, events)
	if err != nil {
		return err
	}
	defer w.Close()

	for {
		if err := replayAll(ctx, w.Current(), paths); err != nil {
			core.LogWarn("%s", err)
		}
		core.LogInfo("watching %s for changes", *settingsPath)
		select {
		case <-ctx.Done():
			return nil
		case <-reloaded:
		}
	}
}

// scenarioPaths expands directories to the .toml files they contain.
func scenarioPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, errors.Wrap(err, "scenario")
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		matches, err := filepath.Glob(filepath.Join(arg, "*.toml"))
		if err != nil {
			return nil, errors.Wrap(err, "scenario")
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func replayAll(ctx context.Context, settings *config.Settings, paths []string) error {
	rn := &replay.Runner{
		Options:  replay.Options{Settings: settings, Dump: *dump},
		Parallel: *parallel,
	}
	results, err := rn.RunFiles(ctx, paths)
	if err != nil {
		return err
	}

	failed := 0
	for _, res := range results {
		status := "PASS"
		if !res.Passed() {
			status = "FAIL"
			failed++
		}
		fmt.Printf("%s %s (%d messages, %s, run %s)\n", status, res.Scenario, len(res.Records), res.Duration, res.RunID)
		for _, f := range res.Failures {
			fmt.Printf("    %s\n", f)
		}
		if res.Dump != nil {
			fmt.Println(string(res.Dump))
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d scenarios failed", failed, len(results))
	}
	return nil
}
