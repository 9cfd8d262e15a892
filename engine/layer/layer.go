// Package layer chains the validation objects of one device. Every entry
// point runs all PreCallValidate checks before any PostCallRecord, so a
// check never sees state recorded by the call it is validating.
package layer

import (
	"sync"

	"github.com/spaghettifunk/vksync/engine/config"
	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/corechecks"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/validation/syncval"
)

type Layer struct {
	Tracker  *state.Tracker
	Core     *corechecks.CoreChecks
	Sync     *syncval.SyncValidator
	Reporter *report.Logger
	Events   *core.EventBus

	mu       sync.RWMutex
	settings *config.Settings
}

// New builds the validation objects for one device. Device features are
// taken from settings once, later reloads only change checks and filters.
func New(settings *config.Settings, options ...report.LoggerOption) *Layer {
	if settings == nil {
		settings = config.Default()
	}
	events := core.NewEventBus()
	options = append([]report.LoggerOption{report.WithFilter(settings.Filter())}, options...)
	reporter := report.NewLogger(options...)
	tracker := state.NewTracker(settings.StateFeatures(), events)

	l := &Layer{
		Tracker:  tracker,
		Core:     corechecks.New(tracker, reporter, settings.CoreChecks()),
		Sync:     syncval.New(tracker, reporter, settings.SyncVal()),
		Reporter: reporter,
		Events:   events,
		settings: settings,
	}
	if err := core.SetLogLevel(settings.Log.Level); err != nil {
		core.LogWarn("log level %q: %s", settings.Log.Level, err)
	}
	events.Register(core.EVENT_CODE_SETTINGS_RELOADED, l, onSettingsReloaded)
	return l
}

func onSettingsReloaded(code core.SystemEventCode, sender interface{}, listener interface{}, data core.EventContext) bool {
	l := listener.(*Layer)
	if s, ok := data.Object.(*config.Settings); ok {
		l.ApplySettings(s)
	}
	return false
}

// ApplySettings switches checks, message filter and log level.
func (l *Layer) ApplySettings(s *config.Settings) {
	l.mu.Lock()
	l.settings = s
	l.mu.Unlock()

	l.Core.SetSettings(s.CoreChecks())
	l.Sync.SetSettings(s.SyncVal())
	l.Reporter.SetFilter(s.Filter())
	if err := core.SetLogLevel(s.Log.Level); err != nil {
		core.LogWarn("log level %q: %s", s.Log.Level, err)
	}
}

func (l *Layer) Settings() *config.Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settings
}

func (l *Layer) Close() {
	l.Events.Unregister(core.EVENT_CODE_SETTINGS_RELOADED, l)
	l.Sync.Close()
	l.Tracker.Close()
}

// finish records the call unless a check asked to skip it and the settings
// stop on validation failures.
func (l *Layer) finish(skip bool, record func()) error {
	if skip && l.Settings().Validation.StopOnValidationFail {
		return core.ErrValidationFailed
	}
	record()
	return nil
}

// command runs a vkCmd* entry point.
func (l *Layer) command(cb *state.CommandBuffer, name string, skip bool, record func()) error {
	return l.finish(skip, func() {
		cb.RecordCommand(name)
		if record != nil {
			record()
		}
	})
}
