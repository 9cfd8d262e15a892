// Package corechecks validates command buffer lifecycles and image layouts
// against the objects kept by the state tracker.
package corechecks

import (
	"sync"

	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
)

const (
	kVUIDInvalidImageLayout          = "UNASSIGNED-CoreValidation-DrawState-InvalidImageLayout"
	kVUIDInvalidCommandBuffer        = "UNASSIGNED-CoreValidation-DrawState-InvalidCommandBuffer"
	kVUIDSingleSubmitViolation       = "UNASSIGNED-CoreValidation-DrawState-CommandBufferSingleSubmitViolation"
	kVUIDNoEndCommandBuffer          = "UNASSIGNED-CoreValidation-DrawState-NoEndCommandBuffer"
	kVUIDInvalidSimultaneousUse      = "UNASSIGNED-CoreValidation-DrawState-InvalidCommandBufferSimultaneousUse"
	kVUIDExecuteCommandsInitialUsage = "UNASSIGNED-vkCmdExecuteCommands-commandBuffer-00001"
)

// Settings switches groups of checks on and off.
type Settings struct {
	ImageLayoutValidation bool
	CommandBufferState    bool
}

func DefaultSettings() Settings {
	return Settings{
		ImageLayoutValidation: true,
		CommandBufferState:    true,
	}
}

type CoreChecks struct {
	tracker  *state.Tracker
	reporter report.Reporter

	mu       sync.RWMutex
	settings Settings
}

func New(tracker *state.Tracker, reporter report.Reporter, settings Settings) *CoreChecks {
	return &CoreChecks{
		tracker:  tracker,
		reporter: reporter,
		settings: settings,
	}
}

// SetSettings swaps the settings, used on reload.
func (c *CoreChecks) SetSettings(s Settings) {
	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
}

func (c *CoreChecks) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

func (c *CoreChecks) layoutValidationDisabled() bool {
	return !c.Settings().ImageLayoutValidation
}

func (c *CoreChecks) features() state.Features {
	return c.tracker.Features
}

func (c *CoreChecks) fmtHandle(h report.TypedHandle) string {
	return c.reporter.FormatHandle(h)
}

func (c *CoreChecks) LogError(objects report.LogObjectList, vuid string, loc report.Location, format string, args ...interface{}) bool {
	return c.reporter.LogError(objects, vuid, loc, format, args...)
}

func (c *CoreChecks) LogWarning(objects report.LogObjectList, vuid string, loc report.Location, format string, args ...interface{}) bool {
	return c.reporter.LogWarning(objects, vuid, loc, format, args...)
}

func (c *CoreChecks) LogPerformanceWarning(objects report.LogObjectList, vuid string, loc report.Location, format string, args ...interface{}) bool {
	return c.reporter.LogPerformanceWarning(objects, vuid, loc, format, args...)
}
