// Package config loads the validation settings file.
package config

import (
	"bytes"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/vksync/engine/core"
	"github.com/spaghettifunk/vksync/engine/validation/corechecks"
	"github.com/spaghettifunk/vksync/engine/validation/report"
	"github.com/spaghettifunk/vksync/engine/validation/state"
	"github.com/spaghettifunk/vksync/engine/validation/syncval"
)

type Settings struct {
	Validation ValidationSettings `toml:"validation"`
	Features   FeatureSettings    `toml:"features"`
	Messages   MessageSettings    `toml:"messages"`
	Log        LogSettings        `toml:"log"`
}

// ValidationSettings turns groups of checks on and off.
type ValidationSettings struct {
	CoreChecks           bool `toml:"core_checks"`
	ImageLayout          bool `toml:"image_layout"`
	Sync                 bool `toml:"sync"`
	SyncSubmitTime       bool `toml:"sync_submit_time"`
	StopOnValidationFail bool `toml:"stop_on_validation_fail"`
}

// FeatureSettings are the device features enabled at device creation.
type FeatureSettings struct {
	Synchronization2            bool `toml:"synchronization2"`
	InheritedQueries            bool `toml:"inherited_queries"`
	InheritedViewportScissor2D  bool `toml:"inherited_viewport_scissor_2d"`
	SeparateDepthStencilLayouts bool `toml:"separate_depth_stencil_layouts"`
	SharedPresentableImage      bool `toml:"shared_presentable_image"`
	OcclusionQueryPrecise       bool `toml:"occlusion_query_precise"`
}

type MessageSettings struct {
	Severities     []string `toml:"severities"`
	Disabled       []string `toml:"disabled"`
	DuplicateLimit uint64   `toml:"duplicate_limit"`
}

type LogSettings struct {
	Level string `toml:"level"`
}

func Default() *Settings {
	return &Settings{
		Validation: ValidationSettings{
			CoreChecks:     true,
			ImageLayout:    true,
			Sync:           true,
			SyncSubmitTime: true,
		},
		Features: FeatureSettings{
			Synchronization2: true,
		},
		Messages: MessageSettings{
			Severities:     []string{"error", "warning", "performance"},
			DuplicateLimit: 10,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}

// Load reads the settings file at path. Keys missing from the file keep
// their default value.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read settings %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "settings %s", path)
	}
	return s, nil
}

func Parse(data []byte) (*Settings, error) {
	s := Default()
	d := toml.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()
	if err := d.Decode(s); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, errors.Wrap(core.ErrInvalidSettings, strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.Wrapf(core.ErrInvalidSettings, "line %d column %d: %s", row, col, derr.Error())
		}
		return nil, errors.Wrapf(core.ErrInvalidSettings, "decode: %s", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the values the decoder cannot.
func (s *Settings) Validate() error {
	if _, err := report.ParseSeverities(s.Messages.Severities); err != nil {
		return errors.Wrap(core.ErrInvalidSettings, err.Error())
	}
	switch strings.ToLower(s.Log.Level) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return errors.Wrapf(core.ErrInvalidSettings, "unknown log level %q", s.Log.Level)
	}
	return nil
}

// Encode writes s back as TOML.
func (s *Settings) Encode() ([]byte, error) {
	out, err := toml.Marshal(s)
	if err != nil {
		return nil, errors.Wrap(err, "encode settings")
	}
	return out, nil
}

func (s *Settings) CoreChecks() corechecks.Settings {
	return corechecks.Settings{
		ImageLayoutValidation: s.Validation.CoreChecks && s.Validation.ImageLayout,
		CommandBufferState:    s.Validation.CoreChecks,
	}
}

func (s *Settings) SyncVal() syncval.Settings {
	return syncval.Settings{
		Enabled:              s.Validation.Sync,
		SubmitTimeValidation: s.Validation.Sync && s.Validation.SyncSubmitTime,
	}
}

func (s *Settings) StateFeatures() state.Features {
	return state.Features{
		Synchronization2:            s.Features.Synchronization2,
		InheritedQueries:            s.Features.InheritedQueries,
		InheritedViewportScissor2D:  s.Features.InheritedViewportScissor2D,
		SeparateDepthStencilLayouts: s.Features.SeparateDepthStencilLayouts,
		SharedPresentableImage:      s.Features.SharedPresentableImage,
		OcclusionQueryPrecise:       s.Features.OcclusionQueryPrecise,
	}
}

// Filter builds the message filter. Validate has already checked the
// severity names.
func (s *Settings) Filter() report.Filter {
	f := report.DefaultFilter()
	f.Severities, _ = report.ParseSeverities(s.Messages.Severities)
	f.DuplicateLimit = s.Messages.DuplicateLimit
	for _, vuid := range s.Messages.Disabled {
		f.DisabledVUIDs[vuid] = struct{}{}
	}
	return f
}
