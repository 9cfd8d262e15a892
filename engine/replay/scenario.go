// Package replay drives recorded API call sequences through a validation
// layer. A scenario is a TOML file that names the objects it creates, lists
// the calls in order and states which messages it expects.
package replay

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"github.com/spaghettifunk/vksync/engine/core"
)

type Scenario struct {
	Name        string `toml:"name"`
	Description string `toml:"description"`
	// Strict fails the scenario on any message that is not expected.
	Strict bool `toml:"strict"`

	Queues         []QueueDesc         `toml:"queues"`
	Buffers        []BufferDesc        `toml:"buffers"`
	Images         []ImageDesc         `toml:"images"`
	Views          []ViewDesc          `toml:"views"`
	RenderPasses   []RenderPassDesc    `toml:"render_passes"`
	Pipelines      []PipelineDesc      `toml:"pipelines"`
	CommandBuffers []CommandBufferDesc `toml:"command_buffers"`
	Events         []string            `toml:"events"`
	Semaphores     []string            `toml:"semaphores"`
	Fences         []FenceDesc         `toml:"fences"`

	Calls  []Call   `toml:"calls"`
	Expect []Expect `toml:"expect"`
}

type QueueDesc struct {
	Name   string `toml:"name"`
	Family uint32 `toml:"family"`
	Index  uint32 `toml:"index"`
}

type BufferDesc struct {
	Name string `toml:"name"`
	Size uint64 `toml:"size"`
}

type ImageDesc struct {
	Name          string `toml:"name"`
	Format        string `toml:"format"`
	Width         uint32 `toml:"width"`
	Height        uint32 `toml:"height"`
	Depth         uint32 `toml:"depth"`
	MipLevels     uint32 `toml:"mip_levels"`
	ArrayLayers   uint32 `toml:"array_layers"`
	InitialLayout string `toml:"initial_layout"`
	Linear        bool   `toml:"linear"`
}

// Range is an image subresource range. Zero level or layer counts cover
// the rest of the image.
type Range struct {
	Aspect    string `toml:"aspect"`
	BaseMip   uint32 `toml:"base_mip"`
	Levels    uint32 `toml:"levels"`
	BaseLayer uint32 `toml:"base_layer"`
	Layers    uint32 `toml:"layers"`
}

type ViewDesc struct {
	Name  string `toml:"name"`
	Image string `toml:"image"`
	Range *Range `toml:"range"`
}

type AttachmentDesc struct {
	View    string `toml:"view"`
	Load    string `toml:"load"`
	Store   string `toml:"store"`
	Initial string `toml:"initial"`
	Layout  string `toml:"layout"`
	Final   string `toml:"final"`
}

// RenderPassDesc describes a single subpass render pass together with the
// framebuffer it is begun with.
type RenderPassDesc struct {
	Name        string           `toml:"name"`
	Attachments []AttachmentDesc `toml:"attachments"`
}

type PipelineDesc struct {
	Name            string `toml:"name"`
	BindPoint       string `toml:"bind_point"`
	RenderPass      string `toml:"render_pass"`
	DynamicViewport bool   `toml:"dynamic_viewport"`
	DynamicScissor  bool   `toml:"dynamic_scissor"`
	ViewportCount   uint32 `toml:"viewport_count"`
}

type CommandBufferDesc struct {
	Name  string `toml:"name"`
	Level string `toml:"level"`
}

type FenceDesc struct {
	Name     string `toml:"name"`
	Signaled bool   `toml:"signaled"`
}

// Barrier is one memory, buffer or image barrier. The kind follows from
// which resource is named.
type Barrier struct {
	Buffer    string `toml:"buffer"`
	Image     string `toml:"image"`
	SrcStages string `toml:"src_stages"`
	SrcAccess string `toml:"src_access"`
	DstStages string `toml:"dst_stages"`
	DstAccess string `toml:"dst_access"`
	OldLayout string `toml:"old_layout"`
	NewLayout string `toml:"new_layout"`
	Range     *Range `toml:"range"`
	Offset    uint64 `toml:"offset"`
	Size      uint64 `toml:"size"`
}

type Submit struct {
	CommandBuffers []string `toml:"command_buffers"`
	Wait           []string `toml:"wait"`
	Signal         []string `toml:"signal"`
	Fence          string   `toml:"fence"`
}

// Call is one API call. Only the fields the command reads are used.
type Call struct {
	Cmd   string `toml:"cmd"`
	CB    string `toml:"cb"`
	Queue string `toml:"queue"`

	Buffer    string `toml:"buffer"`
	Image     string `toml:"image"`
	Src       string `toml:"src"`
	Dst       string `toml:"dst"`
	Layout    string `toml:"layout"`
	SrcLayout string `toml:"src_layout"`
	DstLayout string `toml:"dst_layout"`
	Range     *Range `toml:"range"`
	Offset    uint64 `toml:"offset"`
	DstOffset uint64 `toml:"dst_offset"`
	Size      uint64 `toml:"size"`

	SrcStages string    `toml:"src_stages"`
	DstStages string    `toml:"dst_stages"`
	Barriers  []Barrier `toml:"barriers"`
	Event     string    `toml:"event"`
	Events    []string  `toml:"events"`

	Flags       string   `toml:"flags"`
	RenderPass  string   `toml:"render_pass"`
	Pipeline    string   `toml:"pipeline"`
	Views       []string `toml:"views"`
	Load        string   `toml:"load"`
	Store       string   `toml:"store"`
	Count       uint32   `toml:"count"`
	Indexed     bool     `toml:"indexed"`
	Secondaries []string `toml:"secondaries"`
	Submits     []Submit `toml:"submits"`
	Fences      []string `toml:"fences"`
	Object      string   `toml:"object"`
}

// Expect asks for exactly Count messages with the given VUID.
type Expect struct {
	VUID  string `toml:"vuid"`
	Count int    `toml:"count"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read scenario %s", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

func Parse(data []byte) (*Scenario, error) {
	s := &Scenario{}
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, errors.Wrapf(core.ErrInvalidScenario, "line %d column %d: %s", row, col, derr)
		}
		return nil, errors.Wrapf(core.ErrInvalidScenario, "decode: %s", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scenario) validate() error {
	seen := map[string]struct{}{}
	names := []string{}
	for _, q := range s.Queues {
		names = append(names, q.Name)
	}
	for _, b := range s.Buffers {
		names = append(names, b.Name)
	}
	for _, i := range s.Images {
		names = append(names, i.Name)
	}
	for _, v := range s.Views {
		names = append(names, v.Name)
	}
	for _, rp := range s.RenderPasses {
		names = append(names, rp.Name)
	}
	for _, p := range s.Pipelines {
		names = append(names, p.Name)
	}
	for _, cb := range s.CommandBuffers {
		names = append(names, cb.Name)
	}
	for _, f := range s.Fences {
		names = append(names, f.Name)
	}
	names = append(names, s.Events...)
	names = append(names, s.Semaphores...)

	for _, n := range names {
		if n == "" {
			return errors.Wrap(core.ErrInvalidScenario, "object without a name")
		}
		if _, ok := seen[n]; ok {
			return errors.Wrapf(core.ErrInvalidScenario, "object %q declared twice", n)
		}
		seen[n] = struct{}{}
	}
	for i, c := range s.Calls {
		if c.Cmd == "" {
			return errors.Wrapf(core.ErrInvalidScenario, "calls[%d] has no cmd", i)
		}
		if _, ok := commands[c.Cmd]; !ok {
			return errors.Wrapf(core.ErrUnknownCommand, "calls[%d]: %s", i, c.Cmd)
		}
	}
	for i, e := range s.Expect {
		if e.VUID == "" || e.Count < 0 {
			return errors.Wrapf(core.ErrInvalidScenario, "expect[%d] needs a vuid and a count >= 0", i)
		}
	}
	return nil
}
