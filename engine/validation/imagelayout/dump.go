package imagelayout

import (
	"strconv"

	vk "github.com/goki/vulkan"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// PrintDetailedMap writes the global layout of an image as a JSON array of
// runs, one object per stored range.
func (g *GlobalImageLayoutRangeMap) PrintDetailedMap(json jwriter.ObjectState) {
	runs := json.Name("Layouts").Array()
	defer runs.End()

	g.Read(func(m *LayoutMap) {
		for _, e := range m.Entries() {
			obj := runs.Object()
			first := g.encoder.Decode(e.Range.Begin)
			last := g.encoder.Decode(e.Range.End - 1)
			obj.Name("Range").String(e.Range.String())
			obj.Name("First").String(first.String())
			obj.Name("Last").String(last.String())
			obj.Name("Layout").String(vulkan.ImageLayoutString(e.Value))
			obj.End()
		}
	})
}

// PrintDetailedMap writes the recorded layouts of a command buffer's image map.
func (m *SubresourceLayoutMap) PrintDetailedMap(json jwriter.ObjectState) {
	runs := json.Name("Layouts").Array()
	defer runs.End()

	for _, e := range m.layouts.Entries() {
		obj := runs.Object()
		obj.Name("Range").String(e.Range.String())
		obj.Name("Initial").String(layoutName(e.Value.Initial))
		obj.Name("Current").String(layoutName(e.Value.Current))
		if e.Value.State != nil {
			obj.Name("ImageView").String(strconv.FormatUint(uint64(e.Value.State.ImageView), 16))
		}
		obj.End()
	}
}

func layoutName(l vk.ImageLayout) string {
	if l == vulkan.InvalidLayout {
		return "unset"
	}
	return vulkan.ImageLayoutString(l)
}
