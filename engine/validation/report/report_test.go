package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationString(t *testing.T) {
	loc := Loc("vkQueueSubmit").At("pSubmits", 0).At("pCommandBuffers", 2)
	assert.Equal(t, "vkQueueSubmit(): pSubmits[0].pCommandBuffers[2]", loc.String())
	assert.Equal(t, "vkEndCommandBuffer()", Loc("vkEndCommandBuffer").String())

	base := Loc("vkCmdCopyImage")
	_ = base.Dot("srcImage")
	assert.Equal(t, "vkCmdCopyImage(): dstImage", base.Dot("dstImage").String(), "Dot must not alias")
}

func TestLoggerDeliversAndFilters(t *testing.T) {
	var buf bytes.Buffer
	f := DefaultFilter()
	f.DisabledVUIDs["VUID-muted"] = struct{}{}
	l := NewLogger(WithOutput(&buf), WithFilter(f))
	l.SetObjectName(7, "color")

	cb := NewTypedHandle(7, ObjectTypeImage)
	assert.True(t, l.LogError(Objects(cb), "VUID-a", Loc("vkCmdDraw"), "bad %d", 1))
	assert.False(t, l.LogError(Objects(cb), "VUID-muted", Loc("vkCmdDraw"), "ignored"))
	assert.False(t, l.LogPerformanceWarning(Objects(cb), "VUID-perf", Loc("vkCmdDraw"), "slow"))

	recs := l.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, "bad 1", recs[0].Message)
	assert.Equal(t, SeverityPerformanceWarning, recs[1].Severity)
	assert.Contains(t, buf.String(), "VUID-a")
	assert.Contains(t, buf.String(), "VkImage 0x7[color]")
	assert.Equal(t, 1, l.Count(SeverityError))
}

func TestLoggerDuplicateLimit(t *testing.T) {
	l := NewLogger(WithQuiet(), WithFilter(Filter{Severities: SeverityAll, DuplicateLimit: 2}))
	for i := 0; i < 5; i++ {
		assert.True(t, l.LogError(nil, "VUID-dup", Loc("vkCmdDraw"), "again"))
	}
	assert.Len(t, l.RecordsFor("VUID-dup"), 2)
	assert.Equal(t, uint64(5), l.Metrics().Counter("VUID-dup"))
}

func TestSeverityFilter(t *testing.T) {
	mask, err := ParseSeverities([]string{"error", "perf"})
	require.NoError(t, err)
	l := NewLogger(WithQuiet(), WithFilter(Filter{Severities: mask}))
	l.LogWarning(nil, "VUID-w", Loc("f"), "w")
	l.LogPerformanceWarning(nil, "VUID-p", Loc("f"), "p")
	assert.Len(t, l.Records(), 1)

	_, err = ParseSeverities([]string{"loud"})
	assert.Error(t, err)
}

func TestObjectTypes(t *testing.T) {
	ty, ok := ParseObjectType("image")
	assert.True(t, ok)
	assert.Equal(t, ObjectTypeImage, ty)
	assert.Equal(t, "VkDescriptorSet", ObjectTypeDescriptorSet.String())

	list := Objects(NewTypedHandle(1, ObjectTypeImage))
	ext := list.Clone().Add(NewTypedHandle(2, ObjectTypeCommandBuffer))
	assert.Len(t, list, 1)
	assert.Len(t, ext, 2)
}
