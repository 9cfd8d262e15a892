package syncval

import (
	"math/bits"
	"strings"

	"github.com/spaghettifunk/vksync/engine/vulkan"
)

// SyncStageAccessIndex names one (pipeline stage, access) pair.
type SyncStageAccessIndex uint8

const (
	SyncAccessIndexNone SyncStageAccessIndex = iota
	SyncDrawIndirectIndirectCommandRead
	SyncIndexInputIndexRead
	SyncVertexAttributeInputVertexAttributeRead
	SyncVertexShaderUniformRead
	SyncVertexShaderShaderSampledRead
	SyncVertexShaderShaderStorageRead
	SyncVertexShaderShaderStorageWrite
	SyncTessellationControlShaderUniformRead
	SyncTessellationControlShaderShaderSampledRead
	SyncTessellationControlShaderShaderStorageRead
	SyncTessellationControlShaderShaderStorageWrite
	SyncTessellationEvaluationShaderUniformRead
	SyncTessellationEvaluationShaderShaderSampledRead
	SyncTessellationEvaluationShaderShaderStorageRead
	SyncTessellationEvaluationShaderShaderStorageWrite
	SyncGeometryShaderUniformRead
	SyncGeometryShaderShaderSampledRead
	SyncGeometryShaderShaderStorageRead
	SyncGeometryShaderShaderStorageWrite
	SyncFragmentShaderUniformRead
	SyncFragmentShaderShaderSampledRead
	SyncFragmentShaderShaderStorageRead
	SyncFragmentShaderShaderStorageWrite
	SyncFragmentShaderInputAttachmentRead
	SyncEarlyFragmentTestsDepthStencilAttachmentRead
	SyncEarlyFragmentTestsDepthStencilAttachmentWrite
	SyncLateFragmentTestsDepthStencilAttachmentRead
	SyncLateFragmentTestsDepthStencilAttachmentWrite
	SyncColorAttachmentOutputColorAttachmentRead
	SyncColorAttachmentOutputColorAttachmentWrite
	SyncComputeShaderUniformRead
	SyncComputeShaderShaderSampledRead
	SyncComputeShaderShaderStorageRead
	SyncComputeShaderShaderStorageWrite
	SyncCopyTransferRead
	SyncCopyTransferWrite
	SyncResolveTransferRead
	SyncResolveTransferWrite
	SyncBlitTransferRead
	SyncBlitTransferWrite
	SyncClearTransferWrite
	SyncHostHostRead
	SyncHostHostWrite
	SyncImageLayoutTransition

	syncStageAccessCount
)

// SyncStageAccessFlags is a set of SyncStageAccessIndex bits.
type SyncStageAccessFlags uint64

func (i SyncStageAccessIndex) Bit() SyncStageAccessFlags {
	return SyncStageAccessFlags(1) << i
}

type stageAccessInfo struct {
	name   string
	stage  vulkan.PipelineStageFlags2
	access vulkan.AccessFlags2
	write  bool
}

var syncStageAccessInfo = [syncStageAccessCount]stageAccessInfo{
	SyncAccessIndexNone:                               {name: "SYNC_ACCESS_INDEX_NONE"},
	SyncDrawIndirectIndirectCommandRead:               {"SYNC_DRAW_INDIRECT_INDIRECT_COMMAND_READ", vulkan.PipelineStage2DrawIndirect, vulkan.Access2IndirectCommandRead, false},
	SyncIndexInputIndexRead:                           {"SYNC_INDEX_INPUT_INDEX_READ", vulkan.PipelineStage2IndexInput, vulkan.Access2IndexRead, false},
	SyncVertexAttributeInputVertexAttributeRead:       {"SYNC_VERTEX_ATTRIBUTE_INPUT_VERTEX_ATTRIBUTE_READ", vulkan.PipelineStage2VertexAttributeInput, vulkan.Access2VertexAttributeRead, false},
	SyncVertexShaderUniformRead:                       {"SYNC_VERTEX_SHADER_UNIFORM_READ", vulkan.PipelineStage2VertexShader, vulkan.Access2UniformRead, false},
	SyncVertexShaderShaderSampledRead:                 {"SYNC_VERTEX_SHADER_SHADER_SAMPLED_READ", vulkan.PipelineStage2VertexShader, vulkan.Access2ShaderSampledRead, false},
	SyncVertexShaderShaderStorageRead:                 {"SYNC_VERTEX_SHADER_SHADER_STORAGE_READ", vulkan.PipelineStage2VertexShader, vulkan.Access2ShaderStorageRead, false},
	SyncVertexShaderShaderStorageWrite:                {"SYNC_VERTEX_SHADER_SHADER_STORAGE_WRITE", vulkan.PipelineStage2VertexShader, vulkan.Access2ShaderStorageWrite, true},
	SyncTessellationControlShaderUniformRead:          {"SYNC_TESSELLATION_CONTROL_SHADER_UNIFORM_READ", vulkan.PipelineStage2TessellationControlShader, vulkan.Access2UniformRead, false},
	SyncTessellationControlShaderShaderSampledRead:    {"SYNC_TESSELLATION_CONTROL_SHADER_SHADER_SAMPLED_READ", vulkan.PipelineStage2TessellationControlShader, vulkan.Access2ShaderSampledRead, false},
	SyncTessellationControlShaderShaderStorageRead:    {"SYNC_TESSELLATION_CONTROL_SHADER_SHADER_STORAGE_READ", vulkan.PipelineStage2TessellationControlShader, vulkan.Access2ShaderStorageRead, false},
	SyncTessellationControlShaderShaderStorageWrite:   {"SYNC_TESSELLATION_CONTROL_SHADER_SHADER_STORAGE_WRITE", vulkan.PipelineStage2TessellationControlShader, vulkan.Access2ShaderStorageWrite, true},
	SyncTessellationEvaluationShaderUniformRead:       {"SYNC_TESSELLATION_EVALUATION_SHADER_UNIFORM_READ", vulkan.PipelineStage2TessellationEvaluationShader, vulkan.Access2UniformRead, false},
	SyncTessellationEvaluationShaderShaderSampledRead: {"SYNC_TESSELLATION_EVALUATION_SHADER_SHADER_SAMPLED_READ", vulkan.PipelineStage2TessellationEvaluationShader, vulkan.Access2ShaderSampledRead, false},
	SyncTessellationEvaluationShaderShaderStorageRead: {"SYNC_TESSELLATION_EVALUATION_SHADER_SHADER_STORAGE_READ", vulkan.PipelineStage2TessellationEvaluationShader, vulkan.Access2ShaderStorageRead, false},
	SyncTessellationEvaluationShaderShaderStorageWrite: {"SYNC_TESSELLATION_EVALUATION_SHADER_SHADER_STORAGE_WRITE", vulkan.PipelineStage2TessellationEvaluationShader, vulkan.Access2ShaderStorageWrite, true},
	SyncGeometryShaderUniformRead:                     {"SYNC_GEOMETRY_SHADER_UNIFORM_READ", vulkan.PipelineStage2GeometryShader, vulkan.Access2UniformRead, false},
	SyncGeometryShaderShaderSampledRead:               {"SYNC_GEOMETRY_SHADER_SHADER_SAMPLED_READ", vulkan.PipelineStage2GeometryShader, vulkan.Access2ShaderSampledRead, false},
	SyncGeometryShaderShaderStorageRead:               {"SYNC_GEOMETRY_SHADER_SHADER_STORAGE_READ", vulkan.PipelineStage2GeometryShader, vulkan.Access2ShaderStorageRead, false},
	SyncGeometryShaderShaderStorageWrite:              {"SYNC_GEOMETRY_SHADER_SHADER_STORAGE_WRITE", vulkan.PipelineStage2GeometryShader, vulkan.Access2ShaderStorageWrite, true},
	SyncFragmentShaderUniformRead:                     {"SYNC_FRAGMENT_SHADER_UNIFORM_READ", vulkan.PipelineStage2FragmentShader, vulkan.Access2UniformRead, false},
	SyncFragmentShaderShaderSampledRead:               {"SYNC_FRAGMENT_SHADER_SHADER_SAMPLED_READ", vulkan.PipelineStage2FragmentShader, vulkan.Access2ShaderSampledRead, false},
	SyncFragmentShaderShaderStorageRead:               {"SYNC_FRAGMENT_SHADER_SHADER_STORAGE_READ", vulkan.PipelineStage2FragmentShader, vulkan.Access2ShaderStorageRead, false},
	SyncFragmentShaderShaderStorageWrite:              {"SYNC_FRAGMENT_SHADER_SHADER_STORAGE_WRITE", vulkan.PipelineStage2FragmentShader, vulkan.Access2ShaderStorageWrite, true},
	SyncFragmentShaderInputAttachmentRead:             {"SYNC_FRAGMENT_SHADER_INPUT_ATTACHMENT_READ", vulkan.PipelineStage2FragmentShader, vulkan.Access2InputAttachmentRead, false},
	SyncEarlyFragmentTestsDepthStencilAttachmentRead:  {"SYNC_EARLY_FRAGMENT_TESTS_DEPTH_STENCIL_ATTACHMENT_READ", vulkan.PipelineStage2EarlyFragmentTests, vulkan.Access2DepthStencilAttachmentRead, false},
	SyncEarlyFragmentTestsDepthStencilAttachmentWrite: {"SYNC_EARLY_FRAGMENT_TESTS_DEPTH_STENCIL_ATTACHMENT_WRITE", vulkan.PipelineStage2EarlyFragmentTests, vulkan.Access2DepthStencilAttachmentWrite, true},
	SyncLateFragmentTestsDepthStencilAttachmentRead:   {"SYNC_LATE_FRAGMENT_TESTS_DEPTH_STENCIL_ATTACHMENT_READ", vulkan.PipelineStage2LateFragmentTests, vulkan.Access2DepthStencilAttachmentRead, false},
	SyncLateFragmentTestsDepthStencilAttachmentWrite:  {"SYNC_LATE_FRAGMENT_TESTS_DEPTH_STENCIL_ATTACHMENT_WRITE", vulkan.PipelineStage2LateFragmentTests, vulkan.Access2DepthStencilAttachmentWrite, true},
	SyncColorAttachmentOutputColorAttachmentRead:      {"SYNC_COLOR_ATTACHMENT_OUTPUT_COLOR_ATTACHMENT_READ", vulkan.PipelineStage2ColorAttachmentOutput, vulkan.Access2ColorAttachmentRead, false},
	SyncColorAttachmentOutputColorAttachmentWrite:     {"SYNC_COLOR_ATTACHMENT_OUTPUT_COLOR_ATTACHMENT_WRITE", vulkan.PipelineStage2ColorAttachmentOutput, vulkan.Access2ColorAttachmentWrite, true},
	SyncComputeShaderUniformRead:                      {"SYNC_COMPUTE_SHADER_UNIFORM_READ", vulkan.PipelineStage2ComputeShader, vulkan.Access2UniformRead, false},
	SyncComputeShaderShaderSampledRead:                {"SYNC_COMPUTE_SHADER_SHADER_SAMPLED_READ", vulkan.PipelineStage2ComputeShader, vulkan.Access2ShaderSampledRead, false},
	SyncComputeShaderShaderStorageRead:                {"SYNC_COMPUTE_SHADER_SHADER_STORAGE_READ", vulkan.PipelineStage2ComputeShader, vulkan.Access2ShaderStorageRead, false},
	SyncComputeShaderShaderStorageWrite:               {"SYNC_COMPUTE_SHADER_SHADER_STORAGE_WRITE", vulkan.PipelineStage2ComputeShader, vulkan.Access2ShaderStorageWrite, true},
	SyncCopyTransferRead:                              {"SYNC_COPY_TRANSFER_READ", vulkan.PipelineStage2Copy, vulkan.Access2TransferRead, false},
	SyncCopyTransferWrite:                             {"SYNC_COPY_TRANSFER_WRITE", vulkan.PipelineStage2Copy, vulkan.Access2TransferWrite, true},
	SyncResolveTransferRead:                           {"SYNC_RESOLVE_TRANSFER_READ", vulkan.PipelineStage2Resolve, vulkan.Access2TransferRead, false},
	SyncResolveTransferWrite:                          {"SYNC_RESOLVE_TRANSFER_WRITE", vulkan.PipelineStage2Resolve, vulkan.Access2TransferWrite, true},
	SyncBlitTransferRead:                              {"SYNC_BLIT_TRANSFER_READ", vulkan.PipelineStage2Blit, vulkan.Access2TransferRead, false},
	SyncBlitTransferWrite:                             {"SYNC_BLIT_TRANSFER_WRITE", vulkan.PipelineStage2Blit, vulkan.Access2TransferWrite, true},
	SyncClearTransferWrite:                            {"SYNC_CLEAR_TRANSFER_WRITE", vulkan.PipelineStage2Clear, vulkan.Access2TransferWrite, true},
	SyncHostHostRead:                                  {"SYNC_HOST_HOST_READ", vulkan.PipelineStage2Host, vulkan.Access2HostRead, false},
	SyncHostHostWrite:                                 {"SYNC_HOST_HOST_WRITE", vulkan.PipelineStage2Host, vulkan.Access2HostWrite, true},
	// Layout transitions are in a barrier's first scope only through the
	// dependency chain, so they carry no stage or access bit.
	SyncImageLayoutTransition: {name: "SYNC_IMAGE_LAYOUT_TRANSITION", write: true},
}

func (i SyncStageAccessIndex) String() string {
	if i >= syncStageAccessCount {
		return "SYNC_ACCESS_INDEX_UNKNOWN"
	}
	return syncStageAccessInfo[i].name
}

func (i SyncStageAccessIndex) Stage() vulkan.PipelineStageFlags2 {
	return syncStageAccessInfo[i].stage
}

func (i SyncStageAccessIndex) IsWrite() bool {
	return syncStageAccessInfo[i].write
}

func (i SyncStageAccessIndex) IsRead() bool {
	return i != SyncAccessIndexNone && !syncStageAccessInfo[i].write
}

func (f SyncStageAccessFlags) Has(i SyncStageAccessIndex) bool {
	return f&i.Bit() != 0
}

func (f SyncStageAccessFlags) String() string {
	if f == 0 {
		return "0"
	}
	var names []string
	for v := uint64(f); v != 0; v &= v - 1 {
		names = append(names, SyncStageAccessIndex(bits.TrailingZeros64(v)).String())
	}
	return strings.Join(names, "|")
}

var (
	syncReadMask  SyncStageAccessFlags
	syncWriteMask SyncStageAccessFlags
)

func init() {
	for i := SyncStageAccessIndex(1); i < syncStageAccessCount; i++ {
		if i == SyncImageLayoutTransition {
			continue
		}
		if syncStageAccessInfo[i].write {
			syncWriteMask |= i.Bit()
		} else {
			syncReadMask |= i.Bit()
		}
	}
}

const (
	transferStages = vulkan.PipelineStage2Copy | vulkan.PipelineStage2Resolve |
		vulkan.PipelineStage2Blit | vulkan.PipelineStage2Clear
	preRasterizationStages = vulkan.PipelineStage2VertexShader | vulkan.PipelineStage2TessellationControlShader |
		vulkan.PipelineStage2TessellationEvaluationShader | vulkan.PipelineStage2GeometryShader
	vertexInputStages = vulkan.PipelineStage2IndexInput | vulkan.PipelineStage2VertexAttributeInput
)

// Graphics and compute stages in logical pipeline order.
var (
	graphicsStageOrder = []vulkan.PipelineStageFlags2{
		vulkan.PipelineStage2DrawIndirect,
		vulkan.PipelineStage2IndexInput,
		vulkan.PipelineStage2VertexAttributeInput,
		vulkan.PipelineStage2VertexShader,
		vulkan.PipelineStage2TessellationControlShader,
		vulkan.PipelineStage2TessellationEvaluationShader,
		vulkan.PipelineStage2GeometryShader,
		vulkan.PipelineStage2EarlyFragmentTests,
		vulkan.PipelineStage2FragmentShader,
		vulkan.PipelineStage2LateFragmentTests,
		vulkan.PipelineStage2ColorAttachmentOutput,
	}
	computeStageOrder = []vulkan.PipelineStageFlags2{
		vulkan.PipelineStage2DrawIndirect,
		vulkan.PipelineStage2ComputeShader,
	}
)

var (
	allGraphicsStages vulkan.PipelineStageFlags2
	allCommandStages  vulkan.PipelineStageFlags2
)

func init() {
	for _, s := range graphicsStageOrder {
		allGraphicsStages |= s
	}
	allCommandStages = allGraphicsStages | vulkan.PipelineStage2ComputeShader | transferStages
}

// ExpandPipelineStages replaces the meta stages of mask by the stages they
// stand for. TOP_OF_PIPE and BOTTOM_OF_PIPE are left to the scope makers.
func ExpandPipelineStages(mask vulkan.PipelineStageFlags2) vulkan.PipelineStageFlags2 {
	out := mask
	if mask&vulkan.PipelineStage2AllCommands != 0 {
		out |= allCommandStages
	}
	if mask&vulkan.PipelineStage2AllGraphics != 0 {
		out |= allGraphicsStages
	}
	if mask&vulkan.PipelineStage2AllTransfer != 0 {
		out |= transferStages
	}
	if mask&vulkan.PipelineStage2VertexInput != 0 {
		out |= vertexInputStages
	}
	if mask&vulkan.PipelineStage2PreRasterizationShaders != 0 {
		out |= preRasterizationStages
	}
	return out &^ (vulkan.PipelineStage2AllCommands | vulkan.PipelineStage2AllGraphics | vulkan.PipelineStage2AllTransfer |
		vulkan.PipelineStage2VertexInput | vulkan.PipelineStage2PreRasterizationShaders |
		vulkan.PipelineStage2TopOfPipe | vulkan.PipelineStage2BottomOfPipe)
}

func relatedStages(mask vulkan.PipelineStageFlags2, order []vulkan.PipelineStageFlags2, earlier bool) vulkan.PipelineStageFlags2 {
	var out vulkan.PipelineStageFlags2
	for i, s := range order {
		if mask&s == 0 {
			continue
		}
		if earlier {
			for _, e := range order[:i] {
				out |= e
			}
		} else {
			for _, l := range order[i+1:] {
				out |= l
			}
		}
	}
	return out
}

func WithEarlierPipelineStages(mask vulkan.PipelineStageFlags2) vulkan.PipelineStageFlags2 {
	return mask | relatedStages(mask, graphicsStageOrder, true) | relatedStages(mask, computeStageOrder, true)
}

func WithLaterPipelineStages(mask vulkan.PipelineStageFlags2) vulkan.PipelineStageFlags2 {
	return mask | relatedStages(mask, graphicsStageOrder, false) | relatedStages(mask, computeStageOrder, false)
}

// AccessScopeByStage returns every stage/access pair of the given stages.
func AccessScopeByStage(stages vulkan.PipelineStageFlags2) SyncStageAccessFlags {
	var out SyncStageAccessFlags
	for i := SyncStageAccessIndex(1); i < syncStageAccessCount; i++ {
		if syncStageAccessInfo[i].stage&stages != 0 {
			out |= i.Bit()
		}
	}
	return out
}

// AccessScopeByAccess returns every stage/access pair of the given accesses.
// The MEMORY_* and SHADER_* umbrella bits are expanded.
func AccessScopeByAccess(accesses vulkan.AccessFlags2) SyncStageAccessFlags {
	if accesses&vulkan.Access2ShaderRead != 0 {
		accesses |= vulkan.Access2ShaderSampledRead | vulkan.Access2ShaderStorageRead
	}
	if accesses&vulkan.Access2ShaderWrite != 0 {
		accesses |= vulkan.Access2ShaderStorageWrite
	}
	var out SyncStageAccessFlags
	for i := SyncStageAccessIndex(1); i < syncStageAccessCount; i++ {
		if syncStageAccessInfo[i].access&accesses != 0 {
			out |= i.Bit()
		}
	}
	if accesses&vulkan.Access2MemoryRead != 0 {
		out |= syncReadMask
	}
	if accesses&vulkan.Access2MemoryWrite != 0 {
		out |= syncWriteMask
	}
	return out
}

// SyncExecScope is one side of an execution dependency.
type SyncExecScope struct {
	MaskParam     vulkan.PipelineStageFlags2
	ExpandedMask  vulkan.PipelineStageFlags2
	ExecScope     vulkan.PipelineStageFlags2
	ValidAccesses SyncStageAccessFlags
}

// MakeSrcScope builds a first synchronization scope. BOTTOM_OF_PIPE waits
// for everything, TOP_OF_PIPE for nothing.
func MakeSrcScope(mask vulkan.PipelineStageFlags2) SyncExecScope {
	expanded := ExpandPipelineStages(mask)
	if mask&vulkan.PipelineStage2BottomOfPipe != 0 {
		expanded |= allCommandStages
	}
	return SyncExecScope{
		MaskParam:     mask,
		ExpandedMask:  expanded,
		ExecScope:     WithEarlierPipelineStages(expanded),
		ValidAccesses: AccessScopeByStage(expanded),
	}
}

// MakeDstScope builds a second synchronization scope. TOP_OF_PIPE blocks
// everything, BOTTOM_OF_PIPE nothing.
func MakeDstScope(mask vulkan.PipelineStageFlags2) SyncExecScope {
	expanded := ExpandPipelineStages(mask)
	if mask&vulkan.PipelineStage2TopOfPipe != 0 {
		expanded |= allCommandStages
	}
	return SyncExecScope{
		MaskParam:     mask,
		ExpandedMask:  expanded,
		ExecScope:     WithLaterPipelineStages(expanded),
		ValidAccesses: AccessScopeByStage(expanded),
	}
}
