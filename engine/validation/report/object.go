package report

import (
	"fmt"
	"strings"
)

type ObjectType int

const (
	ObjectTypeUnknown ObjectType = iota
	ObjectTypeDevice
	ObjectTypeQueue
	ObjectTypeCommandPool
	ObjectTypeCommandBuffer
	ObjectTypeImage
	ObjectTypeImageView
	ObjectTypeBuffer
	ObjectTypeRenderPass
	ObjectTypeFramebuffer
	ObjectTypePipeline
	ObjectTypeDescriptorSet
	ObjectTypeQueryPool
	ObjectTypeEvent
	ObjectTypeFence
	ObjectTypeSemaphore
	ObjectTypeSwapchain
)

var objectTypeNames = map[ObjectType]string{
	ObjectTypeUnknown:       "Unknown",
	ObjectTypeDevice:        "VkDevice",
	ObjectTypeQueue:         "VkQueue",
	ObjectTypeCommandPool:   "VkCommandPool",
	ObjectTypeCommandBuffer: "VkCommandBuffer",
	ObjectTypeImage:         "VkImage",
	ObjectTypeImageView:     "VkImageView",
	ObjectTypeBuffer:        "VkBuffer",
	ObjectTypeRenderPass:    "VkRenderPass",
	ObjectTypeFramebuffer:   "VkFramebuffer",
	ObjectTypePipeline:      "VkPipeline",
	ObjectTypeDescriptorSet: "VkDescriptorSet",
	ObjectTypeQueryPool:     "VkQueryPool",
	ObjectTypeEvent:         "VkEvent",
	ObjectTypeFence:         "VkFence",
	ObjectTypeSemaphore:     "VkSemaphore",
	ObjectTypeSwapchain:     "VkSwapchainKHR",
}

func (t ObjectType) String() string {
	if n, ok := objectTypeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("ObjectType(%d)", int(t))
}

// ParseObjectType accepts "VkImage" or "image".
func ParseObjectType(s string) (ObjectType, bool) {
	for t, n := range objectTypeNames {
		if strings.EqualFold(n, s) || strings.EqualFold(strings.TrimPrefix(n, "Vk"), s) {
			return t, true
		}
	}
	return ObjectTypeUnknown, false
}

// Handle is the 64-bit value identifying a Vulkan object.
type Handle uint64

const NullHandle Handle = 0

// TypedHandle pairs a handle with its object type.
type TypedHandle struct {
	Handle Handle
	Type   ObjectType
}

func NewTypedHandle(h Handle, t ObjectType) TypedHandle {
	return TypedHandle{Handle: h, Type: t}
}

func (h TypedHandle) String() string {
	return fmt.Sprintf("%s 0x%x", h.Type, uint64(h.Handle))
}

// LogObjectList is the list of objects a message is about.
type LogObjectList []TypedHandle

func Objects(handles ...TypedHandle) LogObjectList {
	return LogObjectList(handles)
}

func (l LogObjectList) Add(h TypedHandle) LogObjectList {
	return append(l, h)
}

// Clone returns a copy that can be extended without aliasing l.
func (l LogObjectList) Clone() LogObjectList {
	out := make(LogObjectList, len(l), len(l)+1)
	copy(out, l)
	return out
}

func (l LogObjectList) Head() TypedHandle {
	if len(l) == 0 {
		return TypedHandle{}
	}
	return l[0]
}
