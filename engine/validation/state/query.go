package state

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/vksync/engine/validation/report"
)

type QueryPoolCreateInfo struct {
	QueryType          vk.QueryType
	QueryCount         uint32
	PipelineStatistics vk.QueryPipelineStatisticFlags
}

type QueryPool struct {
	Node
	CreateInfo QueryPoolCreateInfo
}

func newQueryPool(h report.Handle, ci QueryPoolCreateInfo) *QueryPool {
	return &QueryPool{
		Node:       newNode(h, report.ObjectTypeQueryPool),
		CreateInfo: ci,
	}
}

// QueryObject names one query slot of a pool.
type QueryObject struct {
	Pool  *QueryPool
	Query uint32
}

func (q QueryObject) Type() vk.QueryType {
	return q.Pool.CreateInfo.QueryType
}

func (q QueryObject) String() string {
	return fmt.Sprintf("%s query %d", q.Pool.Handle(), q.Query)
}
