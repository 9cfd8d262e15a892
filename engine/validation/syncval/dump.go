package syncval

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// PrintStats writes the hazard counters and submit replay timing.
func (sv *SyncValidator) PrintStats(json jwriter.ObjectState) {
	counts := json.Name("Hazards").Array()
	for _, m := range sv.metrics.Snapshot() {
		obj := counts.Object()
		obj.Name("ID").String(m.ID)
		obj.Name("Count").Int(int(m.Count))
		obj.End()
	}
	counts.End()

	submits, avg := sv.metrics.SubmitTime()
	json.Name("Submits").Int(int(submits))
	json.Name("SubmitAverage").String(avg.String())
}

// PrintDetailedMap writes the stored access state of every resource.
// records resolves tags to the commands that made the accesses.
func (c *AccessContext) PrintDetailedMap(json jwriter.ObjectState, records []ResourceUsageRecord) {
	resources := json.Name("Resources").Array()
	defer resources.End()

	for _, h := range c.Resources() {
		res := resources.Object()
		res.Name("Resource").String(h.String())
		runs := res.Name("Accesses").Array()
		for _, e := range c.resources[h].Entries() {
			obj := runs.Object()
			obj.Name("Range").String(e.Range.String())
			if usage, tag, ok := e.Value.LastWrite(); ok {
				obj.Name("Write").String(usage.String())
				obj.Name("WriteCommand").String(recordAt(records, tag).Command)
				obj.Name("WriteBarriers").String(e.Value.writeBarriers.String())
			}
			reads := obj.Name("Reads").Array()
			for _, r := range e.Value.Reads() {
				read := reads.Object()
				read.Name("Access").String(r.Access.String())
				read.Name("Command").String(recordAt(records, r.Tag).Command)
				read.Name("Barriers").String(r.Barriers.String())
				read.End()
			}
			reads.End()
			obj.End()
		}
		runs.End()
		res.End()
	}
}
