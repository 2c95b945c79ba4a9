package recorder

import (
	"minos-hq/minos/pkg/pipeline"
)

// redactedPlaceholder replaces scrubbed payload values in stored traces.
const redactedPlaceholder = "[redacted]"

// ScrubContent returns a copy of the trace with raw request content and
// payload values removed. The evidence section's request digest still binds
// the record to the original content; the content itself never lands in
// storage.
func ScrubContent(t *pipeline.Trace) *pipeline.Trace {
	scrubbed := *t
	scrubbed.Request.Content = ""
	if len(t.Request.Payload) > 0 {
		payload := make(map[string]interface{}, len(t.Request.Payload))
		for k := range t.Request.Payload {
			payload[k] = redactedPlaceholder
		}
		scrubbed.Request.Payload = payload
	}
	return &scrubbed
}
