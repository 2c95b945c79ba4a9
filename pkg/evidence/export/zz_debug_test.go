package export

import (
	"encoding/json"
	"testing"
	"time"

	"minos-hq/minos/pkg/evidence"
)

func TestZZDebugRoundTrip(t *testing.T) {
	rec := &evidence.TraceRecord{
		ID:        "t1",
		RequestID: "r1",
		ActorID:   "a1",
		Surface:   "S-O",
		Action:    "sharepoint_read",
		State:     "SEALED",
		Decision:  "ALLOW",
		CreatedAt: time.Now(),
		SealedAt:  time.Now(),
		Trace:     json.RawMessage(`{"verdict":{"decision":"ALLOW"},"content":"read the <quarterly> document & more"}`),
	}
	b := NewPacketBuilder("dbg")
	packet, err := b.Build([]*evidence.TraceRecord{rec}, nil)
	if err != nil {
		t.Fatal(err)
	}
	wire, err := json.MarshalIndent(packet, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	var rt Packet
	if err := json.Unmarshal(wire, &rt); err != nil {
		t.Fatal(err)
	}
	ok, err := Verify(&rt)
	if err != nil || !ok {
		before, _ := json.Marshal(packet.Records)
		after, _ := json.Marshal(rt.Records)
		t.Logf("before: %s", before)
		t.Logf("after:  %s", after)
		t.Fatalf("verify = %v, %v", ok, err)
	}
}
