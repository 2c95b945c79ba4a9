package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"sort"
	"time"

	"minos-hq/minos/pkg/evidence"
)

// Packet is a self-contained evidence bundle for handover to an auditor or
// regulator. It embeds the selected records, the query that selected them,
// the policy documents the traces bound, and a content hash over the record
// set so a recipient can verify integrity offline.
type Packet struct {
	// GeneratedAt is the packet creation time.
	GeneratedAt time.Time `json:"generated_at"`

	// Generator labels the producing system and version.
	Generator string `json:"generator"`

	// Query is the filter that selected the records.
	Query *evidence.Query `json:"query,omitempty"`

	// PolicyHashes lists the distinct policy snapshot hashes bound by the
	// included traces, sorted.
	PolicyHashes []string `json:"policy_hashes"`

	// Policies embeds the canonical policy documents keyed by their content
	// hash, so a recipient can re-verify verdicts against the exact rule
	// set in force. Hashes whose document the exporter could not resolve
	// appear in PolicyHashes only.
	Policies map[string]json.RawMessage `json:"policies,omitempty"`

	// RecordCount is the number of included records.
	RecordCount int `json:"record_count"`

	// ContentHash is the SHA-256 over the canonical JSON encoding of the
	// record set, hex encoded.
	ContentHash string `json:"content_hash"`

	// Records are the included trace records.
	Records []*evidence.TraceRecord `json:"records"`
}

// PacketBuilder assembles evidence packets.
type PacketBuilder struct {
	// Generator labels the producing system in the packet header.
	Generator string

	// Resolver maps a policy hash to its canonical document bytes, when
	// available. Nil leaves Policies empty.
	Resolver PolicyResolver
}

// PolicyResolver looks up the canonical policy document for a snapshot
// hash. The second return is false when the document is not available.
type PolicyResolver func(hash string) ([]byte, bool)

// NewPacketBuilder creates a packet builder with the given generator label.
func NewPacketBuilder(generator string) *PacketBuilder {
	if generator == "" {
		generator = "minos"
	}
	return &PacketBuilder{Generator: generator}
}

// Build assembles a packet from the given records. Records are sorted by
// trace ID so the content hash is independent of query ordering.
func (b *PacketBuilder) Build(records []*evidence.TraceRecord, query *evidence.Query) (*Packet, error) {
	sorted := append([]*evidence.TraceRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	hash, err := ContentHash(sorted)
	if err != nil {
		return nil, evidence.NewExportError("packet", len(records), err)
	}

	seen := make(map[string]bool)
	var hashes []string
	for _, r := range sorted {
		if r.PolicyHash != "" && !seen[r.PolicyHash] {
			seen[r.PolicyHash] = true
			hashes = append(hashes, r.PolicyHash)
		}
	}
	sort.Strings(hashes)

	var policies map[string]json.RawMessage
	if b.Resolver != nil {
		for _, h := range hashes {
			doc, ok := b.Resolver(h)
			if !ok {
				continue
			}
			if policies == nil {
				policies = make(map[string]json.RawMessage)
			}
			policies[h] = json.RawMessage(doc)
		}
	}

	return &Packet{
		GeneratedAt:  time.Now().UTC(),
		Generator:    b.Generator,
		Query:        query,
		PolicyHashes: hashes,
		Policies:     policies,
		RecordCount:  len(sorted),
		ContentHash:  hash,
		Records:      sorted,
	}, nil
}

// Export builds a packet from the records and writes it as indented JSON.
// It satisfies the Exporter interface; the packet query field is left empty.
func (b *PacketBuilder) Export(ctx context.Context, records []*evidence.TraceRecord, w io.Writer) error {
	packet, err := b.Build(records, nil)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(packet, "", "  ")
	if err != nil {
		return evidence.NewExportError("packet", len(records), err)
	}
	if _, err := w.Write(data); err != nil {
		return evidence.NewExportError("packet", len(records), err)
	}
	return nil
}

// Verify recomputes the content hash of a packet's records and checks every
// embedded policy document against the hash it is keyed under. It reports
// false when either has been tampered with.
func Verify(p *Packet) (bool, error) {
	sorted := append([]*evidence.TraceRecord(nil), p.Records...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	hash, err := ContentHash(sorted)
	if err != nil {
		return false, err
	}
	if hash != p.ContentHash {
		return false, nil
	}
	for want, doc := range p.Policies {
		sum := sha256.Sum256(doc)
		if hex.EncodeToString(sum[:]) != want {
			return false, nil
		}
	}
	return true, nil
}

// ContentHash computes the SHA-256 over the canonical JSON encoding of the
// record set.
func ContentHash(records []*evidence.TraceRecord) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
