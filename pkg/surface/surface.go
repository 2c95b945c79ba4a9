// Package surface defines the eight directional trust surfaces that every
// agent request or response flow crosses, and the classification of raw
// channel descriptors into surface tags.
//
// A trust surface is one of four domains (User, System, Memory, Agent)
// crossed with a direction (Inbound, Outbound) relative to the governed
// agent. Policy documents attach allow/control/deny lists to each tag.
package surface

import (
	"fmt"
	"strings"
)

// Tag identifies one of the eight directional trust surfaces.
type Tag string

const (
	// UserInbound covers content arriving from a human user (prompts, uploads).
	UserInbound Tag = "U-I"

	// UserOutbound covers content returned to a human user (responses, citations).
	UserOutbound Tag = "U-O"

	// SystemInbound covers tool and API results entering the agent.
	SystemInbound Tag = "S-I"

	// SystemOutbound covers tool and API calls issued by the agent.
	SystemOutbound Tag = "S-O"

	// MemoryInbound covers recall from persistent agent memory.
	MemoryInbound Tag = "M-I"

	// MemoryOutbound covers writes to persistent agent memory.
	MemoryOutbound Tag = "M-O"

	// AgentInbound covers messages received from other agents.
	AgentInbound Tag = "A-I"

	// AgentOutbound covers messages sent to other agents.
	AgentOutbound Tag = "A-O"
)

// Domain is the endpoint class a surface connects the agent to.
type Domain string

const (
	DomainUser   Domain = "user"
	DomainSystem Domain = "system"
	DomainMemory Domain = "memory"
	DomainAgent  Domain = "agent"
)

// Direction indicates flow relative to the governed agent.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// All returns the eight surface tags in canonical order.
func All() []Tag {
	return []Tag{
		UserInbound, UserOutbound,
		SystemInbound, SystemOutbound,
		MemoryInbound, MemoryOutbound,
		AgentInbound, AgentOutbound,
	}
}

// Valid reports whether t is one of the eight defined surface tags.
func Valid(t Tag) bool {
	switch t {
	case UserInbound, UserOutbound, SystemInbound, SystemOutbound,
		MemoryInbound, MemoryOutbound, AgentInbound, AgentOutbound:
		return true
	}
	return false
}

// Domain returns the endpoint domain of the tag.
func (t Tag) Domain() Domain {
	switch t[0] {
	case 'U':
		return DomainUser
	case 'S':
		return DomainSystem
	case 'M':
		return DomainMemory
	default:
		return DomainAgent
	}
}

// Direction returns the flow direction of the tag.
func (t Tag) Direction() Direction {
	if strings.HasSuffix(string(t), "-I") {
		return DirectionInbound
	}
	return DirectionOutbound
}

// String returns the canonical tag form, e.g. "U-I".
func (t Tag) String() string { return string(t) }

// Classify normalizes a raw channel descriptor into a surface tag.
// It accepts canonical tags ("U-I"), long forms ("user-inbound",
// "user_inbound") and domain/direction pairs ("system/outbound").
func Classify(raw string) (Tag, error) {
	s := strings.TrimSpace(strings.ToUpper(raw))
	if s == "" {
		return "", fmt.Errorf("empty surface descriptor")
	}

	if t := Tag(s); Valid(t) {
		return t, nil
	}

	norm := strings.ToLower(raw)
	norm = strings.NewReplacer("_", "-", "/", "-", " ", "-").Replace(norm)
	parts := strings.SplitN(norm, "-", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("unrecognized surface descriptor %q", raw)
	}

	var domain byte
	switch parts[0] {
	case "u", "user":
		domain = 'U'
	case "s", "system", "tool":
		domain = 'S'
	case "m", "memory":
		domain = 'M'
	case "a", "agent":
		domain = 'A'
	default:
		return "", fmt.Errorf("unknown surface domain %q", parts[0])
	}

	var dir byte
	switch parts[1] {
	case "i", "in", "inbound":
		dir = 'I'
	case "o", "out", "outbound":
		dir = 'O'
	default:
		return "", fmt.Errorf("unknown surface direction %q", parts[1])
	}

	return Tag(fmt.Sprintf("%c-%c", domain, dir)), nil
}
