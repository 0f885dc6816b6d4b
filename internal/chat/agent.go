// ABOUTME: Agent identifiers and the badge labels shown on bot bubbles.
// ABOUTME: Tracks which agent authored the most recent bot message.

package chat

import (
	"strings"
	"sync"
)

// AgentOrchestrator is the routing agent. Fallback and greeting messages are
// attributed to it, and an empty agent id means the orchestrator.
const AgentOrchestrator = "orchestrator"

// DefaultAgentLabel is shown for agent ids with no known label.
const DefaultAgentLabel = "Health Assistant"

var builtinLabels = map[string]string{
	AgentOrchestrator: "Health Assistant",
	"symptom":         "Symptom Triage Agent",
	"care_plan":       "Care Plan Agent",
	"policy_analysis": "Insurance Advisor Agent",
	"scheduling":      "Scheduling Agent",
	"pharmacy":        "E-Pharmacy Agent",
	"lab_test":        "Lab Test Specialist",
}

// AgentLabels maps agent ids to badge text.
type AgentLabels map[string]string

// NewAgentLabels returns the built-in label table with overrides applied.
// Blank override values are ignored.
func NewAgentLabels(overrides map[string]string) AgentLabels {
	labels := make(AgentLabels, len(builtinLabels)+len(overrides))
	for id, label := range builtinLabels {
		labels[id] = label
	}
	for id, label := range overrides {
		if strings.TrimSpace(label) == "" {
			continue
		}
		labels[id] = label
	}
	return labels
}

// Label returns the badge text for agentID.
func (l AgentLabels) Label(agentID string) string {
	if label, ok := l[normalizeAgent(agentID)]; ok {
		return label
	}
	return DefaultAgentLabel
}

func normalizeAgent(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return AgentOrchestrator
	}
	return id
}

// AgentContext remembers the agent that authored the most recent bot message.
type AgentContext struct {
	mu      sync.RWMutex
	current string
}

// Current returns the most recent agent id, or the orchestrator before any
// bot message has been rendered.
func (a *AgentContext) Current() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.current == "" {
		return AgentOrchestrator
	}
	return a.current
}

func (a *AgentContext) set(agentID string) {
	a.mu.Lock()
	a.current = normalizeAgent(agentID)
	a.mu.Unlock()
}
