package host

import "strings"

// MatchKind tags a match reported by the host engine
type MatchKind int

const (
	MatchUnknown MatchKind = iota
	MatchStateNode
	MatchEventSubProcess
	MatchStateEvent
	MatchMilestone
	MatchAdHocComplete
	MatchAdHocActivate
	// MatchStartOnCondition requests a new process start
	MatchStartOnCondition
)

// SystemGroup is the group name of engine generated structural matches
const SystemGroup = "DROOLS_SYSTEM"

const (
	stateNodePrefix        = "RuleFlowStateNode-"
	eventSubProcessPrefix  = "RuleFlowStateEventSubProcess-"
	stateEventPrefix       = "RuleFlowStateEvent-"
	milestonePrefix        = "RuleFlow-Milestone-"
	adHocCompletePrefix    = "RuleFlow-AdHocComplete-"
	adHocActivatePrefix    = "RuleFlow-AdHocActivate-"
	startOnConditionPrefix = "RuleFlow-Start-"
	groupDeactivatedPrefix = "RuleFlowGroup_"
)

// MatchEvent is a match created by the host engine
type MatchEvent struct {
	Kind MatchKind
	// Topic is the signal raised for structural kinds
	Topic string
	// DefinitionID is the definition to start for MatchStartOnCondition
	DefinitionID string
	Payload      interface{}
}

// Signals returns true when the kind translates into a queued signal
func (k MatchKind) Signals() bool {
	switch k {
	case MatchStateNode, MatchEventSubProcess, MatchStateEvent, MatchMilestone, MatchAdHocComplete, MatchAdHocActivate:
		return true
	}
	return false
}

// GroupEvent reports a deactivated rule group
type GroupEvent struct {
	Name      string
	SessionID string
}

// Topic returns the signal raised when the group is deactivated
func (g *GroupEvent) Topic() string {
	if g.SessionID == "" {
		return groupDeactivatedPrefix + g.Name
	}
	return groupDeactivatedPrefix + g.Name + "_" + g.SessionID
}

// ClassifyRuleName translates a generated rule name into a tagged match.
// Only system group names with a known structural prefix, and start rules from
// any other group, are recognized.
func ClassifyRuleName(group, ruleName string) (*MatchEvent, bool) {
	if group != SystemGroup {
		if strings.HasPrefix(ruleName, startOnConditionPrefix) {
			return &MatchEvent{Kind: MatchStartOnCondition, DefinitionID: strings.TrimPrefix(ruleName, startOnConditionPrefix)}, true
		}
		return nil, false
	}
	if strings.HasPrefix(ruleName, stateNodePrefix) {
		topic, ok := stateNodeTopic(ruleName)
		if !ok {
			return nil, false
		}
		return &MatchEvent{Kind: MatchStateNode, Topic: topic}, true
	}
	prefixes := []struct {
		prefix string
		kind   MatchKind
	}{
		{eventSubProcessPrefix, MatchEventSubProcess},
		{stateEventPrefix, MatchStateEvent},
		{milestonePrefix, MatchMilestone},
		{adHocCompletePrefix, MatchAdHocComplete},
		{adHocActivatePrefix, MatchAdHocActivate},
	}
	for _, candidate := range prefixes {
		if strings.HasPrefix(ruleName, candidate.prefix) {
			return &MatchEvent{Kind: candidate.kind, Topic: ruleName}, true
		}
	}
	return nil, false
}

// stateNodeTopic truncates "RuleFlowStateNode-<process>-<node>-..." after the node segment
func stateNodeTopic(ruleName string) (string, bool) {
	offset := len(stateNodePrefix)
	first := strings.IndexByte(ruleName[offset:], '-')
	if first == -1 {
		return "", false
	}
	first += offset
	second := strings.IndexByte(ruleName[first+1:], '-')
	if second == -1 {
		return "", false
	}
	return ruleName[:first+1+second], true
}
