package procflow

import (
	"context"
	"fmt"

	"github.com/viant/procflow/runtime/host"
)

// OnMatchCreated handles a match reported by the host engine. Structural
// matches raise their signal when the current operation ends; start on
// condition matches start the definition right away.
func (r *Runtime) OnMatchCreated(ctx context.Context, match *host.MatchEvent) error {
	if match == nil {
		return nil
	}
	switch {
	case match.Kind.Signals():
		topic, payload := match.Topic, match.Payload
		return r.runOperation(ctx, "matchCreated", map[string]string{"topic": topic}, func(ctx context.Context) error {
			engine := r.currentEngine()
			if engine == nil {
				return ErrDisposed
			}
			engine.Queue(ctx, func(ctx context.Context) error {
				return r.signals.SignalEvent(ctx, topic, payload)
			})
			return nil
		})
	case match.Kind == host.MatchStartOnCondition:
		if match.DefinitionID == "" {
			return fmt.Errorf("start on condition match without definition")
		}
		_, err := r.StartProcessWithTrigger(ctx, match.DefinitionID, nil, TriggerConditional)
		return err
	}
	return nil
}

// OnRuleMatch classifies a generated rule name and handles the resulting match.
// Names without a recognized prefix are ignored.
func (r *Runtime) OnRuleMatch(ctx context.Context, group, ruleName string, payload interface{}) error {
	match, ok := host.ClassifyRuleName(group, ruleName)
	if !ok {
		return nil
	}
	match.Payload = payload
	return r.OnMatchCreated(ctx, match)
}

// OnGroupDeactivated signals the deactivation of a rule group
func (r *Runtime) OnGroupDeactivated(ctx context.Context, group *host.GroupEvent) error {
	if group == nil {
		return nil
	}
	return r.SignalEvent(ctx, group.Topic(), nil)
}
