package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	hubdomain "github.com/flowwatch/flowwatch-backend/internal/hub/domain"
	"github.com/flowwatch/flowwatch-backend/internal/monitor/domain"
)

// HubReader is the slice of the hub API the classifier consumes.
type HubReader interface {
	ListFlows(ctx context.Context, filter hubdomain.FlowFilter) ([]hubdomain.Flow, error)
	ListLogicVariables(ctx context.Context) ([]hubdomain.LogicVariable, error)
}

// Classifier turns the hub's raw flow and logic-variable listings into one
// problem-item set per category. Every pass is a full re-scan; it keeps no
// state between passes.
type Classifier struct {
	hub HubReader
	log zerolog.Logger
}

func New(hub HubReader, log zerolog.Logger) *Classifier {
	return &Classifier{
		hub: hub,
		log: log.With().Str("component", "classifier").Logger(),
	}
}

// Classify computes the current problem set for every category. Any hub API
// failure aborts the whole pass; the caller must not touch any snapshot in
// that case.
func (c *Classifier) Classify(ctx context.Context) (map[domain.Category][]domain.ProblemItem, error) {
	broken, err := c.hub.ListFlows(ctx, hubdomain.FlowFilter{Broken: hubdomain.BoolPtr(true)})
	if err != nil {
		return nil, fmt.Errorf("classify broken: %w", err)
	}

	disabled, err := c.hub.ListFlows(ctx, hubdomain.FlowFilter{Enabled: hubdomain.BoolPtr(false)})
	if err != nil {
		return nil, fmt.Errorf("classify disabled: %w", err)
	}

	flows, err := c.hub.ListFlows(ctx, hubdomain.FlowFilter{})
	if err != nil {
		return nil, fmt.Errorf("list flows: %w", err)
	}

	vars, err := c.hub.ListLogicVariables(ctx)
	if err != nil {
		return nil, fmt.Errorf("list logic variables: %w", err)
	}

	varIDs := make(map[string]struct{}, len(vars))
	for _, v := range vars {
		varIDs[v.ID] = struct{}{}
	}

	results := map[domain.Category][]domain.ProblemItem{
		domain.CategoryBroken:         flowItems(broken),
		domain.CategoryDisabled:       flowItems(disabled),
		domain.CategoryBrokenVariable: c.classifyDanglingLogic(flows, varIDs),
		domain.CategoryUnusedFlows:    c.classifyUnusedFlows(flows),
		domain.CategoryUnusedLogic:    c.classifyUnusedLogic(flows, vars),
	}

	for cat, items := range results {
		c.log.Debug().Str("category", string(cat)).Int("count", len(items)).Msg("classified")
	}
	return results, nil
}

// classifyDanglingLogic finds flows that are enabled and not broken but
// reference at least one logic-variable id absent from the current variable
// set.
func (c *Classifier) classifyDanglingLogic(flows []hubdomain.Flow, varIDs map[string]struct{}) []domain.ProblemItem {
	var items []domain.ProblemItem
	for _, f := range flows {
		if f.Broken || !f.Enabled {
			continue
		}
		if hasDanglingReference(f, varIDs) {
			items = append(items, domain.ProblemItem{Name: f.Name, ID: f.ID})
		}
	}
	return items
}

// classifyUnusedFlows finds flows that can only be started programmatically
// and that no other flow's actions start.
func (c *Classifier) classifyUnusedFlows(flows []hubdomain.Flow) []domain.ProblemItem {
	started := make(map[string]struct{})
	for _, f := range flows {
		for _, a := range f.Actions {
			if a.URI != hubdomain.FlowCapabilityURI {
				continue
			}
			if id, ok := argID(a.Args, "flow"); ok {
				started[id] = struct{}{}
			}
		}
	}

	var items []domain.ProblemItem
	for _, f := range flows {
		if f.Trigger.URI != hubdomain.FlowCapabilityURI || f.Trigger.ID != hubdomain.ProgrammaticTriggerID {
			continue
		}
		if _, ok := started[f.ID]; !ok {
			items = append(items, domain.ProblemItem{Name: f.Name, ID: f.ID})
		}
	}
	return items
}

// classifyUnusedLogic finds logic variables referenced by no flow at all.
func (c *Classifier) classifyUnusedLogic(flows []hubdomain.Flow, vars []hubdomain.LogicVariable) []domain.ProblemItem {
	referenced := make(map[string]struct{})
	for _, f := range flows {
		for _, id := range logicReferences(f) {
			referenced[id] = struct{}{}
		}
	}

	var items []domain.ProblemItem
	for _, v := range vars {
		if _, ok := referenced[v.ID]; !ok {
			items = append(items, domain.ProblemItem{Name: v.Name, ID: v.ID})
		}
	}
	return items
}

// hasDanglingReference reports whether any logic reference in the flow
// points at a variable id missing from varIDs.
func hasDanglingReference(f hubdomain.Flow, varIDs map[string]struct{}) bool {
	for _, id := range logicReferences(f) {
		if _, ok := varIDs[id]; !ok {
			return true
		}
	}
	return false
}

// logicReferences extracts every logic-variable id a flow refers to: the
// trigger's variable argument when the trigger is bound to the logic
// capability, condition drop-tokens, and [[<id>]] tokens embedded in action
// argument strings.
func logicReferences(f hubdomain.Flow) []string {
	var ids []string

	if f.Trigger.URI == hubdomain.LogicCapabilityURI {
		if id, ok := argID(f.Trigger.Args, "variable"); ok {
			ids = append(ids, id)
		}
	}

	for _, cond := range f.Conditions {
		if rest, ok := strings.CutPrefix(cond.DropToken, hubdomain.LogicCapabilityURI+"|"); ok && rest != "" {
			ids = append(ids, rest)
		}
	}

	for _, a := range f.Actions {
		for _, arg := range a.Args {
			s, ok := arg.(string)
			if !ok {
				continue
			}
			tok, ok := extractTokenID(s)
			if !ok {
				continue
			}
			// Capability-prefixed tokens reference logic only when the
			// prefix is the logic capability; bare tokens are logic ids.
			if capURI, id, found := strings.Cut(tok, "|"); found {
				if capURI == hubdomain.LogicCapabilityURI && id != "" {
					ids = append(ids, id)
				}
				continue
			}
			ids = append(ids, tok)
		}
	}

	return ids
}

// extractTokenID pulls the id out of an embedded reference token, taking
// everything between the first "[[" and the last "]]" in the string.
func extractTokenID(s string) (string, bool) {
	start := strings.Index(s, "[[")
	end := strings.LastIndex(s, "]]")
	if start < 0 || end < 0 || end <= start+2 {
		return "", false
	}
	return s[start+2 : end], true
}

// argID reads a `{key: {"id": "..."}}` card argument.
func argID(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	m, ok := v.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := m["id"].(string)
	return id, ok && id != ""
}

func flowItems(flows []hubdomain.Flow) []domain.ProblemItem {
	items := make([]domain.ProblemItem, 0, len(flows))
	for _, f := range flows {
		items = append(items, domain.ProblemItem{Name: f.Name, ID: f.ID})
	}
	return items
}
