package domain

// Capability and card URIs exposed by the hub. Flows reference logic
// variables and other flows through these URIs in their trigger, condition
// drop-tokens and action arguments.
const (
	LogicCapabilityURI = "hub:manager:logic"
	FlowCapabilityURI  = "hub:manager:flow"

	// ProgrammaticTriggerID marks a flow that can only be started by
	// another flow's action.
	ProgrammaticTriggerID = "programmatic_trigger"
)

// Flow is one automation rule as the hub reports it. Fields the hub sends
// beyond these are ignored.
type Flow struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Enabled    bool            `json:"enabled"`
	Broken     bool            `json:"broken"`
	Folder     string          `json:"folder,omitempty"`
	Trigger    FlowCard        `json:"trigger"`
	Conditions []FlowCondition `json:"conditions,omitempty"`
	Actions    []FlowCard      `json:"actions,omitempty"`
}

// FlowCard is a trigger or action card instance inside a flow.
type FlowCard struct {
	URI  string         `json:"uri,omitempty"`
	ID   string         `json:"id,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// FlowCondition is a condition card instance. DropToken, when set, has the
// form "<capability-uri>|<id>".
type FlowCondition struct {
	URI       string         `json:"uri,omitempty"`
	ID        string         `json:"id,omitempty"`
	DropToken string         `json:"droptoken,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
}

// LogicVariable is a hub-managed named value usable inside flows.
type LogicVariable struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FlowFilter narrows a flow listing. Nil fields are not applied.
type FlowFilter struct {
	Broken  *bool
	Enabled *bool
}

// BoolPtr is a convenience for building filters.
func BoolPtr(v bool) *bool { return &v }
