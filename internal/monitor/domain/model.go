package domain

// Category is one monitored problem class. Each category owns one snapshot,
// one "became problem" trigger and one "fixed" trigger.
type Category string

const (
	CategoryBroken         Category = "BROKEN"
	CategoryDisabled       Category = "DISABLED"
	CategoryBrokenVariable Category = "BROKEN_VARIABLE"
	CategoryUnusedFlows    Category = "UNUSED_FLOWS"
	CategoryUnusedLogic    Category = "UNUSED_LOGIC"
)

// Trigger kinds fired on the hub.
const (
	TriggerBroken         = "trigger_BROKEN"
	TriggerBrokenVariable = "trigger_BROKEN_VARIABLE"
	TriggerDisabled       = "trigger_DISABLED"
	TriggerFixed          = "trigger_FIXED"
	TriggerFixedLogic     = "trigger_FIXED_LOGIC"
	TriggerUnusedFlows    = "trigger_UNUSED_FLOWS"
	TriggerUnusedLogic    = "trigger_UNUSED_LOGIC"
)

// MinIntervalMinutes is the lowest accepted check period. Requests below it
// are clamped, not rejected.
const MinIntervalMinutes = 3

// Categories returns all monitored categories in a stable order.
func Categories() []Category {
	return []Category{
		CategoryBroken,
		CategoryDisabled,
		CategoryBrokenVariable,
		CategoryUnusedFlows,
		CategoryUnusedLogic,
	}
}

// ParseCategory validates a category name coming in over the API.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", ErrUnknownCategory
}

// ProblemTrigger returns the trigger kind fired when an item enters this
// category.
func (c Category) ProblemTrigger() string {
	switch c {
	case CategoryBroken:
		return TriggerBroken
	case CategoryDisabled:
		return TriggerDisabled
	case CategoryBrokenVariable:
		return TriggerBrokenVariable
	case CategoryUnusedFlows:
		return TriggerUnusedFlows
	case CategoryUnusedLogic:
		return TriggerUnusedLogic
	}
	return ""
}

// FixedTrigger returns the trigger kind fired when an item leaves this
// category. Logic-variable categories get their own variant.
func (c Category) FixedTrigger() string {
	if c.IsLogic() {
		return TriggerFixedLogic
	}
	return TriggerFixed
}

// IsLogic reports whether this category tracks logic variables rather than
// flows.
func (c Category) IsLogic() bool {
	return c == CategoryUnusedLogic
}

// TokenName is the payload token key carrying the item name: "flow" for
// flow categories, "logic" for logic-variable categories.
func (c Category) TokenName() string {
	if c.IsLogic() {
		return "logic"
	}
	return "flow"
}

// TypeLabel is the human-readable item type used in notification excerpts.
func (c Category) TypeLabel() string {
	if c.IsLogic() {
		return "Logic"
	}
	return "Flow"
}

// ProblemItem identifies one flow or logic variable currently in a problem
// category. Ids are unique within a snapshot; the diff engine compares
// whole items.
type ProblemItem struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Event is one state change decided by the diff engine, ready for dispatch.
type Event struct {
	Category Category    `json:"category"`
	Kind     string      `json:"kind"`
	Item     ProblemItem `json:"item"`
}

// ClampInterval applies the minimum check period.
func ClampInterval(minutes int) int {
	if minutes < MinIntervalMinutes {
		return MinIntervalMinutes
	}
	return minutes
}
