package installer

// Action is the registry mutation chosen by reconciliation.
type Action string

const (
	// ActionNoop means the registry already holds an equal record.
	ActionNoop Action = "noop"
	// ActionCreate means no record exists for the key yet.
	ActionCreate Action = "create"
	// ActionReplace means a different record exists and is deleted before create.
	ActionReplace Action = "replace"
)

// String returns the action name.
func (a Action) String() string {
	return string(a)
}

// Writes reports whether the action mutates the registry.
func (a Action) Writes() bool {
	return a == ActionCreate || a == ActionReplace
}
