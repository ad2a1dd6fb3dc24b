package policy

import "strings"

// ActionKind identifies a cleanup action.
type ActionKind string

const (
	ActionDelete      ActionKind = "delete"    // move to trash
	ActionArchive     ActionKind = "archive"   // remove from inbox
	ActionMarkRead    ActionKind = "mark_read" // clear UNREAD
	ActionMarkUnread  ActionKind = "mark_unread"
	ActionStar        ActionKind = "star"
	ActionUnstar      ActionKind = "unstar"
	ActionApplyLabel  ActionKind = "apply_label"
	ActionRemoveLabel ActionKind = "remove_label"
	ActionSkip        ActionKind = "skip" // no-op
)

// Action pairs an action kind with its parameters. Label is only meaningful
// for apply_label and remove_label.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Label string     `json:"label,omitempty"`
}

// Terminal reports whether the action stops cleanup-rule evaluation once
// matched: a message that is being deleted or archived is not inspected by
// lower-priority cleanup rules.
func (a Action) Terminal() bool {
	return a.Kind == ActionDelete || a.Kind == ActionArchive
}

// DisplayName renders the kind for generated rule names ("Mark Read").
func (a Action) DisplayName() string {
	parts := strings.Split(string(a.Kind), "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// ValidActionKind reports whether the wire value names a known action.
func ValidActionKind(kind ActionKind) bool {
	switch kind {
	case ActionDelete, ActionArchive, ActionMarkRead, ActionMarkUnread,
		ActionStar, ActionUnstar, ActionApplyLabel, ActionRemoveLabel, ActionSkip:
		return true
	}
	return false
}
