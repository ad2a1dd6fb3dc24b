package gmailctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/policy"
)

// Translation is the result of converting a filter export: the rules that
// could be expressed, plus the filters that could not and why.
type Translation struct {
	CleanupRules  []policy.Rule
	LabelingRules []policy.LabelingRule
	Skipped       []SkippedFilter
}

// SkippedFilter names a filter the translator could not express.
type SkippedFilter struct {
	Name   string
	Reason string
}

// Translate converts exported Gmail filters into policy rules. Filters
// combining trash or archive with other mutations become a single cleanup
// rule carrying the strongest action; pure labeling filters become labeling
// rules. Raw query criteria and forwards have no rule equivalent and are
// skipped.
func Translate(export Export, now time.Time) Translation {
	labelNames := make(map[string]string, len(export.Labels))
	for _, l := range export.Labels {
		labelNames[l.ID] = l.Name
	}

	var tr Translation
	for i, f := range export.Filters {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("gmailctl filter %d", i+1)
		}
		if f.Criteria.Query != "" {
			tr.Skipped = append(tr.Skipped, SkippedFilter{Name: name, Reason: "raw query criteria"})
			continue
		}
		if f.Action.Forward != "" {
			tr.Skipped = append(tr.Skipped, SkippedFilter{Name: name, Reason: "forwarding action"})
			continue
		}

		conds := criteriaConditions(f.Criteria)
		if len(conds) == 0 {
			tr.Skipped = append(tr.Skipped, SkippedFilter{Name: name, Reason: "no translatable criteria"})
			continue
		}

		action, userLabels := strongestAction(f.Action, labelNames)
		switch {
		case action != nil:
			b := policy.NewRuleBuilder().WithName(name).Action(*action)
			for _, c := range conds {
				b.Condition(c)
			}
			rule, err := b.Build()
			if err != nil {
				tr.Skipped = append(tr.Skipped, SkippedFilter{Name: name, Reason: err.Error()})
				continue
			}
			tr.CleanupRules = append(tr.CleanupRules, rule)
		case len(userLabels) > 0:
			for _, label := range userLabels {
				tr.LabelingRules = append(tr.LabelingRules, policy.LabelingRule{
					ID:         fmt.Sprintf("gmailctl_%d", i+1),
					Name:       name,
					Label:      label,
					Conditions: conds,
					Enabled:    true,
				})
			}
		default:
			tr.Skipped = append(tr.Skipped, SkippedFilter{Name: name, Reason: "no translatable action"})
		}
	}
	return tr
}

func criteriaConditions(c FilterCriteria) []policy.Condition {
	var conds []policy.Condition
	if c.From != "" {
		conds = append(conds, policy.SenderMatches{Pattern: strings.TrimSpace(c.From)})
	}
	if c.List != "" {
		// List-Id senders are matched by domain.
		conds = append(conds, policy.SenderMatches{Pattern: listDomain(c.List)})
	}
	if c.Subject != "" {
		conds = append(conds, policy.SubjectContains{Text: strings.TrimSpace(c.Subject)})
	}
	return conds
}

// strongestAction picks the cleanup action a filter maps to, trash beating
// archive beating mark-read. Filters that only add user labels return the
// label names instead.
func strongestAction(a FilterAction, labelNames map[string]string) (*policy.Action, []string) {
	addTrash := false
	removeInbox := false
	removeUnread := false
	var userLabels []string

	for _, id := range a.AddLabelIDs {
		switch id {
		case "TRASH":
			addTrash = true
		default:
			name := labelNames[id]
			if name == "" {
				name = id
			}
			userLabels = append(userLabels, name)
		}
	}
	for _, id := range a.RemoveLabelIDs {
		switch id {
		case "INBOX":
			removeInbox = true
		case "UNREAD":
			removeUnread = true
		}
	}

	switch {
	case addTrash:
		return &policy.Action{Kind: policy.ActionDelete}, nil
	case removeInbox:
		return &policy.Action{Kind: policy.ActionArchive}, nil
	case removeUnread:
		return &policy.Action{Kind: policy.ActionMarkRead}, nil
	}
	return nil, userLabels
}

// listDomain extracts a sender domain from a List-Id value like
// <news.example.com>: the list name is stripped when what remains is still
// a plausible domain.
func listDomain(list string) string {
	list = strings.Trim(list, "<>")
	parts := strings.SplitN(list, ".", 2)
	if len(parts) == 2 && strings.Contains(parts[1], ".") {
		return parts[1]
	}
	return list
}
