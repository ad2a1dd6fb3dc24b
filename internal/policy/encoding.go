package policy

import (
	"encoding/json"
	"fmt"
	"time"
)

// conditionDoc is the wire form of a condition: its kind plus the string
// payload Value() reported. Decoding is lenient so a stored rule with a
// malformed payload deactivates instead of failing the whole policy load.
type conditionDoc struct {
	Kind  ConditionKind `json:"kind"`
	Value string        `json:"value,omitempty"`
}

func encodeConditions(conds []Condition) []conditionDoc {
	if len(conds) == 0 {
		return nil
	}
	docs := make([]conditionDoc, 0, len(conds))
	for _, c := range conds {
		docs = append(docs, conditionDoc{Kind: c.Kind(), Value: c.Value()})
	}
	return docs
}

func decodeConditions(docs []conditionDoc) []Condition {
	if len(docs) == 0 {
		return nil
	}
	conds := make([]Condition, 0, len(docs))
	for _, d := range docs {
		conds = append(conds, ParseConditionLenient(d.Kind, d.Value))
	}
	return conds
}

type ruleDoc struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Conditions  []conditionDoc `json:"conditions"`
	Action      Action         `json:"action"`
	Enabled     bool           `json:"enabled"`
	Priority    int            `json:"priority"`
	CreatedAt   time.Time      `json:"created_at"`
}

// MarshalJSON encodes the rule with its conditions in wire form.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleDoc{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Conditions:  encodeConditions(r.Conditions),
		Action:      r.Action,
		Enabled:     r.Enabled,
		Priority:    r.Priority,
		CreatedAt:   r.CreatedAt,
	})
}

// UnmarshalJSON decodes a rule, rebuilding typed conditions.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var doc ruleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode rule: %w", err)
	}
	*r = Rule{
		ID:          doc.ID,
		Name:        doc.Name,
		Description: doc.Description,
		Conditions:  decodeConditions(doc.Conditions),
		Action:      doc.Action,
		Enabled:     doc.Enabled,
		Priority:    doc.Priority,
		CreatedAt:   doc.CreatedAt,
	}
	return nil
}

type labelingRuleDoc struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Label      string         `json:"label"`
	Conditions []conditionDoc `json:"conditions"`
	Enabled    bool           `json:"enabled"`
}

// MarshalJSON encodes the labeling rule with its conditions in wire form.
func (r LabelingRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(labelingRuleDoc{
		ID:         r.ID,
		Name:       r.Name,
		Label:      r.Label,
		Conditions: encodeConditions(r.Conditions),
		Enabled:    r.Enabled,
	})
}

// UnmarshalJSON decodes a labeling rule, rebuilding typed conditions.
func (r *LabelingRule) UnmarshalJSON(data []byte) error {
	var doc labelingRuleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode labeling rule: %w", err)
	}
	*r = LabelingRule{
		ID:         doc.ID,
		Name:       doc.Name,
		Label:      doc.Label,
		Conditions: decodeConditions(doc.Conditions),
		Enabled:    doc.Enabled,
	}
	return nil
}

type retentionRuleDoc struct {
	Condition     conditionDoc `json:"condition"`
	RetentionDays int          `json:"retention_days"`
}

// MarshalJSON encodes the retention rule with its condition in wire form.
func (r RetentionRule) MarshalJSON() ([]byte, error) {
	doc := retentionRuleDoc{RetentionDays: r.RetentionDays}
	if r.Condition != nil {
		doc.Condition = conditionDoc{Kind: r.Condition.Kind(), Value: r.Condition.Value()}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a retention rule, rebuilding its typed condition.
func (r *RetentionRule) UnmarshalJSON(data []byte) error {
	var doc retentionRuleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode retention rule: %w", err)
	}
	*r = RetentionRule{
		Condition:     ParseConditionLenient(doc.Condition.Kind, doc.Condition.Value),
		RetentionDays: doc.RetentionDays,
	}
	return nil
}
