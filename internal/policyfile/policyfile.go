// Package policyfile loads cleanup policies from YAML documents. Rules may
// use the structured condition list or the older flat keyword form; both
// funnel through the same builder validation.
package policyfile

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/joshsymonds/inboxsteward/internal/policy"
)

// Document is the YAML policy file model.
type Document struct {
	ID          string `yaml:"id,omitempty"`
	UserID      string `yaml:"user_id,omitempty"`
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`

	AutoArchivePromotions bool `yaml:"auto_archive_promotions,omitempty"`
	AutoArchiveSocial     bool `yaml:"auto_archive_social,omitempty"`
	AutoMarkReadOld       bool `yaml:"auto_mark_read_old,omitempty"`
	OldThresholdDays      int  `yaml:"old_threshold_days,omitempty"`

	DryRun   bool `yaml:"dry_run,omitempty"`
	Disabled bool `yaml:"disabled,omitempty"`

	Rules         []RuleDoc     `yaml:"rules,omitempty"`
	LabelingRules []LabelingDoc `yaml:"labeling_rules,omitempty"`
	Retention     *RetentionDoc `yaml:"retention,omitempty"`
}

// RuleDoc is one cleanup rule. When Conditions is set the structured form
// is used; otherwise the inlined flat fields are read as a legacy payload.
type RuleDoc struct {
	policy.LegacyRule `yaml:",inline"`

	Description string         `yaml:"description,omitempty"`
	Conditions  []ConditionDoc `yaml:"conditions,omitempty"`
}

// ConditionDoc is the structured condition form: kind plus string value.
type ConditionDoc struct {
	Kind  string `yaml:"kind"`
	Value string `yaml:"value,omitempty"`
}

// LabelingDoc is one additive labeling rule.
type LabelingDoc struct {
	Name       string         `yaml:"name,omitempty"`
	Label      string         `yaml:"label"`
	Conditions []ConditionDoc `yaml:"conditions"`
	Disabled   bool           `yaml:"disabled,omitempty"`
}

// RetentionDoc configures retention windows.
type RetentionDoc struct {
	Name                 string             `yaml:"name,omitempty"`
	Description          string             `yaml:"description,omitempty"`
	DefaultRetentionDays int                `yaml:"default_retention_days"`
	Rules                []RetentionRuleDoc `yaml:"rules,omitempty"`
	Disabled             bool               `yaml:"disabled,omitempty"`
}

// RetentionRuleDoc is one retention override: a condition plus its window.
type RetentionRuleDoc struct {
	Kind          string `yaml:"kind"`
	Value         string `yaml:"value,omitempty"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads and parses a policy file.
func Load(path string, now time.Time) (*policy.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	p, err := Parse(data, now)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML policy document. Malformed conditions and unknown
// actions are load errors here, unlike stored policies where they fail
// closed: a file the user is actively editing should complain loudly.
func Parse(data []byte, now time.Time) (*policy.Policy, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	p := &policy.Policy{
		ID:                    doc.ID,
		UserID:                doc.UserID,
		Name:                  doc.Name,
		Description:           doc.Description,
		AutoArchivePromotions: doc.AutoArchivePromotions,
		AutoArchiveSocial:     doc.AutoArchiveSocial,
		AutoMarkReadOld:       doc.AutoMarkReadOld,
		OldThresholdDays:      doc.OldThresholdDays,
		DryRun:                doc.DryRun,
		Enabled:               !doc.Disabled,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if p.ID == "" {
		p.ID = "policy_" + uuid.NewString()[:8]
	}
	if p.Name == "" {
		p.Name = "Policy File"
	}
	if p.OldThresholdDays <= 0 {
		p.OldThresholdDays = 30
	}

	for i, rd := range doc.Rules {
		rule, err := buildRule(rd, now)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		p.CleanupRules = append(p.CleanupRules, rule)
	}

	for i, ld := range doc.LabelingRules {
		lr, err := buildLabelingRule(ld)
		if err != nil {
			return nil, fmt.Errorf("labeling rule %d: %w", i+1, err)
		}
		p.LabelingRules = append(p.LabelingRules, lr)
	}

	if doc.Retention != nil {
		rp, err := buildRetention(*doc.Retention)
		if err != nil {
			return nil, fmt.Errorf("retention: %w", err)
		}
		p.Retention = rp
	}

	return p, nil
}

func buildRule(rd RuleDoc, now time.Time) (policy.Rule, error) {
	if len(rd.Conditions) == 0 {
		return policy.TranslateLegacyRule(rd.LegacyRule, now)
	}

	b := policy.NewRuleBuilder()
	for _, cd := range rd.Conditions {
		cond, err := policy.ParseCondition(policy.ConditionKind(cd.Kind), cd.Value)
		if err != nil {
			return policy.Rule{}, err
		}
		b.Condition(cond)
	}

	kind := policy.ActionKind(strings.ToLower(strings.TrimSpace(rd.Action)))
	if !policy.ValidActionKind(kind) {
		return policy.Rule{}, fmt.Errorf("unknown action %q", rd.Action)
	}
	b.Action(policy.Action{Kind: kind, Label: rd.ActionLabel})

	if rd.Name != "" {
		b.WithName(rd.Name)
	}
	if rd.Description != "" {
		b.WithDescription(rd.Description)
	}
	if rd.Priority > 0 {
		b.WithPriority(rd.Priority)
	}
	b.Enabled(!rd.Disabled)
	return b.Build()
}

func buildLabelingRule(ld LabelingDoc) (policy.LabelingRule, error) {
	if ld.Label == "" {
		return policy.LabelingRule{}, fmt.Errorf("missing label")
	}
	if len(ld.Conditions) == 0 {
		return policy.LabelingRule{}, fmt.Errorf("label %q: missing conditions", ld.Label)
	}
	lr := policy.LabelingRule{
		ID:      uuid.NewString()[:8],
		Name:    ld.Name,
		Label:   ld.Label,
		Enabled: !ld.Disabled,
	}
	if lr.Name == "" {
		lr.Name = "Label " + ld.Label
	}
	for _, cd := range ld.Conditions {
		cond, err := policy.ParseCondition(policy.ConditionKind(cd.Kind), cd.Value)
		if err != nil {
			return policy.LabelingRule{}, err
		}
		lr.Conditions = append(lr.Conditions, cond)
	}
	return lr, nil
}

func buildRetention(rd RetentionDoc) (*policy.RetentionPolicy, error) {
	if rd.DefaultRetentionDays <= 0 {
		return nil, fmt.Errorf("default_retention_days must be positive")
	}
	rp := &policy.RetentionPolicy{
		ID:                   "retention_" + uuid.NewString()[:8],
		Name:                 rd.Name,
		Description:          rd.Description,
		DefaultRetentionDays: rd.DefaultRetentionDays,
		Enabled:              !rd.Disabled,
	}
	if rp.Name == "" {
		rp.Name = "Retention Policy"
	}
	for i, rr := range rd.Rules {
		cond, err := policy.ParseCondition(policy.ConditionKind(rr.Kind), rr.Value)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
		if rr.RetentionDays <= 0 {
			return nil, fmt.Errorf("rule %d: retention_days must be positive", i+1)
		}
		rp.Rules = append(rp.Rules, policy.RetentionRule{
			Condition:     cond,
			RetentionDays: rr.RetentionDays,
		})
	}
	return rp, nil
}
