package policyfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
	"github.com/joshsymonds/inboxsteward/internal/policy"
)

var now = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestParseStructuredRules(t *testing.T) {
	doc := `
id: newsletter_sweep
user_id: josh@example.com
name: Newsletter Sweep
old_threshold_days: 45
rules:
  - name: Archive stale newsletters
    action: archive
    priority: 150
    conditions:
      - kind: sender_matches
        value: newsletters.example.com
      - kind: older_than_days
        value: "14"
labeling_rules:
  - label: Receipts
    conditions:
      - kind: subject_contains
        value: receipt
retention:
  default_retention_days: 365
  rules:
    - kind: category_is
      value: promotions
      retention_days: 30
`
	p, err := Parse([]byte(doc), now)
	require.NoError(t, err)

	assert.Equal(t, "newsletter_sweep", p.ID)
	assert.Equal(t, "josh@example.com", p.UserID)
	assert.Equal(t, 45, p.OldThresholdDays)
	assert.True(t, p.Enabled)
	assert.Equal(t, now, p.CreatedAt)

	require.Len(t, p.CleanupRules, 1)
	rule := p.CleanupRules[0]
	assert.Equal(t, "Archive stale newsletters", rule.Name)
	assert.Equal(t, policy.ActionArchive, rule.Action.Kind)
	assert.Equal(t, 150, rule.Priority)
	require.Len(t, rule.Conditions, 2)

	require.Len(t, p.LabelingRules, 1)
	assert.Equal(t, "Receipts", p.LabelingRules[0].Label)
	assert.Equal(t, "Label Receipts", p.LabelingRules[0].Name)

	require.NotNil(t, p.Retention)
	assert.Equal(t, 365, p.Retention.DefaultRetentionDays)
	require.Len(t, p.Retention.Rules, 1)
	assert.Equal(t, 30, p.Retention.Rules[0].RetentionDays)
}

func TestParseLegacyFlatRule(t *testing.T) {
	doc := `
user_id: josh@example.com
rules:
  - name: Old promos
    category: Promotions
    older_than_days: 60
    action: ARCHIVE
`
	p, err := Parse([]byte(doc), now)
	require.NoError(t, err)
	require.Len(t, p.CleanupRules, 1)

	rule := p.CleanupRules[0]
	assert.Equal(t, policy.ActionArchive, rule.Action.Kind)
	require.Len(t, rule.Conditions, 2)

	// the parsed rule actually matches what it claims to
	msg := &mailbox.Message{
		Category: mailbox.CategoryPromotions,
		Date:     now.AddDate(0, 0, -90),
	}
	assert.True(t, rule.Matches(msg, now))
}

func TestParseDefaults(t *testing.T) {
	p, err := Parse([]byte(`user_id: josh@example.com`), now)
	require.NoError(t, err)

	assert.True(t, p.Enabled)
	assert.Equal(t, "Policy File", p.Name)
	assert.Equal(t, 30, p.OldThresholdDays)
	require.NotEmpty(t, p.ID)
	assert.Len(t, p.ID, len("policy_")+8)
}

func TestParseDisabledAndDryRun(t *testing.T) {
	doc := `
user_id: josh@example.com
dry_run: true
disabled: true
`
	p, err := Parse([]byte(doc), now)
	require.NoError(t, err)
	assert.True(t, p.DryRun)
	assert.False(t, p.Enabled)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"unknown action",
			"rules:\n  - action: obliterate\n    conditions:\n      - kind: is_unread\n",
		},
		{
			"bad condition value",
			"rules:\n  - action: archive\n    conditions:\n      - kind: older_than_days\n        value: soon\n",
		},
		{
			"unknown condition kind",
			"rules:\n  - action: archive\n    conditions:\n      - kind: phase_of_moon\n",
		},
		{
			"legacy rule without conditions",
			"rules:\n  - action: archive\n",
		},
		{
			"labeling rule missing label",
			"labeling_rules:\n  - conditions:\n      - kind: is_unread\n",
		},
		{
			"labeling rule missing conditions",
			"labeling_rules:\n  - label: Foo\n",
		},
		{
			"retention without default days",
			"retention:\n  rules:\n    - kind: category_is\n      value: promotions\n      retention_days: 30\n",
		},
		{
			"retention override with non-positive days",
			"retention:\n  default_retention_days: 365\n  rules:\n    - kind: category_is\n      value: promotions\n      retention_days: 0\n",
		},
		{
			"not yaml",
			"{{{",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), now)
			assert.Error(t, err)
		})
	}
}

func TestLoadReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("user_id: josh@example.com\nname: From Disk\n"), 0o644))

	p, err := Load(path, now)
	require.NoError(t, err)
	assert.Equal(t, "From Disk", p.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), now)
	assert.Error(t, err)
}
