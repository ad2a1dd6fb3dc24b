package policy

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

func TestRuleBuilderValidation(t *testing.T) {
	if _, err := NewRuleBuilder().Archive().Build(); !errors.Is(err, ErrNoConditions) {
		t.Fatalf("expected ErrNoConditions, got %v", err)
	}
	if _, err := NewRuleBuilder().Category(mailbox.CategoryPromotions).Build(); !errors.Is(err, ErrNoAction) {
		t.Fatalf("expected ErrNoAction, got %v", err)
	}
}

func TestRuleBuilderGeneratesNameFromPrimaryCondition(t *testing.T) {
	tests := []struct {
		name  string
		build func() (Rule, error)
		want  string
	}{
		{
			name: "category",
			build: func() (Rule, error) {
				return NewRuleBuilder().Category(mailbox.CategoryPromotions).Archive().Build()
			},
			want: "Archive - Category: promotions",
		},
		{
			name: "age",
			build: func() (Rule, error) {
				return NewRuleBuilder().OlderThanDays(90).Delete().Build()
			},
			want: "Delete - Older than 90 days",
		},
		{
			name: "sender",
			build: func() (Rule, error) {
				return NewRuleBuilder().SenderMatches("spam.example.com").MarkRead().Build()
			},
			want: "Mark Read - From: spam.example.com",
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			rule, err := tc.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if rule.Name != tc.want {
				t.Fatalf("name = %q, want %q", rule.Name, tc.want)
			}
			if rule.ID == "" || len(rule.ID) != 8 {
				t.Fatalf("unexpected id %q", rule.ID)
			}
		})
	}
}

func TestRuleBuilderKeepsAllConditions(t *testing.T) {
	rule := mustRule(t, NewRuleBuilder().
		Category(mailbox.CategoryPromotions).
		OlderThanDays(30).
		Archive())

	if len(rule.Conditions) != 2 {
		t.Fatalf("expected both conditions kept, got %d", len(rule.Conditions))
	}

	// young promotional message satisfies only one condition
	young := testMsg(func(m *mailbox.Message) { m.Date = testNow.AddDate(0, 0, -5) })
	if rule.Matches(young, testNow) {
		t.Fatal("rule must AND its conditions")
	}
	if !rule.Matches(testMsg(nil), testNow) {
		t.Fatal("rule should match when every condition holds")
	}
}

func TestRuleBuilderGeneratedDescription(t *testing.T) {
	rule := mustRule(t, NewRuleBuilder().
		Category(mailbox.CategoryPromotions).
		OlderThanDays(30).
		Archive())

	want := "Automatically archive messages in promotions category and older than 30 days"
	if rule.Description != want {
		t.Fatalf("description = %q, want %q", rule.Description, want)
	}
}

func TestConvenienceRules(t *testing.T) {
	archPromo, err := ArchiveOldPromotions(30)
	if err != nil {
		t.Fatalf("ArchiveOldPromotions: %v", err)
	}
	if archPromo.Action.Kind != ActionArchive || !strings.Contains(archPromo.Name, "30+") {
		t.Fatalf("unexpected rule: %+v", archPromo)
	}

	del, err := DeleteVeryOld(365)
	if err != nil {
		t.Fatalf("DeleteVeryOld: %v", err)
	}
	if del.Priority != 200 {
		t.Fatalf("DeleteVeryOld should run after narrower rules, priority = %d", del.Priority)
	}

	label, err := LabelNewsletters("Newsletters")
	if err != nil {
		t.Fatalf("LabelNewsletters: %v", err)
	}
	if label.Action.Kind != ActionApplyLabel || label.Action.Label != "Newsletters" {
		t.Fatalf("unexpected action: %+v", label.Action)
	}
}

func TestTranslateLegacyRule(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		in      LegacyRule
		wantErr bool
		check   func(t *testing.T, r Rule)
	}{
		{
			name: "flat archive payload",
			in: LegacyRule{
				Name:          "old promos",
				Category:      "Promotions",
				OlderThanDays: 30,
				Action:        "archive",
				Priority:      50,
			},
			check: func(t *testing.T, r Rule) {
				if len(r.Conditions) != 2 {
					t.Fatalf("expected 2 conditions, got %d", len(r.Conditions))
				}
				if r.Action.Kind != ActionArchive || r.Priority != 50 || r.Name != "old promos" {
					t.Fatalf("unexpected rule: %+v", r)
				}
			},
		},
		{
			name: "apply label carries action label",
			in: LegacyRule{
				SenderDomain: "news.example.com",
				Action:       "APPLY_LABEL",
				ActionLabel:  "Newsletters",
			},
			check: func(t *testing.T, r Rule) {
				if r.Action.Kind != ActionApplyLabel || r.Action.Label != "Newsletters" {
					t.Fatalf("unexpected action: %+v", r.Action)
				}
			},
		},
		{
			name: "disabled stays disabled",
			in: LegacyRule{
				Sender:   "noreply@example.com",
				Action:   "delete",
				Disabled: true,
			},
			check: func(t *testing.T, r Rule) {
				if r.Enabled {
					t.Fatal("rule should be disabled")
				}
				if r.Matches(testMsg(nil), testNow) {
					t.Fatal("disabled rule must not match")
				}
			},
		},
		{
			name:    "unknown action",
			in:      LegacyRule{Sender: "a@b.c", Action: "explode"},
			wantErr: true,
		},
		{
			name:    "no conditions",
			in:      LegacyRule{Action: "archive"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			rule, err := TranslateLegacyRule(tc.in, now)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("translate: %v", err)
			}
			if rule.CreatedAt != now {
				t.Fatalf("created at = %v, want %v", rule.CreatedAt, now)
			}
			tc.check(t, rule)
		})
	}
}
