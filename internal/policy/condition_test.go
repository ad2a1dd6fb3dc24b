package policy

import (
	"testing"

	"github.com/joshsymonds/inboxsteward/internal/mailbox"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name    string
		kind    ConditionKind
		value   string
		wantErr bool
	}{
		{"sender", KindSenderMatches, "news@example.com", false},
		{"subject", KindSubjectContains, "unsubscribe", false},
		{"age", KindOlderThanDays, "30", false},
		{"age-trims-space", KindOlderThanDays, " 30 ", false},
		{"age-garbage", KindOlderThanDays, "soon", true},
		{"size", KindLargerThanMB, "2.5", false},
		{"size-garbage", KindLargerThanMB, "big", true},
		{"unread", KindIsUnread, "true", false},
		{"unread-mixed-case", KindIsUnread, "TRUE", false},
		{"unread-garbage", KindIsUnread, "yes", true},
		{"unknown-kind", ConditionKind("quantum_flux"), "x", true},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			cond, err := ParseCondition(tc.kind, tc.value)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %s=%q", tc.kind, tc.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if cond.Kind() != tc.kind {
				t.Fatalf("kind = %q, want %q", cond.Kind(), tc.kind)
			}
		})
	}
}

func TestParseConditionLenientFailsClosed(t *testing.T) {
	cond := ParseConditionLenient(KindOlderThanDays, "not-a-number")

	ancient := testMsg(func(m *mailbox.Message) { m.Date = testNow.AddDate(-10, 0, 0) })
	if cond.Matches(ancient, testNow) {
		t.Fatal("malformed condition must never match")
	}
	if cond.Kind() != KindOlderThanDays || cond.Value() != "not-a-number" {
		t.Fatalf("lenient condition should preserve wire form, got %s=%q", cond.Kind(), cond.Value())
	}
}

func TestNumericConditionsAreStrict(t *testing.T) {
	age, err := ParseCondition(KindOlderThanDays, "30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	exactly := testMsg(func(m *mailbox.Message) { m.Date = testNow.AddDate(0, 0, -30) })
	if age.Matches(exactly, testNow) {
		t.Fatal("age equal to the bound must not match")
	}
	older := testMsg(func(m *mailbox.Message) { m.Date = testNow.AddDate(0, 0, -31) })
	if !age.Matches(older, testNow) {
		t.Fatal("older message should match")
	}

	size := LargerThanMB{MB: 1}
	atBound := testMsg(func(m *mailbox.Message) { m.SizeBytes = 1024 * 1024 })
	if size.Matches(atBound, testNow) {
		t.Fatal("size equal to the bound must not match")
	}
	over := testMsg(func(m *mailbox.Message) { m.SizeBytes = 1024*1024 + 1 })
	if !size.Matches(over, testNow) {
		t.Fatal("larger message should match")
	}
}

func TestSenderMatchesAddressOrDomain(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		from    string
		want    bool
	}{
		{"exact address", "deals@shop.example.com", "deals@shop.example.com", true},
		{"exact address case-insensitive", "Deals@Shop.Example.Com", "deals@shop.example.com", true},
		{"address mismatch", "other@shop.example.com", "deals@shop.example.com", false},
		{"domain", "shop.example.com", "deals@shop.example.com", true},
		{"domain mismatch", "example.org", "deals@shop.example.com", false},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			cond := SenderMatches{Pattern: tc.pattern}
			msg := testMsg(func(m *mailbox.Message) {
				m.From = mailbox.Address{Address: tc.from}
			})
			if got := cond.Matches(msg, testNow); got != tc.want {
				t.Fatalf("pattern %q vs %q = %v, want %v", tc.pattern, tc.from, got, tc.want)
			}
		})
	}
}
