package registry

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"goldwatch/internal/pricing"
)

func TestUpsertRejectsInvertedThresholds(t *testing.T) {
	r := New()
	_, err := r.Upsert(Request{Identity: "a@x.com", Lower: 2100, Upper: 1900})
	if err == nil {
		t.Fatal("lower >= upper must be rejected")
	}
	var verr *pricing.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *pricing.ValidationError, got %T", err)
	}
	if r.Len() != 0 {
		t.Fatal("rejected registration must not be stored")
	}
}

func TestUpsertRejectsMissingIdentity(t *testing.T) {
	r := New()
	if _, err := r.Upsert(Request{Identity: "  ", Lower: 1, Upper: 2}); err == nil {
		t.Fatal("blank identity must be rejected")
	}
}

func TestUpsertNormalizesDefaults(t *testing.T) {
	r := New()
	entry, err := r.Upsert(Request{Identity: "a@x.com", Unit: "tonne", Currency: "GBP", Purity: 19, Lower: 30, Upper: 40})
	if err != nil {
		t.Fatalf("valid registration rejected: %v", err)
	}

	sub := entry.View()
	if sub.Unit != pricing.UnitOunce {
		t.Fatalf("unit should default to ounce, got %s", sub.Unit)
	}
	if sub.Currency != pricing.CurrencyUSD {
		t.Fatalf("currency should default to USD, got %s", sub.Currency)
	}
	if sub.Purity != 24 {
		t.Fatalf("purity should default to 24, got %d", sub.Purity)
	}
	if sub.LastStatus != pricing.StatusUnset {
		t.Fatalf("new subscription must start unset, got %q", sub.LastStatus)
	}
}

func TestUpsertOverwritesAndResetsStatus(t *testing.T) {
	r := New()
	entry, err := r.Upsert(Request{Identity: "a@x.com", Unit: "gram", Currency: "JOD", Purity: 21, Lower: 30, Upper: 40})
	if err != nil {
		t.Fatal(err)
	}

	entry.Do(func(s *Subscription) {
		s.LastStatus = pricing.StatusAbove
	})

	again, err := r.Upsert(Request{Identity: "a@x.com", Unit: "gram", Currency: "JOD", Purity: 21, Lower: 35, Upper: 45})
	if err != nil {
		t.Fatal(err)
	}
	if again != entry {
		t.Fatal("re-registration should reuse the same live entry")
	}
	if r.Len() != 1 {
		t.Fatalf("re-registration must not grow the registry, len=%d", r.Len())
	}

	sub := entry.View()
	if sub.LastStatus != pricing.StatusUnset {
		t.Fatalf("re-registration must reset status, got %q", sub.LastStatus)
	}
	if !sub.Lower.Equal(decimal.NewFromInt(35)) || !sub.Upper.Equal(decimal.NewFromInt(45)) {
		t.Fatalf("parameters should be overwritten: %s / %s", sub.Lower, sub.Upper)
	}
}

func TestEntriesReturnsLiveEntries(t *testing.T) {
	r := New()
	if _, err := r.Upsert(Request{Identity: "a@x.com", Lower: 1, Upper: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Upsert(Request{Identity: "b@x.com", Lower: 1, Upper: 2}); err != nil {
		t.Fatal(err)
	}

	entries := r.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	entries[0].Do(func(s *Subscription) {
		s.LastStatus = pricing.StatusBelow
	})
	if got := r.Entries()[0].View().LastStatus; got != pricing.StatusBelow {
		t.Fatalf("mutation through entry should be visible, got %q", got)
	}
}
