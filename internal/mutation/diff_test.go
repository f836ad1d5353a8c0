package mutation

import (
	"testing"
)

func TestChangeSetSkipsEqualValues(t *testing.T) {
	var cs ChangeSet
	cs.Set("name", "Basic Plan", "Basic Plan")
	cs.Set("monthly_price", 29.99, 29.99)
	if !cs.Empty() {
		t.Fatalf("expected empty change set, got %q", cs.Message())
	}
}

func TestChangeSetMessage(t *testing.T) {
	var cs ChangeSet
	cs.Set("monthly_price", 29.99, 39.99)
	cs.Set("monthly_quota_gb", 10, 20)

	got := cs.Message()
	want := "monthly_price: 29.99 -> 39.99, monthly_quota_gb: 10 -> 20"
	if got != want {
		t.Fatalf("message mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestChangeSetRendersNilPointers(t *testing.T) {
	var cs ChangeSet
	limit := 5
	cs.Set("usage_limit", (*int)(nil), &limit)

	got := cs.Message()
	want := "usage_limit: none -> 5"
	if got != want {
		t.Fatalf("message mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{29.99, "29.99"},
		{59.9, "59.9"},
		{30, "30"},
		{0, "0"},
	}
	for _, tc := range cases {
		if got := FormatPrice(tc.in); got != tc.want {
			t.Fatalf("FormatPrice(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestKindAlertTypeAndTitle(t *testing.T) {
	if got := KindPlan.AlertType(ActionCreated); string(got) != "plan_created" {
		t.Fatalf("alert type = %q", got)
	}
	if got := KindUser.Title(ActionDeleted); got != "User deleted" {
		t.Fatalf("title = %q", got)
	}
	alert := NewAlert(KindDiscount, ActionUpdated, nil, "discount_value: 10 -> 15")
	if alert.UserID != nil {
		t.Fatalf("expected system-wide alert")
	}
	if !alert.Type.Valid() {
		t.Fatalf("expected valid alert type, got %q", alert.Type)
	}
}
