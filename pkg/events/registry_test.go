package events

import "testing"

func TestSubscriptionRegistryRefcounts(t *testing.T) {
	r := NewSubscriptionRegistry()

	r.Subscribe(SubscriptionInputs | SubscriptionScenes)
	r.Subscribe(SubscriptionInputs)

	if got := r.Count(SubscriptionInputs); got != 2 {
		t.Errorf("Count(Inputs) = %d, want 2", got)
	}
	if got := r.Count(SubscriptionScenes); got != 1 {
		t.Errorf("Count(Scenes) = %d, want 1", got)
	}
	if !r.Active(SubscriptionInputs) {
		t.Error("Active(Inputs) = false, want true")
	}
	if r.Active(SubscriptionOutputs) {
		t.Error("Active(Outputs) = true, want false")
	}

	r.Unsubscribe(SubscriptionInputs)
	if got := r.Count(SubscriptionInputs); got != 1 {
		t.Errorf("Count(Inputs) after one unsubscribe = %d, want 1", got)
	}

	r.Unsubscribe(SubscriptionInputs | SubscriptionScenes)
	if r.Active(SubscriptionInputs) {
		t.Error("Active(Inputs) after full unsubscribe = true, want false")
	}
	if r.Active(SubscriptionScenes) {
		t.Error("Active(Scenes) after unsubscribe = true, want false")
	}
}

func TestSubscriptionRegistryUnderflowIsNoop(t *testing.T) {
	r := NewSubscriptionRegistry()

	r.Unsubscribe(SubscriptionGeneral)
	if got := r.Count(SubscriptionGeneral); got != 0 {
		t.Errorf("Count(General) = %d, want 0", got)
	}

	r.Subscribe(SubscriptionGeneral)
	if got := r.Count(SubscriptionGeneral); got != 1 {
		t.Errorf("Count(General) = %d, want 1", got)
	}
}

func TestActiveRequiresEveryCategory(t *testing.T) {
	r := NewSubscriptionRegistry()
	r.Subscribe(SubscriptionInputs)

	if r.Active(SubscriptionInputs | SubscriptionScenes) {
		t.Error("Active(Inputs|Scenes) = true, want false with only Inputs subscribed")
	}
	if r.Active(SubscriptionNone) {
		t.Error("Active(None) = true, want false")
	}
}

func TestSubscriptionMatches(t *testing.T) {
	tests := []struct {
		name     string
		mask     Subscription
		required Subscription
		want     bool
	}{
		{"overlap", SubscriptionInputs | SubscriptionScenes, SubscriptionInputs, true},
		{"disjoint", SubscriptionScenes, SubscriptionInputs, false},
		{"all matches general", SubscriptionAll, SubscriptionGeneral, true},
		{"all excludes high volume", SubscriptionAll, SubscriptionInputVolumeMeters, false},
		{"zero mask", SubscriptionNone, SubscriptionGeneral, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.mask.Matches(tc.required); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}
