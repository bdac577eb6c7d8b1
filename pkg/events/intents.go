// Package events defines the event intent catalogue, the
// subscription-refcount registry, and the host-callback handlers that
// translate host application state changes into broadcast events.
package events

// Subscription is a bit-flag set of event categories a session wants
// to receive. The flag values are part of the wire contract.
type Subscription uint64

// Event intent categories.
const (
	// SubscriptionNone receives no events.
	SubscriptionNone Subscription = 0

	// SubscriptionGeneral covers miscellaneous server events, including
	// custom events broadcast by clients.
	SubscriptionGeneral Subscription = 1 << 0

	// SubscriptionConfig covers configuration change events.
	SubscriptionConfig Subscription = 1 << 1

	// SubscriptionScenes covers scene list and current-scene events.
	SubscriptionScenes Subscription = 1 << 2

	// SubscriptionInputs covers input lifecycle and property events.
	SubscriptionInputs Subscription = 1 << 3

	// SubscriptionTransitions covers transition events.
	SubscriptionTransitions Subscription = 1 << 4

	// SubscriptionFilters covers filter events.
	SubscriptionFilters Subscription = 1 << 5

	// SubscriptionOutputs covers output state events.
	SubscriptionOutputs Subscription = 1 << 6

	// SubscriptionSceneItems covers scene item events.
	SubscriptionSceneItems Subscription = 1 << 7

	// SubscriptionMediaInputs covers media input playback events.
	SubscriptionMediaInputs Subscription = 1 << 8

	// SubscriptionVendors covers events emitted by third-party vendor
	// integrations.
	SubscriptionVendors Subscription = 1 << 9

	// SubscriptionUI covers host user-interface events.
	SubscriptionUI Subscription = 1 << 10
)

// SubscriptionAll is every non-high-volume category. It is the default
// subscription mask applied when an Identify omits eventSubscriptions.
const SubscriptionAll = SubscriptionGeneral | SubscriptionConfig |
	SubscriptionScenes | SubscriptionInputs | SubscriptionTransitions |
	SubscriptionFilters | SubscriptionOutputs | SubscriptionSceneItems |
	SubscriptionMediaInputs | SubscriptionVendors | SubscriptionUI

// High-volume categories. Never part of SubscriptionAll; clients must
// opt in explicitly.
const (
	// SubscriptionInputVolumeMeters covers periodic volume meter
	// samples for every audio input.
	SubscriptionInputVolumeMeters Subscription = 1 << 16

	// SubscriptionInputActiveStateChanged covers input render-activity
	// flaps.
	SubscriptionInputActiveStateChanged Subscription = 1 << 17

	// SubscriptionInputShowStateChanged covers input visibility flaps.
	SubscriptionInputShowStateChanged Subscription = 1 << 18
)

// Matches reports whether the mask shares at least one category with
// the required intent.
func (s Subscription) Matches(required Subscription) bool {
	return s&required != 0
}

// Has reports whether every bit of other is set in s.
func (s Subscription) Has(other Subscription) bool {
	return s&other == other
}
