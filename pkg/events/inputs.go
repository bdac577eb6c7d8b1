package events

import (
	"math"
	"strconv"
)

// Broadcaster delivers one event to every eligible session. Implemented
// by the server's broadcast engine; safe to call from any host thread.
type Broadcaster interface {
	BroadcastEvent(requiredIntent Subscription, eventType string, eventData map[string]any, rpcVersion uint8)
}

// maxAudioTracks is the number of audio mixer tracks the host exposes.
const maxAudioTracks = 6

// Handler translates host application callbacks into broadcast events.
// One instance serves the whole process; the host invokes its methods
// from arbitrary threads.
type Handler struct {
	broadcaster   Broadcaster
	subscriptions *SubscriptionRegistry
}

// NewHandler creates an event handler delivering through the given
// broadcaster and consulting the given subscription registry.
func NewHandler(broadcaster Broadcaster, subscriptions *SubscriptionRegistry) *Handler {
	return &Handler{
		broadcaster:   broadcaster,
		subscriptions: subscriptions,
	}
}

// Subscriptions returns the registry the dispatcher must keep in sync
// with session subscription masks.
func (h *Handler) Subscriptions() *SubscriptionRegistry {
	return h.subscriptions
}

// InputCreated signals that an input was created.
func (h *Handler) InputCreated(inputName string) {
	h.broadcaster.BroadcastEvent(SubscriptionInputs, "InputCreated", map[string]any{
		"inputName": inputName,
	}, 0)
}

// InputRemoved signals that an input was removed.
func (h *Handler) InputRemoved(inputName string) {
	h.broadcaster.BroadcastEvent(SubscriptionInputs, "InputRemoved", map[string]any{
		"inputName": inputName,
	}, 0)
}

// InputNameChanged signals that an input was renamed.
func (h *Handler) InputNameChanged(oldInputName, inputName string) {
	h.broadcaster.BroadcastEvent(SubscriptionInputs, "InputNameChanged", map[string]any{
		"oldInputName": oldInputName,
		"inputName":    inputName,
	}, 0)
}

// InputActiveStateChanged signals that an input started or stopped
// being actively rendered. High volume; requires an explicit opt-in
// subscription.
func (h *Handler) InputActiveStateChanged(inputName string, videoActive bool) {
	h.broadcaster.BroadcastEvent(SubscriptionInputActiveStateChanged, "InputActiveStateChanged", map[string]any{
		"inputName":   inputName,
		"videoActive": videoActive,
	}, 0)
}

// InputShowStateChanged signals that an input became shown or hidden
// in any view. High volume; requires an explicit opt-in subscription.
func (h *Handler) InputShowStateChanged(inputName string, videoShowing bool) {
	h.broadcaster.BroadcastEvent(SubscriptionInputShowStateChanged, "InputShowStateChanged", map[string]any{
		"inputName":    inputName,
		"videoShowing": videoShowing,
	}, 0)
}

// InputMuteStateChanged signals that an input's mute state changed.
func (h *Handler) InputMuteStateChanged(inputName string, inputMuted bool) {
	h.broadcaster.BroadcastEvent(SubscriptionInputs, "InputMuteStateChanged", map[string]any{
		"inputName":  inputName,
		"inputMuted": inputMuted,
	}, 0)
}

// InputVolumeChanged signals that an input's volume changed. The
// payload carries both the multiplier and its dB conversion, with
// negative infinity clamped to -100 dB.
func (h *Handler) InputVolumeChanged(inputName string, inputVolumeMul float64) {
	inputVolumeDb := mulToDb(inputVolumeMul)

	h.broadcaster.BroadcastEvent(SubscriptionInputs, "InputVolumeChanged", map[string]any{
		"inputName":      inputName,
		"inputVolumeMul": inputVolumeMul,
		"inputVolumeDb":  inputVolumeDb,
	}, 0)
}

// InputAudioSyncOffsetChanged signals a sync offset change. The host
// reports nanoseconds; the wire carries milliseconds.
func (h *Handler) InputAudioSyncOffsetChanged(inputName string, offsetNs int64) {
	h.broadcaster.BroadcastEvent(SubscriptionInputs, "InputAudioSyncOffsetChanged", map[string]any{
		"inputName":            inputName,
		"inputAudioSyncOffset": offsetNs / 1_000_000,
	}, 0)
}

// InputAudioTracksChanged signals that an input's mixer track
// assignment changed. mixerMask is the host's track bitmask; the wire
// carries a map of track number ("1".."6") to enabled.
func (h *Handler) InputAudioTracksChanged(inputName string, mixerMask uint64) {
	tracks := make(map[string]any, maxAudioTracks)
	for i := 0; i < maxAudioTracks; i++ {
		tracks[strconv.Itoa(i+1)] = mixerMask&(1<<i) != 0
	}

	h.broadcaster.BroadcastEvent(SubscriptionInputs, "InputAudioTracksChanged", map[string]any{
		"inputName":        inputName,
		"inputAudioTracks": tracks,
	}, 0)
}

// InputVolumeMeters publishes one volume meter sample for every audio
// input. The payload is expensive to build, so the host calls
// MetersActive first and this method double-checks; both sides of the
// check read the same registry.
func (h *Handler) InputVolumeMeters(inputs []map[string]any) {
	if !h.MetersActive() {
		return
	}
	h.broadcaster.BroadcastEvent(SubscriptionInputVolumeMeters, "InputVolumeMeters", map[string]any{
		"inputs": inputs,
	}, 0)
}

// MetersActive reports whether any session subscribed to volume
// meters, letting the host skip sample aggregation entirely.
func (h *Handler) MetersActive() bool {
	return h.subscriptions.Active(SubscriptionInputVolumeMeters)
}

// mulToDb converts a volume multiplier to decibels, clamping silence
// to -100 dB the way the host UI does.
func mulToDb(mul float64) float64 {
	if mul <= 0 {
		return -100
	}
	db := 20 * math.Log10(mul)
	if math.IsInf(db, -1) || db < -100 {
		return -100
	}
	return db
}
