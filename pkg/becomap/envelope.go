package becomap

import (
	"encoding/json"
	"time"
)

// MaxMessageBytes caps a single encoded envelope. Both ends drop or
// reject anything larger.
const MaxMessageBytes = 64 * 1024

// Operations invoked by the client.
const (
	OpInit                 = "init"
	OpHealthCheck          = "healthCheck"
	OpGetCurrentFloor      = "getCurrentFloor"
	OpSelectFloor          = "selectFloor"
	OpSelectLocationWithID = "selectLocationWithId"
	OpDeselectLocation     = "deselectLocation"
	OpFocusTo              = "focusTo"
	OpUpdateZoom           = "updateZoom"
	OpUpdateBearing        = "updateBearing"
	OpUpdatePitch          = "updatePitch"
	OpSearchForLocations   = "searchForLocations"
	OpSearchForCategories  = "searchForCategories"
	OpGetRoute             = "getRoute"
	OpShowRoute            = "showRoute"
	OpShowStep             = "showStep"
	OpClearRoute           = "clearRoute"
	OpRecoverFromError     = "recoverFromError"
	OpCleanup              = "cleanup"
)

// Events emitted by the engine.
const (
	EventMapReady            = "onMapReady"
	EventHealthCheck         = "onHealthCheck"
	EventCurrentFloor        = "onCurrentFloor"
	EventFloorSwitch         = "onFloorSwitch"
	EventLocationSelect      = "onLocationSelect"
	EventLocationDeselect    = "onLocationDeselect"
	EventFocusTo             = "onFocusTo"
	EventViewChange          = "onViewChange"
	EventSearchForLocations  = "onSearchForLocations"
	EventSearchForCategories = "onSearchForCategories"
	EventGetRoute            = "onGetRoute"
	EventShowRoute           = "onShowRoute"
	EventShowStep            = "onShowStep"
	EventRouteClear          = "onRouteClear"
	EventSiteRefresh         = "onSiteRefresh"
	EventError               = "onError"
	EventGetRouteError       = "onGetRouteError"
	EventShowRouteError      = "onShowRouteError"
	EventFocusToError        = "onFocusToError"
)

// Message is the bridge wire envelope. RequestID is the correlation
// token: assigned per outbound call, echoed on the callback(s) that
// resolve it, absent on unsolicited events.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
	RequestID uint64          `json:"requestId,omitempty"`
}

// NewMessage builds an envelope for the given type, marshaling payload
// and stamping the producer clock. A nil payload yields an empty object.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
	}
	if payload == nil {
		msg.Payload = json.RawMessage(`{}`)
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, Wrap(CodeInvalidArgument, "encode payload", err)
	}
	msg.Payload = raw
	return msg, nil
}

// DecodePayload unmarshals the payload into v.
func (m Message) DecodePayload(v any) error {
	if len(m.Payload) == 0 {
		return New(CodeInvalidArgument, "empty payload")
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return Wrap(CodeInvalidArgument, "decode payload", err)
	}
	return nil
}

// ErrorMessage builds an error event envelope for op, echoing requestID
// when the failure resolves a correlated call.
func ErrorMessage(eventType, op string, requestID uint64, err *Error) Message {
	payload := ErrorEvent{Operation: op, Err: err.ToWire()}
	raw, merr := json.Marshal(payload)
	if merr != nil {
		raw = json.RawMessage(`{"error":{"code":"INTERNAL","message":"encode error payload"}}`)
	}
	return Message{
		Type:      eventType,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
		RequestID: requestID,
	}
}

// ErrorEventFor maps an operation to its dedicated error event, falling
// back to the generic onError channel.
func ErrorEventFor(op string) string {
	switch op {
	case OpGetRoute:
		return EventGetRouteError
	case OpShowRoute, OpShowStep, OpClearRoute:
		return EventShowRouteError
	case OpFocusTo:
		return EventFocusToError
	default:
		return EventError
	}
}
