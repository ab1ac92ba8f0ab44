package becomap_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/becomap/becomap-go/pkg/becomap"
)

func TestErrorChain(t *testing.T) {
	cause := fmt.Errorf("socket reset")
	err := becomap.Wrap(becomap.CodeChannelUnavailable, "bridge channel failed", cause)

	if got := err.Error(); got != "bridge channel failed: socket reset" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, becomap.New(becomap.CodeChannelUnavailable, "anything")) {
		t.Error("errors.Is should match by code")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the cause")
	}

	wrapped := fmt.Errorf("operation failed: %w", err)
	if becomap.CodeOf(wrapped) != becomap.CodeChannelUnavailable {
		t.Errorf("CodeOf(wrapped) = %s", becomap.CodeOf(wrapped))
	}
	if !becomap.IsCode(wrapped, becomap.CodeChannelUnavailable) {
		t.Error("IsCode should see through fmt.Errorf wrapping")
	}
}

func TestCodeOfUnclassified(t *testing.T) {
	if becomap.CodeOf(nil) != "" {
		t.Errorf("CodeOf(nil) = %q, want empty", becomap.CodeOf(nil))
	}
	if becomap.CodeOf(errors.New("plain")) != becomap.CodeInternal {
		t.Errorf("CodeOf(plain) = %s, want INTERNAL", becomap.CodeOf(errors.New("plain")))
	}
}

func TestErrorMetadata(t *testing.T) {
	err := becomap.New(becomap.CodeOutOfRange, "zoom out of range").
		WithMetadata(map[string]string{"parameter": "zoom"}).
		WithMetadata(map[string]string{"value": "26"})

	if err.Metadata["parameter"] != "zoom" || err.Metadata["value"] != "26" {
		t.Errorf("metadata = %v", err.Metadata)
	}
}

func TestWireRoundTrip(t *testing.T) {
	orig := becomap.New(becomap.CodeRouteNotFound, "no path between waypoints").
		WithMetadata(map[string]string{"waypoints": "3"})

	back := becomap.FromWire(orig.ToWire())
	if back.Code != becomap.CodeRouteNotFound {
		t.Errorf("code = %s", back.Code)
	}
	if back.Message != orig.Message {
		t.Errorf("message = %q", back.Message)
	}
	if back.Metadata["waypoints"] != "3" {
		t.Errorf("metadata = %v", back.Metadata)
	}

	// Engines that omit the code still produce a classified error.
	anon := becomap.FromWire(becomap.WireError{Message: "mystery"})
	if anon.Code != becomap.CodeInternal {
		t.Errorf("missing code mapped to %s, want INTERNAL", anon.Code)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[becomap.Code]int{
		becomap.CodeOutOfRange:          http.StatusBadRequest,
		becomap.CodeQueryTooLong:        http.StatusBadRequest,
		becomap.CodeUnauthorized:        http.StatusUnauthorized,
		becomap.CodeRouteNotFound:       http.StatusNotFound,
		becomap.CodeRouteInProgress:     http.StatusConflict,
		becomap.CodeNetworkTimeout:      http.StatusGatewayTimeout,
		becomap.CodeChannelUnavailable:  http.StatusServiceUnavailable,
		becomap.CodeInternal:            http.StatusInternalServerError,
		becomap.Code("SOMETHING_NOVEL"): http.StatusInternalServerError,
	}
	for code, want := range cases {
		if got := code.HTTPStatus(); got != want {
			t.Errorf("%s: status = %d, want %d", code, got, want)
		}
	}
}
