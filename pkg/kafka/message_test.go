package kafka

import (
	"errors"
	"testing"
)

func TestMessageBuilder(t *testing.T) {
	msg := NewMessage().
		WithKey("auction-1").
		WithRawValue([]byte(`{"amount_minor":100}`)).
		WithEventType("bid.submitted").
		WithSource("bidhouse").
		Build()

	if msg.Key != "auction-1" {
		t.Errorf("expected key auction-1, got %q", msg.Key)
	}
	if msg.GetEventType() != "bid.submitted" {
		t.Errorf("unexpected event type %q", msg.GetEventType())
	}
	if msg.GetEventID() == "" {
		t.Error("builder must stamp an event id")
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("builder must stamp a timestamp header")
	}
}

func TestRetryCountSurvivesDoubleDigits(t *testing.T) {
	msg := NewMessage().WithKey("k").WithRawValue([]byte("{}")).Build()

	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}

	if got := msg.GetRetryCount(); got != 12 {
		t.Errorf("expected retry count 12, got %d", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"transient wrapper", NewTransientError("store down", errors.New("x")), ErrorTypeTransient},
		{"permanent wrapper", NewPermanentError("bad payload", errors.New("x")), ErrorTypePermanent},
		{"connection refused", errors.New("dial tcp: connection refused"), ErrorTypeTransient},
		{"i/o timeout", errors.New("read tcp: i/o timeout"), ErrorTypeTransient},
		{"deserialization", errors.New("deserialization failed: unexpected EOF"), ErrorTypePermanent},
		{"unclassified", errors.New("something odd"), ErrorTypePermanent},
		{"nil", nil, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	transient := NewTransientError("store down", nil)
	permanent := NewPermanentError("bad payload", nil)

	if !ShouldRetry(transient, 0, 3) {
		t.Error("transient error under the retry budget must be retried")
	}
	if ShouldRetry(transient, 3, 3) {
		t.Error("exhausted retry budget must stop retrying")
	}
	if ShouldRetry(permanent, 0, 3) {
		t.Error("permanent error must never be retried")
	}
	if ShouldRetry(nil, 0, 3) {
		t.Error("nil error must not be retried")
	}
}
