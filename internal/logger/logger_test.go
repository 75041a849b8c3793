package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", Output: &buf, ServiceName: "svc"})

	l.WithField(FieldJokeID, 42).Info("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if line["message"] != "hello" {
		t.Errorf("message = %v, want hello", line["message"])
	}
	if line["service"] != "svc" {
		t.Errorf("service = %v, want svc", line["service"])
	}
	if line[FieldJokeID] != float64(42) {
		t.Errorf("joke_id = %v, want 42", line[FieldJokeID])
	}
}

func TestContextFields(t *testing.T) {
	base, _ := test.NewNullLogger()
	ctx := FromLogrus(base).WithContext(context.Background())

	ctx = SetRequestID(ctx, "req-1")
	ctx = SetCampaignID(ctx, "camp-1")

	if got := GetRequestID(ctx); got != "req-1" {
		t.Errorf("GetRequestID() = %q, want req-1", got)
	}
	if got := GetCampaignID(ctx); got != "camp-1" {
		t.Errorf("GetCampaignID() = %q, want camp-1", got)
	}
	if got := GetRequestID(context.Background()); got != "" {
		t.Errorf("GetRequestID() on empty context = %q, want empty", got)
	}
}

func TestCallTracker_Events(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	ctx := FromLogrus(base).WithContext(context.Background())

	call := Call(ctx, CallTransplant, Fields{FieldCandidateRank: 2})
	call.Failed("malformed", errors.New("bad json"))

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}

	attempt := entries[0]
	if attempt.Data[FieldCallOutcome] != OutcomeAttempt {
		t.Errorf("first outcome = %v, want attempt", attempt.Data[FieldCallOutcome])
	}

	failure := entries[1]
	if failure.Level != logrus.WarnLevel {
		t.Errorf("failure level = %v, want warn", failure.Level)
	}
	if failure.Data[FieldFailureKind] != "malformed" {
		t.Errorf("failure_kind = %v, want malformed", failure.Data[FieldFailureKind])
	}
	if failure.Data[FieldExternalCall] != CallTransplant {
		t.Errorf("external_call = %v, want %s", failure.Data[FieldExternalCall], CallTransplant)
	}
	if failure.Data[FieldCandidateRank] != 2 {
		t.Errorf("candidate_rank = %v, want 2", failure.Data[FieldCandidateRank])
	}
	if failure.Data["error"] != "bad json" {
		t.Errorf("error = %v, want bad json", failure.Data["error"])
	}
}
