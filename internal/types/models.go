package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Speaker roles as reported by the calling platform.
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Call statuses. Ended and Error are terminal.
const (
	CallStatusRegistered = "registered"
	CallStatusOngoing    = "ongoing"
	CallStatusEnded      = "ended"
	CallStatusError      = "error"
)

// IsTerminal reports whether no further status transitions are expected.
func IsTerminal(status string) bool {
	return status == CallStatusEnded || status == CallStatusError
}

// Word is a single timed token inside a transcript turn. Offsets are seconds from call start.
type Word struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// TranscriptEntry is one turn of the conversation. Tool-call turns carry a role
// but no content or words.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Words   []Word `json:"words,omitempty"`
}

// CallRequest is what the user submits to start an outbound call.
type CallRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Trim        string `json:"trim"`
	Year        string `json:"year"`
}

// UnmarshalJSON accepts the year as either a JSON string or a number.
func (r *CallRequest) UnmarshalJSON(data []byte) error {
	type plain CallRequest
	aux := struct {
		*plain
		Year json.RawMessage `json:"year"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	raw := bytes.TrimSpace(aux.Year)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		r.Year = ""
	case raw[0] == '"':
		return json.Unmarshal(raw, &r.Year)
	default:
		r.Year = string(raw)
	}
	return nil
}

// CustomAnalysisData holds the fields the agent is configured to extract post-call.
type CustomAnalysisData struct {
	OilChangePrice             string `json:"oil_change_price,omitempty"`
	SoonestServiceAvailability string `json:"soonest_service_availability,omitempty"`
}

type CallAnalysis struct {
	CallSummary        string             `json:"call_summary,omitempty"`
	InVoicemail        *bool              `json:"in_voicemail,omitempty"`
	UserSentiment      string             `json:"user_sentiment,omitempty"`
	CallSuccessful     *bool              `json:"call_successful,omitempty"`
	CustomAnalysisData CustomAnalysisData `json:"custom_analysis_data"`
}

// CallResponse mirrors the call object returned by the calling platform.
type CallResponse struct {
	CallID                  string            `json:"call_id"`
	CallStatus              string            `json:"call_status"`
	FromNumber              string            `json:"from_number,omitempty"`
	ToNumber                string            `json:"to_number,omitempty"`
	StartTimestamp          int64             `json:"start_timestamp,omitempty"`
	EndTimestamp            int64             `json:"end_timestamp,omitempty"`
	Transcript              string            `json:"transcript,omitempty"`
	TranscriptWithToolCalls []TranscriptEntry `json:"transcript_with_tool_calls,omitempty"`
	RecordingURL            string            `json:"recording_url,omitempty"`
	DisconnectionReason     string            `json:"disconnection_reason,omitempty"`
	CallAnalysis            *CallAnalysis     `json:"call_analysis,omitempty"`
}

// PhoneCall is the persisted row for one outbound call.
type PhoneCall struct {
	ID                 string    `json:"id"`
	CallID             string    `json:"call_id"`
	PhoneNumber        string    `json:"phone_number"`
	CarYear            int       `json:"car_year"`
	CarMake            string    `json:"car_make"`
	CarModel           string    `json:"car_model"`
	CarTrim            string    `json:"car_trim,omitempty"`
	Status             string    `json:"status"`
	OilChangePrice     *string   `json:"oil_change_price,omitempty"`
	SoonestServiceAppt *string   `json:"soonest_service_appt,omitempty"`
	HoldTimeSeconds    *float64  `json:"hold_time_seconds,omitempty"`
	RecordingURL       *string   `json:"recording_url,omitempty"`
	SentToVoicemail    *bool     `json:"sent_to_voicemail,omitempty"`
	Transcript         *string   `json:"transcript,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CallResult is the set of fields derived from a completed call.
type CallResult struct {
	Status             string
	OilChangePrice     *string
	SoonestServiceAppt *string
	HoldTimeSeconds    *float64
	RecordingURL       *string
	SentToVoicemail    *bool
	Transcript         *string
}
