package aggregator

import "oilcall-go/internal/types"

type Summary struct {
	TotalCalls          int            `json:"total_calls"`
	CallsByStatus       map[string]int `json:"calls_by_status"`
	MeasuredHolds       int            `json:"measured_holds"`
	UndeterminedHolds   int            `json:"undetermined_holds"`
	AverageHoldSeconds  float64        `json:"average_hold_seconds"`
	MaxHoldSeconds      float64        `json:"max_hold_seconds"`
	VoicemailRate       float64        `json:"voicemail_rate"`
	PricesQuoted        int            `json:"prices_quoted"`
	AppointmentsOffered int            `json:"appointments_offered"`
}

// Summarize rolls up stored calls. Only ended calls count toward hold,
// voicemail and quote figures; an ended call without a hold time is undetermined.
func Summarize(calls []types.PhoneCall) Summary {
	s := Summary{TotalCalls: len(calls), CallsByStatus: map[string]int{}}
	var (
		holdTotal float64
		ended     int
		voicemail int
	)
	for _, c := range calls {
		s.CallsByStatus[c.Status]++
		if c.Status != types.CallStatusEnded {
			continue
		}
		ended++
		if c.HoldTimeSeconds != nil {
			s.MeasuredHolds++
			holdTotal += *c.HoldTimeSeconds
			if *c.HoldTimeSeconds > s.MaxHoldSeconds {
				s.MaxHoldSeconds = *c.HoldTimeSeconds
			}
		} else {
			s.UndeterminedHolds++
		}
		if c.SentToVoicemail != nil && *c.SentToVoicemail {
			voicemail++
		}
		if c.OilChangePrice != nil && *c.OilChangePrice != "" {
			s.PricesQuoted++
		}
		if c.SoonestServiceAppt != nil && *c.SoonestServiceAppt != "" {
			s.AppointmentsOffered++
		}
	}
	if s.MeasuredHolds > 0 {
		s.AverageHoldSeconds = holdTotal / float64(s.MeasuredHolds)
	}
	if ended > 0 {
		s.VoicemailRate = float64(voicemail) / float64(ended)
	}
	return s
}
