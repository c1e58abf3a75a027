package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"oilcall-go/internal/holdtime"
	"oilcall-go/internal/logger"
	"oilcall-go/internal/metrics"
	"oilcall-go/internal/phone"
	"oilcall-go/internal/retell"
	"oilcall-go/internal/store"
	"oilcall-go/internal/types"
)

// ValidationError marks input problems the caller can fix.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

type CallPlatform interface {
	CreatePhoneCall(ctx context.Context, in retell.CreatePhoneCallRequest) (*types.CallResponse, error)
	GetCall(ctx context.Context, callID string) (*types.CallResponse, error)
}

type Store interface {
	CreatePhoneCall(ctx context.Context, pc *types.PhoneCall) error
	UpdatePhoneCall(ctx context.Context, callID string, res types.CallResult) error
	GetPhoneCall(ctx context.Context, callID string) (*types.PhoneCall, error)
	ListPhoneCalls(ctx context.Context, limit int) ([]types.PhoneCall, error)
}

type Cache interface {
	Get(ctx context.Context, callID string) (*types.CallResponse, bool, error)
	Put(ctx context.Context, call *types.CallResponse) error
}

// Options configures a Processor. Cache may be nil.
type Options struct {
	FromNumber    string
	DefaultRegion string
	Cache         Cache
}

type Processor struct {
	platform CallPlatform
	store    Store
	cache    Cache
	metrics  *metrics.Metrics
	log      *logger.Logger

	fromNumber    string
	defaultRegion string
	now           func() time.Time
}

func New(platform CallPlatform, st Store, m *metrics.Metrics, log *logger.Logger, opts Options) *Processor {
	region := opts.DefaultRegion
	if region == "" {
		region = "US"
	}
	return &Processor{
		platform:      platform,
		store:         st,
		cache:         opts.Cache,
		metrics:       m,
		log:           log.Component("processor"),
		fromNumber:    opts.FromNumber,
		defaultRegion: region,
		now:           time.Now,
	}
}

// StartCall validates the request, places the outbound call and records it.
func (p *Processor) StartCall(ctx context.Context, req types.CallRequest) (string, error) {
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.Make = strings.TrimSpace(req.Make)
	req.Model = strings.TrimSpace(req.Model)
	req.Trim = strings.TrimSpace(req.Trim)
	req.Year = strings.TrimSpace(req.Year)

	if req.PhoneNumber == "" || req.Make == "" || req.Model == "" || req.Trim == "" || req.Year == "" {
		return "", &ValidationError{Msg: "Missing required fields."}
	}
	year, err := strconv.Atoi(req.Year)
	if err != nil || year < 1900 || year > p.now().Year()+1 {
		return "", &ValidationError{Msg: "Invalid car year."}
	}
	to, err := phone.Normalize(req.PhoneNumber, p.defaultRegion)
	if err != nil {
		return "", &ValidationError{Msg: "Invalid phone number."}
	}

	log := p.log.WithField("to_number", to)
	call, err := p.platform.CreatePhoneCall(ctx, retell.CreatePhoneCallRequest{
		FromNumber: p.fromNumber,
		ToNumber:   to,
		DynamicVariables: map[string]string{
			"car_year":  req.Year,
			"car_make":  req.Make,
			"car_model": req.Model,
			"car_trim":  req.Trim,
		},
	})
	if err != nil {
		p.metrics.VendorErrors.WithLabelValues("create_phone_call").Inc()
		return "", fmt.Errorf("create phone call: %w", err)
	}
	p.metrics.CallsCreated.Inc()

	status := call.CallStatus
	if status == "" {
		status = types.CallStatusRegistered
	}
	pc := &types.PhoneCall{
		CallID:      call.CallID,
		PhoneNumber: to,
		CarYear:     year,
		CarMake:     req.Make,
		CarModel:    req.Model,
		CarTrim:     req.Trim,
		Status:      status,
	}
	if err := p.store.CreatePhoneCall(ctx, pc); err != nil {
		log.WithError(err).WithField("call_id", call.CallID).Error("call placed but not recorded")
		return "", fmt.Errorf("record phone call %s: %w", call.CallID, err)
	}

	log.WithField("call_id", call.CallID).Info("call started")
	return call.CallID, nil
}

// RefreshCall fetches the latest call state and, once the call has ended,
// stores the fields derived from the post-call analysis.
func (p *Processor) RefreshCall(ctx context.Context, callID string) (*types.CallResponse, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return nil, &ValidationError{Msg: "Missing required fields."}
	}
	log := p.log.WithField("call_id", callID)

	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, callID)
		if err != nil {
			log.WithError(err).Warn("call cache lookup failed")
		} else if ok {
			p.metrics.CacheHits.Inc()
			return cached, nil
		}
	}

	call, err := p.platform.GetCall(ctx, callID)
	if err != nil {
		p.metrics.VendorErrors.WithLabelValues("get_call").Inc()
		return nil, fmt.Errorf("get call: %w", err)
	}
	p.metrics.CallRefreshes.WithLabelValues(call.CallStatus).Inc()

	prev, err := p.store.GetPhoneCall(ctx, callID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load phone call: %w", err)
	}

	res, holdErr := ExtractResult(call)

	if prev == nil {
		log.Warn("no stored record for call, status not persisted")
	} else {
		if err := p.store.UpdatePhoneCall(ctx, callID, res); err != nil {
			return nil, fmt.Errorf("update phone call: %w", err)
		}
		// Hold time is recorded once, when the stored row first reaches ended.
		if prev.Status != types.CallStatusEnded && res.Status == types.CallStatusEnded {
			p.observeHoldTime(log, res, holdErr)
		}
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, call); err != nil {
			log.WithError(err).Warn("call cache write failed")
		}
	}

	log.WithField("call_status", call.CallStatus).Info("call refreshed")
	return call, nil
}

func (p *Processor) observeHoldTime(log *logrus.Entry, res types.CallResult, holdErr error) {
	if errors.Is(holdErr, holdtime.ErrUnresolvedHold) {
		p.metrics.HoldTimeUnresolved.Inc()
		log.Warn("call ended while on hold, hold time left empty")
	}
	if res.HoldTimeSeconds != nil {
		p.metrics.HoldTimeSeconds.Observe(*res.HoldTimeSeconds)
	}
}

func (p *Processor) GetPhoneCall(ctx context.Context, callID string) (*types.PhoneCall, error) {
	return p.store.GetPhoneCall(ctx, callID)
}

func (p *Processor) ListPhoneCalls(ctx context.Context, limit int) ([]types.PhoneCall, error) {
	return p.store.ListPhoneCalls(ctx, limit)
}

// ExtractResult derives the stored fields from a call. Hold time is only
// measured for ended calls that carry a structured transcript; when the
// transcript ends on hold the field stays nil and holdtime.ErrUnresolvedHold
// is returned with an otherwise complete result.
func ExtractResult(call *types.CallResponse) (types.CallResult, error) {
	res := types.CallResult{
		Status:       call.CallStatus,
		RecordingURL: optString(call.RecordingURL),
		Transcript:   optString(call.Transcript),
	}
	if a := call.CallAnalysis; a != nil {
		res.OilChangePrice = optString(a.CustomAnalysisData.OilChangePrice)
		res.SoonestServiceAppt = optString(a.CustomAnalysisData.SoonestServiceAvailability)
		res.SentToVoicemail = a.InVoicemail
	}

	if call.CallStatus != types.CallStatusEnded || call.TranscriptWithToolCalls == nil {
		return res, nil
	}
	seconds, err := holdtime.Calculate(call.TranscriptWithToolCalls)
	if err != nil {
		return res, err
	}
	res.HoldTimeSeconds = &seconds
	return res, nil
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
