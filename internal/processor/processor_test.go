package processor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oilcall-go/internal/holdtime"
	"oilcall-go/internal/logger"
	"oilcall-go/internal/metrics"
	"oilcall-go/internal/retell"
	"oilcall-go/internal/store"
	"oilcall-go/internal/types"
)

type fakePlatform struct {
	created   []retell.CreatePhoneCallRequest
	createErr error
	calls     map[string]*types.CallResponse
	getErr    error
	gets      int
}

func (f *fakePlatform) CreatePhoneCall(_ context.Context, in retell.CreatePhoneCallRequest) (*types.CallResponse, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, in)
	return &types.CallResponse{CallID: "call_1", CallStatus: types.CallStatusRegistered}, nil
}

func (f *fakePlatform) GetCall(_ context.Context, callID string) (*types.CallResponse, error) {
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	call, ok := f.calls[callID]
	if !ok {
		return nil, &retell.APIError{StatusCode: 404}
	}
	return call, nil
}

type mapCache struct {
	entries map[string]*types.CallResponse
}

func (c *mapCache) Get(_ context.Context, callID string) (*types.CallResponse, bool, error) {
	call, ok := c.entries[callID]
	return call, ok, nil
}

func (c *mapCache) Put(_ context.Context, call *types.CallResponse) error {
	if types.IsTerminal(call.CallStatus) {
		c.entries[call.CallID] = call
	}
	return nil
}

type harness struct {
	proc     *Processor
	platform *fakePlatform
	store    *store.Memory
	metrics  *metrics.Metrics
}

func newHarness(t *testing.T, cache Cache) *harness {
	t.Helper()
	platform := &fakePlatform{calls: map[string]*types.CallResponse{}}
	st := store.NewMemory()
	m := metrics.New(prometheus.NewRegistry())
	proc := New(platform, st, m, logger.NewWithOutput(io.Discard), Options{
		FromNumber: "+19842134169",
		Cache:      cache,
	})
	proc.now = func() time.Time { return time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC) }
	return &harness{proc: proc, platform: platform, store: st, metrics: m}
}

func validRequest() types.CallRequest {
	return types.CallRequest{
		PhoneNumber: "(201) 555-0123",
		Make:        "Honda",
		Model:       "Civic",
		Trim:        "EX",
		Year:        "2019",
	}
}

func TestStartCall(t *testing.T) {
	h := newHarness(t, nil)

	callID, err := h.proc.StartCall(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "call_1", callID)

	require.Len(t, h.platform.created, 1)
	req := h.platform.created[0]
	assert.Equal(t, "+19842134169", req.FromNumber)
	assert.Equal(t, "+12015550123", req.ToNumber)
	assert.Equal(t, map[string]string{
		"car_year": "2019", "car_make": "Honda", "car_model": "Civic", "car_trim": "EX",
	}, req.DynamicVariables)

	pc, err := h.store.GetPhoneCall(context.Background(), "call_1")
	require.NoError(t, err)
	assert.Equal(t, 2019, pc.CarYear)
	assert.Equal(t, types.CallStatusRegistered, pc.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CallsCreated))
}

func TestStartCall_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*types.CallRequest)
		msg    string
	}{
		{"missing phone", func(r *types.CallRequest) { r.PhoneNumber = "" }, "Missing required fields."},
		{"missing trim", func(r *types.CallRequest) { r.Trim = "  " }, "Missing required fields."},
		{"non numeric year", func(r *types.CallRequest) { r.Year = "20x9" }, "Invalid car year."},
		{"year too old", func(r *types.CallRequest) { r.Year = "1899" }, "Invalid car year."},
		{"year too new", func(r *types.CallRequest) { r.Year = "2028" }, "Invalid car year."},
		{"bad phone", func(r *types.CallRequest) { r.PhoneNumber = "12345" }, "Invalid phone number."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, nil)
			req := validRequest()
			tt.mutate(&req)

			_, err := h.proc.StartCall(context.Background(), req)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.msg, vErr.Msg)
			assert.Empty(t, h.platform.created)
		})
	}
}

func TestStartCall_NextModelYearAllowed(t *testing.T) {
	h := newHarness(t, nil)
	req := validRequest()
	req.Year = "2027"

	_, err := h.proc.StartCall(context.Background(), req)
	assert.NoError(t, err)
}

func TestStartCall_VendorError(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.createErr = &retell.APIError{StatusCode: 500, Body: "down"}

	_, err := h.proc.StartCall(context.Background(), validRequest())
	var apiErr *retell.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.VendorErrors.WithLabelValues("create_phone_call")))
}

func endedCall(transcript []types.TranscriptEntry) *types.CallResponse {
	voicemail := false
	return &types.CallResponse{
		CallID:                  "call_1",
		CallStatus:              types.CallStatusEnded,
		Transcript:              "Agent: hi\nUser: please hold\nAgent: thanks",
		TranscriptWithToolCalls: transcript,
		RecordingURL:            "https://example.com/rec.wav",
		CallAnalysis: &types.CallAnalysis{
			InVoicemail: &voicemail,
			CustomAnalysisData: types.CustomAnalysisData{
				OilChangePrice:             "$49.99",
				SoonestServiceAvailability: "Tomorrow at 9am",
			},
		},
	}
}

func TestRefreshCall_Ended(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.proc.StartCall(ctx, validRequest())
	require.NoError(t, err)

	h.platform.calls["call_1"] = endedCall([]types.TranscriptEntry{
		{Role: types.RoleUser, Content: "Please hold.", Words: []types.Word{{Start: 10, End: 11}}},
		{Role: types.RoleAgent, Content: "Thanks", Words: []types.Word{{Start: 70, End: 71}}},
	})

	call, err := h.proc.RefreshCall(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, types.CallStatusEnded, call.CallStatus)

	pc, err := h.store.GetPhoneCall(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, types.CallStatusEnded, pc.Status)
	require.NotNil(t, pc.HoldTimeSeconds)
	assert.Equal(t, 61.0, *pc.HoldTimeSeconds)
	assert.Equal(t, "$49.99", *pc.OilChangePrice)
	assert.Equal(t, "Tomorrow at 9am", *pc.SoonestServiceAppt)
	assert.Equal(t, "https://example.com/rec.wav", *pc.RecordingURL)
	assert.False(t, *pc.SentToVoicemail)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CallRefreshes.WithLabelValues("ended")))
}

func TestRefreshCall_UnresolvedHoldStoresNull(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.proc.StartCall(ctx, validRequest())
	require.NoError(t, err)

	h.platform.calls["call_1"] = endedCall([]types.TranscriptEntry{
		{Role: types.RoleUser, Content: "please hold", Words: []types.Word{{Start: 10, End: 11}}},
	})

	_, err = h.proc.RefreshCall(ctx, "call_1")
	require.NoError(t, err)

	pc, err := h.store.GetPhoneCall(ctx, "call_1")
	require.NoError(t, err)
	assert.Nil(t, pc.HoldTimeSeconds)
	assert.Equal(t, "$49.99", *pc.OilChangePrice)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HoldTimeUnresolved))
}

func TestRefreshCall_HoldTimeObservedOncePerCall(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.proc.StartCall(ctx, validRequest())
	require.NoError(t, err)

	h.platform.calls["call_1"] = &types.CallResponse{CallID: "call_1", CallStatus: types.CallStatusOngoing}
	_, err = h.proc.RefreshCall(ctx, "call_1")
	require.NoError(t, err)

	h.platform.calls["call_1"] = endedCall([]types.TranscriptEntry{
		{Role: types.RoleUser, Content: "please hold", Words: []types.Word{{Start: 10, End: 11}}},
	})
	for i := 0; i < 3; i++ {
		_, err = h.proc.RefreshCall(ctx, "call_1")
		require.NoError(t, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.HoldTimeUnresolved))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.CallRefreshes.WithLabelValues("ended")))
}

func TestRefreshCall_HoldTimeHistogramObservedOnce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.proc.StartCall(ctx, validRequest())
	require.NoError(t, err)

	h.platform.calls["call_1"] = endedCall([]types.TranscriptEntry{
		{Role: types.RoleUser, Content: "Please hold.", Words: []types.Word{{Start: 10, End: 11}}},
		{Role: types.RoleAgent, Content: "Thanks", Words: []types.Word{{Start: 70, End: 71}}},
	})
	for i := 0; i < 3; i++ {
		_, err = h.proc.RefreshCall(ctx, "call_1")
		require.NoError(t, err)
	}

	var m dto.Metric
	require.NoError(t, h.metrics.HoldTimeSeconds.Write(&m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
	assert.Equal(t, 61.0, m.GetHistogram().GetSampleSum())
}

func TestRefreshCall_Ongoing(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	_, err := h.proc.StartCall(ctx, validRequest())
	require.NoError(t, err)

	h.platform.calls["call_1"] = &types.CallResponse{CallID: "call_1", CallStatus: types.CallStatusOngoing}

	call, err := h.proc.RefreshCall(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, types.CallStatusOngoing, call.CallStatus)

	pc, err := h.store.GetPhoneCall(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, types.CallStatusOngoing, pc.Status)
	assert.Nil(t, pc.HoldTimeSeconds)
}

func TestRefreshCall_UnknownRecordStillReturnsStatus(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.calls["call_9"] = &types.CallResponse{CallID: "call_9", CallStatus: types.CallStatusOngoing}

	call, err := h.proc.RefreshCall(context.Background(), "call_9")
	require.NoError(t, err)
	assert.Equal(t, "call_9", call.CallID)
}

func TestRefreshCall_VendorError(t *testing.T) {
	h := newHarness(t, nil)
	h.platform.getErr = errors.New("timeout")

	_, err := h.proc.RefreshCall(context.Background(), "call_1")
	assert.ErrorContains(t, err, "timeout")
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.VendorErrors.WithLabelValues("get_call")))
}

func TestRefreshCall_MissingID(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.proc.RefreshCall(context.Background(), " ")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestRefreshCall_ServesTerminalFromCache(t *testing.T) {
	cache := &mapCache{entries: map[string]*types.CallResponse{}}
	h := newHarness(t, cache)
	ctx := context.Background()
	_, err := h.proc.StartCall(ctx, validRequest())
	require.NoError(t, err)
	h.platform.calls["call_1"] = endedCall(nil)

	_, err = h.proc.RefreshCall(ctx, "call_1")
	require.NoError(t, err)
	_, err = h.proc.RefreshCall(ctx, "call_1")
	require.NoError(t, err)

	assert.Equal(t, 1, h.platform.gets)
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.CacheHits))
}

func TestExtractResult(t *testing.T) {
	t.Run("no structured transcript leaves hold empty", func(t *testing.T) {
		res, err := ExtractResult(endedCall(nil))
		require.NoError(t, err)
		assert.Nil(t, res.HoldTimeSeconds)
		assert.Equal(t, "$49.99", *res.OilChangePrice)
	})

	t.Run("empty structured transcript measures zero", func(t *testing.T) {
		res, err := ExtractResult(endedCall([]types.TranscriptEntry{}))
		require.NoError(t, err)
		require.NotNil(t, res.HoldTimeSeconds)
		assert.Zero(t, *res.HoldTimeSeconds)
	})

	t.Run("unresolved hold", func(t *testing.T) {
		res, err := ExtractResult(endedCall([]types.TranscriptEntry{
			{Role: types.RoleUser, Content: "please hold", Words: []types.Word{{Start: 1, End: 2}}},
		}))
		assert.ErrorIs(t, err, holdtime.ErrUnresolvedHold)
		assert.Nil(t, res.HoldTimeSeconds)
		assert.Equal(t, types.CallStatusEnded, res.Status)
	})

	t.Run("not ended", func(t *testing.T) {
		call := endedCall([]types.TranscriptEntry{})
		call.CallStatus = types.CallStatusOngoing
		res, err := ExtractResult(call)
		require.NoError(t, err)
		assert.Nil(t, res.HoldTimeSeconds)
	})

	t.Run("no analysis yet", func(t *testing.T) {
		res, err := ExtractResult(&types.CallResponse{CallID: "c", CallStatus: types.CallStatusOngoing})
		require.NoError(t, err)
		assert.Nil(t, res.OilChangePrice)
		assert.Nil(t, res.SentToVoicemail)
		assert.Nil(t, res.RecordingURL)
	})
}
