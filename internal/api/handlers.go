package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"oilcall-go/internal/aggregator"
	"oilcall-go/internal/processor"
	"oilcall-go/internal/report"
	"oilcall-go/internal/store"
	"oilcall-go/internal/types"
)

type createPhoneCallResponse struct {
	CallID string `json:"call_id"`
}

type getCallRequest struct {
	CallID string `json:"callId"`
}

func (h *Handler) createPhoneCall(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "create-phone-call")

	var req types.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields.")
		return
	}

	callID, err := h.calls.StartCall(r.Context(), req)
	if err != nil {
		var vErr *processor.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Msg)
			return
		}
		reqLog.WithError(err).Error("error creating phone call")
		writeError(w, http.StatusInternalServerError, "An error occurred while creating the phone call.")
		return
	}
	writeJSON(w, http.StatusOK, createPhoneCallResponse{CallID: callID})
}

func (h *Handler) getCall(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "get-call")

	var req getCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields.")
		return
	}

	call, err := h.calls.RefreshCall(r.Context(), req.CallID)
	if err != nil {
		var vErr *processor.ValidationError
		if errors.As(err, &vErr) {
			writeError(w, http.StatusBadRequest, vErr.Msg)
			return
		}
		reqLog.WithError(err).WithField("call_id", req.CallID).Error("error retrieving call")
		writeError(w, http.StatusInternalServerError, "An error occurred while retrieving the phone call.")
		return
	}
	writeJSON(w, http.StatusOK, call)
}

func (h *Handler) getStoredCall(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when the request carries one, so the param is still escaped.
	callID := chi.URLParam(r, "callID")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(callID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid call id.")
			return
		}
		callID = unescaped
	}
	pc, err := h.calls.GetPhoneCall(r.Context(), callID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Call not found.")
			return
		}
		h.log.WithRequest(r).WithError(err).Error("error loading call")
		writeError(w, http.StatusInternalServerError, "An error occurred while loading the phone call.")
		return
	}
	writeJSON(w, http.StatusOK, pc)
}

func (h *Handler) listCalls(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	calls, err := h.calls.ListPhoneCalls(r.Context(), limit)
	if err != nil {
		h.log.WithRequest(r).WithError(err).Error("error listing calls")
		writeError(w, http.StatusInternalServerError, "An error occurred while listing phone calls.")
		return
	}
	if calls == nil {
		calls = []types.PhoneCall{}
	}
	writeJSON(w, http.StatusOK, calls)
}

func (h *Handler) summarizeCalls(w http.ResponseWriter, r *http.Request) {
	calls, err := h.calls.ListPhoneCalls(r.Context(), 0)
	if err != nil {
		h.log.WithRequest(r).WithError(err).Error("error listing calls")
		writeError(w, http.StatusInternalServerError, "An error occurred while summarizing phone calls.")
		return
	}
	writeJSON(w, http.StatusOK, aggregator.Summarize(calls))
}

func (h *Handler) exportCalls(w http.ResponseWriter, r *http.Request) {
	reqLog := h.log.WithRequest(r).WithField("handler", "export")

	calls, err := h.calls.ListPhoneCalls(r.Context(), 0)
	if err != nil {
		reqLog.WithError(err).Error("error listing calls")
		writeError(w, http.StatusInternalServerError, "An error occurred while exporting phone calls.")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="phone-calls.xlsx"`)
	if err := report.WriteCalls(w, calls); err != nil {
		reqLog.WithError(err).Error("failed to write export")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
