package http

import (
	"context"
	"log/slog"
	"net/http"

	"finmirror/internal/domain/instrument"
	"finmirror/internal/domain/merchant"
)

type ReferenceService interface {
	GetInstruments(ctx context.Context) ([]*instrument.Instrument, error)
	GetMerchants(ctx context.Context) ([]*merchant.Merchant, error)
}

// ReferenceHandler serves the read-only lookup tables.
type ReferenceHandler struct {
	refs   ReferenceService
	logger *slog.Logger
}

func NewReferenceHandler(refs ReferenceService, logger *slog.Logger) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, logger: loggerOrDefault(logger)}
}

type InstrumentResponse struct {
	*instrument.Instrument
	Changed int64 `json:"changed"`
}

type ListInstrumentsResponse struct {
	Instruments []InstrumentResponse `json:"instruments"`
}

type MerchantResponse struct {
	*merchant.Merchant
	Changed int64 `json:"changed"`
}

type ListMerchantsResponse struct {
	Merchants []MerchantResponse `json:"merchants"`
}

func (h *ReferenceHandler) HandleListInstruments(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	instruments, err := h.refs.GetInstruments(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := ListInstrumentsResponse{Instruments: make([]InstrumentResponse, 0, len(instruments))}
	for _, i := range instruments {
		response.Instruments = append(response.Instruments, InstrumentResponse{Instrument: i, Changed: i.Changed.Unix()})
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *ReferenceHandler) HandleListMerchants(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	merchants, err := h.refs.GetMerchants(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := ListMerchantsResponse{Merchants: make([]MerchantResponse, 0, len(merchants))}
	for _, m := range merchants {
		response.Merchants = append(response.Merchants, MerchantResponse{Merchant: m, Changed: m.Changed.Unix()})
	}
	writeJSON(w, http.StatusOK, response)
}
