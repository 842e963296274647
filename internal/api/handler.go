package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/seedsindex/internal/engine"
	"github.com/roach88/seedsindex/internal/ledger"
	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

// maxSelfBody caps the PUT /v1/self request body.
const maxSelfBody = 64 << 10

type Handler struct{ svc Service }

func NewHandler(svc Service) *Handler { return &Handler{svc: svc} }

type readyResponse struct {
	State string       `json:"state"`
	Stats engine.Stats `json:"stats"`
}

type selfRequest struct {
	Location   string   `json:"location"`
	Categories []string `json:"categories"`
}

type receiptResponse struct {
	ID     string `json:"id"`
	TxHash string `json:"tx_hash"`
	Block  uint64 `json:"block"`
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	s := h.svc.Synchronizer()
	resp := readyResponse{State: s.State().String(), Stats: s.Stats()}
	if s.State() != engine.StateLive {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "synchronizer is "+resp.State, requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "ready", resp)
}

func (h *Handler) listTopics(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "", topic.All())
}

func (h *Handler) findParticipants(w http.ResponseWriter, r *http.Request) {
	tag := topic.Any
	if label := strings.TrimSpace(r.URL.Query().Get("topic")); label != "" {
		var ok bool
		if tag, ok = topic.ByLabel(label); !ok {
			writeError(w, http.StatusBadRequest, "unknown_topic", "unknown topic "+label, requestIDFromContext(r.Context()))
			return
		}
	}
	writeSuccess(w, http.StatusOK, "", sortByID(h.svc.FindByTopic(tag)))
}

func (h *Handler) getParticipant(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.svc.RecordByNodeID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no participant with that id", requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", rec)
}

func (h *Handler) getSelf(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.MyNodeID(); err != nil {
		status, code := mapWriteError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	rec, ok := h.svc.MyRecord()
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "own record not published", requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "", rec)
}

func (h *Handler) putSelf(w http.ResponseWriter, r *http.Request) {
	var req selfRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxSelfBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", err.Error(), requestIDFromContext(r.Context()))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), requestIDFromContext(r.Context()))
		return
	}
	tags := make([]topic.Tag, 0, len(req.Categories))
	for _, label := range req.Categories {
		tag, ok := topic.ByLabel(label)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown_topic", "unknown topic "+label, requestIDFromContext(r.Context()))
			return
		}
		tags = append(tags, tag)
	}
	if _, err := record.New(req.Location, tags...); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_record", err.Error(), requestIDFromContext(r.Context()))
		return
	}

	receipt, err := h.svc.SetMyRecord(r.Context(), req.Location, tags...)
	if err != nil {
		status, code := mapWriteError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "published", h.receipt(receipt))
}

// deleteSelf answers 202: the local entry goes away only when the
// deletion event is applied.
func (h *Handler) deleteSelf(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.svc.DeleteMyRecord(r.Context())
	if err != nil {
		status, code := mapWriteError(err)
		writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusAccepted, "retracted", h.receipt(receipt))
}

func (h *Handler) receipt(rc ledger.Receipt) receiptResponse {
	id, _ := h.svc.MyNodeID()
	return receiptResponse{ID: id, TxHash: rc.TxHash, Block: rc.Block}
}

func sortByID(rs []record.Record) []record.Record {
	if rs == nil {
		return []record.Record{}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
	return rs
}
