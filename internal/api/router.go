// Package api serves the local index over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/seedsindex/internal/engine"
	"github.com/roach88/seedsindex/internal/ledger"
	"github.com/roach88/seedsindex/internal/record"
	"github.com/roach88/seedsindex/internal/topic"
)

// Service is what the handlers need from a running node.
type Service interface {
	FindByTopic(tag topic.Tag) []record.Record
	RecordByNodeID(id string) (record.Record, bool)
	MyNodeID() (string, error)
	MyRecord() (record.Record, bool)
	SetMyRecord(ctx context.Context, location string, topics ...topic.Tag) (ledger.Receipt, error)
	DeleteMyRecord(ctx context.Context) (ledger.Receipt, error)
	Synchronizer() *engine.Synchronizer
}

func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { writeSuccess(w, http.StatusOK, "ok", nil) })
	r.Get("/readyz", h.ready)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/topics", h.listTopics)
		r.Get("/participants", h.findParticipants)
		r.Get("/participants/{id}", h.getParticipant)
		r.Get("/self", h.getSelf)
		r.Put("/self", h.putSelf)
		r.Delete("/self", h.deleteSelf)
	})
	return r
}
