package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"elevadorpro/internal/export"
	"elevadorpro/pkg/domain"
)

// hiddenFields never leave the server.
var hiddenFields = map[domain.Collection][]string{
	domain.CollectionUsers: {"senha"},
}

func (h *Handler) handleCollection(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	c, err := domain.ParseCollection(parts[0])
	if err != nil {
		h.message(w, r, http.StatusNotFound, "collection_unknown", "Name", parts[0])
		return
	}
	if _, ok := h.requireSession(w, r); !ok {
		return
	}
	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.listRecords(w, r, c)
		case http.MethodPost:
			h.createRecord(w, r, c)
		default:
			h.methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
	case len(parts) == 2 && parts[1] == "export":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r, http.MethodGet)
			return
		}
		h.exportRecords(w, r, c)
	case len(parts) == 2 && parts[1] == "events":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r, http.MethodGet)
			return
		}
		h.streamEvents(w, r, c)
	case len(parts) == 2 && parts[1] != "":
		id := parts[1]
		switch r.Method {
		case http.MethodGet:
			h.getRecord(w, r, c, id)
		case http.MethodPut:
			h.updateRecord(w, r, c, id)
		case http.MethodDelete:
			h.removeRecord(w, r, c, id)
		default:
			h.methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
		}
	default:
		h.message(w, r, http.StatusNotFound, "not_found")
	}
}

func (h *Handler) listRecords(w http.ResponseWriter, r *http.Request, c domain.Collection) {
	q := r.URL.Query()
	recs, err := h.filtered(r.Context(), c, q.Get("q"), q.Get("status"))
	if err != nil {
		h.fail(w, r, err, "Name", string(c))
		return
	}
	items := make([]domain.Record, len(recs))
	for i, rec := range recs {
		items[i] = public(c, rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(items)})
}

// filtered returns the merged collection narrowed by the search term and,
// for operations, an exact status.
func (h *Handler) filtered(ctx context.Context, c domain.Collection, q, status string) ([]domain.Record, error) {
	recs, err := h.svc.List(ctx, c)
	if err != nil || (strings.TrimSpace(q) == "" && strings.TrimSpace(status) == "") {
		return recs, err
	}
	keep := make(map[string]bool)
	switch c {
	case domain.CollectionClients:
		found, err := h.svc.SearchClients(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, v := range found {
			keep[v.ID] = true
		}
	case domain.CollectionElevators:
		found, err := h.svc.SearchElevators(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, v := range found {
			keep[v.ID] = true
		}
	case domain.CollectionOperations:
		found, err := h.svc.SearchOperations(ctx, q, status)
		if err != nil {
			return nil, err
		}
		for _, v := range found {
			keep[v.ID] = true
		}
	default:
		return recs, nil
	}
	out := make([]domain.Record, 0, len(keep))
	for _, rec := range recs {
		if keep[rec.ID()] {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (h *Handler) getRecord(w http.ResponseWriter, r *http.Request, c domain.Collection, id string) {
	rec, err := h.svc.Get(r.Context(), c, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": public(c, rec)})
}

func (h *Handler) createRecord(w http.ResponseWriter, r *http.Request, c domain.Collection) {
	if h.readOnly(w, r, c) {
		return
	}
	var rec domain.Record
	if err := decodeBody(w, r, &rec); err != nil || rec == nil {
		h.message(w, r, http.StatusBadRequest, "invalid_body")
		return
	}
	created, err := h.svc.Create(r.Context(), c, rec)
	if err != nil {
		h.fail(w, r, err, "ID", rec.ID())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": public(c, created)})
}

func (h *Handler) updateRecord(w http.ResponseWriter, r *http.Request, c domain.Collection, id string) {
	if h.readOnly(w, r, c) {
		return
	}
	var patch domain.Record
	if err := decodeBody(w, r, &patch); err != nil || patch == nil {
		h.message(w, r, http.StatusBadRequest, "invalid_body")
		return
	}
	updated, err := h.svc.Update(r.Context(), c, patch.WithID(id))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"item": public(c, updated)})
}

func (h *Handler) removeRecord(w http.ResponseWriter, r *http.Request, c domain.Collection, id string) {
	if h.readOnly(w, r, c) {
		return
	}
	if err := h.svc.Remove(r.Context(), c, id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readOnly rejects writes to collections managed outside the API.
func (h *Handler) readOnly(w http.ResponseWriter, r *http.Request, c domain.Collection) bool {
	if c != domain.CollectionUsers {
		return false
	}
	w.Header().Set("Allow", http.MethodGet)
	h.message(w, r, http.StatusMethodNotAllowed, "collection_read_only", "Name", string(c))
	return true
}

func (h *Handler) exportRecords(w http.ResponseWriter, r *http.Request, c domain.Collection) {
	q := r.URL.Query()
	f, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		h.message(w, r, http.StatusBadRequest, "export_format", "Format", q.Get("format"))
		return
	}
	recs, err := h.filtered(r.Context(), c, q.Get("q"), q.Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(c, f, h.now())))
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, f, c, recs, hiddenFields[c]...); err != nil {
		h.log.Error("export failed", "collection", c, "format", f, "error", err)
	}
}

// streamEvents pushes a "changed" server-sent event whenever the overlay of
// c is written. Bursts collapse into one pending event.
func (h *Handler) streamEvents(w http.ResponseWriter, r *http.Request, c domain.Collection) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.message(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	changes := make(chan struct{}, 1)
	unsubscribe := h.svc.Engine().Subscribe(c, func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: ready\ndata: {\"collection\":%q}\n\n", c)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-changes:
			fmt.Fprintf(w, "event: changed\ndata: {\"collection\":%q}\n\n", c)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func public(c domain.Collection, rec domain.Record) domain.Record {
	hidden := hiddenFields[c]
	if len(hidden) == 0 {
		return rec
	}
	out := rec.Clone()
	for _, f := range hidden {
		delete(out, f)
	}
	return out
}
