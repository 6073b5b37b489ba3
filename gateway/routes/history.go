package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"stakeledger/integrations/exports"
	"stakeledger/storage/history"
)

const maxHistoryLimit = 1000

type historyRoutes struct {
	index *history.Index
}

func (h *historyRoutes) mount(r chi.Router) {
	r.Get("/payouts/{address}", h.payouts)
	r.Get("/activity/{address}", h.activity)
}

func historyFilter(r *http.Request) (history.Filter, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return history.Filter{}, err
	}
	q := r.URL.Query()
	f := history.Filter{
		Account: strings.ToLower(addr.Hex()),
		Module:  q.Get("module"),
		Kind:    q.Get("kind"),
		Limit:   100,
	}
	parse := func(name string, dst *uint64) error {
		raw := q.Get(name)
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s", name)
		}
		*dst = v
		return nil
	}
	if err := parse("from", &f.FromHeight); err != nil {
		return f, err
	}
	if err := parse("to", &f.ToHeight); err != nil {
		return f, err
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxHistoryLimit {
			return f, fmt.Errorf("limit must be between 1 and %d", maxHistoryLimit)
		}
		f.Limit = limit
	}
	return f, nil
}

func (h *historyRoutes) payouts(w http.ResponseWriter, r *http.Request) {
	f, err := historyFilter(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	rows, err := h.index.Payouts(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	if format := r.URL.Query().Get("format"); format != "" {
		h.export(w, format, rows)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"payouts": rows})
}

func (h *historyRoutes) export(w http.ResponseWriter, format string, rows []history.Payout) {
	f, err := exports.ParseFormat(format)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	data, sum, err := exports.Encode(f, rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	contentType := map[exports.Format]string{
		exports.FormatCSV:     "text/csv",
		exports.FormatJSONL:   "application/x-ndjson",
		exports.FormatParquet: "application/vnd.apache.parquet",
	}[f]
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Checksum-SHA256", sum)
	w.Header().Set("Content-Disposition", "attachment; filename=payouts"+f.Extension())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *historyRoutes) activity(w http.ResponseWriter, r *http.Request) {
	f, err := historyFilter(r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	rows, err := h.index.Activities(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"activity": rows})
}
