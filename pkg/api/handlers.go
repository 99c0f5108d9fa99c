package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"

	"github.com/ssargent/datumkit/pkg/codec"
	"github.com/ssargent/datumkit/pkg/normalize"
	"github.com/ssargent/datumkit/pkg/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 1000
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, map[string]string{"status": "healthy"})
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	infos := make([]StoreInfo, 0, len(s.names))
	for _, name := range s.names {
		infos = append(infos, StoreInfo{Name: name, Path: s.stores[name].Path()})
	}
	sendSuccess(w, infos)
}

// store resolves the {store} URL parameter, writing a 404 if it is unknown
func (s *Server) store(w http.ResponseWriter, r *http.Request) (string, storage.OrderedStore, bool) {
	name := chi.URLParam(r, "store")
	st, ok := s.stores[name]
	if !ok {
		sendError(w, "Unknown store: "+name, http.StatusNotFound)
		return "", nil, false
	}
	return name, st, true
}

// handleListRecords pages through a store in key order, starting at the
// first key >= start.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.store(w, r)
	if !ok {
		return
	}

	limit := defaultPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			sendError(w, "limit must be between 1 and "+strconv.Itoa(maxPageSize), http.StatusBadRequest)
			return
		}
		limit = n
	}
	withData := r.URL.Query().Get("data") == "true"

	it, err := st.NewIterator()
	if err != nil {
		sendError(w, "Failed to read store: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer it.Close()

	if start := r.URL.Query().Get("start"); start != "" {
		it.SeekGE([]byte(start))
	} else {
		it.First()
	}

	page := RecordPage{Store: name, Records: []RecordView{}}
	for ; it.Valid(); it.Next() {
		if len(page.Records) == limit {
			page.Next = string(it.Key())
			break
		}
		page.Records = append(page.Records, newRecordView(it.Key(), it.Value(), withData))
	}
	if err := it.Error(); err != nil {
		sendError(w, "Failed to read store: "+err.Error(), http.StatusInternalServerError)
		return
	}
	sendSuccess(w, page)
}

// handleGetRecord returns the record under key, or with neighbor=next|prev
// the record after or before it. The key itself need not exist when
// stepping.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	_, st, ok := s.store(w, r)
	if !ok {
		return
	}
	key, err := url.PathUnescape(chi.URLParam(r, "key"))
	if err != nil {
		sendError(w, "Invalid key encoding", http.StatusBadRequest)
		return
	}
	withData := r.URL.Query().Get("data") == "true"

	neighbor := r.URL.Query().Get("neighbor")
	switch neighbor {
	case "":
		value, err := st.Get([]byte(key))
		if errors.Is(err, storage.ErrNotFound) {
			sendError(w, "Key not found", http.StatusNotFound)
			return
		}
		if err != nil {
			sendError(w, "Failed to get record: "+err.Error(), http.StatusInternalServerError)
			return
		}
		sendSuccess(w, newRecordView([]byte(key), value, withData))
		return
	case "next", "prev":
	default:
		sendError(w, "neighbor must be next or prev", http.StatusBadRequest)
		return
	}

	it, err := st.NewIterator()
	if err != nil {
		sendError(w, "Failed to read store: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer it.Close()

	found := it.SeekGE([]byte(key))
	if neighbor == "next" {
		if found && string(it.Key()) == key {
			it.Next()
		}
	} else if found {
		it.Prev()
	} else if it.Error() == nil {
		it.Last()
	}

	if err := it.Error(); err != nil {
		sendError(w, "Failed to read store: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if !it.Valid() {
		sendError(w, "No "+neighbor+" record", http.StatusNotFound)
		return
	}
	sendSuccess(w, newRecordView(it.Key(), it.Value(), withData))
}

// handleStats scans a whole store: it counts records, infers the schema from
// the first one, counts records that deviate from it, and collects float
// field ranges.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	name, st, ok := s.store(w, r)
	if !ok {
		return
	}

	it, err := st.NewIterator()
	if err != nil {
		sendError(w, "Failed to read store: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer it.Close()

	stats := StoreStats{Store: name}
	var collector *normalize.Collector
	for it.First(); it.Valid(); it.Next() {
		key := it.Key()
		if stats.Count == 0 {
			stats.FirstKey = string(key)
		}
		stats.LastKey = string(key)
		stats.Count++

		rec, err := codec.Unmarshal(it.Value())
		if err != nil {
			stats.Mismatches++
			continue
		}
		if stats.Schema == nil {
			stats.Schema = &codec.Schema{Shape: rec.Shape(), FloatFields: len(rec.FloatData)}
			if stats.Schema.FloatFields > 0 {
				collector = normalize.NewCollector()
			}
		} else if stats.Schema.Check(key, rec) != nil {
			stats.Mismatches++
		}

		if collector != nil {
			if err := collector.Observe(key, rec.FloatData); err != nil {
				stats.FieldError = err.Error()
				collector = nil
			}
		}
	}
	if err := it.Error(); err != nil {
		sendError(w, "Failed to read store: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if collector != nil {
		fields := collector.Stats()
		stats.Fields = &fields
	}
	sendSuccess(w, stats)
}
