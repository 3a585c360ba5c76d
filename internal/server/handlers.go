package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/tannerfalls/playlistdb/internal/query"
	"github.com/tannerfalls/playlistdb/internal/repositories"
	"github.com/tannerfalls/playlistdb/internal/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// APIHandler serves the read endpoints over the persisted catalog.
type APIHandler struct {
	playlists *repositories.PlaylistRepository
	tracks    *repositories.TrackRepository
	artists   *repositories.ArtistRepository
	searcher  *query.Searcher
	logger    *log.Logger
}

// NewAPIHandler builds the handler and its search vocabularies from db.
func NewAPIHandler(db *sql.DB, logger *log.Logger) (*APIHandler, error) {
	searcher, err := query.NewSearcher(db, logger)
	if err != nil {
		return nil, err
	}

	return &APIHandler{
		playlists: repositories.NewPlaylistRepository(db),
		tracks:    repositories.NewTrackRepository(db),
		artists:   repositories.NewArtistRepository(db),
		searcher:  searcher,
		logger:    logger,
	}, nil
}

// Routes returns the path patterns this handler serves.
func (h *APIHandler) Routes() []string {
	return []string{
		"GET /api/playlists",
		"GET /api/playlists/{pid}",
		"GET /api/tracks",
		"GET /api/tracks/{id}",
		"GET /api/search",
		"GET /api/status",
	}
}

// ServeHTTP dispatches to the endpoint handlers by pattern.
func (h *APIHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.PathValue("pid") != "":
		h.getPlaylist(w, r)
	case r.PathValue("id") != "":
		h.getTrack(w, r)
	case r.URL.Path == "/api/playlists":
		h.listPlaylists(w, r)
	case r.URL.Path == "/api/tracks":
		h.listTracks(w, r)
	case r.URL.Path == "/api/search":
		h.search(w, r)
	case r.URL.Path == "/api/status":
		h.status(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *APIHandler) listPlaylists(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	playlists, err := h.playlists.List(limit, offset)
	if err != nil {
		h.logger.Error("listing playlists", "error", err)
		writeError(w, http.StatusInternalServerError, "listing playlists failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playlists": playlists,
		"limit":     limit,
		"offset":    offset,
	})
}

func (h *APIHandler) getPlaylist(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.Atoi(r.PathValue("pid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "pid must be an integer")
		return
	}

	playlist, err := h.playlists.Get(pid)
	if err != nil {
		if errors.Is(err, shared.ErrPlaylistNotFound) {
			writeError(w, http.StatusNotFound, "playlist not found")
			return
		}
		h.logger.Error("fetching playlist", "pid", pid, "error", err)
		writeError(w, http.StatusInternalServerError, "fetching playlist failed")
		return
	}

	writeJSON(w, http.StatusOK, playlist)
}

func (h *APIHandler) listTracks(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)

	tracks, err := h.tracks.List(limit, offset)
	if err != nil {
		h.logger.Error("listing tracks", "error", err)
		writeError(w, http.StatusInternalServerError, "listing tracks failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks": tracks,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *APIHandler) getTrack(w http.ResponseWriter, r *http.Request) {
	track, err := h.tracks.Get(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			writeError(w, http.StatusNotFound, "track not found")
			return
		}
		h.logger.Error("fetching track", "error", err)
		writeError(w, http.StatusInternalServerError, "fetching track failed")
		return
	}

	writeJSON(w, http.StatusOK, track)
}

func (h *APIHandler) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}

	limit := query.DefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxPageSize)
	}

	matches, filter, err := h.searcher.Search(r.Context(), q, limit)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "query contains no recognizable filters")
			return
		}
		h.logger.Error("search failed", "q", q, "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"filter":  filter,
		"matches": matches,
	})
}

func (h *APIHandler) status(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.Count()
	if err != nil {
		h.logger.Error("counting playlists", "error", err)
		writeError(w, http.StatusInternalServerError, "status failed")
		return
	}

	tracks, err := h.tracks.Count()
	if err != nil {
		h.logger.Error("counting tracks", "error", err)
		writeError(w, http.StatusInternalServerError, "status failed")
		return
	}

	artists, err := h.artists.Count()
	if err != nil {
		h.logger.Error("counting artists", "error", err)
		writeError(w, http.StatusInternalServerError, "status failed")
		return
	}

	resp := map[string]any{
		"playlists": playlists,
		"tracks":    tracks,
		"artists":   artists,
	}
	if minPID, maxPID, ok, err := h.playlists.PIDRange(); err == nil && ok {
		resp["min_pid"] = minPID
		resp["max_pid"] = maxPID
	}

	writeJSON(w, http.StatusOK, resp)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = min(parsed, maxPageSize)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
