package beer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"BeerAPI/pkg/kit"
)

const (
	BasePath = "/api/v1/beer"

	PathList    = "/beer-list"
	PathGetByID = "/beer-by-id"
	PathCreate  = "/beer-create"
	PathUpdate  = "/beer-update"
	PathDelete  = "/beer-delete"
	PathPatch   = "/beer-patch"

	beerIDParam    = "beerId"
	maxRequestBody = 1 << 20
	readyzTimeout  = 1 * time.Second
)

type Server struct {
	Service Service
	Store   Store
	Log     *zap.Logger

	// Limiter, when set, guards the mutating routes.
	Limiter *kit.IPRateLimiter
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", s.readyz)

	r.Route(BasePath, func(br chi.Router) {
		br.Get(PathList, s.list)
		br.Get(PathGetByID, s.getByQuery)
		br.Get("/{"+beerIDParam+"}", s.getByPath)

		br.Group(func(mr chi.Router) {
			if s.Limiter != nil {
				mr.Use(s.Limiter.Middleware)
			}
			mr.Post(PathCreate, s.create)
			mr.Put(PathUpdate, s.update)
			mr.Delete(PathDelete, s.delete)
			mr.Patch(PathPatch, s.patch)
		})
	})

	return r
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
	defer cancel()

	if err := s.Store.Ping(ctx); err != nil {
		s.logger().Warn("readyz failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusServiceUnavailable, "not ready", nil)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	beers, err := s.Service.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, uuid.Nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, beers)
}

func (s *Server) getByQuery(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	s.get(w, r, id)
}

func (s *Server) getByPath(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, beerIDParam))
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid beerId", nil)
		return
	}
	s.get(w, r, id)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	b, found, err := s.Service.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err, id)
		return
	}
	if !found {
		kit.WriteEmpty(w, http.StatusNotFound)
		return
	}
	kit.WriteJSON(w, http.StatusOK, b)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var in Beer
	if err := decodeJSON(w, r, &in, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	id, err := s.Service.Create(r.Context(), in)
	if err != nil {
		s.writeServiceError(w, r, err, uuid.Nil)
		return
	}

	w.Header().Set("Location", Location(id))
	kit.WriteEmpty(w, http.StatusCreated)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}

	var in Beer
	if err := decodeJSON(w, r, &in, true); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if err := s.Service.Update(r.Context(), id, in); err != nil {
		s.writeServiceError(w, r, err, id)
		return
	}
	kit.WriteEmpty(w, http.StatusNoContent)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}

	if err := s.Service.Delete(r.Context(), id); err != nil {
		s.writeServiceError(w, r, err, id)
		return
	}
	kit.WriteEmpty(w, http.StatusNoContent)
}

// patch accepts any beer-shaped body; fields it does not know are ignored.
func (s *Server) patch(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}

	var p Patch
	if err := decodeJSON(w, r, &p, false); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if err := s.Service.Patch(r.Context(), id, p); err != nil {
		s.writeServiceError(w, r, err, id)
		return
	}
	kit.WriteEmpty(w, http.StatusNoContent)
}

// Location is the path of the beer resource with the given id.
func Location(id uuid.UUID) string {
	return BasePath + "/" + id.String()
}

func queryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.URL.Query().Get(beerIDParam)
	if raw == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "beerId required", nil)
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid beerId", map[string]any{"beerId": raw})
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error, id uuid.UUID) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteEmpty(w, http.StatusNotFound)
	case isTimeoutErr(err):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	default:
		s.logger().Error("beer operation failed", zap.Error(err), zap.Stringer("beer_id", id))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any, strict bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(r.Body)
	if strict {
		dec.DisallowUnknownFields()
	}

	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after json object")
	}
	return nil
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
