package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/workoutcompanion/internal/telemetry/tracing"
	"github.com/2beens/workoutcompanion/pkg"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const (
	listCacheKey        = "catalog-list"
	listCacheTTLSeconds = 5 * 60
)

type catalogRepo interface {
	Add(ctx context.Context, entry Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context) ([]Entry, error)
	Search(ctx context.Context, query string) ([]Entry, error)
	Update(ctx context.Context, entry Entry) error
	UpdateDescription(ctx context.Context, id, description string) error
	Delete(ctx context.Context, id string) error
}

type exerciseDescriber interface {
	DescribeExercise(ctx context.Context, name string) (string, error)
}

type DescriptionResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

type DeleteEntryResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	repo      catalogRepo
	describer exerciseDescriber
	cache     *freecache.Cache
}

func NewHandler(repo catalogRepo, describer exerciseDescriber, cache *freecache.Cache) *Handler {
	return &Handler{
		repo:      repo,
		describer: describer,
		cache:     cache,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("", handler.HandleList).Methods("GET", "OPTIONS").Name("catalog-list")
	router.HandleFunc("", handler.HandleAdd).Methods("POST", "OPTIONS").Name("catalog-add")
	router.HandleFunc("/search", handler.HandleSearch).Methods("GET", "OPTIONS").Name("catalog-search")
	router.HandleFunc("/{id}", handler.HandleUpdate).Methods("PUT", "OPTIONS").Name("catalog-update")
	router.HandleFunc("/{id}", handler.HandleDelete).Methods("DELETE", "OPTIONS").Name("catalog-delete")
	router.HandleFunc("/{id}/description", handler.HandleDescription).Methods("GET", "OPTIONS").Name("catalog-description")
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.list")
	defer span.End()

	if cached, err := handler.cache.Get([]byte(listCacheKey)); err == nil {
		log.Tracef("catalog list: cache hit")
		pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, cached)
		return
	}

	entries, err := handler.repo.List(ctx)
	if err != nil {
		log.Errorf("failed to list catalog: %s", err)
		http.Error(w, "error, failed to list catalog", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	entriesJson, err := json.Marshal(entries)
	if err != nil {
		log.Errorf("failed to marshal catalog entries: %s", err)
		http.Error(w, "error, failed to list catalog", http.StatusInternalServerError)
		return
	}

	if err := handler.cache.Set([]byte(listCacheKey), entriesJson, listCacheTTLSeconds); err != nil {
		log.Warnf("failed to cache catalog list: %s", err)
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, entriesJson)
}

func (handler *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.search")
	defer span.End()

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		http.Error(w, "error, query empty", http.StatusBadRequest)
		return
	}

	entries, err := handler.repo.Search(ctx, query)
	if err != nil {
		log.Errorf("failed to search catalog [%s]: %s", query, err)
		http.Error(w, "error, failed to search catalog", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	entriesJson, err := json.Marshal(entries)
	if err != nil {
		log.Errorf("failed to marshal catalog search results: %s", err)
		http.Error(w, "error, failed to search catalog", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, entriesJson)
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Errorf("add catalog entry, unmarshal json params: %s", err)
		http.Error(w, "add catalog entry failed", http.StatusBadRequest)
		return
	}
	if entry.ID == "" || entry.Name == "" {
		http.Error(w, "error, entry id or name empty", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Add(ctx, entry); err != nil {
		log.Errorf("failed to add catalog entry [%s]: %s", entry.ID, err)
		http.Error(w, "error, failed to add catalog entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Del([]byte(listCacheKey))

	entryJson, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("failed to marshal catalog entry: %s", err)
		http.Error(w, "error, failed to add catalog entry", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	id := mux.Vars(r)["id"]

	var entry Entry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		log.Errorf("update catalog entry, unmarshal json params: %s", err)
		http.Error(w, "update catalog entry failed", http.StatusBadRequest)
		return
	}
	entry.ID = id

	if err := handler.repo.Update(ctx, entry); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "catalog entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update catalog entry [%s]: %s", id, err)
		http.Error(w, "error, failed to update catalog entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Del([]byte(listCacheKey))

	entryJson, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("failed to marshal catalog entry: %s", err)
		http.Error(w, "error, failed to update catalog entry", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, entryJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.delete")
	defer span.End()

	id := mux.Vars(r)["id"]

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "catalog entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete catalog entry [%s]: %s", id, err)
		http.Error(w, "error, failed to delete catalog entry", http.StatusInternalServerError)
		return
	}

	handler.cache.Del([]byte(listCacheKey))

	respJson, err := json.Marshal(DeleteEntryResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "error, failed to delete catalog entry", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

// HandleDescription serves the entry description, generating and
// storing it on first access.
func (handler *Handler) HandleDescription(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.description")
	defer span.End()

	id := mux.Vars(r)["id"]

	entry, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "catalog entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get catalog entry [%s]: %s", id, err)
		http.Error(w, "error, failed to get description", http.StatusInternalServerError)
		return
	}

	description := entry.Description
	if description == "" {
		if handler.describer == nil {
			http.Error(w, "description not available", http.StatusServiceUnavailable)
			return
		}
		description, err = handler.describer.DescribeExercise(ctx, entry.Name)
		if err != nil {
			log.Errorf("failed to describe exercise [%s]: %s", entry.Name, err)
			http.Error(w, "error, failed to get description", http.StatusInternalServerError)
			return
		}
		if err := handler.repo.UpdateDescription(ctx, id, description); err != nil {
			log.Warnf("failed to store description for [%s]: %s", id, err)
		}
	}

	respJson, err := json.Marshal(DescriptionResponse{ID: id, Description: description})
	if err != nil {
		log.Errorf("failed to marshal description response: %s", err)
		http.Error(w, "error, failed to get description", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}
