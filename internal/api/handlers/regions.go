package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/gorilla/mux"

	"github.com/orunio/climate/backend/internal/aggregator"
	"github.com/orunio/climate/backend/internal/contracts"
	"github.com/orunio/climate/backend/internal/regions"
	"github.com/orunio/climate/backend/internal/store"
	"github.com/orunio/climate/backend/pkg/logger"
	"github.com/orunio/climate/backend/pkg/redis"
)

const maxDays = 365

// Aggregator runs one region request
type Aggregator interface {
	Run(ctx context.Context, req aggregator.Request) contracts.AggregateRecord
	Names() []string
}

// LatestStore reads persisted runs
type LatestStore interface {
	LatestAggregate(ctx context.Context, region string) (*contracts.AggregateRecord, error)
}

// RegionHandler serves the region table and region profiles
// ⭐ SSOT: 지역 API 핸들러는 이 구조체에서만
type RegionHandler struct {
	table  *regions.Table
	agg    Aggregator
	cache  *redis.Cache // optional
	store  LatestStore  // optional
	logger *logger.Logger
}

// NewRegionHandler creates a new region handler; cache and store may be nil
func NewRegionHandler(table *regions.Table, agg Aggregator, cache *redis.Cache, st LatestStore, log *logger.Logger) *RegionHandler {
	return &RegionHandler{
		table:  table,
		agg:    agg,
		cache:  cache,
		store:  st,
		logger: log,
	}
}

// List returns every region
// GET /api/regions
func (h *RegionHandler) List(w http.ResponseWriter, r *http.Request) {
	list := h.table.List()
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := list[:0:0]
		for _, reg := range list {
			if string(reg.Kind) == kind {
				filtered = append(filtered, reg)
			}
		}
		list = filtered
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(list),
		"regions": list,
	})
}

// Get returns one region
// GET /api/regions/{name}
func (h *RegionHandler) Get(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, reg)
}

// Profile aggregates a region, served from Redis when cached
// GET /api/regions/{name}/profile?sources=a,b&days=30
func (h *RegionHandler) Profile(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.lookup(w, r)
	if !ok {
		return
	}

	sources, ok := h.sources(w, r)
	if !ok {
		return
	}

	days, ok := queryInt(r, "days", 0, maxDays)
	if !ok {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxDays))
		return
	}

	run := func() (interface{}, error) {
		return h.agg.Run(r.Context(), aggregator.Request{Region: reg, Names: sources, Days: days}), nil
	}

	// 기본 기간 요청만 캐시
	if h.cache == nil || days != 0 {
		rec, _ := run()
		respondJSON(w, http.StatusOK, rec)
		return
	}

	var rec contracts.AggregateRecord
	if err := h.cache.GetOrSet(r.Context(), redis.RegionProfileKey(reg.Key, sources), &rec, redis.TTLMedium, run); err != nil {
		h.logger.WithError(err).Error("Failed to build region profile")
		respondError(w, http.StatusInternalServerError, "Failed to build region profile")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Latest returns the most recent persisted run
// GET /api/regions/{name}/latest
func (h *RegionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "Persistence is not configured")
		return
	}

	rec, err := h.store.LatestAggregate(r.Context(), reg.Key)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No stored run for "+reg.Key)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to load latest aggregate")
		respondError(w, http.StatusInternalServerError, "Failed to load latest aggregate")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *RegionHandler) lookup(w http.ResponseWriter, r *http.Request) (contracts.RegionProfile, bool) {
	reg, err := h.table.Lookup(mux.Vars(r)["name"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return contracts.RegionProfile{}, false
	}
	return reg, true
}

// sources validates ?sources= against registered names; the result is sorted
func (h *RegionHandler) sources(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	requested := splitList(r.URL.Query().Get("sources"))
	if len(requested) == 0 {
		return nil, true
	}

	known := make(map[string]bool)
	for _, n := range h.agg.Names() {
		known[n] = true
	}
	for _, n := range requested {
		if !known[n] {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown source %q", n))
			return nil, false
		}
	}

	sort.Strings(requested)
	return requested, true
}
