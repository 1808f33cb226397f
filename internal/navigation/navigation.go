// Package navigation serves previous/next lookups and select-all snapshots
// for list screens.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/fruivita/sci/internal/platform/cache"
	"github.com/fruivita/sci/internal/shared"
)

// DefaultTTL bounds how long a derived view is reused.
const DefaultTTL = 60 * time.Second

// Resource names a navigable table.
type Resource string

// Navigable resources.
const (
	ResourceUsers    Resource = "users"
	ResourceRoles    Resource = "roles"
	ResourcePrinters Resource = "printers"
	ResourceServers  Resource = "servers"
	ResourceClients  Resource = "clients"
)

// ErrUnknownResource reports a resource outside the navigable set.
var ErrUnknownResource = errors.Join(shared.ErrValidation, errors.New("navigation: unknown resource"))

// ParseResource validates a resource name.
func ParseResource(raw string) (Resource, error) {
	r := Resource(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case ResourceUsers, ResourceRoles, ResourcePrinters, ResourceServers, ResourceClients:
		return r, nil
	}
	return "", ErrUnknownResource
}

// Neighbors holds the ids adjacent to a record in id order. Nil means the
// record is at that edge.
type Neighbors struct {
	Previous *int64 `json:"previous"`
	Next     *int64 `json:"next"`
}

// RepositoryPort reads ids from the navigable tables.
type RepositoryPort interface {
	Neighbors(ctx context.Context, resource Resource, id int64) (Neighbors, error)
	IDs(ctx context.Context, resource Resource) ([]int64, error)
}

// Config collects Service dependencies.
type Config struct {
	Repo   RepositoryPort
	Store  cache.Store
	TTL    time.Duration
	Logger *slog.Logger
}

// Service memoizes navigation views.
type Service struct {
	repo   RepositoryPort
	store  cache.Store
	ttl    time.Duration
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config) *Service {
	s := &Service{repo: cfg.Repo, store: cfg.Store, ttl: cfg.TTL, logger: cfg.Logger}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Neighbors returns the previous and next ids around id.
func (s *Service) Neighbors(ctx context.Context, resource Resource, id int64) (Neighbors, error) {
	if _, err := ParseResource(string(resource)); err != nil {
		return Neighbors{}, err
	}
	if id <= 0 {
		return Neighbors{}, errors.Join(shared.ErrValidation, fmt.Errorf("navigation: invalid id %d", id))
	}
	key := cache.Key("nav", "neighbors", string(resource), strconv.FormatInt(id, 10))
	return cache.Remember(ctx, s.store, key, s.ttl, func(ctx context.Context) (Neighbors, error) {
		return s.repo.Neighbors(ctx, resource, id)
	}, s.storeFailed)
}

// SelectAll returns every id of resource as seen by the component instance
// componentID. Repeated calls within the TTL return the same snapshot.
func (s *Service) SelectAll(ctx context.Context, componentID string, resource Resource) ([]int64, error) {
	if _, err := ParseResource(string(resource)); err != nil {
		return nil, err
	}
	componentID = strings.TrimSpace(componentID)
	if componentID == "" {
		return nil, errors.Join(shared.ErrValidation, errors.New("navigation: component id required"))
	}
	key := cache.Key("nav", "select-all", componentID, string(resource))
	return cache.Remember(ctx, s.store, key, s.ttl, func(ctx context.Context) ([]int64, error) {
		ids, err := s.repo.IDs(ctx, resource)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []int64{}
		}
		return ids, nil
	}, s.storeFailed)
}

func (s *Service) storeFailed(err error) {
	s.logger.Warn("navigation cache unavailable", slog.Any("error", err))
}
