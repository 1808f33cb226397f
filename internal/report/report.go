// Package report aggregates print events into period totals.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fruivita/sci/internal/platform/cache"
	"github.com/fruivita/sci/internal/rbac"
	"github.com/fruivita/sci/internal/shared"
)

// DefaultTTL bounds how long a generated report is reused.
const DefaultTTL = 60 * time.Second

// GroupBy selects the report dimension.
type GroupBy string

// Report dimensions.
const (
	GroupByDepartment GroupBy = "department"
	GroupByPrinter    GroupBy = "printer"
	GroupByServer     GroupBy = "server"
	GroupByClient     GroupBy = "client"
	GroupByUser       GroupBy = "user"
)

// Bucket selects the period granularity.
type Bucket string

// Period granularities.
const (
	BucketDay   Bucket = "day"
	BucketMonth Bucket = "month"
	BucketYear  Bucket = "year"
)

// Query describes a report. From and To are inclusive calendar dates.
type Query struct {
	From    time.Time `json:"from" validate:"required"`
	To      time.Time `json:"to" validate:"required,gtefield=From"`
	GroupBy GroupBy   `json:"group_by" validate:"required,oneof=department printer server client user"`
	Bucket  Bucket    `json:"bucket" validate:"required,oneof=day month year"`
}

// Row is one group total for one period. Pages counts printed sheets,
// that is pages times copies.
type Row struct {
	Group  string    `json:"group"`
	Period time.Time `json:"period"`
	Jobs   int64     `json:"jobs"`
	Pages  int64     `json:"pages"`
}

// RepositoryPort runs the aggregate query.
type RepositoryPort interface {
	Aggregate(ctx context.Context, q Query) ([]Row, error)
}

// Authorizer decides whether an actor holds a permission.
type Authorizer interface {
	Authorize(ctx context.Context, actor rbac.User, permission string) error
}

// Config collects Service dependencies.
type Config struct {
	Repo   RepositoryPort
	Authz  Authorizer
	Store  cache.Store
	TTL    time.Duration
	Logger *slog.Logger
}

// Service generates memoized reports.
type Service struct {
	repo     RepositoryPort
	authz    Authorizer
	store    cache.Store
	ttl      time.Duration
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(cfg Config) *Service {
	s := &Service{
		repo:     cfg.Repo,
		authz:    cfg.Authz,
		store:    cfg.Store,
		ttl:      cfg.TTL,
		logger:   cfg.Logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Generate returns the report rows ordered by period then group.
func (s *Service) Generate(ctx context.Context, actor rbac.User, q Query) ([]Row, error) {
	if err := s.authz.Authorize(ctx, actor, shared.PermReportsView); err != nil {
		return nil, err
	}
	q.From = day(q.From)
	q.To = day(q.To)
	if err := s.validate.Struct(q); err != nil {
		return nil, errors.Join(shared.ErrValidation, fmt.Errorf("report: %w", err))
	}
	key := cache.Key("report", string(q.GroupBy), string(q.Bucket), q.From.Format(time.DateOnly), q.To.Format(time.DateOnly))
	return cache.Remember(ctx, s.store, key, s.ttl, func(ctx context.Context) ([]Row, error) {
		rows, err := s.repo.Aggregate(ctx, q)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []Row{}
		}
		return rows, nil
	}, func(err error) {
		s.logger.Warn("report cache unavailable", slog.Any("error", err))
	})
}

func day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
