// Package catalog administra el catálogo de productos desde el que se reciben unidades.
package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/Bodegas-api/internal/domain"
	"github.com/jhoicas/Bodegas-api/internal/domain/entity"
	"github.com/jhoicas/Bodegas-api/internal/domain/repository"
	"github.com/jhoicas/Bodegas-api/pkg/logger"
)

// Source catálogo externo con el que se siembra el catálogo local la primera vez.
type Source interface {
	Fetch(ctx context.Context) ([]*entity.CatalogItem, error)
}

// Resources catálogo completo con sus categorías sin repetir, en orden de aparición.
type Resources struct {
	Categories []string
	Items      []*entity.CatalogItem
}

// ServiceDeps colaboradores del servicio. Source es opcional: sin él el catálogo
// solo contiene lo que ya esté guardado.
type ServiceDeps struct {
	Repo   repository.CatalogRepository
	Source Source
	Logger *logger.Logger
	Now    func() time.Time
}

// Service lectura y siembra del catálogo.
type Service struct {
	repo   repository.CatalogRepository
	source Source
	log    *logger.Logger
	now    func() time.Time
	seed   singleflight.Group
}

// NewService construye el servicio.
func NewService(deps ServiceDeps) *Service {
	s := &Service{repo: deps.Repo, source: deps.Source, log: deps.Logger, now: deps.Now}
	if s.log == nil {
		s.log = logger.Nop()
	}
	s.log = s.log.Named("catalog")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Init siembra el catálogo desde la fuente si está vacío. Las llamadas concurrentes
// comparten una sola siembra.
func (s *Service) Init(ctx context.Context) error {
	_, err, _ := s.seed.Do("init", func() (any, error) {
		n, err := s.repo.Count(ctx)
		if err != nil {
			return nil, domain.Persistence("contar catálogo", err)
		}
		if n > 0 || s.source == nil {
			return nil, nil
		}
		items, err := s.source.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		now := s.now()
		for _, it := range items {
			it.ID = uuid.New().String()
			it.CreatedAt = now
		}
		if err := s.repo.CreateMany(ctx, items); err != nil {
			return nil, domain.Persistence("sembrar catálogo", err)
		}
		s.log.WithContext(ctx).Info().Int("items", len(items)).Msg("catálogo sembrado")
		return nil, nil
	})
	return err
}

// GetResources siembra si hace falta y devuelve el catálogo. Un fallo de la siembra
// se registra y se responde con lo que haya guardado.
func (s *Service) GetResources(ctx context.Context) (*Resources, error) {
	if err := s.Init(ctx); err != nil {
		s.log.WithContext(ctx).Warn().Err(err).Msg("no se pudo sembrar el catálogo")
	}
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, domain.Persistence("listar catálogo", err)
	}
	seen := make(map[string]struct{})
	categories := []string{}
	for _, it := range items {
		if _, ok := seen[it.Category]; ok {
			continue
		}
		seen[it.Category] = struct{}{}
		categories = append(categories, it.Category)
	}
	return &Resources{Categories: categories, Items: items}, nil
}

// Get obtiene un ítem del catálogo.
func (s *Service) Get(ctx context.Context, id string) (*entity.CatalogItem, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("obtener ítem de catálogo", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item, nil
}
