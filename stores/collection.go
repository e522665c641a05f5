package stores

import (
	"context"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/services"
)

// CRUD is the service behind a CollectionStore. services.Resource implements it.
type CRUD[T any] interface {
	List(ctx context.Context, params interface{}) (services.Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, v interface{}) (T, error)
	Update(ctx context.Context, id string, v interface{}) (T, error)
	Delete(ctx context.Context, id string) error
}

// CollectionStore caches one resource collection.
// Every action sets Loading, calls the service, then splices the result into the cache;
// on failure Error is set and the cache is left as it was.
type CollectionStore[T Keyed] struct {
	collection[T]
	svc CRUD[T]

	pagination core.Pagination
}

func NewCollectionStore[T Keyed](svc CRUD[T]) *CollectionStore[T] {
	return &CollectionStore[T]{svc: svc}
}

// Fetch replaces the cache with a page of the collection.
func (s *CollectionStore[T]) Fetch(ctx context.Context, params interface{}) error {
	s.begin()
	page, err := s.svc.List(ctx, params)
	if err != nil {
		s.fail(err)
		return err
	}
	s.mu.Lock()
	s.pagination = page.Pagination
	s.mu.Unlock()
	s.setItems(page.Items)
	return nil
}

// Pagination is the pagination of the last fetched page.
func (s *CollectionStore[T]) Pagination() core.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// Load fetches one item and makes it the current one.
func (s *CollectionStore[T]) Load(ctx context.Context, id string) (T, error) {
	s.begin()
	item, err := s.svc.Get(ctx, id)
	if err != nil {
		s.fail(err)
		return item, err
	}
	s.setCurrent(item)
	return item, nil
}

func (s *CollectionStore[T]) Create(ctx context.Context, v interface{}) (T, error) {
	return s.mutate(func() (T, error) { return s.svc.Create(ctx, v) })
}

func (s *CollectionStore[T]) Update(ctx context.Context, id string, v interface{}) (T, error) {
	return s.mutate(func() (T, error) { return s.svc.Update(ctx, id, v) })
}

func (s *CollectionStore[T]) Delete(ctx context.Context, id string) error {
	s.begin()
	if err := s.svc.Delete(ctx, id); err != nil {
		s.fail(err)
		return err
	}
	s.remove(id)
	return nil
}

// mutate runs an action returning the new version of an item and caches it.
func (s *CollectionStore[T]) mutate(action func() (T, error)) (T, error) {
	s.begin()
	item, err := action()
	if err != nil {
		s.fail(err)
		return item, err
	}
	s.upsert(item)
	return item, nil
}
