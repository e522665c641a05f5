package services

import (
	"context"
	"net/http"

	"github.com/trezcool/educloud/core"
)

// Resource is the CRUD service of a REST collection.
type Resource[T any] struct {
	api   API
	path  string
	ent   entity
	empty *EmptyResults
}

func newResource[T any](api API, path string, ent entity, empty *EmptyResults) Resource[T] {
	return Resource[T]{api: api, path: path, ent: ent, empty: empty}
}

// List returns a page of the collection. params is a filter struct (url tags), url.Values or nil.
// An empty list answered with a "no X found" 404 is a successful empty page.
func (r Resource[T]) List(ctx context.Context, params interface{}) (Page[T], error) {
	return listPage[T](ctx, r.api, r.empty, r.path, r.ent, params)
}

func (r Resource[T]) Get(ctx context.Context, id string) (T, error) {
	return r.fetch(ctx, r.path+pathID(id), nil)
}

func (r Resource[T]) Create(ctx context.Context, v interface{}) (T, error) {
	return r.write(ctx, http.MethodPost, r.path, v)
}

func (r Resource[T]) Update(ctx context.Context, id string, v interface{}) (T, error) {
	return r.write(ctx, http.MethodPut, r.path+pathID(id), v)
}

func (r Resource[T]) Delete(ctx context.Context, id string) error {
	_, err := r.api.Delete(ctx, r.path+pathID(id))
	return err
}

func (r Resource[T]) fetch(ctx context.Context, path string, params interface{}) (T, error) {
	env, err := r.api.Get(ctx, path, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeItem[T](env, r.ent.singular)
}

func (r Resource[T]) write(ctx context.Context, method, path string, body interface{}) (T, error) {
	var env *core.Envelope
	var err error
	switch method {
	case http.MethodPost:
		env, err = r.api.Post(ctx, path, body)
	case http.MethodPatch:
		env, err = r.api.Patch(ctx, path, body)
	default:
		env, err = r.api.Put(ctx, path, body)
	}
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeItem[T](env, r.ent.singular)
}

func listPage[T any](ctx context.Context, api API, empty *EmptyResults, path string, ent entity, params interface{}) (Page[T], error) {
	env, err := api.Get(ctx, path, params)
	if err != nil {
		if empty.Match(ent.key, err) {
			return emptyPage[T](params), nil
		}
		return Page[T]{}, err
	}
	return decodePage[T](env, ent.key, params)
}
