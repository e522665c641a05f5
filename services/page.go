package services

import (
	"bytes"
	"encoding/json"
	"net/url"

	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
)

// ListParams are the common listing query parameters.
type ListParams struct {
	Page   int    `url:"page,omitempty"`
	Limit  int    `url:"limit,omitempty"`
	Search string `url:"search,omitempty"`
	Sort   string `url:"sort,omitempty"`
}

// PageLimit is the requested page size, 0 if unset.
func (p ListParams) PageLimit() int { return p.Limit }

type pageLimiter interface {
	PageLimit() int
}

func limitOf(params interface{}) int {
	if l, ok := params.(pageLimiter); ok {
		return l.PageLimit()
	}
	return 0
}

// Page is a normalized listing. Items is never nil.
type Page[T any] struct {
	Success    bool
	Message    string
	Items      []T
	Pagination core.Pagination
}

// Empty reports whether the page holds no item.
func (p Page[T]) Empty() bool { return len(p.Items) == 0 }

func emptyPage[T any](params interface{}) Page[T] {
	return Page[T]{Success: true, Items: []T{}, Pagination: core.DefaultPagination(limitOf(params))}
}

// decodePage accepts a bare array or a {<key>: [...], pagination} object.
func decodePage[T any](env *core.Envelope, key string, params interface{}) (Page[T], error) {
	page := emptyPage[T](params)
	page.Success, page.Message = env.Success, env.Message
	if !env.HasData() {
		return page, nil
	}

	data := bytes.TrimSpace(env.Data)
	if data[0] == '[' {
		if err := json.Unmarshal(data, &page.Items); err != nil {
			return page, errors.Wrap(err, "decoding list")
		}
		page.Pagination = arrayPagination(len(page.Items), limitOf(params))
		return page, nil
	}

	found, err := env.Field(key, &page.Items)
	if err != nil {
		return page, err
	}
	if !found {
		if found, err = env.Field("items", &page.Items); err != nil {
			return page, err
		}
	}
	if !found {
		return page, errors.Errorf("list payload has no %q key", key)
	}
	if page.Items == nil {
		page.Items = []T{}
	}

	if ok, err := env.Field("pagination", &page.Pagination); err != nil {
		return page, err
	} else if !ok {
		page.Pagination = arrayPagination(len(page.Items), limitOf(params))
	}
	return page, nil
}

func arrayPagination(n, limit int) core.Pagination {
	p := core.DefaultPagination(limit)
	if p.Limit < n {
		p.Limit = n
	}
	p.Total = n
	if n > 0 {
		p.TotalPages = 1
	}
	return p
}

// decodeItem accepts the item itself or the item wrapped under its singular key.
func decodeItem[T any](env *core.Envelope, singular string) (T, error) {
	var item T
	found, err := env.Field(singular, &item)
	if err != nil || found {
		return item, err
	}
	return item, env.Decode(&item)
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func pathID(id string) string {
	return "/" + url.PathEscape(id)
}
