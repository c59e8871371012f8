package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Collection is the remote store for one entity family.
type Collection[T, D any] struct {
	client *Client
	family types.Family[T, D]
}

// NewCollection binds family to client.
func NewCollection[T, D any](client *Client, family types.Family[T, D]) *Collection[T, D] {
	return &Collection[T, D]{client: client, family: family}
}

// Family returns the descriptor the collection was built with.
func (c *Collection[T, D]) Family() types.Family[T, D] {
	return c.family
}

// List returns the user's records. The slice is never nil, including on
// error.
func (c *Collection[T, D]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := c.client.do(ctx, http.MethodGet, c.family.Endpoint, nil, nil, &items); err != nil {
		return []T{}, fmt.Errorf("list %s: %w", c.family.Name, err)
	}
	if items == nil {
		return []T{}, nil
	}
	return items, nil
}

// Create sends d and returns the server's record. A duplicate fails with
// types.ErrAlreadyExists.
func (c *Collection[T, D]) Create(ctx context.Context, d D) (T, error) {
	var rec T
	d, err := c.family.Draft(d)
	if err != nil {
		return rec, err
	}
	if err := c.client.do(ctx, http.MethodPost, c.family.Endpoint, nil, d, &rec); err != nil {
		return rec, fmt.Errorf("create %s: %w", c.family.Name, err)
	}
	return rec, nil
}

// Update applies patch to the record with the given id.
func (c *Collection[T, D]) Update(ctx context.Context, id string, patch types.Patch) error {
	if id == "" {
		return types.ErrInvalidID
	}
	p, err := c.family.Patch(patch)
	if err != nil {
		return err
	}
	p["id"] = id
	if err := c.client.do(ctx, http.MethodPut, c.family.Endpoint, nil, p, nil); err != nil {
		return fmt.Errorf("update %s %s: %w", c.family.Name, id, err)
	}
	return nil
}

// Remove deletes the record whose remove key matches key.
func (c *Collection[T, D]) Remove(ctx context.Context, key string) error {
	key = c.family.Key(key)
	if key == "" {
		return types.ErrInvalidID
	}
	q := url.Values{}
	q.Set(c.family.RemoveParam, key)
	if err := c.client.do(ctx, http.MethodDelete, c.family.Endpoint, q, nil, nil); err != nil {
		return fmt.Errorf("remove %s %s: %w", c.family.Name, key, err)
	}
	return nil
}
