package s3tables

import (
	"context"
	"net/http"
	"net/url"

	"github.com/minio/s3tables-go/pkg/s3"
)

// DeleteAndPurgeNamespace implements spec.md §4.10's cascade: list views
// (paginated), drop each; list tables (paginated), drop each with purge;
// then delete the namespace itself. NoSuchKey and OrphanedMetadata errors
// during the cascade are tolerated (the item is already gone or its
// metadata is unreachable) and never halt the walk; any other error aborts
// immediately, leaving the namespace partially cleaned.
func (c *Client) DeleteAndPurgeNamespace(ctx context.Context, warehouse string, ns Namespace) error {
	for view, err := range c.ListViews(ctx, warehouse, ns) {
		if err != nil {
			return err
		}
		if derr := c.DropView(ctx, warehouse, ns, view.Name); derr != nil && !tolerable(derr) {
			return derr
		}
	}
	for table, err := range c.ListTables(ctx, warehouse, ns) {
		if err != nil {
			return err
		}
		if derr := c.DropTable(ctx, warehouse, ns, table.Name, true); derr != nil && !tolerable(derr) {
			return derr
		}
	}
	return c.DropNamespace(ctx, warehouse, ns)
}

// DeleteAndPurgeWarehouse cascades DeleteAndPurgeNamespace over every
// namespace in warehouse, then deletes the warehouse. If the warehouse
// delete fails with NamespaceNotEmpty caused by orphaned items the cascade
// already tolerated, it retries once with a force-delete fallback.
func (c *Client) DeleteAndPurgeWarehouse(ctx context.Context, warehouse string) error {
	for ns, err := range c.ListNamespaces(ctx, warehouse, Namespace{}) {
		if err != nil {
			return err
		}
		if derr := c.DeleteAndPurgeNamespace(ctx, warehouse, ns); derr != nil && !tolerable(derr) {
			return derr
		}
	}

	err := c.DeleteWarehouse(ctx, warehouse)
	if err == nil {
		return nil
	}
	er := s3.ToErrorResponse(err)
	if er.Kind != s3.ErrNamespaceNotEmpty {
		return err
	}
	return c.forceDeleteWarehouse(ctx, warehouse)
}

// forceDeleteWarehouse is the fallback spec.md §4.10 calls for when a
// warehouse delete fails with NamespaceNotEmpty after the cascade already
// walked every namespace it could list: the remaining non-emptiness is
// orphaned metadata the catalog itself can't enumerate, so we ask it to
// force the delete rather than looping forever.
func (c *Client) forceDeleteWarehouse(ctx context.Context, warehouse string) error {
	q := url.Values{"force": {"true"}}
	return c.doJSON(ctx, http.MethodDelete, []string{"warehouses", warehouse}, q, nil, nil)
}

// tolerable reports whether err is one of the cascade's recognized
// "already gone" outcomes: NoSuchKey or a typed OrphanedMetadata error,
// per spec.md §4.10.
func tolerable(err error) bool {
	er := s3.ToErrorResponse(err)
	return er.Kind == s3.ErrNoSuchKey || er.Kind == s3.ErrOrphanedMetadata
}
