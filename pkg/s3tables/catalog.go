package s3tables

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/url"
	"strings"
)

// namespaceSeparator is the Iceberg REST spec's 0x1F unit separator used to
// flatten a multi-level namespace into a single path segment.
const namespaceSeparator = "\x1f"

// Namespace is a dot-addressable sequence of levels, e.g. ["accounting",
// "ledgers"] for the SQL-style name "accounting.ledgers".
type Namespace struct {
	Levels []string
}

// NewNamespace builds a Namespace from its levels.
func NewNamespace(levels ...string) Namespace { return Namespace{Levels: levels} }

// String renders the namespace dot-joined, for logging and display.
func (n Namespace) String() string { return strings.Join(n.Levels, ".") }

func (n Namespace) PathSegment() string { return strings.Join(n.Levels, namespaceSeparator) }

// TableIdentifier names a table or view within a namespace.
type TableIdentifier struct {
	Namespace Namespace
	Name      string
}

// Warehouse is a top-level catalog scoping unit (a vendor extension this
// Tables surface exposes above plain Iceberg REST namespaces, parallel to
// S3 Tables' own warehouse concept).
type Warehouse struct {
	Name string
}

type listNamespacesResponse struct {
	NextPageToken string     `json:"next-page-token"`
	Namespaces    [][]string `json:"namespaces"`
}

type listTablesResponse struct {
	NextPageToken string `json:"next-page-token"`
	Identifiers   []struct {
		Namespace []string `json:"namespace"`
		Name      string   `json:"name"`
	} `json:"identifiers"`
}

type listWarehousesResponse struct {
	NextPageToken string `json:"next-page-token"`
	Warehouses    []struct {
		Name string `json:"name"`
	} `json:"warehouses"`
}

// ListWarehouses returns a range-over-func iterator paginated by page-token
// (spec.md §4.10).
func (c *Client) ListWarehouses(ctx context.Context) iter.Seq2[Warehouse, error] {
	return func(yield func(Warehouse, error) bool) {
		token := ""
		for {
			q := url.Values{}
			if token != "" {
				q.Set("page-token", token)
			}
			var page listWarehousesResponse
			if err := c.doJSON(ctx, http.MethodGet, []string{"warehouses"}, q, nil, &page); err != nil {
				yield(Warehouse{}, err)
				return
			}
			for _, w := range page.Warehouses {
				if !yield(Warehouse{Name: w.Name}, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			token = page.NextPageToken
		}
	}
}

// CreateWarehouse creates a new top-level warehouse.
func (c *Client) CreateWarehouse(ctx context.Context, name string) error {
	body := map[string]string{"name": name}
	return c.doJSON(ctx, http.MethodPost, []string{"warehouses"}, nil, body, nil)
}

// DeleteWarehouse deletes warehouse (see DeleteAndPurgeWarehouse in
// cascade.go for the variant that first drops its contents).
func (c *Client) DeleteWarehouse(ctx context.Context, name string) error {
	return c.doJSON(ctx, http.MethodDelete, []string{"warehouses", name}, nil, nil, nil)
}

// CreateNamespace creates ns under warehouse with the given properties.
func (c *Client) CreateNamespace(ctx context.Context, warehouse string, ns Namespace, properties map[string]string) error {
	body := map[string]interface{}{"namespace": ns.Levels, "properties": properties}
	return c.doJSON(ctx, http.MethodPost, []string{"warehouses", warehouse, "namespaces"}, nil, body, nil)
}

// LoadNamespace returns ns's stored properties.
func (c *Client) LoadNamespace(ctx context.Context, warehouse string, ns Namespace) (map[string]string, error) {
	var out struct {
		Properties map[string]string `json:"properties"`
	}
	segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment()}
	if err := c.doJSON(ctx, http.MethodGet, segs, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Properties, nil
}

// DropNamespace deletes an empty namespace. Use DeleteAndPurgeNamespace
// (cascade.go) to cascade through its tables and views first.
func (c *Client) DropNamespace(ctx context.Context, warehouse string, ns Namespace) error {
	segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment()}
	return c.doJSON(ctx, http.MethodDelete, segs, nil, nil, nil)
}

// ListNamespaces returns a range-over-func iterator over the namespaces
// directly nested under parent (parent.Levels may be empty for the root).
func (c *Client) ListNamespaces(ctx context.Context, warehouse string, parent Namespace) iter.Seq2[Namespace, error] {
	return func(yield func(Namespace, error) bool) {
		token := ""
		for {
			q := url.Values{}
			if len(parent.Levels) > 0 {
				q.Set("parent", parent.PathSegment())
			}
			if token != "" {
				q.Set("page-token", token)
			}
			var page listNamespacesResponse
			if err := c.doJSON(ctx, http.MethodGet, []string{"warehouses", warehouse, "namespaces"}, q, nil, &page); err != nil {
				yield(Namespace{}, err)
				return
			}
			for _, levels := range page.Namespaces {
				if !yield(Namespace{Levels: levels}, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			token = page.NextPageToken
		}
	}
}

// CreateTable registers a new table under ns. schema and spec are passed
// through verbatim as raw Iceberg JSON (full Iceberg schema/partition-spec
// modeling is out of scope per spec.md's Non-goals).
func (c *Client) CreateTable(ctx context.Context, warehouse string, ns Namespace, name string, schema, partitionSpec json.RawMessage) error {
	body := map[string]interface{}{"name": name}
	if len(schema) > 0 {
		body["schema"] = schema
	}
	if len(partitionSpec) > 0 {
		body["partition-spec"] = partitionSpec
	}
	segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment(), "tables"}
	return c.doJSON(ctx, http.MethodPost, segs, nil, body, nil)
}

// LoadTable returns a table's metadata document, verbatim as raw JSON.
func (c *Client) LoadTable(ctx context.Context, warehouse string, ns Namespace, name string) (json.RawMessage, error) {
	segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment(), "tables", name}
	var out json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, segs, nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DropTable deletes a table, optionally purging its underlying data files.
func (c *Client) DropTable(ctx context.Context, warehouse string, ns Namespace, name string, purge bool) error {
	q := url.Values{}
	if purge {
		q.Set("purgeRequested", "true")
	}
	segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment(), "tables", name}
	return c.doJSON(ctx, http.MethodDelete, segs, q, nil, nil)
}

// RenameTable moves a table to a new identifier, possibly across namespaces
// within the same warehouse.
func (c *Client) RenameTable(ctx context.Context, warehouse string, from, to TableIdentifier) error {
	body := map[string]interface{}{
		"source":      map[string]interface{}{"namespace": from.Namespace.Levels, "name": from.Name},
		"destination": map[string]interface{}{"namespace": to.Namespace.Levels, "name": to.Name},
	}
	return c.doJSON(ctx, http.MethodPost, []string{"warehouses", warehouse, "tables", "rename"}, nil, body, nil)
}

// ListTables returns a range-over-func iterator over the tables in ns.
func (c *Client) ListTables(ctx context.Context, warehouse string, ns Namespace) iter.Seq2[TableIdentifier, error] {
	return func(yield func(TableIdentifier, error) bool) {
		token := ""
		for {
			q := url.Values{}
			if token != "" {
				q.Set("page-token", token)
			}
			segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment(), "tables"}
			var page listTablesResponse
			if err := c.doJSON(ctx, http.MethodGet, segs, q, nil, &page); err != nil {
				yield(TableIdentifier{}, err)
				return
			}
			for _, id := range page.Identifiers {
				t := TableIdentifier{Namespace: Namespace{Levels: id.Namespace}, Name: id.Name}
				if !yield(t, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			token = page.NextPageToken
		}
	}
}

// ListViews returns a range-over-func iterator over the views in ns, using
// the same identifier shape as ListTables since the Iceberg REST spec
// reuses TableIdentifier for both surfaces.
func (c *Client) ListViews(ctx context.Context, warehouse string, ns Namespace) iter.Seq2[TableIdentifier, error] {
	return func(yield func(TableIdentifier, error) bool) {
		token := ""
		for {
			q := url.Values{}
			if token != "" {
				q.Set("page-token", token)
			}
			segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment(), "views"}
			var page listTablesResponse
			if err := c.doJSON(ctx, http.MethodGet, segs, q, nil, &page); err != nil {
				yield(TableIdentifier{}, err)
				return
			}
			for _, id := range page.Identifiers {
				v := TableIdentifier{Namespace: Namespace{Levels: id.Namespace}, Name: id.Name}
				if !yield(v, nil) {
					return
				}
			}
			if page.NextPageToken == "" {
				return
			}
			token = page.NextPageToken
		}
	}
}

// DropView deletes a view.
func (c *Client) DropView(ctx context.Context, warehouse string, ns Namespace, name string) error {
	segs := []string{"warehouses", warehouse, "namespaces", ns.PathSegment(), "views", name}
	return c.doJSON(ctx, http.MethodDelete, segs, nil, nil, nil)
}
