package s3tables

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeleteAndPurgeNamespaceToleratesMissingView(t *testing.T) {
	c, doer := newTestClient(t,
		scriptedResponse{status: 200, body: `{"identifiers":[{"namespace":["a"],"name":"v1"}]}`}, // ListViews
		scriptedResponse{status: 404, body: `{"error":{"message":"gone","type":"NoSuchViewException","code":404}}`}, // DropView, tolerated
		scriptedResponse{status: 200, body: `{"identifiers":[]}`},                                // ListTables
		scriptedResponse{status: 204},                                                            // DropNamespace
	)
	err := c.DeleteAndPurgeNamespace(context.Background(), "wh1", NewNamespace("a"))
	require.NoError(t, err)
	require.Len(t, doer.requests, 4)
}

func TestDeleteAndPurgeNamespacePropagatesOtherErrors(t *testing.T) {
	c, _ := newTestClient(t,
		scriptedResponse{status: 200, body: `{"identifiers":[]}`}, // ListViews
		scriptedResponse{status: 200, body: `{"identifiers":[{"namespace":["a"],"name":"t1"}]}`}, // ListTables
		scriptedResponse{status: 403, body: `{"error":{"message":"nope","type":"ForbiddenException","code":403}}`}, // DropTable
	)
	err := c.DeleteAndPurgeNamespace(context.Background(), "wh1", NewNamespace("a"))
	require.Error(t, err)
}

func TestDeleteAndPurgeWarehouseForceDeletesOnNamespaceNotEmpty(t *testing.T) {
	c, doer := newTestClient(t,
		scriptedResponse{status: 200, body: `{"namespaces":[]}`},                                                           // ListNamespaces
		scriptedResponse{status: 409, body: `{"error":{"message":"not empty","type":"NamespaceNotEmptyException","code":409}}`}, // DeleteWarehouse
		scriptedResponse{status: 204}, // forceDeleteWarehouse
	)
	err := c.DeleteAndPurgeWarehouse(context.Background(), "wh1")
	require.NoError(t, err)
	require.Len(t, doer.requests, 3)
	require.Equal(t, "true", doer.requests[2].URL.Query().Get("force"))
}
