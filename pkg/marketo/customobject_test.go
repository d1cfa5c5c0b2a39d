package marketo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/marketo-client/pkg/cache"
	"github.com/Sternrassler/marketo-client/pkg/client"
)

const describePath = "/v1/customobjects/car_c/describe.json"

func carDescription() cache.Description {
	return cache.Description{
		Name:             "car_c",
		IDField:          "marketoGUID",
		DedupeFields:     []string{"vin"},
		SearchableFields: [][]string{{"vin"}, {"marketoGUID"}},
		Fields: []cache.Field{
			{Name: "marketoGUID", DataType: "string"},
			{Name: "vin", DataType: "string"},
			{Name: "color", DataType: "string"},
		},
	}
}

func customObjectTransport() *fakeTransport {
	return newFakeTransport(func(c call) (*client.Response, error) {
		switch c.Path {
		case describePath:
			return ok([]cache.Description{carDescription()}), nil
		case "/v1/customobjects/car_c.json":
			if c.Query.Get("action") == "createOrUpdate" {
				return ok([]RecordStatus{{Seq: 0, MarketoGUID: "g-1", Status: StatusCreated}}), nil
			}
			return ok([]Record{{"marketoGUID": "g-1", "vin": "WVW123", "color": "red"}}), nil
		case "/v1/customobjects/car_c/delete.json":
			return ok([]RecordStatus{{Seq: 0, MarketoGUID: "g-1", Status: StatusDeleted}}), nil
		}
		return ok(nil), nil
	})
}

func TestCustomObjectService_DescribeOnce(t *testing.T) {
	transport := customObjectTransport()
	objects := New(transport, Options{}).CustomObjects
	ctx := context.Background()

	first, err := objects.Describe(ctx, "car_c")
	require.NoError(t, err)
	second, err := objects.Describe(ctx, "car_c")
	require.NoError(t, err)

	assert.Equal(t, "marketoGUID", first.IDField)
	assert.Same(t, first, second)
	assert.Len(t, transport.CallsTo(describePath), 1)
}

func TestCustomObjectService_SharedCache(t *testing.T) {
	shared := cache.New(cache.NewMemoryStore())
	transport := customObjectTransport()
	ctx := context.Background()

	_, err := New(transport, Options{Cache: shared}).CustomObjects.Describe(ctx, "car_c")
	require.NoError(t, err)
	_, err = New(transport, Options{Cache: shared}).CustomObjects.Describe(ctx, "car_c")
	require.NoError(t, err)

	assert.Len(t, transport.CallsTo(describePath), 1)
}

func TestCustomObjectService_DescribeUnknown(t *testing.T) {
	transport := newFakeTransport(func(c call) (*client.Response, error) {
		return ok(nil), nil
	})

	_, err := New(transport, Options{}).CustomObjects.Describe(context.Background(), "boat_c")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCustomObjectService_QueryFlat(t *testing.T) {
	transport := customObjectTransport()
	objects := New(transport, Options{}).CustomObjects

	records, err := objects.Query(context.Background(), "car_c", ByValues("", "g-1", "g-2"), nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "red", records[0]["color"])

	calls := transport.CallsTo("/v1/customobjects/car_c.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "GET", calls[0].Method)
	assert.Equal(t, "marketoGUID", calls[0].Query.Get("filterType"))
	assert.Equal(t, "g-1,g-2", calls[0].Query.Get("filterValues"))
	assert.Equal(t, "marketoGUID,vin,color", calls[0].Query.Get("fields"))
}

func TestCustomObjectService_QueryNotSearchable(t *testing.T) {
	transport := customObjectTransport()
	objects := New(transport, Options{}).CustomObjects
	ctx := context.Background()

	_, err := objects.Query(ctx, "car_c", ByValues("color", "red"), nil)
	assert.ErrorIs(t, err, ErrNotSearchable)
	assert.Empty(t, transport.CallsTo("/v1/customobjects/car_c.json"), "query is not sent for an unindexed field")

	_, err = objects.Query(ctx, "car_c", ByValues("vin", "WVW123"), nil)
	require.NoError(t, err)
	calls := transport.CallsTo("/v1/customobjects/car_c.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "vin", calls[0].Query.Get("filterType"))
}

func TestCustomObjectService_QueryStructured(t *testing.T) {
	transport := customObjectTransport()
	objects := New(transport, Options{}).CustomObjects

	criteria := ByFilter(Filter{Type: "dedupeFields", Input: []map[string]any{{"vin": "WVW123"}}})
	_, err := objects.Query(context.Background(), "car_c", criteria, []string{"vin", "color"})
	require.NoError(t, err)

	calls := transport.CallsTo("/v1/customobjects/car_c.json")
	require.Len(t, calls, 1)
	assert.Equal(t, "POST", calls[0].Method)
	assert.Equal(t, "GET", calls[0].Query.Get("_method"))
	assert.JSONEq(t, `{"filterType":"dedupeFields","fields":["vin","color"],"input":[{"vin":"WVW123"}]}`, bodyJSON(calls[0].Body))
}

func TestCustomObjectService_QueryDescribeFailure(t *testing.T) {
	transport := newFakeTransport(func(c call) (*client.Response, error) {
		return nil, &client.APIError{ErrorClass: client.ErrorClassValidation, Code: "1003", Message: "Invalid object"}
	})

	_, err := New(transport, Options{}).CustomObjects.Query(context.Background(), "car_c", ByValues("", "x"), nil)
	assert.True(t, errors.Is(err, client.ErrValidation))
	assert.Len(t, transport.Calls(), 1, "query is not sent without a description")
}

func TestCustomObjectService_Writes(t *testing.T) {
	transport := customObjectTransport()
	objects := New(transport, Options{}).CustomObjects
	ctx := context.Background()

	created, err := objects.CreateOrUpdate(ctx, "car_c", []Record{{"vin": "WVW123", "color": "red"}})
	require.NoError(t, err)
	assert.Equal(t, StatusCreated, created[0].Status)

	deleted, err := objects.Delete(ctx, "car_c", []Record{{"marketoGUID": "g-1"}})
	require.NoError(t, err)
	assert.Equal(t, StatusDeleted, deleted[0].Status)

	calls := transport.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "createOrUpdate", calls[0].Query.Get("action"))
	assert.Equal(t, "dedupeFields", calls[0].Query.Get("dedupeBy"))
	assert.JSONEq(t, `{"input":[{"vin":"WVW123","color":"red"}]}`, bodyJSON(calls[0].Body))
	assert.Equal(t, "idField", calls[1].Query.Get("deleteBy"))
	assert.JSONEq(t, `{"input":[{"marketoGUID":"g-1"}]}`, bodyJSON(calls[1].Body))
}
