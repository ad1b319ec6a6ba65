package query

import (
	"encoding/json"
	"testing"

	"github.com/BearBump/ShipQuery/internal/models"
	"github.com/stretchr/testify/require"
)

func TestEchoQuery_FixedFieldOrder(t *testing.T) {
	from := day(2025, 6, 16)
	to := day(2025, 6, 18)
	c := Criteria{
		StatusEquals:        "Delivered",
		DestinationContains: "Frankfurt",
		DateFrom:            &from,
		DateTo:              &to,
	}
	require.Equal(t,
		"destination='Frankfurt', status='Delivered', date_from='2025-06-16', date_to='2025-06-18'",
		EchoQuery(c))

	require.Equal(t, "", EchoQuery(Criteria{}))
	require.Equal(t, "tracking_number='1Z1'", EchoQuery(Criteria{TrackingNumberExact: "1Z1"}))
}

func TestAssemble_NotesAppended(t *testing.T) {
	agg := Aggregate(nil, Criteria{}, refNow)
	res := Assemble(Criteria{}, agg, []string{`date_from "someday" was not understood, the filter was ignored`})
	require.True(t, res.Success)
	require.Contains(t, res.Message, "No shipments found")
	require.Contains(t, res.Message, `Note: date_from "someday"`)
}

func TestAssemble_CountIsTruncatedLength(t *testing.T) {
	matched := []*models.Shipment{shipment(nil), shipment(nil), shipment(nil)}
	agg := Aggregate(matched, Criteria{Limit: 2}, refNow)
	res := Assemble(Criteria{Limit: 2}, agg, nil)
	require.Equal(t, 2, res.Count)
	require.Equal(t, 3, res.StatusBreakdown[models.StatusInTransit])
}

func TestResult_JSONShape(t *testing.T) {
	res := Failure("malformed request body")
	b, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &m))
	for _, key := range []string{"success", "count", "message", "query", "shipments", "status_breakdown"} {
		require.Contains(t, m, key)
	}
	require.Equal(t, "[]", string(m["shipments"]))
	require.Equal(t, "{}", string(m["status_breakdown"]))
}
