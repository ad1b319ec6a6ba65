package csvsheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeSheet(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReader_Load(t *testing.T) {
	path := writeSheet(t, ""+
		"Order No,UPS Tracking Number,Pickup Date,Destination City,Customer Reference,Shipper Name\n"+
		"1001,1ZAAA,2025-06-16,Hamburg,PO-17,Acme GmbH\n"+
		"1002,1ZBBB,16/06/2025,Munich,PO-18,Acme GmbH\n"+
		"1003,,2025-06-16,Berlin,PO-19,Acme GmbH\n"+
		"1004,1ZAAA,2025-06-17,Hamburg,PO-20,Acme GmbH\n")

	rows, err := New(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "1ZAAA", rows[0].TrackingNumber)
	require.Equal(t, "Hamburg", rows[0].Destination)
	require.Equal(t, "PO-17", rows[0].ReferenceNumber)
	require.Equal(t, "Acme GmbH", rows[0].ShipperInfo)
	require.NotNil(t, rows[0].PlannedPickupDate)
	require.Equal(t, "2025-06-16", rows[0].PlannedPickupDate.Format("2006-01-02"))

	// Day-first slash date in the second row resolves to the same day.
	require.NotNil(t, rows[1].PlannedPickupDate)
	require.Equal(t, "2025-06-16", rows[1].PlannedPickupDate.Format("2006-01-02"))
}

func TestReader_Load_RaggedRows(t *testing.T) {
	path := writeSheet(t, ""+
		"Tracking,Pickup Date,Destination\n"+
		"1ZAAA,2025-06-16\n"+
		"1ZBBB,bad-date,Munich,extra\n")

	rows, err := New(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Empty(t, rows[0].Destination)
	require.Nil(t, rows[1].PlannedPickupDate)
	require.Equal(t, "Munich", rows[1].Destination)
}

func TestReader_Load_NoTrackingColumn(t *testing.T) {
	path := writeSheet(t, "Order No,Pickup Date\n1001,2025-06-16\n")

	_, err := New(path).Load(context.Background())
	require.Error(t, err)
}

func TestReader_Load_MissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "nope.csv")).Load(context.Background())
	require.Error(t, err)
}
