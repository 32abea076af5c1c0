package db

import (
	"testing"
	"time"

	"github.com/goatnetwork/qlink/internal/db/migrations"
	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDb(t *testing.T) *DatabaseManager {
	t.Helper()
	dm, err := OpenDatabaseManager(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dm.Close() })
	return dm
}

func TestOpenDatabaseManagerRunsMigrations(t *testing.T) {
	dm := openTestDb(t)

	mm := migrations.NewMigrationManager(dm.GetHistoryDB())
	applied, err := mm.HasMigration("20261018_add_scanrecord_type_created_index")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.True(t, dm.GetHistoryDB().Migrator().HasIndex(&ScanRecord{}, "idx_scan_records_type_created"))
}

func TestReopenSkipsAppliedMigrations(t *testing.T) {
	dir := t.TempDir()
	dm, err := OpenDatabaseManager(dir)
	require.NoError(t, err)
	require.NoError(t, dm.Close())

	dm, err = OpenDatabaseManager(dir)
	require.NoError(t, err)
	defer dm.Close()

	var count int64
	require.NoError(t, dm.GetHistoryDB().Model(&migrations.Migration{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSaveAndRecentScans(t *testing.T) {
	dm := openTestDb(t)

	base := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	for i, typ := range []string{"bytes", "eth-sign-request", "bytes"} {
		rec := &ScanRecord{
			URType:    typ,
			Encoding:  "cbor",
			Variant:   "unknown",
			BytesHex:  "00",
			Parts:     1,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, dm.SaveScan(rec))
		assert.NotZero(t, rec.ID)
	}

	recent, err := dm.RecentScans(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "bytes", recent[0].URType)
	assert.Equal(t, "eth-sign-request", recent[1].URType)

	all, err := dm.RecentScans(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	n, err := dm.CountScans("bytes")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestNewScanRecord(t *testing.T) {
	p := keystone.Payload{
		Type:     "bytes",
		Data:     []byte{0xde, 0xad},
		Encoding: keystone.EncodingFor("bytes"),
	}
	rec := NewScanRecord(p, 1)
	assert.Equal(t, "bytes", rec.URType)
	assert.Equal(t, "dead", rec.BytesHex)
	assert.Equal(t, "cbor", rec.Encoding)
	assert.Equal(t, 1, rec.Parts)
	assert.False(t, rec.Multipart)
	assert.Equal(t, rec.CID, mustCID(t, []byte{0xde, 0xad}))
}

func mustCID(t *testing.T, data []byte) string {
	t.Helper()
	id, err := PayloadCID(data)
	require.NoError(t, err)
	return id
}

func TestPayloadCID(t *testing.T) {
	assert.Equal(t, "bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", mustCID(t, nil))

	canonical, err := ParsePayloadCID(mustCID(t, []byte("qlink")))
	require.NoError(t, err)
	assert.Equal(t, mustCID(t, []byte("qlink")), canonical)

	_, err = ParsePayloadCID("not-a-cid")
	assert.Error(t, err)
}

func TestScansByCID(t *testing.T) {
	dm := openTestDb(t)
	p := keystone.Payload{Type: "bytes", Data: []byte{1, 2, 3}, Encoding: keystone.EncodingFor("bytes")}
	require.NoError(t, dm.SaveScan(NewScanRecord(p, 1)))
	require.NoError(t, dm.SaveScan(NewScanRecord(p, 1)))
	other := keystone.Payload{Type: "bytes", Data: []byte{9}, Encoding: keystone.EncodingFor("bytes")}
	require.NoError(t, dm.SaveScan(NewScanRecord(other, 1)))

	records, err := dm.ScansByCID(mustCID(t, []byte{1, 2, 3}))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
