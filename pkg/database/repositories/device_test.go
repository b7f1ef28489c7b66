package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shravan4518/ppsrest/pkg/database/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.AdminUser{}, &models.ProfiledDevice{}, &models.ProfilerConfig{})
	require.NoError(t, err)

	return db
}

func TestDeviceRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDeviceRepository(db)

	device := &models.ProfiledDevice{
		MACAddress: "00:11:22:33:44:55",
		IPAddress:  "10.20.30.40",
		Hostname:   "printer-3f",
		OS:         "embedded",
		Category:   "printer",
		Source:     models.SourceDHCPv4,
	}

	t.Run("Upsert inserts a new device", func(t *testing.T) {
		require.NoError(t, repo.Upsert(device))
		assert.False(t, device.FirstSeen.IsZero())
		assert.False(t, device.LastSeen.IsZero())

		count, err := repo.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Upsert refreshes an existing device", func(t *testing.T) {
		firstSeen := device.FirstSeen
		time.Sleep(5 * time.Millisecond)

		observation := &models.ProfiledDevice{
			MACAddress: "00:11:22:33:44:55",
			IPAddress:  "10.20.30.99",
			Category:   "printer",
			Source:     models.SourceSNMP,
		}
		require.NoError(t, repo.Upsert(observation))

		got, err := repo.GetByMAC("00:11:22:33:44:55")
		require.NoError(t, err)
		assert.Equal(t, "10.20.30.99", got.IPAddress)
		assert.Equal(t, models.SourceSNMP, got.Source)
		assert.Equal(t, firstSeen.Unix(), got.FirstSeen.Unix(), "first-seen must survive re-observation")
		assert.True(t, got.LastSeen.After(got.FirstSeen))

		count, err := repo.Count()
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("List filters by category and source", func(t *testing.T) {
		require.NoError(t, repo.Upsert(&models.ProfiledDevice{
			MACAddress: "aa:bb:cc:dd:ee:ff",
			IPAddress:  "10.20.30.41",
			Category:   "laptop",
			Source:     models.SourceDHCPv4,
		}))

		all, err := repo.List("", "", 100, 0)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		printers, err := repo.List("printer", "", 100, 0)
		require.NoError(t, err)
		require.Len(t, printers, 1)
		assert.Equal(t, "00:11:22:33:44:55", printers[0].MACAddress)

		snmp, err := repo.List("", models.SourceSNMP, 100, 0)
		require.NoError(t, err)
		assert.Len(t, snmp, 1)

		none, err := repo.List("camera", "", 100, 0)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Delete removes a device", func(t *testing.T) {
		require.NoError(t, repo.Delete("aa:bb:cc:dd:ee:ff"))

		_, err := repo.GetByMAC("aa:bb:cc:dd:ee:ff")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})

	t.Run("Delete of a missing device reports not found", func(t *testing.T) {
		err := repo.Delete("aa:bb:cc:dd:ee:ff")
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestProfilerConfigRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfilerConfigRepository(db)

	t.Run("Get creates the factory default row", func(t *testing.T) {
		cfg, err := repo.Get()
		require.NoError(t, err)
		assert.Equal(t, "Local Profiler", cfg.ProfilerName)
		assert.True(t, cfg.DHCPv4Enabled)
		assert.Equal(t, models.DefaultPollingIntervalMinutes, cfg.PollingIntervalMinutes)
	})

	t.Run("Update keeps a single row", func(t *testing.T) {
		cfg, err := repo.Get()
		require.NoError(t, err)

		cfg.DHCPv6Enabled = true
		cfg.DeviceAttributeServer = "das.example.com"
		cfg.PollingIntervalMinutes = 15
		cfg.AdditionalCollectors = []string{models.SourceLDAP}
		require.NoError(t, repo.Update(cfg))

		got, err := repo.Get()
		require.NoError(t, err)
		assert.True(t, got.DHCPv6Enabled)
		assert.Equal(t, 15, got.PollingIntervalMinutes)
		assert.Equal(t, []string{models.SourceLDAP}, got.AdditionalCollectors)

		var count int64
		require.NoError(t, db.Model(&models.ProfilerConfig{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("Reset restores defaults", func(t *testing.T) {
		cfg, err := repo.Reset()
		require.NoError(t, err)
		assert.False(t, cfg.DHCPv6Enabled)
		assert.Equal(t, models.DefaultPollingIntervalMinutes, cfg.PollingIntervalMinutes)
	})
}

func TestAdminUserRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAdminUserRepository(db)

	admin := &models.AdminUser{Username: "restadmin", Enabled: true}
	require.NoError(t, admin.SetPassword("password123"))

	t.Run("Create assigns an ID", func(t *testing.T) {
		require.NoError(t, repo.Create(admin))
		assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", admin.ID.String())
	})

	t.Run("GetByUsername", func(t *testing.T) {
		got, err := repo.GetByUsername("restadmin")
		require.NoError(t, err)
		assert.Equal(t, admin.ID, got.ID)
		assert.True(t, got.CheckPassword("password123"))
	})

	t.Run("Duplicate username rejected", func(t *testing.T) {
		dup := &models.AdminUser{Username: "restadmin", Enabled: true}
		require.NoError(t, dup.SetPassword("other"))
		assert.Error(t, repo.Create(dup))
	})

	t.Run("List", func(t *testing.T) {
		admins, err := repo.List(100, 0)
		require.NoError(t, err)
		assert.Len(t, admins, 1)
	})
}
