package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, config.StoreDriverMemory, cfg.App.StoreDriver)
	assert.Equal(t, config.ReferenceModeSequence, cfg.Inventory.ReferenceMode)
	assert.Equal(t, 200, cfg.Inventory.ScanWindow)
	assert.Equal(t, 5, cfg.Inventory.TxMaxRetries)
	assert.Equal(t, "inventory.balances", cfg.Redis.Channel)
	assert.Empty(t, cfg.Inventory.ExemptWarehouses)
	assert.Equal(t, int32(25), cfg.DB.MaxConns)
	assert.True(t, cfg.DB.ForceIPv4)
}

func TestLoad_OpcionesDelPool(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_MAX_CONNS", "8")
	t.Setenv("DB_FORCE_IPV4", "false")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, int32(8), cfg.DB.MaxConns)
	assert.False(t, cfg.DB.ForceIPv4)
}

func TestLoad_BodegasExentasDesdeLista(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("INVENTORY_EXEMPT_WAREHOUSES", " WH-PROD, ,WH-PLANT ")
	t.Setenv("INVENTORY_REFERENCE_MODE", "SCAN")
	t.Setenv("INVENTORY_REFERENCE_SCAN_WINDOW", "50")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"WH-PROD", "WH-PLANT"}, cfg.Inventory.ExemptWarehouses)
	assert.Equal(t, config.ReferenceModeScan, cfg.Inventory.ReferenceMode)
	assert.Equal(t, 50, cfg.Inventory.ScanWindow)
}

func TestLoad_RechazaValoresNoSoportados(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"driver desconocido", "STORE_DRIVER", "mongo"},
		{"modo de referencia desconocido", "INVENTORY_REFERENCE_MODE", "random"},
		{"ventana no positiva", "INVENTORY_REFERENCE_SCAN_WINDOW", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORE_DRIVER", "memory")
			t.Setenv(tt.key, tt.val)

			_, err := config.Load()

			assert.Error(t, err)
		})
	}
}

func TestDBConfig_ConnectionStringEscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "inv", Password: "p@ss:w/rd", DBName: "ledger", SSLMode: "disable"}

	assert.Equal(t, "postgres://inv:p%40ss%3Aw%2Frd@db:5432/ledger?sslmode=disable", c.ConnectionString())

	c.DatabaseURL = "postgres://x@y/z"
	assert.Equal(t, "postgres://x@y/z", c.ConnectionString())
}
