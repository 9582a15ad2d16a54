package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

type fakePublisher struct {
	channels []string
	messages [][]byte
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *goredis.IntCmd {
	f.channels = append(f.channels, channel)
	if b, ok := message.([]byte); ok {
		f.messages = append(f.messages, b)
	}
	return goredis.NewIntResult(1, f.err)
}

func TestBalancePublisher_PublicaUnEventoPorSaldo(t *testing.T) {
	fake := &fakePublisher{}
	pub := NewBalancePublisher(fake, "inventory.balances", zerolog.Nop())

	pub.BalancesChanged(context.Background(), []entity.Balance{
		{WarehouseID: "WH-MAIN", ItemType: entity.ItemTypeFinishedGood, ItemID: "FG-1", Quantity: decimal.NewFromInt(3), MinStock: decimal.NewFromInt(5), Version: 2},
		{WarehouseID: "WH-SHOP", ItemType: entity.ItemTypeFinishedGood, ItemID: "FG-1", Quantity: decimal.NewFromInt(7), Version: 1},
	})

	require.Len(t, fake.messages, 2)
	assert.Equal(t, []string{"inventory.balances", "inventory.balances"}, fake.channels)

	var ev BalanceEvent
	require.NoError(t, json.Unmarshal(fake.messages[0], &ev))
	assert.Equal(t, "WH-MAIN:FINISHED_GOOD:FG-1", ev.Key)
	assert.True(t, ev.Quantity.Equal(decimal.NewFromInt(3)))
	assert.True(t, ev.BelowMinimum)
	assert.Equal(t, int64(2), ev.Version)
}

func TestBalancePublisher_FalloDeRedisNoInterrumpe(t *testing.T) {
	fake := &fakePublisher{err: errors.New("connection refused")}
	pub := NewBalancePublisher(fake, "inventory.balances", zerolog.Nop())

	assert.NotPanics(t, func() {
		pub.BalancesChanged(context.Background(), []entity.Balance{
			{WarehouseID: "WH-MAIN", ItemType: entity.ItemTypeRawMaterial, ItemID: "RM-1"},
			{WarehouseID: "WH-SHOP", ItemType: entity.ItemTypeRawMaterial, ItemID: "RM-1"},
		})
	})
	assert.Len(t, fake.channels, 2)
}
