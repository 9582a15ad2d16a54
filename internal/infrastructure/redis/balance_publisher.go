package redis

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventory-ledger/internal/application/inventory"
	"github.com/jhoicas/inventory-ledger/internal/domain/entity"
)

var _ inventory.BalanceListener = (*BalancePublisher)(nil)

// publisher lo que usa el publicador de *redis.Client.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
}

// BalanceEvent mensaje publicado por cada saldo cambiado.
type BalanceEvent struct {
	Key          string          `json:"key"`
	WarehouseID  string          `json:"warehouse_id"`
	ItemType     string          `json:"item_type"`
	ItemID       string          `json:"item_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	MinStock     decimal.Decimal `json:"min_stock"`
	BelowMinimum bool            `json:"below_minimum"`
	Version      int64           `json:"version"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// BalancePublisher publica en un canal Redis los saldos confirmados.
// Los suscriptores lo usan como caché de lectura; un fallo al publicar solo se registra.
type BalancePublisher struct {
	client  publisher
	channel string
	timeout time.Duration
	log     zerolog.Logger
}

func NewBalancePublisher(client publisher, channel string, log zerolog.Logger) *BalancePublisher {
	return &BalancePublisher{client: client, channel: channel, timeout: 2 * time.Second, log: log}
}

// BalancesChanged publica un mensaje por saldo.
func (p *BalancePublisher) BalancesChanged(ctx context.Context, balances []entity.Balance) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	for i := range balances {
		ev := toEvent(&balances[i])
		payload, err := json.Marshal(ev)
		if err != nil {
			p.log.Error().Err(err).Str("balance_key", ev.Key).Msg("serializar evento de saldo")
			continue
		}
		if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
			p.log.Warn().Err(err).Str("balance_key", ev.Key).Str("channel", p.channel).Msg("publicar saldo en Redis")
		}
	}
}

func toEvent(b *entity.Balance) BalanceEvent {
	return BalanceEvent{
		Key:          b.Key().String(),
		WarehouseID:  b.WarehouseID,
		ItemType:     b.ItemType,
		ItemID:       b.ItemID,
		Quantity:     b.Quantity,
		MinStock:     b.MinStock,
		BelowMinimum: b.BelowMinimum(),
		Version:      b.Version,
		LastUpdated:  b.LastUpdated,
	}
}
