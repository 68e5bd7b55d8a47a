package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/metrics"
	"Campus_Community/internal/model"
)

// Sender 投递一条 outbox 事件
type Sender func(ctx context.Context, ob *model.NotificationOutbox) error

// Producer is the subset of the Kafka producer the relayer needs.
type Producer interface {
	Send(ctx context.Context, key string, value []byte) error
}

// OutboxRelayer outbox表相关服务
type OutboxRelayer struct {
	repo      OutboxStore
	batchSize int
	maxRetry  int
	interval  time.Duration
	sender    Sender
}

func NewOutboxRelayer(repo OutboxStore, sender Sender, batchSize, maxRetry int, interval time.Duration) *OutboxRelayer {
	return &OutboxRelayer{
		repo:      repo,
		batchSize: batchSize,
		maxRetry:  maxRetry,
		interval:  interval,
		sender:    sender,
	}
}

// Run outbox启动器
func (r *OutboxRelayer) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.DrainOnce(ctx)
		}
	}
}

// DrainOnce 读取一批待投递事件交给 sender，返回成功条数
func (r *OutboxRelayer) DrainOnce(ctx context.Context) int {
	rows, err := r.repo.ListPending(ctx, r.batchSize, r.maxRetry)
	if err != nil {
		logging.Log.Error().Err(err).Msg("outbox query failed")
		return 0
	}
	sent := 0
	for i := range rows {
		ob := rows[i]
		if err = r.sender(ctx, &ob); err != nil {
			metrics.IncRelayFailed()
			logging.Log.Warn().Err(err).Uint64("outbox_id", ob.ID).Int("retry", ob.Retry).Msg("outbox send failed")
			_ = r.repo.MarkFailed(ctx, ob.ID)
			continue
		}
		metrics.IncRelaySent()
		if err = r.repo.MarkSent(ctx, ob.ID); err != nil {
			logging.Log.Error().Err(err).Uint64("outbox_id", ob.ID).Msg("outbox mark sent failed")
			continue
		}
		sent++
	}
	return sent
}

// decodeOutbox 解出事件并带上 outbox id，作为扇出的幂等键
func decodeOutbox(ob *model.NotificationOutbox) (model.OutboxEvent, error) {
	var ev model.OutboxEvent
	if err := json.Unmarshal([]byte(ob.Payload), &ev); err != nil {
		return ev, fmt.Errorf("decode outbox %d: %w", ob.ID, err)
	}
	ev.OutboxID = ob.ID
	return ev, nil
}

// KafkaSender 投递到通知 topic，同一 scope 的事件落在同一分区
func KafkaSender(p Producer) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		ev, err := decodeOutbox(ob)
		if err != nil {
			return err
		}
		value, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		key := fmt.Sprintf("%s:%d", ob.Scope, ob.ScopeID)
		return p.Send(ctx, key, value)
	}
}

// DirectSender 未配置 Kafka 时在进程内直接扇出
func DirectSender(n *NotificationService) Sender {
	return func(ctx context.Context, ob *model.NotificationOutbox) error {
		ev, err := decodeOutbox(ob)
		if err != nil {
			return err
		}
		_, err = n.FanOut(ctx, ev)
		return err
	}
}

// HandleMessage Kafka 消费回调；无法解码的消息记录后跳过，避免卡住分区
func (s *NotificationService) HandleMessage(ctx context.Context, key, value []byte) error {
	var ev model.OutboxEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		logging.Log.Error().Err(err).Str("key", string(key)).Msg("drop undecodable notification event")
		return nil
	}
	n, err := s.FanOut(ctx, ev)
	if err != nil {
		return err
	}
	logging.Log.Debug().Str("event", ev.EventType).Str("key", string(key)).Int("created", n).Msg("notification event consumed")
	return nil
}
