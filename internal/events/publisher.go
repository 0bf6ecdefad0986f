// Package events はレコードの作成・削除などのドメインイベントをメッセージバスへ通知する。
// 通知は投げっぱなしで、失敗してもリクエストは失敗させない。
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// イベントのサブジェクト（プレフィックスを除いた部分）。
const (
	SubjectCompanyCreated = "company.created"
	SubjectCompanyDeleted = "company.deleted"
	SubjectProjectCreated = "project.created"
	SubjectProjectDeleted = "project.deleted"
	SubjectCreditRecorded = "credit.recorded"
	SubjectAssetOrphaned  = "asset.orphaned"
)

// DefaultSubjectPrefix はサブジェクトの既定プレフィックス。
const DefaultSubjectPrefix = "marketplace"

// Event はバスに流すJSONペイロード。
type Event struct {
	Subject    string         `json:"subject"`
	OccurredAt time.Time      `json:"occurred_at"`
	ActorID    string         `json:"actor_id,omitempty"`
	Data       map[string]any `json:"data"`
}

// Publisher はドメインイベントの発行者。
type Publisher interface {
	Publish(ctx context.Context, subject, actorID string, data map[string]any) error
	Close() error
}

// FailureRecorder は発行失敗を記録する。metrics.Collectorが満たす。
type FailureRecorder interface {
	RecordPublishFailure(subject string)
}

// NopPublisher はNATS未設定時に使う、何もしない発行者。
type NopPublisher struct{}

// Publish は何もしない。
func (NopPublisher) Publish(context.Context, string, string, map[string]any) error { return nil }

// Close は何もしない。
func (NopPublisher) Close() error { return nil }

// natsConn はNATSPublisherが使うコネクションの操作。テストで差し替える。
type natsConn interface {
	Publish(subj string, data []byte) error
	Drain() error
}

// NATSPublisher はNATSコアのpublishでイベントを発行する。
type NATSPublisher struct {
	conn   natsConn
	prefix string
	now    func() time.Time
}

// Connect はNATSサーバーへ接続し、NATSPublisherを返す。
// 切断時は nats.go の自動再接続に任せる。
func Connect(url, prefix string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("carbonmarket-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", slog.String("url", c.ConnectedUrlRedacted()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats: %w", err)
	}
	return newNATSPublisher(nc, prefix), nil
}

func newNATSPublisher(conn natsConn, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{
		conn:   conn,
		prefix: strings.TrimRight(prefix, "."),
		now:    time.Now,
	}
}

// FullSubject は <prefix>.<subject> を返す。
func (p *NATSPublisher) FullSubject(subject string) string {
	return p.prefix + "." + subject
}

// Publish はイベントをJSONにして発行する。
func (p *NATSPublisher) Publish(_ context.Context, subject, actorID string, data map[string]any) error {
	full := p.FullSubject(subject)
	payload, err := json.Marshal(Event{
		Subject:    full,
		OccurredAt: p.now().UTC(),
		ActorID:    actorID,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", full, err)
	}
	if err := p.conn.Publish(full, payload); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", full, err)
	}
	return nil
}

// Close は未送信のメッセージを送り切ってから接続を閉じる。
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Notify は発行に失敗してもログとメトリクスに残すだけで、呼び出し元には返さない。
func Notify(ctx context.Context, pub Publisher, rec FailureRecorder, subject, actorID string, data map[string]any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, subject, actorID, data); err != nil {
		slog.Warn("event publish failed",
			slog.String("subject", subject),
			slog.String("error", err.Error()),
		)
		if rec != nil {
			rec.RecordPublishFailure(subject)
		}
	}
}
