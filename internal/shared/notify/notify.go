package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// Notifier — 业务事件通知
// 事件发布到Redis频道供其他服务订阅，可选同时推送到外部webhook
// =============================================================================

// 事件类型
const (
	EventRFPPublished = "rfp.published"
	EventBidSubmitted = "bid.submitted"
	EventBidWithdrawn = "bid.withdrawn"
	EventBidLeveled   = "bid.leveled"
	EventBidAwarded   = "bid.awarded"
)

// Redis发布频道
const channel = "sitepm:events"

// Event 业务事件
type Event struct {
	Type      string    `json:"type"`
	Subject   string    `json:"subject"` // 事件主体ID（如RFP ID）
	Message   string    `json:"message"`
	Actor     string    `json:"actor,omitempty"` // 触发人用户ID
	Timestamp time.Time `json:"timestamp"`
}

// Notifier 事件通知器
type Notifier struct {
	rdb        *redis.Client
	webhookURL string       // 外部webhook地址，为空则不推送
	httpClient *http.Client // HTTP客户端
}

// NewNotifier 创建通知器。rdb为nil时Redis发布被跳过，
// webhookURL为空时外部推送被跳过，两者都可单独关闭。
func NewNotifier(rdb *redis.Client, webhookURL string) *Notifier {
	return &Notifier{
		rdb:        rdb,
		webhookURL: webhookURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Publish 发布事件。先发Redis再推webhook，
// 任一环节失败即返回错误，由调用方决定是否重试。
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	if n.rdb != nil {
		if err := n.rdb.Publish(ctx, channel, payload).Err(); err != nil {
			return fmt.Errorf("发布事件到Redis失败: %w", err)
		}
	}

	if n.webhookURL != "" {
		if err := n.postWebhook(ctx, payload); err != nil {
			return err
		}
	}

	return nil
}

// postWebhook 推送事件到外部webhook
func (n *Notifier) postWebhook(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, "POST", n.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("创建webhook请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("推送webhook失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook返回非成功状态码: %d", resp.StatusCode)
	}
	return nil
}

// Subscribe 订阅事件频道，返回事件通道。
// 用于进程内需要响应事件的组件，ctx取消后通道关闭。
func (n *Notifier) Subscribe(ctx context.Context) (<-chan Event, error) {
	if n.rdb == nil {
		return nil, fmt.Errorf("未配置Redis，无法订阅事件")
	}

	sub := n.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("订阅事件频道失败: %w", err)
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer sub.Close()
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, nil
}
