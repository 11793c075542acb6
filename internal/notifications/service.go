package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bleeparr/internal/config"
)

const userAgent = "bleeparr/0.1"

// Event identifies a notification type.
type Event string

const (
	EventCensored       Event = "censored"
	EventFailed         Event = "failed"
	EventCycleCompleted Event = "cycle_completed"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Known keys: title, detail, kind, swears,
// dryRun, reason, admitted, processed, failed, duration, context, error.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventCensored:       cfg.Notifications.Censored,
			EventFailed:         cfg.Notifications.Failures,
			EventCycleCompleted: cfg.Notifications.Cycles,
			EventError:          cfg.Notifications.Errors,
			EventTest:           true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	switch event {
	case EventCensored:
		label := joinLabel(p.str("title"), p.str("detail"))
		body := fmt.Sprintf("🔇 Censored: %s (%d muted)", label, p.integer("swears"))
		tags := []string{"bleeparr", "censored", p.str("kind")}
		if p.boolean("dryRun") {
			body = fmt.Sprintf("🔍 Dry run: %s (%d found)", label, p.integer("swears"))
			tags = []string{"bleeparr", "dryrun", p.str("kind")}
		}
		return message{title: "Bleeparr - Censored", body: body, tags: compact(tags)}, true
	case EventFailed:
		body := fmt.Sprintf("⚠️ Failed: %s", joinLabel(p.str("title"), p.str("detail")))
		if reason := p.str("reason"); reason != "" {
			body += "\n" + reason
		}
		return message{title: "Bleeparr - Failed", body: body, tags: []string{"bleeparr", "failed"}, priority: "high"}, true
	case EventCycleCompleted:
		body := fmt.Sprintf("Poll cycle: %d admitted, %d processed, %d failed in %s",
			p.integer("admitted"), p.integer("processed"), p.integer("failed"), p.duration("duration"))
		return message{title: "Bleeparr - Cycle Complete", body: body, tags: []string{"bleeparr", "cycle"}}, true
	case EventError:
		var b strings.Builder
		b.WriteString("❌ Error")
		if label := p.str("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if text := p.str("error"); text != "" {
			b.WriteString(text)
		} else {
			b.WriteString("unknown")
		}
		return message{title: "Bleeparr - Error", body: b.String(), tags: []string{"bleeparr", "error", "alert"}, priority: "high"}, true
	case EventTest:
		return message{title: "Bleeparr - Test", body: "🧪 Notification system test", tags: []string{"bleeparr", "test"}, priority: "low"}, true
	}
	return message{}, false
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }

func (p Payload) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (p Payload) integer(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) boolean(key string) bool {
	v, _ := p[key].(bool)
	return v
}

func (p Payload) duration(key string) time.Duration {
	v, _ := p[key].(time.Duration)
	return v.Round(time.Second)
}

func joinLabel(title, detail string) string {
	switch {
	case title == "":
		return detail
	case detail == "":
		return title
	default:
		return title + " - " + detail
	}
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
