package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"picsift/internal/config"
)

const userAgent = "picsift/0.1"

// Event names a notification kind.
type Event string

const (
	EventScanCompleted Event = "scan_completed"
	EventCopyCompleted Event = "copy_completed"
	EventFailed        Event = "failed"
	EventTest          Event = "test"
)

// Payload carries event fields. Keys used per event:
//
//	scan_completed: scanID, files, groups, distinct, duration
//	copy_completed: target, copied, total, errors, bytes
//	failed:         operation, error
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one when
// notifications.ntfy_topic is empty.
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
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, p Payload) (message, bool) {
	switch event {
	case EventScanCompleted:
		body := fmt.Sprintf("Scan %s: %d files, %d duplicate groups, %d distinct",
			shortID(p.str("scanID")), p.num("files"), p.num("groups"), p.num("distinct"))
		if d, ok := p["duration"].(time.Duration); ok && d > 0 {
			body += " in " + d.Round(time.Second).String()
		}
		return message{title: "picsift - Scan Complete", body: body, tags: []string{"picsift", "scan", "completed"}}, true
	case EventCopyCompleted:
		body := fmt.Sprintf("Copied %d of %d items (%s) into %s",
			p.num("copied"), p.num("total"), humanize.IBytes(uint64(max(p.num("bytes"), 0))), p.str("target"))
		msg := message{title: "picsift - Copy Complete", body: body, tags: []string{"picsift", "copy", "completed"}}
		if errs := p.num("errors"); errs > 0 {
			msg.body += fmt.Sprintf("\n%d item(s) failed", errs)
			msg.tags = append(msg.tags, "warning")
			msg.priority = "high"
		}
		return msg, true
	case EventFailed:
		var b strings.Builder
		b.WriteString("Error")
		if op := p.str("operation"); op != "" {
			b.WriteString(" during ")
			b.WriteString(op)
		}
		b.WriteString(": ")
		if e := p.str("error"); e != "" {
			b.WriteString(e)
		} else {
			b.WriteString("unknown")
		}
		return message{title: "picsift - Error", body: b.String(), tags: []string{"picsift", "error"}, priority: "high"}, true
	case EventTest:
		return message{title: "picsift - Test", body: "Notification system test", tags: []string{"picsift", "test"}, priority: "low"}, true
	}
	return message{}, false
}

func (p Payload) str(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case error:
		return strings.TrimSpace(v.Error())
	case fmt.Stringer:
		return v.String()
	}
	return ""
}

func (p Payload) num(key string) int64 {
	switch v := p[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint64:
		return int64(v)
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
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
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
