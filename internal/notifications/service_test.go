package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"picsift/internal/config"
	"picsift/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTest, nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := notifications.NewService(nil).Publish(context.Background(), "bogus", nil); err != nil {
		t.Fatalf("expected nil config to yield noop, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:  "scan completed",
			event: notifications.EventScanCompleted,
			payload: notifications.Payload{
				"scanID":   "0123456789abcdef",
				"files":    12,
				"groups":   2,
				"distinct": 9,
				"duration": 90 * time.Second,
			},
			expectTitle:   "picsift - Scan Complete",
			expectMessage: "Scan 01234567: 12 files, 2 duplicate groups, 9 distinct in 1m30s",
			expectTags:    "picsift,scan,completed",
		},
		{
			name:  "copy completed",
			event: notifications.EventCopyCompleted,
			payload: notifications.Payload{
				"target": "/archive",
				"copied": 3,
				"total":  3,
				"bytes":  int64(2048),
			},
			expectTitle:   "picsift - Copy Complete",
			expectMessage: "Copied 3 of 3 items (2.0 KiB) into /archive",
			expectTags:    "picsift,copy,completed",
		},
		{
			name:  "copy with errors",
			event: notifications.EventCopyCompleted,
			payload: notifications.Payload{
				"target": "/archive",
				"copied": 1,
				"total":  3,
				"errors": 2,
			},
			expectTitle:    "picsift - Copy Complete",
			expectMessage:  "Copied 1 of 3 items (0 B) into /archive\n2 item(s) failed",
			expectTags:     "picsift,copy,completed,warning",
			expectPriority: "high",
		},
		{
			name:  "failure",
			event: notifications.EventFailed,
			payload: notifications.Payload{
				"operation": "scan",
				"error":     errors.New("every root failed"),
			},
			expectTitle:    "picsift - Error",
			expectMessage:  "Error during scan: every root failed",
			expectTags:     "picsift,error",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, _ := io.ReadAll(r.Body)
				captured.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic disabled", http.StatusForbidden)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected status error, got %v", err)
	}
	if err := svc.Publish(context.Background(), "bogus", nil); err == nil {
		t.Fatal("expected unknown event to fail")
	}
}
