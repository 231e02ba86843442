package postgres

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"
)

func TestSlowQueryHook(t *testing.T) {
	var buf bytes.Buffer
	h := &slowQueryHook{
		log:       slog.New(slog.NewJSONHandler(&buf, nil)),
		threshold: 50 * time.Millisecond,
	}

	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	if buf.Len() != 0 {
		t.Fatalf("fast query logged: %s", buf.String())
	}

	h.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now().Add(-time.Second)})
	if !strings.Contains(buf.String(), `"msg":"slow query"`) {
		t.Fatalf("slow query not logged: %s", buf.String())
	}
}
