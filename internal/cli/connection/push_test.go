package connection

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/linescope/linescope-go/internal/core/domain"
	"github.com/linescope/linescope-go/internal/core/service"
	"github.com/linescope/linescope-go/internal/server/intakeserver"
	"github.com/linescope/linescope-go/internal/storage/cache"
	"github.com/linescope/linescope-go/internal/storage/window"
)

func startTestIntake(t *testing.T) (*intakeserver.Server, *service.SensorService) {
	t.Helper()

	store := window.New(filepath.Join(t.TempDir(), "data.txt"), 48, nil)
	win := cache.NewWindow(cache.New(nil), store)
	svc := service.NewSensorService(win, nil)

	cfg := intakeserver.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	srv := intakeserver.New(cfg, svc, nil, nil)
	if err := srv.Start(); err != nil {
		t.Fatalf("start intake: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	return srv, svc
}

func TestPushClient_Push(t *testing.T) {
	srv, svc := startTestIntake(t)
	client := NewPushClient(srv.Addr())

	sent := domain.Reading{
		Timestamp:   time.Date(2026, 3, 14, 9, 26, 0, 0, domain.SiteZone()),
		Temperature: domain.Float(23.25),
		Lux:         domain.Float(800),
	}
	if err := client.Push(context.Background(), sent); err != nil {
		t.Fatalf("Push() = %v", err)
	}

	got, err := svc.ReadLatest(context.Background())
	if err != nil {
		t.Fatalf("ReadLatest() = %v", err)
	}
	if !got.Timestamp.Equal(sent.Timestamp) {
		t.Errorf("stored timestamp = %v, want %v", got.Timestamp, sent.Timestamp)
	}
	if got.Lux == nil || *got.Lux != 800 {
		t.Errorf("stored lux = %v, want 800", got.Lux)
	}
	if got.SwaySpeed != nil {
		t.Errorf("unset channel arrived non-nil: %v", got.SwaySpeed)
	}
}

func TestPushClient_FrameNumbersIncrement(t *testing.T) {
	srv, _ := startTestIntake(t)
	client := NewPushClient(srv.Addr())

	for i := 0; i < 3; i++ {
		r := domain.Reading{
			Timestamp: time.Date(2026, 3, 14, 9, 10+i, 0, 0, domain.SiteZone()),
			Humidity:  domain.Float(60),
		}
		if err := client.Push(context.Background(), r); err != nil {
			t.Fatalf("Push %d = %v", i, err)
		}
	}
	if got := client.frameNo.Load(); got != 3 {
		t.Errorf("frameNo = %d, want 3", got)
	}
}

func TestPushClient_PushRejectsZeroTimestamp(t *testing.T) {
	srv, svc := startTestIntake(t)
	client := NewPushClient(srv.Addr())

	err := client.Push(context.Background(), domain.Reading{Temperature: domain.Float(20)})
	if err == nil {
		t.Fatal("Push() accepted a zero timestamp")
	}

	if _, err := svc.ReadLatest(context.Background()); err == nil {
		t.Fatal("rejected reading reached the window")
	}
}

func TestPushClient_Heartbeat(t *testing.T) {
	srv, _ := startTestIntake(t)
	client := NewPushClient(srv.Addr())

	if err := client.Heartbeat(context.Background()); err != nil {
		t.Fatalf("Heartbeat() = %v", err)
	}
}

func TestPushClient_NoServer(t *testing.T) {
	client := NewPushClient("127.0.0.1:1")
	client.timeout = time.Second

	err := client.Push(context.Background(), domain.Reading{
		Timestamp: time.Date(2026, 3, 14, 9, 26, 0, 0, domain.SiteZone()),
	})
	if err == nil {
		t.Fatal("Push() succeeded with no server")
	}
}
