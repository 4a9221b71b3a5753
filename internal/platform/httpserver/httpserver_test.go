package httpserver

import (
	"net/http"
	"testing"
	"time"
)

func TestNewServer(t *testing.T) {
	srv := New(":8080", http.NewServeMux())

	if srv.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", srv.Addr)
	}
	if srv.Handler == nil {
		t.Fatal("handler not set")
	}
	if srv.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("unexpected read header timeout %v", srv.ReadHeaderTimeout)
	}
	if srv.WriteTimeout <= 60*time.Second {
		t.Fatalf("write timeout %v must outlast a synchronous load", srv.WriteTimeout)
	}
	if srv.ReadTimeout == 0 || srv.IdleTimeout == 0 {
		t.Fatal("read and idle timeouts must be bounded")
	}
}
