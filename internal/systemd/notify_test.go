package systemd

import (
	"io"
	"log/slog"
	"net"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// listenNotify stands in for the service manager: a unixgram socket
// published through NOTIFY_SOCKET, with received datagrams on the channel.
func listenNotify(t *testing.T) chan string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenPacket("unixgram", path)
	if err != nil {
		t.Fatalf("listen on notify socket failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)

	msgs := make(chan string, 4)
	go func() {
		buf := make([]byte, 256)
		for {
			n, _, readErr := conn.ReadFrom(buf)
			if readErr != nil {
				return
			}
			msgs <- string(buf[:n])
		}
	}()
	return msgs
}

func expectDatagram(t *testing.T, msgs chan string, want string) {
	t.Helper()
	select {
	case got := <-msgs:
		if got != want {
			t.Errorf("notify datagram %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no notify datagram received, want %q", want)
	}
}

func TestNotifyReady(t *testing.T) {
	msgs := listenNotify(t)
	NotifyReady(testLogger())
	expectDatagram(t, msgs, "READY=1")
}

func TestNotifyStopping(t *testing.T) {
	msgs := listenNotify(t)
	NotifyStopping(testLogger())
	expectDatagram(t, msgs, "STOPPING=1")
}

func TestNotifyStatus(t *testing.T) {
	msgs := listenNotify(t)
	NotifyStatus(testLogger(), "captured %d/%d frames", 3, 10)
	expectDatagram(t, msgs, "STATUS=captured 3/10 frames")
}

func TestNotifyOutsideSystemdIsNoOp(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	NotifyReady(testLogger())
	NotifyStopping(testLogger())
	NotifyStatus(testLogger(), "idle")
}
