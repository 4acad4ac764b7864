// Navwatch subscribes to a running rover's /ws/navigation feed and prints
// every instruction as it is published.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-rover/internal/log"
	"github.com/teslashibe/go-rover/pkg/navigation"
)

const (
	maxBackoff = 10 * time.Second
	pongWait   = 60 * time.Second
)

// event mirrors web.NavigationEvent; importing pkg/web would pull in OpenCV.
type event struct {
	Source     string                 `json:"source"`
	Navigation navigation.Instruction `json:"navigation"`
	Timestamp  time.Time              `json:"timestamp"`
}

func main() {
	url := flag.String("url", "ws://localhost:3000/ws/navigation", "Rover navigation feed")
	raw := flag.Bool("json", false, "Print raw JSON events")
	flag.Parse()

	log.Init("info")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	backoff := 500 * time.Millisecond
	for ctx.Err() == nil {
		err := watch(ctx, *url, *raw)
		if ctx.Err() != nil {
			break
		}
		log.Warn("feed lost, reconnecting", "error", err, "in", backoff)

		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func watch(ctx context.Context, url string, raw bool) error {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()
	log.Info("connected", "url", url)

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))

		if raw {
			fmt.Println(string(data))
			continue
		}

		var ev event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Warn("bad event", "error", err)
			continue
		}
		fmt.Fprintln(os.Stdout, format(ev))
	}
}

func format(ev event) string {
	nav := ev.Navigation
	ts := ev.Timestamp.Local().Format("15:04:05.000")
	if !nav.HasTarget() {
		return fmt.Sprintf("%s [%s] no target", ts, ev.Source)
	}

	move := nav.Movement.Token()
	if move == "" {
		move = "hold"
	}
	return fmt.Sprintf("%s [%s] angle=%+6.2f° %-6s target=(%d,%d) conf=%.2f %s",
		ts, ev.Source, nav.Angle, move,
		nav.Target.Center[0], nav.Target.Center[1], nav.Target.Confidence, nav.Target.Distance)
}
