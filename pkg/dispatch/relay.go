package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/teslashibe/go-rover/internal/httpc"
)

// Relay forwards directions to the motor relay running on the robot
// (POST {base}/move {"direction": "..."}).
type Relay struct {
	baseURL string
	client  *http.Client
}

// NewRelay creates a relay client using the shared HTTP client.
func NewRelay(baseURL string) *Relay {
	return &Relay{baseURL: strings.TrimRight(baseURL, "/"), client: httpc.Client}
}

// MoveRequest is the body the robot relay expects.
type MoveRequest struct {
	Direction Direction `json:"direction"`
}

// Move implements Mover.
func (r *Relay) Move(ctx context.Context, dir Direction) error {
	body, err := json.Marshal(MoveRequest{Direction: dir})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/move", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return r.do(req)
}

// Honk sounds the horn.
func (r *Relay) Honk(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/honk", nil)
	if err != nil {
		return err
	}
	return r.do(req)
}

// Ping checks that the relay is reachable.
func (r *Relay) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL, nil)
	if err != nil {
		return err
	}
	return r.do(req)
}

func (r *Relay) do(req *http.Request) error {
	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("relay: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
