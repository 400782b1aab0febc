package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PushSink posts proposal payloads to an HTTP push gateway (FCM-style). Used
// as the fallback transport for drivers without a live websocket.
type PushSink struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewPushSink(endpoint, key string) *PushSink {
	return &PushSink{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (p *PushSink) ProposeAssignment(ctx context.Context, bookingID, driverID string, expiresAt time.Time) error {
	body, err := json.Marshal(ProposalFrame{
		Type:      "assignment_proposal",
		BookingID: bookingID,
		DriverID:  driverID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Key != "" {
		req.Header.Set("Authorization", "Bearer "+p.Key)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push gateway status %d", resp.StatusCode)
	}
	return nil
}

// FallbackSink tries the websocket session first and falls back to the push
// gateway when the driver has no live connection.
type FallbackSink struct {
	WS   *WSRegistry
	Push *PushSink
}

func (f *FallbackSink) ProposeAssignment(ctx context.Context, bookingID, driverID string, expiresAt time.Time) error {
	err := f.WS.ProposeAssignment(ctx, bookingID, driverID, expiresAt)
	if err == nil || f.Push == nil {
		return err
	}
	return f.Push.ProposeAssignment(ctx, bookingID, driverID, expiresAt)
}
