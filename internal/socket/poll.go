package socket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const pollTimeout = 35 * time.Second

// pollLoop is the degraded transport: repeated long-poll GETs against the
// fallback endpoint, each returning a batch of envelopes. Emits go out as
// individual POSTs. Runs until the manager is closed.
func (c *Conn) pollLoop(ctx context.Context) {
	c.mu.Lock()
	c.polling = true
	c.mu.Unlock()
	c.status(true, "long-poll")

	client := &http.Client{Timeout: pollTimeout}
	for ctx.Err() == nil {
		envs, err := c.pollOnce(ctx, client)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			c.log.Warn().Err(err).Msg("long-poll request failed")
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.ReconnectDelay):
			}
			continue
		}
		for _, env := range envs {
			c.dispatch(env)
		}
	}

	c.mu.Lock()
	c.polling = false
	c.mu.Unlock()
	c.status(false, "closed")
}

func (c *Conn) pollOnce(ctx context.Context, client *http.Client) ([]Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.PollURL+"?session="+c.sessionID, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		// An expired token will not fix itself; tell the session layer
		// instead of decoding the error body as envelopes.
		c.status(false, "unauthorized")
		return nil, fmt.Errorf("long-poll rejected: %s", resp.Status)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("long-poll failed: %s", resp.Status)
	}

	var envs []Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (c *Conn) pollEmit(env Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.PollURL+"?session="+c.sessionID, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("event", string(env.Event)).Msg("long-poll emit failed")
		return
	}
	resp.Body.Close()
}

func (c *Conn) authorize(req *http.Request) {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}
