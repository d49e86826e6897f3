package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

type relayRequest struct {
	Message        string  `json:"message"`
	CustomerDomain string  `json:"customerDomain,omitempty"`
	ConversationID *string `json:"conversationId"`
}

type relayResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

type relayClient struct {
	endpoint   string
	customerID string
	http       *http.Client
}

func (c *relayClient) send(ctx context.Context, req relayRequest) (relayResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return relayResponse{}, errors.Wrap(err, "encode relay request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return relayResponse{}, errors.Wrap(err, "build relay request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Customer-ID", c.customerID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return relayResponse{}, errors.Wrap(err, "send relay request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return relayResponse{}, errors.Errorf("relay responded with status %d", resp.StatusCode)
	}

	var out relayResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return relayResponse{}, errors.Wrap(err, "decode relay response")
	}
	return out, nil
}
