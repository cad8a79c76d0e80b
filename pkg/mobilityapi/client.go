package mobilityapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/requesthandler"
	"github.com/travigo/mobility-monitor/pkg/transport"
)

const mobilityFunctionPath = "functions/mobility"

// Fetcher retrieves the records of a single transport type around a location
type Fetcher interface {
	FetchForType(ctx context.Context, body transport.MobilityRequestBody) ([]transport.TransportData, error)
}

type Client struct {
	BaseURL string

	// Backend application credentials, sent as headers when set
	ApplicationID string
	RESTKey       string

	RequestHandler *requesthandler.Handler
}

func (c *Client) FetchForType(ctx context.Context, body transport.MobilityRequestBody) ([]transport.TransportData, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	requestURL := c.endpoint()

	var records []transport.TransportData
	err = c.RequestHandler.MakeJSONRequest(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}

		req.Header.Set("Content-Type", "application/json")
		if c.ApplicationID != "" {
			req.Header.Set("X-Parse-Application-Id", c.ApplicationID)
		}
		if c.RESTKey != "" {
			req.Header.Set("X-Parse-REST-API-Key", c.RESTKey)
		}

		return req, nil
	}, func(responseBody []byte) error {
		var decodeErr error
		records, decodeErr = decodeRecords(responseBody)
		return decodeErr
	})
	if err != nil {
		return nil, fmt.Errorf("fetch mobility for %s: %w", body.Type, err)
	}

	log.Debug().
		Str("type", string(body.Type)).
		Int("records", len(records)).
		Msg("Fetched mobility records")

	return records, nil
}

func (c *Client) endpoint() string {
	return strings.TrimSuffix(c.BaseURL, "/") + "/" + mobilityFunctionPath
}

// decodeRecords accepts a bare array or a cloud function {"result": [...]} envelope
func decodeRecords(body []byte) ([]transport.TransportData, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []transport.TransportData{}, nil
	}

	if trimmed[0] == '{' {
		var envelope struct {
			Result []transport.TransportData `json:"result"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, err
		}
		if envelope.Result == nil {
			return []transport.TransportData{}, nil
		}
		return envelope.Result, nil
	}

	var records []transport.TransportData
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []transport.TransportData{}
	}

	return records, nil
}
