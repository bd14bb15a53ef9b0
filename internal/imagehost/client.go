// Package imagehost uploads captured images to the hosting collaborator and
// returns public URLs. Only the profile-picture category uses it.
package imagehost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultEndpoint = "https://api.imgbb.com/1/upload"

type Client struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func New(apiKey, endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	return &Client{client: client, endpoint: endpoint, apiKey: apiKey}
}

type uploadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
	Success bool `json:"success"`
}

// Upload pushes image bytes to the host and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, image []byte) (string, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":   c.apiKey,
			"image": base64.StdEncoding.EncodeToString(image),
		}).
		Post(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("image upload failed: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("image host returned %s", res.Status())
	}

	var parsed uploadResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		return "", fmt.Errorf("image host returned malformed response: %w", err)
	}
	if !parsed.Success || parsed.Data.URL == "" {
		return "", fmt.Errorf("image host rejected the upload")
	}
	return parsed.Data.URL, nil
}
