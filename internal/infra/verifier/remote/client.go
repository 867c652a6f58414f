// Package remote calls an external proof-verification service over HTTP.
// The registry treats the service as an oracle: it posts the handle set,
// message, and proof, and trusts the boolean that comes back.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cipherid/internal/domain"
	"cipherid/internal/usecase"
)

const maxResponseBytes = 64 * 1024

type Client struct {
	baseURL string
	httpDo  func(*http.Request) (*http.Response, error)
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("verifier base url is required")
	}
	doer := http.DefaultClient.Do
	if httpClient != nil {
		doer = httpClient.Do
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpDo:  doer,
	}, nil
}

type verifyRequest struct {
	Handles []string `json:"handles"`
	Message string   `json:"message"`
	Proof   string   `json:"proof"`
}

type verifyResponse struct {
	Valid bool `json:"valid"`
}

func (c *Client) Verify(ctx context.Context, handles []domain.Ciphertext, message []byte, proof []byte) (bool, error) {
	encoded := make([]string, 0, len(handles))
	for _, handle := range handles {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(handle.Bytes()))
	}
	payload, err := json.Marshal(verifyRequest{
		Handles: encoded,
		Message: base64.StdEncoding.EncodeToString(message),
		Proof:   base64.StdEncoding.EncodeToString(proof),
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/proofs:verify", bytes.NewReader(payload))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpDo(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("verifier returned status %d", resp.StatusCode)
	}
	var out verifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, err
	}
	return out.Valid, nil
}

var _ usecase.ProofVerifier = (*Client)(nil)
