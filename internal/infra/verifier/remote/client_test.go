package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"cipherid/internal/domain"
)

func testHandle(t *testing.T, fill byte) domain.Ciphertext {
	t.Helper()
	raw := make([]byte, domain.CiphertextSize)
	for i := range raw {
		raw[i] = fill
	}
	ct, err := domain.ImportCiphertext(raw)
	if err != nil {
		t.Fatalf("import ciphertext: %v", err)
	}
	return ct
}

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

func TestClient_Verify(t *testing.T) {
	handle := testHandle(t, 0x31)
	message := domain.OwnershipBindingMessage("alice")
	proof := []byte("proof-blob")

	var captured *http.Request
	var capturedBody []byte
	c, err := NewClient("https://verifier.example.com/", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.httpDo = func(req *http.Request) (*http.Response, error) {
		captured = req
		capturedBody, _ = io.ReadAll(req.Body)
		return stubResponse(http.StatusOK, `{"valid":true}`), nil
	}

	ok, err := c.Verify(context.Background(), []domain.Ciphertext{handle}, message, proof)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected valid")
	}

	if captured.Method != http.MethodPost {
		t.Fatalf("unexpected method %s", captured.Method)
	}
	if captured.URL.String() != "https://verifier.example.com/v1/proofs:verify" {
		t.Fatalf("unexpected url %s", captured.URL)
	}
	var sent verifyRequest
	if err := json.Unmarshal(capturedBody, &sent); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	if len(sent.Handles) != 1 || sent.Handles[0] != base64.StdEncoding.EncodeToString(handle.Bytes()) {
		t.Fatalf("handles not encoded: %v", sent.Handles)
	}
	if sent.Message != base64.StdEncoding.EncodeToString(message) {
		t.Fatalf("message not encoded: %s", sent.Message)
	}
	if sent.Proof != base64.StdEncoding.EncodeToString(proof) {
		t.Fatalf("proof not encoded: %s", sent.Proof)
	}
}

func TestClient_InvalidProofResult(t *testing.T) {
	c, _ := NewClient("https://verifier.example.com", nil)
	c.httpDo = func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusOK, `{"valid":false}`), nil
	}

	ok, err := c.Verify(context.Background(), []domain.Ciphertext{testHandle(t, 0x32)}, []byte("m"), []byte("p"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected invalid")
	}
}

func TestClient_NonOKStatus(t *testing.T) {
	c, _ := NewClient("https://verifier.example.com", nil)
	c.httpDo = func(req *http.Request) (*http.Response, error) {
		return stubResponse(http.StatusBadGateway, `upstream down`), nil
	}

	_, err := c.Verify(context.Background(), []domain.Ciphertext{testHandle(t, 0x33)}, []byte("m"), []byte("p"))
	if err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	if _, err := NewClient("  ", nil); err == nil {
		t.Fatal("expected error for empty base url")
	}
}
