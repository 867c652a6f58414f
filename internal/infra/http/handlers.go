package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"cipherid/internal/domain"
	"cipherid/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type registerRequest struct {
	EncryptedIdentifier string `json:"encrypted_identifier"`
	Proof               string `json:"proof"`
	PublicKey           uint64 `json:"public_key"`
}

type registerResponse struct {
	IdentifierHash string `json:"identifier_hash"`
}

type authenticateRequest struct {
	Proof         string `json:"proof"`
	AuthTimestamp int64  `json:"auth_timestamp"`
}

type ownershipRequest struct {
	Proof string `json:"proof"`
}

type ownershipResponse struct {
	Owned bool `json:"owned"`
}

type deviceResponse struct {
	IdentifierHash string `json:"identifier_hash"`
	PublicKey      uint64 `json:"public_key"`
	Owner          string `json:"owner"`
	IsActive       bool   `json:"is_active"`
	LastAuthTime   int64  `json:"last_auth_time"`
	CreatedAt      string `json:"created_at"`
}

type eventResponse struct {
	ID             string `json:"id"`
	Seq            int64  `json:"seq"`
	Type           string `json:"type"`
	IdentifierHash string `json:"identifier_hash"`
	Owner          string `json:"owner,omitempty"`
	AuthTime       int64  `json:"auth_time,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func (s *Server) handleRegister(c *gin.Context) {
	if s.registerUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "registry not initialized")
		return
	}
	principal, ok := s.requireCaller(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "devices:register", principal.Subject) {
		return
	}
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	encrypted, err := base64.StdEncoding.DecodeString(req.EncryptedIdentifier)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_CIPHERTEXT", "invalid ciphertext encoding")
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PROOF", "invalid proof encoding")
		return
	}

	resp, err := s.registerUC.Execute(c.Request.Context(), usecase.RegisterDeviceRequest{
		EncryptedIdentifier: encrypted,
		Proof:               proof,
		PublicKey:           req.PublicKey,
		Caller:              principal,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, registerResponse{IdentifierHash: resp.IdentifierHash.String()})
}

func (s *Server) handleAuthenticate(c *gin.Context) {
	if s.authenticateUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "registry not initialized")
		return
	}
	hash, ok := parseHashParam(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "devices:authenticate", hash.String()) {
		return
	}
	var req authenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PROOF", "invalid proof encoding")
		return
	}

	err = s.authenticateUC.Execute(c.Request.Context(), usecase.AuthenticateDeviceRequest{
		IdentifierHash: hash,
		Proof:          proof,
		AuthTimestamp:  req.AuthTimestamp,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

func (s *Server) handleVerifyOwnership(c *gin.Context) {
	if s.ownershipUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "registry not initialized")
		return
	}
	hash, ok := parseHashParam(c)
	if !ok {
		return
	}
	var req ownershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	proof, err := base64.StdEncoding.DecodeString(req.Proof)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_PROOF", "invalid proof encoding")
		return
	}

	owned, err := s.ownershipUC.Execute(c.Request.Context(), usecase.VerifyOwnershipRequest{
		IdentifierHash: hash,
		Proof:          proof,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ownershipResponse{Owned: owned})
}

func (s *Server) handleDeactivate(c *gin.Context) {
	if s.deactivateUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "registry not initialized")
		return
	}
	principal, ok := s.requireCaller(c)
	if !ok {
		return
	}
	hash, ok := parseHashParam(c)
	if !ok {
		return
	}
	if !s.enforceRateLimit(c, "devices:deactivate", principal.Subject) {
		return
	}

	err := s.deactivateUC.Execute(c.Request.Context(), usecase.DeactivateDeviceRequest{
		IdentifierHash: hash,
		Caller:         principal,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_active": false})
}

func (s *Server) handleGetDevice(c *gin.Context) {
	if s.queryUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "registry not initialized")
		return
	}
	hash, ok := parseHashParam(c)
	if !ok {
		return
	}
	view, err := s.queryUC.GetDevice(c.Request.Context(), hash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildDeviceResponse(view))
}

func (s *Server) handleOwnerDevices(c *gin.Context) {
	if s.queryUC == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "registry not initialized")
		return
	}
	principal, ok := s.requireCaller(c)
	if !ok {
		return
	}
	hashes, err := s.queryUC.OwnerDevices(c.Request.Context(), principal)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]string, 0, len(hashes))
	for _, hash := range hashes {
		out = append(out, hash.String())
	}
	c.JSON(http.StatusOK, gin.H{"devices": out})
}

func (s *Server) handleDeviceEvents(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.eventLog == nil {
		writeErrorCode(c, http.StatusInternalServerError, "INTERNAL", "registry not initialized")
		return
	}
	hash, ok := parseHashParam(c)
	if !ok {
		return
	}
	eventList, err := s.eventLog.ListByDevice(c.Request.Context(), hash)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]eventResponse, 0, len(eventList))
	for _, event := range eventList {
		out = append(out, eventResponse{
			ID:             event.ID,
			Seq:            event.Seq,
			Type:           string(event.Type),
			IdentifierHash: event.IdentifierHash.String(),
			Owner:          event.Owner,
			AuthTime:       event.AuthTime,
			CreatedAt:      event.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": out})
}

func parseHashParam(c *gin.Context) (domain.IdentifierHash, bool) {
	hash, err := domain.ParseIdentifierHash(c.Param("identifier_hash"))
	if err != nil {
		writeErrorCode(c, http.StatusNotFound, "DEVICE_NOT_FOUND", "unknown identifier hash")
		return "", false
	}
	return hash, true
}

func buildDeviceResponse(view domain.DeviceView) deviceResponse {
	return deviceResponse{
		IdentifierHash: view.IdentifierHash.String(),
		PublicKey:      view.PublicKey,
		Owner:          view.Owner,
		IsActive:       view.IsActive,
		LastAuthTime:   view.LastAuthTime,
		CreatedAt:      view.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidProof):
		status, code = http.StatusBadRequest, "INVALID_PROOF"
	case errors.Is(err, domain.ErrInvalidCiphertext):
		status, code = http.StatusBadRequest, "INVALID_CIPHERTEXT"
	case errors.Is(err, domain.ErrDuplicateRegistration):
		status, code = http.StatusConflict, "DUPLICATE_REGISTRATION"
	case errors.Is(err, domain.ErrDeviceNotFound):
		status, code = http.StatusNotFound, "DEVICE_NOT_FOUND"
	case errors.Is(err, domain.ErrDeviceInactive):
		status, code = http.StatusConflict, "DEVICE_INACTIVE"
	case errors.Is(err, domain.ErrNotOwner):
		status, code = http.StatusForbidden, "NOT_OWNER"
	case errors.Is(err, domain.ErrPolicyDenied):
		status, code = http.StatusForbidden, "POLICY_DENIED"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
