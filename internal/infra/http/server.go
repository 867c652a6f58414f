package http

import (
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"time"

	"cipherid/internal/config"
	"cipherid/internal/domain"
	"cipherid/internal/infra/auth/jwtauth"
	"cipherid/internal/infra/db"
	"cipherid/internal/infra/events"
	"cipherid/internal/infra/memstore"
	"cipherid/internal/infra/policyopa"
	"cipherid/internal/infra/ratelimit"
	"cipherid/internal/infra/verifier/remote"
	"cipherid/internal/infra/verifier/soft"
	"cipherid/internal/usecase"

	"github.com/gin-gonic/gin"
)

type Server struct {
	cfg   config.Config
	store *db.Store
	r     *gin.Engine

	registerUC     *usecase.RegisterDevice
	authenticateUC *usecase.AuthenticateDevice
	ownershipUC    *usecase.VerifyOwnership
	deactivateUC   *usecase.DeactivateDevice
	queryUC        *usecase.DeviceQuery
	eventLog       usecase.EventRepository

	adminAPIKey string

	authenticator domain.Authenticator
	initErr       error

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

func NewServer(cfg config.Config, store *db.Store) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, r: r}
	s.initDeps()
	s.routes()
	return s
}

type ServerDeps struct {
	Register      *usecase.RegisterDevice
	Authenticate  *usecase.AuthenticateDevice
	Ownership     *usecase.VerifyOwnership
	Deactivate    *usecase.DeactivateDevice
	Query         *usecase.DeviceQuery
	EventLog      usecase.EventRepository
	AdminAPIKey   string
	Authenticator domain.Authenticator
	RateLimiter   domain.RateLimiter
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		cfg:            cfg,
		r:              r,
		registerUC:     deps.Register,
		authenticateUC: deps.Authenticate,
		ownershipUC:    deps.Ownership,
		deactivateUC:   deps.Deactivate,
		queryUC:        deps.Query,
		eventLog:       deps.EventLog,
		adminAPIKey:    deps.AdminAPIKey,
		authenticator:  deps.Authenticator,
	}
	s.initRateLimit(deps.RateLimiter)
	s.initAuth()
	s.routes()
	return s
}

func (s *Server) initDeps() {
	s.adminAPIKey = s.cfg.AdminAPIKey

	var devices usecase.DeviceRepository
	var eventLog usecase.EventRepository
	if s.store != nil && s.store.DB != nil {
		devices = db.NewDeviceRepository(s.store.DB)
		eventLog = db.NewEventRepository(s.store.DB)
	} else {
		memoryLog := events.NewMemoryLog()
		devices = memstore.New(memoryLog)
		eventLog = memoryLog
	}

	verifier, err := s.buildVerifier()
	if err != nil {
		s.initErr = err
		return
	}

	var policy usecase.PolicyEngine
	if s.cfg.PolicyBundlePath != "" {
		engine, err := policyopa.NewEngineFromBundlePath(context.Background(), s.cfg.PolicyBundlePath, s.cfg.PolicyBundleID)
		if err != nil {
			s.initErr = err
			return
		}
		policy = engine
	}

	var publisher usecase.EventPublisher
	if s.cfg.RedisAddr != "" {
		pub, err := events.NewRedisPublisher(s.cfg.RedisAddr, s.cfg.RedisPassword, s.cfg.RedisDB, s.cfg.EventStream)
		if err != nil {
			log.Printf("event publisher unavailable, events stay local only: %v", err)
		} else {
			publisher = pub
		}
	}

	s.registerUC = &usecase.RegisterDevice{
		Devices:   devices,
		Policy:    policy,
		Publisher: publisher,
	}
	s.authenticateUC = &usecase.AuthenticateDevice{
		Devices:   devices,
		Verifier:  verifier,
		Publisher: publisher,
	}
	s.ownershipUC = &usecase.VerifyOwnership{
		Devices:  devices,
		Verifier: verifier,
	}
	s.deactivateUC = &usecase.DeactivateDevice{
		Devices: devices,
	}
	s.queryUC = &usecase.DeviceQuery{
		Devices: devices,
	}
	s.eventLog = eventLog

	s.initRateLimit(nil)
	s.initAuth()
}

func (s *Server) buildVerifier() (usecase.ProofVerifier, error) {
	if s.cfg.VerifierURL != "" {
		return remote.NewClient(s.cfg.VerifierURL, nil)
	}
	if s.cfg.VerifierPublicKeyBase64 != "" {
		key, err := base64.StdEncoding.DecodeString(s.cfg.VerifierPublicKeyBase64)
		if err != nil {
			return nil, errors.New("invalid VERIFIER_PUBLIC_KEY_BASE64")
		}
		return soft.NewVerifier(key)
	}
	return nil, errors.New("no proof verifier configured: set VERIFIER_URL or VERIFIER_PUBLIC_KEY_BASE64")
}

func (s *Server) initAuth() {
	switch s.cfg.AuthMode {
	case "", "none":
		return
	case "jwt":
		if s.authenticator != nil {
			return
		}
		authenticator, err := jwtauth.NewAuthenticator(s.cfg.JWTSecret)
		if err != nil {
			s.initErr = err
			return
		}
		s.authenticator = authenticator
	default:
		s.initErr = errors.New("unsupported auth mode")
	}
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisLimiterConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			if err != nil {
				log.Printf("redis rate limiter unavailable, falling back to in-memory windows: %v", err)
			} else {
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	if s.cfg.RateLimitWindowSeconds > 0 {
		s.rateLimitWindow = time.Duration(s.cfg.RateLimitWindowSeconds) * time.Second
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		storeMode := "memory"
		if s.store != nil && s.store.DB != nil {
			storeMode = "db"
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": storeMode})
	})

	v1 := s.r.Group("/v1")
	{
		v1.POST("/devices", s.handleRegister)
		v1.POST("/devices/:identifier_hash/authenticate", s.handleAuthenticate)
		v1.POST("/devices/:identifier_hash/ownership", s.handleVerifyOwnership)
		v1.POST("/devices/:identifier_hash/deactivate", s.handleDeactivate)
		v1.GET("/devices", s.handleOwnerDevices)
		v1.GET("/devices/:identifier_hash", s.handleGetDevice)
		v1.GET("/devices/:identifier_hash/events", s.handleDeviceEvents)
	}
}

func (s *Server) Run() error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.r.Run(s.cfg.HTTPAddr)
}
