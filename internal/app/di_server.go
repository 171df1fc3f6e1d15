package app

import (
	"fmt"

	apikeyHTTP "github.com/allisson/authkeyd/internal/apikey/http"
	apikeyRepository "github.com/allisson/authkeyd/internal/apikey/repository"
	apikeyService "github.com/allisson/authkeyd/internal/apikey/service"
	apikeyUseCase "github.com/allisson/authkeyd/internal/apikey/usecase"
	authzCache "github.com/allisson/authkeyd/internal/authz/cache"
	authzHTTP "github.com/allisson/authkeyd/internal/authz/http"
	authzRepository "github.com/allisson/authkeyd/internal/authz/repository"
	authzService "github.com/allisson/authkeyd/internal/authz/service"
	authzUseCase "github.com/allisson/authkeyd/internal/authz/usecase"
	"github.com/allisson/authkeyd/internal/http"
	identityHTTP "github.com/allisson/authkeyd/internal/identity/http"
	identityRepository "github.com/allisson/authkeyd/internal/identity/repository"
	identityService "github.com/allisson/authkeyd/internal/identity/service"
	identityUseCase "github.com/allisson/authkeyd/internal/identity/usecase"
	kekHTTP "github.com/allisson/authkeyd/internal/kek/http"
	kekRepository "github.com/allisson/authkeyd/internal/kek/repository"
	kekUseCase "github.com/allisson/authkeyd/internal/kek/usecase"
	recoveryHTTP "github.com/allisson/authkeyd/internal/recovery/http"
	recoveryRepository "github.com/allisson/authkeyd/internal/recovery/repository"
	recoveryUseCase "github.com/allisson/authkeyd/internal/recovery/usecase"
	tokenexchangeHTTP "github.com/allisson/authkeyd/internal/tokenexchange/http"
	tokenexchangeUseCase "github.com/allisson/authkeyd/internal/tokenexchange/usecase"
)

// initTupleStore selects the tuple-store adapter mode (§4.1): "local" keeps
// tuples in the service's own SQL database; "per-tenant" routes each tenant to
// its own OpenFGA store. The factory chooses by configuration, never by
// runtime type checks.
func (c *Container) initTupleStore() (authzRepository.TupleStore, error) {
	switch c.config.TupleStoreMode {
	case "local":
		db, err := c.DB()
		if err != nil {
			return nil, err
		}
		if c.config.DBDriver == "mysql" {
			return authzRepository.NewMySQLTupleStore(db), nil
		}
		return authzRepository.NewLocalTupleStore(db), nil
	case "per-tenant":
		return authzRepository.NewOpenFGATupleStore(
			c.config.OpenFGAAPIURL, c.config.OpenFGATenantNsTemplate,
		), nil
	default:
		return nil, fmt.Errorf("unsupported tuple store mode: %s", c.config.TupleStoreMode)
	}
}

// initHTTPServer wires the full dependency graph and mounts every route.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	db, err := c.DB()
	if err != nil {
		return nil, err
	}
	txManager, err := c.TxManager()
	if err != nil {
		return nil, err
	}
	metricsProvider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, err
	}

	// Authorization engine: tuple store behind the decision cache (C1, C2, C3).
	tupleStore, err := c.initTupleStore()
	if err != nil {
		return nil, err
	}
	decisionCache := authzCache.New(tupleStore, c.config.CacheTTL, c.config.CacheSweepRatio)
	c.addCloser(decisionCache.Close)
	authz := authzService.New(decisionCache, logger)

	// KEK custody (C7, C8).
	var kekVersionRepo kekRepository.KekVersionRepository
	var kekBlobRepo kekRepository.KekBlobRepository
	var apiKeyRepo apikeyRepository.APIKeyRepository
	var publicKeyRepo recoveryRepository.PublicKeyRepository
	var recoverySessionRepo recoveryRepository.RecoverySessionRepository
	switch c.config.DBDriver {
	case "mysql":
		kekVersionRepo = kekRepository.NewMySQLKekVersionRepository(db)
		kekBlobRepo = kekRepository.NewMySQLKekBlobRepository(db)
		apiKeyRepo = apikeyRepository.NewMySQLAPIKeyRepository(db)
		publicKeyRepo = recoveryRepository.NewMySQLPublicKeyRepository(db)
		recoverySessionRepo = recoveryRepository.NewMySQLRecoverySessionRepository(db)
	case "postgres":
		kekVersionRepo = kekRepository.NewPostgreSQLKekVersionRepository(db)
		kekBlobRepo = kekRepository.NewPostgreSQLKekBlobRepository(db)
		apiKeyRepo = apikeyRepository.NewPostgreSQLAPIKeyRepository(db)
		publicKeyRepo = recoveryRepository.NewPostgreSQLPublicKeyRepository(db)
		recoverySessionRepo = recoveryRepository.NewPostgreSQLRecoverySessionRepository(db)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}

	kekVersions := kekUseCase.NewKekVersionUseCaseWithMetrics(
		kekUseCase.NewKekVersionUseCase(txManager, kekVersionRepo),
		businessMetrics,
	)
	kekBlobs := kekUseCase.NewKekBlobUseCase(kekBlobRepo, kekVersions, authz)

	// Public keys and threshold recovery (C9).
	publicKeys := recoveryUseCase.NewPublicKeyUseCase(publicKeyRepo)
	recovery := recoveryUseCase.NewRecoveryUseCase(txManager, recoverySessionRepo, kekVersions, authz)
	recoverySweeper := recoveryUseCase.NewSweeper(recovery, c.config.RecoverySweep, logger)
	c.addCloser(recoverySweeper.Close)

	// Tenant lifecycle couples the graph with KEK bootstrap and cascades.
	tenants := authzUseCase.NewTenantUseCase(
		authz, kekVersions, logger,
		kekVersions, kekBlobs, recovery, publicKeys,
	)

	// API keys (C5).
	challenges := apikeyService.NewChallengeStore(c.config.ChallengeTTL, c.config.ChallengeSweep)
	c.addCloser(challenges.Close)
	apiKeys := apikeyUseCase.New(apiKeyRepo, apikeyService.NewSecretHasher(), challenges)

	// Identity gateway (C4).
	sessionTokens := identityService.NewSessionTokenService(
		c.config.SessionTokenSecret, c.config.SessionTokenTTL,
	)
	jwksVerifier := identityService.NewJWKSVerifier(c.config.JWKSIssuerURL, c.config.JWKSRefreshPeriod)
	idpClient := identityService.NewIdentityProviderClient(c.config.IdPTokenURL)
	denyList := identityRepository.NewDenyList(c.config.LogoutDenyListTTL)
	c.addCloser(denyList.Close)
	identity := identityUseCase.New(sessionTokens, jwksVerifier, idpClient, apiKeys, denyList)

	// Token exchange (C6).
	tokenExchange := tokenexchangeUseCase.New(identity, sessionTokens, authz, c.config.ResourceTokenTTL)

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, logger)
	server.SetupRouter(
		c.config,
		http.Handlers{
			Identity:      identityHTTP.NewIdentityHandler(identity, logger),
			TokenExchange: tokenexchangeHTTP.NewTokenExchangeHandler(tokenExchange, logger),
			Authz:         authzHTTP.NewAuthzHandler(authz, logger),
			Tenant:        authzHTTP.NewTenantHandler(tenants, logger),
			APIKey:        apikeyHTTP.NewAPIKeyHandler(apiKeys, logger),
			KekVersion:    kekHTTP.NewKekVersionHandler(kekVersions, authz, logger),
			KekBlob:       kekHTTP.NewKekBlobHandler(kekBlobs, logger),
			Recovery:      recoveryHTTP.NewRecoveryHandler(recovery, logger),
			PublicKey:     recoveryHTTP.NewPublicKeyHandler(publicKeys, logger),
		},
		identity,
		metricsProvider,
	)
	return server, nil
}
