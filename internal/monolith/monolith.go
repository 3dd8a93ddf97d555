// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/reserve-relayer/internal/config"
	"github.com/fd1az/reserve-relayer/internal/di"
	"github.com/fd1az/reserve-relayer/internal/health"
	"github.com/fd1az/reserve-relayer/internal/logger"
	"github.com/fd1az/reserve-relayer/internal/redisclient"
	"github.com/fd1az/reserve-relayer/internal/scheduler"
	"github.com/fd1az/reserve-relayer/internal/token"
)

// Well-known service names for shared infrastructure.
const (
	ServiceConfig    = "config"
	ServiceLogger    = "logger"
	ServiceEthClient = "ethClient"
	ServiceTokens    = "tokens"
	ServiceRedis     = "redis"
	ServiceScheduler = "scheduler"
	ServiceHealth    = "health"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	Tokens() *token.Registry
	// Redis is nil unless a component is configured with the redis driver.
	Redis() *redis.Client
	Scheduler() *scheduler.Scheduler
	Health() *health.Registry
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// App implements the Monolith interface.
type App struct {
	config    *config.Config
	logger    logger.LoggerInterface
	ethClient *ethclient.Client
	tokens    *token.Registry
	redis     *redis.Client
	scheduler *scheduler.Scheduler
	health    *health.Registry
	container di.Container
}

// New dials the shared clients and registers them in a fresh container.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface, version string) (*App, error) {
	ethClient, err := ethclient.DialContext(ctx, cfg.Ethereum.HTTPURL)
	if err != nil {
		return nil, err
	}

	tokens, err := TokenRegistry(cfg.Tokens)
	if err != nil {
		ethClient.Close()
		return nil, err
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb, err = redisclient.New(ctx, redisclient.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			ethClient.Close()
			return nil, err
		}
	}

	a := &App{
		config:    cfg,
		logger:    log,
		ethClient: ethClient,
		tokens:    tokens,
		redis:     rdb,
		scheduler: scheduler.New(log),
		health:    health.NewRegistry(version, 0),
		container: di.NewContainer(),
	}

	a.container.Register(ServiceConfig, cfg)
	a.container.Register(ServiceLogger, log)
	a.container.Register(ServiceEthClient, ethClient)
	a.container.Register(ServiceTokens, tokens)
	a.container.Register(ServiceRedis, rdb)
	a.container.Register(ServiceScheduler, a.scheduler)
	a.container.Register(ServiceHealth, a.health)

	a.health.RegisterCheck("ethereum", func(ctx context.Context) (bool, string) {
		if _, err := ethClient.BlockNumber(ctx); err != nil {
			return false, err.Error()
		}
		return true, ""
	})
	if rdb != nil {
		a.health.RegisterCheck("redis", func(ctx context.Context) (bool, string) {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return false, err.Error()
			}
			return true, ""
		})
	}

	return a, nil
}

// TokenRegistry builds the token directory from configuration.
func TokenRegistry(tokens []config.TokenConfig) (*token.Registry, error) {
	seen := make(map[string]bool, 2*len(tokens))
	reg := token.NewRegistry()
	for _, t := range tokens {
		tok := token.New(common.HexToAddress(t.Address), t.Symbol, t.Decimals)
		addr, sym := tok.Address().Hex(), "symbol:"+tok.Symbol()
		if seen[addr] || seen[sym] {
			return nil, fmt.Errorf("duplicate token %s (%s) in configuration", tok.Symbol(), addr)
		}
		seen[addr], seen[sym] = true, true
		reg.Register(tok)
	}
	return reg, nil
}

func (a *App) Config() *config.Config {
	return a.config
}

func (a *App) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *App) EthClient() *ethclient.Client {
	return a.ethClient
}

func (a *App) Tokens() *token.Registry {
	return a.tokens
}

func (a *App) Redis() *redis.Client {
	return a.redis
}

func (a *App) Scheduler() *scheduler.Scheduler {
	return a.scheduler
}

func (a *App) Health() *health.Registry {
	return a.health
}

func (a *App) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *App) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *App) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *App) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close stops scheduled jobs and closes the shared clients.
func (a *App) Close() error {
	a.scheduler.StopAll()
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
