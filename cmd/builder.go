package cmd

import (
	"context"
	"fmt"
	"net/http"

	"archkit/api"
	"archkit/api/health"
	"archkit/application/usecase"
	"archkit/config"
	"archkit/domain/shared"
	"archkit/infrastructure/persistence/gormdb"
	"archkit/infrastructure/persistence/memory"
	"archkit/infrastructure/persistence/retry"
	"archkit/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Module 装配一个业务模块：向中介者注册用例处理器，返回该模块的路由
type Module func(m *usecase.Mediator) (api.RouteRegistrar, error)

// AppBuilder builds an App with customizable components
type AppBuilder struct {
	cfg     *config.Config
	modules []Module
	probes  []health.Probe

	idempotencyStore usecase.IdempotencyStore
	unitOfWork       shared.UnitOfWorkFactory
	useDefaultDB     bool
}

// NewBuilder creates a new AppBuilder
func NewBuilder(cfg *config.Config) *AppBuilder {
	return &AppBuilder{
		cfg:          cfg,
		useDefaultDB: true,
	}
}

// WithModule adds a business module to the app
func (b *AppBuilder) WithModule(module Module) *AppBuilder {
	b.modules = append(b.modules, module)
	return b
}

// WithProbe adds a health probe
func (b *AppBuilder) WithProbe(probe health.Probe) *AppBuilder {
	b.probes = append(b.probes, probe)
	return b
}

// WithIdempotencyStore overrides the idempotency store chosen by database.type
func (b *AppBuilder) WithIdempotencyStore(store usecase.IdempotencyStore) *AppBuilder {
	b.idempotencyStore = store
	return b
}

// WithUnitOfWork overrides the transaction factory chosen by database.type
func (b *AppBuilder) WithUnitOfWork(factory shared.UnitOfWorkFactory) *AppBuilder {
	b.unitOfWork = factory
	return b
}

// DisableDefaultDB disables the default MySQL database initialization
func (b *AppBuilder) DisableDefaultDB() *AppBuilder {
	b.useDefaultDB = false
	return b
}

// Build creates the App instance
func (b *AppBuilder) Build() (*App, error) {
	if err := logger.Init(&b.cfg.Log, b.cfg.App.Env); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting application",
		zap.String("app", b.cfg.App.Name),
		zap.String("version", b.cfg.App.Version),
		zap.String("env", b.cfg.App.Env))

	var db *gorm.DB
	if b.useDefaultDB && b.cfg.Database.Type == "mysql" {
		var err error
		db, err = b.initDatabase()
		if err != nil {
			return nil, err
		}
	}

	// memory 模式下幂等存储默认走进程内实现
	if b.idempotencyStore == nil {
		if db != nil {
			b.idempotencyStore = gormdb.NewIdempotencyStore(db)
		} else {
			b.idempotencyStore = memory.NewIdempotencyStore()
		}
	}
	if b.unitOfWork == nil && db != nil {
		b.unitOfWork = gormdb.NewUnitOfWorkFactory(db, retry.FromAppConfig(b.cfg))
	}

	behaviors, err := usecase.BuildPipeline(&b.cfg.Pipeline, usecase.PipelineDeps{
		IdempotencyStore: b.idempotencyStore,
		IdempotencyTTL:   b.cfg.Idempotency.TTL,
		UnitOfWork:       b.unitOfWork,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	mediator := usecase.NewMediator(usecase.WithBehaviors(behaviors...))

	registrars := make([]api.RouteRegistrar, 0, len(b.modules))
	for _, module := range b.modules {
		registrar, err := module(mediator)
		if err != nil {
			return nil, fmt.Errorf("failed to wire module: %w", err)
		}
		if registrar != nil {
			registrars = append(registrars, registrar)
		}
	}

	probes := b.probes
	if db != nil {
		probes = append(probes, health.Probe{
			Name: "database",
			Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		})
	}

	healthController := health.NewController(b.cfg, probes...)

	router := api.NewRouter(b.cfg, healthController, registrars...)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         ":" + b.cfg.Server.Port,
		Handler:      router.GetEngine(),
		ReadTimeout:  b.cfg.Server.ReadTimeout,
		WriteTimeout: b.cfg.Server.WriteTimeout,
	}

	return &App{
		config:   b.cfg,
		router:   router,
		server:   server,
		mediator: mediator,
		db:       db,
	}, nil
}

func (b *AppBuilder) initDatabase() (*gorm.DB, error) {
	logger.Info("Using MySQL/GORM persistence layer")

	dbConfig := &gormdb.Config{
		Host:            b.cfg.Database.Host,
		Port:            b.cfg.Database.Port,
		Username:        b.cfg.Database.Username,
		Password:        b.cfg.Database.Password,
		Database:        b.cfg.Database.Database,
		MaxOpenConns:    b.cfg.Database.MaxOpenConns,
		MaxIdleConns:    b.cfg.Database.MaxIdleConns,
		ConnMaxLifetime: b.cfg.Database.ConnMaxLifetime,
		LogLevel:        b.cfg.Log.Level,
	}

	db, err := dbConfig.Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	// Auto migration in development environment
	if b.cfg.IsDevelopment() {
		if err := gormdb.AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	return db, nil
}
