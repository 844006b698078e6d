package app

import (
	"context"
	"fmt"
	"time"

	"todocalendar/internal/auth"
	"todocalendar/internal/config"
	"todocalendar/internal/repo"
	"todocalendar/internal/storage"
	"todocalendar/migrations"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type App struct {
	cfg    config.Config
	log    *log.Logger
	pool   *pgxpool.Pool
	db     *sqlx.DB
	redis  *redis.Client
	router *gin.Engine
}

func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*App, error) {
	a := &App{cfg: cfg, log: logger}

	pool, db, err := OpenPostgres(ctx, cfg.PG)
	if err != nil {
		return nil, err
	}
	a.pool, a.db = pool, db

	rdb, err := newRedis(ctx, cfg.Redis)
	if err != nil {
		a.closeDB()
		return nil, err
	}
	a.redis = rdb

	if cfg.PG.AutoMigrate {
		if err := migrations.Up(ctx, db.DB); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		logger.Info("migrations applied")
	}

	a.router = newRouter(cfg, logger, deps{
		users:      repo.NewPGUserRepo(db),
		categories: repo.NewPGCategoryRepo(db),
		todos:      repo.NewPGTodoRepo(db),
		calendars:  repo.NewPGCalendarRepo(db),
		events:     repo.NewPGEventRepo(db),
		files:      storage.NewLocal(cfg.Media.Root, cfg.Media.MaxUploadMB<<20),
		revoker:    auth.NewBlacklist(rdb),
		ready:      a.ping,
	})
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Close(ctx context.Context) error {
	_ = ctx
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.closeDB()
	return nil
}

func (a *App) closeDB() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

func (a *App) ping(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// OpenPostgres connects a pgx pool and wraps it for sqlx. Closing the
// returned *sqlx.DB does not close the pool.
func OpenPostgres(ctx context.Context, cfg config.PGConfig) (*pgxpool.Pool, *sqlx.DB, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pg parse config: %w", err)
	}
	pcfg.MaxConns = cfg.MaxConns
	pcfg.MinConns = 2
	pcfg.MaxConnIdleTime = 5 * time.Minute
	pcfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("pg ping: %w", err)
	}

	db := sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx")
	return pool, db, nil
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

func newEngine(cfg config.Config, logger *log.Logger) *gin.Engine {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))
	r.MaxMultipartMemory = 8 << 20

	r.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.HTTP.CORSOrigins,
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))
	return r
}
