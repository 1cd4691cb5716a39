package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pocket-ledger/internal/config"
	"pocket-ledger/internal/database"
	"pocket-ledger/internal/rates"
	"pocket-ledger/internal/remote"
	"pocket-ledger/internal/router"
	"pocket-ledger/internal/scheduler"
	"pocket-ledger/internal/store"
	"pocket-ledger/internal/syncengine"
)

func main() {
	// load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// ensure basic directories exist
	if err := ensureDir(filepath.Dir(cfg.Database.Path)); err != nil {
		log.Fatalf("create data dir: %v", err)
	}
	if err := ensureDir(filepath.Dir(cfg.Log.File)); err != nil {
		log.Fatalf("create log dir: %v", err)
	}
	if err := ensureDir(cfg.Sync.LocalDir); err != nil {
		log.Fatalf("create sync dir: %v", err)
	}

	// init database
	db, err := database.Init(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	// run migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}

	st := store.New(db)

	// 远端快照存储：配了 remote_url 走 HTTP，否则落在本地目录（开发/测试用）
	var remoteStore remote.Store
	if cfg.Sync.RemoteURL != "" {
		remoteStore = remote.NewHTTPStore(
			cfg.Sync.RemoteURL,
			cfg.JWT.Secret,
			cfg.Security.EncryptionKey,
			time.Duration(cfg.Sync.TimeoutS)*time.Second,
		)
	} else {
		remoteStore = remote.NewFileStore(cfg.Sync.LocalDir, cfg.Security.EncryptionKey)
	}

	deviceLabel, _ := os.Hostname()
	engine := syncengine.New(st, remoteStore, deviceLabel)

	sched := scheduler.New(st)
	if cfg.Scheduler.Enabled {
		go runScheduler(sched, cfg.Scheduler.IntervalMinutes)
	}

	var ratesProvider *rates.Provider
	if cfg.Rates.URL != "" {
		base := cfg.Rates.BaseCode
		if base == "" {
			base = "CNY"
		}
		ratesProvider = rates.New(base, rates.HTTPFetch(cfg.Rates.URL, &http.Client{
			Timeout: 15 * time.Second,
		}))
		// 启动时预热一次，失败不阻塞启动
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := ratesProvider.Refresh(ctx); err != nil {
				log.Printf("initial rates refresh: %v", err)
			}
		}()
	}

	// setup router
	r := router.SetupRouter(cfg, router.Deps{
		DB:     db,
		Engine: engine,
		Sched:  sched,
		Rates:  ratesProvider,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	log.Printf("server listening on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("run server: %v", err)
	}
}

// runScheduler 启动时先跑一轮补账，然后按配置的间隔定时执行
func runScheduler(sched *scheduler.Scheduler, intervalMinutes int) {
	if intervalMinutes <= 0 {
		intervalMinutes = 30
	}

	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		executed, err := sched.RunDueRules(ctx, time.Now())
		if err != nil {
			log.Printf("scheduler: %v", err)
		}
		if executed > 0 {
			log.Printf("scheduler: executed %d recurring rule(s)", executed)
		}
	}

	run()
	ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		run()
	}
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
