package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"csfcompass.org/internal/assessment"
	"csfcompass.org/internal/audit"
	"csfcompass.org/internal/config"
	"csfcompass.org/internal/httpapi"
	"csfcompass.org/internal/invite"
	"csfcompass.org/internal/obs"
	"csfcompass.org/internal/ratelimit"
	"csfcompass.org/internal/store/pg"
	"csfcompass.org/internal/token"
	"csfcompass.org/internal/vendor"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().WithError(err).Fatal("load config")
	}
	obs.ConfigureLogger(cfg.Logging.Level, cfg.Logging.Format)
	obs.Init()
	obs.InitBuildInfo(version, commit)
	log := obs.Logger()

	signer, err := token.NewSigner(cfg.Auth.SigningSecret)
	if err != nil {
		log.WithError(err).Fatal("token signer")
	}

	// With a DSN one Postgres store backs every domain interface; without
	// one the service runs fully in memory.
	var (
		assessmentStore assessment.Store
		vendorStore     vendor.Store
		inviteStore     invite.Store
		auditStore      audit.Store
		counter         ratelimit.Counter
		ready           httpapi.ReadyProbe
		closeStore      func() error
	)
	if cfg.Database.DSN != "" {
		pgStore, err := pg.Open(cfg.Database.DSN)
		if err != nil {
			log.WithError(err).Fatal("open database")
		}
		assessmentStore = pgStore
		vendorStore = pgStore
		inviteStore = pgStore
		auditStore = pgStore
		counter = pgStore
		ready = httpapi.ReadyProbe{DB: pgStore.DB()}
		closeStore = pgStore.Close
		log.Info("using postgres stores")
	} else {
		assessmentStore = assessment.NewInMemory()
		vendorStore = vendor.NewInMemory()
		inviteStore = invite.NewInMemory()
		auditStore = audit.NewInMemory()
		counter = ratelimit.NewMemoryCounter()
		closeStore = func() error { return nil }
		log.Warn("no database DSN configured, using in-memory stores")
	}

	catalog := assessment.NewStaticCatalog(assessment.CSF20())
	assessments := assessment.NewService(assessmentStore, catalog)
	cloner := assessment.NewCloner(assessmentStore, catalog)
	limiter := ratelimit.New(counter, map[string]ratelimit.Rule{
		ratelimit.OpValidate:   {Limit: cfg.RateLimit.ValidatePerMinute, Window: time.Minute},
		ratelimit.OpUpdateItem: {Limit: cfg.RateLimit.UpdateItemPerMinute, Window: time.Minute},
	})
	portal := invite.NewService(inviteStore, assessments, cloner, vendorStore, signer, limiter, audit.NewRecorder(auditStore))

	api := httpapi.New(httpapi.Options{
		Assessments:       assessments,
		Vendors:           vendorStore,
		Portal:            portal,
		Ready:             ready,
		AdminAPIKey:       cfg.Auth.AdminAPIKey,
		Version:           version,
		DefaultExpiryDays: cfg.Invitations.DefaultExpiryDays,
		HTTPPerSecond:     cfg.RateLimit.HTTPPerSecond,
		HTTPBurst:         cfg.RateLimit.HTTPBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	log.WithFields(map[string]any{"addr": srv.Addr, "version": version}).Info("starting compass-api")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("listen")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = closeStore()
	log.Info("stopped")
}
