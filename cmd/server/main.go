package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"liyu1981.xyz/alerta-mesh/pkg/alerta"
	"liyu1981.xyz/alerta-mesh/pkg/bluez"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/db"
	alertaHttp "liyu1981.xyz/alerta-mesh/pkg/http"
	"liyu1981.xyz/alerta-mesh/pkg/link"
	"liyu1981.xyz/alerta-mesh/pkg/link/nettransport"
	"liyu1981.xyz/alerta-mesh/pkg/notify"
	"liyu1981.xyz/alerta-mesh/pkg/registry"
	"liyu1981.xyz/alerta-mesh/pkg/relay"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cfg, err := common.LoadConfig(common.NewViper())
	if err != nil {
		log.Fatal(err)
	}

	dialector, err := db.UseConfigDialector(cfg)
	if err != nil {
		log.Fatal(err)
	}
	dbInstance := db.GetInstance(dialector)

	logger := common.GetLogger()

	alertaCore := alerta.New(dbInstance)

	var transport link.Transport
	var source registry.BondedSource
	var perms relay.PermissionChecker

	switch cfg.Transport {
	case common.TransportBluez:
		bt, err := bluez.New(cfg.SPPServiceName)
		if err != nil {
			log.Fatalf("bluez transport unavailable (set %s=tcp to emulate peers): %v", common.EnvKeyAlertaTransport, err)
		}
		defer bt.Close()
		transport, source, perms = bt, bt, bt
	case common.TransportTCP:
		transport = nettransport.New(cfg.TCPListen)
		source = registry.NewStaticSource(cfg.TCPPeers)
	}

	reg := registry.New(source, registry.MatchPolicy(cfg.PeerMatch), map[registry.Role]string{
		registry.RoleController:     cfg.ControllerName,
		registry.RoleCompanionPhone: cfg.CompanionName,
	})

	hub := notify.NewHub()
	alertRelay := relay.New(alertaCore.History, nil, nil, notify.NewNotifier(hub, alertaCore.Setting))
	session := relay.NewSession(alertRelay, reg,
		link.New(string(registry.RoleController), transport),
		link.New(string(registry.RoleCompanionPhone), transport),
		perms,
	)
	defer session.Close()

	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rs := &alertaHttp.RestfulServer{
		Server:           gin.Default(),
		Alerta:           alertaCore,
		Session:          session,
		Hub:              hub,
		RateLimiterStore: alerta.NewRateLimiterStore(rate.Limit(cfg.DefaultRate), cfg.DefaultBurst),
	}
	rs.Setup()

	logger.Info("http server created with:",
		zap.String("transport", cfg.Transport),
		zap.String("db_type", cfg.DBType),
		zap.String("controller", cfg.ControllerName),
		zap.String("companion", cfg.CompanionName),
		zap.String("default_limiter",
			fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", cfg.DefaultRate, cfg.DefaultBurst)))

	srv := &http.Server{
		Addr:    cfg.HttpHostPort,
		Handler: rs.Server,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("Starting HTTP server on: " + cfg.HttpHostPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown", zap.Error(err))
	}
}
