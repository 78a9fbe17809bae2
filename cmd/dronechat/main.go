// dronechat: Chat service that turns natural-language operator
// commands into validated drone commands executed by the actuation
// service, with tool results folded back into the dialogue.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airsimlabs/go-dronechat/internal/config"
	"github.com/airsimlabs/go-dronechat/internal/log"
	"github.com/airsimlabs/go-dronechat/pkg/bridge"
	"github.com/airsimlabs/go-dronechat/pkg/fallback"
	"github.com/airsimlabs/go-dronechat/pkg/genai"
	"github.com/airsimlabs/go-dronechat/pkg/orchestrator"
	"github.com/airsimlabs/go-dronechat/pkg/session"
	"github.com/airsimlabs/go-dronechat/pkg/tools"
	"github.com/airsimlabs/go-dronechat/pkg/web"
)

var (
	version = "1.0.0"
	port    = flag.String("port", "", "HTTP server port (overrides PORT env)")
	debug   = flag.Bool("debug", false, "Enable request logging")
)

func main() {
	flag.Parse()

	settings := config.Load()
	if *port != "" {
		settings.Port = *port
	}
	if err := settings.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	log.Init(settings.LogLevel)

	registry, err := tools.NewRegistry(tools.DroneTools())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	bridgeClient := bridge.New(settings.DroneServiceURL, settings.BridgeToken, settings.BridgeTimeout)
	genClient := genai.New(settings.GeminiAPIKey, settings.GeminiModel, settings.SystemPrompt, registry, settings.GenerateTimeout)
	responder := fallback.New(bridgeClient)
	store := session.New(settings.MaxHistory, settings.SessionTimeout)
	orch := orchestrator.New(store, registry, genClient, bridgeClient, responder)
	server := web.NewServer(orch, registry, version, *debug)

	warnOnCatalogDrift(bridgeClient, registry)

	fmt.Println()
	fmt.Println("🚁 dronechat v" + version)
	fmt.Println("   Natural-language drone control service")
	fmt.Println()

	go func() {
		log.Info("listening", "port", settings.Port)
		if err := server.Listen(settings.Port); err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}

// warnOnCatalogDrift compares the local tool catalog against the
// actuation service's listing. The catalogs must not diverge; a
// mismatch here means a deploy skew, not a runtime condition.
func warnOnCatalogDrift(b *bridge.Client, registry *tools.Registry) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	remote := b.ListTools(ctx)
	if remote == nil {
		log.Warn("actuation service not reachable at startup, skipping catalog check")
		return
	}

	names := make(map[string]bool, len(remote))
	for _, t := range remote {
		names[t.Name] = true
	}
	for _, def := range registry.List() {
		if !names[def.Name] {
			log.Warn("tool missing on actuation service", "tool", def.Name)
		}
	}
}
