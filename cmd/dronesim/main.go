// dronesim: Simulated drone actuation service. Exposes the same wire
// contract as the AirSim backend so dronechat can be exercised end to
// end on a laptop.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/airsimlabs/go-dronechat/internal/config"
	"github.com/airsimlabs/go-dronechat/internal/log"
	"github.com/airsimlabs/go-dronechat/pkg/drone"
	"github.com/airsimlabs/go-dronechat/pkg/hub"
	"github.com/airsimlabs/go-dronechat/pkg/tools"
)

var (
	port  = flag.String("port", "8000", "HTTP server port")
	token = flag.String("token", "", "Bridge auth token (overrides BRIDGE_AUTH_TOKEN env)")
)

func main() {
	flag.Parse()

	log.Init(os.Getenv("LOG_LEVEL"))

	authToken := *token
	if authToken == "" {
		authToken = os.Getenv("BRIDGE_AUTH_TOKEN")
	}
	if authToken == "" {
		authToken = config.DefaultBridgeToken
	}

	registry, err := tools.NewRegistry(tools.DroneTools())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	sim := drone.NewSim()
	server, err := drone.NewServer(sim, authToken, registry)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	app := fiber.New(fiber.Config{
		AppName:               "dronesim",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	app.Use(cors.New())

	server.RegisterRoutes(app)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"state":  sim.State(),
		})
	})

	// Live state feed for dashboards
	stateHub := hub.New("state")
	go stateHub.Run()
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if stateHub.ClientCount() > 0 {
				stateHub.BroadcastJSON(sim.State())
			}
		}
	}()

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(func(c *websocket.Conn) {
		c.WriteJSON(sim.State())
		hub.NewClient(stateHub, c).Run()
	}))

	fmt.Println()
	fmt.Println("🛩  dronesim")
	fmt.Println("   Simulated drone actuation service on port " + *port)
	fmt.Println()

	go func() {
		if err := app.Listen(":" + *port); err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.Shutdown(); err != nil {
		log.Error("shutdown failed", "error", err)
	}
}
