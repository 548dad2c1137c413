package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"arena-server/internal/arena"
	"arena-server/internal/config"
	"arena-server/internal/scorehub"
	"arena-server/internal/session"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("💡 No .env file found, using environment variables only")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  ARENA SERVER")
	log.Println("🎮 ================================")

	appConfig := config.Load()

	log.Printf("🗺️ World: %.0fx%.0f @ %d TPS", appConfig.World.Width, appConfig.World.Height, appConfig.World.TickRate)
	log.Printf("🛡️ Limits: %d ships, %d bullets, %d mines, %d pickups, %d bots",
		appConfig.Limits.MaxShips, appConfig.Limits.MaxBullets, appConfig.Limits.MaxMines,
		appConfig.Limits.MaxPickups, appConfig.Limits.MaxBots)

	room := arena.NewRoom(appConfig)

	eventLogPath := getEnvWithDefault("EVENT_LOG_PATH", "events.jsonl")
	if err := room.StartEventLog(eventLogPath); err != nil {
		log.Printf("⚠️ Event log disabled: %v", err)
	} else {
		log.Printf("📝 Event log: %s", eventLogPath)
	}

	if os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		debugCfg := session.DefaultObservabilityConfig()
		if err := session.StartDebugServer(debugCfg); err != nil {
			log.Printf("⚠️ Debug server disabled: %v", err)
		} else {
			log.Printf("📊 Debug server on %s (/metrics, /debug/pprof)", debugCfg.ListenAddr)
		}
	}

	var hubClient session.HubClient
	if appConfig.Hub.BaseURL != "" {
		hubClient = scorehub.New(appConfig.Hub)
		log.Printf("🌐 Scoring hub: %s", appConfig.Hub.BaseURL)
	} else {
		log.Println("⚠️ Hub base URL is empty - name resolution and score submission disabled")
	}

	srv := session.NewServer(room, hubClient, appConfig)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr := ":" + strconv.Itoa(appConfig.Server.Port)
	go func() {
		log.Printf("🌐 WebSocket/HTTP server on http://localhost%s", addr)
		if err := srv.Start(ctx, addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down...")
	cancel()
	log.Println("👋 Goodbye!")
}

func getEnvWithDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
