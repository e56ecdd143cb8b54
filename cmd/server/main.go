package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chatflow/chatflow/internal/config"
	"github.com/chatflow/chatflow/internal/database"
	postgresrepo "github.com/chatflow/chatflow/internal/repository/postgres"
	"github.com/chatflow/chatflow/internal/service"
	"github.com/chatflow/chatflow/internal/transport/http/handlers"
	"github.com/chatflow/chatflow/internal/transport/http/middleware"
	"github.com/chatflow/chatflow/internal/transport/ws"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	// Database
	pool, err := database.Connect(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()
	log.Println("Connected to database")

	// Repositories
	messageRepo := postgresrepo.NewMessageRepo(pool)

	// Services
	messageService := service.NewMessageService(messageRepo)

	// WebSocket hub + live-update notifier
	hub := ws.NewHub()
	go hub.Run()
	messageService.SetNotifier(ws.NewHubNotifier(hub))

	// Handlers
	messageHandler := handlers.NewMessageHandler(messageService)

	// Routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status": "ok"}`))
	})

	mux.HandleFunc("GET /api/chats", messageHandler.ListChats)
	mux.HandleFunc("GET /api/messages/{chat_id}", messageHandler.GetConversation)
	mux.HandleFunc("POST /api/messages", messageHandler.Send)
	mux.HandleFunc("PATCH /api/messages/status", messageHandler.UpdateStatus)

	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", ws.ServeWS(hub))

	// Start server with CORS
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("Starting server on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.CORS(cfg.ClientOrigin, mux)))
}
