package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/KaitoHasei/zola-backend/config"
	"github.com/KaitoHasei/zola-backend/db"
	"github.com/KaitoHasei/zola-backend/services"
	"github.com/KaitoHasei/zola-backend/ws"
)

type Server struct {
	Config                 *config.Config
	Hub                    *ws.Hub
	UserRepository         db.UserRepository
	ConversationRepository db.ConversationRepository
	ConversationService    services.ConversationService
	MessageService         services.MessageService
	MediaService           services.MediaService
}

func (s *Server) Start() {
	r := s.setupRouter()

	PORT := fmt.Sprintf(":%d", s.Config.Port)
	srv := &http.Server{
		Addr:    PORT,
		Handler: r,
	}

	go func() {
		log.Printf("Server started on %s", PORT)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
