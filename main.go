package main

import (
	"log"

	"github.com/KaitoHasei/zola-backend/config"
	"github.com/KaitoHasei/zola-backend/db"
	"github.com/KaitoHasei/zola-backend/server"
	"github.com/KaitoHasei/zola-backend/services"
	"github.com/KaitoHasei/zola-backend/ws"
)

func main() {
	conf, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	gormDB := db.GetDB(conf)
	userRepo := db.NewUserRepo(gormDB)
	conversationRepo := db.NewConversationRepo(gormDB)
	messageRepo := db.NewMessageRepo(gormDB)

	hub := ws.NewHub()

	conversationService := services.NewConversationService(conversationRepo, userRepo, messageRepo, hub, conf)
	messageService := services.NewMessageService(messageRepo, conversationRepo, userRepo, hub, conf)
	mediaService := services.NewMediaService(conf)

	s := &server.Server{
		Config:                 conf,
		Hub:                    hub,
		UserRepository:         userRepo,
		ConversationRepository: conversationRepo,
		ConversationService:    conversationService,
		MessageService:         messageService,
		MediaService:           mediaService,
	}

	s.Start()
}
