package api

import (
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/pawstory/pawstory-server/cmd/config"
	"github.com/pawstory/pawstory-server/cmd/utils"
	"github.com/pawstory/pawstory-server/service/community"
	"github.com/pawstory/pawstory-server/service/diary"
	"github.com/pawstory/pawstory-server/service/member"
	"github.com/pawstory/pawstory-server/service/social"
)

type APIServer struct {
	address string
	db      *gorm.DB
	cfg     *config.Config
}

func NewApiServer(address string, db *gorm.DB, cfg *config.Config) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
		cfg:     cfg,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	auth := utils.NewAuth(s.cfg.SecretKey)

	memberHandler := member.NewHandler(s.db, auth, s.cfg)
	memberHandler.RegisterRoutes(subrouter)

	diaryHandler := diary.NewHandler(s.db, auth, s.cfg)
	diaryHandler.RegisterRoutes(subrouter)

	socialHandler := social.NewHandler(s.db, auth)
	socialHandler.RegisterRoutes(subrouter)

	communityHandler := community.NewPostHandler(s.db, auth)
	communityHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}
