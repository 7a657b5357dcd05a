package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/RohanSantra/Connecto-sub000/internal/app/server/handlers"
	"github.com/RohanSantra/Connecto-sub000/internal/core/services"
	"github.com/RohanSantra/Connecto-sub000/pkg/middleware"
)

type Server struct {
	mux       *http.ServeMux
	addr      string
	name      string
	wsHandler *handlers.WSHandler
	tokenSvc  *services.TokenService
	log       *slog.Logger
}

func NewServer(
	log *slog.Logger,
	name, addr string,
	tokenSvc *services.TokenService,
	wsHandler *handlers.WSHandler,
) *Server {
	s := &Server{
		mux:       http.NewServeMux(),
		addr:      addr,
		name:      name,
		wsHandler: wsHandler,
		tokenSvc:  tokenSvc,
		log:       log,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)
	trace := middleware.TracerMiddleware(s.name)
	logReq := middleware.RequestLogger(s.log)

	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// The websocket is the only command surface; everything rides on
	// the upgraded connection.
	s.mux.Handle("/ws", trace(logReq(auth(http.HandlerFunc(s.wsHandler.Handler)))))
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the websocket outlives any sane deadline.
	}
	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}
