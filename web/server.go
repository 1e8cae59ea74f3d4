package web

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

func NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/convert/scene", HandlerConvertScene).Methods("POST")
	r.HandleFunc("/convert/robot", HandlerConvertRobot).Methods("POST")
	r.HandleFunc("/inspect", HandlerInspect).Methods("POST")
	r.HandleFunc("/dump/scene", HandlerDumpScene).Methods("POST")
	r.HandleFunc("/dump/robot", HandlerDumpRobot).Methods("POST")
	r.HandleFunc("/config", HandlerConfig).Methods("GET")
	r.HandleFunc("/status", HandlerStatus)
	return r
}

func NewHandler() http.Handler {
	h := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(NewRouter())
	return handlers.LoggingHandler(os.Stdout, h)
}

func StartServer(addr string) error {
	log.Printf("[web] Starting server %v", addr)
	return http.ListenAndServe(addr, NewHandler())
}
