package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/epccs/parts-epccs/internal/mockinventree"
)

func main() {
	var (
		addr  = flag.String("addr", ":8900", "listen address")
		token = flag.String("token", "mock-token", "API token to accept")
	)
	flag.Parse()

	server := mockinventree.NewServer(*token)

	fmt.Printf("🌐 Mock InvenTree API listening on %s (token: %s)\n", *addr, *token)

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}
