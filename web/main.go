package main

import (
	"flag"
	"log"
	"os"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/web/server"
)

func main() {
	port := flag.Int("port", 8080, "Port to serve on")
	scenesDir := flag.String("scenes-dir", "scenes", "Directory of JSON scene files")
	staticDir := flag.String("static", "static", "Directory of static web assets")
	flag.Parse()

	webServer := server.NewServer(*port, *scenesDir, *staticDir, core.NewDefaultLogger())

	log.Printf("Path Tracer Web Server")
	log.Printf("Visit http://localhost:%d to start rendering", *port)

	if err := webServer.Start(); err != nil {
		log.Printf("Error starting server: %v", err)
		os.Exit(1)
	}
}
