package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slobench/slobench/test/mockinfer"
)

func main() {
	addr := flag.String("addr", ":8000", "Server address")
	ttft := flag.Duration("ttft", 50*time.Millisecond, "Simulated first-token delay")
	gap := flag.Duration("gap", 10*time.Millisecond, "Simulated gap between tokens")
	flag.Parse()

	state := mockinfer.NewState()
	state.SetLatency(*ttft, *gap)
	server := mockinfer.NewServer(state)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down mock inference server...")
		os.Exit(0)
	}()

	log.Printf("Starting mock inference server on %s", *addr)
	if err := server.Run(*addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
