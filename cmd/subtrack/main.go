// Command subtrack runs the subscription management API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/telecomsuite/subtrack/internal/app"
	"github.com/telecomsuite/subtrack/internal/config"
)

// defaultPort is used when neither the flag nor the config file set one.
const defaultPort = 8317

func main() {
	var (
		configPath string
		port       int
	)
	flag.StringVar(&configPath, "config", "", "path to config file (defaults to ./config.yaml)")
	flag.IntVar(&port, "port", 0, "listen port (overrides config file)")
	flag.Parse()

	resolved := config.ResolveConfigPath(configPath)
	if port == 0 {
		port = config.LoadListenPort(resolved, defaultPort)
	}
	if errPort := validatePort(port); errPort != nil {
		log.Fatalf("invalid port: %v", errPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := app.RunServer(ctx, resolved, port); errRun != nil {
		log.Fatalf("server error: %v", errRun)
	}
}

// validatePort checks the port is a valid TCP listen port.
func validatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port %d out of range", port)
	}
	return nil
}
