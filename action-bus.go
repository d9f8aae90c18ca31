package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mostlygeek/action-bus/action"
	"github.com/mostlygeek/action-bus/config"
	"github.com/mostlygeek/action-bus/server"
)

var version string = "0"
var commit string = "abcd1234"
var date = "unknown"

func main() {
	configPath := flag.String("config", "config.yaml", "config file name")
	listenStr := flag.String("listen", "", "listen ip/port, overrides config")
	watchConfig := flag.Bool("watch-config", false, "reload when the config file changes")
	showVersion := flag.Bool("version", false, "show version of build")

	flag.Parse()

	if *showVersion {
		fmt.Printf("version: %s (%s), built at %s\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if mode := os.Getenv("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var opts []action.Option
	if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
		exporter, err := otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			fmt.Printf("Error creating OTLP exporter: %v\n", err)
			os.Exit(1)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
		opts = append(opts, action.WithTracerProvider(tp))
	}

	srv, err := server.New(cfg, opts...)
	if err != nil {
		fmt.Printf("Error creating server: %v\n", err)
		os.Exit(1)
	}

	if *watchConfig {
		watcher, err := config.NewWatcher(*configPath, time.Second, func(path string) {
			newCfg, err := config.LoadConfig(path)
			if err != nil {
				log.Printf("config reload failed: %v", err)
				return
			}
			if err := srv.ReloadConfig(newCfg); err != nil {
				log.Printf("config reload failed: %v", err)
				return
			}
			log.Printf("config reloaded from %s", path)
		})
		if err != nil {
			fmt.Printf("Error watching config: %v\n", err)
			os.Exit(1)
		}
		defer watcher.Stop()
	}

	listen := cfg.Listen
	if *listenStr != "" {
		listen = *listenStr
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("Shutting down action-bus")
		srv.Shutdown()
		os.Exit(0)
	}()

	fmt.Println("action-bus listening on " + listen)
	if err := srv.Run(listen); err != nil {
		fmt.Printf("Server error: %v\n", err)
		os.Exit(1)
	}
}
