package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lemonberrylabs/treewalk/pkg/api"
	grpcapi "github.com/lemonberrylabs/treewalk/pkg/api/grpc"
	"github.com/lemonberrylabs/treewalk/pkg/executor"
	"github.com/lemonberrylabs/treewalk/pkg/store"
	"github.com/lemonberrylabs/treewalk/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, gRPC API and dashboard",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	cmd.Flags().Int("port", 0, "HTTP server port (default 8787, env PORT)")
	cmd.Flags().Int("grpc-port", 0, "gRPC server port (default 8788, env GRPC_PORT)")
	cmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")
	cmd.Flags().Int("max-steps", 100000, "Maximum executed commands per run (0 = unlimited)")
	cmd.Flags().Duration("timeout", 10*time.Second, "Maximum run time per execution (0 = unlimited)")
	cmd.Flags().String("programs", "", "Directory of YAML/JSON programs to run at startup (env PROGRAMS_DIR)")
	return cmd
}

func serve(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8787")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	grpcPort := envOrDefault("GRPC_PORT", "8788")
	if v, _ := cmd.Flags().GetInt("grpc-port"); v != 0 {
		grpcPort = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	programsDir := os.Getenv("PROGRAMS_DIR")
	if v, _ := cmd.Flags().GetString("programs"); v != "" {
		programsDir = v
	}

	maxSteps, _ := cmd.Flags().GetInt("max-steps")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	addr := fmt.Sprintf("%s:%s", host, port)
	grpcAddr := fmt.Sprintf("%s:%s", host, grpcPort)

	s := store.New()
	exec := executor.New(s, executor.Config{MaxSteps: maxSteps, Timeout: timeout})
	server := api.New(exec)

	if programsDir != "" {
		log.Printf("Running programs from: %s", programsDir)
		if err := server.RunDir(cmd.Context(), programsDir, true); err != nil {
			log.Printf("Warning: failed to run programs directory: %v", err)
		}
	}

	web.New(s).Register(server.App())

	grpcServer := grpcapi.New(exec)
	go func() {
		log.Printf("gRPC server listening on %s", grpcAddr)
		if err := grpcServer.Serve(grpcAddr); err != nil {
			log.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down treewalk...")
		grpcServer.GracefulStop()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("treewalk %s listening on %s (max-steps=%d, timeout=%s)", version, addr, maxSteps, timeout)
	return server.Listen(addr)
}
