package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	fa "github.com/panyam/fireauth"
	authgrpc "github.com/panyam/fireauth/grpc"
)

var serveFlags struct {
	addr     string
	grpcAddr string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the login page and task boards",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveFlags.addr
		}
		if cmd.Flags().Changed("grpc-addr") {
			cfg.GRPCAddr = serveFlags.grpcAddr
		}

		ctx := cmd.Context()
		b, err := openBackend(ctx, cfg)
		if err != nil {
			return err
		}
		defer b.Close()

		provider, err := newProvider(ctx, cfg, b)
		if err != nil {
			return err
		}

		app := fa.NewApp(provider, b.Boards)
		app.ActionTimeout = cfg.ActionTimeout

		r := mux.NewRouter()
		r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.PathPrefix("/").Handler(app.Handler())

		server := &http.Server{
			Addr:              cfg.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      cfg.ActionTimeout + 15*time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 2)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		var grpcServer *grpc.Server
		if cfg.GRPCAddr != "" {
			grpcServer, err = startGRPC(cfg.GRPCAddr, provider, done)
			if err != nil {
				server.Close()
				return err
			}
		}

		slog.Info("Starting server", "addr", cfg.Addr, "grpc_addr", cfg.GRPCAddr,
			"provider", cfg.Provider, "store", cfg.Store)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			if grpcServer != nil {
				grpcServer.GracefulStop()
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			if grpcServer != nil {
				grpcServer.Stop()
			}
			server.Close()
			return err
		}
	},
}

// startGRPC serves the gRPC health service behind the session interceptors.
// Health checks stay public; services registered later require a session.
func startGRPC(addr string, verifier authgrpc.TokenVerifier, done chan<- error) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	opts := authgrpc.RequireSession(verifier,
		healthpb.Health_Check_FullMethodName,
		healthpb.Health_Watch_FullMethodName,
	)
	s := grpc.NewServer(
		grpc.UnaryInterceptor(authgrpc.UnaryServerInterceptor(opts)),
		grpc.StreamInterceptor(authgrpc.StreamServerInterceptor(opts)),
	)
	healthpb.RegisterHealthServer(s, health.NewServer())

	go func() {
		if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			done <- fmt.Errorf("grpc server failed: %w", err)
		}
	}()
	return s, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "", "HTTP listen address (env FIREAUTH_ADDR, default :8080)")
	serveCmd.Flags().StringVar(&serveFlags.grpcAddr, "grpc-addr", "", "gRPC listen address, disabled when empty (env FIREAUTH_GRPC_ADDR)")
}
