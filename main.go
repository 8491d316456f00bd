package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"

	"github.com/voxkit/voxkit/agent"
	"github.com/voxkit/voxkit/config"
	"github.com/voxkit/voxkit/policy"
	"github.com/voxkit/voxkit/server"
	"github.com/voxkit/voxkit/store"
	"github.com/voxkit/voxkit/tunnel"
)

func main() {
	root := &cobra.Command{
		Use:   "voxkit",
		Short: "voxkit — webhook backend kit for Layercode voice agents",
	}

	root.AddCommand(serveCmd(), agentsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --- voxkit agents ---

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List built-in agents",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available agents:")
			for _, name := range agent.Builtins().Names() {
				fmt.Printf("  %s\n", name)
			}
		},
	}
}

// --- voxkit serve ---

func serveCmd() *cobra.Command {
	var (
		agentName string
		useTunnel bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if agentName == "" {
				agentName = cfg.DefaultAgent
			}
			return serve(cfg, agentName, useTunnel)
		},
	}

	cmd.Flags().StringVar(&agentName, "agent", "", "agent to run (default from DEFAULT_AGENT env)")
	cmd.Flags().BoolVar(&useTunnel, "tunnel", false, "launch a Cloudflare quick tunnel alongside the server")
	return cmd
}

func serve(cfg *config.Config, agentName string, useTunnel bool) error {
	if cfg.WebhookSecret == "" {
		return fmt.Errorf("missing LAYERCODE_WEBHOOK_SECRET in environment")
	}

	ag, err := agent.Builtins().New(agentName)
	if err != nil {
		return err
	}

	log.Printf("Starting voxkit...")
	log.Printf("Agent: %s", ag.Name())
	log.Printf("Listening on %s:%d", cfg.Host, cfg.HTTPPort)
	log.Printf("Webhook route: %s", cfg.AgentRoute)
	log.Printf("Database: %s", cfg.DatabaseURL)

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer db.Close()

	policyContent := policy.DefaultPolicy
	if cfg.PolicyFile != "" {
		data, err := os.ReadFile(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("failed to read policy file: %w", err)
		}
		policyContent = string(data)
	}
	policyEngine, err := policy.NewEngine(context.Background(), policyContent)
	if err != nil {
		return fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	h := server.NewHandler(cfg, db, ag, policyEngine)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	var launcher *tunnel.Launcher
	if useTunnel {
		launcher = tunnel.NewLauncher(cfg.Host, cfg.HTTPPort, cfg.AgentRoute, cfg.CloudflaredBin)
		webhookURL, err := launcher.Start(context.Background(), 30*time.Second)
		if err != nil {
			shutdown(e)
			return fmt.Errorf("tunnel error: %w", err)
		}
		printTunnelBanner(webhookURL)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	if launcher != nil {
		launcher.Stop()
	}
	shutdown(e)
	log.Println("Server stopped")
	return nil
}

func shutdown(e *echo.Echo) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}
}

func printTunnelBanner(webhookURL string) {
	border := "======================================================================"
	fmt.Printf("\n%s\n", border)
	fmt.Println("  CLOUDFLARE TUNNEL ESTABLISHED")
	fmt.Printf("\n  Webhook URL: %s\n\n", webhookURL)
	fmt.Println("  Add this webhook URL to your agent at https://dash.layercode.com/")
	fmt.Printf("%s\n\n", border)
}
