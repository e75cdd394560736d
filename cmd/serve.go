package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ondrejvana/rollcall/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Rollcall web server.
The server exposes the dashboard, roster, recognition and capture
endpoints as a JSON API.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if port := mustGetInt(cmd, "port"); port > 0 {
		a.config.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		a.config.Web.Host = host
	}

	fmt.Printf("Roster: %d students, gallery: %d encodings\n", mustCount(a), a.service.GallerySize())

	server := web.NewServer(a.config, a.store, a.service)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Rollcall on http://%s:%d\n", a.config.Web.Host, a.config.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

func mustCount(a *app) int {
	count, err := a.store.Students.Count()
	if err != nil {
		return 0
	}
	return count
}
