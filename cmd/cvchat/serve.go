package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/careerkit/cvchat/internal/config"
	"github.com/careerkit/cvchat/internal/server"
)

var (
	servePort   int
	serveConfig string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the command-chat HTTP server",
	Long:  `Start an HTTP server that exposes the chat command pipeline: POST /chat/command, POST /chat/reset, GET /chat/state.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Path to JSON config file (optional)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.FromEnv()
	if serveConfig != "" {
		fileCfg, err := config.Load(serveConfig)
		if err != nil {
			return err
		}
		cfg = fileCfg.Merge(cfg)
	}
	if cfg.Port == 0 {
		cfg.Port = servePort
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	srv := server.New(server.Config{
		Port:               cfg.Port,
		MaxAttachmentBytes: cfg.MaxAttachmentBytes,
	}, a.sessionFactory(), a.logger)

	return srv.Start()
}
