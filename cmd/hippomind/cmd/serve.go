package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ismail180205/HippoMind/internal/daemon"
	"github.com/ismail180205/HippoMind/internal/logging"
	hmmcp "github.com/ismail180205/HippoMind/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string
	var noAdminSocket bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server over stdio.

The server exposes the narrowing loop as MCP tools (start_search,
pick_cluster, answer_followup, backtrack, ...) for AI assistants.
Stdout carries only JSON-RPC; diagnostics go to the log file.

An admin control socket is opened alongside so 'hippomind sessions'
and 'hippomind status' can inspect the running server.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), transport, noAdminSocket)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	cmd.Flags().BoolVar(&noAdminSocket, "no-admin-socket", false, "Do not open the admin control socket")

	return cmd
}

func runServe(ctx context.Context, transport string, noAdminSocket bool) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := buildStack(true)
	if err != nil {
		return err
	}
	defer st.Close()

	// Stdout is reserved for JSON-RPC, so logs go to the file only.
	logCfg := logging.DefaultConfig()
	logCfg.Level = st.config.Server.LogLevel
	if debugMode {
		logCfg.Level = "debug"
	}
	logCfg.WriteToStderr = false
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()
	slog.SetDefault(logger)

	st.sessions.StartSweeper()

	server, err := hmmcp.NewServer(st.sessions, st.catalog, st.config)
	if err != nil {
		return err
	}

	if !noAdminSocket {
		admin := daemon.NewServer(daemon.DefaultConfig(), st.sessions, st.catalog)
		go func() {
			if err := admin.ListenAndServe(ctx); err != nil && ctx.Err() == nil {
				slog.Error("admin socket stopped", slog.String("error", err.Error()))
			}
		}()
	}

	return server.Serve(ctx, transport)
}
