package cmd

import (
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ftl/catmux/pkg/actor"
	"github.com/ftl/catmux/pkg/config"
	"github.com/ftl/catmux/pkg/telemetry"
)

var rootFlags = struct {
	configPath *string
}{}

var rootCmd = &cobra.Command{
	Use:   "catmux",
	Short: "catmux multiplexes several radios' CAT control onto one shared amplifier.",
	Run:   root,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootFlags.configPath = rootCmd.PersistentFlags().StringP("config", "c", "catmux.yaml", "path to the catmux configuration file")
}

func root(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(*rootFlags.configPath)
	if err != nil {
		log.Fatal("loading configuration failed", "err", err)
	}

	shell, err := startShell(cfg)
	if err != nil {
		log.Fatal("starting catmux failed", "err", err)
	}
	defer shell.Close()

	log.Info("catmux running", "config", *rootFlags.configPath)
	select {}
}

// startShell builds the engine, dials every configured radio and the
// amplifier, and starts the telemetry websocket server if configured. A
// radio that fails to dial is logged and skipped rather than aborting
// startup; the external supervisor is expected to retry (spec §7: "Peer
// I/O failure ... peer task exits; engine remains operational").
func startShell(cfg *config.Config) (*actor.Shell, error) {
	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return nil, err
	}
	shell := actor.New(engineCfg)

	metas, err := cfg.RadioMetas()
	if err != nil {
		return nil, err
	}
	for i, meta := range metas {
		entry := cfg.Radios[i]
		conn, err := net.Dial("tcp", entry.Port)
		if err != nil {
			log.Error("dialing radio failed", "radio", meta.Name, "port", entry.Port, "err", err)
			continue
		}
		if _, err := shell.RegisterRadio(meta, conn); err != nil {
			log.Error("registering radio failed", "radio", meta.Name, "err", err)
			conn.Close()
			continue
		}
		log.Info("radio connected", "radio", meta.Name, "protocol", meta.Protocol, "port", entry.Port)
	}

	if cfg.Amplifier.Port != "" {
		proto, err := config.ParseProtocol(cfg.Amplifier.Protocol)
		if err != nil {
			return nil, err
		}
		conn, err := net.Dial("tcp", cfg.Amplifier.Port)
		if err != nil {
			log.Error("dialing amplifier failed", "port", cfg.Amplifier.Port, "err", err)
		} else if err := shell.RegisterAmplifier(proto, conn); err != nil {
			log.Error("registering amplifier failed", "err", err)
			conn.Close()
		} else {
			log.Info("amplifier connected", "port", cfg.Amplifier.Port, "protocol", proto)
		}
	}

	if cfg.Telemetry.ListenAddress != "" {
		startTelemetry(shell, cfg.Telemetry.ListenAddress)
	} else {
		// The shell blocks once its event channel is full, so someone has
		// to read it even when no telemetry server is configured.
		go func() {
			for range shell.Events() {
			}
		}()
	}

	return shell, nil
}

func startTelemetry(shell *actor.Shell, addr string) {
	b := telemetry.NewBroadcaster()
	go b.Run(shell.Events())

	mux := http.NewServeMux()
	mux.Handle("/events", b)
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error("telemetry server stopped", "err", err)
		}
	}()
	log.Info("telemetry server listening", "addr", addr)
}
