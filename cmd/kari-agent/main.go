package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"gopkg.in/yaml.v3"

	"github.com/irgordon/kari/pkg/boundary"
	"github.com/irgordon/kari/pkg/build"
	"github.com/irgordon/kari/pkg/config"
	"github.com/irgordon/kari/pkg/facade"
	"github.com/irgordon/kari/pkg/firewall"
	"github.com/irgordon/kari/pkg/git"
	"github.com/irgordon/kari/pkg/jail"
	"github.com/irgordon/kari/pkg/log"
	"github.com/irgordon/kari/pkg/logrotate"
	"github.com/irgordon/kari/pkg/metrics"
	"github.com/irgordon/kari/pkg/proxy"
	"github.com/irgordon/kari/pkg/release"
	"github.com/irgordon/kari/pkg/rpc"
	"github.com/irgordon/kari/pkg/scheduler"
	"github.com/irgordon/kari/pkg/ssl"
	"github.com/irgordon/kari/pkg/supervisor"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kari-agent",
	Short: "Kari agent — the privileged host-side executor for Kari deployments",
	Long: `kari-agent (the "Muscle") runs on each application host and executes
infrastructure intents — deployments, service management, proxy config,
firewall rules, SSL installation, and scheduled jobs — on behalf of the
unprivileged Brain control plane, authenticating every connection by its
kernel-verified peer uid.`,
	Version: Version,
	RunE:    runAgent,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"kari-agent version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.Flags().Bool("dump-config", false, "Print the loaded configuration as YAML and exit")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(versionCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("kari-agent version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime)
		return nil
	},
}

// runAgent is the root command's entire lifetime: load config, wire every
// manager package into one façade, bind the boundary socket, and serve
// until a shutdown signal arrives.
func runAgent(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if dump, _ := cmd.Flags().GetBool("dump-config"); dump {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal configuration: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	log.Info("Kari agent initializing")

	// Proxy discovery happens before the socket is bound: if the host isn't
	// ready to serve traffic, the agent should not start accepting RPCs.
	proxyMgr, err := proxy.Discover(cfg.ProxyConfDir)
	if err != nil {
		return fmt.Errorf("startup aborted: %w", err)
	}

	startupLog := log.WithComponent("startup")

	jailMgr := jail.New()
	supervisorMgr := supervisor.New(cfg.SystemdDir)
	gitMgr := git.New()
	buildMgr := build.New()
	firewallMgr := firewall.New()
	schedulerMgr := scheduler.New(cfg.SystemdDir)
	proxyReload := "systemctl reload nginx"
	if _, ok := proxyMgr.(*proxy.Apache); ok {
		proxyReload = "systemctl reload apache2"
	}
	logrotateMgr := logrotate.New(cfg.LogrotateDir, proxyReload)
	sslMgr := ssl.New(cfg.SSLStorageDir)
	releaseMgr := release.New()

	startupLog.Info().Str("proxy_conf_dir", cfg.ProxyConfDir).Msg("manager packages initialized")

	svc := facade.New(cfg.WebRoot, jailMgr, supervisorMgr, gitMgr, buildMgr, proxyMgr, firewallMgr, schedulerMgr, logrotateMgr, sslMgr, releaseMgr)

	gid := -1
	if cfg.HasPeerGID {
		gid = int(cfg.ExpectedPeerGID)
	}

	server, err := boundary.New(cfg.SocketPath, int(cfg.ExpectedPeerUID), gid, cfg.ExpectedPeerUID, func(gs *grpc.Server) {
		rpc.RegisterSystemAgentServer(gs, svc)
	})
	if err != nil {
		return fmt.Errorf("failed to initialize boundary server: %w", err)
	}

	serveMetrics(cfg.MetricsAddr)

	ctx, cancel := context.WithCancel(context.Background())
	go waitForShutdown(cancel)

	log.Info(fmt.Sprintf("agent listening on %s [target uid: %d]", cfg.SocketPath, cfg.ExpectedPeerUID))

	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("agent server exited with error: %w", err)
	}

	log.Info("agent shutdown complete")
	return nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("metrics server error: %v", err)
		}
	}()
}

func waitForShutdown(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Info("shutdown signal received")
	cancel()
}
