package serve

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/dGo/cmd/util"
	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a transaction oracle server",
		Long: `Start a server that speaks the driver protocol. Every namespace is served by a transaction oracle: it hands out timestamps, derives conflict keys from mutations and detects write-write conflicts at commit. It stores no graph data and is meant for development and benchmarks.

The configuration can be set via command line flags or environment variables. The format of the environment variables is DGO_<flag> (e.g. DGO_WORKERS_PER_CONN=8)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "namespaces"
	ServeCmd.PersistentFlags().String(key, "0", cmdUtil.WrapString("Comma-separated list of namespaces to serve"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int64(key, 5, cmdUtil.WrapString("Timeout in seconds"))

	key = "endpoint"
	ServeCmd.PersistentFlags().String(key, "0.0.0.0:9080", cmdUtil.WrapString("The address on which the API will listen (e.g. localhost:9080, http://localhost:8080, /tmp/dgo.sock, ...)"))

	key = "workers-per-conn"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("How many requests of one connection are handled concurrently (concurrent streams for grpc, ignored for http)"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("Log levels as a comma-separated list, e.g. \"warn,client=debug\". A bare level (debug, info, warn, error) sets the default, name=level overrides one logger"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Namespaces = []uint64{}
	for _, ns := range strings.Split(viper.GetString("namespaces"), ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(ns), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid namespace %s: %v", ns, err)
		}
		serveCmdConfig.Namespaces = append(serveCmdConfig.Namespaces, id)
	}

	serveCmdConfig.TimeoutSecond = viper.GetInt64("timeout")
	serveCmdConfig.LogLevel = viper.GetString("log-level")
	serveCmdConfig.Transport = common.ServerTransportConfig{
		Endpoint:       viper.GetString("endpoint"),
		WorkersPerConn: viper.GetInt("workers-per-conn"),
	}

	return common.InitLoggers(serveCmdConfig.LogLevel)
}

// run starts the server and stops it on SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	s, err := cmdUtil.GetSerializer()
	if err != nil {
		return err
	}

	t, err := cmdUtil.GetServerTransport()
	if err != nil {
		return err
	}

	serv := server.NewRPCServer(*serveCmdConfig, t, s)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		server.Logger.Infof("received %s, shutting down", sig)
		if err := serv.Close(); err != nil {
			server.Logger.Warningf("failed to stop server: %v", err)
		}
	}()

	return serv.Serve()
}
