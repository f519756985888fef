package db

import (
	"context"
	"time"

	"github.com/ValentinKolb/dGo/cmd/util"
	"github.com/ValentinKolb/dGo/rpc/client"
	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/ValentinKolb/dGo/rpc/server"
	"github.com/ValentinKolb/dGo/rpc/transport"
	"github.com/ValentinKolb/dGo/rpc/transport/local"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	pool *client.Pool

	// DBCommands represents the database command group
	DBCommands = &cobra.Command{
		Use:                "db",
		Short:              "Run queries, mutations and transactions against a server",
		PersistentPreRunE:  setupPool,
		PersistentPostRunE: closePool,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the db command
	util.SetupRPCClientFlags(DBCommands)

	DBCommands.PersistentFlags().Bool("read-only", false, util.WrapString("Run queries read-only"))
	DBCommands.PersistentFlags().Bool("best-effort", false, util.WrapString("Run queries read-only and allow slightly stale results"))

	// Add subcommands
	DBCommands.AddCommand(queryCmd)
	DBCommands.AddCommand(mutateCmd)
	DBCommands.AddCommand(upsertCmd)
	DBCommands.AddCommand(alterCmd)
	DBCommands.AddCommand(checkCmd)
	DBCommands.AddCommand(txnCmd)
	DBCommands.AddCommand(perfTestCmd)
}

// setupPool initializes the connection pool
func setupPool(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}
	if err := common.InitLoggers(viper.GetString("log-level")); err != nil {
		return err
	}

	config := util.GetClientConfig()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	var factory transport.ClientFactory
	endpoints := common.NewLiteralEndpoints("local://oracle")
	if viper.GetBool("local") {
		// serve the pool from an in-process oracle
		srv := server.NewRPCServer(common.ServerConfig{Namespaces: []uint64{config.Namespace}}, nil, s)
		factory = local.NewLocalClientFactory(srv.HandleFunc())
	} else {
		if factory, err = util.GetTransportFactory(); err != nil {
			return err
		}
		if endpoints, err = util.GetEndpoints(config); err != nil {
			return err
		}
	}

	pool, err = client.NewPool(endpoints, *config, factory, s)
	return err
}

func closePool(_ *cobra.Command, _ []string) error {
	if pool == nil {
		return nil
	}
	return pool.Close()
}

// getClient returns a client with the flags selected on the command line
func getClient(ctx context.Context) (*client.Client, error) {
	switch {
	case viper.GetBool("best-effort"):
		return pool.GetBestEffort(ctx)
	case viper.GetBool("read-only"):
		return pool.GetReadOnly(ctx)
	default:
		return pool.Get(ctx)
	}
}

// requestContext bounds a command by the configured timeout
func requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(viper.GetInt("timeout"))*time.Second)
}
