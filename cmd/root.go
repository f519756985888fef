package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/dGo/cmd/db"
	"github.com/ValentinKolb/dGo/cmd/serve"
	"github.com/ValentinKolb/dGo/cmd/util"
	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/spf13/cobra"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "dgo",
		Short: "pooled, transactional graph database client",
		Long: fmt.Sprintf(`dGo (%s)

A client driver for a graph database written in Go. Requests run over a bounded
pool of load balanced connections; transactions collect their conflict keys and
are committed or aborted with a single round trip.`, common.BuildVersion),
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of dGo",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dGo %s\n", common.BuildVersion)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(db.DBCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "serializer"
	RootCmd.PersistentFlags().String(key, "binary", util.WrapString("serializer to use (json, binary)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "grpc", util.WrapString("transport to use (grpc, http, tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
