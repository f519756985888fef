package db

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/dGo/cmd/util"
	"github.com/ValentinKolb/dGo/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	queryCmd = &cobra.Command{
		Use:   "query [query]",
		Short: "Runs a query (use - for stdin or @file)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := util.ReadInput(args[0])
			if err != nil {
				return err
			}
			vars, err := util.ParseVars(viper.GetStringSlice("var"))
			if err != nil {
				return err
			}

			ctx, cancel := requestContext()
			defer cancel()

			c, err := getClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.QueryWithVars(ctx, query, vars)
			if err != nil {
				return err
			}
			printResponse(resp)
			return nil
		},
	}
	mutateCmd = &cobra.Command{
		Use:   "mutate [nquads]",
		Short: "Applies a mutation and commits it (use - for stdin or @file)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mu, err := buildMutation(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := requestContext()
			defer cancel()

			c, err := getClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.Mutate(ctx, mu)
			if err != nil {
				return err
			}
			printResponse(resp)
			return nil
		},
	}
	upsertCmd = &cobra.Command{
		Use:   "upsert [query] [nquads]",
		Short: "Runs a query and a mutation conditioned on it, then commits",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := util.ReadInput(args[0])
			if err != nil {
				return err
			}
			mu, err := buildMutation(args[1])
			if err != nil {
				return err
			}
			vars, err := util.ParseVars(viper.GetStringSlice("var"))
			if err != nil {
				return err
			}

			ctx, cancel := requestContext()
			defer cancel()

			c, err := getClient(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			resp, err := c.UpsertWithVars(ctx, query, vars, mu)
			if err != nil {
				return err
			}
			printResponse(resp)
			return nil
		},
	}
	alterCmd = &cobra.Command{
		Use:   "alter [schema]",
		Short: "Applies a schema (use - for stdin or @file), or drops data with --drop-all / --drop-attr",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := &common.Operation{
				DropAll:         viper.GetBool("drop-all"),
				DropAttr:        viper.GetString("drop-attr"),
				RunInBackground: viper.GetBool("background"),
			}
			if len(args) == 1 {
				schema, err := util.ReadInput(args[0])
				if err != nil {
					return err
				}
				op.Schema = schema
			}
			if op.Schema == "" && !op.DropAll && op.DropAttr == "" {
				return fmt.Errorf("nothing to alter: pass a schema, --drop-all or --drop-attr")
			}

			ctx, cancel := requestContext()
			defer cancel()

			c, err := pool.Get(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			payload, err := c.Alter(ctx, op)
			if err != nil {
				return err
			}
			fmt.Println(string(payload.Data))
			return nil
		},
	}
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Checks that the server answers and prints its version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext()
			defer cancel()

			c, err := pool.Get(ctx)
			if err != nil {
				return err
			}
			defer c.Close()

			v, err := c.CheckVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("server version=%s, pool=%+v\n", v.Tag, pool.Status())
			return nil
		},
	}
	txnCmd = &cobra.Command{
		Use:   "txn [nquads...]",
		Short: "Applies several mutations in one transaction (use - for stdin or @file)",
		Long:  "Applies every argument as a separate mutation of one transaction. The transaction is committed at the end, or discarded with --discard or if any mutation fails.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mus := make([]*common.Mutation, 0, len(args))
			for _, arg := range args {
				mu, err := buildMutation(arg)
				if err != nil {
					return err
				}
				mus = append(mus, mu)
			}

			ctx, cancel := requestContext()
			defer cancel()

			txn, err := pool.NewTxn(ctx)
			if err != nil {
				return err
			}
			defer txn.Discard(ctx)

			for i, mu := range mus {
				resp, err := txn.Mutate(ctx, mu)
				if err != nil {
					return fmt.Errorf("mutation %d failed: %w", i+1, err)
				}
				fmt.Printf("mutation %d: start_ts=%d, uids=%v\n", i+1, txn.StartTs(), resp.Uids)
			}

			if viper.GetBool("discard") {
				if err := txn.Discard(ctx); err != nil {
					return err
				}
				fmt.Printf("transaction %d discarded\n", txn.StartTs())
				return nil
			}

			final := txn.Context()
			if err := txn.Commit(ctx); err != nil {
				if common.IsAborted(err) {
					return fmt.Errorf("transaction %d conflicted with a concurrent commit: %w", final.StartTs, err)
				}
				return err
			}
			fmt.Printf("transaction %d committed (%d keys, preds=%s)\n", final.StartTs, len(final.Keys), strings.Join(final.Preds, ","))
			return nil
		},
	}
)

func init() {
	queryCmd.Flags().StringSlice("var", nil, util.WrapString("Query variable as name=value, can be repeated"))
	upsertCmd.Flags().StringSlice("var", nil, util.WrapString("Query variable as name=value, can be repeated"))

	for _, cmd := range []*cobra.Command{mutateCmd, upsertCmd, txnCmd} {
		cmd.Flags().Bool("delete", false, util.WrapString("Delete the given nquads instead of setting them"))
		cmd.Flags().Bool("json", false, util.WrapString("The mutation is JSON instead of nquads"))
	}
	upsertCmd.Flags().String("cond", "", util.WrapString("Condition of the mutation (e.g. @if(eq(len(u), 0)))"))

	alterCmd.Flags().Bool("drop-all", false, util.WrapString("Drop all data and the schema"))
	alterCmd.Flags().String("drop-attr", "", util.WrapString("Drop one predicate"))
	alterCmd.Flags().Bool("background", false, util.WrapString("Build indexes in the background"))

	txnCmd.Flags().Bool("discard", false, util.WrapString("Discard the transaction instead of committing it"))
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// buildMutation reads arg and turns it into a set or delete mutation
func buildMutation(arg string) (*common.Mutation, error) {
	data, err := util.ReadInput(arg)
	if err != nil {
		return nil, err
	}

	mu := common.NewMutation()
	del := viper.GetBool("delete")
	switch {
	case viper.GetBool("json") && del:
		mu.DeleteJson = []byte(data)
	case viper.GetBool("json"):
		mu.SetJson = []byte(data)
	case del:
		mu.SetDeleteNquads(data)
	default:
		mu.SetSetNquads(data)
	}
	if cond := viper.GetString("cond"); cond != "" {
		mu.SetCond(cond)
	}
	return mu, nil
}

// printResponse prints the json result followed by the transaction details
func printResponse(resp *common.Response) {
	var out bytes.Buffer
	if err := json.Indent(&out, resp.Json, "", "  "); err != nil {
		out.Reset()
		out.Write(resp.Json)
	}
	fmt.Println(out.String())

	if resp.Txn != nil {
		fmt.Printf("start_ts=%d, commit_ts=%d, keys=%d\n", resp.Txn.StartTs, resp.Txn.CommitTs, len(resp.Txn.Keys))
	}
	if len(resp.Uids) > 0 {
		fmt.Printf("uids=%v\n", resp.Uids)
	}
	if resp.Latency != nil {
		fmt.Printf("latency=%s\n", time.Duration(resp.Latency.TotalNs))
	}
}
