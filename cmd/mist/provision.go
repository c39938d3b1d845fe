package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.destructure.co/mist"
)

var provisionPlain bool

// provisionCmd represents the provision command
var provisionCmd = &cobra.Command{
	Use:   "provision [catalog...]",
	Short: "Run command catalogs against the fleet",
	Long: `Resolves each catalog's templated commands onto the fleet's instances by role
and runs the per-instance sequences concurrently.

Catalogs run in the given order, one completed plan at a time; by default the
cleanup catalog runs before the init catalog. A failing command skips the rest
of its instance's sequence but never stops the other instances.`,
	Example: "mist provision catalogs/cleanup.yaml catalogs/init.yaml",
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := &mist.Config{}

		if err := projectConfig.Unmarshal(conf); err != nil {
			return fmt.Errorf("reading fleet from project config: %w", err)
		}

		fleet, err := mist.NewFleet(conf)

		if err != nil {
			return err
		}

		catalogs := args

		if len(catalogs) == 0 {
			catalogs = []string{"catalogs/cleanup.yaml", "catalogs/init.yaml"}
		}

		ctx := cmd.Context()

		failed := 0

		for _, path := range catalogs {
			catalog, err := mist.LoadCatalog(path)

			if err != nil {
				return err
			}

			builder := mist.NewCommandBuilder(catalog, fleet, mist.NewRunnerFactory(fleet))

			plan, err := builder.CommandList()

			if err != nil {
				return err
			}

			log.Info("Executing catalog", "catalog", path, "instances", len(plan))

			results := runPlan(ctx, plan)

			for _, res := range results {
				if res.Err != nil {
					failed++

					log.Error("Instance failed", "instance", res.Instance, "completed", res.Completed, "error", res.Err)

					continue
				}

				log.Info("Instance provisioned", "instance", res.Instance, "completed", res.Completed)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d instance runs failed", failed)
		}

		return nil
	},
}

func runPlan(ctx context.Context, plan mist.Plan) []mist.Result {
	if provisionPlain {
		mux := mist.NewLogMux(ctx, os.Stdout)

		executor := mist.NewExecutor(mist.NewLogStatus(log.Default()), mux)

		return executor.Run(ctx, plan)
	}

	ui := mist.NewProgressUI(os.Stderr, plan)

	executor := mist.NewExecutor(ui, nil)

	results := executor.Run(ctx, plan)

	ui.Wait()

	return results
}

func init() {
	provisionCmd.Flags().BoolVar(&provisionPlain, "plain", false, "log status lines and stream command output instead of rendering progress bars")

	rootCmd.AddCommand(provisionCmd)
}
