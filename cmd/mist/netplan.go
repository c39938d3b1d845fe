package main

import (
	"fmt"
	"path"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.destructure.co/mist"
)

var netplanOut string

// netplanCmd represents the netplan command
var netplanCmd = &cobra.Command{
	Use:   "netplan [machine...]",
	Short: "Generate netplan network configuration for the fleet",
	Long: `Generates one netplan document per machine from the fleet's static addresses
and gateways. With no arguments the whole fleet is generated concurrently.`,
	Example: "mist netplan mgr-1",
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

		repo := mist.NewNetplanRepository(netplanOut)

		ctx := cmd.Context()

		if len(args) == 0 {
			if err := repo.SaveAll(ctx, fleet); err != nil {
				return err
			}

			log.Info("Generated netplan documents", "machines", len(fleet.Machines()), "dir", netplanOut)

			return nil
		}

		for _, name := range args {
			m, ok := fleet.Machine(name)

			if !ok {
				return fmt.Errorf("machine %q not in fleet", name)
			}

			if err := repo.Save(m); err != nil {
				return err
			}

			log.Info("Generated netplan document", "machine", name, "dir", netplanOut)
		}

		return nil
	},
}

func init() {
	netplanCmd.Flags().StringVar(&netplanOut, "out", path.Join(xdg.DataHome, "mist", "netplan"), "directory to write netplan documents to")

	rootCmd.AddCommand(netplanCmd)
}
