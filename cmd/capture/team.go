package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/steveyackey/posthog/internal/config"
	"github.com/steveyackey/posthog/internal/idgen"
	"github.com/steveyackey/posthog/internal/model"
	"github.com/steveyackey/posthog/internal/store/postgres"
)

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage teams and their API tokens",
}

var teamName string

var teamCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Provision a team with a fresh API token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if teamName == "" {
			return fmt.Errorf("--name is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		token, err := idgen.NewAPIToken()
		if err != nil {
			return err
		}
		team := &model.Team{Name: teamName, APIToken: token}
		if err := store.CreateTeam(cmd.Context(), team); err != nil {
			return err
		}

		fmt.Printf("Created team %d (%s)\n", team.ID, team.Name)
		fmt.Printf("API token: %s\n", team.APIToken)
		return nil
	},
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List teams",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		teams, err := store.ListTeams(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tAPI TOKEN\tCREATED")
		for _, t := range teams {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", t.ID, t.Name, t.APIToken, t.CreatedAt.Format("2006-01-02"))
		}
		return w.Flush()
	},
}

func init() {
	teamCreateCmd.Flags().StringVar(&teamName, "name", "", "team name")
	teamCmd.AddCommand(teamCreateCmd)
	teamCmd.AddCommand(teamListCmd)
}
