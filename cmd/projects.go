package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/selfcaststudios/sitecast/internal/config"
)

var projectsFormat string

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"ls"},
	Short:   "List stored projects",
	RunE:    runProjects,
}

func init() {
	projectsCmd.Flags().StringVar(&projectsFormat, "format", "text", "output format (text, json, yaml)")
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close(context.Background())
	}()

	ids, err := st.ListProjectIDs(ctx)
	if err != nil {
		return err
	}

	switch projectsFormat {
	case "text":
		if len(ids) == 0 {
			fmt.Println("no projects")
			return nil
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]interface{}{"projects": ids})
	case "yaml":
		return yaml.NewEncoder(os.Stdout).Encode(map[string]interface{}{"projects": ids})
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", projectsFormat)
	}
}
