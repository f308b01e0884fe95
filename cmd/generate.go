package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/selfcaststudios/sitecast/internal/config"
	"github.com/selfcaststudios/sitecast/internal/renderer"
	"github.com/selfcaststudios/sitecast/internal/site"
)

var generateAll bool

var generateCmd = &cobra.Command{
	Use:     "generate [projectId...]",
	Aliases: []string{"g"},
	Short:   "Generate static sites for the given projects",
	Long: `Generate renders the stored content of each named project into its
static site under the configured output directory. With --all, every
stored project is generated.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&generateAll, "all", false, "generate every stored project")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if !generateAll && len(args) == 0 {
		return fmt.Errorf("either name at least one project id or pass --all")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
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

	asm := site.New(st, renderer.New(logger), cfg, logger)

	ids := args
	if generateAll {
		ids, err = st.ListProjectIDs(ctx)
		if err != nil {
			return err
		}
	}

	var failed int
	for _, projectID := range ids {
		result, err := asm.Generate(ctx, projectID)
		if err != nil {
			failed++
			fmt.Printf("failed    %s: %v\n", projectID, err)
			continue
		}
		fmt.Printf("generated %s: %s\n", projectID, result.SiteURL)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d projects failed to generate", failed, len(ids))
	}
	return nil
}
