package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	agentcfg "github.com/agentcore-run/agentcore/internal/config"
)

var modelsVerbose bool

var modelsCmd = &cobra.Command{
	Use:   "models [provider]",
	Short: "List available models from configured providers",
	Long: `List all available models from configured providers.

Examples:
  agentcore models              # list every model
  agentcore models anthropic    # list only Anthropic's models
  agentcore models --verbose    # include context size and pricing`,
	RunE: runModels,
}

func init() {
	modelsCmd.Flags().BoolVarP(&modelsVerbose, "verbose", "v", false, "Include pricing and context length")
}

func runModels(cmd *cobra.Command, args []string) error {
	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := agentcfg.Load(workDir)
	if err != nil {
		return err
	}

	ctx := context.Background()
	reg, err := buildTransportRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	var providerFilter string
	if len(args) > 0 {
		providerFilter = args[0]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	if modelsVerbose {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tMAX OUTPUT\tINPUT PRICE\tOUTPUT PRICE")
	} else {
		fmt.Fprintln(w, "PROVIDER\tMODEL\tCONTEXT\tFEATURES")
	}

	for _, m := range reg.AllModels() {
		if providerFilter != "" && m.ProviderID != providerFilter {
			continue
		}
		if modelsVerbose {
			fmt.Fprintf(w, "%s\t%s\t%dk\t%d\t$%.2f/1M\t$%.2f/1M\n",
				m.ProviderID, m.ID, m.ContextWindow/1000, m.MaxOutputTokens, m.InputPrice, m.OutputPrice)
			continue
		}
		var features string
		if m.SupportsVision {
			features += "vision "
		}
		if m.SupportsTools {
			features += "tools "
		}
		if m.SupportsReasoning {
			features += "reasoning "
		}
		fmt.Fprintf(w, "%s\t%s\t%dk\t%s\n", m.ProviderID, m.ID, m.ContextWindow/1000, features)
	}

	return w.Flush()
}
