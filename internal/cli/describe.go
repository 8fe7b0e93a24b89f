package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/shoeshelf/internal/models"
)

// NewDescribeCommand creates the describe command, which signs in, fetches
// details for the given shoes and records the view.
func NewDescribeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <name=price>...",
		Short: "Fetch details for a list of shoes",
		Long: `Fetch details for a list of shoes without touching your saved list.

Example:
  shoeshelf describe "Air Max=120" "Samba=99.50"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseItems(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			syncer := newSyncer(cfg, newLogger(opts, cfg, cmd.ErrOrStderr()))
			if _, err := syncer.Initialize(cmd.Context()); err != nil {
				return err
			}
			details, err := syncer.RequestEnrichment(cmd.Context(), items)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), details)
			return nil
		},
	}
}

// parseItems reads name=price pairs. The last '=' separates the price.
func parseItems(args []string) ([]models.Item, error) {
	items := make([]models.Item, 0, len(args))
	for _, arg := range args {
		i := strings.LastIndexByte(arg, '=')
		if i < 0 {
			return nil, fmt.Errorf("invalid shoe %q: want name=price", arg)
		}
		name := strings.TrimSpace(arg[:i])
		price, err := strconv.ParseFloat(strings.TrimSpace(arg[i+1:]), 64)
		if err != nil || name == "" || !models.ValidPrice(price) {
			return nil, fmt.Errorf("invalid shoe %q: want name=price with a positive price", arg)
		}
		items = append(items, models.Item{Name: name, Price: price})
	}
	return items, nil
}
