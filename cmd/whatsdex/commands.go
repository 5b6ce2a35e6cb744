package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/edgard/whatsdex/internal/bot"
	"github.com/edgard/whatsdex/internal/bot/handlers"
	"github.com/edgard/whatsdex/internal/config"
	"github.com/edgard/whatsdex/internal/logger"
)

func commandsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commands",
		Short: "List every registered command",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			reg, err := bot.NewRegistry(handlers.HandlerDeps{Logger: logger.Discard(), Config: cfg})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			cats, byCat := reg.Categories()
			for _, cat := range cats {
				fmt.Fprintf(out, "%s\n", cat)
				for _, d := range byCat[cat] {
					name := cfg.Bot.DisplayPrefix + d.Name
					if len(d.Aliases) > 0 {
						name += " (" + strings.Join(d.Aliases, ", ") + ")"
					}
					fmt.Fprintf(out, "  %-36s %s\n", name, d.Description)
				}
			}
			return nil
		},
	}
}
