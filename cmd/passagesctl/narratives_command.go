package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

type narrativeRow struct {
	Position  int     `json:"position"`
	ID        string  `json:"id"`
	Color     string  `json:"color"`
	Waypoints int     `json:"waypoints"`
	Missing   float64 `json:"missing_fraction"`
	Included  bool    `json:"included"`
	Title     string  `json:"title,omitempty"`
	Author    string  `json:"author,omitempty"`
}

func newNarrativesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "narratives",
		Aliases: []string{"ls"},
		Short:   "List narratives in display order",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, meta, err := ctx.load(cmd.Context())
			if err != nil {
				return err
			}
			byID := metadataByID(meta)

			rows := make([]narrativeRow, 0, c.Len())
			for pos, id := range c.Order() {
				n, _ := c.Get(id)
				row := narrativeRow{
					Position:  pos,
					ID:        id,
					Color:     c.Color(id),
					Waypoints: n.Len(),
					Missing:   n.MissingFraction,
					Included:  n.Included,
				}
				if m, ok := byID[id]; ok {
					row.Title = m.DisplayTitle()
					row.Author = m.Author
				}
				rows = append(rows, row)
			}

			if ctx.flags.json {
				return writeJSON(cmd, rows)
			}

			out := cmd.OutOrStdout()
			table := make([][]string, 0, len(rows))
			for _, r := range rows {
				status := "included"
				if !r.Included {
					status = "excluded"
				}
				table = append(table, []string{
					strconv.Itoa(r.Position),
					r.ID,
					r.Color,
					strconv.Itoa(r.Waypoints),
					fmt.Sprintf("%.0f%%", r.Missing*100),
					status,
					r.Title,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "ID", "Color", "Waypoints", "Missing", "Status", "Title"},
				table,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
				shouldColorize(out),
			))
			fmt.Fprintf(out, "%d narratives, %d complete\n", c.Len(), c.IncludedCount())
			return nil
		},
	}
}
