package main

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"passages/pkg/distance"
	"passages/pkg/geo"
)

type walkStep struct {
	Index     int     `json:"index"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Place     string  `json:"place"`
	Leg       float64 `json:"leg"`
	Travelled float64 `json:"travelled"`
	Counter   int     `json:"counter"` // Value the distance counter settles on
}

func newWalkCommand(ctx *commandContext) *cobra.Command {
	var unitFlag string

	cmd := &cobra.Command{
		Use:   "walk <narrative-id>",
		Short: "Step through a narrative and print the travelled distance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if unitFlag == "" {
				unitFlag = cfg.Distance.Unit
			}
			unit, err := geo.ParseUnit(unitFlag)
			if err != nil {
				return err
			}

			c, _, err := ctx.load(cmd.Context())
			if err != nil {
				return err
			}
			n, ok := c.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown narrative %q", args[0])
			}
			if !n.Included {
				fmt.Fprintf(cmd.ErrOrStderr(), "note: narrative %s is excluded from interaction (%.0f%% passages missing)\n",
					n.ID, n.MissingFraction*100)
			}

			legs := distance.Legs(n.Points(), unit)
			steps := make([]walkStep, 0, n.Len())
			total := 0.0
			for i, w := range n.Waypoints {
				total += legs[i]
				steps = append(steps, walkStep{
					Index:     i,
					Lat:       w.Point.Lat,
					Lon:       w.Point.Lon,
					Place:     w.Passage.Expressed,
					Leg:       legs[i],
					Travelled: total,
					Counter:   int(math.Round(total)),
				})
			}

			if ctx.flags.json {
				return writeJSON(cmd, steps)
			}

			out := cmd.OutOrStdout()
			rows := make([][]string, 0, len(steps))
			for _, s := range steps {
				rows = append(rows, []string{
					strconv.Itoa(s.Index),
					strconv.FormatFloat(s.Lat, 'f', 4, 64),
					strconv.FormatFloat(s.Lon, 'f', 4, 64),
					s.Place,
					strconv.FormatFloat(s.Leg, 'f', 2, 64),
					strconv.FormatFloat(s.Travelled, 'f', 2, 64),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Lat", "Lon", "Place", "Leg", "Travelled (" + string(unit) + ")"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignRight},
				shouldColorize(out),
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&unitFlag, "unit", "u", "", "Distance unit (miles, kilometers, nautical); defaults to the configured unit")
	return cmd
}
