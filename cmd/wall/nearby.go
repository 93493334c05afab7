// cmd/wall/nearby.go

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"freedomwall/internal/client"
	"freedomwall/internal/domain/geo"
)

func newNearbyCmd(root *rootOptions) *cobra.Command {
	var (
		lat, lng      float64
		radius        float64
		neLat, neLng  float64
		swLat, swLng  float64
		allowDegraded bool
	)

	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List messages around a point",
		Example: `  wall nearby --lat 8.475 --lng 124.646 --radius 500
  wall nearby --lat 8.475 --lng 124.646 --ne-lat 8.49 --ne-lng 124.66 --sw-lat 8.46 --sw-lng 124.63`,
		RunE: func(cmd *cobra.Command, args []string) error {
			center := geo.NewPoint(lat, lng)
			if !center.Valid() {
				return fmt.Errorf("invalid center %.6f,%.6f", lat, lng)
			}

			bounds := cmd.Flags().Changed("ne-lat") || cmd.Flags().Changed("ne-lng") ||
				cmd.Flags().Changed("sw-lat") || cmd.Flags().Changed("sw-lng")
			if bounds {
				if cmd.Flags().Changed("radius") {
					return errors.New("--radius and viewport bounds are mutually exclusive")
				}
				radius = geo.VisibleRadius(center, geo.NewPoint(neLat, neLng), geo.NewPoint(swLat, swLng))
			}

			msgs, err := root.client(cmd).FetchMessages(cmd.Context(), center, radius)
			if err != nil {
				if !(allowDegraded && errors.Is(err, client.ErrDegraded)) {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: server could not run the nearby query")
			}

			return root.printMessages(cmd.OutOrStdout(), msgs)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "center latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "center longitude")
	cmd.Flags().Float64Var(&radius, "radius", client.DefaultRadius, "search radius in meters")
	cmd.Flags().Float64Var(&neLat, "ne-lat", 0, "viewport north-east latitude")
	cmd.Flags().Float64Var(&neLng, "ne-lng", 0, "viewport north-east longitude")
	cmd.Flags().Float64Var(&swLat, "sw-lat", 0, "viewport south-west latitude")
	cmd.Flags().Float64Var(&swLng, "sw-lng", 0, "viewport south-west longitude")
	cmd.Flags().BoolVar(&allowDegraded, "allow-degraded", false, "print an empty list instead of failing when the server degrades")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}
