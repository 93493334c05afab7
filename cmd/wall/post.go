// cmd/wall/post.go

package main

import (
	"strings"

	"github.com/spf13/cobra"

	"freedomwall/internal/domain/geo"
	"freedomwall/internal/domain/message"
)

func newPostCmd(root *rootOptions) *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:     "post [flags] <content>",
		Short:   "Post an anonymous message at a point",
		Example: `  wall post --lat 8.475 --lng 124.646 "kape tayo sa plaza"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args, " ")
			point := geo.NewPoint(lat, lng)

			// fail fast on input the server would reject
			if err := message.ValidateContent(content); err != nil {
				return err
			}
			if err := message.ValidatePoint(point); err != nil {
				return err
			}

			m, err := root.client(cmd).PostMessage(cmd.Context(), content, point)
			if err != nil {
				return err
			}

			return root.printMessage(cmd.OutOrStdout(), *m)
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")

	return cmd
}
