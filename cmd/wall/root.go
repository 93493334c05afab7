// cmd/wall/root.go

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"freedomwall/internal/client"
	"freedomwall/internal/domain/message"
	"freedomwall/internal/logging"
)

type rootOptions struct {
	server  string
	output  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "wall",
		Short:         "Post to and read the Freedom Wall",
		Long:          "wall posts anonymous messages pinned to a point and lists the messages around a location.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultServer := os.Getenv("WALL_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", defaultServer, "API base URL (env WALL_SERVER)")
	rootCmd.PersistentFlags().StringVar(&opts.output, "output", "text", "output format: json|text")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newNearbyCmd(opts))
	rootCmd.AddCommand(newPostCmd(opts))

	return rootCmd
}

func (o *rootOptions) client(cmd *cobra.Command) *client.Client {
	logger := logging.NewLogger("warn", "text")
	logger.SetOutput(cmd.ErrOrStderr())
	if o.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return client.New(o.server, client.WithLogger(logger))
}

// printMessages writes a list; JSON output is always an array
func (o *rootOptions) printMessages(w io.Writer, msgs []message.Message) error {
	return o.write(w, msgs, msgs)
}

// printMessage writes a single message; JSON output is an object
func (o *rootOptions) printMessage(w io.Writer, m message.Message) error {
	return o.write(w, m, []message.Message{m})
}

func (o *rootOptions) write(w io.Writer, asJSON interface{}, msgs []message.Message) error {
	switch strings.ToLower(o.output) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(asJSON)
	case "text", "":
		for _, m := range msgs {
			fmt.Fprintf(w, "%s  (%.5f, %.5f)  %s\n  %s\n",
				m.CreatedAt.Local().Format(time.DateTime), m.Position.Lat, m.Position.Lng, m.ID, m.Content)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format %q", o.output)
	}
}
