package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/phototrip/phototrip/internal/api"
	"github.com/phototrip/phototrip/internal/config"
)

func init() {
	var server string
	cmd := &cobra.Command{
		Use:   "ctl <command> [args...]",
		Short: "Send a UI command to a running server",
		Long: "Sends a command such as play, pause, filter 2024 or step_duration 800 " +
			"to a running server and prints its result. Without a command the current state is printed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if server == "" {
				server = localURL(config.GetServerConfig().Addr)
			}
			client := api.NewClient(server, config.GetServerConfig().APIKey)
			if err := client.Healthcheck(); err != nil {
				return err
			}

			if len(args) == 0 {
				state, err := client.State()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(state))
				return nil
			}
			res, err := client.Command(args[0], args[1:]...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server base URL (default: http://localhost + server.addr)")

	rootCmd.AddCommand(cmd)
}

// localURL turns a listen address into a URL on this host.
func localURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + strings.Replace(addr, "0.0.0.0", "localhost", 1)
}
