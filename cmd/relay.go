// -- cmd/relay.go --
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/craigjson/pindlebot-v2/internal/observability"
	"github.com/craigjson/pindlebot-v2/internal/relay"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Inspect the hardware relay board",
}

var relayDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Search for a supported relay board on the USB bus",
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := relay.Detect(observability.GetLogger())
		if err != nil {
			if errors.Is(err, relay.ErrNoDeviceFound) {
				fmt.Fprintln(cmd.OutOrStdout(), "No relay board found. Check the USB connection and firmware.")
				return nil
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Relay board found on %s\n", port)
		return nil
	},
}

var relayPingPort string

var relayPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Connect to the relay board and verify it answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		relayCfg := cfg.Relay
		if relayPingPort != "" {
			relayCfg.Port = relayPingPort
		}
		dev := relay.NewDevice(relayCfg, observability.GetLogger())
		if err := dev.Connect(); err != nil {
			return fmt.Errorf("relay connect: %w", err)
		}
		defer dev.Disconnect()

		if !dev.Ping() {
			return errors.New("relay did not acknowledge PING")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Relay board is alive.")
		return nil
	},
}

func init() {
	relayPingCmd.Flags().StringVar(&relayPingPort, "port", "", "serial port to ping (default: configured or auto-detected)")
	relayCmd.AddCommand(relayDetectCmd)
	relayCmd.AddCommand(relayPingCmd)
	rootCmd.AddCommand(relayCmd)
}
