package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	buildapi "github.com/electricimp/build-api"
)

func newDevicesCommand(ctx *commandContext) *cobra.Command {
	devicesCmd := &cobra.Command{
		Use:     "devices",
		Aliases: []string{"device"},
		Short:   "Manage devices",
	}

	devicesCmd.AddCommand(newDevicesListCommand(ctx))
	devicesCmd.AddCommand(newDevicesGetCommand(ctx))
	devicesCmd.AddCommand(newDevicesRenameCommand(ctx))
	devicesCmd.AddCommand(newDevicesAssignCommand(ctx))
	devicesCmd.AddCommand(newDevicesDeleteCommand(ctx))

	return devicesCmd
}

func newDevicesListCommand(ctx *commandContext) *cobra.Command {
	var (
		name, modelID, mac, deviceID string
		asJSON                       bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := buildapi.Params{}
			setParam(params, "name", name)
			setParam(params, "model_id", modelID)
			setParam(params, "mac_address", mac)
			setParam(params, "device_id", deviceID)

			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				devices, err := client.ListDevices(reqCtx, params)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, devices)
				}
				if len(devices) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No devices found")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDevices(devices))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Only devices with this name")
	cmd.Flags().StringVar(&modelID, "model-id", "", "Only devices assigned to this model")
	cmd.Flags().StringVar(&mac, "mac-address", "", "Only the device with this MAC address")
	cmd.Flags().StringVar(&deviceID, "device-id", "", "Only the device with this id")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newDevicesGetCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <device-id>",
		Short: "Show one device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				device, err := client.GetDevice(reqCtx, args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, device)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderDevices([]buildapi.Device{*device}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func newDevicesRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <device-id> <name>",
		Short: "Rename a device",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				device, err := client.RenameDevice(reqCtx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Device %s renamed to %q\n", device.ID, device.Name)
				return nil
			})
		},
	}
}

func newDevicesAssignCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <device-id> <model-id>",
		Short: "Assign a device to a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				device, err := client.AssignDevice(reqCtx, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Device %s assigned to model %s\n", device.ID, device.ModelID)
				return nil
			})
		},
	}
}

func newDevicesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <device-id>",
		Short: "Remove a device from the account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(reqCtx context.Context, client *buildapi.Client) error {
				if err := client.DeleteDevice(reqCtx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Device %s deleted\n", args[0])
				return nil
			})
		},
	}
}

func renderDevices(devices []buildapi.Device) string {
	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rssi := ""
		if d.RSSI != 0 {
			rssi = strconv.Itoa(d.RSSI)
		}
		rows = append(rows, []string{d.ID, d.Name, d.ModelID, d.MacAddress, d.PowerState, rssi})
	}
	return renderTable(
		[]column{{title: "ID"}, {title: "Name"}, {title: "Model"}, {title: "MAC"}, {title: "Power"}, {title: "RSSI", numeric: true}},
		rows,
	)
}

func setParam(params buildapi.Params, key, value string) {
	if value != "" {
		params[key] = value
	}
}
