package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shadowvote/votegate/internal/config"
	"github.com/shadowvote/votegate/internal/sensor"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports and the detected sensor port",
	RunE:  runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ports, err := sensor.ListPorts(cfg.Ports.PriorityKeywords)
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found")
		return nil
	}

	for _, p := range ports {
		marker := " "
		if p.Preferred {
			marker = "*"
		}
		fmt.Printf("%s %-20s %s\n", marker, p.Name, p.Description)
	}

	detected, err := sensor.AutodetectPort(cfg.Ports.PriorityKeywords)
	if err != nil {
		return err
	}
	fmt.Printf("\nAutodetected sensor port: %s\n", detected)
	return nil
}
