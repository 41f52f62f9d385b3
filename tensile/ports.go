package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itohio/tensile/pkg/loadcell"
)

func NewPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List serial ports",
		RunE: func(_ *cobra.Command, _ []string) error {
			ports, err := loadcell.Ports()
			if err != nil {
				return err
			}
			for _, p := range ports {
				fmt.Println(p.Name)
			}
			return nil
		},
	}
}
