package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"shoplist-go/pkg/logger"
)

const serviceName = "shoplist"

func main() {
	log := logger.NewFromEnv(serviceName)

	root := &cobra.Command{
		Use:           "shoplist",
		Short:         "Shared real-time shopping list server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(log), newMigrateCmd(log))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
