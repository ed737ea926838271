package main

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ralt/relserve/internal/cli"
)

func main() {
	// Setup logging format, --log-format may replace it
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
