package main

import (
	"os"

	"github.com/isectech/bulkshare/services/settlement-service/cmd/splitctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
