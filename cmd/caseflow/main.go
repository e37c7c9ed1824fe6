package main

import (
	"errors"
	"os"

	"github.com/joseph-ayodele/caseflow/internal/cli"
	"github.com/joseph-ayodele/caseflow/internal/common"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		if errors.Is(err, common.ErrAuth) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}
