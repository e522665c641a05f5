// Command educloud signs in to an EduCloud school and browses its students, invoices and notifications.
package main

import (
	"fmt"
	"os"

	"github.com/trezcool/educloud"
	"github.com/trezcool/educloud/core"
	logsvc "github.com/trezcool/educloud/services/logger"
	"github.com/trezcool/educloud/storage/database"
)

func main() {
	conf := core.Conf
	logger := logsvc.New(conf)

	storage, closer, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening storage: %v", err), err)
	}

	validate, _ := core.NewValidator()
	cli := &commandLine{
		conf:     conf,
		validate: validate,
		out:      &printer{out: os.Stdout, errOut: os.Stderr},
	}
	sdk, err := educloud.New(conf, storage, educloud.WithLogger(logger), educloud.WithNavigator(cli))
	if err != nil {
		_ = closer.Close()
		logger.Fatal(fmt.Sprintf("starting client: %v", err), err)
	}
	cli.sdk = sdk

	err = cli.run(os.Args)
	if cerr := closer.Close(); cerr != nil {
		logger.Error("closing storage", cerr)
	}
	if err != nil {
		if err != errHelp {
			cli.out.fail("%v", err)
		}
		os.Exit(1)
	}
}
