// Command devserver serves a local, in-memory EduCloud API seeded with the "demo" school.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/trezcool/educloud/apps/devserver/echo"
	"github.com/trezcool/educloud/apps/devserver/memdb"
	"github.com/trezcool/educloud/core"
	emailsvc "github.com/trezcool/educloud/services/email"
	logsvc "github.com/trezcool/educloud/services/logger"
)

const shutdownTimeout = 5 * time.Second

func main() {
	conf := core.Conf
	logger := logsvc.New(conf)
	if err := conf.Validate(); err != nil {
		logger.Fatal(fmt.Sprintf("invalid configuration: %v", err), err)
	}

	db := memdb.Open()
	if _, err := memdb.Seed(db); err != nil {
		logger.Fatal(fmt.Sprintf("seeding database: %v", err), err)
	}

	server := echoapi.NewServer(&echoapi.Options{
		Config:  conf,
		DB:      db,
		MailSvc: emailsvc.New(conf, logger),
		Logger:  logger,
	})

	logger.Info(fmt.Sprintf("Dev API listening on %s : version %q", conf.DevServer.Addr, conf.Build))
	go server.Start()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
	logger.Info("Application stopped")
}
