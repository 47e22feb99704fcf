package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/armadaproject/proxgrad/cmd/proxgrad/cmd"
	"github.com/armadaproject/proxgrad/internal/common/app"
	"github.com/armadaproject/proxgrad/internal/common/armadaerrors"
	"github.com/armadaproject/proxgrad/internal/common/logging"
)

func main() {
	logging.MustConfigure(logging.DefaultConfig())
	err := cmd.RootCmd().ExecuteContext(app.CreateContextWithShutdown())
	if err != nil {
		logging.WithStacktrace(log.NewEntry(log.StandardLogger()), err).Error("proxgrad failed")
	}
	os.Exit(armadaerrors.ExitCodeFromError(err))
}
