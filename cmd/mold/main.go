package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/temirov/mold/internal/cli"
	"github.com/temirov/mold/internal/services/clipboard"
	"github.com/temirov/mold/internal/utils"
)

// main is the entry point for the mold command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger()
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer func() { _ = loggerInstance.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dependencies := cli.Dependencies{
		Logger:    loggerInstance,
		Clipboard: clipboard.NewService(),
	}
	if applicationExecutionError := cli.Execute(ctx, dependencies); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage, zap.Error(applicationExecutionError))
	}
}
