package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"agenthub/localrun"
)

type DevCmd struct{}

func NewDevCmd() *DevCmd {
	return &DevCmd{}
}

type devLogConsumer struct{}

func (d *devLogConsumer) Accept(log localrun.Log) {
	stream := "out"
	if log.LogType == localrun.StderrLog {
		stream = "err"
	}
	fmt.Printf("%s | %s", stream, strings.TrimRight(string(log.Content), "\n")+"\n")
}

// Run smoke-tests the function package at dir locally until interrupted.
func (d *DevCmd) Run(dir string) error {
	runner, err := localrun.NewRunner()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signals
		cancel()
	}()
	return runner.Run(ctx, dir, &devLogConsumer{})
}
