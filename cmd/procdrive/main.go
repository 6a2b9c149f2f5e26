// Command procdrive drives one vehicle through a bridge dongle, a
// websocket simulator, or an in-process simulator.
//
//	procdrive drive -speed 400 -duration 30s
//	procdrive scan -link /dev/ttyUSB0
//	procdrive tail -link ws://localhost:8090/ws
//	procdrive report -db drive.db -png speed.png
//	procdrive help -locale de-DE
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/procdrive/internal/config"
	"github.com/banshee-data/procdrive/internal/monitoring"
	"github.com/banshee-data/procdrive/internal/version"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, env config.Env, args []string, out io.Writer) error
}

var commands = []command{
	{"drive", "connect, optionally scan and align, then drive for a while", runDrive},
	{"scan", "record and print the track map", runScan},
	{"tail", "print raw bridge lines", runTail},
	{"report", "speed statistics of a recorded session", runReport},
	{"help", "localized operation documentation", runHelp},
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "usage: procdrive <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.usage)
	}
	fmt.Fprintf(w, "\nrun 'procdrive <command> -h' for the flags of one command\n")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}
	switch os.Args[1] {
	case "-version", "--version", "version":
		fmt.Println(version.String())
		return
	case "-h", "--help":
		usage(os.Stdout)
		return
	}

	env, err := config.LoadEnv(".env")
	if err != nil {
		log.Fatalf("failed to load environment: %v", err)
	}
	monitoring.SetDebug(env.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := dispatch(ctx, env, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Printf("procdrive %s: %v", os.Args[1], err)
		stop()
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, env config.Env, args []string, out io.Writer) error {
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, env, args[1:], out)
		}
	}
	usage(out)
	return fmt.Errorf("unknown command %q", args[0])
}
