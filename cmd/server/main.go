package main

import (
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli"

	"hangman/internal/config"
	"hangman/internal/server"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	myApp := cli.NewApp()
	myApp.Name = "hangman-server"
	myApp.Usage = "two-player hangman match server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "port",
			Value: 5000,
			Usage: "TCP port to listen on",
		},
		cli.StringFlag{
			Name:  "config",
			Usage: "path to a YAML config file overriding the built-in defaults",
		},
		cli.StringFlag{
			Name:  "data-dir",
			Usage: "directory holding users.txt and the per-user history files",
		},
		cli.StringFlag{
			Name:  "words-dir",
			Usage: "directory holding the words_round1/2/3.txt corpora",
		},
		cli.IntFlag{
			Name:  "workers",
			Usage: "worker pool size handling parsed requests (0 keeps the config/default value)",
		},
		cli.BoolFlag{
			Name:  "deterministic",
			Usage: "always pick each round's first matching word instead of a random one (test mode)",
		},
	}
	myApp.Action = run

	if err := myApp.Run(os.Args); err != nil {
		log.Fatalf("hangman-server: %v", err)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}

	if c.IsSet("port") {
		cfg.Port = c.Int("port")
	} else if c.NArg() > 0 {
		port, err := strconv.Atoi(c.Args().Get(0))
		if err != nil {
			return fmt.Errorf("invalid port argument %q", c.Args().Get(0))
		}
		cfg.Port = port
	}
	if c.IsSet("data-dir") {
		cfg.DataDir = c.String("data-dir")
	}
	if c.IsSet("words-dir") {
		cfg.WordsDir = c.String("words-dir")
	}
	if c.IsSet("workers") && c.Int("workers") > 0 {
		cfg.Workers = c.Int("workers")
	}

	srv, err := server.New(server.Config{
		BindAddr:        net.JoinHostPort(cfg.BindAddress, strconv.Itoa(cfg.Port)),
		Workers:         cfg.Workers,
		DataDir:         cfg.DataDir,
		WordsDir:        cfg.WordsDir,
		RecvBufferSize:  cfg.RecvBufferSize,
		SendBufferLimit: cfg.SendBufferLimit,
		Deterministic:   c.Bool("deterministic"),
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Println("[server] shutting down")
		srv.Shutdown()
	}()

	if err := srv.Run(); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
