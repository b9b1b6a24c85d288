package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/sirupsen/logrus"

	"github.com/eringen/blog"
)

func runServe(configPath string) error {
	cfg, err := blog.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger, err := blog.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	if cfg.GopsEnabled {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.WithField("err", err).Warn("Could not start gops agent")
		} else {
			defer agent.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := blog.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"driver":    cfg.DatabaseDriver,
		"max_conns": cfg.MaxOpenConns,
	}).Info("connected to database")

	app, err := blog.New(cfg, store, blog.WithLogger(logger))
	if err != nil {
		store.Close()
		return err
	}
	defer app.Close()
	return app.Start(ctx)
}

func runMigrate(configPath string) error {
	cfg, err := blog.LoadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := context.Background()
	store, err := blog.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	fmt.Println("blog_posts is ready")
	return nil
}

func runEncode(args []string, stdin io.Reader, stdout io.Writer) error {
	src := stdin
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		src = f
	}
	plain, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, blog.EncodeBody(string(plain)))
	return err
}

func runDecode(stdin io.Reader, stdout io.Writer) error {
	encoded, err := io.ReadAll(stdin)
	if err != nil {
		return err
	}
	body, err := blog.DecodeBody(string(encoded))
	if err != nil {
		return err
	}
	_, err = io.WriteString(stdout, body)
	return err
}
