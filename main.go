/*
 * EV6 - Main process.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	config "github.com/axpcore/ev6/config/configparser"
	"github.com/axpcore/ev6/config/systemconfig"
	"github.com/axpcore/ev6/system"
	logger "github.com/axpcore/ev6/util/logger"

	_ "github.com/axpcore/ev6/config/debugconfig"
)

var Logger *slog.Logger

func main() {
	optConfig := flag.String("config", "ev6.cfg", "Configuration file")
	optLogFile := flag.String("log", "", "Log file")
	optDebug := flag.Bool("debug", false, "Tee log output to stderr")
	flag.Parse()

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("log: can't create log file", "path", *optLogFile, "error", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel, AddSource: false}, optDebug))
	slog.SetDefault(Logger)

	Logger.Info("EV6 started")

	if _, err := os.Stat(*optConfig); err == nil {
		if err := config.LoadConfigFile(*optConfig); err != nil {
			Logger.Error("config: load failed", "path", *optConfig, "error", err)
			os.Exit(1)
		}
	} else if !os.IsNotExist(err) {
		Logger.Error("config: can't stat file", "path", *optConfig, "error", err)
		os.Exit(1)
	}

	sys, err := system.New(systemconfig.Config())
	if err != nil {
		Logger.Error("system: init failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		Logger.Info("shutdown requested")
		sys.Halt()
		cancel()
	}()

	if err := sys.Run(ctx); err != nil {
		Logger.Error("system: run failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("EV6 stopped")
}
