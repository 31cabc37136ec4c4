/*
battery-tester - Logs and plots samples from a battery tester
Copyright (C) 2024, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package liveplot

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/config"
	"github.com/TheCacophonyProject/battery-tester/internal/logging"
	arg "github.com/alexflint/go-arg"
	"gopkg.in/tomb.v2"
)

var (
	version = "<not set>"
	log     = logging.NewLogger("info")
)

type Args struct {
	Dir         string        `arg:"-d,--dir" help:"Folder with the logger's data files (default: the folder of this program)"`
	Output      string        `arg:"-o,--output" help:"PNG file to write the chart to"`
	Interval    time.Duration `arg:"-i,--interval" help:"Time between redraws, increase for big data files"`
	StartupWait time.Duration `arg:"--startup-wait" help:"How long to wait for a data file to appear before giving up"`
	HTTPAddress string        `arg:"--http-address" help:"Address to serve the live chart on, e.g. :8080"`
	config.ConfigArgs
	logging.LogArgs
}

var defaultArgs = Args{}

func procArgs(input []string) (Args, error) {
	args := defaultArgs

	parser, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return Args{}, err
	}
	err = parser.Parse(input)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if errors.Is(err, arg.ErrVersion) {
		fmt.Println(version)
		os.Exit(0)
	}
	return args, err
}

func parseConfig(conf *config.Config, args Args) (*config.Plotter, error) {
	p := config.DefaultPlotter()
	if err := conf.Unmarshal(config.PlotterKey, &p); err != nil {
		return nil, err
	}
	if args.Dir != "" {
		p.Dir = args.Dir
	}
	if args.Output != "" {
		p.Output = args.Output
	}
	if args.Interval != 0 {
		p.Interval = args.Interval
	}
	if args.StartupWait != 0 {
		p.StartupWait = args.StartupWait
	}
	if args.HTTPAddress != "" {
		p.HTTPAddress = args.HTTPAddress
	}
	if p.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", p.Interval)
	}
	return &p, nil
}

func Run(inputArgs []string, ver string) error {
	version = ver
	args, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}
	log = logging.NewLogger(args.LogLevel)

	log.Infof("Running version: %s", version)

	conf, err := config.New(args.ConfigDir)
	if err != nil {
		return err
	}
	pc, err := parseConfig(conf, args)
	if err != nil {
		return err
	}

	dir, err := logDir(pc.Dir)
	if err != nil {
		return err
	}
	path, err := waitForLogFile(dir, pc.StartupWait)
	if err != nil {
		return err
	}
	log.Info("Latest logger data file found: ", path)

	plotter := newPlotter(dir, pc.Output, Chart{Width: pc.Width, Height: pc.Height})
	plotter.current = path

	var t tomb.Tomb
	t.Go(func() error {
		return plotter.loop(t.Dying(), pc.Interval)
	})
	if pc.HTTPAddress != "" {
		t.Go(func() error {
			return serve(&t, pc.HTTPAddress, plotter.handler(pc.Interval))
		})
	}
	t.Go(func() error {
		return waitForSignal(&t)
	})
	go checkConfigChanges(conf, pc, args, &t)

	err = t.Wait()
	log.Info("Stopped plotting")
	return err
}

func serve(t *tomb.Tomb, address string, handler http.Handler) error {
	server := &http.Server{Addr: address, Handler: handler}
	go func() {
		<-t.Dying()
		server.Close()
	}()
	log.Info("Serving live chart on ", address)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func waitForSignal(t *tomb.Tomb) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	select {
	case s := <-signals:
		log.Info("Received ", s)
		t.Kill(nil)
	case <-t.Dying():
	}
	return nil
}

// checkConfigChanges stops the plotter when its config changes so systemd restarts it.
func checkConfigChanges(conf *config.Config, current *config.Plotter, args Args, t *tomb.Tomb) {
	load := func() (interface{}, error) {
		newConf, err := config.New(args.ConfigDir)
		if err != nil {
			return nil, err
		}
		return parseConfig(newConf, args)
	}
	onDiff := func(diff string, err error) {
		if err != nil {
			log.Error("error reloading config: ", err)
			return
		}
		log.Debug("Config diff: ", diff)
	}
	err := config.Watch(conf, current, load, onDiff)
	if errors.Is(err, config.ErrChanged) {
		log.Info("Config changed. Stopping to allow systemctl to restart service.")
		t.Kill(nil)
		return
	}
	if err != nil {
		log.Error("Not watching config for changes: ", err)
	}
}
