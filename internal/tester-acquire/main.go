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

package acquire

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/config"
	"github.com/TheCacophonyProject/battery-tester/internal/logging"
	"github.com/TheCacophonyProject/battery-tester/internal/metrics"
	"github.com/TheCacophonyProject/battery-tester/serialhelper"
	arg "github.com/alexflint/go-arg"
)

var (
	version = "<not set>"
	log     = logging.NewLogger("info")
	nowFn   = time.Now
)

type Args struct {
	Port           string `arg:"-p,--port" help:"Serial port the battery tester is connected to"`
	Baud           int    `arg:"-b,--baud" help:"Serial baud rate"`
	Dir            string `arg:"-d,--dir" help:"Folder to write the log file to"`
	Fsync          bool   `arg:"--fsync" help:"Sync the log file to disk after every sample"`
	MetricsAddress string `arg:"--metrics-address" help:"Address to serve prometheus metrics on, e.g. :9101"`
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

type loggerConfig struct {
	config.Logger
	Influx config.Influx
}

func parseConfig(conf *config.Config, args Args) (*loggerConfig, error) {
	l := config.DefaultLogger()
	if err := conf.Unmarshal(config.LoggerKey, &l); err != nil {
		return nil, err
	}
	influx := config.DefaultInflux()
	if err := conf.Unmarshal(config.InfluxKey, &influx); err != nil {
		return nil, err
	}

	if args.Port != "" {
		l.Port = args.Port
	}
	if args.Baud != 0 {
		l.Baud = args.Baud
	}
	if args.Dir != "" {
		l.Dir = args.Dir
	}
	if args.Fsync {
		l.Fsync = true
	}
	if args.MetricsAddress != "" {
		l.MetricsAddress = args.MetricsAddress
	}
	return &loggerConfig{Logger: l, Influx: influx}, nil
}

func Run(inputArgs []string, ver string) error {
	version = ver
	args, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}
	log = logging.NewLogger(args.LogLevel)
	serialhelper.SetLogger(log)

	log.Infof("Running version: %s", version)

	conf, err := config.New(args.ConfigDir)
	if err != nil {
		return err
	}
	lc, err := parseConfig(conf, args)
	if err != nil {
		return err
	}
	go checkConfigChanges(conf, lc, args)

	if lc.MetricsAddress != "" {
		go func() {
			log.Error("Metrics server stopped: ", metrics.Serve(lc.MetricsAddress))
		}()
	}

	log.Infof("Opening %s at %d baud", lc.Port, lc.Baud)
	port, err := serialhelper.Open(serialhelper.Config{
		Name:        lc.Port,
		Baud:        lc.Baud,
		ReadTimeout: lc.DrainQuiet,
		LockRetries: 3,
		LockWait:    5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer port.Close()

	start := nowFn()
	logFile, err := CreateLogFile(lc.Dir, start, lc.Fsync)
	if err != nil {
		return err
	}
	defer logFile.Close()
	log.Info("Logging to ", logFile.Path())

	var sink sampleSink
	if lc.Influx.Enable {
		run := strings.TrimSuffix(filepath.Base(logFile.Path()), filepath.Ext(logFile.Path()))
		log.Infof("Mirroring samples to InfluxDB at %s", lc.Influx.URL)
		influx := newInfluxSink(lc.Influx, run)
		defer influx.Close()
		sink = influx
	}

	rec := newRecorder(port, logFile, sink, lc.StatusInterval, lc.DrainMax)

	log.Info("Clearing stale data from the serial port")
	cleared, err := rec.drain()
	if err != nil {
		return fmt.Errorf("error reading from %s: %w", lc.Port, err)
	}
	log.Infof("Cleared %d lines", cleared)

	log.Info("Recording data")
	if err := rec.record(); err != nil {
		return fmt.Errorf("stopped recording to %s: %w", logFile.Path(), err)
	}
	return nil
}

// checkConfigChanges exits when the config file changes so systemd restarts the
// logger with the new settings. The restarted logger creates a new log file.
func checkConfigChanges(conf *config.Config, current *loggerConfig, args Args) {
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
		log.Info("Config changed. Exiting to allow systemctl to restart service.")
		os.Exit(0)
	}
	if err != nil {
		log.Error("Not watching config for changes: ", err)
	}
}
