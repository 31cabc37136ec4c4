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

package config

import (
	"os"
	"path/filepath"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
)

const (
	DefaultConfigDir = goconfig.DefaultConfigDir
	ConfigFileName   = goconfig.ConfigFileName

	LoggerKey  = "battery-tester-logger"
	PlotterKey = "battery-tester-plotter"
	InfluxKey  = "battery-tester-influx"
)

// ConfigArgs is embedded in the go-arg structs of each subcommand.
type ConfigArgs struct {
	ConfigDir string `arg:"-c,--config-dir" default:"/etc/cacophony" help:"Configuration folder"`
}

// Config is the shared cacophony config file. The battery tester sections are
// read from it with go-config, which holds the config lock while reading.
type Config struct {
	conf *goconfig.Config
	path string
}

// New loads the config file from dir. A missing file gives an empty config so
// every section falls back to its defaults.
func New(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	c := &Config{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return c, nil
	} else if err != nil {
		return nil, err
	}
	conf, err := goconfig.New(dir)
	if err != nil {
		return nil, err
	}
	c.conf = conf
	return c, nil
}

func (c *Config) Path() string {
	return c.path
}

// Unmarshal decodes a section into raw. Keys missing from the file leave raw untouched.
func (c *Config) Unmarshal(key string, raw interface{}) error {
	if c.conf == nil {
		return nil
	}
	return c.conf.Unmarshal(key, raw)
}

type Logger struct {
	Port           string        `mapstructure:"port"`
	Baud           int           `mapstructure:"baud"`
	Dir            string        `mapstructure:"dir"`
	DrainQuiet     time.Duration `mapstructure:"drain-quiet"`
	DrainMax       time.Duration `mapstructure:"drain-max"`
	Fsync          bool          `mapstructure:"fsync"`
	StatusInterval int           `mapstructure:"status-interval"`
	MetricsAddress string        `mapstructure:"metrics-address"`
}

func DefaultLogger() Logger {
	return Logger{
		Port:           "/dev/ttyACM0",
		Baud:           9600,
		Dir:            ".",
		DrainQuiet:     100 * time.Millisecond,
		DrainMax:       2 * time.Second,
		StatusInterval: 60,
	}
}

type Plotter struct {
	// Dir is searched for log files. Empty means the folder of the plotter executable.
	Dir         string        `mapstructure:"dir"`
	Output      string        `mapstructure:"output"`
	Interval    time.Duration `mapstructure:"interval"`
	StartupWait time.Duration `mapstructure:"startup-wait"`
	HTTPAddress string        `mapstructure:"http-address"`
	Width       int           `mapstructure:"width"`
	Height      int           `mapstructure:"height"`
}

func DefaultPlotter() Plotter {
	return Plotter{
		Output:   "battery-tester.png",
		Interval: time.Second,
		Width:    1200,
		Height:   800,
	}
}

type Influx struct {
	Enable      bool   `mapstructure:"enable"`
	URL         string `mapstructure:"url"`
	Token       string `mapstructure:"token"`
	Org         string `mapstructure:"org"`
	Bucket      string `mapstructure:"bucket"`
	Measurement string `mapstructure:"measurement"`
}

func DefaultInflux() Influx {
	return Influx{
		URL:         "http://localhost:8086",
		Measurement: "battery_tester",
	}
}
