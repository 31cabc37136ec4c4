package acquire

import (
	"strconv"
	"time"

	"github.com/TheCacophonyProject/battery-tester/internal/config"
	"github.com/TheCacophonyProject/battery-tester/internal/metrics"
	"github.com/TheCacophonyProject/battery-tester/samplelog"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// sampleSink receives every sample after it has been written to the log file,
// with the time its line was received. Write must not block the serial loop.
type sampleSink interface {
	Write(received time.Time, s samplelog.Sample)
	Close()
}

// influxSink mirrors samples to InfluxDB using the batching write API, which
// sends in the background.
type influxSink struct {
	client      influxdb2.Client
	writeAPI    api.WriteAPI
	measurement string
	run         string
}

func newInfluxSink(conf config.Influx, run string) *influxSink {
	client := influxdb2.NewClient(conf.URL, conf.Token)
	writeAPI := client.WriteAPI(conf.Org, conf.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			metrics.InfluxErrors.Inc()
			log.Error("Error writing to InfluxDB: ", err)
		}
	}()
	return &influxSink{
		client:      client,
		writeAPI:    writeAPI,
		measurement: conf.Measurement,
		run:         run,
	}
}

func (s *influxSink) Write(received time.Time, sample samplelog.Sample) {
	s.writeAPI.WritePoint(samplePoint(s.measurement, s.run, received, sample))
}

func (s *influxSink) Close() {
	s.writeAPI.Flush()
	s.client.Close()
}

// samplePoint turns a sample into a point timestamped when it was received. The
// tester's clock starts with the tester, not with this run, so its time is only
// kept as the t_s field. Fields that are not numbers are left out.
func samplePoint(measurement, run string, received time.Time, sample samplelog.Sample) *write.Point {
	fields := map[string]interface{}{}
	values := map[string]string{
		"cycles":        sample.Cycles,
		"voltage_mv":    sample.Voltage,
		"current_ma":    sample.Current,
		"charge_as":     sample.Charge,
		"temperature_c": sample.Temperature,
	}
	for name, text := range values {
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			fields[name] = v
		}
	}
	fields["t_s"] = sample.Seconds
	return influxdb2.NewPoint(measurement, map[string]string{"run": run}, fields, received)
}
