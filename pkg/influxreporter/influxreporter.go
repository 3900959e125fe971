// Package influxreporter writes ETL run summaries to InfluxDB so runs can be
// graphed next to the warehouse data.
package influxreporter

import (
	"fmt"
	"path/filepath"
	"time"

	influxdb "github.com/influxdata/influxdb/client/v2"
	"k8s.io/klog"

	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/config"
	"github.com/Emriqurrizal/MyFinny-End-to-End-Data-Pipeline-Project-for-Personal-Financial-Analysis/pkg/etlrunner"
)

const RunMeasurement = "etl_run"

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

// pointWriter is the part of influxdb.Client the reporter needs.
type pointWriter interface {
	Write(bp influxdb.BatchPoints) error
}

type Reporter struct {
	client      pointWriter
	database    string
	measurement string
}

func New(client pointWriter, database, measurement string) *Reporter {
	return &Reporter{client: client, database: database, measurement: measurement}
}

func CreateInfluxClient(secrets config.InfluxSecrets) (influxdb.Client, error) {
	return influxdb.NewHTTPClient(influxdb.HTTPConfig{
		Addr:     secrets.InfluxEndpoint,
		Username: secrets.InfluxUsername,
		Password: secrets.InfluxPassword,
	})
}

// NewFromConfig builds a reporter from the current config. It returns nil
// when no influx endpoint is configured, reporting is then disabled.
func NewFromConfig() (*Reporter, influxdb.Client, error) {
	secrets := config.CurrentInfluxSecrets()
	if secrets.InfluxEndpoint == "" {
		return nil, nil, nil
	}

	client, err := CreateInfluxClient(*secrets)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create influx client: %w", err)
	}

	influxConfig := config.CurrentInfluxConfig()
	if err := CreateDatabase(client, influxConfig.Database); err != nil {
		client.Close()
		return nil, nil, err
	}

	return New(client, influxConfig.Database, influxConfig.Measurement), client, nil
}

// CreateDatabase creates the database if needed. CREATE DATABASE is a no-op
// for an existing database.
func CreateDatabase(client influxdb.Client, name string) error {
	q := influxdb.NewQuery(fmt.Sprintf("CREATE DATABASE %q", name), "", "")

	response, err := client.Query(q)
	if err != nil {
		return fmt.Errorf("failed to create influx database %s: %w", name, err)
	}
	if response.Error() != nil {
		return fmt.Errorf("failed to create influx database %s: %w", name, response.Error())
	}

	return nil
}

func (r *Reporter) Report(summary *etlrunner.Summary) error {
	bp, err := r.batchPoints(summary)
	if err != nil {
		return err
	}

	if err := r.client.Write(bp); err != nil {
		return fmt.Errorf("failed to write run summary to influx: %w", err)
	}

	klog.V(2).Infof("Wrote %d points to influx database %s", len(bp.Points()), r.database)
	return nil
}

func (r *Reporter) batchPoints(summary *etlrunner.Summary) (influxdb.BatchPoints, error) {
	bp, err := influxdb.NewBatchPoints(influxdb.BatchPointsConfig{
		Database:  r.database,
		Precision: "s",
	})
	if err != nil {
		return nil, err
	}

	timestamp := summary.StartedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	results := make([]etlrunner.FileResult, 0, len(summary.Succeeded)+len(summary.Failed))
	results = append(results, summary.Succeeded...)
	results = append(results, summary.Failed...)

	for _, result := range results {
		tags := map[string]string{
			"file":   filepath.Base(result.File),
			"status": statusSucceeded,
		}
		if !result.Succeeded() {
			tags["status"] = statusFailed
			tags["stage"] = string(result.Stage)
		}

		fields := map[string]interface{}{
			"records":          result.Records,
			"facts":            result.Facts,
			"dropped":          result.Dropped,
			"dates":            result.Dates,
			"duration_seconds": result.Duration.Seconds(),
		}

		pt, err := influxdb.NewPoint(r.measurement, tags, fields, timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to build point for %s: %w", result.File, err)
		}
		bp.AddPoint(pt)
	}

	pt, err := influxdb.NewPoint(RunMeasurement, map[string]string{}, map[string]interface{}{
		"found":            summary.Found,
		"succeeded":        len(summary.Succeeded),
		"failed":           len(summary.Failed),
		"duration_seconds": summary.Duration.Seconds(),
	}, timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to build run point: %w", err)
	}
	bp.AddPoint(pt)

	return bp, nil
}
