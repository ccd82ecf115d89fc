// telemetry_logger records the dashboard's telemetry in InfluxDB.
package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	influxdb2 "github.com/influxdata/influxdb-client-go"
	"github.com/influxdata/influxdb-client-go/api"
)

// skipped are update keys that are not telemetry.
var skipped = map[string]bool{
	"skyplane": true,
	"logs":     true,
	"confirm":  true,
	"error":    true,
	"alert":    true,
	"alert_id": true,
}

func main() {
	// Create client
	server := os.Getenv("INFLUX_SERVER")
	if server == "" {
		server = "http://localhost:9999"
	}
	client := influxdb2.NewClient(server, os.Getenv("INFLUX_TOKEN"))
	defer client.Close()
	// Get non-blocking write client
	writeApi := client.WriteApi("w1xm", "dish.raw")
	defer writeApi.Close()
	// Get errors channel
	errorsCh := writeApi.Errors()
	// Create go proc for reading and logging errors
	go func() {
		for err := range errorsCh {
			log.Printf("write error: %v", err)
		}
	}()
	for {
		if err := logData(writeApi); err != nil {
			log.Print(err)
		}
		time.Sleep(1 * time.Second)
	}
}

// flatten turns a decoded update into point fields named by their path.
// The device sends numbers as strings, so anything that parses as one is
// stored as one.
func flatten(fields map[string]interface{}, v interface{}, prefix string) {
	switch v := v.(type) {
	case map[string]interface{}:
		for k, v := range v {
			if prefix == "" && skipped[k] {
				continue
			}
			flatten(fields, v, prefix+"."+k)
		}
	case []interface{}:
		for k, v := range v {
			flatten(fields, v, fmt.Sprintf("%s.%d", prefix, k))
		}
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			fields[prefix[1:]] = f
		} else {
			fields[prefix[1:]] = v
		}
	case nil:
	default:
		fields[prefix[1:]] = v
	}
}

// recorder drops updates that carry no newly applied snapshot, such as
// those sent for a log line or an alert.
type recorder struct {
	applied float64
}

// pointFields returns the fields to write for update, or nil.
func (r *recorder) pointFields(update interface{}) map[string]interface{} {
	fields := make(map[string]interface{})
	flatten(fields, update, "")
	applied, ok := fields["stats.Applied"].(float64)
	if !ok || applied == 0 || applied == r.applied {
		return nil
	}
	r.applied = applied
	return fields
}

func logData(writeApi api.WriteApi) error {
	url := os.Getenv("DASHBOARD_ADDRESS")
	if url == "" {
		url = "ws://localhost:8502/api/ws"
	}
	defer writeApi.Flush()
	var dialer websocket.Dialer
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	var r recorder
	for {
		var update interface{}
		if err := conn.ReadJSON(&update); err != nil {
			return err
		}
		fields := r.pointFields(update)
		if fields == nil {
			continue
		}

		p := influxdb2.NewPoint("dish.status",
			nil,
			fields,
			time.Now(),
		)
		// write asynchronously
		writeApi.WritePoint(p)
	}
}
