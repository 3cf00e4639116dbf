package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Exchanges         map[string]*ExchangeStats
	Updates           int
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	DeviceID  string
	Exchanges int
	Updates   int
}

// ExchangeStats holds statistics for one API object.
type ExchangeStats struct {
	Requests  int
	Responses int
	Retries   int
	TotalRTT  time.Duration
	RTTCount  int
	MaxRTT    time.Duration
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
		Exchanges:         make(map[string]*ExchangeStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		// Track time range
		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		// Track connection stats
		conn, ok := stats.Connections[event.ConnectionID]
		if !ok {
			conn = &ConnectionStats{
				FirstSeen: event.Timestamp,
				LastSeen:  event.Timestamp,
			}
			stats.Connections[event.ConnectionID] = conn
		}
		conn.Events++
		if event.Timestamp.After(conn.LastSeen) {
			conn.LastSeen = event.Timestamp
		}
		if event.DeviceID != "" && conn.DeviceID == "" {
			conn.DeviceID = event.DeviceID
		}

		// Track per-object exchange stats
		if event.Exchange != nil {
			conn.Exchanges++
			ex, ok := stats.Exchanges[event.Exchange.Object]
			if !ok {
				ex = &ExchangeStats{}
				stats.Exchanges[event.Exchange.Object] = ex
			}
			if event.Direction == log.DirectionOut {
				ex.Requests++
				if event.Exchange.Attempt > 1 {
					ex.Retries++
				}
			} else {
				ex.Responses++
			}
			if event.Exchange.RTT != nil {
				ex.TotalRTT += *event.Exchange.RTT
				ex.RTTCount++
				if *event.Exchange.RTT > ex.MaxRTT {
					ex.MaxRTT = *event.Exchange.RTT
				}
			}
		}

		// Count state pushes
		if event.Update != nil {
			stats.Updates++
			conn.Updates++
		}

		// Count errors
		if event.Error != nil {
			stats.Errors++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== LifeSmart Protocol Log Statistics ===")
	fmt.Fprintln(w)

	// Time range
	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	// Total events
	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	// Events by layer
	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerClient} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by category
	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Events by direction
	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	// Exchanges by object
	if len(stats.Exchanges) > 0 {
		fmt.Fprintln(w, "Exchanges by Object:")
		objects := make([]string, 0, len(stats.Exchanges))
		for object := range stats.Exchanges {
			objects = append(objects, object)
		}
		sort.Strings(objects)
		for _, object := range objects {
			ex := stats.Exchanges[object]
			fmt.Fprintf(w, "  %-12s %d requests, %d responses", object+":", ex.Requests, ex.Responses)
			if ex.Retries > 0 {
				fmt.Fprintf(w, ", %d retried", ex.Retries)
			}
			fmt.Fprintln(w)
			if ex.RTTCount > 0 {
				avg := ex.TotalRTT / time.Duration(ex.RTTCount)
				fmt.Fprintf(w, "           RTT avg %s, max %s\n", formatDuration(avg), formatDuration(ex.MaxRTT))
			}
		}
		fmt.Fprintln(w)
	}

	// State pushes
	if stats.Updates > 0 {
		fmt.Fprintf(w, "State Pushes: %d\n", stats.Updates)
		fmt.Fprintln(w)
	}

	// Connections
	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		// Sort by first seen time
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(c.id), c.stats.Events, duration)
			if c.stats.DeviceID != "" {
				fmt.Fprintf(w, "           Device: %s\n", c.stats.DeviceID)
			}
			if c.stats.Exchanges > 0 {
				fmt.Fprintf(w, "           Exchanges: %d\n", c.stats.Exchanges)
			}
			if c.stats.Updates > 0 {
				fmt.Fprintf(w, "           Updates: %d\n", c.stats.Updates)
			}
		}
	}

	// Errors
	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
