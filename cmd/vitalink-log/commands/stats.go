package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection instance.
type ConnectionStats struct {
	FirstSeen  time.Time
	LastSeen   time.Time
	Events     int
	Device     string
	DeviceName string
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Connections:       make(map[string]*ConnectionStats),
	}
}

func (s *Stats) record(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	// First non-empty identity wins, the values do not change mid-connection.
	if conn.Device == "" {
		conn.Device = event.Device
	}
	if conn.DeviceName == "" {
		conn.DeviceName = event.DeviceName
	}

	if event.Error != nil {
		s.Errors++
	}
}

// RunStats streams the log file once and prints aggregate statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := newStats()
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.record(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== VitaLink Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerGatt, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryChannel, log.CategoryState, log.CategoryObservation, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	printConnections(w, stats.Connections)

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func printConnections(w io.Writer, conns map[string]*ConnectionStats) {
	if len(conns) == 0 {
		return
	}

	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return conns[ids[i]].FirstSeen.Before(conns[ids[j]].FirstSeen)
	})

	fmt.Fprintln(w)
	for _, id := range ids {
		c := conns[id]
		duration := c.LastSeen.Sub(c.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(id), c.Events, duration)
		if c.Device != "" {
			name := c.Device
			if c.DeviceName != "" {
				name += " (" + c.DeviceName + ")"
			}
			fmt.Fprintf(w, "           Device: %s\n", name)
		}
	}
}
