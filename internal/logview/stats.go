package logview

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/mash-protocol/mash-expose/pkg/log"
)

// Stats holds aggregate statistics about a log.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	EventsByKind      map[log.MessageKind]int
	Sessions          map[string]*SessionStats
	Commands          map[string]*CommandStats
	Errors            int
	Start, End        time.Time
}

// SessionStats summarizes one controller session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Remote    string
}

// CommandStats summarizes the replies to one command.
type CommandStats struct {
	Replies      int
	ErrorReplies int
	TotalLatency time.Duration
	MaxLatency   time.Duration
}

// MeanLatency is the average reply latency.
func (c *CommandStats) MeanLatency() time.Duration {
	if c.Replies == 0 {
		return 0
	}
	return c.TotalLatency / time.Duration(c.Replies)
}

// Collect reads r to the end and aggregates its events.
func Collect(r *log.Reader) (*Stats, error) {
	s := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		EventsByKind:      make(map[log.MessageKind]int),
		Sessions:          make(map[string]*SessionStats),
		Commands:          make(map[string]*CommandStats),
	}
	for event, err := range r.All() {
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		s.add(event)
	}
	return s, nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}

	if event.SessionID != "" {
		sess, ok := s.Sessions[event.SessionID]
		if !ok {
			sess = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
			s.Sessions[event.SessionID] = sess
		}
		sess.Events++
		if event.Timestamp.After(sess.LastSeen) {
			sess.LastSeen = event.Timestamp
		}
		if sess.Remote == "" {
			sess.Remote = event.RemoteAddr
		}
	}

	if m := event.Message; m != nil {
		s.EventsByKind[m.Kind]++
		if (m.Kind == log.KindResult || m.Kind == log.KindErrorReply) && m.Command != "" {
			cmd, ok := s.Commands[m.Command]
			if !ok {
				cmd = &CommandStats{}
				s.Commands[m.Command] = cmd
			}
			cmd.Replies++
			if m.Kind == log.KindErrorReply {
				cmd.ErrorReplies++
			}
			if m.Latency != nil {
				cmd.TotalLatency += *m.Latency
				cmd.MaxLatency = max(cmd.MaxLatency, *m.Latency)
			}
		}
	}
	if event.Error != nil {
		s.Errors++
	}
}

// Print writes the statistics report.
func (s *Stats) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Controller Traffic Statistics ===")
	fmt.Fprintln(w)

	if s.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", s.End.Sub(s.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", s.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, c := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if n := s.EventsByCategory[c]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", c.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, d := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if n := s.EventsByDirection[d]; n > 0 {
			fmt.Fprintf(w, "  %-14s %d\n", d.String()+":", n)
		}
	}
	fmt.Fprintln(w)

	if len(s.EventsByKind) > 0 {
		fmt.Fprintln(w, "Messages by Kind:")
		for _, k := range []log.MessageKind{log.KindRequest, log.KindResult, log.KindErrorReply, log.KindEvent, log.KindServerInfo} {
			if n := s.EventsByKind[k]; n > 0 {
				fmt.Fprintf(w, "  %-14s %d\n", k.String()+":", n)
			}
		}
		fmt.Fprintln(w)
	}

	if len(s.Commands) > 0 {
		fmt.Fprintln(w, "Commands:")
		names := make([]string, 0, len(s.Commands))
		for name := range s.Commands {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			c := s.Commands[name]
			fmt.Fprintf(w, "  %-24s %d replies, %d errors, mean %s, max %s\n",
				name, c.Replies, c.ErrorReplies, formatDuration(c.MeanLatency()), formatDuration(c.MaxLatency))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Sessions: %d\n", len(s.Sessions))
	if len(s.Sessions) > 0 {
		ids := make([]string, 0, len(s.Sessions))
		for id := range s.Sessions {
			ids = append(ids, id)
		}
		slices.SortFunc(ids, func(a, b string) int {
			return s.Sessions[a].FirstSeen.Compare(s.Sessions[b].FirstSeen)
		})
		fmt.Fprintln(w)
		for _, id := range ids {
			sess := s.Sessions[id]
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n",
				shortID(id), sess.Events, sess.LastSeen.Sub(sess.FirstSeen).Round(time.Millisecond))
			if sess.Remote != "" {
				fmt.Fprintf(w, "             Remote: %s\n", sess.Remote)
			}
		}
	}

	if s.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", s.Errors)
	}
}
