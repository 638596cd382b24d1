// Package interactive provides the interactive shell of mash-expose: a
// console to browse the fleet, try reads, writes and commands, and check
// which capabilities a cluster instance exposes.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/connection"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
	"github.com/mash-protocol/mash-expose/pkg/render"
)

// Catalog is the part of the catalog the shell uses.
type Catalog interface {
	Cluster(id uint32) (*catalog.Cluster, bool)
	ClusterByName(name string) (*catalog.Cluster, bool)
	DeviceTypeName(id uint32) string
}

// Renderer resolves capabilities and renders documents.
type Renderer interface {
	Document(ctx context.Context, id devclient.NodeID, info render.DocumentInfo) ([]byte, error)
	Resolve(ctx context.Context, node devclient.NodeID, endpoint uint16, cluster uint32) (*render.Live, error)
	EndpointName(ep *devclient.Endpoint) string
}

// Shell is an interactive console on a device client.
type Shell struct {
	client   devclient.Client
	catalog  Catalog
	renderer Renderer
	out      io.Writer

	mu     sync.Mutex
	events *devclient.Subscription
}

// New creates a shell writing to out.
func New(client devclient.Client, cat Catalog, r Renderer, out io.Writer) *Shell {
	return &Shell{client: client, catalog: cat, renderer: r, out: out}
}

// Run reads commands from a readline prompt until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "expose> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	defer s.stopEvents()

	s.out = rl.Stdout()
	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return nil
		}
		if s.Exec(ctx, line) {
			return nil
		}
	}
}

// Exec runs one command line and reports whether the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "nodes", "ls":
		s.cmdNodes(ctx)
	case "tree", "t":
		s.cmdTree(ctx, args)
	case "read", "r":
		s.cmdRead(ctx, args)
	case "write", "w":
		s.cmdWrite(ctx, args)
	case "invoke", "call":
		s.cmdInvoke(ctx, args)
	case "caps":
		s.cmdCaps(ctx, args)
	case "doc":
		s.cmdDoc(ctx, args)
	case "events":
		s.cmdEvents(ctx, args)
	case "status":
		s.cmdStatus()
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
mash-expose shell commands:
  Fleet:
    nodes                                  - List known nodes
    tree <node>                            - Show endpoints and clusters of a node
    status                                 - Show controller link state

  Elements:
    read <node>/<ep>/<cluster>/<attr>          - Read an attribute
    write <node>/<ep>/<cluster>/<attr> <value> - Write an attribute
    invoke <node>/<ep>/<cluster>/<cmd> [json]  - Invoke a command
    caps <node>/<ep>/<cluster>                 - Show the live capability set

  Documents:
    doc <node>                             - Print the OpenAPI document
    events on|off                          - Print node events as they arrive

  General:
    help                                   - Show this help
    quit                                   - Exit the shell

  Clusters are given by name, e.g. 1/1/OnOff/OnTime`)
}

func (s *Shell) cmdNodes(ctx context.Context) {
	tree, err := s.client.NodeTree(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Reading nodes failed: %v\n", err)
		return
	}
	if len(tree) == 0 {
		fmt.Fprintln(s.out, "No nodes known")
		return
	}

	fmt.Fprintf(s.out, "\nNodes (%d):\n", len(tree))
	fmt.Fprintln(s.out, "-------------------------------------------")
	for _, id := range tree.NodeIDs() {
		node := tree[id]
		status := "available"
		if !node.Available {
			status = "unavailable"
		}
		fmt.Fprintf(s.out, "  Node %d (%s)\n", id, status)
		for _, epID := range node.EndpointIDs() {
			ep := node.Endpoints[epID]
			fmt.Fprintf(s.out, "      %d - %s\n", epID, s.renderer.EndpointName(ep))
		}
	}
}

func (s *Shell) cmdTree(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: tree <node>")
		return
	}
	id, err := devclient.ParseNodeID(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid node: %s\n", args[0])
		return
	}
	tree, err := s.client.NodeTree(ctx)
	if err != nil {
		fmt.Fprintf(s.out, "Reading nodes failed: %v\n", err)
		return
	}
	node, ok := tree.Node(id)
	if !ok {
		fmt.Fprintf(s.out, "Node %d not found\n", id)
		return
	}

	for _, epID := range node.EndpointIDs() {
		ep := node.Endpoints[epID]
		fmt.Fprintf(s.out, "Endpoint %d - %s\n", epID, s.renderer.EndpointName(ep))
		for _, clID := range ep.ClusterIDs() {
			snap := ep.Clusters[clID]
			name := fmt.Sprintf("0x%04X (unknown)", clID)
			if cl, ok := s.catalog.Cluster(clID); ok {
				name = cl.Name
			}
			fmt.Fprintf(s.out, "  %-24s features=0x%X attributes=%d commands=%d events=%d\n",
				name, snap.FeatureMap, len(snap.AttributeIDs), len(snap.CommandIDs), len(snap.EventIDs))
		}
	}
}

// elementPath is a parsed <node>/<ep>/<cluster>[/<element>] argument.
type elementPath struct {
	node     devclient.NodeID
	endpoint uint16
	cluster  *catalog.Cluster
	element  string
}

func (s *Shell) parsePath(arg string, needElement bool) (*elementPath, error) {
	parts := strings.Split(arg, "/")
	want := 3
	if needElement {
		want = 4
	}
	if len(parts) != want {
		return nil, fmt.Errorf("expected %d path segments, got %d", want, len(parts))
	}
	node, err := devclient.ParseNodeID(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid node %q", parts[0])
	}
	ep, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q", parts[1])
	}
	cl, ok := s.catalog.ClusterByName(parts[2])
	if !ok {
		return nil, fmt.Errorf("unknown cluster %q", parts[2])
	}
	p := &elementPath{node: node, endpoint: uint16(ep), cluster: cl}
	if needElement {
		p.element = parts[3]
	}
	return p, nil
}

func (s *Shell) cmdRead(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: read <node>/<ep>/<cluster>/<attr>")
		fmt.Fprintln(s.out, "  Example: read 1/1/LevelControl/CurrentLevel")
		return
	}
	p, err := s.parsePath(args[0], true)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid path: %v\n", err)
		return
	}
	attr, ok := p.cluster.AttributeByName(p.element)
	if !ok {
		fmt.Fprintf(s.out, "Unknown attribute %s of %s\n", p.element, p.cluster.Name)
		return
	}

	v, err := s.client.ReadAttribute(ctx, p.node, p.endpoint, p.cluster.ID, attr.ID)
	if err != nil {
		fmt.Fprintf(s.out, "Read failed: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s = %v\n", attr.Name, v)
}

func (s *Shell) cmdWrite(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: write <node>/<ep>/<cluster>/<attr> <value>")
		fmt.Fprintln(s.out, "  Example: write 1/1/OnOff/OnTime 300")
		return
	}
	p, err := s.parsePath(args[0], true)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid path: %v\n", err)
		return
	}
	attr, ok := p.cluster.AttributeByName(p.element)
	if !ok {
		fmt.Fprintf(s.out, "Unknown attribute %s of %s\n", p.element, p.cluster.Name)
		return
	}

	value := parseValue(strings.Join(args[1:], " "))
	if _, err := s.client.WriteAttribute(ctx, p.node, p.endpoint, p.cluster.ID, attr.ID, value); err != nil {
		fmt.Fprintf(s.out, "Write failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "OK")
}

// parseValue reads an integer, float, bool or string, in that order.
func parseValue(s string) any {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	if s == "null" {
		return nil
	}
	return strings.Trim(s, "\"'")
}

func (s *Shell) cmdInvoke(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: invoke <node>/<ep>/<cluster>/<cmd> [json]")
		fmt.Fprintln(s.out, `  Example: invoke 1/1/Identify/Identify {"IdentifyTime":10}`)
		return
	}
	p, err := s.parsePath(args[0], true)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid path: %v\n", err)
		return
	}
	cmd, ok := p.cluster.CommandByName(p.element)
	if !ok {
		fmt.Fprintf(s.out, "Unknown command %s of %s\n", p.element, p.cluster.Name)
		return
	}

	var payload map[string]any
	if len(args) > 1 {
		if err := json.Unmarshal([]byte(strings.Join(args[1:], " ")), &payload); err != nil {
			fmt.Fprintf(s.out, "Invalid payload: %v\n", err)
			return
		}
	}

	res, err := s.client.InvokeCommand(ctx, p.node, p.endpoint, p.cluster.ID, cmd.Name, payload)
	if err != nil {
		fmt.Fprintf(s.out, "Invoke failed: %v\n", err)
		return
	}
	if res == nil {
		fmt.Fprintln(s.out, "OK")
		return
	}
	fmt.Fprintf(s.out, "%s -> %v\n", cmd.Name, res)
}

func (s *Shell) cmdCaps(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: caps <node>/<ep>/<cluster>")
		return
	}
	p, err := s.parsePath(args[0], false)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid path: %v\n", err)
		return
	}
	live, err := s.renderer.Resolve(ctx, p.node, p.endpoint, p.cluster.ID)
	if err != nil {
		fmt.Fprintf(s.out, "Resolve failed: %v\n", err)
		return
	}

	fmt.Fprintf(s.out, "\n%s on node %d endpoint %d (features 0x%X)\n",
		p.cluster.Name, p.node, p.endpoint, live.Snapshot.FeatureMap)
	fmt.Fprintln(s.out, "-------------------------------------------")
	for _, a := range p.cluster.Attributes() {
		if !live.HasAttribute(a.ID) {
			continue
		}
		fmt.Fprintf(s.out, "  attribute %-28s %s\n", a.Name, accessLabel(live.CanRead(a.ID), live.CanWrite(a.ID)))
	}
	for _, c := range p.cluster.Commands() {
		state := "not implemented"
		if live.CanInvoke(c.ID) {
			state = "invokable"
		}
		fmt.Fprintf(s.out, "  command   %-28s %s\n", c.Name, state)
	}
	fmt.Fprintf(s.out, "  excluded: %s\n", live.Set)
}

func accessLabel(read, write bool) string {
	switch {
	case read && write:
		return "read/write"
	case read:
		return "read"
	case write:
		return "write"
	default:
		return "excluded"
	}
}

func (s *Shell) cmdDoc(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: doc <node>")
		return
	}
	id, err := devclient.ParseNodeID(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid node: %s\n", args[0])
		return
	}
	doc, err := s.renderer.Document(ctx, id, render.DocumentInfo{})
	if err != nil {
		fmt.Fprintf(s.out, "Rendering failed: %v\n", err)
		return
	}
	_, _ = s.out.Write(doc)
}

func (s *Shell) cmdEvents(ctx context.Context, args []string) {
	if len(args) < 1 || (args[0] != "on" && args[0] != "off") {
		fmt.Fprintln(s.out, "Usage: events on|off")
		return
	}
	if args[0] == "off" {
		s.stopEvents()
		fmt.Fprintln(s.out, "Event display off")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events != nil {
		fmt.Fprintln(s.out, "Event display already on")
		return
	}
	sub, err := s.client.SubscribeEvents(ctx, s.printEvent)
	if err != nil {
		fmt.Fprintf(s.out, "Subscribing failed: %v\n", err)
		return
	}
	s.events = sub
	fmt.Fprintln(s.out, "Event display on")
}

func (s *Shell) stopEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events != nil {
		_ = s.events.Close()
		s.events = nil
	}
}

func (s *Shell) printEvent(ev devclient.Event) {
	ts := ev.Time.Format(time.TimeOnly)
	switch ev.Type {
	case devclient.EventAttributeUpdated:
		fmt.Fprintf(s.out, "[%s] node %d: %s changed to %v\n", ts, ev.Node,
			s.attributeLabel(ev.Cluster, ev.Attribute), ev.Value)
	case devclient.EventNodeEvent:
		fmt.Fprintf(s.out, "[%s] node %d: event %s %v\n", ts, ev.Node,
			s.eventLabel(ev.Cluster, ev.EventID), ev.Value)
	default:
		fmt.Fprintf(s.out, "[%s] node %d: %s\n", ts, ev.Node, ev.Type)
	}
}

func (s *Shell) attributeLabel(clusterID, attrID uint32) string {
	if cl, ok := s.catalog.Cluster(clusterID); ok {
		if a, ok := cl.Attribute(attrID); ok {
			return cl.Name + "." + a.Name
		}
		return fmt.Sprintf("%s.0x%04X", cl.Name, attrID)
	}
	return fmt.Sprintf("0x%04X.0x%04X", clusterID, attrID)
}

func (s *Shell) eventLabel(clusterID, eventID uint32) string {
	if cl, ok := s.catalog.Cluster(clusterID); ok {
		if e, ok := cl.Event(eventID); ok {
			return cl.Name + "." + e.Name
		}
	}
	return fmt.Sprintf("0x%04X.0x%02X", clusterID, eventID)
}

// stateReporter is implemented by clients with a controller link.
type stateReporter interface {
	State() connection.State
}

func (s *Shell) cmdStatus() {
	fmt.Fprintln(s.out, "\nController Status")
	fmt.Fprintln(s.out, "-------------------------------------------")
	if sr, ok := s.client.(stateReporter); ok {
		fmt.Fprintf(s.out, "  Link:   %s\n", sr.State())
	} else {
		fmt.Fprintln(s.out, "  Link:   in-memory fleet")
	}
	s.mu.Lock()
	events := s.events != nil
	s.mu.Unlock()
	fmt.Fprintf(s.out, "  Events: %t\n", events)
}
