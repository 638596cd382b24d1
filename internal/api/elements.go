package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mash-protocol/mash-expose/pkg/catalog"
	"github.com/mash-protocol/mash-expose/pkg/devclient"
)

// maxBodySize bounds request bodies of writes and commands.
const maxBodySize = 1 << 20

// target is a cluster instance addressed by a request path.
type target struct {
	node     devclient.NodeID
	endpoint uint16
	cluster  *catalog.Cluster
	instance uint32
	snapshot *devclient.ClusterSnapshot
}

// locate validates node, endpoint and cluster of the request path against
// the live node tree. It writes the error response and returns false when
// any of them is unknown.
func (s *Server) locate(w http.ResponseWriter, r *http.Request) (*target, bool) {
	nodeID, err := devclient.ParseNodeID(chi.URLParam(r, "node"))
	if err != nil {
		writeBadRequest(w, "invalid node id")
		return nil, false
	}
	epID, err := strconv.ParseUint(chi.URLParam(r, "endpoint"), 10, 16)
	if err != nil {
		writeBadRequest(w, "invalid endpoint id")
		return nil, false
	}

	tree, err := s.client.NodeTree(r.Context())
	if err != nil {
		s.writeBackendError(w, "reading node tree", err)
		return nil, false
	}
	node, ok := tree.Node(nodeID)
	if !ok {
		writeNotFound(w, fmt.Sprintf("node %d not found", nodeID))
		return nil, false
	}
	ep, ok := node.Endpoint(uint16(epID))
	if !ok {
		writeNotFound(w, fmt.Sprintf("endpoint %d not found", epID))
		return nil, false
	}
	name := chi.URLParam(r, "cluster")
	cl, ok := s.catalog.ClusterByName(name)
	if !ok {
		writeNotFound(w, fmt.Sprintf("cluster %s not found", name))
		return nil, false
	}
	instance, snap, ok := ep.ClusterOfType(cl.ID)
	if !ok {
		writeNotFound(w, fmt.Sprintf("cluster %s not found", name))
		return nil, false
	}

	s.annotate(r, nodeID, uint16(epID), cl.Name)
	return &target{node: nodeID, endpoint: uint16(epID), cluster: cl, instance: instance, snapshot: snap}, true
}

func (s *Server) annotate(r *http.Request, node devclient.NodeID, endpoint uint16, cluster string) {
	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.Int64("mash.node", int64(node)),
		attribute.Int("mash.endpoint", int(endpoint)),
		attribute.String("mash.cluster", cluster),
	)
}

// lookupAttribute resolves the attribute of the request path and checks the
// live capability set for a read or a write.
func (s *Server) lookupAttribute(w http.ResponseWriter, r *http.Request, t *target, write bool) (*catalog.AttributeMetadata, bool) {
	name := chi.URLParam(r, "attribute")
	meta, ok := t.cluster.AttributeByName(name)
	if !ok {
		writeNotFound(w, fmt.Sprintf("attribute %s not found", name))
		return nil, false
	}

	live, err := s.renderer.Resolve(r.Context(), t.node, t.endpoint, t.instance)
	if err != nil {
		s.writeBackendError(w, "resolving capabilities", err)
		return nil, false
	}
	if !live.HasAttribute(meta.ID) {
		writeNotFound(w, fmt.Sprintf("attribute %s not found", meta.Name))
		return nil, false
	}
	if write && !live.CanWrite(meta.ID) {
		writeMethodNotAllowed(w, fmt.Sprintf("attribute %s is not writable", meta.Name))
		return nil, false
	}
	if !write && !live.CanRead(meta.ID) {
		writeMethodNotAllowed(w, fmt.Sprintf("attribute %s is not readable", meta.Name))
		return nil, false
	}
	return meta, true
}

func (s *Server) handleReadAttribute(w http.ResponseWriter, r *http.Request) {
	t, ok := s.locate(w, r)
	if !ok {
		return
	}
	meta, ok := s.lookupAttribute(w, r, t, false)
	if !ok {
		return
	}

	v, err := s.client.ReadAttribute(r.Context(), t.node, t.endpoint, t.instance, meta.ID)
	if err != nil {
		s.logger.Debug("read failed", "node", t.node, "endpoint", t.endpoint,
			"cluster", t.cluster.Name, "attribute", meta.Name, "error", err)
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{meta.Name: v})
}

func (s *Server) handleWriteAttribute(w http.ResponseWriter, r *http.Request) {
	t, ok := s.locate(w, r)
	if !ok {
		return
	}

	meta, ok := s.lookupAttribute(w, r, t, true)
	if !ok {
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if len(body) == 0 {
		writeBadRequest(w, "missing POST body")
		return
	}
	var req map[string]json.RawMessage
	if err := json.Unmarshal(body, &req); err != nil || req == nil {
		writeBadRequest(w, "malformed json")
		return
	}
	raw, ok := req[meta.Name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		writeBadRequest(w, "missing attribute value")
		return
	}
	value, err := decodeValue(raw)
	if err != nil {
		writeBadRequest(w, "malformed json")
		return
	}

	res, err := s.client.WriteAttribute(r.Context(), t.node, t.endpoint, t.instance, meta.ID, value)
	if err != nil {
		s.logger.Debug("write failed", "node", t.node, "endpoint", t.endpoint,
			"cluster", t.cluster.Name, "attribute", meta.Name, "error", err)
		s.writeOperationError(w, err)
		return
	}
	s.logger.Info("attribute written", "node", t.node, "endpoint", t.endpoint,
		"cluster", t.cluster.Name, "attribute", meta.Name)
	writeJSON(w, http.StatusOK, map[string]any{meta.Name: res})
}

func (s *Server) handleInvokeCommand(w http.ResponseWriter, r *http.Request) {
	t, ok := s.locate(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "command")
	cmd, ok := t.cluster.CommandByName(name)
	if !ok {
		writeNotFound(w, fmt.Sprintf("command %s not found", name))
		return
	}

	body, err := readBody(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	var payload map[string]any
	if len(bytes.TrimSpace(body)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&payload); err != nil {
			writeBadRequest(w, "malformed json")
			return
		}
	}

	live, err := s.renderer.Resolve(r.Context(), t.node, t.endpoint, t.instance)
	if err != nil {
		s.writeBackendError(w, "resolving capabilities", err)
		return
	}
	if !live.CanInvoke(cmd.ID) {
		writeNotFound(w, fmt.Sprintf("command %s not found", cmd.Name))
		return
	}

	res, err := s.client.InvokeCommand(r.Context(), t.node, t.endpoint, t.instance, cmd.Name, normalize(payload))
	if err != nil {
		s.logger.Debug("command failed", "node", t.node, "endpoint", t.endpoint,
			"cluster", t.cluster.Name, "command", cmd.Name, "error", err)
		s.writeOperationError(w, err)
		return
	}
	s.logger.Info("command invoked", "node", t.node, "endpoint", t.endpoint,
		"cluster", t.cluster.Name, "command", cmd.Name)
	writeJSON(w, http.StatusOK, map[string]any{cmd.Name: res})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return nil, errors.New("reading body failed")
	}
	if len(body) > maxBodySize {
		return nil, errors.New("body too large")
	}
	return body, nil
}

// decodeValue decodes a JSON value keeping integers exact.
func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeValue(v), nil
}

// normalize converts json.Number leaves of a payload to int64 or float64.
func normalize(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		return normalize(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
