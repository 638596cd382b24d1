package api

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mash-protocol/mash-expose/pkg/devclient"
	"github.com/mash-protocol/mash-expose/pkg/render"
)

//go:embed pages/*.html
var pageFiles embed.FS

var pages = template.Must(template.ParseFS(pageFiles, "pages/*.html"))

type nodeRow struct {
	ID        devclient.NodeID
	Available bool
	Endpoints []string
}

// handleNodesPage lists the known nodes with links to their documents.
func (s *Server) handleNodesPage(w http.ResponseWriter, r *http.Request) {
	tree, err := s.client.NodeTree(r.Context())
	if err != nil {
		s.writeBackendError(w, "reading node tree", err)
		return
	}

	rows := make([]nodeRow, 0, len(tree))
	for _, id := range tree.NodeIDs() {
		node := tree[id]
		row := nodeRow{ID: id, Available: node.Available}
		for _, epID := range node.EndpointIDs() {
			if epID == 0 {
				continue
			}
			ep, _ := node.Endpoint(epID)
			row.Endpoints = append(row.Endpoints, fmt.Sprintf("%d - %s", epID, s.renderer.EndpointName(ep)))
		}
		rows = append(rows, row)
	}

	s.renderPage(w, "nodes.html", map[string]any{
		"Title":   s.cfg.Title,
		"Version": s.cfg.Version,
		"Nodes":   rows,
	})
}

// handleSwaggerPage serves Swagger UI pointed at the node's document.
func (s *Server) handleSwaggerPage(w http.ResponseWriter, r *http.Request) {
	id, err := devclient.ParseNodeID(chi.URLParam(r, "node"))
	if err != nil {
		writeBadRequest(w, "invalid node id")
		return
	}
	tree, err := s.client.NodeTree(r.Context())
	if err != nil {
		s.writeBackendError(w, "reading node tree", err)
		return
	}
	if _, ok := tree.Node(id); !ok {
		writeNotFound(w, fmt.Sprintf("node %d not found", id))
		return
	}

	s.renderPage(w, "swagger.html", map[string]any{
		"Title":  s.cfg.Title,
		"Node":   id,
		"DocURL": fmt.Sprintf("/api/doc/%d", id),
	})
}

// handleDocument serves the OpenAPI document of one node.
func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	id, err := devclient.ParseNodeID(chi.URLParam(r, "node"))
	if err != nil {
		writeBadRequest(w, "invalid node id")
		return
	}

	doc, err := s.renderer.Document(r.Context(), id, render.DocumentInfo{
		Title:     fmt.Sprintf("%s node %d", s.cfg.Title, id),
		Version:   s.cfg.Version,
		ServerURL: s.serverURL(r),
	})
	switch {
	case errors.Is(err, render.ErrNodeNotFound):
		writeNotFound(w, fmt.Sprintf("node %d not found", id))
		return
	case errors.Is(err, render.ErrNoDocumentation):
		writeNotFound(w, "no documentation available")
		return
	case err != nil:
		s.writeBackendError(w, "rendering document", err)
		return
	}

	w.Header().Set("Content-Type", "application/x-yaml")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// serverURL is the configured public URL, or scheme://host of the request.
func (s *Server) serverURL(r *http.Request) string {
	if s.cfg.PublicURL != "" {
		return s.cfg.PublicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

func (s *Server) renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("rendering page", "page", name, "error", err)
	}
}
