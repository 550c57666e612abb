package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/skylayer/pkg/buildinfo"
	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/layers"
	"github.com/matzehuels/skylayer/pkg/pipeline"
	"github.com/matzehuels/skylayer/pkg/store"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// Spacing metadata headers on raw document responses.
const (
	headerOriginalWidth  = "X-Skylayer-Original-Width"
	headerNewWidth       = "X-Skylayer-New-Width"
	headerOriginalAspect = "X-Skylayer-Original-Aspect-Ratio"
	headerNewAspect      = "X-Skylayer-New-Aspect-Ratio"
	headerShifted        = "X-Skylayer-Shifted"
)

// defaultUploadName names raw uploads that carry no filename.
const defaultUploadName = "master.svg"

// =============================================================================
// Response Types
// =============================================================================

type layerResponse struct {
	layers.Info
	Filename   string `json:"filename"`
	ArtifactID string `json:"artifact_id,omitempty"`
	Document   string `json:"document,omitempty"`
}

type separationResponse struct {
	Project   *store.Project             `json:"project,omitempty"`
	Layers    []layerResponse            `json:"layers"`
	Buildings []pipeline.BuildingSummary `json:"buildings"`
	Canvas    string                     `json:"canvas"`
	Strategy  string                     `json:"strategy"`
	Excluded  int                        `json:"excluded_shapes"`
	Skipped   []string                   `json:"skipped_groups,omitempty"`
	Spacing   *pipeline.SpacingSummary   `json:"spacing,omitempty"`
	CacheHit  bool                       `json:"cache_hit"`
}

type spacingResponse struct {
	pipeline.SpacingSummary
	Artifact *store.Artifact `json:"artifact"`
	CacheHit bool            `json:"cache_hit"`
}

type artifactResponse struct {
	*store.Artifact
	Data []byte `json:"data"`
}

type createProjectRequest struct {
	Name string `json:"name"`
}

// =============================================================================
// Stateless Endpoints
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": buildinfo.Get(),
	})
}

func (s *Server) handleSeparate(w http.ResponseWriter, r *http.Request) {
	opts, err := s.queryOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, _, err := s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Separate(r.Context(), data, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := newSeparationResponse(res)
	for i, l := range res.Layers {
		resp.Layers[i].Document = string(l.Document)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpacing(w http.ResponseWriter, r *http.Request) {
	percent, err := queryPercent(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, _, err := s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Space(r.Context(), data, percent, s.cfg.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", store.ContentTypeSVG)
	h.Set(headerOriginalWidth, formatFloat(res.OriginalWidth))
	h.Set(headerNewWidth, formatFloat(res.NewWidth))
	h.Set(headerOriginalAspect, res.OriginalAspect)
	h.Set(headerNewAspect, res.NewAspect)
	h.Set(headerShifted, strconv.Itoa(res.Shifted))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Document)
}

// =============================================================================
// Projects
// =============================================================================

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.store.CreateProject(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	ps, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.project(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUploadMaster(w http.ResponseWriter, r *http.Request) {
	p, err := s.project(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data, filename, err := s.readDocument(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Reject documents that would fail every later step.
	if _, err := svg.Parse(data); err != nil {
		s.writeError(w, r, err)
		return
	}
	a, err := s.store.SaveMaster(r.Context(), p.ID, filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("master uploaded", "project", p.ID, "filename", filename, "bytes", len(data))
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleSeparateProject(w http.ResponseWriter, r *http.Request) {
	p, master, err := s.projectMaster(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts, err := s.bodyOptions(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if opts.BaseName == "" {
		opts.BaseName = baseName(master.Filename)
	}

	res, err := s.runner.Separate(r.Context(), master.Data, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	docs := make([]store.LayerDocument, len(res.Layers))
	for i, l := range res.Layers {
		docs[i] = store.LayerDocument{Info: l.Info, Filename: l.Filename, Data: l.Document}
	}
	updated, err := s.store.SaveSeparation(r.Context(), p.ID, docs)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := newSeparationResponse(res)
	resp.Project = updated
	for i := range resp.Layers {
		if i < len(updated.LayerArtifactIDs) {
			resp.Layers[i].ArtifactID = updated.LayerArtifactIDs[i]
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpaceProject(w http.ResponseWriter, r *http.Request) {
	p, master, err := s.projectMaster(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	percent, err := queryPercent(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.runner.Space(r.Context(), master.Data, percent, s.cfg.Options)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	name := fmt.Sprintf("%s_spaced_%s.svg", baseName(master.Filename), formatFloat(percent))
	a, err := s.store.SaveArtifact(r.Context(), p.ID, store.KindSpaced, name, res.Document)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, spacingResponse{SpacingSummary: res.SpacingSummary, Artifact: a, CacheHit: res.CacheHit})
}

// =============================================================================
// Artifacts
// =============================================================================

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.artifact(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artifactResponse{Artifact: a, Data: a.Data})
}

func (s *Server) handleDownloadArtifact(w http.ResponseWriter, r *http.Request) {
	a, err := s.artifact(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	h := w.Header()
	h.Set("Content-Type", a.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(a.Data)))
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Data)
}

// =============================================================================
// Request Helpers
// =============================================================================

func (s *Server) project(r *http.Request) (*store.Project, error) {
	id := chi.URLParam(r, "id")
	if err := errs.ValidateID(id); err != nil {
		return nil, err
	}
	return s.store.GetProject(r.Context(), id)
}

func (s *Server) projectMaster(r *http.Request) (*store.Project, *store.Artifact, error) {
	p, err := s.project(r)
	if err != nil {
		return nil, nil, err
	}
	if p.MasterArtifactID == "" {
		return nil, nil, errs.New(errs.ErrCodeMissingMaster, "project %s has no master document; upload one first", p.ID)
	}
	master, err := s.store.GetArtifact(r.Context(), p.MasterArtifactID)
	if err != nil {
		return nil, nil, err
	}
	return p, master, nil
}

func (s *Server) artifact(r *http.Request) (*store.Artifact, error) {
	id := chi.URLParam(r, "id")
	if err := errs.ValidateID(id); err != nil {
		return nil, err
	}
	return s.store.GetArtifact(r.Context(), id)
}

// readDocument returns the uploaded document and its filename. It accepts
// a multipart form with a "file" field or a raw request body, whose name
// comes from the filename query parameter.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, "", err
			}
			return nil, "", errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid multipart form")
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			return nil, "", errs.Wrap(errs.ErrCodeInvalidInput, err, "missing form field \"file\"")
		}
		defer func() { _ = f.Close() }()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, "", err
		}
		name, err := uploadName(hdr.Filename)
		return data, name, err
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	name, err := uploadName(r.URL.Query().Get("filename"))
	return data, name, err
}

// uploadName reduces a client-supplied filename to a safe base name.
func uploadName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultUploadName, nil
	}
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if err := errs.ValidateFilename(name); err != nil {
		return "", err
	}
	return name, nil
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid JSON body")
	}
	return nil
}

// bodyOptions merges an optional JSON options body over the server
// defaults.
func (s *Server) bodyOptions(w http.ResponseWriter, r *http.Request) (pipeline.Options, error) {
	var req pipeline.Options
	if err := s.decodeJSON(w, r, &req); err != nil {
		return pipeline.Options{}, err
	}
	return s.mergeOptions(req), nil
}

// queryOptions reads threshold, clustering, spacing, base_name and
// refresh from the query string.
func (s *Server) queryOptions(r *http.Request) (pipeline.Options, error) {
	q := r.URL.Query()
	var req pipeline.Options
	var err error
	if req.Threshold, err = queryFloat(q.Get("threshold"), "threshold"); err != nil {
		return req, err
	}
	if req.SpacingPercent, err = queryFloat(q.Get("spacing"), "spacing"); err != nil {
		return req, err
	}
	req.Clustering = q.Get("clustering")
	req.BaseName = q.Get("base_name")
	req.Refresh = q.Get("refresh") == "true" || q.Get("refresh") == "1"
	return s.mergeOptions(req), nil
}

func (s *Server) mergeOptions(req pipeline.Options) pipeline.Options {
	opts := s.cfg.Options
	if req.Threshold != 0 {
		opts.Threshold = req.Threshold
	}
	if req.Clustering != "" {
		opts.Clustering = req.Clustering
	}
	if req.HeightScale != 0 {
		opts.HeightScale = req.HeightScale
	}
	if req.ForegroundMax != 0 {
		opts.ForegroundMax = req.ForegroundMax
	}
	if req.MiddleMax != 0 {
		opts.MiddleMax = req.MiddleMax
	}
	if req.SpacingPercent != 0 {
		opts.SpacingPercent = req.SpacingPercent
	}
	if req.BaseName != "" {
		opts.BaseName = req.BaseName
	}
	opts.Refresh = req.Refresh
	return opts
}

func queryPercent(r *http.Request) (float64, error) {
	raw := r.URL.Query().Get("percent")
	if raw == "" {
		return 0, errs.New(errs.ErrCodeInvalidPercent, "query parameter \"percent\" is required")
	}
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInvalidPercent, err, "percent %q is not a number", raw)
	}
	if err := errs.ValidatePercent(p); err != nil {
		return 0, err
	}
	return p, nil
}

func queryFloat(raw, name string) (float64, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errs.Wrap(errs.ErrCodeInvalidInput, err, "%s %q is not a number", name, raw)
	}
	return v, nil
}

func newSeparationResponse(res *pipeline.SeparationResult) separationResponse {
	resp := separationResponse{
		Layers:    make([]layerResponse, len(res.Layers)),
		Buildings: res.Buildings,
		Canvas:    res.Canvas.String(),
		Strategy:  res.Strategy,
		Excluded:  res.Excluded,
		Skipped:   res.Skipped,
		Spacing:   res.Spacing,
		CacheHit:  res.CacheHit,
	}
	for i, l := range res.Layers {
		resp.Layers[i] = layerResponse{Info: l.Info, Filename: l.Filename}
	}
	return resp
}

// baseName strips the directory and extension from a filename.
func baseName(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		return pipeline.DefaultBaseName
	}
	return base
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
