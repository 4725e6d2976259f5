// Package server provides the GoStego HTTP API.
//
// Uploaded carriers and encoded results are kept as files in a per-server
// temp directory and addressed by id, so a result can be decoded, measured or
// appended to without uploading it again.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/xob0t/GoStego/pkg/cover"
	"github.com/xob0t/GoStego/pkg/stego"
)

// Options configures a Server.
type Options struct {
	Port        int
	MaxUploadMB int64
	// Modern and Legacy handle requests without and with legacy=true.
	Modern *stego.Codec
	Legacy *stego.Codec
	Logger *slog.Logger
}

// ── Carrier store ──

type asset struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Medium  string    `json:"medium"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
	path    string
}

type assetManager struct {
	mu     sync.RWMutex
	assets map[string]*asset
	// writers serializes rewrites of one stored file.
	writers map[string]*sync.Mutex
}

func newAssetManager() *assetManager {
	return &assetManager{
		assets:  make(map[string]*asset),
		writers: make(map[string]*sync.Mutex),
	}
}

// lockWriter holds the writer lock of a stored asset until unlock is called.
// It reports false for an unknown id.
func (am *assetManager) lockWriter(id string) (unlock func(), ok bool) {
	am.mu.Lock()
	if _, ok := am.assets[id]; !ok {
		am.mu.Unlock()
		return nil, false
	}
	w, ok := am.writers[id]
	if !ok {
		w = &sync.Mutex{}
		am.writers[id] = w
	}
	am.mu.Unlock()
	w.Lock()
	return w.Unlock, true
}

func (am *assetManager) put(a asset) {
	if st, err := os.Stat(a.path); err == nil {
		a.Size = st.Size()
	}
	am.mu.Lock()
	am.assets[a.ID] = &a
	am.mu.Unlock()
}

// get returns a copy, so callers never share the stored record.
func (am *assetManager) get(id string) (asset, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	a, ok := am.assets[id]
	if !ok {
		return asset{}, false
	}
	return *a, true
}

func (am *assetManager) listAll() []asset {
	am.mu.RLock()
	defer am.mu.RUnlock()
	result := make([]asset, 0, len(am.assets))
	for _, a := range am.assets {
		result = append(result, *a)
	}
	return result
}

func (am *assetManager) remove(id string) (asset, bool) {
	am.mu.Lock()
	defer am.mu.Unlock()
	a, ok := am.assets[id]
	if !ok {
		return asset{}, false
	}
	delete(am.assets, id)
	delete(am.writers, id)
	return *a, true
}

// ── Server ──

// Server serves the HTTP API.
type Server struct {
	opts   Options
	assets *assetManager
	tmpDir string
	log    *slog.Logger
}

// New creates a Server and its temp directory. Close removes it.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Modern == nil {
		opts.Modern = stego.New(stego.WithLogger(opts.Logger))
	}
	if opts.Legacy == nil {
		opts.Legacy = stego.New(stego.WithLogger(opts.Logger), stego.WithMode(stego.ModeLegacy))
	}
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 512
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	tmpDir, err := os.MkdirTemp("", "gostego-serve-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &Server{
		opts:   opts,
		assets: newAssetManager(),
		tmpDir: tmpDir,
		log:    opts.Logger,
	}, nil
}

// Close removes every stored carrier.
func (s *Server) Close() error {
	return os.RemoveAll(s.tmpDir)
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/encode", s.handleEncode)
	mux.HandleFunc("POST /api/decode", s.handleDecode)
	mux.HandleFunc("POST /api/capacity", s.handleCapacity)
	mux.HandleFunc("POST /api/cover", s.handleCover)
	mux.HandleFunc("POST /api/carriers", s.handleUpload)
	mux.HandleFunc("GET /api/carriers", s.handleListAssets)
	mux.HandleFunc("GET /api/carriers/{id}", s.handleGetAsset)
	mux.HandleFunc("DELETE /api/carriers/{id}", s.handleDeleteAsset)
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := ":" + strconv.Itoa(s.opts.Port)
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("GoStego API listening", "url", "http://localhost"+addr, "tmp", s.tmpDir)
		errCh <- hs.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return hs.Shutdown(shutdownCtx)
	}
}

func (s *Server) codec(r *http.Request) *stego.Codec {
	if v, _ := strconv.ParseBool(r.FormValue("legacy")); v {
		return s.opts.Legacy
	}
	return s.opts.Modern
}

// ── Handlers ──

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEncode(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	src, err := s.carrierFromRequest(r)
	if err != nil {
		s.fail(w, err)
		return
	}

	appendMode, _ := strconv.ParseBool(r.FormValue("append"))
	var target asset
	if id := r.FormValue("target_id"); appendMode && id != "" {
		// Appends to one target decode, embed and rename in turn so no
		// message is lost to a concurrent writer.
		unlock, ok := s.assets.lockWriter(id)
		if !ok {
			s.fail(w, errUnknownTarget)
			return
		}
		defer unlock()
		// Removed while this request waited.
		if target, ok = s.assets.get(id); !ok {
			s.fail(w, errUnknownTarget)
			return
		}
	} else {
		id := uuid.NewString()
		base := strings.TrimSuffix(src.Name, filepath.Ext(src.Name)) + "_stego"
		target = asset{ID: id, Name: base, path: filepath.Join(s.tmpDir, id+"_"+sanitizeFilename(base))}
	}

	res, err := s.codec(r).Encode(r.Context(), stego.EncodeRequest{
		Carrier: src.path,
		Message: r.FormValue("message"),
		Key:     r.FormValue("key"),
		Output:  target.path,
		Append:  appendMode,
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	target.path = res.Output
	target.Name = strings.TrimSuffix(target.Name, filepath.Ext(target.Name)) + filepath.Ext(res.Output)
	target.Medium = res.Medium.String()
	target.Created = time.Now()
	s.assets.put(target)

	w.Header().Set("X-Carrier-Id", target.ID)
	w.Header().Set("X-Frame-Bits", strconv.FormatInt(res.FrameBits, 10))
	w.Header().Set("X-Capacity-Bits", strconv.FormatInt(res.Capacity, 10))
	s.serveAsset(w, r, target)
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	src, err := s.carrierFromRequest(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	msg, err := s.codec(r).Decode(r.Context(), src.path, r.FormValue("key"))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": msg,
		"found":   msg != "",
	})
}

func (s *Server) handleCapacity(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	src, err := s.carrierFromRequest(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	rep, err := s.codec(r).Capacity(r.Context(), src.path)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     src.ID,
		"medium": rep.Medium.String(),
		"bits":   rep.Bits,
		"bytes":  rep.MessageBytes(),
		"human":  humanize.Bytes(uint64(rep.MessageBytes())),
	})
}

type coverRequest struct {
	Format   string  `json:"format"` // png, bmp, tiff, avi, wav
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Duration float64 `json:"duration"`
	FPS      int     `json:"fps"`
	Color    string  `json:"color"`
	Noise    int     `json:"noise"`
	Caption  string  `json:"caption"`
	Lossless bool    `json:"lossless"`
	Seed     uint64  `json:"seed"`
}

func (s *Server) handleCover(w http.ResponseWriter, r *http.Request) {
	var req coverRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ext := "." + strings.TrimPrefix(strings.ToLower(req.Format), ".")
	if ext == "." {
		ext = ".png"
	}

	cfg := cover.Config{
		Width:    req.Width,
		Height:   req.Height,
		Duration: req.Duration,
		FPS:      req.FPS,
		Color:    req.Color,
		Noise:    req.Noise,
		Caption:  req.Caption,
		Lossless: req.Lossless,
		Seed:     req.Seed,
	}
	if err := cfg.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	a := asset{ID: id, Name: "cover" + ext, path: filepath.Join(s.tmpDir, id+"_cover"+ext), Created: time.Now()}
	if err := cover.Generate(a.path, cfg); err != nil {
		http.Error(w, "generate cover: "+err.Error(), http.StatusBadRequest)
		return
	}
	if m, err := stego.DetectMedium(a.path); err == nil {
		a.Medium = m.String()
	}
	s.assets.put(a)

	w.Header().Set("X-Carrier-Id", a.ID)
	s.serveAsset(w, r, a)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if !s.parseForm(w, r) {
		return
	}
	a, err := s.carrierFromRequest(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	a, ok := s.assets.get(r.PathValue("id"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	s.serveAsset(w, r, a)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.assets.listAll())
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	unlock, ok := s.assets.lockWriter(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	defer unlock()
	a, ok := s.assets.remove(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	os.Remove(a.path)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id})
}

// ── Helpers ──

func (s *Server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadMB<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "parse form: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// carrierFromRequest stores the uploaded "carrier" (or "file") part, or
// resolves "carrier_id" to a stored carrier.
func (s *Server) carrierFromRequest(r *http.Request) (asset, error) {
	if id := r.FormValue("carrier_id"); id != "" {
		a, ok := s.assets.get(id)
		if !ok {
			return asset{}, errUnknownCarrier
		}
		return a, nil
	}

	file, header, err := r.FormFile("carrier")
	if errors.Is(err, http.ErrMissingFile) {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		return asset{}, errNoCarrier
	}
	defer file.Close()
	return s.store(file, header)
}

func (s *Server) store(file multipart.File, header *multipart.FileHeader) (asset, error) {
	name := sanitizeFilename(filepath.Base(header.Filename))
	m, err := stego.DetectMedium(name)
	if err != nil {
		return asset{}, err
	}

	id := uuid.NewString()
	a := asset{ID: id, Name: name, Medium: m.String(), Created: time.Now(), path: filepath.Join(s.tmpDir, id+"_"+name)}
	out, err := os.Create(a.path)
	if err != nil {
		return asset{}, err
	}
	if _, err := io.Copy(out, file); err != nil {
		out.Close()
		os.Remove(a.path)
		return asset{}, err
	}
	if err := out.Close(); err != nil {
		os.Remove(a.path)
		return asset{}, err
	}
	s.assets.put(a)
	s.log.Debug("carrier stored", "id", id, "name", name, "size", a.Size)
	return a, nil
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request, a asset) {
	f, err := os.Open(a.path)
	if err != nil {
		http.Error(w, "read carrier: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	mimeType := mime.TypeByExtension(filepath.Ext(a.path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, a.Name))
	http.ServeContent(w, r, a.Name, a.Created, f)
}

var (
	errNoCarrier      = errors.New("no carrier uploaded (use the carrier field or carrier_id)")
	errUnknownCarrier = errors.New("unknown carrier_id")
	errUnknownTarget  = errors.New("unknown target_id")
)

// fail maps a Codec error to an HTTP status.
func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errUnknownCarrier), errors.Is(err, errUnknownTarget):
		status = http.StatusNotFound
	case errors.Is(err, errNoCarrier),
		errors.Is(err, stego.ErrUnsupportedMedium),
		errors.Is(err, stego.ErrAppendUnsupported),
		errors.Is(err, stego.ErrInvalidKey),
		errors.Is(err, stego.ErrFraming):
		status = http.StatusBadRequest
	case errors.Is(err, stego.ErrCapacityExceeded),
		errors.Is(err, stego.ErrInsufficientFrames):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, stego.ErrDecrypt),
		errors.Is(err, stego.ErrCarrierIO):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
