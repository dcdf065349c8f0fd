package web

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	app "leaf-doctor/internal/application"
	"leaf-doctor/internal/domain/catalog"
	"leaf-doctor/internal/domain/entity"
	"leaf-doctor/internal/infrastructure/vision"
)

const (
	MsgDetectionFailed = "Error in detection. Please try again."
	MsgUnsupported     = "Unsupported file type. Please upload a JPEG or PNG image."
	MsgTooLarge        = "The image is too large."
	MsgNoFile          = "Please select an image file to upload."
	MsgNotConfigured   = "Detection is not available right now."
	MsgBadUpload       = "Could not read the uploaded file."
)

// Options configures the HTTP surface.
type Options struct {
	Backend        string
	MaxUploadBytes int64
}

// Server serves the upload page and the JSON API.
type Server struct {
	diagnosis *app.DiagnosisService
	cascade   *app.CascadeService
	opts      Options
	log       logrus.FieldLogger
}

// NewServer creates the server. cascade may be nil.
func NewServer(diagnosis *app.DiagnosisService, cascade *app.CascadeService, opts Options, log logrus.FieldLogger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	return &Server{
		diagnosis: diagnosis,
		cascade:   cascade,
		opts:      opts,
		log:       log,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Post("/", s.handleDiagnosePage)
	r.Post("/cascade", s.handleCascadePage)

	r.Route("/api", func(r chi.Router) {
		r.Post("/diagnose", s.handleDiagnoseAPI)
		r.Post("/cascade", s.handleCascadeAPI)
	})

	return r
}

// upload is one accepted image.
type upload struct {
	ID          string
	Filename    string
	ContentType string
	Data        []byte
}

// uploadError carries the status and user message for a rejected upload.
type uploadError struct {
	status int
	msg    string
	err    error
}

func (e *uploadError) Error() string { return e.msg }
func (e *uploadError) Unwrap() error { return e.err }

var errNoFile = errors.New("no file uploaded")

// readUpload returns errNoFile when the form has no image, and an
// *uploadError for anything that must be rejected before inference.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &uploadError{status: http.StatusRequestEntityTooLarge, msg: MsgTooLarge, err: err}
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, errNoFile
		}
		return nil, &uploadError{status: http.StatusBadRequest, msg: MsgBadUpload, err: err}
	}

	file, hdr, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, errNoFile
	}
	if err != nil {
		return nil, &uploadError{status: http.StatusBadRequest, msg: MsgBadUpload, err: err}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &uploadError{status: http.StatusBadRequest, msg: MsgBadUpload, err: err}
	}
	if len(data) == 0 {
		return nil, errNoFile
	}

	ct, err := vision.SniffImageType(data)
	if err != nil {
		return nil, &uploadError{status: http.StatusUnsupportedMediaType, msg: MsgUnsupported, err: err}
	}

	return &upload{
		ID:          uuid.NewString(),
		Filename:    hdr.Filename,
		ContentType: ct,
		Data:        data,
	}, nil
}

func (s *Server) page() pageData {
	return pageData{
		Classes:        catalog.Labels(),
		CascadeEnabled: s.cascade.Enabled(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, s.page())
}

func (s *Server) handleDiagnosePage(w http.ResponseWriter, r *http.Request) {
	data := s.page()

	up, err := s.readUpload(w, r)
	if errors.Is(err, errNoFile) {
		s.render(w, r, http.StatusOK, data)
		return
	}
	if err != nil {
		status, msg := s.uploadFailure(r, err)
		data.Error = msg
		s.render(w, r, status, data)
		return
	}

	data.Uploaded = true
	data.Filename = up.Filename
	data.Original = dataURI(up.ContentType, up.Data)

	diag, err := s.diagnosis.Diagnose(r.Context(), up.Data)
	if err != nil {
		status, msg := s.detectionFailure(r, up, err)
		data.Error = msg
		s.render(w, r, status, data)
		return
	}

	data.Detections = diag.Detections
	data.Findings = diag.Findings
	data.Annotated = dataURI(vision.TypeJPEG, diag.Annotated)
	s.render(w, r, http.StatusOK, data)
}

func (s *Server) handleCascadePage(w http.ResponseWriter, r *http.Request) {
	data := s.page()
	if !s.cascade.Enabled() {
		data.Error = MsgNotConfigured
		s.render(w, r, http.StatusNotFound, data)
		return
	}

	up, err := s.readUpload(w, r)
	if errors.Is(err, errNoFile) {
		s.render(w, r, http.StatusOK, data)
		return
	}
	if err != nil {
		status, msg := s.uploadFailure(r, err)
		data.Error = msg
		s.render(w, r, status, data)
		return
	}

	data.Uploaded = true
	data.Filename = up.Filename
	data.Original = dataURI(up.ContentType, up.Data)

	crops, err := s.cascade.Run(r.Context(), up.Data)
	if err != nil {
		status, msg := s.detectionFailure(r, up, err)
		data.Error = msg
		s.render(w, r, status, data)
		return
	}

	data.Crops = make([]string, 0, len(crops))
	for _, c := range crops {
		data.Crops = append(data.Crops, cropLine(c))
	}
	s.render(w, r, http.StatusOK, data)
}

type diagnoseResponse struct {
	ID             string                   `json:"id"`
	Detections     []entity.DetectionResult `json:"detections"`
	Findings       []entity.Finding         `json:"findings"`
	AnnotatedImage string                   `json:"annotated_image,omitempty"` // base64 JPEG
}

type cropResponse struct {
	entity.CropResult
	Error string `json:"error,omitempty"`
}

type cascadeResponse struct {
	ID    string         `json:"id"`
	Crops []cropResponse `json:"crops"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleDiagnoseAPI(w http.ResponseWriter, r *http.Request) {
	up, ok := s.apiUpload(w, r)
	if !ok {
		return
	}

	diag, err := s.diagnosis.Diagnose(r.Context(), up.Data)
	if err != nil {
		status, msg := s.detectionFailure(r, up, err)
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	resp := diagnoseResponse{
		ID:         up.ID,
		Detections: diag.Detections,
		Findings:   diag.Findings,
	}
	if len(diag.Annotated) > 0 {
		resp.AnnotatedImage = base64.StdEncoding.EncodeToString(diag.Annotated)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCascadeAPI(w http.ResponseWriter, r *http.Request) {
	if !s.cascade.Enabled() {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: MsgNotConfigured})
		return
	}

	up, ok := s.apiUpload(w, r)
	if !ok {
		return
	}

	crops, err := s.cascade.Run(r.Context(), up.Data)
	if err != nil {
		status, msg := s.detectionFailure(r, up, err)
		writeJSON(w, status, errorResponse{Error: msg})
		return
	}

	resp := cascadeResponse{ID: up.ID, Crops: make([]cropResponse, 0, len(crops))}
	for _, c := range crops {
		cr := cropResponse{CropResult: c}
		if c.Err != nil {
			cr.Error = c.Err.Error()
		}
		resp.Crops = append(resp.Crops, cr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) apiUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	up, err := s.readUpload(w, r)
	if errors.Is(err, errNoFile) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: MsgNoFile})
		return nil, false
	}
	if err != nil {
		status, msg := s.uploadFailure(r, err)
		writeJSON(w, status, errorResponse{Error: msg})
		return nil, false
	}
	return up, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"backend": s.opts.Backend,
		"cascade": s.cascade.Enabled(),
	})
}

func (s *Server) uploadFailure(r *http.Request, err error) (int, string) {
	var ue *uploadError
	if !errors.As(err, &ue) {
		ue = &uploadError{status: http.StatusBadRequest, msg: MsgBadUpload, err: err}
	}
	s.requestLog(r).WithError(ue.err).Info("upload rejected")
	return ue.status, ue.msg
}

func (s *Server) detectionFailure(r *http.Request, up *upload, err error) (int, string) {
	entry := s.requestLog(r).WithField("upload_id", up.ID).WithError(err)
	if errors.Is(err, app.ErrDetectorNotConfigured) {
		entry.Error("detector is not configured")
		return http.StatusServiceUnavailable, MsgNotConfigured
	}
	entry.Warn("detection failed")
	return http.StatusBadGateway, MsgDetectionFailed
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		s.requestLog(r).WithError(err).Error("render page")
	}
}

func (s *Server) requestLog(r *http.Request) logrus.FieldLogger {
	return s.log.WithField("request_id", middleware.GetReqID(r.Context()))
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.requestLog(r).WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
		}).Info("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
