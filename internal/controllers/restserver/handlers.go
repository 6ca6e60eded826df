package restserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/chrissnell/suntrack/internal/constants"
	"github.com/chrissnell/suntrack/internal/log"
	"github.com/chrissnell/suntrack/pkg/calcerr"
	"github.com/chrissnell/suntrack/pkg/config"
	"github.com/chrissnell/suntrack/pkg/pipeline"
	"github.com/chrissnell/suntrack/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// ComputeTrackerAngles handles POST /api/tracker_angles
func (h *Handlers) ComputeTrackerAngles(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendRows(w, r, req)
}

// SummarizeTrackerAngles handles POST /api/tracker_angles/summary
func (h *Handlers) SummarizeTrackerAngles(w http.ResponseWriter, r *http.Request) {
	req, err := h.decodeRequest(r)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.sendSummary(w, r, req)
}

// ListSites handles GET /api/sites
func (h *Handlers) ListSites(w http.ResponseWriter, r *http.Request) {
	sites := make([]SiteResponse, 0, len(h.controller.cfg.Sites))
	for _, s := range h.controller.cfg.Sites {
		sites = append(sites, siteResponse(s))
	}
	h.formatter.WriteResponse(w, r, http.StatusOK, sites)
}

// SiteTrackerAngles handles GET /api/sites/{name}/tracker_angles?start=&end=
func (h *Handlers) SiteTrackerAngles(w http.ResponseWriter, r *http.Request) {
	req, ok := h.siteRequest(w, r)
	if !ok {
		return
	}
	h.sendRows(w, r, req)
}

// SiteSummary handles GET /api/sites/{name}/summary?start=&end=
func (h *Handlers) SiteSummary(w http.ResponseWriter, r *http.Request) {
	req, ok := h.siteRequest(w, r)
	if !ok {
		return
	}
	h.sendSummary(w, r, req)
}

// RecentRequests handles GET /api/requests
func (h *Handlers) RecentRequests(w http.ResponseWriter, r *http.Request) {
	h.formatter.WriteResponse(w, r, http.StatusOK, log.GetHTTPLogBuffer().Entries())
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.formatter.WriteResponse(w, r, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: constants.Version,
		Sites:   len(h.controller.cfg.Sites),
	})
}

func (h *Handlers) decodeRequest(r *http.Request) (pipeline.Request, error) {
	var body TrackerAnglesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return pipeline.Request{}, calcerr.Parse("body", "", err)
	}
	return body.toPipeline()
}

// siteRequest builds a request from a configured site and the query string.
// It writes the error response itself and reports whether to continue.
func (h *Handlers) siteRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, bool) {
	name := mux.Vars(r)["name"]
	site, found := h.controller.cfg.FindSite(name)
	if !found {
		h.formatter.WriteError(w, r, http.StatusNotFound, "site not found: "+name)
		return pipeline.Request{}, false
	}

	q := r.URL.Query()
	req := pipeline.DefaultRequest()
	req.Site = site.Site()
	req.Geometry = site.Geometry()
	req.Start = q.Get("start")
	req.End = q.Get("end")

	if v := q.Get("step_minutes"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			h.sendError(w, r, calcerr.Parse("step_minutes", v, err))
			return pipeline.Request{}, false
		}
		if minutes <= 0 {
			h.sendError(w, r, calcerr.Config("step_minutes", "must be positive"))
			return pipeline.Request{}, false
		}
		req.Step = time.Duration(minutes) * time.Minute
	}
	return req, true
}

func (h *Handlers) run(r *http.Request, req pipeline.Request) (*pipeline.Trace, error) {
	ctx := r.Context()
	if h.controller.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.controller.timeout)
		defer cancel()
	}

	trace, err := pipeline.Run(ctx, req, h.controller.options)
	if err != nil {
		return nil, err
	}
	h.controller.metrics.points.Add(float64(len(trace.Times)))
	return trace, nil
}

func (h *Handlers) sendRows(w http.ResponseWriter, r *http.Request, req pipeline.Request) {
	// Resolve the locale before doing any work so a bad tag costs nothing
	var localizer *responseformat.Localizer
	if locale := r.URL.Query().Get("locale"); locale != "" {
		var err error
		if localizer, err = responseformat.NewLocalizer(locale); err != nil {
			h.sendError(w, r, calcerr.Parse("locale", locale, err))
			return
		}
	}

	trace, err := h.run(r, req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	rows, err := trace.Rows()
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	if localizer == nil {
		h.formatter.WriteResponse(w, r, http.StatusOK, rows)
		return
	}

	w.Header().Set("Content-Language", localizer.Tag().String())
	localized := make([]LocalizedRow, len(rows))
	for i, row := range rows {
		localized[i] = LocalizedRow{
			Timestamp:    row.Timestamp,
			Zenith:       localizer.Number(row.Zenith),
			Azimuth:      localizer.Number(row.Azimuth),
			TrackerTheta: localizer.Number(row.TrackerAngle),
		}
	}
	h.formatter.WriteResponse(w, r, http.StatusOK, localized)
}

func (h *Handlers) sendSummary(w http.ResponseWriter, r *http.Request, req pipeline.Request) {
	trace, err := h.run(r, req)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.formatter.WriteResponse(w, r, http.StatusOK, pipeline.Summarize(trace))
}

// sendError maps the error taxonomy onto HTTP status codes
func (h *Handlers) sendError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	kind := "computation"

	switch {
	case errors.Is(err, calcerr.ErrParse):
		status, kind = http.StatusBadRequest, "parse"
	case errors.Is(err, calcerr.ErrConfiguration):
		status, kind = http.StatusBadRequest, "configuration"
	case errors.Is(err, context.DeadlineExceeded):
		status, kind = http.StatusServiceUnavailable, "timeout"
	case errors.Is(err, context.Canceled):
		status, kind = http.StatusServiceUnavailable, "canceled"
	}
	h.controller.metrics.failures.WithLabelValues(kind).Inc()

	if status == http.StatusInternalServerError {
		h.controller.logger.Errorw("tracker angle computation failed", "request_id", requestID(r), "error", err)
	} else {
		h.controller.logger.Debugw("request rejected", "request_id", requestID(r), "kind", kind, "error", err)
	}

	h.formatter.WriteError(w, r, status, err.Error())
}

func siteResponse(s config.SiteData) SiteResponse {
	site, g := s.Site(), s.Geometry()
	return SiteResponse{
		Name:      s.Name,
		Latitude:  site.Latitude,
		Longitude: site.Longitude,
		Altitude:  site.Altitude,
		TimeZone:  site.TimeZone,
		Tracker: GeometryResponse{
			AxisTilt:      g.AxisTilt,
			AxisAzimuth:   g.AxisAzimuth,
			MaxAngle:      g.MaxAngle,
			RestAngle:     g.RestAngle,
			GCR:           g.GroundCoverageRatio,
			CrossAxisTilt: g.CrossAxisTilt,
		},
	}
}
