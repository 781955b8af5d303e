package dashboardhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"nowcasting-dashboard/internal/auth"
	dashboardapp "nowcasting-dashboard/internal/dashboard/application"
	dashboard "nowcasting-dashboard/internal/dashboard/domain"
	"nowcasting-dashboard/internal/observability/metrics"
	pvapp "nowcasting-dashboard/internal/pv/application"
	"nowcasting-dashboard/internal/render"
	statusapp "nowcasting-dashboard/internal/status/application"
	status "nowcasting-dashboard/internal/status/domain"
	"nowcasting-dashboard/internal/status/interfaces/export"
)

const maxDetailBody = 1 << 20

// StatusTab is the status tab's controller.
type StatusTab = dashboardapp.TabController[statusapp.Report]

// SummaryTab is the summary tab's controller.
type SummaryTab = dashboardapp.TabController[dashboardapp.Summary]

// PVTab caches the PV system id list.
type PVTab = dashboardapp.TabController[[]int]

// MapCycler animates the summary map.
type MapCycler = dashboardapp.FrameCycler[render.ChoroplethFrame]

type statusRowView struct {
	status.StatusRow
	Color string `json:"color"`
}

type statusResponse struct {
	Marker    string          `json:"marker"`
	Overall   string          `json:"overall"`
	Consumers []statusRowView `json:"consumers"`
	Forecasts []statusRowView `json:"forecasts"`
	Error     string          `json:"error,omitempty"`
}

func rowViews(rows []status.StatusRow) []statusRowView {
	out := make([]statusRowView, 0, len(rows))
	for _, row := range rows {
		out = append(out, statusRowView{StatusRow: row, Color: row.Status.Color()})
	}
	return out
}

// StatusHandler serves the status tables.
type StatusHandler struct {
	tab *StatusTab
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(tab *StatusTab) *StatusHandler {
	return &StatusHandler{tab: tab}
}

// ServeHTTP handles GET /api/v1/status.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.tab == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	resp := statusResponse{Consumers: []statusRowView{}, Forecasts: []statusRowView{}}
	snap, err := h.tab.Current(r.Context())
	if err != nil {
		resp.Error = err.Error()
		resp.Overall = status.StatusUnknown.String()
		writeJSON(w, http.StatusOK, resp)
		return
	}
	resp.Marker = snap.Marker()
	resp.Consumers = rowViews(snap.Value.Consumers)
	resp.Forecasts = rowViews(snap.Value.Forecasts)
	resp.Overall = status.Worst(snap.Value.Rows()).String()
	writeJSON(w, http.StatusOK, resp)
}

type refreshResponse struct {
	Tab         string `json:"tab"`
	Marker      string `json:"marker"`
	Seq         uint64 `json:"seq"`
	Collapsed   bool   `json:"collapsed"`
	Stale       bool   `json:"stale"`
	RequestedBy string `json:"requested_by,omitempty"`
	Error       string `json:"error,omitempty"`
}

// RefreshHandler triggers a manual refresh of one tab.
type RefreshHandler[T any] struct {
	tab *dashboardapp.TabController[T]
}

// NewRefreshHandler constructs a RefreshHandler.
func NewRefreshHandler[T any](tab *dashboardapp.TabController[T]) *RefreshHandler[T] {
	return &RefreshHandler[T]{tab: tab}
}

// ServeHTTP handles POST /api/v1/{tab}/refresh.
func (h *RefreshHandler[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.tab == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	out := h.tab.Refresh(r.Context(), dashboardapp.TriggerManual)
	resp := refreshResponse{
		Tab:       h.tab.Name(),
		Collapsed: out.Collapsed,
		Stale:     errors.Is(out.Err, dashboard.ErrStaleCache),
		// empty when auth is disabled
		RequestedBy: auth.SubjectFromContext(r.Context()),
	}
	if out.Populated {
		resp.Marker = out.Snapshot.Marker()
		resp.Seq = out.Snapshot.Seq
	}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusExportHandler serves the status tables as XLSX or PDF.
type StatusExportHandler struct {
	tab    *StatusTab
	format string
	logger zerolog.Logger
}

// NewStatusExportHandler constructs an export handler for "xlsx" or "pdf".
func NewStatusExportHandler(tab *StatusTab, format string, logger zerolog.Logger) *StatusExportHandler {
	return &StatusExportHandler{tab: tab, format: format, logger: logger}
}

// ServeHTTP handles GET /api/v1/status/export.{xlsx,pdf}.
func (h *StatusExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.tab == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	snap, err := h.tab.Current(r.Context())
	if err != nil {
		metrics.IncStatusExport(h.format, metrics.ResultError)
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	sections := []export.Section{
		{Title: "Consumers", Rows: snap.Value.Consumers},
		{Title: "Forecasts", Rows: snap.Value.Forecasts},
	}

	var (
		body        []byte
		contentType string
	)
	switch h.format {
	case "xlsx":
		body, err = export.BuildStatusXLSX(snap.Value.GeneratedAt, sections)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		body, err = export.BuildStatusPDF(snap.Value.GeneratedAt, sections)
		contentType = "application/pdf"
	default:
		err = fmt.Errorf("unsupported export format %q", h.format)
	}
	if err != nil {
		metrics.IncStatusExport(h.format, metrics.ResultError)
		h.logger.Error().Err(err).Str("format", h.format).Msg("status export failed")
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	metrics.IncStatusExport(h.format, metrics.ResultSuccess)

	filename := "status-" + snap.Value.GeneratedAt.UTC().Format("20060102-150405") + "." + h.format
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type nationalResponse struct {
	Marker string                  `json:"marker"`
	Figure render.TimeSeriesFigure `json:"figure"`
	Error  string                  `json:"error,omitempty"`
}

// NationalHandler serves the cached national forecast figure.
type NationalHandler struct {
	tab *SummaryTab
}

// NewNationalHandler constructs a NationalHandler.
func NewNationalHandler(tab *SummaryTab) *NationalHandler {
	return &NationalHandler{tab: tab}
}

// ServeHTTP handles GET /api/v1/summary/national?yesterday=true|false.
func (h *NationalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.tab == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	showYesterday, err := parseBoolQuery(r, "yesterday", true)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.tab.Current(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, nationalResponse{Figure: render.EmptyFigure(), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, nationalResponse{
		Marker: snap.Marker(),
		Figure: snap.Value.NationalFigure(showYesterday),
	})
}

type frameResponse struct {
	Marker string                                     `json:"marker"`
	Frame  dashboardapp.Frame[render.ChoroplethFrame] `json:"frame"`
}

// FrameHandler serves the current map animation frame.
type FrameHandler struct {
	tab    *SummaryTab
	cycler *MapCycler
}

// NewFrameHandler constructs a FrameHandler.
func NewFrameHandler(tab *SummaryTab, cycler *MapCycler) *FrameHandler {
	return &FrameHandler{tab: tab, cycler: cycler}
}

// ServeHTTP handles GET /api/v1/summary/frame?normalize=0|1[&tick=n].
func (h *FrameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.cycler == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	layer := render.MapLayerMegawatts
	switch value := r.URL.Query().Get("normalize"); value {
	case "", "0":
	case "1":
		layer = render.MapLayerPercent
	default:
		http.Error(w, "normalize must be 0 or 1", http.StatusBadRequest)
		return
	}

	tick := h.cycler.Tick()
	if value := r.URL.Query().Get("tick"); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			http.Error(w, "tick must be a non-negative integer", http.StatusBadRequest)
			return
		}
		tick = parsed
	}

	resp := frameResponse{Frame: h.cycler.FrameAt(tick, layer)}
	if h.tab != nil {
		if snap, ok := h.tab.Snapshot(); ok {
			resp.Marker = snap.Marker()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// detailRequest is the overlay payload. click_index and click_data are
// alternatives; an unreadable click is dropped rather than rejected.
type detailRequest struct {
	ClickIndex    json.RawMessage          `json:"click_index"`
	ClickData     *clickData               `json:"click_data"`
	CloseClicks   *int                     `json:"close_clicks"`
	IsOpen        bool                     `json:"is_open"`
	ShowYesterday *bool                    `json:"show_yesterday"`
	Figure        *render.TimeSeriesFigure `json:"figure"`
}

type clickData struct {
	Points []struct {
		PointNumber *int `json:"pointNumber"`
	} `json:"points"`
}

func (req detailRequest) input() dashboardapp.ClickInput {
	in := dashboardapp.ClickInput{
		CloseClicks:   req.CloseClicks,
		IsOpen:        req.IsOpen,
		ShowYesterday: true,
		Figure:        req.Figure,
	}
	if req.ShowYesterday != nil {
		in.ShowYesterday = *req.ShowYesterday
	}
	if len(req.ClickIndex) > 0 && string(req.ClickIndex) != "null" {
		var idx int
		if err := json.Unmarshal(req.ClickIndex, &idx); err == nil {
			in.ClickIndex = &idx
		}
	} else if req.ClickData != nil && len(req.ClickData.Points) > 0 {
		in.ClickIndex = req.ClickData.Points[0].PointNumber
	}
	return in
}

// DetailHandler drives the detail-on-click overlay.
type DetailHandler struct {
	detail *dashboardapp.DetailController
}

// NewDetailHandler constructs a DetailHandler.
func NewDetailHandler(detail *dashboardapp.DetailController) *DetailHandler {
	return &DetailHandler{detail: detail}
}

// ServeHTTP handles POST /api/v1/summary/detail.
func (h *DetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.detail == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	var req detailRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDetailBody)).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
	}
	writeJSON(w, http.StatusOK, h.detail.Handle(r.Context(), req.input()))
}

type pvSystemsResponse struct {
	Marker  string `json:"marker"`
	Systems []int  `json:"systems"`
	Error   string `json:"error,omitempty"`
}

type pvPlotResponse struct {
	Systems []int                   `json:"systems"`
	Figure  render.TimeSeriesFigure `json:"figure"`
	Error   string                  `json:"error,omitempty"`
}

// PVHandler serves the PV tab.
type PVHandler struct {
	tab     *PVTab
	service *pvapp.Service
	logger  zerolog.Logger
}

// NewPVHandler constructs a PVHandler.
func NewPVHandler(tab *PVTab, service *pvapp.Service, logger zerolog.Logger) *PVHandler {
	return &PVHandler{tab: tab, service: service, logger: logger}
}

// Systems handles GET /api/v1/pv/systems.
func (h *PVHandler) Systems(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.tab == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	snap, err := h.tab.Current(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, pvSystemsResponse{Systems: []int{}, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, pvSystemsResponse{Marker: snap.Marker(), Systems: snap.Value})
}

// Plot handles GET /api/v1/pv/plot?ids=1,2,3.
func (h *PVHandler) Plot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	ids, err := parseIDs(r.URL.Query().Get("ids"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.plot(w, r, ids)
}

// Random handles POST /api/v1/pv/random.
func (h *PVHandler) Random(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.tab == nil || h.service == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	snap, err := h.tab.Current(r.Context())
	if err != nil {
		writeJSON(w, http.StatusOK, pvPlotResponse{Systems: []int{}, Figure: render.EmptyFigure(), Error: err.Error()})
		return
	}
	ids, err := h.service.Random(snap.Value)
	if err != nil {
		writeJSON(w, http.StatusOK, pvPlotResponse{Systems: []int{}, Figure: render.EmptyFigure(), Error: err.Error()})
		return
	}
	h.plot(w, r, ids)
}

func (h *PVHandler) plot(w http.ResponseWriter, r *http.Request, ids []int) {
	fig, err := h.service.Plot(r.Context(), ids)
	resp := pvPlotResponse{Systems: ids, Figure: fig}
	if resp.Systems == nil {
		resp.Systems = []int{}
	}
	if err != nil {
		h.logger.Warn().Err(err).Ints("systems", ids).Msg("pv plot failed")
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseBoolQuery(r *http.Request, key string, fallback bool) (bool, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", key)
	}
	return parsed, nil
}

func parseIDs(value string) ([]int, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parts := strings.Split(value, ",")
	ids := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid pv system id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
