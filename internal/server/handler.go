package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/emicklei/go-restful/v3"

	"github.com/slkreddy/SafeLayer/internal/audit"
	"github.com/slkreddy/SafeLayer/internal/guard"
	"github.com/slkreddy/SafeLayer/internal/guards"
	"github.com/slkreddy/SafeLayer/internal/manager"
	"github.com/slkreddy/SafeLayer/internal/redact"
)

// GET /api/v1/health
func (s *Server) health(req *restful.Request, resp *restful.Response) {
	_ = resp.WriteHeaderAndEntity(http.StatusOK, HealthResponse{Status: "ok", Version: Version})
}

// POST /api/v1/process
// Body: ProcessRequest
// Returns: ProcessResponse. Blocked, failed and cancelled runs are still 200;
// the run status says what happened. An audit write failure is a 500.
func (s *Server) process(req *restful.Request, resp *restful.Response) {
	var body ProcessRequest
	if err := req.ReadEntity(&body); err != nil {
		s.logger.Error().Err(err).Msg("failed to parse request body")
		writeError(resp, err, http.StatusBadRequest)
		return
	}

	gs, err := s.selectGuards(body.Guards)
	if err != nil {
		writeError(resp, err, http.StatusBadRequest)
		return
	}

	res, err := s.manager.Run(req.Request.Context(), body.Text, gs, s.policy)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", res.RunID).Msg("run aborted by audit failure")
		writeError(resp, err, http.StatusInternalServerError)
		return
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, toResponse(res))
}

// GET /api/v1/guards
func (s *Server) listGuards(req *restful.Request, resp *restful.Response) {
	ids := make([]string, 0, len(s.guards))
	for _, g := range s.guards {
		ids = append(ids, g.ID())
	}
	_ = resp.WriteHeaderAndEntity(http.StatusOK, GuardsResponse{Guards: ids})
}

// GET /api/v1/audit/verify?from=&to=
func (s *Server) verify(req *restful.Request, resp *restful.Response) {
	var r audit.Range
	for name, dst := range map[string]*uint64{"from": &r.From, "to": &r.To} {
		v := req.QueryParameter(name)
		if v == "" {
			continue
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			writeError(resp, fmt.Errorf("invalid %s: %q", name, v), http.StatusBadRequest)
			return
		}
		*dst = n
	}

	log := s.manager.AuditLog()
	res, err := log.Verify(req.Request.Context(), r)
	if err != nil {
		writeError(resp, err, http.StatusInternalServerError)
		return
	}

	out := VerifyResponse{Valid: res.Valid, Checked: res.Checked, Head: log.Head()}
	code := http.StatusOK
	if !res.Valid {
		out.BrokenAt, out.Reason = res.BrokenAt, res.Reason
		code = http.StatusConflict
	}
	_ = resp.WriteHeaderAndEntity(code, out)
}

func (s *Server) selectGuards(names []string) ([]guard.Guard, error) {
	if len(names) == 0 {
		return s.guards, nil
	}
	return guards.Build(names, s.policy)
}

func toResponse(res *manager.RunResult) ProcessResponse {
	out := ProcessResponse{
		RunID:    res.RunID,
		Status:   res.Status,
		Output:   res.OutputText,
		Outcomes: res.Outcomes,
	}
	if res.Err != nil {
		out.Error = redact.Redact(res.Err.Error())
	}
	return out
}
