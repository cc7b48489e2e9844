package server

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// maxFrame bounds a single inbound message.
const maxFrame = 1 << 20

// stream handles GET /ws. Every inbound frame is one run: a JSON object
// is read as a ProcessRequest, anything else as raw text. Each run is
// answered with one JSON frame.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxFrame)

	ctx := r.Context()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		req := decodeFrame(msg)
		out := streamResponse{}
		gs, err := s.selectGuards(req.Guards)
		if err != nil {
			out.Status, out.Error = "invalid", err.Error()
		} else {
			res, err := s.manager.Run(ctx, req.Text, gs, s.policy)
			resp := toResponse(res)
			out = streamResponse{RunID: resp.RunID, Output: resp.Output, Status: resp.Status, Error: resp.Error}
			if err != nil {
				out.Output = ""
				out.Error = err.Error()
			}
		}

		if err := conn.WriteJSON(out); err != nil {
			s.logger.Warn().Err(err).Msg("websocket write failed")
			return
		}
	}
}

func decodeFrame(msg []byte) ProcessRequest {
	if trimmed := bytes.TrimSpace(msg); len(trimmed) > 0 && trimmed[0] == '{' {
		var req ProcessRequest
		if err := json.Unmarshal(trimmed, &req); err == nil {
			return req
		}
	}
	return ProcessRequest{Text: string(msg)}
}
