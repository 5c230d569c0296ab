package snep

import (
	"context"

	"go.uber.org/zap"

	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/ndef"
)

// HandleRequest receives one request from m, routes it to h and sends the
// reply. It reports whether the connection should keep serving requests.
//
// A transport error is returned as is. Undecodable input is answered with
// Bad Request on a best-effort basis and ends the connection; the decode
// error is returned for logging.
func HandleRequest(ctx context.Context, m *Messenger, h Handler) (bool, error) {
	req, err := m.GetMessage()
	if err != nil {
		if IsTransport(err) {
			return false, err
		}
		badRequest(m, err)
		return false, err
	}

	if req.Major() != VersionMajor {
		logging.Warn("Unsupported SNEP version",
			zap.String("remote_addr", m.conn.RemoteAddr()),
			zap.Uint8("major", req.Major()),
			zap.Uint8("minor", req.Minor()),
		)
		return reply(m, NewResponse(ResponseUnsupportedVersion))
	}

	switch req.Type {
	case RequestGet:
		msg, err := parsePayload(req)
		if err != nil {
			badRequest(m, err)
			return false, err
		}
		return reply(m, h.Get(ctx, req.AcceptableLength, msg))

	case RequestPut:
		msg, err := parsePayload(req)
		if err != nil {
			badRequest(m, err)
			return false, err
		}
		return reply(m, h.Put(ctx, msg))

	default:
		logging.Warn("Unexpected SNEP request",
			zap.String("remote_addr", m.conn.RemoteAddr()),
			zap.String("code", req.Type.String()),
		)
		return reply(m, NewResponse(ResponseBadRequest))
	}
}

func parsePayload(req *Message) (ndef.Message, error) {
	msg, err := ndef.Parse(req.Payload)
	if err != nil {
		return nil, decodeError("%s payload: %w", req.Type, err)
	}
	return msg, nil
}

// reply sends resp, substituting Not Implemented for a nil response and
// filling in the protocol version when the handler left it unset.
func reply(m *Messenger, resp *Message) (bool, error) {
	if resp == nil {
		resp = NewResponse(ResponseNotImplemented)
	} else if resp.Version == 0 {
		r := *resp
		r.Version = Version
		resp = &r
	}
	if err := m.SendMessage(resp); err != nil {
		return false, err
	}
	return true, nil
}

func badRequest(m *Messenger, cause error) {
	logging.Warn("Bad SNEP request",
		zap.String("remote_addr", m.conn.RemoteAddr()),
		zap.Error(cause),
	)
	if err := m.SendMessage(NewResponse(ResponseBadRequest)); err != nil {
		logging.Debug("Failed to send Bad Request",
			zap.String("remote_addr", m.conn.RemoteAddr()),
			zap.Error(err),
		)
	}
}
