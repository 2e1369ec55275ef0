package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/peeragogy/handbook-ai/internal/command"
	"github.com/peeragogy/handbook-ai/internal/orchestrator"
	"github.com/peeragogy/handbook-ai/internal/persona"
	"github.com/peeragogy/handbook-ai/internal/plan"
	"github.com/peeragogy/handbook-ai/internal/provider"
)

// errorStatus maps a pipeline error to an HTTP status plus the message
// and details for the response body. Unrecognized errors report false;
// the caller reduces those to the generic 500.
func errorStatus(err error) (status int, message, details string, ok bool) {
	var vErr *orchestrator.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, vErr.Error(), "", true
	}

	var unknownCmd *command.UnknownCommandError
	if errors.As(err, &unknownCmd) {
		return http.StatusBadRequest, unknownCmd.Error(), "", true
	}

	var authErr *provider.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized, "provider credential missing", authErr.Error(), true
	}

	var notAllowed *plan.NotAllowedError
	if errors.As(err, &notAllowed) {
		return http.StatusForbidden, notAllowed.Error(), strings.Join(notAllowed.Allowed, ", "), true
	}

	if errors.Is(err, persona.ErrPersonaNotFound) ||
		errors.Is(err, provider.ErrProviderNotFound) ||
		errors.Is(err, provider.ErrModelNotFound) {
		return http.StatusNotFound, err.Error(), "", true
	}

	if errors.Is(err, plan.ErrUnknownTier) {
		return http.StatusForbidden, err.Error(), "", true
	}

	var fmtErr *provider.FormatError
	if errors.As(err, &fmtErr) {
		return http.StatusBadGateway, "unexpected upstream response format", fmtErr.RawBody, true
	}

	var upErr *provider.UpstreamError
	if errors.As(err, &upErr) {
		switch upErr.Kind {
		case provider.KindTimeout:
			return http.StatusGatewayTimeout, "upstream timeout", upErr.Error(), true
		case provider.KindNetwork:
			return http.StatusBadGateway, "upstream unreachable", upErr.Message, true
		default:
			// Mirror the upstream status when it is a valid error code.
			status := upErr.Status
			if status < 400 || status > 599 {
				status = http.StatusBadGateway
			}
			return status, "upstream error", upErr.Message, true
		}
	}

	return 0, "", "", false
}
