package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

// InvokeJob runs one job, or every job for sync-all, and reports the outcome
// in the function response shape.
func (h *Handler) InvokeJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.InvokeJob")
	defer span.End()

	if h.pipeline == nil {
		writeFunctionError(ctx, w, http.StatusInternalServerError, fmt.Errorf("%w: job pipeline is not configured", usecase.ErrDependencyUnavailable).Error())
		return
	}

	// A run goes to completion even when the caller disconnects.
	name := strings.TrimSpace(r.PathValue("job"))
	result, err := h.pipeline.Run(context.WithoutCancel(ctx), jobrun.TriggerHTTP, name)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidInput) && len(result.Outcomes) == 0 {
			writeFunctionError(ctx, w, http.StatusNotFound, err.Error())
			return
		}
		h.logger.ErrorContext(ctx, "job invocation failed", "job", name, "error", err)
		writeFunctionError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	writeFunctionSuccess(ctx, w, result.Message(), functionSummary(name, result))
}

func functionSummary(name string, result usecase.PipelineResult) any {
	if name != usecase.SequenceSyncAll && len(result.Outcomes) == 1 {
		return result.Outcomes[0].Summary
	}
	out := make(map[string]any, len(result.Outcomes))
	for _, o := range result.Outcomes {
		out[o.Job] = o.Summary
	}
	return out
}
