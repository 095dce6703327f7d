// SPDX-License-Identifier: Apache-2.0

package httptransport

import (
	"net/http"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/codegen"
	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// generate renders the session as test source. Missing framework and
// language fall back to the session's own choices. Generation of a live
// session is abandoned if the session fails or completes meanwhile.
func (a *api) generate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var opts codegen.Options
	if err := decodeJSON(r, &opts, true); err != nil {
		writeProblem(w, http.StatusBadRequest, "invalid request body", domain.KindValidation)
		return
	}

	view, err := a.sessions.SnapshotStored(r.Context(), id)
	if err != nil {
		writeError(w, a.logger, err, "failed to generate code", "session_id", id)
		return
	}
	if opts.Framework == "" {
		opts.Framework = view.Session.Framework
		if opts.Language == "" {
			opts.Language = view.Session.Language
		}
	}
	if opts.TestName == "" {
		opts.TestName = view.Session.Name
	}

	ctx, cancel := view.Bind(r.Context())
	defer cancel()

	res, err := a.generator.Generate(ctx, view.Tree, opts)
	if err != nil {
		writeError(w, a.logger, err, "failed to generate code", "session_id", id)
		return
	}

	a.logger.Info("code generated",
		"session_id", id,
		"framework", opts.Framework,
		"filename", res.Filename,
		"warnings", len(res.Warnings),
	)
	writeJSON(w, http.StatusOK, res)
}
