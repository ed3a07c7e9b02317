// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"pipstage-cli/internal/issue"
)

// printGuidance renders the catalog entry for a known failure to w. The
// guidance supplements the returned error, so rendering problems are
// swallowed rather than masking the real failure.
func printGuidance(w io.Writer, id issue.Id) {
	i := issue.Get(id)
	if i == nil {
		return
	}
	out, err := i.Render("dark")
	if err != nil {
		return
	}
	fmt.Fprint(w, out)
}

// recipeIssueId classifies a stagefile loading failure: a path that does not
// exist gets the search-location guidance, anything else the parse guidance.
func recipeIssueId(err error) issue.Id {
	if errors.Is(err, fs.ErrNotExist) {
		return issue.StagefileNotFoundId
	}
	return issue.StagefileParseErrorId
}
