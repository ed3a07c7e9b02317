// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"slices"

	"github.com/charmbracelet/glamour"
)

// Id identifies a known issue with rendered guidance.
type Id int

const (
	StagefileNotFoundId Id = iota + 1
	StagefileParseErrorId
	EngineNotFoundId
	MissingBuildTagId
	ConfigLoadFailedId
)

type (
	// MarkdownMsg is the Markdown body rendered for an issue.
	MarkdownMsg string

	// Issue pairs a known failure with remediation guidance shown to the
	// user, rendered as Markdown in the terminal.
	Issue struct {
		id    Id
		mdMsg MarkdownMsg
	}
)

// Id returns the issue identifier.
func (i *Issue) Id() Id {
	return i.id
}

// MarkdownMsg returns the raw Markdown body.
func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

// Render renders the issue body with the given glamour style path ("" uses
// the auto style).
func (i *Issue) Render(stylePath string) (string, error) {
	return render(string(i.mdMsg), stylePath)
}

// render is a seam for tests.
var render = glamour.Render

var (
	stagefileNotFoundIssue = &Issue{
		id: StagefileNotFoundId,
		mdMsg: `
# No stagefile found!

We searched for a recipe but couldn't find one in the expected locations.

## Search locations (in order of precedence):
1. The path given with --recipe
2. stagefile.cue in the build context directory

## Things you can try:
- Run against the built-in PIPseeker recipe by omitting --recipe
- Create a stagefile.cue in your build context`,
	}

	stagefileParseErrorIssue = &Issue{
		id: StagefileParseErrorId,
		mdMsg: `
# Failed to parse stagefile!

Your recipe contains syntax errors or invalid configuration.

## Common issues:
- Invalid CUE syntax (missing quotes, braces, etc.)
- Unknown field names
- Relative paths where absolute image paths are required
- Artifact URLs that are not http(s)

## Things you can try:
- Check the error message above for the offending field path
- Validate the document with the cue command-line tool
- Compare against the built-in recipe:
~~~
$ pipstage plan --explain
~~~`,
	}

	engineNotFoundIssue = &Issue{
		id: EngineNotFoundId,
		mdMsg: `
# Container engine not found!

Provisioning against an image requires a container engine, but none is
available.

## Supported container engines:
- **Podman** (recommended for rootless containers)
- **Docker**

## Things you can try:
- Install Podman or Docker
- Provision the live filesystem instead (inside a container or CI runner):
~~~
$ pipstage build --target local --tag <tag>
~~~`,
	}

	missingBuildTagIssue = &Issue{
		id: MissingBuildTagId,
		mdMsg: `
# Missing build tag!

The recipe injects the build tag into the image environment, so every build
needs one. Builds never default to an empty tag.

## Things you can try:
- Pass the tag the orchestration platform assigned to this image:
~~~
$ pipstage build --tag <registry>/<image>:<version>
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Your config.cue could not be loaded. pipstage continues with defaults.

## Things you can try:
- Check the file for CUE syntax errors
- Show the resolved configuration:
~~~
$ pipstage config show
~~~`,
	}

	issues = map[Id]*Issue{
		stagefileNotFoundIssue.Id():   stagefileNotFoundIssue,
		stagefileParseErrorIssue.Id(): stagefileParseErrorIssue,
		engineNotFoundIssue.Id():      engineNotFoundIssue,
		missingBuildTagIssue.Id():     missingBuildTagIssue,
		configLoadFailedIssue.Id():    configLoadFailedIssue,
	}
)

// Values returns all known issues in id order.
func Values() []*Issue {
	ids := make([]Id, 0, len(issues))
	for id := range issues {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*Issue, 0, len(ids))
	for _, id := range ids {
		out = append(out, issues[id])
	}
	return out
}

// Get returns the issue for id, or nil if unknown.
func Get(id Id) *Issue {
	return issues[id]
}
