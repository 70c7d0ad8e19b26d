// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

type Id int

const (
	NotebookNotFoundId Id = iota + 1
	NotebookInvalidId
	NotebookExecutionFailedId
	ExecutionTimedOutId
	InterpreterNotFoundId
	EngineMissingId
	ContainerEngineNotFoundId
	ImagePullFailedId
	OutputWriteFailedId
	ConfigLoadFailedId
	InvalidRuntimeId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue as styled terminal Markdown. stylePath is a glamour
// style name ("dark", "light", "notty") or a path to a JSON style file.
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.extLinks) > 0 {
		var sb strings.Builder
		sb.WriteString(md)
		sb.WriteString("\n\n## See also:\n")
		for _, link := range i.extLinks {
			sb.WriteString("- <" + string(link) + ">\n")
		}
		md = sb.String()
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	notebookNotFoundIssue = &Issue{
		id: NotebookNotFoundId,
		mdMsg: `
# Notebook not found!

The input notebook does not exist or is not a regular file.

## Things you can try:
- Check the path passed to ` + "`--input`" + `
- Paths are resolved relative to the current directory:
~~~
$ ls *.ipynb
~~~`,
	}

	notebookInvalidIssue = &Issue{
		id: NotebookInvalidId,
		mdMsg: `
# Notebook could not be read!

The input file is not JSON, or it uses an nbformat version other than 3 or 4.

## Things you can try:
- Open the notebook in Jupyter and save it again
- Convert notebooks older than nbformat 3 to the current format:
~~~
$ jupyter nbconvert --to notebook --nbformat 4 old.ipynb
~~~
- Validate it with ` + "`jupyter nbconvert --to notebook --stdout`",
		extLinks: []HttpLink{"https://nbformat.readthedocs.io/en/latest/format_description.html"},
	}

	notebookExecutionFailedIssue = &Issue{
		id: NotebookExecutionFailedId,
		mdMsg: `
# Notebook execution failed!

A cell raised an error. The partially executed notebook was still saved, so the
failing cell and its traceback can be inspected there.

## Things you can try:
- Open the saved notebook and look for the first cell with an error output
- Re-run with ` + "`--verbose`" + ` to see the engine's diagnostics
- Use ` + "`--fast`" + ` to iterate on failures with a smaller workload`,
	}

	executionTimedOutIssue = &Issue{
		id: ExecutionTimedOutId,
		mdMsg: `
# Notebook execution timed out!

The notebook did not finish within the configured timeout. Cells that completed
before the deadline were saved with their outputs.

## Things you can try:
- Raise the limit, e.g. ` + "`--timeout 1800`" + `
- Use ` + "`--fast`" + ` to shrink the workload while testing
- Set a project default in your config file:
~~~cue
timeout: 1800
~~~`,
	}

	interpreterNotFoundIssue = &Issue{
		id: InterpreterNotFoundId,
		mdMsg: `
# Python interpreter not found!

The native runtime needs a Python interpreter on your PATH.

## Things you can try:
- Activate the virtual environment that has Jupyter installed
- Point nbrun at a specific interpreter:
~~~cue
python: binary: "/path/to/venv/bin/python"
~~~
- Use the container runtime instead: ` + "`--runtime container`",
	}

	engineMissingIssue = &Issue{
		id: EngineMissingId,
		mdMsg: `
# Notebook execution engine not installed!

The interpreter was found, but it cannot import nbformat and nbclient.

## Things you can try:
- Install the engine into the interpreter nbrun uses:
~~~
$ python3 -m pip install nbformat nbclient ipykernel
~~~
- Make sure the requested kernel is registered:
~~~
$ jupyter kernelspec list
~~~`,
	}

	containerEngineNotFoundIssue = &Issue{
		id: ContainerEngineNotFoundId,
		mdMsg: `
# Container engine not available!

The container runtime needs a reachable Docker or Podman daemon.

## Things you can try:
- Start Docker, or the Podman API socket:
~~~
$ systemctl --user start podman.socket
~~~
- Point nbrun at the daemon with ` + "`DOCKER_HOST`" + ` or ` + "`container.host`" + `
- Use the native runtime instead: ` + "`--runtime native`",
	}

	imagePullFailedIssue = &Issue{
		id: ImagePullFailedId,
		mdMsg: `
# Container image unavailable!

The notebook image could not be found locally or pulled from its registry.

## Things you can try:
- Check the image reference in ` + "`container.image`" + `
- Pull it manually to see the registry error:
~~~
$ docker pull quay.io/jupyter/scipy-notebook:latest
~~~
- Set ` + "`container.pull: \"missing\"`" + ` to reuse a local image`,
	}

	outputWriteFailedIssue = &Issue{
		id: OutputWriteFailedId,
		mdMsg: `
# Executed notebook could not be saved!

## Things you can try:
- Check that the output directory exists and is writable
- Pass a different location with ` + "`--output`",
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file could not be loaded or does not match the schema.

## Things you can try:
- Print the effective configuration:
~~~
$ nbrun config show
~~~
- Regenerate a default file:
~~~
$ nbrun config init --force
~~~
- Or remove the file to fall back to built-in defaults`,
	}

	invalidRuntimeIssue = &Issue{
		id: InvalidRuntimeId,
		mdMsg: `
# Invalid runtime!

## Available runtimes:
- **native**: runs the notebook with the host Python interpreter
- **container**: runs the notebook inside a Jupyter container image

## Example:
~~~
$ nbrun --input analysis.ipynb --runtime container
~~~`,
	}

	issues = map[Id]*Issue{
		notebookNotFoundIssue.Id():        notebookNotFoundIssue,
		notebookInvalidIssue.Id():         notebookInvalidIssue,
		notebookExecutionFailedIssue.Id(): notebookExecutionFailedIssue,
		executionTimedOutIssue.Id():       executionTimedOutIssue,
		interpreterNotFoundIssue.Id():     interpreterNotFoundIssue,
		engineMissingIssue.Id():           engineMissingIssue,
		containerEngineNotFoundIssue.Id(): containerEngineNotFoundIssue,
		imagePullFailedIssue.Id():         imagePullFailedIssue,
		outputWriteFailedIssue.Id():       outputWriteFailedIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		invalidRuntimeIssue.Id():          invalidRuntimeIssue,
	}
)

// Values returns every issue ordered by Id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, is := range issues {
		out = append(out, is)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return int(a.id) - int(b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
