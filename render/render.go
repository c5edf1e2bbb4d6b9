// Package render projects client data onto the terminal. Formatting is
// configured per Renderer; there is no process-wide output state.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gosuri/uitable"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"agenthub/common"
	"agenthub/deploy"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJson  Format = "json"
	FormatYaml  Format = "yaml"
)

type Options struct {
	Format      Format
	Interactive bool
	Out         io.Writer
}

type Renderer struct {
	opts Options
}

func NewRenderer(opts Options) *Renderer {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	return &Renderer{opts: opts}
}

// Report prints a one-line progress update per reduced event. It implements
// deploy.Reporter for interactive monitoring sessions.
func (r *Renderer) Report(state *deploy.State) {
	if !r.opts.Interactive {
		return
	}
	for _, c := range state.Containers() {
		line := fmt.Sprintf("%-8s %-12s %s", c.Kind, c.Name, c.Status)
		if c.Reason != "" {
			line += " (" + c.Reason + ")"
		}
		fmt.Fprintln(r.opts.Out, line)
	}
	for _, message := range state.Errors {
		fmt.Fprintln(r.opts.Out, "error: "+message)
	}
}

// Deployment renders the final state of a monitoring session.
func (r *Renderer) Deployment(state *deploy.State) error {
	snapshot := state.Snapshot()
	switch r.opts.Format {
	case FormatJson:
		return r.renderJson(snapshot)
	case FormatYaml:
		return r.renderYaml(snapshot)
	case FormatTable:
		table := uitable.New()
		table.AddRow("CONTAINER", "KIND", "STATUS", "EXIT", "REASON")
		for _, c := range snapshot.Containers {
			exitCode := ""
			if c.ExitCode != nil {
				exitCode = strconv.Itoa(*c.ExitCode)
			}
			table.AddRow(c.Name, string(c.Kind), string(c.Status), exitCode, c.Reason)
		}
		if snapshot.PodName != "" {
			fmt.Fprintln(r.opts.Out, "pod: "+snapshot.PodName)
		}
		fmt.Fprintln(r.opts.Out, table.String())
		for _, message := range snapshot.Errors {
			fmt.Fprintln(r.opts.Out, "error: "+message)
		}
		return nil
	}
	return errors.Errorf("unknown output format %q", r.opts.Format)
}

func (r *Renderer) Functions(infos []common.FunctionInfo) error {
	switch r.opts.Format {
	case FormatJson:
		return r.renderJson(infos)
	case FormatYaml:
		return r.renderYaml(infos)
	case FormatTable:
		table := uitable.New()
		table.AddRow("ID", "NAME", "RUNTIME", "STATUS", "CREATED")
		for _, info := range infos {
			created := time.Unix(info.CreatedAt, 0).Format(time.RFC3339)
			table.AddRow(info.Id, info.Name, info.Runtime, info.Status, created)
		}
		fmt.Fprintln(r.opts.Out, table.String())
		return nil
	}
	return errors.Errorf("unknown output format %q", r.opts.Format)
}

func (r *Renderer) Tools(infos []common.ToolInfo) error {
	switch r.opts.Format {
	case FormatJson:
		return r.renderJson(infos)
	case FormatYaml:
		return r.renderYaml(infos)
	case FormatTable:
		table := uitable.New()
		table.MaxColWidth = 60
		table.AddRow("NAME", "FUNCTION", "DESCRIPTION")
		for _, info := range infos {
			table.AddRow(info.Name, info.FunctionId, info.Description)
		}
		fmt.Fprintln(r.opts.Out, table.String())
		return nil
	}
	return errors.Errorf("unknown output format %q", r.opts.Format)
}

func (r *Renderer) CrashLogs(logs *deploy.CrashLogs) error {
	if logs == nil {
		fmt.Fprintln(r.opts.Out, "no crash logs available")
		return nil
	}
	switch r.opts.Format {
	case FormatJson:
		return r.renderJson(logs)
	case FormatYaml:
		return r.renderYaml(logs)
	default:
		if logs.Stdout != "" {
			fmt.Fprintln(r.opts.Out, "--- stdout ---")
			fmt.Fprintln(r.opts.Out, logs.Stdout)
		}
		if logs.Stderr != "" {
			fmt.Fprintln(r.opts.Out, "--- stderr ---")
			fmt.Fprintln(r.opts.Out, logs.Stderr)
		}
		return nil
	}
}

func (r *Renderer) renderJson(v interface{}) error {
	encoder := json.NewEncoder(r.opts.Out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Renderer) renderYaml(v interface{}) error {
	out, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = r.opts.Out.Write(out)
	return err
}
