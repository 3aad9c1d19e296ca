package concourse

import (
	"encoding/json"
	"fmt"
	"io"
)

// ResourceType declares a custom resource type backed by a container image.
type ResourceType struct {
	Name       Identifier     `json:"name"`
	Type       string         `json:"type"`
	Source     map[string]any `json:"source,omitempty"`
	Privileged bool           `json:"privileged,omitempty"`
	Params     map[string]any `json:"params,omitempty"`
	CheckEvery string         `json:"check_every,omitempty"`
	Defaults   map[string]any `json:"defaults,omitempty"`
}

// Resource declares a versioned input or output of the pipeline.
type Resource struct {
	Name         Identifier     `json:"name"`
	Type         string         `json:"type"`
	Source       map[string]any `json:"source,omitempty"`
	CheckEvery   string         `json:"check_every,omitempty"`
	Icon         string         `json:"icon,omitempty"`
	Public       bool           `json:"public,omitempty"`
	WebhookToken string         `json:"webhook_token,omitempty"`
}

// Job is a named build plan.
type Job struct {
	Name                 Identifier   `json:"name"`
	Plan                 []Step       `json:"plan"`
	Serial               bool         `json:"serial,omitempty"`
	SerialGroups         []Identifier `json:"serial_groups,omitempty"`
	MaxInFlight          int          `json:"max_in_flight,omitempty"`
	Public               bool         `json:"public,omitempty"`
	DisableManualTrigger bool         `json:"disable_manual_trigger,omitempty"`
	OnSuccess            Step         `json:"on_success,omitempty"`
	OnFailure            Step         `json:"on_failure,omitempty"`
	Ensure               Step         `json:"ensure,omitempty"`
}

// GroupConfig names a tab in the pipeline UI and the jobs shown on it.
type GroupConfig struct {
	Name Identifier   `json:"name"`
	Jobs []Identifier `json:"jobs,omitempty"`
}

// Pipeline is a complete Concourse pipeline document.
type Pipeline struct {
	ResourceTypes []ResourceType `json:"resource_types,omitempty"`
	Resources     []Resource     `json:"resources,omitempty"`
	Jobs          []Job          `json:"jobs"`
	Groups        []GroupConfig  `json:"groups,omitempty"`
}

// ValidationError reports a document that Concourse would reject at
// set-pipeline time. It carries the offending section and name so the caller
// can point at the fragment that introduced it.
type ValidationError struct {
	Section string
	Name    string
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid pipeline: %s %q: %s", e.Section, e.Name, e.Reason)
}

// Validate checks the structural invariants Concourse enforces server-side:
// unique names per section, valid identifiers, get steps referencing
// declared resources, and passed constraints referencing declared jobs. Job
// and step hooks (on_success, on_failure, ensure) are walked like plan
// steps.
func (p *Pipeline) Validate() error {
	resourceNames := make(map[Identifier]bool, len(p.Resources))
	for _, r := range p.Resources {
		if err := r.Name.Validate(); err != nil {
			return &ValidationError{Section: "resource", Name: string(r.Name), Reason: err.Error()}
		}
		if resourceNames[r.Name] {
			return &ValidationError{Section: "resource", Name: string(r.Name), Reason: "declared twice"}
		}
		resourceNames[r.Name] = true
	}

	typeNames := make(map[Identifier]bool, len(p.ResourceTypes))
	for _, rt := range p.ResourceTypes {
		if err := rt.Name.Validate(); err != nil {
			return &ValidationError{Section: "resource type", Name: string(rt.Name), Reason: err.Error()}
		}
		if typeNames[rt.Name] {
			return &ValidationError{Section: "resource type", Name: string(rt.Name), Reason: "declared twice"}
		}
		typeNames[rt.Name] = true
	}

	jobNames := make(map[Identifier]bool, len(p.Jobs))
	for _, j := range p.Jobs {
		if err := j.Name.Validate(); err != nil {
			return &ValidationError{Section: "job", Name: string(j.Name), Reason: err.Error()}
		}
		if jobNames[j.Name] {
			return &ValidationError{Section: "job", Name: string(j.Name), Reason: "declared twice"}
		}
		jobNames[j.Name] = true
	}

	for _, j := range p.Jobs {
		if len(j.Plan) == 0 {
			return &ValidationError{Section: "job", Name: string(j.Name), Reason: "empty plan"}
		}
		if err := p.validateSteps(j, j.Plan, resourceNames, jobNames); err != nil {
			return err
		}
		for _, hook := range []Step{j.OnSuccess, j.OnFailure, j.Ensure} {
			if hook == nil {
				continue
			}
			if err := p.validateSteps(j, []Step{hook}, resourceNames, jobNames); err != nil {
				return err
			}
		}
	}

	for _, g := range p.Groups {
		for _, name := range g.Jobs {
			if !jobNames[name] {
				return &ValidationError{Section: "group", Name: string(g.Name), Reason: fmt.Sprintf("unknown job %q", name)}
			}
		}
	}
	return nil
}

func (p *Pipeline) validateSteps(job Job, steps []Step, resources, jobs map[Identifier]bool) error {
	for _, s := range steps {
		switch step := s.(type) {
		case GetStep:
			name := step.Resource
			if name == "" {
				name = step.Get
			}
			if !resources[name] {
				return &ValidationError{Section: "job", Name: string(job.Name), Reason: fmt.Sprintf("get of undeclared resource %q", name)}
			}
			for _, passed := range step.Passed {
				if !jobs[passed] {
					return &ValidationError{Section: "job", Name: string(job.Name), Reason: fmt.Sprintf("passed constraint names unknown job %q", passed)}
				}
			}
			if step.OnFailure != nil {
				if err := p.validateSteps(job, []Step{step.OnFailure}, resources, jobs); err != nil {
					return err
				}
			}
		case PutStep:
			name := step.Resource
			if name == "" {
				name = step.Put
			}
			if !resources[name] {
				return &ValidationError{Section: "job", Name: string(job.Name), Reason: fmt.Sprintf("put of undeclared resource %q", name)}
			}
			if step.OnFailure != nil {
				if err := p.validateSteps(job, []Step{step.OnFailure}, resources, jobs); err != nil {
					return err
				}
			}
		case InParallelStep:
			if err := p.validateSteps(job, step.InParallel.Steps, resources, jobs); err != nil {
				return err
			}
		case DoStep:
			if err := p.validateSteps(job, step.Do, resources, jobs); err != nil {
				return err
			}
		}
	}
	return nil
}

// Write validates the pipeline and emits it as an indented JSON document.
func (p *Pipeline) Write(w io.Writer) error {
	if err := p.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
